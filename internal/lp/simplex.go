package lp

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/operator-framework/bnb/pkg/bnb"
)

var (
	errPivotLimit = errors.New("simplex pivot limit reached")
	errDeadline   = errors.New("simplex deadline passed")
)

// pivotBudget bounds the column reads of one simplex run. The gonum simplex
// reads one column per pivot, a few more on degenerate pivots, and its
// tie breaking does not rule out cycling.
func pivotBudget(rows, cols int) int {
	return 3*cols + 200*(rows+cols) + 1000
}

// guarded hides the storage of a matrix from the simplex so that every
// column read goes through At, where the budget and the deadline are
// checked. A panic is the only way out of lp.Simplex.
type guarded struct {
	a        *mat.Dense
	reads    int
	budget   int
	deadline time.Time
}

func (g *guarded) Dims() (int, int) { return g.a.Dims() }
func (g *guarded) T() mat.Matrix    { return mat.Transpose{Matrix: g} }

func (g *guarded) At(i, j int) float64 {
	if i == 0 {
		g.reads++
		if g.reads > g.budget {
			panic(errPivotLimit)
		}
		if !g.deadline.IsZero() && time.Now().After(g.deadline) {
			panic(errDeadline)
		}
	}
	return g.a.At(i, j)
}

// run calls lp.Simplex from the given feasible basis.
func run(c []float64, A *mat.Dense, b []float64, basis []int, deadline time.Time) (z float64, x []float64, status bnb.SolStat, err error) {
	rows, cols := A.Dims()
	g := &guarded{a: A, budget: pivotBudget(rows, cols), deadline: deadline}
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		e, _ := p.(error)
		switch {
		case errors.Is(e, errPivotLimit):
			status, err = bnb.IterLimit, nil
		case errors.Is(e, errDeadline):
			status, err = bnb.TimeLimitLP, nil
		default:
			status, err = bnb.Error, fmt.Errorf("%v", p)
		}
	}()
	z, x, err = lp.Simplex(c, g, b, 0, basis)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return z, nil, bnb.InfeasibleLP, nil
	case errors.Is(err, lp.ErrUnbounded):
		return z, nil, bnb.UnboundedRay, nil
	case err != nil:
		return z, nil, bnb.Error, err
	}
	return z, x, bnb.Optimal, nil
}

// simplex solves min c·x subject to A·x = b, x >= 0, where column base+i
// is the slack of row i with coefficient slack[i]. Rows whose slack has the
// sign of b start from their slack; the others get an artificial column
// whose sum is minimized first. The second phase keeps the artificial
// columns at a prohibitive cost and starts from the basis of the first.
func (r *Relaxation) simplex(c []float64, A *mat.Dense, b, slack []float64, base int, deadline time.Time) (float64, []float64, bnb.SolStat, error) {
	rows, cols := A.Dims()
	basis := make([]int, rows)
	var art []int
	for i := range b {
		basis[i] = base + i
		if b[i]*slack[i] < 0 {
			art = append(art, i)
		}
	}
	if len(art) == 0 {
		return run(c, A, b, basis, deadline)
	}

	A1 := mat.NewDense(rows, cols+len(art), nil)
	A1.Slice(0, rows, 0, cols).(*mat.Dense).Copy(A)
	c1 := make([]float64, cols+len(art))
	for k, i := range art {
		A1.Set(i, cols+k, math.Copysign(1, b[i]))
		c1[cols+k] = 1
		basis[i] = cols + k
	}
	z1, x1, status, err := run(c1, A1, b, basis, deadline)
	if status != bnb.Optimal {
		return 0, nil, status, err
	}
	if z1 > r.tol.FeasTol*(1+mat.Norm(mat.NewVecDense(rows, b), math.Inf(1))) {
		return 0, nil, bnb.InfeasibleLP, nil
	}

	basis, err = completeBasis(A1, x1, base)
	if err != nil {
		return 0, nil, bnb.Error, err
	}
	big := 1.0
	for _, v := range c {
		big = math.Max(big, math.Abs(v))
	}
	c2 := make([]float64, cols+len(art))
	copy(c2, c)
	for k := range art {
		c2[cols+k] = 1e6 * big
	}
	_, x2, status, err := run(c2, A1, b, basis, deadline)
	if status != bnb.Optimal {
		return 0, nil, status, err
	}
	for k := range art {
		if x2[cols+k] > r.tol.FeasTol {
			return 0, nil, bnb.Error, fmt.Errorf("artificial column of row %d stays at %g", art[k], x2[cols+k])
		}
	}
	z := 0.0
	for j := 0; j < cols; j++ {
		z += c[j] * x2[j]
	}
	return z, x2[:cols], bnb.Optimal, nil
}

// completeBasis returns a basis of A that contains every positive column of
// x, filled up with the slack columns base+i of the rows the positive
// columns leave uncovered.
func completeBasis(A *mat.Dense, x []float64, base int) ([]int, error) {
	rows, _ := A.Dims()
	var basis []int
	for j, v := range x {
		if v > 0 {
			basis = append(basis, j)
		}
	}
	if len(basis) > rows {
		return nil, fmt.Errorf("%d positive columns on %d rows", len(basis), rows)
	}

	// Gaussian elimination with row pivoting picks the rows the positive
	// columns cover.
	w := mat.NewDense(rows, len(basis), nil)
	for k, j := range basis {
		w.SetCol(k, mat.Col(nil, j, A))
	}
	covered := make([]bool, rows)
	for k := range basis {
		p, best := -1, 1e-9
		for i := 0; i < rows; i++ {
			if !covered[i] && math.Abs(w.At(i, k)) > best {
				p, best = i, math.Abs(w.At(i, k))
			}
		}
		if p < 0 {
			return nil, fmt.Errorf("positive columns are linearly dependent")
		}
		covered[p] = true
		for i := 0; i < rows; i++ {
			if covered[i] {
				continue
			}
			f := w.At(i, k) / w.At(p, k)
			for l := k; l < len(basis); l++ {
				w.Set(i, l, w.At(i, l)-f*w.At(p, l))
			}
		}
	}
	for i := 0; i < rows; i++ {
		if !covered[i] {
			basis = append(basis, base+i)
		}
	}
	return basis, nil
}

// loosen moves every right hand side outward by a small distinct amount,
// which breaks the ties of degenerate vertices. Solutions of the loosened
// rows violate the original ones by far less than the feasibility
// tolerance, and their objective stays a lower bound.
func (r *Relaxation) loosen(b, slack []float64) {
	for i := range b {
		b[i] += slack[i] * r.tol.Epsilon * (1 + math.Abs(b[i])) * (1 + float64(i)/float64(len(b)))
	}
}
