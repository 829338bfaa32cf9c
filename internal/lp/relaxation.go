package lp

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// Relaxation is the linear relaxation of the focus node. Columns are
// addressed by problem variable index, rows by insertion order. Every
// modification unflushes the relaxation; Solve flushes it again.
type Relaxation struct {
	tol    bnb.Tolerances
	nvars  int
	inLP   []bool
	obj    []float64
	lb, ub []float64
	rows   []bnb.Row
	ncols  int

	cutoff     float64
	flushed    bool
	solved     bool
	installing bool
	relax      bool

	status bnb.SolStat
	objval float64
	x      []float64
}

func New(tol bnb.Tolerances) *Relaxation {
	return &Relaxation{
		tol:     tol,
		cutoff:  math.Inf(1),
		flushed: true,
		relax:   true,
	}
}

func (r *Relaxation) unflush() {
	r.flushed = false
	r.solved = false
	r.status = bnb.NotSolved
}

func (r *Relaxation) grow(j int) {
	for r.nvars <= j {
		r.inLP = append(r.inLP, false)
		r.obj = append(r.obj, 0)
		r.lb = append(r.lb, 0)
		r.ub = append(r.ub, 0)
		r.x = append(r.x, 0)
		r.nvars++
	}
}

// AddCol adds variable j to the relaxation.
func (r *Relaxation) AddCol(j int, obj, lb, ub float64) {
	r.grow(j)
	if r.inLP[j] {
		return
	}
	r.inLP[j] = true
	r.obj[j] = obj
	r.lb[j] = lb
	r.ub[j] = ub
	r.ncols++
	r.unflush()
}

func (r *Relaxation) HasCol(j int) bool {
	return j < r.nvars && r.inLP[j]
}

func (r *Relaxation) NCols() int {
	return r.ncols
}

// ChgBounds changes the bounds of column j. Unchanged bounds leave the
// relaxation flushed.
func (r *Relaxation) ChgBounds(j int, lb, ub float64) {
	if !r.HasCol(j) {
		return
	}
	if r.lb[j] == lb && r.ub[j] == ub {
		return
	}
	r.lb[j] = lb
	r.ub[j] = ub
	r.unflush()
}

func (r *Relaxation) AddRow(row bnb.Row) {
	r.rows = append(r.rows, row)
	r.unflush()
}

// AddCoef adds a coefficient to row i, for columns priced into rows that
// are already in the relaxation.
func (r *Relaxation) AddCoef(i int, c bnb.Coef) {
	row := r.rows[i]
	row.Coefs = append(append([]bnb.Coef(nil), row.Coefs...), c)
	r.rows[i] = row
	r.unflush()
}

func (r *Relaxation) NRows() int {
	return len(r.rows)
}

func (r *Relaxation) Row(i int) bnb.Row {
	return r.rows[i]
}

// TruncateRows drops every row from index n on.
func (r *Relaxation) TruncateRows(n int) {
	if n >= len(r.rows) {
		return
	}
	r.rows = r.rows[:n]
	r.unflush()
}

// SetCutoffBound sets the objective limit. An optimal solution above the
// new limit turns into an objective limit status; raising the limit above
// an objective limit status requires a new solve.
func (r *Relaxation) SetCutoffBound(v float64) {
	if v == r.cutoff {
		return
	}
	old := r.cutoff
	r.cutoff = v
	switch {
	case r.status == bnb.Optimal && r.tol.IsGE(r.objval, v):
		r.status = bnb.ObjLimit
	case r.status == bnb.ObjLimit && v > old:
		r.solved = false
		r.status = bnb.NotSolved
	}
}

func (r *Relaxation) CutoffBound() float64 {
	return r.cutoff
}

func (r *Relaxation) IsFlushed() bool { return r.flushed }
func (r *Relaxation) IsSolved() bool  { return r.solved }

// MarkUnsolved forces the next Solve call to run the simplex again.
func (r *Relaxation) MarkUnsolved() {
	r.solved = false
	r.status = bnb.NotSolved
}

// SetInstalling hints that the next solves are likely degenerate.
func (r *Relaxation) SetInstalling(v bool) { r.installing = v }
func (r *Relaxation) Installing() bool     { return r.installing }

// SetIsRelax records whether the current solution is a valid relaxation
// of the node, which is not the case after aborted pricing.
func (r *Relaxation) SetIsRelax(v bool) { r.relax = v }
func (r *Relaxation) IsRelax() bool     { return r.relax }

func (r *Relaxation) Status() bnb.SolStat { return r.status }
func (r *Relaxation) ObjVal() float64     { return r.objval }

// Value returns the solution value of variable j. Variables without a
// column are at zero.
func (r *Relaxation) Value(j int) float64 {
	if !r.HasCol(j) {
		return 0
	}
	return r.x[j]
}

func (r *Relaxation) finite(v float64) bool {
	return !r.tol.IsInfinity(v) && !r.tol.IsInfinity(-v)
}

// column maps a problem variable to one or two nonnegative simplex columns:
// x = shift + sign*y (+ -y2 for free variables).
type column struct {
	fixed bool
	shift float64
	sign  float64
	first int
	split bool
	bound float64
	hasUB bool
}

// Solve solves the relaxation unless it is already solved. A simplex still
// running at the deadline stops with a time limit status, one that runs out
// of pivots with an iteration limit status. Numerical failure of the simplex
// is returned as an error with status Error.
func (r *Relaxation) Solve(deadline time.Time) (bnb.SolStat, error) {
	if r.flushed && r.solved {
		return r.status, nil
	}
	r.flushed = true
	if !deadline.IsZero() && time.Now().After(deadline) {
		r.solved = false
		r.status = bnb.TimeLimitLP
		return r.status, nil
	}
	status, err := r.solve(deadline)
	r.status = status
	if err != nil {
		r.solved = false
		return status, err
	}
	if status == bnb.TimeLimitLP || status == bnb.IterLimit {
		r.solved = false
		return status, nil
	}
	r.solved = true
	if r.status == bnb.Optimal && r.tol.IsGE(r.objval, r.cutoff) {
		r.status = bnb.ObjLimit
	}
	return r.status, nil
}

// SolveWithoutCutoff solves the relaxation to optimality with the
// objective limit disabled. The cutoff bound stays in place for later
// solves but does not change the status of this one.
func (r *Relaxation) SolveWithoutCutoff(deadline time.Time) (bnb.SolStat, error) {
	cutoff := r.cutoff
	r.cutoff = math.Inf(1)
	r.solved = false
	defer func() { r.cutoff = cutoff }()
	return r.Solve(deadline)
}

func (r *Relaxation) solve(deadline time.Time) (bnb.SolStat, error) {
	cols := make([]column, r.nvars)
	n := 0
	constant := 0.0
	for j := 0; j < r.nvars; j++ {
		if !r.inLP[j] {
			continue
		}
		l, u := r.lb[j], r.ub[j]
		if l > u && !r.tol.IsEQ(l, u) {
			r.objval = math.Inf(1)
			return bnb.InfeasibleLP, nil
		}
		c := column{first: n, sign: 1}
		switch {
		case r.finite(l) && r.finite(u) && r.tol.IsEQ(l, u):
			c.fixed = true
			c.shift = l
			constant += r.obj[j] * l
		case r.finite(l):
			c.shift = l
			if r.finite(u) {
				c.hasUB = true
				c.bound = u - l
			}
			n++
		case r.finite(u):
			c.shift = u
			c.sign = -1
			n++
		default:
			c.split = true
			n += 2
		}
		cols[j] = c
	}

	type eq struct {
		coefs map[int]float64
		slack float64
		rhs   float64
	}
	var eqs []eq
	for _, row := range r.rows {
		coefs := make(map[int]float64)
		act := 0.0
		for _, cf := range row.Coefs {
			if !r.HasCol(cf.Var) {
				continue
			}
			c := cols[cf.Var]
			act += cf.Val * c.shift
			if c.fixed {
				continue
			}
			coefs[c.first] += c.sign * cf.Val
			if c.split {
				coefs[c.first+1] -= cf.Val
			}
		}
		empty := true
		for _, v := range coefs {
			if v != 0 {
				empty = false
			}
		}
		if empty {
			if (r.finite(row.LHS) && r.tol.IsLT(act, row.LHS)) || (r.finite(row.RHS) && r.tol.IsGT(act, row.RHS)) {
				r.objval = math.Inf(1)
				return bnb.InfeasibleLP, nil
			}
			continue
		}
		if r.finite(row.LHS) {
			eqs = append(eqs, eq{coefs: coefs, slack: -1, rhs: row.LHS - act})
		}
		if r.finite(row.RHS) {
			eqs = append(eqs, eq{coefs: coefs, slack: 1, rhs: row.RHS - act})
		}
	}
	for j := range cols {
		if r.HasCol(j) && cols[j].hasUB {
			eqs = append(eqs, eq{coefs: map[int]float64{cols[j].first: 1}, slack: 1, rhs: cols[j].bound})
		}
	}

	cost := make([]float64, n+len(eqs))
	for j := range cols {
		if !r.HasCol(j) || cols[j].fixed {
			continue
		}
		c := cols[j]
		cost[c.first] = c.sign * r.obj[j]
		constant += r.obj[j] * c.shift
		if c.split {
			cost[c.first+1] = -r.obj[j]
		}
	}

	// columns that appear in no equation are set directly
	used := make([]bool, n)
	for _, e := range eqs {
		for k, v := range e.coefs {
			if v != 0 {
				used[k] = true
			}
		}
	}
	for k := 0; k < n; k++ {
		if !used[k] && cost[k] < 0 {
			r.objval = math.Inf(-1)
			return bnb.UnboundedRay, nil
		}
	}

	y := make([]float64, n)
	var z float64
	if len(eqs) > 0 {
		// drop unused structural columns to avoid zero columns
		idx := make([]int, 0, n)
		pos := make([]int, n)
		for k := 0; k < n; k++ {
			pos[k] = -1
			if used[k] {
				pos[k] = len(idx)
				idx = append(idx, k)
			}
		}
		m := len(idx)
		A := mat.NewDense(len(eqs), m+len(eqs), nil)
		b := make([]float64, len(eqs))
		slack := make([]float64, len(eqs))
		c := make([]float64, m+len(eqs))
		for k, orig := range idx {
			c[k] = cost[orig]
		}
		for i, e := range eqs {
			for k, v := range e.coefs {
				if pos[k] >= 0 {
					A.Set(i, pos[k], v)
				}
			}
			A.Set(i, m+i, e.slack)
			b[i] = e.rhs
			slack[i] = e.slack
		}
		var (
			sol    []float64
			status bnb.SolStat
			err    error
		)
		z, sol, status, err = r.simplex(c, A, b, slack, m, deadline)
		if status == bnb.IterLimit {
			r.loosen(b, slack)
			z, sol, status, err = r.simplex(c, A, b, slack, m, deadline)
		}
		switch status {
		case bnb.Optimal:
		case bnb.InfeasibleLP:
			r.objval = math.Inf(1)
			return status, nil
		case bnb.UnboundedRay:
			r.objval = math.Inf(-1)
			return status, nil
		case bnb.Error:
			return status, fmt.Errorf("simplex failed on %d rows and %d columns: %w", len(eqs), m, err)
		default:
			r.objval = math.Inf(-1)
			return status, nil
		}
		for k, orig := range idx {
			y[orig] = sol[k]
		}
	}

	for j := range cols {
		if !r.HasCol(j) {
			continue
		}
		c := cols[j]
		switch {
		case c.fixed:
			r.x[j] = c.shift
		case c.split:
			r.x[j] = y[c.first] - y[c.first+1]
		default:
			r.x[j] = c.shift + c.sign*y[c.first]
		}
	}
	r.objval = z + constant
	return bnb.Optimal, nil
}
