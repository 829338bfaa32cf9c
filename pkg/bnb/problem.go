package bnb

import (
	"errors"
	"fmt"
	"math"
)

// VarType classifies a decision variable.
type VarType int

const (
	Continuous VarType = iota
	Integer
	Binary
)

func (t VarType) String() string {
	switch t {
	case Binary:
		return "bin"
	case Integer:
		return "int"
	default:
		return "cont"
	}
}

// IsIntegral reports whether variables of this type must take integer values.
func (t VarType) IsIntegral() bool {
	return t == Integer || t == Binary
}

// Var is a column of the problem: minimize Obj*x subject to LB <= x <= UB.
type Var struct {
	Name string
	Type VarType
	Obj  float64
	LB   float64
	UB   float64
	// Lazy variables are kept out of the initial relaxation and only
	// enter it through problem variable pricing.
	Lazy bool
}

// Coef is a single nonzero of a row.
type Coef struct {
	Var int
	Val float64
}

// ColEntry is a single nonzero of a column being priced into the problem.
type ColEntry struct {
	Row int
	Val float64
}

// Row is a linear constraint LHS <= sum(coef*x) <= RHS. Use math.Inf for
// one-sided rows.
type Row struct {
	Name  string
	Coefs []Coef
	LHS   float64
	RHS   float64
	// Lazy rows are not part of the initial relaxation; they are added
	// as cuts when violated.
	Lazy bool
	// Local rows are only valid in the subtree where they were found and
	// never enter the global cut pool.
	Local bool
}

// Activity returns the row activity for the given assignment.
func (r Row) Activity(x func(int) float64) float64 {
	var a float64
	for _, c := range r.Coefs {
		a += c.Val * x(c.Var)
	}
	return a
}

// Violation returns by how much the assignment violates the row, zero if
// it is satisfied.
func (r Row) Violation(x func(int) float64) float64 {
	a := r.Activity(x)
	return math.Max(0, math.Max(r.LHS-a, a-r.RHS))
}

// Norm returns the euclidean norm of the coefficient vector.
func (r Row) Norm() float64 {
	var n float64
	for _, c := range r.Coefs {
		n += c.Val * c.Val
	}
	return math.Sqrt(n)
}

// Problem is a mixed integer program in minimization form.
type Problem struct {
	Name string
	Vars []Var
	Rows []Row
}

// NIntegral returns the number of binary and integer variables.
func (p *Problem) NIntegral() int {
	n := 0
	for _, v := range p.Vars {
		if v.Type.IsIntegral() {
			n++
		}
	}
	return n
}

// NContinuous returns the number of continuous variables.
func (p *Problem) NContinuous() int {
	return len(p.Vars) - p.NIntegral()
}

// AddVar appends a variable together with its column and returns its index.
func (p *Problem) AddVar(v Var, col []ColEntry) (int, error) {
	j := len(p.Vars)
	for _, e := range col {
		if e.Row < 0 || e.Row >= len(p.Rows) {
			return -1, fmt.Errorf("column of variable %q references unknown row %d", v.Name, e.Row)
		}
	}
	p.Vars = append(p.Vars, v)
	for _, e := range col {
		p.Rows[e.Row].Coefs = append(p.Rows[e.Row].Coefs, Coef{Var: j, Val: e.Val})
	}
	return j, nil
}

// Objective evaluates the objective function.
func (p *Problem) Objective(x []float64) float64 {
	var z float64
	for j, v := range p.Vars {
		if j < len(x) {
			z += v.Obj * x[j]
		}
	}
	return z
}

// Clone returns a deep copy of the problem.
func (p *Problem) Clone() *Problem {
	c := &Problem{Name: p.Name, Vars: append([]Var(nil), p.Vars...), Rows: make([]Row, len(p.Rows))}
	for i, r := range p.Rows {
		r.Coefs = append([]Coef(nil), r.Coefs...)
		c.Rows[i] = r
	}
	return c
}

// Validate checks the problem for structural errors.
func (p *Problem) Validate() error {
	var errs []error
	for j, v := range p.Vars {
		if v.LB > v.UB {
			errs = append(errs, fmt.Errorf("variable %d (%s): lower bound %g exceeds upper bound %g", j, v.Name, v.LB, v.UB))
		}
		if v.Type == Binary && (v.LB < 0 || v.UB > 1) {
			errs = append(errs, fmt.Errorf("variable %d (%s): binary bounds must lie in [0,1]", j, v.Name))
		}
		if math.IsNaN(v.Obj) || math.IsInf(v.Obj, 0) {
			errs = append(errs, fmt.Errorf("variable %d (%s): invalid objective coefficient", j, v.Name))
		}
	}
	for i, r := range p.Rows {
		if r.LHS > r.RHS {
			errs = append(errs, fmt.Errorf("row %d (%s): left hand side %g exceeds right hand side %g", i, r.Name, r.LHS, r.RHS))
		}
		for _, c := range r.Coefs {
			if c.Var < 0 || c.Var >= len(p.Vars) {
				errs = append(errs, fmt.Errorf("row %d (%s): unknown variable %d", i, r.Name, c.Var))
			}
		}
	}
	return errors.Join(errs...)
}
