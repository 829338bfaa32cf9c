package plugins

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/operator-framework/bnb/pkg/bnb"
)

type fakeChild struct {
	lb, ub map[int]float64
}

func (c *fakeChild) ChgLB(j int, v float64) { c.lb[j] = v }
func (c *fakeChild) ChgUB(j int, v float64) { c.ub[j] = v }

type branching struct {
	j   int
	val float64
}

// fakeEnv is a focus node without a solver behind it.
type fakeEnv struct {
	prob     *bnb.Problem
	lb, ub   []float64
	lp       []float64
	cuts     []bnb.Row
	children []*fakeChild
	branches []branching
	sols     [][]float64
	accept   bool
}

var _ bnb.Env = &fakeEnv{}

func newFakeEnv(p *bnb.Problem) *fakeEnv {
	e := &fakeEnv{prob: p, accept: true}
	for _, v := range p.Vars {
		e.lb = append(e.lb, v.LB)
		e.ub = append(e.ub, v.UB)
	}
	return e
}

func (e *fakeEnv) withLP(x ...float64) *fakeEnv {
	e.lp = x
	return e
}

func (e *fakeEnv) NVars() int              { return len(e.prob.Vars) }
func (e *fakeEnv) Var(j int) bnb.Var       { return e.prob.Vars[j] }
func (e *fakeEnv) NRows() int              { return len(e.prob.Rows) }
func (e *fakeEnv) Row(i int) bnb.Row       { return e.prob.Rows[i] }
func (e *fakeEnv) Depth() int              { return 0 }
func (e *fakeEnv) LB(j int) float64        { return e.lb[j] }
func (e *fakeEnv) UB(j int) float64        { return e.ub[j] }
func (e *fakeEnv) HasLP() bool             { return e.lp != nil }
func (e *fakeEnv) LPValue(j int) float64   { return e.lp[j] }
func (e *fakeEnv) NodeLowerBound() float64 { return 0 }
func (e *fakeEnv) CutoffBound() float64    { return math.Inf(1) }
func (e *fakeEnv) AddPoolCut(cut bnb.Row)     {}
func (e *fakeEnv) NCuts() int { return len(e.cuts) }
func (e *fakeEnv) AddVar(bnb.Var, []bnb.ColEntry) {}
func (e *fakeEnv) NChildren() int             { return len(e.children) }
func (e *fakeEnv) Tolerances() bnb.Tolerances { return bnb.DefaultTolerances() }
func (e *fakeEnv) Logger() *logrus.Entry      { return logrus.NewEntry(logrus.New()) }

func (e *fakeEnv) LPStatus() bnb.SolStat {
	if e.lp == nil {
		return bnb.NotSolved
	}
	return bnb.Optimal
}

func (e *fakeEnv) LPObjective() float64 { return e.prob.Objective(e.lp) }

func (e *fakeEnv) PseudoValue(j int) float64 {
	if e.prob.Vars[j].Obj >= 0 {
		return e.lb[j]
	}
	return e.ub[j]
}

func (e *fakeEnv) PseudoObjective() float64 {
	var obj float64
	for j, v := range e.prob.Vars {
		obj += v.Obj * e.PseudoValue(j)
	}
	return obj
}

func (e *fakeEnv) TightenLB(j int, v float64) (bool, bool) {
	tol := e.Tolerances()
	if e.prob.Vars[j].Type.IsIntegral() {
		v = tol.FeasCeil(v)
	}
	if !tol.IsGT(v, e.lb[j]) {
		return false, false
	}
	if tol.IsGT(v, e.ub[j]) {
		return true, false
	}
	e.lb[j] = v
	return false, true
}

func (e *fakeEnv) TightenUB(j int, v float64) (bool, bool) {
	tol := e.Tolerances()
	if e.prob.Vars[j].Type.IsIntegral() {
		v = tol.FeasFloor(v)
	}
	if !tol.IsLT(v, e.ub[j]) {
		return false, false
	}
	if tol.IsLT(v, e.lb[j]) {
		return true, false
	}
	e.ub[j] = v
	return false, true
}

func (e *fakeEnv) AddCut(cut bnb.Row, _ bool) { e.cuts = append(e.cuts, cut) }

func (e *fakeEnv) CreateChild(_ float64) bnb.Child {
	c := &fakeChild{lb: map[int]float64{}, ub: map[int]float64{}}
	e.children = append(e.children, c)
	return c
}

func (e *fakeEnv) Branch(j int, val float64) error {
	e.branches = append(e.branches, branching{j: j, val: val})
	e.CreateChild(0).ChgUB(j, math.Floor(val))
	e.CreateChild(0).ChgLB(j, math.Ceil(val))
	return nil
}

func (e *fakeEnv) AddExternCand(int, float64, float64) {}

func (e *fakeEnv) TrySol(sol []float64) (bool, error) {
	if !e.accept {
		return false, nil
	}
	e.sols = append(e.sols, sol)
	return true, nil
}

func binary(name string, obj float64) bnb.Var {
	return bnb.Var{Name: name, Type: bnb.Binary, Obj: obj, LB: 0, UB: 1}
}

func row(name string, lhs, rhs float64, coefs ...float64) bnb.Row {
	r := bnb.Row{Name: name, LHS: lhs, RHS: rhs}
	for j, c := range coefs {
		if c != 0 {
			r.Coefs = append(r.Coefs, bnb.Coef{Var: j, Val: c})
		}
	}
	return r
}
