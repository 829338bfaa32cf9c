package solver

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/operator-framework/bnb/internal/store"
	"github.com/operator-framework/bnb/internal/tree"
	"github.com/operator-framework/bnb/pkg/bnb"
)

// env is the plugin view of the focus node.
type env struct {
	s *Solver
}

var _ bnb.Env = env{}

func (e env) NVars() int                 { return len(e.s.prob.Vars) }
func (e env) Var(j int) bnb.Var          { return e.s.prob.Vars[j] }
func (e env) NRows() int                 { return len(e.s.prob.Rows) }
func (e env) Row(i int) bnb.Row          { return e.s.prob.Rows[i] }
func (e env) Depth() int                 { return e.s.focusDepth() }
func (e env) LB(j int) float64           { return e.s.lb[j] }
func (e env) UB(j int) float64           { return e.s.ub[j] }
func (e env) HasLP() bool                { return e.s.focusHasLP() }
func (e env) LPStatus() bnb.SolStat      { return e.s.lp.Status() }
func (e env) LPValue(j int) float64      { return e.s.lp.Value(j) }
func (e env) LPObjective() float64       { return e.s.lp.ObjVal() }
func (e env) PseudoValue(j int) float64  { return e.s.pseudoValue(j) }
func (e env) PseudoObjective() float64   { return e.s.pseudoObjective() }
func (e env) CutoffBound() float64       { return e.s.primal.cutoffBound() }
func (e env) NCuts() int                 { return e.s.sepastore.Len() }
func (e env) NChildren() int             { return e.s.tree.NChildren() }
func (e env) Tolerances() bnb.Tolerances { return e.s.tol }

func (e env) TightenLB(j int, v float64) (bool, bool) {
	return e.s.tightenBound(j, v, false, false)
}

func (e env) TightenUB(j int, v float64) (bool, bool) {
	return e.s.tightenBound(j, v, true, false)
}

func (e env) NodeLowerBound() float64 {
	if f := e.s.tree.Focus(); f != nil {
		return f.LowerBound
	}
	return math.Inf(-1)
}

// AddCut stores a cut with its efficacy at the current solution.
func (e env) AddCut(cut bnb.Row, forced bool) {
	x := e.s.solutionValue()
	eff := cut.Violation(x)
	if n := cut.Norm(); n > 0 {
		eff /= n
	}
	e.s.sepastore.Add(cut, eff, forced)
}

func (e env) AddPoolCut(cut bnb.Row) {
	e.s.cutpool.Add(cut)
}

func (e env) AddVar(v bnb.Var, col []bnb.ColEntry) {
	e.s.pricestore.AddVar(v, col)
}

func (e env) CreateChild(estimate float64) bnb.Child {
	return child{s: e.s, n: e.s.tree.CreateChild(estimate)}
}

func (e env) Branch(j int, val float64) error {
	return e.s.branchVar(j, val)
}

func (e env) AddExternCand(j int, val, score float64) {
	e.s.externCands = append(e.s.externCands, bnb.Candidate{Var: j, Val: val, Frac: e.s.tol.Frac(val), Score: score})
}

func (e env) TrySol(sol []float64) (bool, error) {
	return e.s.primal.trySol(sol)
}

func (e env) Logger() *logrus.Entry {
	if f := e.s.tree.Focus(); f != nil {
		return e.s.log.WithFields(logrus.Fields{"node": f.ID, "depth": f.Depth})
	}
	return e.s.log
}

// child is a handle on a node created by branching.
type child struct {
	s *Solver
	n *tree.Node
}

func (c child) chg(j int, v float64, upper bool) {
	lpval := math.NaN()
	if c.s.focusHasLP() && c.s.lp.IsSolved() && c.s.lp.HasCol(j) {
		lpval = c.s.lp.Value(j)
	}
	if upper {
		_, v = c.s.roundBounds(j, math.Inf(-1), v)
	} else {
		v, _ = c.s.roundBounds(j, v, math.Inf(1))
	}
	c.n.DomChgs = append(c.n.DomChgs, tree.BoundChg{Var: j, Value: v, Upper: upper, Branching: true, LPSolVal: lpval})
}

func (c child) ChgLB(j int, v float64) { c.chg(j, v, false) }
func (c child) ChgUB(j int, v float64) { c.chg(j, v, true) }

// solutionValue returns the values of the current LP solution if there is
// one, of the pseudo solution otherwise.
func (s *Solver) solutionValue() func(int) float64 {
	if s.focusHasLP() && s.lp.IsSolved() {
		return s.lp.Value
	}
	return s.pseudoValue
}

// lpRow records which node added a relaxation row. Rows of the initial
// LP have no owner and carry the identity used to add them only once.
type lpRow struct {
	owner *tree.Node
	id    string
}

func initialRowID(row bnb.Row) string {
	if row.Name != "" {
		return "name:" + row.Name
	}
	return store.RowKey(row)
}

// addLPRow adds a row owned by the focus node, or an initial row.
func (s *Solver) addLPRow(row bnb.Row) {
	if s.initialLP {
		id := initialRowID(row)
		if s.initialRows[id] {
			return
		}
		s.initialRows[id] = true
		if i, ok := s.rowIndex[row.Name]; ok {
			s.probRowLP[i] = s.lp.NRows()
		}
		s.lp.AddRow(row)
		s.lpRows = append(s.lpRows, lpRow{id: id})
		return
	}
	s.lp.AddRow(row)
	s.lpRows = append(s.lpRows, lpRow{owner: s.tree.Focus()})
	s.stats.CutsApplied++
}

// cutTarget applies separation store content to the focus node.
type cutTarget struct {
	s *Solver
}

var _ store.Target = cutTarget{}

func (t cutTarget) AddRow(row bnb.Row) { t.s.addLPRow(row) }

func (t cutTarget) TightenLB(j int, v float64) (bool, bool) {
	return t.s.tightenBound(j, v, false, false)
}

func (t cutTarget) TightenUB(j int, v float64) (bool, bool) {
	return t.s.tightenBound(j, v, true, false)
}

// priceTarget applies pricing store content to the problem and the LP.
type priceTarget struct {
	s *Solver
}

var _ store.PriceTarget = priceTarget{}

func (t priceTarget) AddProblemVar(v bnb.Var, col []bnb.ColEntry) (int, error) {
	s := t.s
	j, err := s.prob.AddVar(v, col)
	if err != nil {
		return -1, err
	}
	lb, ub := s.roundBounds(j, v.LB, v.UB)
	s.glb = append(s.glb, lb)
	s.gub = append(s.gub, ub)
	s.lb = append(s.lb, lb)
	s.ub = append(s.ub, ub)
	s.pscost.grow(j + 1)
	s.stats.VarsPriced++
	for _, e := range col {
		if i, ok := s.probRowLP[e.Row]; ok {
			s.lp.AddCoef(i, bnb.Coef{Var: j, Val: e.Val})
		}
	}
	return j, nil
}

func (t priceTarget) AddColumn(j int, lb, ub float64) {
	t.s.lp.AddCol(j, t.s.prob.Vars[j].Obj, lb, ub)
}

func (t priceTarget) ChgColumnBounds(j int, lb, ub float64) {
	t.s.lp.ChgBounds(j, lb, ub)
}
