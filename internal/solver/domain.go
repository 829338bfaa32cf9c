package solver

import (
	"math"

	"github.com/operator-framework/bnb/internal/tree"
	"github.com/operator-framework/bnb/pkg/bnb"
)

// roundBounds rounds the bounds of integral variables inwards.
func (s *Solver) roundBounds(j int, lb, ub float64) (float64, float64) {
	v := s.prob.Vars[j]
	if !v.Type.IsIntegral() {
		return lb, ub
	}
	if !math.IsInf(lb, 0) {
		lb = s.tol.FeasCeil(lb)
	}
	if !math.IsInf(ub, 0) {
		ub = s.tol.FeasFloor(ub)
	}
	if v.Type == bnb.Binary {
		lb, ub = math.Max(lb, 0), math.Min(ub, 1)
	}
	// rounding -0.5 up gives -0
	if lb == 0 {
		lb = 0
	}
	if ub == 0 {
		ub = 0
	}
	return lb, ub
}

func (s *Solver) focusDepth() int {
	if s.tree == nil || s.tree.Focus() == nil {
		return 0
	}
	return s.tree.Focus().Depth
}

// tightenBound changes a local bound of the focus node. Changes at the
// root are global.
func (s *Solver) tightenBound(j int, v float64, upper, branching bool) (infeasible, tightened bool) {
	if j < 0 || j >= len(s.lb) {
		return false, false
	}
	if upper {
		_, v = s.roundBounds(j, math.Inf(-1), v)
		if !s.tol.IsLT(v, s.ub[j]) {
			return false, false
		}
		if s.tol.IsLT(v, s.lb[j]) {
			s.tree.MarkCutoff(s.focusDepth())
			return true, false
		}
		v = math.Max(v, s.lb[j])
		s.ub[j] = v
	} else {
		v, _ = s.roundBounds(j, v, math.Inf(1))
		if !s.tol.IsGT(v, s.lb[j]) {
			return false, false
		}
		if s.tol.IsGT(v, s.ub[j]) {
			s.tree.MarkCutoff(s.focusDepth())
			return true, false
		}
		v = math.Min(v, s.ub[j])
		s.lb[j] = v
	}
	s.stats.BoundChanges++
	s.stats.DomChgCount++

	focus := s.tree.Focus()
	if focus == nil || focus.Depth == 0 {
		wasFixed := s.glb[j] == s.gub[j]
		s.glb[j], s.gub[j] = s.lb[j], s.ub[j]
		if !wasFixed && s.glb[j] == s.gub[j] && s.prob.Vars[j].Type.IsIntegral() {
			s.stats.RootIntFixingsRun++
		}
	}
	if focus != nil {
		focus.AddBoundChg(tree.BoundChg{Var: j, Value: v, Upper: upper, Branching: branching, LPSolVal: math.NaN()})
	}
	s.lp.ChgBounds(j, s.lb[j], s.ub[j])
	return false, true
}

// applyPathBounds resets the local bounds to the global ones and replays
// the bound changes on the path to n. It reports whether the path is
// infeasible under the current global bounds.
func (s *Solver) applyPathBounds(n *tree.Node) (infeasible bool) {
	s.lb = append(s.lb[:0], s.glb...)
	s.ub = append(s.ub[:0], s.gub...)
	for _, m := range n.Path() {
		for _, c := range m.DomChgs {
			if c.Upper {
				s.ub[c.Var] = math.Min(s.ub[c.Var], c.Value)
			} else {
				s.lb[c.Var] = math.Max(s.lb[c.Var], c.Value)
			}
		}
	}
	for j := range s.lb {
		if s.tol.IsGT(s.lb[j], s.ub[j]) {
			infeasible = true
		}
		s.lp.ChgBounds(j, s.lb[j], s.ub[j])
	}
	return infeasible
}

// syncLPRows drops the relaxation rows added at nodes off the path to n.
func (s *Solver) syncLPRows(n *tree.Node) {
	onPath := map[*tree.Node]bool{}
	for _, m := range n.Path() {
		onPath[m] = true
	}
	for i, r := range s.lpRows {
		if r.owner == nil || onPath[r.owner] {
			continue
		}
		s.lp.TruncateRows(i)
		for _, dropped := range s.lpRows[i:] {
			if dropped.owner == nil {
				delete(s.initialRows, dropped.id)
			}
		}
		for k, row := range s.probRowLP {
			if row >= i {
				delete(s.probRowLP, k)
			}
		}
		s.lpRows = s.lpRows[:i]
		return
	}
}

func (s *Solver) pseudoValue(j int) float64 {
	if s.prob.Vars[j].Obj >= 0 {
		return s.lb[j]
	}
	return s.ub[j]
}

// pseudoObjective is the objective of the pseudo solution, -inf if an
// unbounded variable has a nonzero cost.
func (s *Solver) pseudoObjective() float64 {
	var z float64
	for j, v := range s.prob.Vars {
		if v.Obj == 0 {
			continue
		}
		x := s.pseudoValue(j)
		if math.IsInf(x, 0) || s.tol.IsInfinity(math.Abs(x)) {
			return math.Inf(-1)
		}
		z += v.Obj * x
	}
	return z
}

// pseudoCands returns the unfixed integral variables.
func (s *Solver) pseudoCands() []bnb.Candidate {
	var cands []bnb.Candidate
	for j, v := range s.prob.Vars {
		if v.Type.IsIntegral() && s.lb[j] < s.ub[j] {
			cands = append(cands, bnb.Candidate{Var: j, Val: s.pseudoValue(j), Score: math.Abs(v.Obj)})
		}
	}
	return cands
}

// lpCands returns the integral variables with fractional LP values.
func (s *Solver) lpCands() []bnb.Candidate {
	if !s.focusHasLP() || !s.lp.IsSolved() || s.lp.Status() != bnb.Optimal {
		return nil
	}
	var cands []bnb.Candidate
	for j, v := range s.prob.Vars {
		if !v.Type.IsIntegral() || !s.lp.HasCol(j) {
			continue
		}
		x := s.lp.Value(j)
		if f := s.tol.Frac(x); f > 0 {
			cands = append(cands, bnb.Candidate{Var: j, Val: x, Frac: f, Score: math.Min(f, 1-f)})
		}
	}
	return cands
}

func (s *Solver) hasContinuous() bool {
	return s.prob.NContinuous() > 0
}

// allColsInLP reports whether the relaxation holds every column the
// problem has or could get from a pricer.
func (s *Solver) allColsInLP() bool {
	return s.lp.NCols() == len(s.prob.Vars) && len(s.pricers) == 0
}
