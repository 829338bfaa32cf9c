package solver

import (
	"math"

	"github.com/operator-framework/bnb/internal/conflict"
	"github.com/operator-framework/bnb/pkg/bnb"
)

func (s *Solver) focusHasLP() bool { return s.focusLP }

// updateLowerBound raises the focus node bound to v.
func (s *Solver) updateLowerBound(v float64) {
	if f := s.tree.Focus(); f != nil {
		f.UpdateLowerBound(v)
	}
}

// updateLowerBoundLP raises the focus node bound to the LP objective if
// the LP is a valid relaxation.
func (s *Solver) updateLowerBoundLP() {
	if !s.lp.IsRelax() {
		return
	}
	switch s.lp.Status() {
	case bnb.Optimal:
		s.updateLowerBound(s.lp.ObjVal())
	case bnb.InfeasibleLP, bnb.ObjLimit:
		// without an exact LP solver the claim cannot be proven
		if !s.set.Exact {
			s.updateLowerBound(math.Inf(1))
		}
	}
}

// applyBounding raises the node bound to the pseudo objective and cuts
// the node off if its bound reaches the cutoff bound. It returns the new
// cutoff flag.
func (s *Solver) applyBounding(cutoff bool) bool {
	if cutoff {
		return true
	}
	focus := s.tree.Focus()
	pseudo := s.pseudoObjective()
	focus.UpdateLowerBound(pseudo)

	cutoffBound := s.primal.cutoffBound()
	var cut bool
	if s.set.Exact {
		cut = focus.LowerBound >= cutoffBound
	} else {
		cut = s.tol.IsGE(focus.LowerBound, cutoffBound)
	}
	if !cut {
		return false
	}
	if !math.IsInf(pseudo, -1) && s.tol.IsGE(pseudo, cutoffBound) {
		s.analyzeConflict(true)
	}
	s.log.Debugf("node %d cut off by bounding (lower=%g, cutoff=%g)", focus.ID, focus.LowerBound, cutoffBound)
	focus.UpdateLowerBound(math.Inf(1))
	return true
}

// pathFixings collects the binary branching decisions leading to the
// focus node. Decisions the global bounds already imply are left out. ok
// is false if a branching on a non-binary variable is on the path.
func (s *Solver) pathFixings() (fixings []conflict.Fixing, ok bool) {
	focus := s.tree.Focus()
	if focus == nil {
		return nil, false
	}
	for _, n := range focus.Path() {
		for _, c := range n.DomChgs {
			if !c.Branching {
				continue
			}
			if s.prob.Vars[c.Var].Type != bnb.Binary {
				return nil, false
			}
			if (c.Upper && c.Value >= s.gub[c.Var]) || (!c.Upper && c.Value <= s.glb[c.Var]) {
				continue
			}
			fixings = append(fixings, conflict.Fixing{Var: c.Var, Value: !c.Upper})
		}
	}
	return fixings, true
}

func (s *Solver) analyzeConflict(pseudo bool) {
	if !s.set.Conflict.Enabled {
		return
	}
	fixings, ok := s.pathFixings()
	if !ok {
		return
	}
	if pseudo {
		s.conflict.AnalyzePseudo(fixings)
	} else {
		s.conflict.AnalyzeLP(fixings)
	}
}
