package solver

import (
	"math"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// solveNodeRelax runs the relaxators whose priority sign matches the
// phase: non-negative before the LP, negative after it.
func (s *Solver) solveNodeRelax(depth int, beforeLP bool, st *nodeState) error {
	e := env{s}
	for _, r := range s.relaxs {
		if st.cutoff {
			break
		}
		if beforeLP != (r.Priority() >= 0) {
			continue
		}
		lb, res, err := r.exec(e, depth, s.stats.Nodes)
		if err != nil {
			return err
		}
		switch res {
		case bnb.Cutoff:
			st.cutoff = true
			s.log.Debugf("relaxator <%s> detected cutoff", r.Name())
		case bnb.ConsAdded, bnb.ReducedDom:
			st.solveLPAgain = true
			st.propagateAgain = true
		case bnb.Separated:
			st.solveLPAgain = true
		case bnb.Suspended:
			st.solveRelaxAgain = true
		}
		if res != bnb.Cutoff && res != bnb.DidNotRun && res != bnb.Suspended && !math.IsNaN(lb) {
			s.updateLowerBound(lb)
		}
	}
	return nil
}

// markRelaxsUnsolved makes every relaxator run again at the focus node.
func (s *Solver) markRelaxsUnsolved() {
	for _, r := range s.relaxs {
		r.markUnsolved()
	}
}

// relaxsSolved reports whether every relaxator ran at the focus node.
func (s *Solver) relaxsSolved() bool {
	for _, r := range s.relaxs {
		if !r.isSolved(s.stats.Nodes) {
			return false
		}
	}
	return true
}
