package solver

import (
	"math"

	"github.com/operator-framework/bnb/internal/tree"
	"github.com/operator-framework/bnb/pkg/bnb"
)

// solveCIP processes nodes until the tree is empty, a limit is reached or
// a restart is due. It reports whether the run has to be restarted.
func (s *Solver) solveCIP() (restart bool, err error) {
	restart = s.restartDue(s.finalRestartFac(s.focusDepth()))

	restartConfNum := math.MaxFloat64
	if n := s.set.Conflict.RestartNum; n > 0 {
		restartConfNum = float64(n) * math.Pow(s.set.Conflict.RestartFac, float64(s.stats.ConflictRestarts))
	}

	s.status = bnb.StatusUnknown
	var next *tree.Node
	var plunging bool
	unbounded := false

	for !s.isStopped(true) && !restart {
		var focus *tree.Node
		for {
			if next == nil {
				next, _ = s.tree.SelectNext()
			}
			focus, next = next, nil
			if !s.tree.FocusNode(focus, s.primal.cutoffBound()) {
				break
			}
			// the node was located in a cut off subtree
			s.stats.DelayedCutoffs++
		}
		if focus == nil {
			break
		}

		if s.applyPathBounds(focus) {
			s.tree.MarkCutoff(focus.Depth)
		}
		s.syncLPRows(focus)
		s.stats.Nodes++
		s.stats.RunNodes++
		s.stats.MaxDepth = max(s.stats.MaxDepth, focus.Depth)
		s.trace(bnb.NodeFocused)

		st, err := s.solveNode()
		if err != nil {
			return false, err
		}
		restart = st.restart
		unbounded = unbounded || st.unbounded

		if !restart {
			switch {
			case !st.infeasible:
				if err := s.addCurrentSolution(); err != nil {
					return false, err
				}
				s.trace(bnb.NodeFeasible)
			case !st.unbounded:
				if s.tree.NChildren() == 0 {
					s.stats.Cutoffs++
					if c, ok := focus.LastBranching(); ok {
						s.pscost.incCutoffs(c.Var, !c.Upper)
					}
					s.trace(bnb.NodeInfeasible)
				} else {
					s.trace(bnb.NodeBranched)
				}
			}

			// a node declared feasible whose solution was rejected by the
			// primal store still has to be explored
			if !st.cutoff && !st.unbounded && s.tree.NChildren() == 0 && s.belowCutoff(focus.LowerBound) {
				if err := s.branchOnPseudo(); err != nil {
					return false, err
				}
			}
			if s.tree.NChildren() > 0 {
				s.stats.Branchings++
			}

			next, plunging = s.tree.SelectNext()
			nopen := s.tree.NOpen()
			if !st.afterNodeHeur && (!st.cutoff || nopen > 0) {
				if _, err := s.primalHeuristics(next, plunging, bnb.AfterNode); err != nil {
					return false, err
				}
				// a new incumbent may have pruned the selected node
				if nopen != s.tree.NOpen() || s.isStopped(true) {
					next = nil
				}
			}
		} else if !st.infeasible {
			if _, err := s.primal.trySol(s.currentSolution()); err != nil {
				return false, err
			}
		}

		if n := s.conflict.Stats().Successes; float64(n) >= restartConfNum && len(s.pricers) == 0 {
			s.log.Infof("(run %d, node %d) restarting after %d successful conflict analysis calls", s.stats.Runs, s.stats.Nodes, n)
			restart = true
			s.stats.ConflictRestarts++
		}

		s.log.WithField("node", focus.ID).Debugf("processing of node in depth %d finished, %d children, %d open nodes",
			focus.Depth, s.tree.NChildren(), s.tree.NOpen())
		s.publish()
	}

	// the last node may define the global lower bound while a solution of
	// the same value was found at it
	if f := s.tree.Focus(); f != nil && s.tree.NOpen() == 0 && s.tol.IsGE(f.LowerBound, s.primal.cutoffBound()) {
		s.tree.FocusNode(nil, s.primal.cutoffBound())
	}

	if s.tree.NOpen() == 0 && s.tree.Focus() == nil {
		restart = false
		_, bestObj, found := s.Best()
		switch {
		case unbounded && found:
			s.status = bnb.StatusUnbounded
		case unbounded:
			s.status = bnb.StatusInfOrUnbd
		case !found || s.tol.IsGE(bestObj, s.objLimit):
			s.status = bnb.StatusInfeasible
		default:
			s.status = bnb.StatusOptimal
		}
	}
	if restart {
		s.stats.Restarts++
	}
	return restart, nil
}

// belowCutoff compares a node bound with the cutoff bound, strictly in
// exact mode.
func (s *Solver) belowCutoff(lb float64) bool {
	if s.set.Exact {
		return lb < s.primal.cutoffBound()
	}
	return s.tol.IsLT(lb, s.primal.cutoffBound())
}

// addCurrentSolution offers the solution of a feasible node to the primal
// store.
func (s *Solver) addCurrentSolution() error {
	stored, err := s.primal.trySol(s.currentSolution())
	if err != nil || !stored {
		return err
	}
	if s.focusHasLP() {
		s.stats.LPSolsFound++
	} else {
		s.stats.PseudoSolsFound++
	}
	return nil
}

// branchOnPseudo branches on the pseudo solution, repeating while the
// branching rules only reduce domains.
func (s *Solver) branchOnPseudo() error {
	for {
		if len(s.pseudoCands()) == 0 {
			if s.hasContinuous() {
				s.log.Warnf("(node %d) cannot branch on all-fixed relaxation with continuous variables", s.focusID())
			}
			return nil
		}
		res, err := s.branchPseudo(false)
		if err != nil {
			return err
		}
		if res != bnb.ReducedDom {
			return nil
		}
	}
}
