package solver

import (
	"fmt"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// enforceOutcome is the state left behind by an enforcement pass. At most
// one of branched, cutoff and the again flags is the reason the pass was
// resolved; infeasible is set whenever any of them is.
type enforceOutcome struct {
	branched        bool
	cutoff          bool
	infeasible      bool
	propagateAgain  bool
	solveLPAgain    bool
	solveRelaxAgain bool
}

func (o enforceOutcome) resolved() bool {
	return o.branched || o.cutoff || o.propagateAgain || o.solveLPAgain
}

// enforceConstraints hands the LP solution, or the pseudo solution if the
// focus node has no LP, to the constraint handlers in order until one of
// them resolves the infeasibility. Cuts found during the pass are forced
// into the relaxation before it returns.
func (s *Solver) enforceConstraints(infeasible, forced bool) (out enforceOutcome, err error) {
	scope, err := s.sepastore.Open("enforcement")
	if err != nil {
		return out, err
	}
	out.infeasible = infeasible

	hasLP := s.focusHasLP()
	objInfeasible := !hasLP && s.tol.IsLT(s.pseudoObjective(), s.tree.Focus().LowerBound)

	s.sepastore.StartForceCuts()
	e := env{s}
	for _, h := range s.conshdlrs {
		if out.resolved() {
			break
		}
		var res bnb.Result
		if hasLP {
			res, err = h.EnforceLP(e, out.infeasible)
		} else {
			res, err = h.EnforcePseudo(e, out.infeasible, objInfeasible, forced)
			if err == nil && s.sepastore.Len() != 0 {
				err = fmt.Errorf("pseudo enforcement of <%s> separated cuts: %w", h.Name(),
					bnb.InvalidResultError{Plugin: h.Name(), Call: "pseudo enforcement", Result: res})
			}
		}
		if err != nil {
			break
		}
		s.log.Debugf("enforcing of <%s> returned %s", h.Name(), res)

		invalid := bnb.InvalidResultError{Plugin: h.Name(), Call: "enforcement", Result: res}
		switch res {
		case bnb.Cutoff:
			out.cutoff = true
			out.infeasible = true
		case bnb.ConsAdded, bnb.ReducedDom:
			out.infeasible = true
			out.propagateAgain = true
			out.solveLPAgain = true
			out.solveRelaxAgain = true
			s.markRelaxsUnsolved()
		case bnb.Separated:
			if s.sepastore.Len() == 0 {
				err = fmt.Errorf("<%s> reported separated cuts but the store is empty: %w", h.Name(), invalid)
				break
			}
			out.infeasible = true
			out.solveLPAgain = true
			out.solveRelaxAgain = true
			s.markRelaxsUnsolved()
		case bnb.Branched:
			if s.tree.NChildren() == 0 {
				err = fmt.Errorf("<%s> reported branching without children: %w", h.Name(), invalid)
				break
			}
			out.infeasible = true
			out.branched = true
		case bnb.SolveLP:
			if hasLP {
				err = invalid
				break
			}
			out.infeasible = true
			out.solveLPAgain = true
			s.focusLP = true
		case bnb.Infeasible:
			out.infeasible = true
		case bnb.Feasible:
		case bnb.DidNotRun:
			if !objInfeasible {
				err = invalid
				break
			}
			out.infeasible = true
		default:
			err = invalid
		}
		if err != nil {
			break
		}

		// a handler may have stored a solution that pushes the LP over
		// the objective limit
		if hasLP && !out.branched && s.lp.Status() == bnb.ObjLimit {
			s.log.Debug("LP exceeded objective limit during enforcement")
			out = enforceOutcome{cutoff: true, infeasible: true}
		}
	}
	s.sepastore.EndForceCuts()

	if err != nil {
		s.sepastore.Clear()
		return out, err
	}
	if out.branched {
		s.sepastore.Clear()
	} else {
		cutoff, propagateAgain, solveLPAgain := s.applyCuts(out.cutoff)
		if cutoff {
			out = enforceOutcome{cutoff: true, infeasible: true}
		} else {
			out.propagateAgain = out.propagateAgain || propagateAgain
			out.solveLPAgain = out.solveLPAgain || solveLPAgain
		}
	}
	return out, scope.Close()
}
