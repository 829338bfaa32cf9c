package solver

import (
	"fmt"
	"math"

	"github.com/operator-framework/bnb/internal/tree"
	"github.com/operator-framework/bnb/pkg/bnb"
)

type branchCall func(b bnb.BranchRule, env bnb.Env, cands []bnb.Candidate, allowAddCons bool) (bnb.Result, error)

// branch splits the focus node on the LP solution if it has fractional
// candidates, else on the external candidates, else on the pseudo
// solution. nlpcands is the number of LP candidates that were offered.
func (s *Solver) branch() (res bnb.Result, nlpcands int, err error) {
	var lpCands []bnb.Candidate
	if s.focusHasLP() {
		lpCands = s.lpCands()
	}
	if len(lpCands) > 0 {
		s.log.Debugf("branching on LP solution with %d fractional variables", len(lpCands))
		res, err = s.execBranchRules("LP branching", lpCands, false, bnb.BranchRule.BranchLP)
		return res, len(lpCands), err
	}

	res = bnb.DidNotRun
	if len(s.externCands) > 0 {
		s.log.Debugf("branching on %d external candidates", len(s.externCands))
		res, err = s.execBranchRules("external branching", s.externCands, true, bnb.BranchRule.BranchExtern)
		if err != nil {
			return res, 0, err
		}
	}
	if res == bnb.DidNotRun {
		res, err = s.branchPseudo(true)
	}
	return res, 0, err
}

// branchPseudo branches on the unfixed integral variables. It does not
// run if every integral variable is fixed.
func (s *Solver) branchPseudo(allowAddCons bool) (bnb.Result, error) {
	cands := s.pseudoCands()
	if len(cands) == 0 {
		return bnb.DidNotRun, nil
	}
	s.log.Debugf("branching on pseudo solution with %d unfixed integral variables", len(cands))
	return s.execBranchRules("pseudo branching", cands, allowAddCons, bnb.BranchRule.BranchPseudo)
}

// execBranchRules calls the branching rules in priority order until one
// of them acts on the candidates. If none does, the candidate with the
// highest score is split by branchVar.
func (s *Solver) execBranchRules(call string, cands []bnb.Candidate, allowAddCons bool, run branchCall) (bnb.Result, error) {
	e := env{s}
	for _, b := range s.branchers {
		res, err := run(b, e, cands, allowAddCons)
		if err != nil {
			return res, fmt.Errorf("error in %s of <%s>: %w", call, b.Name(), err)
		}
		invalid := bnb.InvalidResultError{Plugin: b.Name(), Call: call, Result: res}
		switch res {
		case bnb.DidNotRun, bnb.DidNotFind:
			continue
		case bnb.Cutoff, bnb.ReducedDom, bnb.Separated:
		case bnb.ConsAdded:
			if !allowAddCons {
				return res, invalid
			}
		case bnb.Branched:
			if s.tree.NChildren() == 0 {
				return res, invalid
			}
		default:
			return res, invalid
		}
		return res, nil
	}

	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	if err := s.branchVar(best.Var, best.Val); err != nil {
		return bnb.DidNotRun, err
	}
	return bnb.Branched, nil
}

// branchVar splits the focus node on variable j at value val. A
// fractional value gives the children x <= floor(val) and x >= ceil(val).
// An integral value gives x <= val-1, x == val and x >= val+1, dropping
// the children outside the domain. Continuous variables are split at val.
func (s *Solver) branchVar(j int, val float64) error {
	if j < 0 || j >= len(s.prob.Vars) {
		return fmt.Errorf("cannot branch on unknown variable %d", j)
	}
	lb, ub := s.lb[j], s.ub[j]
	v := s.prob.Vars[j]
	if s.tol.IsEQ(lb, ub) {
		return fmt.Errorf("cannot branch on fixed variable <%s>", v.Name)
	}
	if s.tol.IsLT(val, lb) || s.tol.IsGT(val, ub) {
		return fmt.Errorf("branching value %g of <%s> is outside of [%g,%g]", val, v.Name, lb, ub)
	}
	focus := s.tree.Focus()

	if !v.Type.IsIntegral() {
		if !s.tol.IsLT(lb, val) || !s.tol.IsLT(val, ub) {
			return fmt.Errorf("cannot split <%s> at bound %g", v.Name, val)
		}
		s.newChild(focus.Estimate).ChgUB(j, val)
		s.newChild(focus.Estimate).ChgLB(j, val)
		return nil
	}

	if f := s.tol.Frac(val); f > 0 {
		down, up := s.pscost.value(j, -f), s.pscost.value(j, 1-f)
		base := focus.Estimate - math.Min(down, up)
		s.newChild(base + down).ChgUB(j, math.Floor(val))
		s.newChild(base + up).ChgLB(j, math.Ceil(val))
		return nil
	}

	x := math.Round(val)
	if s.tol.IsLT(lb, x) {
		s.newChild(focus.Estimate).ChgUB(j, x-1)
	}
	c := s.newChild(focus.Estimate)
	c.ChgLB(j, x)
	c.ChgUB(j, x)
	if s.tol.IsGT(ub, x) {
		s.newChild(focus.Estimate).ChgLB(j, x+1)
	}
	return nil
}

func (s *Solver) newChild(estimate float64) child {
	return child{s: s, n: s.tree.CreateChild(estimate)}
}

// passThroughChild creates a single child that repeats the focus node, so
// that a subtree can be left without solving its relaxation again.
func (s *Solver) passThroughChild() *tree.Node {
	return s.tree.CreateChild(s.tree.Focus().Estimate)
}
