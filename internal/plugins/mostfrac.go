package plugins

import (
	"math"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// MostFractional branches on the LP candidate whose value is farthest from
// an integer. On the pseudo solution it halves the domain of the unfixed
// variable with the largest objective coefficient.
type MostFractional struct{}

var _ bnb.BranchRule = MostFractional{}

func (MostFractional) Name() string  { return "mostfrac" }
func (MostFractional) Priority() int { return 0 }

func (MostFractional) BranchLP(env bnb.Env, cands []bnb.Candidate, _ bool) (bnb.Result, error) {
	if len(cands) == 0 {
		return bnb.DidNotRun, nil
	}
	best, bestFrac := cands[0], -1.0
	for _, c := range cands {
		if f := math.Min(c.Frac, 1-c.Frac); f > bestFrac {
			best, bestFrac = c, f
		}
	}
	if err := env.Branch(best.Var, best.Val); err != nil {
		return bnb.DidNotRun, err
	}
	return bnb.Branched, nil
}

func (MostFractional) BranchExtern(env bnb.Env, cands []bnb.Candidate, _ bool) (bnb.Result, error) {
	if len(cands) == 0 {
		return bnb.DidNotRun, nil
	}
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	if err := env.Branch(best.Var, best.Val); err != nil {
		return bnb.DidNotRun, err
	}
	return bnb.Branched, nil
}

func (MostFractional) BranchPseudo(env bnb.Env, cands []bnb.Candidate, _ bool) (bnb.Result, error) {
	if len(cands) == 0 {
		return bnb.DidNotRun, nil
	}
	best, bestObj := -1, -1.0
	for i, c := range cands {
		if o := math.Abs(env.Var(c.Var).Obj); o > bestObj {
			best, bestObj = i, o
		}
	}
	j := cands[best].Var
	lb, ub := env.LB(j), env.UB(j)
	tol := env.Tolerances()
	if tol.IsInfinity(-lb) || tol.IsInfinity(ub) {
		// no midpoint, leave it to the default split at the candidate value
		return bnb.DidNotRun, nil
	}
	mid := math.Floor((lb + ub) / 2)
	est := env.NodeLowerBound()
	env.CreateChild(est).ChgUB(j, mid)
	env.CreateChild(est).ChgLB(j, mid+1)
	return bnb.Branched, nil
}
