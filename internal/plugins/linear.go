package plugins

import (
	"math"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// Linear owns the rows of the problem. Rows that are not lazy form the
// initial relaxation; lazy rows are separated when violated.
type Linear struct {
	// MinImprove is the relative improvement a propagated bound of a
	// continuous variable needs to be applied.
	MinImprove float64
}

var _ bnb.ConstraintHandler = &Linear{}

func NewLinear() *Linear {
	return &Linear{MinImprove: 1e-3}
}

func (h *Linear) Name() string  { return "linear" }
func (h *Linear) Priority() int { return 0 }

func (h *Linear) InitLP(env bnb.Env) error {
	for i := 0; i < env.NRows(); i++ {
		if row := env.Row(i); !row.Lazy {
			env.AddCut(row, true)
		}
	}
	return nil
}

// activity holds the minimal and maximal activity of a row over the local
// domains. Infinite contributions are counted instead of summed.
type activity struct {
	min, max         float64
	ninfMin, ninfMax int
}

// contribution returns the minimal and maximal value of a*x over the
// local domain of x, flagging infinite ones.
func contribution(env bnb.Env, a float64, j int) (lo float64, loInf bool, hi float64, hiInf bool) {
	tol := env.Tolerances()
	lb, ub := env.LB(j), env.UB(j)
	if a > 0 {
		return a * lb, tol.IsInfinity(-lb), a * ub, tol.IsInfinity(ub)
	}
	return a * ub, tol.IsInfinity(ub), a * lb, tol.IsInfinity(-lb)
}

func rowActivity(env bnb.Env, row bnb.Row) activity {
	var act activity
	for _, c := range row.Coefs {
		if c.Val == 0 {
			continue
		}
		lo, loInf, hi, hiInf := contribution(env, c.Val, c.Var)
		if loInf {
			act.ninfMin++
		} else {
			act.min += lo
		}
		if hiInf {
			act.ninfMax++
		} else {
			act.max += hi
		}
	}
	return act
}

// residual returns the activity bound without the contribution of a
// single coefficient, or ok=false if it is infinite.
func residual(sum float64, ninf int, contrib float64, contribInf bool) (float64, bool) {
	switch {
	case ninf == 0:
		return sum - contrib, true
	case ninf == 1 && contribInf:
		return sum, true
	}
	return 0, false
}

// Propagate tightens bounds from the minimal and maximal row activities.
func (h *Linear) Propagate(env bnb.Env, _ int, _, onlyDelayed bool) (bnb.Result, error) {
	if onlyDelayed {
		return bnb.DidNotRun, nil
	}
	tol := env.Tolerances()
	reduced := false
	for i := 0; i < env.NRows(); i++ {
		row := env.Row(i)
		act := rowActivity(env, row)
		hasRHS, hasLHS := !tol.IsInfinity(row.RHS), !tol.IsInfinity(-row.LHS)
		if (hasRHS && act.ninfMin == 0 && act.min > row.RHS+tol.FeasTol) ||
			(hasLHS && act.ninfMax == 0 && act.max < row.LHS-tol.FeasTol) {
			return bnb.Cutoff, nil
		}
		for _, c := range row.Coefs {
			if c.Val == 0 {
				continue
			}
			lo, loInf, hi, hiInf := contribution(env, c.Val, c.Var)
			if hasRHS {
				if rest, ok := residual(act.min, act.ninfMin, lo, loInf); ok {
					bound := (row.RHS - rest) / c.Val
					cutoff, tightened := h.tighten(env, c.Var, bound, c.Val < 0)
					if cutoff {
						return bnb.Cutoff, nil
					}
					reduced = reduced || tightened
				}
			}
			if hasLHS {
				if rest, ok := residual(act.max, act.ninfMax, hi, hiInf); ok {
					bound := (row.LHS - rest) / c.Val
					cutoff, tightened := h.tighten(env, c.Var, bound, c.Val > 0)
					if cutoff {
						return bnb.Cutoff, nil
					}
					reduced = reduced || tightened
				}
			}
		}
	}
	if reduced {
		return bnb.ReducedDom, nil
	}
	return bnb.DidNotFind, nil
}

// tighten applies a propagated lower (lower=true) or upper bound.
// Bounds of continuous variables need a minimal relative improvement.
func (h *Linear) tighten(env bnb.Env, j int, bound float64, lower bool) (cutoff, tightened bool) {
	if math.IsNaN(bound) || math.IsInf(bound, 0) {
		return false, false
	}
	tol := env.Tolerances()
	if !env.Var(j).Type.IsIntegral() {
		old := env.UB(j)
		if lower {
			old = env.LB(j)
		}
		if !tol.IsInfinity(math.Abs(old)) && math.Abs(bound-old) <= h.MinImprove*math.Max(1, math.Abs(old)) {
			return false, false
		}
	}
	if lower {
		return env.TightenLB(j, bound-feasSlack(env, j))
	}
	return env.TightenUB(j, bound+feasSlack(env, j))
}

// feasSlack keeps continuous bounds from cutting into the feasibility
// tolerance of the row.
func feasSlack(env bnb.Env, j int) float64 {
	if env.Var(j).Type.IsIntegral() {
		return 0
	}
	return env.Tolerances().FeasTol
}

func violated(row bnb.Row, x func(int) float64, tol bnb.Tolerances) bool {
	a := row.Activity(x)
	scale := math.Max(1, math.Abs(a))
	return a > row.RHS+tol.FeasTol*scale || a < row.LHS-tol.FeasTol*scale
}

// Separate adds lazy rows violated by the LP solution.
func (h *Linear) Separate(env bnb.Env, _ int, onlyDelayed bool) (bnb.Result, error) {
	if onlyDelayed || !env.HasLP() {
		return bnb.DidNotRun, nil
	}
	res := bnb.DidNotFind
	for i := 0; i < env.NRows(); i++ {
		row := env.Row(i)
		if row.Lazy && violated(row, env.LPValue, env.Tolerances()) {
			env.AddCut(row, false)
			res = bnb.Separated
		}
	}
	return res, nil
}

func (h *Linear) EnforceLP(env bnb.Env, _ bool) (bnb.Result, error) {
	res := bnb.Feasible
	separated := false
	for i := 0; i < env.NRows(); i++ {
		row := env.Row(i)
		if !violated(row, env.LPValue, env.Tolerances()) {
			continue
		}
		if !row.Lazy {
			// in the relaxation already, the violation is numerical
			res = bnb.Infeasible
			continue
		}
		env.AddCut(row, true)
		separated = true
	}
	if separated {
		return bnb.Separated, nil
	}
	return res, nil
}

// EnforcePseudo reports a violated row as infeasible, or asks for the LP
// when the row has continuous variables that branching cannot fix.
func (h *Linear) EnforcePseudo(env bnb.Env, _, objInfeasible, forced bool) (bnb.Result, error) {
	if objInfeasible {
		return bnb.DidNotRun, nil
	}
	res := bnb.Feasible
	for i := 0; i < env.NRows(); i++ {
		row := env.Row(i)
		if !violated(row, env.PseudoValue, env.Tolerances()) {
			continue
		}
		res = bnb.Infeasible
		if forced {
			continue
		}
		for _, c := range row.Coefs {
			if !env.Var(c.Var).Type.IsIntegral() && env.LB(c.Var) < env.UB(c.Var) {
				return bnb.SolveLP, nil
			}
		}
	}
	return res, nil
}

func (h *Linear) Check(env bnb.Env, sol []float64) (bool, error) {
	x := func(j int) float64 { return sol[j] }
	for i := 0; i < env.NRows(); i++ {
		if violated(env.Row(i), x, env.Tolerances()) {
			return false, nil
		}
	}
	return true, nil
}
