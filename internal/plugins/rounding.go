package plugins

import (
	"math"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// Rounding rounds the integral variables of an optimal LP solution and
// offers the result as a primal solution. It tries nearest rounding first,
// then rounding in the direction that does not worsen the objective.
type Rounding struct{}

var _ bnb.Heuristic = Rounding{}

func (Rounding) Name() string           { return "rounding" }
func (Rounding) Priority() int          { return -1000 }
func (Rounding) Timing() bnb.HeurTiming { return bnb.AfterLPLoop | bnb.AfterLPNode }

func (Rounding) Exec(env bnb.Env, _ bnb.HeurTiming) (bnb.Result, error) {
	if !env.HasLP() || env.LPStatus() != bnb.Optimal {
		return bnb.DidNotRun, nil
	}
	tol := env.Tolerances()
	if !fractional(env, env.LPValue) {
		// the LP solution itself is handled by the node
		return bnb.DidNotRun, nil
	}

	rounders := []func(j int, x float64) float64{
		func(_ int, x float64) float64 { return math.Round(x) },
		func(j int, x float64) float64 {
			if env.Var(j).Obj >= 0 {
				return tol.FeasFloor(x)
			}
			return tol.FeasCeil(x)
		},
	}
	res := bnb.DidNotFind
	for _, round := range rounders {
		sol := make([]float64, env.NVars())
		for j := range sol {
			x := env.LPValue(j)
			if env.Var(j).Type.IsIntegral() {
				x = math.Min(env.UB(j), math.Max(env.LB(j), round(j, x)))
			}
			sol[j] = x
		}
		stored, err := env.TrySol(sol)
		if err != nil {
			return res, err
		}
		if stored {
			res = bnb.FoundSol
		}
	}
	return res, nil
}
