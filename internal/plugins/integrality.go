package plugins

import (
	"math"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// Integrality requires integral variables to take integral values. It
// runs after every other handler and leaves the resolution to branching.
type Integrality struct{}

var _ bnb.ConstraintHandler = Integrality{}

func (Integrality) Name() string           { return "integrality" }
func (Integrality) Priority() int          { return -1 }
func (Integrality) InitLP(_ bnb.Env) error { return nil }

func (Integrality) Propagate(_ bnb.Env, _ int, _, _ bool) (bnb.Result, error) {
	return bnb.DidNotRun, nil
}

func (Integrality) Separate(_ bnb.Env, _ int, _ bool) (bnb.Result, error) {
	return bnb.DidNotRun, nil
}

func (Integrality) EnforceLP(env bnb.Env, _ bool) (bnb.Result, error) {
	if fractional(env, env.LPValue) {
		return bnb.Infeasible, nil
	}
	return bnb.Feasible, nil
}

// EnforcePseudo accepts the pseudo solution, whose values sit on the
// rounded bounds of the variables.
func (Integrality) EnforcePseudo(env bnb.Env, _, objInfeasible, _ bool) (bnb.Result, error) {
	if objInfeasible {
		return bnb.DidNotRun, nil
	}
	if fractional(env, env.PseudoValue) {
		return bnb.Infeasible, nil
	}
	return bnb.Feasible, nil
}

func (Integrality) Check(env bnb.Env, sol []float64) (bool, error) {
	return !fractional(env, func(j int) float64 { return sol[j] }), nil
}

func fractional(env bnb.Env, x func(int) float64) bool {
	tol := env.Tolerances()
	for j := 0; j < env.NVars(); j++ {
		if v := x(j); env.Var(j).Type.IsIntegral() && !tol.IsInfinity(math.Abs(v)) && !tol.IsFeasIntegral(v) {
			return true
		}
	}
	return false
}
