package conflict

import (
	"github.com/operator-framework/bnb/pkg/bnb"
)

// Propagator fixes binary variables implied by the recorded conflict
// clauses under the current local fixings.
type Propagator struct {
	a *Analyzer
}

func NewPropagator(a *Analyzer) *Propagator {
	return &Propagator{a: a}
}

func (p *Propagator) Name() string  { return "conflict" }
func (p *Propagator) Priority() int { return -100 }

func (p *Propagator) Propagate(env bnb.Env, _ int, onlyDelayed bool) (bnb.Result, error) {
	if onlyDelayed || len(p.a.known) == 0 {
		return bnb.DidNotRun, nil
	}
	var fixings []Fixing
	for j := range p.a.known {
		if j >= env.NVars() {
			continue
		}
		lb, ub := env.LB(j), env.UB(j)
		if lb != ub {
			continue
		}
		fixings = append(fixings, Fixing{Var: j, Value: lb > 0.5})
	}
	implied, conflict := p.a.Implications(fixings)
	if conflict {
		return bnb.Cutoff, nil
	}
	reduced := false
	for _, f := range implied {
		if f.Var >= env.NVars() {
			continue
		}
		var infeasible, tightened bool
		if f.Value {
			infeasible, tightened = env.TightenLB(f.Var, 1)
		} else {
			infeasible, tightened = env.TightenUB(f.Var, 0)
		}
		if infeasible {
			return bnb.Cutoff, nil
		}
		reduced = reduced || tightened
	}
	if reduced {
		return bnb.ReducedDom, nil
	}
	return bnb.DidNotFind, nil
}
