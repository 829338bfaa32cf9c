package solver

import (
	"fmt"
	"math"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// primal keeps the incumbent.
type primal struct {
	s       *Solver
	best    []float64
	bestObj float64
}

func newPrimal(s *Solver) *primal {
	return &primal{s: s, bestObj: math.Inf(1)}
}

// upperBound is the smaller of the incumbent value and the objective
// limit.
func (p *primal) upperBound() float64 {
	return math.Min(p.bestObj, p.s.objLimit)
}

func (p *primal) cutoffBound() float64 {
	return p.upperBound()
}

func (s *Solver) upperBound() float64 {
	if s.primal == nil {
		return s.objLimit
	}
	return s.primal.upperBound()
}

// trySol checks a solution against the global bounds, integrality and
// every constraint handler. It returns whether the solution became the
// new incumbent.
func (p *primal) trySol(sol []float64) (bool, error) {
	s := p.s
	n := len(s.prob.Vars)
	if len(sol) > n {
		return false, fmt.Errorf("solution has %d values for %d variables", len(sol), n)
	}
	x := make([]float64, n)
	copy(x, sol)
	for j, v := range s.prob.Vars {
		if x[j] < s.glb[j]-s.tol.FeasTol || x[j] > s.gub[j]+s.tol.FeasTol {
			return false, nil
		}
		if v.Type.IsIntegral() {
			if !s.tol.IsFeasIntegral(x[j]) {
				return false, nil
			}
			x[j] = math.Round(x[j])
		}
	}
	for _, h := range s.conshdlrs {
		ok, err := h.Check(env{s}, x)
		if err != nil {
			return false, fmt.Errorf("error checking solution in <%s>: %w", h.Name(), err)
		}
		if !ok {
			return false, nil
		}
	}
	s.stats.SolsFound++
	obj := s.prob.Objective(x)
	if !s.tol.IsLT(obj, p.upperBound()) {
		return false, nil
	}
	p.best = x
	p.bestObj = obj
	s.stats.BestSolsFound++
	s.stats.BestSolNode = s.stats.Nodes
	s.log.WithField("objective", obj).Debug("new incumbent")
	ev := bnb.Event{Type: bnb.BestSolutionFound, Objective: obj}
	if f := s.tree.Focus(); f != nil {
		ev.Node, ev.Depth, ev.LowerBound = f.ID, f.Depth, f.LowerBound
	}
	s.tracer.Trace(ev)

	cutoff := p.cutoffBound()
	s.lp.SetCutoffBound(cutoff)
	if pruned := s.tree.Prune(cutoff); pruned > 0 {
		s.log.Debugf("pruned %d open nodes", pruned)
	}
	return true, nil
}

// currentSolution returns the LP solution if the focus node has one,
// the pseudo solution otherwise.
func (s *Solver) currentSolution() []float64 {
	x := make([]float64, len(s.prob.Vars))
	for j := range x {
		if s.focusHasLP() && s.lp.IsSolved() {
			x[j] = s.lp.Value(j)
		} else {
			x[j] = s.pseudoValue(j)
		}
	}
	return x
}
