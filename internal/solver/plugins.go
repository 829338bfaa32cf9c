package solver

import (
	"math"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// The wrappers carry per plugin state the engine needs between calls.

type propagator struct {
	bnb.Propagator
	wasDelayed bool
	calls      int64
	cutoffs    int64
	reductions int64
}

func (p *propagator) exec(env bnb.Env, depth int, onlyDelayed bool) (bnb.Result, error) {
	if onlyDelayed && !p.wasDelayed {
		return bnb.DidNotRun, nil
	}
	res, err := p.Propagate(env, depth, onlyDelayed)
	if err != nil {
		return res, err
	}
	switch res {
	case bnb.DidNotRun, bnb.DidNotFind, bnb.Delayed:
	case bnb.ReducedDom:
		p.reductions++
	case bnb.Cutoff:
		p.cutoffs++
	default:
		return res, bnb.InvalidResultError{Plugin: p.Name(), Call: "propagation", Result: res}
	}
	p.wasDelayed = res == bnb.Delayed
	if res != bnb.DidNotRun {
		p.calls++
	}
	return res, nil
}

type conshdlr struct {
	bnb.ConstraintHandler
	propWasDelayed bool
	sepaWasDelayed bool
}

func (c *conshdlr) propagate(env bnb.Env, depth int, full, onlyDelayed bool) (bnb.Result, error) {
	if onlyDelayed && !c.propWasDelayed {
		return bnb.DidNotRun, nil
	}
	res, err := c.Propagate(env, depth, full, onlyDelayed)
	if err != nil {
		return res, err
	}
	switch res {
	case bnb.DidNotRun, bnb.DidNotFind, bnb.Delayed, bnb.ReducedDom, bnb.Cutoff:
	default:
		return res, bnb.InvalidResultError{Plugin: c.Name(), Call: "propagation", Result: res}
	}
	c.propWasDelayed = res == bnb.Delayed
	return res, nil
}

func (c *conshdlr) separate(env bnb.Env, depth int, onlyDelayed bool) (bnb.Result, error) {
	if onlyDelayed && !c.sepaWasDelayed {
		return bnb.DidNotRun, nil
	}
	res, err := c.Separate(env, depth, onlyDelayed)
	if err != nil {
		return res, err
	}
	switch res {
	case bnb.DidNotRun, bnb.DidNotFind, bnb.Delayed, bnb.Separated, bnb.ReducedDom, bnb.ConsAdded, bnb.Cutoff:
	default:
		return res, bnb.InvalidResultError{Plugin: c.Name(), Call: "separation", Result: res}
	}
	c.sepaWasDelayed = res == bnb.Delayed
	return res, nil
}

type separator struct {
	bnb.Separator
	wasDelayed bool
	calls      int64
	cuts       int64
}

func (p *separator) exec(env bnb.Env, depth int, boundDist float64, onlyDelayed bool) (bnb.Result, error) {
	if onlyDelayed && !p.wasDelayed {
		return bnb.DidNotRun, nil
	}
	res, err := p.Separate(env, depth, boundDist, onlyDelayed)
	if err != nil {
		return res, err
	}
	switch res {
	case bnb.DidNotRun, bnb.DidNotFind, bnb.Delayed, bnb.ReducedDom, bnb.ConsAdded, bnb.Cutoff:
	case bnb.Separated:
		p.cuts++
	default:
		return res, bnb.InvalidResultError{Plugin: p.Name(), Call: "separation", Result: res}
	}
	p.wasDelayed = res == bnb.Delayed
	if res != bnb.DidNotRun {
		p.calls++
	}
	return res, nil
}

type relaxator struct {
	bnb.Relaxator
	// solvedAt is the node count at which the relaxator last ran, -1 if
	// it has to run again.
	solvedAt int64
	calls    int64
}

func (r *relaxator) isSolved(node int64) bool { return r.solvedAt == node }
func (r *relaxator) markUnsolved()            { r.solvedAt = -1 }

// exec runs the relaxator unless it already ran on the node. A suspended
// relaxator stays unsolved.
func (r *relaxator) exec(env bnb.Env, depth int, node int64) (float64, bnb.Result, error) {
	if r.isSolved(node) {
		return math.Inf(-1), bnb.DidNotRun, nil
	}
	r.solvedAt = node
	lb, res, err := r.Relax(env, depth)
	if err != nil {
		return lb, res, err
	}
	switch res {
	case bnb.DidNotRun, bnb.Success, bnb.Separated, bnb.ReducedDom, bnb.ConsAdded, bnb.Cutoff:
	case bnb.Suspended:
		r.markUnsolved()
	default:
		return lb, res, bnb.InvalidResultError{Plugin: r.Name(), Call: "relaxation", Result: res}
	}
	if res != bnb.DidNotRun {
		r.calls++
	}
	return lb, res, nil
}

type heuristic struct {
	bnb.Heuristic
	wasDelayed bool
	calls      int64
	found      int64
}

func (h *heuristic) exec(env bnb.Env, timing bnb.HeurTiming) (bnb.Result, error) {
	if h.Timing()&timing == 0 && !h.wasDelayed {
		return bnb.DidNotRun, nil
	}
	res, err := h.Exec(env, timing)
	if err != nil {
		return res, err
	}
	switch res {
	case bnb.DidNotRun, bnb.DidNotFind, bnb.Delayed:
	case bnb.FoundSol:
		h.found++
	default:
		return res, bnb.InvalidResultError{Plugin: h.Name(), Call: "execution", Result: res}
	}
	h.wasDelayed = res == bnb.Delayed
	if res != bnb.DidNotRun {
		h.calls++
	}
	return res, nil
}
