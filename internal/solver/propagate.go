package solver

import (
	"math"

	"github.com/operator-framework/bnb/pkg/bnb"
)

type propOutcome struct {
	delayed   bool
	propagain bool
	cutoff    bool
}

// propagationRound calls the propagators with non-negative priority, the
// constraint handlers and the propagators with negative priority, in
// that order. A delayed-only round returns at the first reduction.
func (s *Solver) propagationRound(depth int, full, onlyDelayed bool, cutoff bool) (propOutcome, error) {
	out := propOutcome{cutoff: cutoff}
	abortOnCutoff := s.set.Propagating.AbortOnCutoff
	e := env{s}

	// stop reports whether the round has to end after a result.
	stop := func(res bnb.Result) bool {
		out.delayed = out.delayed || res == bnb.Delayed
		out.propagain = out.propagain || res == bnb.ReducedDom
		out.cutoff = out.cutoff || res == bnb.Cutoff
		if onlyDelayed && res == bnb.ReducedDom {
			out.delayed = true
			return true
		}
		return false
	}
	running := func() bool { return !out.cutoff || !abortOnCutoff }

	for _, p := range s.props {
		if !running() {
			break
		}
		if p.Priority() < 0 {
			continue
		}
		res, err := p.exec(e, depth, onlyDelayed)
		if err != nil {
			return out, err
		}
		if stop(res) {
			return out, nil
		}
	}
	for _, h := range s.conshdlrs {
		if !running() {
			break
		}
		res, err := h.propagate(e, depth, full, onlyDelayed)
		if err != nil {
			return out, err
		}
		if stop(res) {
			return out, nil
		}
	}
	for _, p := range s.props {
		if !running() {
			break
		}
		if p.Priority() >= 0 {
			continue
		}
		res, err := p.exec(e, depth, onlyDelayed)
		if err != nil {
			return out, err
		}
		if stop(res) {
			return out, nil
		}
	}
	return out, nil
}

// propagateDomains repeats propagation rounds until no reductions are
// found, the node is cut off, the round cap is hit or a limit is reached.
// Delayed propagators get one more chance before propagation ends. A cap
// of 0 uses the configured number of rounds for the depth.
func (s *Solver) propagateDomains(depth, maxRounds int, full bool) (cutoff bool, err error) {
	switch {
	case maxRounds == 0:
		maxRounds = s.set.MaxPropRounds(depth)
	case maxRounds < 0:
		maxRounds = math.MaxInt
	}

	round := 0
	propagain := true
	for propagain && !cutoff && round < maxRounds && !s.isStopped(false) {
		round++
		s.stats.PropRounds++
		out, err := s.propagationRound(depth, full, false, cutoff)
		if err != nil {
			return cutoff, err
		}
		propagain, cutoff = out.propagain, out.cutoff

		for out.delayed && (!propagain || round >= maxRounds) && !cutoff {
			out, err = s.propagationRound(depth, full, true, cutoff)
			if err != nil {
				return cutoff, err
			}
			propagain, cutoff = out.propagain, out.cutoff
		}

		// a reduction asks for another full round
		full = true
	}

	if f := s.tree.Focus(); f != nil {
		f.MarkPropagated()
	}
	return cutoff, nil
}

// propagateAndFlush propagates the focus node with full rounds and
// teaches the pending conflicts to the conflict store.
func (s *Solver) propagateAndFlush(maxRounds int) (cutoff bool, err error) {
	cutoff, err = s.propagateDomains(s.focusDepth(), maxRounds, true)
	if err != nil {
		return cutoff, err
	}
	s.conflict.Flush()
	return cutoff, nil
}
