package solver

import (
	"math"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// stallTracker counts separation rounds without progress. A round makes
// progress if the objective moves by more than a relative 1e-4 or the
// number of fractional variables drops enough.
type stallTracker struct {
	max    int
	rounds int
	obj    float64
	nfracs int
}

func newStallTracker(max int) *stallTracker {
	if max < 0 {
		max = math.MaxInt
	}
	return &stallTracker{max: max, obj: -math.MaxFloat64, nfracs: math.MaxInt}
}

// observe records the relaxation after a separation round and reports
// whether the round stalled.
func (t *stallTracker) observe(obj float64, nfracs int) (stalled bool) {
	if bnb.RelDiff(obj, t.obj) > 1e-4 || float64(nfracs) <= (0.9-0.1*float64(t.rounds))*float64(t.nfracs) {
		t.rounds = 0
		t.obj = obj
		t.nfracs = nfracs
		return false
	}
	t.rounds++
	return true
}

// stalled reports whether the stall cap is reached.
func (t *stallTracker) stalled() bool { return t.rounds >= t.max }

// nearCap reports whether the next stall round hits the cap.
func (t *stallTracker) nearCap() bool { return t.rounds >= t.max-1 }

// installing reports whether the relaxation should brace for
// degenerate solves.
func (t *stallTracker) installing() bool { return t.rounds >= t.max-2 }
