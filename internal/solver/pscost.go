package solver

import "math"

type pscEntry struct {
	sum   float64
	count float64
}

// pseudoCosts tracks the average objective gain per unit of bound change
// in each direction.
type pseudoCosts struct {
	down, up       []pscEntry
	cutoffDown     []int64
	cutoffUp       []int64
	totDown, totUp pscEntry
}

func newPseudoCosts(n int) *pseudoCosts {
	p := &pseudoCosts{}
	p.grow(n)
	return p
}

func (p *pseudoCosts) grow(n int) {
	for len(p.down) < n {
		p.down = append(p.down, pscEntry{})
		p.up = append(p.up, pscEntry{})
		p.cutoffDown = append(p.cutoffDown, 0)
		p.cutoffUp = append(p.cutoffUp, 0)
	}
}

// update records an objective gain for a change of variable j by delta,
// counted with the given weight.
func (p *pseudoCosts) update(j int, delta, gain, weight float64) {
	if delta == 0 {
		return
	}
	p.grow(j + 1)
	unit := gain / math.Abs(delta)
	e, tot := &p.up[j], &p.totUp
	if delta < 0 {
		e, tot = &p.down[j], &p.totDown
	}
	e.sum += unit * weight
	e.count += weight
	tot.sum += unit * weight
	tot.count += weight
}

// value estimates the objective gain of changing variable j by delta.
// Variables without history use the average over all variables, or 1.
func (p *pseudoCosts) value(j int, delta float64) float64 {
	e, tot := pscEntry{}, p.totUp
	if delta < 0 {
		tot = p.totDown
	}
	if j < len(p.up) {
		e = p.up[j]
		if delta < 0 {
			e = p.down[j]
		}
	}
	unit := 1.0
	switch {
	case e.count > 0:
		unit = e.sum / e.count
	case tot.count > 0:
		unit = tot.sum / tot.count
	}
	return unit * math.Abs(delta)
}

func (p *pseudoCosts) count(j int, up bool) float64 {
	if j >= len(p.up) {
		return 0
	}
	if up {
		return p.up[j].count
	}
	return p.down[j].count
}

// incCutoffs counts an infeasible child created by changing variable j
// in the given direction.
func (p *pseudoCosts) incCutoffs(j int, up bool) {
	p.grow(j + 1)
	if up {
		p.cutoffUp[j]++
	} else {
		p.cutoffDown[j]++
	}
}
