package store

import (
	"fmt"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// PricedVar is a new variable generated by a pricer.
type PricedVar struct {
	Var bnb.Var
	Col []bnb.ColEntry
}

type boundReset struct {
	j      int
	lb, ub float64
}

// PriceTarget receives applied columns.
type PriceTarget interface {
	// AddProblemVar adds a new variable to the problem and returns its
	// index.
	AddProblemVar(v bnb.Var, col []bnb.ColEntry) (int, error)
	// AddColumn puts variable j into the relaxation with the given
	// bounds.
	AddColumn(j int, lb, ub float64)
	ChgColumnBounds(j int, lb, ub float64)
}

// PriceStore collects columns during one pricing round.
type PriceStore struct {
	vars     []PricedVar
	probVars []int
	bounds   map[int][2]float64
	resets   []boundReset
	initial  int
}

func NewPriceStore() *PriceStore {
	return &PriceStore{bounds: map[int][2]float64{}}
}

// AddVar stores a variable created by a pricer.
func (p *PriceStore) AddVar(v bnb.Var, col []bnb.ColEntry) {
	p.vars = append(p.vars, PricedVar{Var: v, Col: col})
}

// AddProbVar stores an existing problem variable that is missing from the
// relaxation, with its current local bounds.
func (p *PriceStore) AddProbVar(j int, lb, ub float64) {
	if _, ok := p.bounds[j]; ok {
		return
	}
	p.probVars = append(p.probVars, j)
	p.bounds[j] = [2]float64{lb, ub}
}

func (p *PriceStore) Len() int { return len(p.vars) + len(p.probVars) }

func (p *PriceStore) StartInitialLP() { p.initial++ }
func (p *PriceStore) EndInitialLP()   { p.initial-- }

// Apply moves all stored columns into the target. Outside of the initial
// LP a column whose bounds exclude zero enters with bounds relaxed to
// include zero, so the current relaxation solution stays valid; the
// original bounds are restored by ResetBounds.
func (p *PriceStore) Apply(t PriceTarget) (int, error) {
	n := 0
	for _, j := range p.probVars {
		b := p.bounds[j]
		p.add(t, j, b[0], b[1])
		n++
	}
	for _, pv := range p.vars {
		j, err := t.AddProblemVar(pv.Var, pv.Col)
		if err != nil {
			return n, fmt.Errorf("error adding priced variable %q: %w", pv.Var.Name, err)
		}
		p.add(t, j, pv.Var.LB, pv.Var.UB)
		n++
	}
	p.vars = p.vars[:0]
	p.probVars = p.probVars[:0]
	p.bounds = map[int][2]float64{}
	return n, nil
}

func (p *PriceStore) add(t PriceTarget, j int, lb, ub float64) {
	if p.initial == 0 && (lb > 0 || ub < 0) {
		p.resets = append(p.resets, boundReset{j: j, lb: lb, ub: ub})
		t.AddColumn(j, min(lb, 0), max(ub, 0))
		return
	}
	t.AddColumn(j, lb, ub)
}

// ResetBounds restores the bounds relaxed by Apply.
func (p *PriceStore) ResetBounds(t PriceTarget) {
	for _, r := range p.resets {
		t.ChgColumnBounds(r.j, r.lb, r.ub)
	}
	p.resets = p.resets[:0]
}
