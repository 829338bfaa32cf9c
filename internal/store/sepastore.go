package store

import (
	"fmt"
	"math"
	"sort"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// Cut is a row waiting in the separation store.
type Cut struct {
	Row      bnb.Row
	Efficacy float64
	Forced   bool
}

// Target receives the cuts of an applied separation store. Single variable
// cuts are turned into bound changes.
type Target interface {
	AddRow(row bnb.Row)
	TightenLB(j int, v float64) (infeasible, tightened bool)
	TightenUB(j int, v float64) (infeasible, tightened bool)
}

// SepaStore collects cuts during one separation or enforcement round.
type SepaStore struct {
	cuts      []Cut
	forceCuts int
	initialLP int
	found     int
}

func NewSepaStore() *SepaStore {
	return &SepaStore{}
}

// Add stores a cut. In force-cuts and initial-LP mode every cut is
// forced.
func (s *SepaStore) Add(row bnb.Row, efficacy float64, forced bool) {
	if s.forceCuts > 0 || s.initialLP > 0 {
		forced = true
	}
	s.cuts = append(s.cuts, Cut{Row: row, Efficacy: efficacy, Forced: forced})
	s.found++
}

func (s *SepaStore) Len() int { return len(s.cuts) }

// NFound returns the number of cuts ever added to the store.
func (s *SepaStore) NFound() int { return s.found }

func (s *SepaStore) Cuts() []Cut { return s.cuts }

func (s *SepaStore) Clear() { s.cuts = s.cuts[:0] }

func (s *SepaStore) StartForceCuts() { s.forceCuts++ }
func (s *SepaStore) EndForceCuts()   { s.forceCuts-- }

func (s *SepaStore) StartInitialLP() { s.initialLP++ }
func (s *SepaStore) EndInitialLP()   { s.initialLP-- }

// Apply moves the forced cuts and the maxCuts most efficacious remaining
// cuts into the target, and clears the store. Global cuts are also handed
// to the pool, except for the rows of the initial LP. cutoff is set when
// a bound change empties a domain.
func (s *SepaStore) Apply(t Target, pool *CutPool, maxCuts int) (applied int, cutoff bool) {
	defer s.Clear()

	sort.SliceStable(s.cuts, func(i, j int) bool {
		if s.cuts[i].Forced != s.cuts[j].Forced {
			return s.cuts[i].Forced
		}
		return s.cuts[i].Efficacy > s.cuts[j].Efficacy
	})
	nonForced := 0
	for _, c := range s.cuts {
		if !c.Forced {
			if nonForced >= maxCuts || c.Efficacy <= 0 {
				continue
			}
			nonForced++
		}
		if len(c.Row.Coefs) == 1 {
			if applyBoundCut(t, c.Row) {
				return applied, true
			}
			applied++
			continue
		}
		t.AddRow(c.Row)
		if pool != nil && !c.Row.Local && s.initialLP == 0 {
			pool.Add(c.Row)
		}
		applied++
	}
	return applied, false
}

func applyBoundCut(t Target, row bnb.Row) (cutoff bool) {
	c := row.Coefs[0]
	if c.Val == 0 {
		return row.LHS > 0 || row.RHS < 0
	}
	lo, hi := row.LHS/c.Val, row.RHS/c.Val
	if c.Val < 0 {
		lo, hi = hi, lo
	}
	if !math.IsInf(lo, 0) {
		if inf, _ := t.TightenLB(c.Var, lo); inf {
			return true
		}
	}
	if !math.IsInf(hi, 0) {
		if inf, _ := t.TightenUB(c.Var, hi); inf {
			return true
		}
	}
	return false
}

// Scope guards a phase that must leave the store empty.
type Scope struct {
	s     *SepaStore
	phase string
}

// Open starts a phase. The store must be empty.
func (s *SepaStore) Open(phase string) (*Scope, error) {
	if len(s.cuts) > 0 {
		return nil, fmt.Errorf("%d cuts left before %s: %w", len(s.cuts), phase, bnb.ErrStoreNotEmpty)
	}
	return &Scope{s: s, phase: phase}, nil
}

// Close ends the phase and reports cuts left in flight.
func (sc *Scope) Close() error {
	if n := len(sc.s.cuts); n > 0 {
		return fmt.Errorf("%d cuts left after %s: %w", n, sc.phase, bnb.ErrStoreNotEmpty)
	}
	return nil
}
