package conflict

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"
	"github.com/sirupsen/logrus"
)

// Fixing is a branching decision on a binary variable.
type Fixing struct {
	Var   int
	Value bool
}

func (f Fixing) lit() z.Lit {
	m := z.Var(f.Var + 1).Pos()
	if !f.Value {
		return m.Not()
	}
	return m
}

// Stats counts analysis calls.
type Stats struct {
	LPCalls      int64
	PseudoCalls  int64
	Successes    int64
	Clauses      int64
	Propagations int64
}

// Analyzer records conflict clauses over binary branching decisions: a set
// of fixings that led to an infeasible node must never occur together
// again. Recorded clauses are taught to a gini instance on Flush.
type Analyzer struct {
	g       inter.S
	known   map[int]struct{}
	pending [][]Fixing
	stats   Stats
	buf     []z.Lit
	log     *logrus.Entry
}

func NewAnalyzer(log *logrus.Entry) *Analyzer {
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	return &Analyzer{g: gini.New(), known: map[int]struct{}{}, buf: make([]z.Lit, 0, 64), log: log}
}

// AnalyzeLP records the conflict of an infeasible or cut off relaxation.
// Empty fixing sets are not analyzed and not counted.
func (a *Analyzer) AnalyzeLP(fixings []Fixing) bool {
	if len(fixings) == 0 {
		return false
	}
	a.stats.LPCalls++
	return a.record(fixings)
}

// AnalyzePseudo records the conflict of a pseudo solution whose objective
// reaches the cutoff bound.
func (a *Analyzer) AnalyzePseudo(fixings []Fixing) bool {
	if len(fixings) == 0 {
		return false
	}
	a.stats.PseudoCalls++
	return a.record(fixings)
}

func (a *Analyzer) record(fixings []Fixing) bool {
	a.pending = append(a.pending, append([]Fixing(nil), fixings...))
	a.stats.Successes++
	return true
}

// Flush teaches the pending clauses to the SAT instance and returns how
// many were added.
func (a *Analyzer) Flush() int {
	n := len(a.pending)
	for _, fixings := range a.pending {
		for _, f := range fixings {
			a.known[f.Var] = struct{}{}
			a.g.Add(f.lit().Not())
		}
		a.g.Add(0)
	}
	if n > 0 {
		a.log.Debugf("flushed %d conflict clauses", n)
	}
	a.stats.Clauses += int64(n)
	a.pending = a.pending[:0]
	return n
}

func (a *Analyzer) NPending() int { return len(a.pending) }

func (a *Analyzer) Stats() Stats { return a.stats }

// Implications assumes the given fixings and runs unit propagation over
// the recorded clauses. conflict is set when the fixings violate a
// clause; otherwise the implied fixings of known variables are returned.
func (a *Analyzer) Implications(fixings []Fixing) (implied []Fixing, conflict bool) {
	max := a.g.MaxVar()
	for _, f := range fixings {
		if _, ok := a.known[f.Var]; !ok || z.Var(f.Var+1) > max {
			continue
		}
		a.g.Assume(f.lit())
	}
	res, lits := a.g.Test(a.buf[:0])
	defer a.g.Untest()
	a.buf = lits
	a.stats.Propagations++
	if res == -1 {
		return nil, true
	}
	for _, m := range lits {
		j := int(m.Var()) - 1
		if _, ok := a.known[j]; !ok {
			continue
		}
		implied = append(implied, Fixing{Var: j, Value: m.IsPos()})
	}
	return implied, false
}

// Known reports whether variable j occurs in a recorded clause.
func (a *Analyzer) Known(j int) bool {
	_, ok := a.known[j]
	return ok
}
