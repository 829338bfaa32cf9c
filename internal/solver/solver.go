package solver

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/operator-framework/bnb/internal/config"
	"github.com/operator-framework/bnb/internal/conflict"
	"github.com/operator-framework/bnb/internal/lp"
	"github.com/operator-framework/bnb/internal/runid"
	"github.com/operator-framework/bnb/internal/store"
	"github.com/operator-framework/bnb/internal/tree"
	"github.com/operator-framework/bnb/pkg/bnb"
)

// Relaxation is the LP solver used at the focus node.
type Relaxation interface {
	AddCol(j int, obj, lb, ub float64)
	HasCol(j int) bool
	NCols() int
	ChgBounds(j int, lb, ub float64)
	AddRow(row bnb.Row)
	AddCoef(i int, c bnb.Coef)
	NRows() int
	TruncateRows(n int)
	SetCutoffBound(v float64)
	IsFlushed() bool
	IsSolved() bool
	MarkUnsolved()
	SetInstalling(v bool)
	SetIsRelax(v bool)
	IsRelax() bool
	Solve(deadline time.Time) (bnb.SolStat, error)
	SolveWithoutCutoff(deadline time.Time) (bnb.SolStat, error)
	Status() bnb.SolStat
	ObjVal() float64
	Value(j int) float64
}

// RelaxationFactory creates an empty relaxation for a solve run.
type RelaxationFactory func(tol bnb.Tolerances) Relaxation

func defaultRelaxation(tol bnb.Tolerances) Relaxation {
	return lp.New(tol)
}

// Solver runs branch and bound on a single problem. A Solver is not safe
// for concurrent use, except for Stats and Interrupt.
type Solver struct {
	prob *bnb.Problem
	set  config.Settings
	tol  bnb.Tolerances
	log  *logrus.Entry

	tracer        bnb.Tracer
	runIDs        runid.Provider
	runID         runid.ID
	newRelaxation RelaxationFactory
	objLimit      float64

	props       []*propagator
	conshdlrs   []*conshdlr
	sepas       []*separator
	relaxs      []*relaxator
	pricers     []bnb.Pricer
	branchers   []bnb.BranchRule
	heurs       []*heuristic
	useConflict bool

	ctx       context.Context
	start     time.Time
	deadline  time.Time
	interrupt chan struct{}
	once      sync.Once

	// state of the current run
	lp          Relaxation
	lpRows      []lpRow
	initialRows map[string]bool
	rowIndex    map[string]int
	probRowLP   map[int]int
	initialLP   bool
	lpBuilt     bool
	focusLP     bool
	tree        *tree.Tree
	sepastore   *store.SepaStore
	pricestore  *store.PriceStore
	cutpool     *store.CutPool
	conflict    *conflict.Analyzer
	glb, gub    []float64
	lb, ub      []float64
	externCands []bnb.Candidate
	pscost      *pseudoCosts
	primal      *primal
	// runIntVars is the number of unfixed integral variables at the
	// start of the run.
	runIntVars int
	// nodeSepaRounds counts the separation rounds at the focus node.
	nodeSepaRounds int

	mu           sync.Mutex
	stats        Stats
	published    Stats
	status       bnb.Status
	limitChanged bool
}

// New creates a solver for the given problem. The problem is copied and
// may be changed by pricing during the solve.
func New(prob *bnb.Problem, options ...Option) (*Solver, error) {
	if prob == nil {
		return nil, fmt.Errorf("no problem given")
	}
	if err := prob.Validate(); err != nil {
		return nil, fmt.Errorf("invalid problem: %w", err)
	}
	s := &Solver{
		prob:        prob.Clone(),
		set:         config.Default(),
		objLimit:    math.Inf(1),
		interrupt:   make(chan struct{}),
		useConflict: true,
	}
	for _, option := range append(options, defaults...) {
		if err := option(s); err != nil {
			return nil, err
		}
	}
	if err := s.set.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	s.tol = s.set.Numerics
	s.sortPlugins()
	return s, nil
}

func (s *Solver) sortPlugins() {
	sort.SliceStable(s.props, func(i, j int) bool { return s.props[i].Priority() > s.props[j].Priority() })
	sort.SliceStable(s.conshdlrs, func(i, j int) bool { return s.conshdlrs[i].Priority() > s.conshdlrs[j].Priority() })
	sort.SliceStable(s.sepas, func(i, j int) bool { return s.sepas[i].Priority() > s.sepas[j].Priority() })
	sort.SliceStable(s.relaxs, func(i, j int) bool { return s.relaxs[i].Priority() > s.relaxs[j].Priority() })
	sort.SliceStable(s.pricers, func(i, j int) bool { return s.pricers[i].Priority() > s.pricers[j].Priority() })
	sort.SliceStable(s.branchers, func(i, j int) bool { return s.branchers[i].Priority() > s.branchers[j].Priority() })
	sort.SliceStable(s.heurs, func(i, j int) bool { return s.heurs[i].Priority() > s.heurs[j].Priority() })
}

// Interrupt asks a running solve to stop at the next check of the limits.
func (s *Solver) Interrupt() {
	s.once.Do(func() { close(s.interrupt) })
}

func (s *Solver) interrupted() bool {
	select {
	case <-s.interrupt:
		return true
	default:
	}
	if s.ctx != nil && s.ctx.Err() != nil {
		return true
	}
	return false
}

// RunID returns the identifier of the current or last run.
func (s *Solver) RunID() runid.ID { return s.runID }

// Problem returns the problem including priced variables.
func (s *Solver) Problem() *bnb.Problem { return s.prob }

// Status returns the search status.
func (s *Solver) Status() bnb.Status { return s.status }

// Best returns the incumbent and its objective value.
func (s *Solver) Best() ([]float64, float64, bool) {
	if s.primal == nil || s.primal.best == nil {
		return nil, math.Inf(1), false
	}
	return append([]float64(nil), s.primal.best...), s.primal.bestObj, true
}

// LowerBound returns the global dual bound.
func (s *Solver) LowerBound() float64 {
	if s.tree == nil {
		return math.Inf(-1)
	}
	return math.Min(s.tree.LowerBound(), s.upperBound())
}

// Solve runs the search until the tree is empty or a limit is hit. The
// returned status tells which.
func (s *Solver) Solve(ctx context.Context) (bnb.Status, error) {
	s.ctx = ctx
	s.start = time.Now()
	if !math.IsInf(s.set.Limits.Time, 1) {
		s.deadline = s.start.Add(time.Duration(s.set.Limits.Time * float64(time.Second)))
	}
	if d, ok := ctx.Deadline(); ok && (s.deadline.IsZero() || d.Before(s.deadline)) {
		s.deadline = d
	}
	s.runID = s.runIDs.NextRunID()
	s.log = s.log.WithField("run", s.runID)
	s.status = bnb.StatusUnknown
	s.primal = newPrimal(s)
	s.pscost = newPseudoCosts(len(s.prob.Vars))
	s.cutpool = store.NewCutPool(s.set.Separating.PoolMaxAge)
	s.conflict = conflict.NewAnalyzer(s.log)
	if s.useConflict && s.set.Conflict.Enabled {
		s.props = append(s.props, &propagator{Propagator: conflict.NewPropagator(s.conflict)})
		s.sortPlugins()
	}
	s.initGlobalBounds()

	s.log.Debugf("solving %q with %d variables and %d rows", s.prob.Name, len(s.prob.Vars), len(s.prob.Rows))
	restart := true
	for restart {
		s.initRun()
		var err error
		restart, err = s.solveCIP()
		if err != nil {
			s.publish()
			return s.status, err
		}
		if restart {
			s.log.Infof("restarting after %d root fixings (run %d)", s.stats.RootIntFixingsRun, s.stats.Runs)
		}
	}
	s.publish()
	s.log.WithFields(logrus.Fields{
		"status": s.status,
		"nodes":  s.stats.Nodes,
		"lps":    s.stats.LPs,
	}).Info("solve finished")
	return s.status, nil
}

func (s *Solver) initGlobalBounds() {
	n := len(s.prob.Vars)
	s.glb = make([]float64, n)
	s.gub = make([]float64, n)
	for j, v := range s.prob.Vars {
		s.glb[j], s.gub[j] = s.roundBounds(j, v.LB, v.UB)
	}
}

// initRun prepares a run from the root with the current global bounds.
func (s *Solver) initRun() {
	s.stats.Runs++
	s.stats.RootIntFixingsRun = 0
	s.stats.PrevRunVars = s.stats.RunVars
	s.stats.RunVars = s.nActiveVars()
	s.runIntVars = s.nActiveIntVars()
	s.tree = tree.New(s.tol)
	s.sepastore = store.NewSepaStore()
	s.pricestore = store.NewPriceStore()
	s.lp = s.newRelaxation(s.tol)
	s.lp.SetCutoffBound(s.primal.cutoffBound())
	s.lpRows = nil
	s.initialRows = map[string]bool{}
	s.probRowLP = map[int]int{}
	s.rowIndex = map[string]int{}
	seen := map[string]int{}
	for i, r := range s.prob.Rows {
		if r.Name == "" {
			continue
		}
		seen[r.Name]++
		s.rowIndex[r.Name] = i
	}
	for name, n := range seen {
		if n > 1 {
			delete(s.rowIndex, name)
		}
	}
	s.lpBuilt = false
	s.focusLP = false
	s.lb = append(s.lb[:0], s.glb...)
	s.ub = append(s.ub[:0], s.gub...)
	s.externCands = nil
}

func (s *Solver) nActiveIntVars() int {
	n := 0
	for j, v := range s.prob.Vars {
		if v.Type.IsIntegral() && s.glb[j] != s.gub[j] {
			n++
		}
	}
	return n
}

// nActiveVars counts the variables that are not globally fixed.
func (s *Solver) nActiveVars() int {
	n := 0
	for j := range s.glb {
		if s.glb[j] != s.gub[j] {
			n++
		}
	}
	return n
}
