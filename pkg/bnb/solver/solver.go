package solver

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/operator-framework/bnb/internal/config"
	"github.com/operator-framework/bnb/internal/plugins"
	"github.com/operator-framework/bnb/internal/solver"
	"github.com/operator-framework/bnb/pkg/bnb"
)

// Settings are the parameters of the search.
type Settings = config.Settings

// Stats are the counters of a solve.
type Stats = solver.Stats

// DefaultSettings returns the default parameters.
func DefaultSettings() Settings { return config.Default() }

// LoadSettings reads parameters from a YAML file on top of the defaults.
func LoadSettings(path string) (Settings, error) { return config.LoadFile(path) }

// Solution is returned by the Solver when the search ran without errors.
// A search that ran without errors may still end without a solution, in
// which case Error tells why.
type Solution struct {
	err        error
	runID      string
	status     bnb.Status
	objective  float64
	lowerBound float64
	values     []float64
	names      []string
	stats      Stats
	duration   time.Duration
}

// Error returns a NoSolution error if the search found no solution, nil
// otherwise.
func (s *Solution) Error() error {
	return s.err
}

func (s *Solution) RunID() string           { return s.runID }
func (s *Solution) Status() bnb.Status      { return s.status }
func (s *Solution) Stats() Stats            { return s.stats }
func (s *Solution) Duration() time.Duration { return s.duration }

// Objective returns the objective value of the best solution, in the
// direction of the problem as given.
func (s *Solution) Objective() float64 { return s.objective }

// LowerBound returns the proven bound on the objective value. For
// maximization problems it is an upper bound.
func (s *Solution) LowerBound() float64 { return s.lowerBound }

// Gap returns the relative gap between the objective and its bound.
func (s *Solution) Gap() float64 {
	switch {
	case s.err != nil:
		return math.Inf(1)
	case s.objective == s.lowerBound:
		return 0
	case s.objective == 0 || s.lowerBound == 0 || s.objective*s.lowerBound < 0:
		return math.Inf(1)
	}
	return math.Abs(s.objective-s.lowerBound) / math.Min(math.Abs(s.objective), math.Abs(s.lowerBound))
}

// Values returns the value of every variable in the best solution.
func (s *Solution) Values() []float64 {
	return s.values
}

// Value returns the value of the named variable in the best solution.
func (s *Solution) Value(name string) (float64, bool) {
	for j, n := range s.names {
		if n == name && j < len(s.values) {
			return s.values[j], true
		}
	}
	return 0, false
}

// Assignment returns the nonzero values of the best solution by variable
// name.
func (s *Solution) Assignment() map[string]float64 {
	m := map[string]float64{}
	for j, v := range s.values {
		if v != 0 && j < len(s.names) {
			m[s.names[j]] = v
		}
	}
	return m
}

type solverOptions struct {
	settings       Settings
	log            *logrus.Entry
	tracer         bnb.Tracer
	maximize       bool
	objLimit       *float64
	defaultPlugins bool
	engine         []solver.Option
}

type Option func(o *solverOptions)

// WithSettings replaces the search parameters.
func WithSettings(s Settings) Option {
	return func(o *solverOptions) {
		o.settings = s
	}
}

func WithTimeLimit(d time.Duration) Option {
	return func(o *solverOptions) {
		o.settings.Limits.Time = d.Seconds()
	}
}

func WithNodeLimit(n int64) Option {
	return func(o *solverOptions) {
		o.settings.Limits.Nodes = n
	}
}

func WithGapLimit(gap float64) Option {
	return func(o *solverOptions) {
		o.settings.Limits.Gap = gap
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(o *solverOptions) {
		o.log = log
	}
}

func WithTracer(t bnb.Tracer) Option {
	return func(o *solverOptions) {
		o.tracer = t
	}
}

// WithObjectiveLimit only accepts solutions better than limit.
func WithObjectiveLimit(limit float64) Option {
	return func(o *solverOptions) {
		o.objLimit = &limit
	}
}

// Maximize solves the problem as a maximization problem.
func Maximize() Option {
	return func(o *solverOptions) {
		o.maximize = true
	}
}

// WithoutDefaultPlugins leaves out the linear and integrality constraint
// handlers, the cover separator, the rounding heuristic and the
// most-fractional branching rule.
func WithoutDefaultPlugins() Option {
	return func(o *solverOptions) {
		o.defaultPlugins = false
	}
}

func WithPropagator(p bnb.Propagator) Option {
	return func(o *solverOptions) {
		o.engine = append(o.engine, solver.WithPropagator(p))
	}
}

func WithConstraintHandler(h bnb.ConstraintHandler) Option {
	return func(o *solverOptions) {
		o.engine = append(o.engine, solver.WithConstraintHandler(h))
	}
}

func WithSeparator(p bnb.Separator) Option {
	return func(o *solverOptions) {
		o.engine = append(o.engine, solver.WithSeparator(p))
	}
}

func WithRelaxator(r bnb.Relaxator) Option {
	return func(o *solverOptions) {
		o.engine = append(o.engine, solver.WithRelaxator(r))
	}
}

func WithPricer(p bnb.Pricer) Option {
	return func(o *solverOptions) {
		o.engine = append(o.engine, solver.WithPricer(p))
	}
}

func WithBranchRule(b bnb.BranchRule) Option {
	return func(o *solverOptions) {
		o.engine = append(o.engine, solver.WithBranchRule(b))
	}
}

func WithHeuristic(h bnb.Heuristic) Option {
	return func(o *solverOptions) {
		o.engine = append(o.engine, solver.WithHeuristic(h))
	}
}

func defaultPlugins() []solver.Option {
	return []solver.Option{
		solver.WithConstraintHandler(plugins.NewLinear()),
		solver.WithConstraintHandler(plugins.Integrality{}),
		solver.WithSeparator(plugins.NewCover()),
		solver.WithHeuristic(plugins.Rounding{}),
		solver.WithBranchRule(plugins.MostFractional{}),
	}
}

// Solver is a branch and bound solver for a single problem.
type Solver struct {
	maximize bool
	engine   *solver.Solver
}

// New prepares the search. The problem is copied.
func New(problem *bnb.Problem, options ...Option) (*Solver, error) {
	if problem == nil {
		return nil, fmt.Errorf("no problem given")
	}
	o := &solverOptions{settings: config.Default(), defaultPlugins: true}
	for _, apply := range options {
		apply(o)
	}

	p := problem.Clone()
	if o.maximize {
		for j := range p.Vars {
			p.Vars[j].Obj = -p.Vars[j].Obj
		}
	}

	engine := []solver.Option{solver.WithSettings(o.settings)}
	if o.log != nil {
		engine = append(engine, solver.WithLogger(o.log))
	}
	if o.tracer != nil {
		engine = append(engine, solver.WithTracer(o.tracer))
	}
	if o.objLimit != nil {
		limit := *o.objLimit
		if o.maximize {
			limit = -limit
		}
		engine = append(engine, solver.WithObjectiveLimit(limit))
	}
	if o.defaultPlugins {
		engine = append(engine, defaultPlugins()...)
	}
	engine = append(engine, o.engine...)

	s, err := solver.New(p, engine...)
	if err != nil {
		return nil, err
	}
	return &Solver{maximize: o.maximize, engine: s}, nil
}

// Stats returns the counters of the running or last solve.
func (s *Solver) Stats() Stats {
	return s.engine.Stats()
}

// Interrupt stops a running solve at its next limit check.
func (s *Solver) Interrupt() {
	s.engine.Interrupt()
}

// Solve runs the search. An error is returned if the search failed; a
// search that ended without a solution returns a Solution whose Error
// is set.
func (s *Solver) Solve(ctx context.Context) (*Solution, error) {
	start := time.Now()
	status, err := s.engine.Solve(ctx)
	if err != nil {
		return nil, err
	}

	sol := &Solution{
		runID:      string(s.engine.RunID()),
		status:     status,
		lowerBound: s.engine.LowerBound(),
		stats:      s.engine.Stats(),
		duration:   time.Since(start),
	}
	for _, v := range s.engine.Problem().Vars {
		sol.names = append(sol.names, v.Name)
	}
	x, obj, ok := s.engine.Best()
	if ok {
		sol.values, sol.objective = x, obj
	} else {
		sol.objective = math.Inf(1)
		sol.err = bnb.NoSolution{Status: status}
	}
	if s.maximize {
		sol.objective, sol.lowerBound = -sol.objective, -sol.lowerBound
	}
	return sol, nil
}
