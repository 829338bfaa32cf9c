package solver

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/operator-framework/bnb/internal/config"
	"github.com/operator-framework/bnb/internal/runid"
	"github.com/operator-framework/bnb/pkg/bnb"
)

type Option func(s *Solver) error

func WithSettings(set config.Settings) Option {
	return func(s *Solver) error {
		s.set = set
		return nil
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Solver) error {
		s.log = log
		return nil
	}
}

func WithTracer(t bnb.Tracer) Option {
	return func(s *Solver) error {
		s.tracer = t
		return nil
	}
}

func WithRunIDProvider(p runid.Provider) Option {
	return func(s *Solver) error {
		s.runIDs = p
		return nil
	}
}

// WithRelaxation replaces the LP solver.
func WithRelaxation(f RelaxationFactory) Option {
	return func(s *Solver) error {
		s.newRelaxation = f
		return nil
	}
}

// WithObjectiveLimit only accepts solutions strictly better than v.
func WithObjectiveLimit(v float64) Option {
	return func(s *Solver) error {
		s.objLimit = v
		return nil
	}
}

// WithoutConflictPropagation disables the propagator over recorded
// conflict clauses.
func WithoutConflictPropagation() Option {
	return func(s *Solver) error {
		s.useConflict = false
		return nil
	}
}

func WithPropagator(p bnb.Propagator) Option {
	return func(s *Solver) error {
		s.props = append(s.props, &propagator{Propagator: p})
		return nil
	}
}

func WithConstraintHandler(h bnb.ConstraintHandler) Option {
	return func(s *Solver) error {
		s.conshdlrs = append(s.conshdlrs, &conshdlr{ConstraintHandler: h})
		return nil
	}
}

func WithSeparator(p bnb.Separator) Option {
	return func(s *Solver) error {
		s.sepas = append(s.sepas, &separator{Separator: p})
		return nil
	}
}

func WithRelaxator(r bnb.Relaxator) Option {
	return func(s *Solver) error {
		s.relaxs = append(s.relaxs, &relaxator{Relaxator: r, solvedAt: -1})
		return nil
	}
}

func WithPricer(p bnb.Pricer) Option {
	return func(s *Solver) error {
		s.pricers = append(s.pricers, p)
		return nil
	}
}

func WithBranchRule(b bnb.BranchRule) Option {
	return func(s *Solver) error {
		s.branchers = append(s.branchers, b)
		return nil
	}
}

func WithHeuristic(h bnb.Heuristic) Option {
	return func(s *Solver) error {
		if h.Timing() == 0 {
			return fmt.Errorf("heuristic %q has no timing", h.Name())
		}
		s.heurs = append(s.heurs, &heuristic{Heuristic: h})
		return nil
	}
}

var defaults = []Option{
	func(s *Solver) error {
		if s.log == nil {
			s.log = logrus.NewEntry(logrus.New())
		}
		return nil
	},
	func(s *Solver) error {
		if s.tracer == nil {
			s.tracer = bnb.DefaultTracer{}
		}
		return nil
	},
	func(s *Solver) error {
		if s.runIDs == nil {
			s.runIDs = runid.NewUUIDProvider()
		}
		return nil
	},
	func(s *Solver) error {
		if s.newRelaxation == nil {
			s.newRelaxation = defaultRelaxation
		}
		return nil
	},
}
