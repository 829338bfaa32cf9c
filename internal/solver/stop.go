package solver

import (
	"math"
	"runtime"
	"time"

	"github.com/operator-framework/bnb/internal/config"
	"github.com/operator-framework/bnb/pkg/bnb"
)

// SetLimits replaces the limits. The search status is reset on the next
// check, so a stopped solve can be continued with relaxed limits.
func (s *Solver) SetLimits(l config.Limits) {
	s.set.Limits = l
	s.limitChanged = true
}

// gap returns the relative gap between the primal and dual bound.
func gap(primal, dual float64, tol bnb.Tolerances) float64 {
	switch {
	case tol.IsEQ(primal, dual):
		return 0
	case tol.IsZero(primal) || tol.IsZero(dual), tol.IsInfinity(math.Abs(primal)), tol.IsInfinity(math.Abs(dual)), primal*dual < 0:
		return math.Inf(1)
	}
	return math.Abs(primal-dual) / math.Min(math.Abs(primal), math.Abs(dual))
}

func memUsedMB() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return float64(m.HeapAlloc) / 1048576.0
}

// isStopped checks the limits and records the reached one in the search
// status. Node limits are only considered when checkNodeLimits is set.
func (s *Solver) isStopped(checkNodeLimits bool) bool {
	upper := s.upperBound()
	lower := math.Inf(-1)
	if s.tree != nil {
		lower = s.tree.LowerBound()
		if s.tol.IsLE(upper, lower) {
			return false
		}
	}
	if s.limitChanged {
		s.status = bnb.StatusUnknown
		s.limitChanged = false
	}

	lim := s.set.Limits
	switch {
	case s.interrupted():
		s.status = bnb.StatusUserInterrupt
	case !s.deadline.IsZero() && !time.Now().Before(s.deadline):
		s.status = bnb.StatusTimeLimit
	case !math.IsInf(lim.Memory, 1) && memUsedMB() >= lim.Memory:
		s.status = bnb.StatusMemLimit
	case s.tree != nil && s.tol.IsLT(gap(upper, lower, s.tol), lim.Gap):
		s.status = bnb.StatusGapLimit
	case s.tree != nil && s.tol.IsLT(upper-lower, lim.AbsGap):
		s.status = bnb.StatusGapLimit
	case lim.Solutions >= 0 && s.stats.SolsFound >= lim.Solutions:
		s.status = bnb.StatusSolLimit
	case lim.BestSol >= 0 && s.stats.BestSolsFound >= lim.BestSol:
		s.status = bnb.StatusBestSolLimit
	case checkNodeLimits && lim.Nodes >= 0 && s.stats.Nodes >= lim.Nodes:
		s.status = bnb.StatusNodeLimit
	case checkNodeLimits && lim.StallNodes >= 0 && s.stats.Nodes >= s.stats.BestSolNode+lim.StallNodes:
		s.status = bnb.StatusStallNodeLimit
	}

	if !checkNodeLimits {
		return s.status != bnb.StatusUnknown && s.status != bnb.StatusNodeLimit && s.status != bnb.StatusStallNodeLimit
	}
	return s.status != bnb.StatusUnknown
}
