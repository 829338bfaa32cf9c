package solver

// Stats are the counters of a solve. Counters are monotonic within a
// solve unless noted otherwise.
type Stats struct {
	Runs     int
	Restarts int
	// Nodes counts focused nodes over all runs, RunNodes those of the
	// current run.
	Nodes    int64
	RunNodes int64
	MaxDepth int

	LPs            int64
	LPErrors       int64
	PriceRounds    int64
	SepaRounds     int64
	PropRounds     int64
	BoundChanges   int64
	DomChgCount    int64
	CutsApplied    int64
	VarsPriced     int64
	Branchings     int64
	Cutoffs        int64
	DelayedCutoffs int64

	PricingAbortResolves int64

	SolsFound       int64
	LPSolsFound     int64
	PseudoSolsFound int64
	BestSolsFound   int64
	BestSolNode     int64

	ConflictRestarts  int
	RootIntFixingsRun int
	RunVars           int
	PrevRunVars       int

	LowerBound float64
	UpperBound float64
}

// publish makes the current counters visible to Stats.
func (s *Solver) publish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.UpperBound = s.upperBound()
	if s.tree != nil {
		s.stats.LowerBound = s.LowerBound()
	}
	s.published = s.stats
}

// Stats returns the counters as of the last processed node. It may be
// called while Solve runs.
func (s *Solver) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.published
}
