package solver

import (
	"math"

	"github.com/operator-framework/bnb/internal/tree"
	"github.com/operator-framework/bnb/pkg/bnb"
)

// lpOutcome is what solving the relaxation of the focus node found out.
type lpOutcome struct {
	cutoff         bool
	unbounded      bool
	lperror        bool
	pricingAborted bool
}

// solveLP solves the relaxation if needed. Numerical failure is logged
// and reported as lperror; the node then continues on its pseudo
// solution.
func (s *Solver) solveLP() (lperror bool) {
	if !(s.lp.IsFlushed() && s.lp.IsSolved()) {
		s.stats.LPs++
	}
	if _, err := s.lp.Solve(s.deadline); err != nil {
		s.stats.LPErrors++
		s.log.WithError(err).Warnf("(node %d) numerical troubles in LP %d", s.focusID(), s.stats.LPs)
		return true
	}
	return false
}

func (s *Solver) focusID() int64 {
	if f := s.tree.Focus(); f != nil {
		return f.ID
	}
	return 0
}

func (s *Solver) trace(t bnb.EventType) {
	ev := bnb.Event{Type: t}
	if f := s.tree.Focus(); f != nil {
		ev.Node, ev.Depth, ev.LowerBound = f.ID, f.Depth, f.LowerBound
	}
	if t == bnb.FirstLPSolved || t == bnb.LPSolved {
		ev.Objective = s.lp.ObjVal()
	}
	s.tracer.Trace(ev)
}

// initConssLP asks the constraint handlers for their initial rows and
// puts them into the relaxation.
func (s *Solver) initConssLP() (cutoff bool, err error) {
	s.sepastore.StartInitialLP()
	s.initialLP = true
	defer func() {
		s.initialLP = false
		s.sepastore.EndInitialLP()
	}()
	for _, h := range s.conshdlrs {
		if err := h.InitLP(env{s}); err != nil {
			s.sepastore.Clear()
			return false, err
		}
	}
	_, cutoff = s.sepastore.Apply(cutTarget{s}, nil, math.MaxInt)
	return cutoff, nil
}

// constructLP loads the initial columns and rows into the relaxation the
// first time a node of the run needs it.
func (s *Solver) constructLP() (cutoff bool, err error) {
	if s.lpBuilt {
		return false, nil
	}
	s.lpBuilt = true
	s.pricestore.StartInitialLP()
	for j, v := range s.prob.Vars {
		if !v.Lazy {
			s.pricestore.AddProbVar(j, s.lb[j], s.ub[j])
		}
	}
	_, err = s.pricestore.Apply(priceTarget{s})
	s.pricestore.EndInitialLP()
	if err != nil {
		return false, err
	}
	return s.initConssLP()
}

// solveNodeInitialLP constructs and solves the first relaxation of the
// focus node.
func (s *Solver) solveNodeInitialLP() (cutoff, lperror bool, err error) {
	cutoff, err = s.constructLP()
	if err != nil || cutoff {
		return cutoff, false, err
	}
	lperror = s.solveLP()
	if !lperror {
		if st := s.lp.Status(); st != bnb.IterLimit && st != bnb.TimeLimitLP {
			s.trace(bnb.FirstLPSolved)
		}
		s.updatePseudocost()
	}
	return false, lperror, nil
}

// pseudocostUpdateValid reports whether a branching change explains the
// gain of the relaxation: the old solution value violates the new bound
// and the new solution value sits on it.
func (s *Solver) pseudocostUpdateValid(c tree.BoundChg) bool {
	if math.IsNaN(c.LPSolVal) {
		return false
	}
	j := c.Var
	switch {
	case s.tol.IsLT(c.LPSolVal, s.lb[j]):
		return s.tol.IsEQ(s.lp.Value(j), s.lb[j])
	case s.tol.IsGT(c.LPSolVal, s.ub[j]):
		return s.tol.IsEQ(s.lp.Value(j), s.ub[j])
	}
	return false
}

// updatePseudocost spreads the gain of the relaxation since the last
// node with a solved relaxation over the branching changes in between.
func (s *Solver) updatePseudocost() {
	focus := s.tree.Focus()
	fork := focus.LPFork()
	if fork == nil || !s.lp.IsSolved() || s.lp.Status() != bnb.Optimal {
		return
	}
	var updates []tree.BoundChg
	seen := map[int]bool{}
	path := focus.Path()
	for _, n := range path[fork.Depth+1:] {
		for _, c := range n.DomChgs {
			if !c.Branching || seen[c.Var] {
				continue
			}
			seen[c.Var] = true
			if s.pseudocostUpdateValid(c) {
				updates = append(updates, c)
			}
		}
	}
	weight := 1.0
	if len(updates) > 0 {
		weight = 1 / float64(len(updates))
	}
	gain := math.Max((s.lp.ObjVal()-fork.LowerBound)*weight, 0)
	for _, c := range updates {
		s.pscost.update(c.Var, s.lp.Value(c.Var)-c.LPSolVal, gain, weight)
	}
}

// updateEstimate sets the node estimate from the pseudo costs of the
// fractional variables.
func (s *Solver) updateEstimate() {
	if s.lp.Status() != bnb.Optimal || !s.lp.IsRelax() {
		return
	}
	focus := s.tree.Focus()
	est := focus.LowerBound
	for _, c := range s.lpCands() {
		est += math.Min(s.pscost.value(c.Var, -c.Frac), s.pscost.value(c.Var, 1-c.Frac))
	}
	focus.SetEstimate(est)
}

// priceCut is the state of one price-and-cut loop.
type priceCut struct {
	lpOutcome
	mustPrice   bool
	mustSepa    bool
	delayedSepa bool
	enoughCuts  bool
	nPricedVars int
}

// resolve solves the relaxation again if bound changes unflushed it.
func (s *Solver) resolve(pc *priceCut) {
	if !pc.cutoff && !s.lp.IsFlushed() {
		pc.lperror = s.solveLP() || pc.lperror
		pc.mustSepa = true
		pc.mustPrice = true
	}
}

// addProbVars stores the problem variables that are missing from the
// relaxation.
func (s *Solver) addProbVars() {
	for j := range s.prob.Vars {
		if !s.lp.HasCol(j) {
			s.pricestore.AddProbVar(j, s.lb[j], s.ub[j])
		}
	}
}

// priceLoop prices columns into the relaxation until no pricer finds
// new ones. The relaxation is only a valid bound if pricing completed.
func (s *Solver) priceLoop(root bool, maxRounds int, pc *priceCut) (lowerBound float64, err error) {
	lowerBound = math.Inf(-1)
	pc.nPricedVars = len(s.prob.Vars)
	pc.pricingAborted = false
	if maxRounds < 0 {
		maxRounds = math.MaxInt
	}
	improvable := func() bool {
		st := s.lp.Status()
		return st == bnb.Optimal || st == bnb.InfeasibleLP || st == bnb.ObjLimit
	}
	mustPrice := improvable() && !s.allColsInLP()

	rounds := 0
	for !pc.lperror && mustPrice && rounds < maxRounds {
		if s.isStopped(false) {
			s.log.Warn("pricing has been interrupted, the relaxation of the current node is invalid")
			pc.pricingAborted = true
			break
		}
		if _, err := s.primalHeuristics(nil, false, bnb.DuringPricingLoop); err != nil {
			return lowerBound, err
		}

		s.addProbVars()
		pc.nPricedVars = len(s.prob.Vars)

		maxVars := s.set.MaxPriceVars(root)
		enough := s.pricestore.Len() >= maxVars/2+1
		for _, p := range s.pricers {
			if enough {
				break
			}
			lb, res, err := p.Price(env{s})
			if err != nil {
				return lowerBound, err
			}
			if res != bnb.Success && res != bnb.DidNotRun {
				return lowerBound, bnb.InvalidResultError{Plugin: p.Name(), Call: "pricing", Result: res}
			}
			enough = enough || s.pricestore.Len() >= (maxVars+1)/2
			pc.pricingAborted = pc.pricingAborted || res == bnb.DidNotRun
			if !math.IsNaN(lb) {
				lowerBound = math.Max(lowerBound, lb)
			}
		}

		if _, err := s.pricestore.Apply(priceTarget{s}); err != nil {
			return lowerBound, err
		}
		mustPrice = !s.lp.IsFlushed() || len(s.prob.Vars) != pc.nPricedVars
		pc.mustSepa = pc.mustSepa || !s.lp.IsFlushed()
		pc.lperror = s.solveLP() || pc.lperror

		s.pricestore.ResetBounds(priceTarget{s})
		if _, err := s.initConssLP(); err != nil {
			return lowerBound, err
		}
		mustPrice = mustPrice || !s.lp.IsFlushed() || len(s.prob.Vars) != pc.nPricedVars
		pc.mustSepa = pc.mustSepa || !s.lp.IsFlushed()
		pc.lperror = s.solveLP() || pc.lperror

		s.stats.PriceRounds++
		rounds++
		mustPrice = mustPrice && improvable()
	}

	st := s.lp.Status()
	pc.pricingAborted = pc.pricingAborted || pc.lperror || st == bnb.NotSolved || st == bnb.Error || rounds == maxRounds
	s.lp.SetIsRelax(!pc.pricingAborted)
	return lowerBound, nil
}

// separationRoundLP calls the separators with non-negative priority, the
// constraint handlers and the separators with negative priority against
// the relaxation solution. A delayed-only round returns at the first
// success.
func (s *Solver) separationRoundLP(depth int, boundDist float64, onlyDelayed bool, pc *priceCut) error {
	root := depth == 0
	maxCuts := s.set.MaxCuts(root)
	e := env{s}
	pc.delayedSepa = false
	pc.enoughCuts = s.sepastore.Len() >= 2*maxCuts
	consAdded := false

	canSepa := func() bool {
		st := s.lp.Status()
		return !pc.cutoff && !pc.lperror && !pc.enoughCuts && s.lp.IsFlushed() && s.lp.IsSolved() &&
			(st == bnb.Optimal || st == bnb.UnboundedRay)
	}
	// record folds a result into the round and reports whether a
	// delayed-only round has to stop.
	record := func(res bnb.Result) bool {
		pc.cutoff = pc.cutoff || res == bnb.Cutoff
		consAdded = consAdded || res == bnb.ConsAdded
		pc.enoughCuts = pc.enoughCuts || s.sepastore.Len() >= 2*maxCuts
		pc.delayedSepa = pc.delayedSepa || res == bnb.Delayed
		s.resolve(pc)
		if onlyDelayed && (res == bnb.ConsAdded || res == bnb.ReducedDom || res == bnb.Separated) {
			pc.delayedSepa = true
			return true
		}
		return false
	}

	for _, p := range s.sepas {
		if !canSepa() {
			break
		}
		if p.Priority() < 0 {
			continue
		}
		res, err := p.exec(e, depth, boundDist, onlyDelayed)
		if err != nil {
			return err
		}
		if record(res) {
			return nil
		}
	}
	for _, h := range s.conshdlrs {
		if !canSepa() {
			break
		}
		res, err := h.separate(e, depth, onlyDelayed)
		if err != nil {
			return err
		}
		if record(res) {
			return nil
		}
	}
	for _, p := range s.sepas {
		if !canSepa() {
			break
		}
		if p.Priority() >= 0 {
			continue
		}
		res, err := p.exec(e, depth, boundDist, onlyDelayed)
		if err != nil {
			return err
		}
		if record(res) {
			return nil
		}
	}

	for consAdded {
		consAdded = false
		for _, h := range s.conshdlrs {
			if !canSepa() {
				break
			}
			res, err := h.separate(e, depth, onlyDelayed)
			if err != nil {
				return err
			}
			pc.cutoff = pc.cutoff || res == bnb.Cutoff
			consAdded = consAdded || res == bnb.ConsAdded
			pc.enoughCuts = pc.enoughCuts || s.sepastore.Len() >= 2*maxCuts
			pc.delayedSepa = pc.delayedSepa || res == bnb.Delayed
			s.resolve(pc)
		}
	}
	return nil
}

// boundDist is the relative position of the node bound between the
// global lower bound and the cutoff bound.
func (s *Solver) boundDist() float64 {
	clamp := func(v float64) float64 {
		return math.Max(-s.tol.Infinity, math.Min(s.tol.Infinity, v))
	}
	loc := clamp(s.tree.Focus().LowerBound)
	glb := clamp(s.tree.LowerBound())
	cutoff := clamp(s.primal.cutoffBound())
	if cutoff-glb <= 0 {
		return 0
	}
	return (loc - glb) / (cutoff - glb)
}

func (s *Solver) poolRound(depth int) bool {
	f := s.set.Separating.PoolFreq
	return (f == 0 && depth == 0) || (f > 0 && depth%f == 0)
}

// priceAndCutLoop solves the relaxation of the focus node, alternating
// pricing and separation rounds until neither finds anything.
func (s *Solver) priceAndCutLoop(initialLPSolved bool) (lpOutcome, error) {
	focus := s.tree.Focus()
	depth := focus.Depth
	root := depth == 0
	sepa := s.set.Separating

	boundDist := s.boundDist()
	separate := s.tol.IsLE(boundDist, sepa.MaxBoundDist) && (sepa.MaxRuns == -1 || s.stats.Runs <= sepa.MaxRuns)

	maxRounds := sepa.MaxRounds
	if root {
		maxRounds = sepa.MaxRoundsRoot
	}
	if maxRounds == -1 {
		maxRounds = math.MaxInt
	}
	if s.stats.Runs > 1 && root && sepa.MaxRoundsRootSubrun >= 0 {
		maxRounds = min(maxRounds, sepa.MaxRoundsRootSubrun)
	}
	if initialLPSolved && sepa.MaxAddRounds >= 0 {
		maxRounds = min(maxRounds, s.nodeSepaRounds+sepa.MaxAddRounds)
	}
	stall := newStallTracker(sepa.MaxStallRounds)

	pc := &priceCut{mustPrice: true, mustSepa: separate}
	pc.lperror = s.solveLP()
	s.lp.SetInstalling(false)

	sepaStatus := func() bool {
		st := s.lp.Status()
		return s.lp.IsSolved() && (st == bnb.Optimal || st == bnb.UnboundedRay)
	}

	for !pc.cutoff && !pc.lperror && (pc.mustPrice || pc.mustSepa || pc.delayedSepa) {
		for pc.mustPrice && !pc.lperror {
			oldLB := s.tree.LowerBound()
			lb, err := s.priceLoop(root, -1, pc)
			if err != nil {
				return pc.lpOutcome, err
			}
			pc.mustPrice = false
			s.updateLowerBound(lb)
			if !pc.lperror && !pc.pricingAborted {
				s.updateLowerBoundLP()
				s.updateEstimate()
			}
			if !pc.lperror {
				newLB := s.tree.LowerBound()
				if s.tol.IsGT(newLB, oldLB) && s.tol.IsLT(focus.LowerBound, s.primal.cutoffBound()) {
					s.log.Debugf("global lower bound changed from %g to %g, propagating again", oldLB, newLB)
					cutoff, err := s.propagateDomains(depth, 0, false)
					if err != nil {
						return pc.lpOutcome, err
					}
					pc.cutoff = cutoff
					if !s.lp.IsFlushed() && !pc.cutoff {
						pc.lperror = s.solveLP()
						pc.mustPrice = true
					}
				}
			}
			if s.lp.Status() == bnb.Optimal {
				if _, err := s.primalHeuristics(nil, false, bnb.DuringLPLoop); err != nil {
					return pc.lpOutcome, err
				}
			}
		}

		pc.mustSepa = pc.mustSepa && s.nodeSepaRounds < maxRounds && !stall.stalled() && !pc.cutoff
		pc.delayedSepa = pc.delayedSepa && !pc.mustSepa && !pc.cutoff
		pc.mustSepa = pc.mustSepa || pc.delayedSepa
		if pc.mustSepa {
			st := s.lp.Status()
			if !separate || (st != bnb.Optimal && st != bnb.UnboundedRay) ||
				s.tol.IsGE(focus.LowerBound, s.primal.cutoffBound()) || (root && s.isStopped(false)) {
				pc.mustSepa = false
				pc.delayedSepa = false
			}
		}
		if pc.cutoff || pc.lperror || !pc.mustSepa {
			continue
		}

		oldDomChgs := s.stats.DomChgCount
		pc.mustSepa = false
		pc.enoughCuts = s.set.MaxCuts(root) == 0

		if !pc.enoughCuts && !pc.delayedSepa && s.poolRound(depth) {
			s.cutpool.Separate(s.sepastore, s.lp.Value, s.tol)
			pc.enoughCuts = s.sepastore.Len() >= 2*s.set.MaxCuts(root)
		}
		if !pc.cutoff && !pc.lperror && !pc.enoughCuts && sepaStatus() {
			if err := s.separationRoundLP(depth, boundDist, pc.delayedSepa, pc); err != nil {
				return pc.lpOutcome, err
			}
			if !pc.cutoff && !pc.lperror && !pc.enoughCuts && sepaStatus() && stall.nearCap() && pc.delayedSepa {
				if err := s.separationRoundLP(depth, boundDist, true, pc); err != nil {
					return pc.lpOutcome, err
				}
			}
		}

		switch st := s.lp.Status(); {
		case pc.cutoff, pc.lperror, st == bnb.InfeasibleLP, st == bnb.ObjLimit, st == bnb.IterLimit, st == bnb.TimeLimitLP:
			s.sepastore.Clear()
		default:
			_, pc.cutoff = s.sepastore.Apply(cutTarget{s}, s.cutpool, s.set.MaxCuts(root))
			if pc.cutoff {
				break
			}
			pc.mustPrice = pc.mustPrice || !s.lp.IsFlushed() || len(s.prob.Vars) != pc.nPricedVars
			pc.mustSepa = pc.mustSepa || !s.lp.IsFlushed()
			if s.stats.DomChgCount != oldDomChgs {
				cutoff, err := s.propagateDomains(depth, 0, false)
				if err != nil {
					return pc.lpOutcome, err
				}
				pc.cutoff = cutoff
			}
			if pc.cutoff {
				break
			}
			pc.lperror = s.solveLP()
			if !pc.lperror && s.lp.Status() == bnb.Optimal {
				stall.observe(s.lp.ObjVal(), len(s.lpCands()))
				s.lp.SetInstalling(stall.installing())
			}
		}
		s.nodeSepaRounds++
		s.stats.SepaRounds++
	}

	switch {
	case pc.cutoff:
		s.updateLowerBound(math.Inf(1))
	case !pc.lperror:
		s.updateLowerBoundLP()
		s.updateEstimate()
		st := s.lp.Status()
		if st != bnb.IterLimit && st != bnb.TimeLimitLP {
			s.trace(bnb.LPSolved)
		}
		if !s.set.Exact && !root && s.lp.IsRelax() && (st == bnb.InfeasibleLP || st == bnb.ObjLimit) {
			s.analyzeConflict(false)
		}
		if st == bnb.UnboundedRay {
			pc.unbounded = true
		}
	}
	s.lp.SetInstalling(false)
	return pc.lpOutcome, nil
}

// solveNodeLP solves the relaxation of the focus node with the
// price-and-cut loop. If pricing was aborted and the relaxation hit the
// objective limit, it is solved once more without the limit, since the
// limit status does not prove the subtree infeasible.
func (s *Solver) solveNodeLP(initialLPSolved bool) (out lpOutcome, err error) {
	if !initialLPSolved {
		out.cutoff, out.lperror, err = s.solveNodeInitialLP()
		if err != nil {
			return out, err
		}
		st := s.lp.Status()
		if s.focusDepth() == 0 && !out.cutoff && !out.lperror &&
			(st == bnb.Optimal || st == bnb.UnboundedRay) && !s.isStopped(false) {
			stored, err := s.primal.trySol(s.currentSolution())
			if err != nil {
				return out, err
			}
			if stored && s.allColsInLP() {
				s.updateLowerBoundLP()
				out.cutoff = s.applyBounding(out.cutoff)
			}
			if st == bnb.UnboundedRay {
				out.unbounded = true
			}
		}
	}

	if !out.cutoff && !out.lperror {
		pc, err := s.priceAndCutLoop(initialLPSolved)
		if err != nil {
			return out, err
		}
		out.cutoff, out.lperror, out.pricingAborted = pc.cutoff, pc.lperror, pc.pricingAborted
		out.unbounded = out.unbounded || pc.unbounded
	}

	if out.pricingAborted && s.lp.Status() == bnb.ObjLimit && !out.cutoff {
		s.stats.PricingAbortResolves++
		s.stats.LPs++
		if _, err := s.lp.SolveWithoutCutoff(s.deadline); err != nil {
			s.stats.LPErrors++
			s.log.WithError(err).Warnf("(node %d) numerical troubles resolving LP without cutoff bound", s.focusID())
			out.lperror = true
		}
		if s.lp.Status() == bnb.InfeasibleLP {
			out.cutoff = true
		}
	}
	return out, nil
}
