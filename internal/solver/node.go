package solver

import (
	"fmt"
	"math"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// nodePhase is a step of one pass over the focus node.
type nodePhase int

const (
	phasePropagating nodePhase = iota
	phaseRelaxingPre
	phaseSolvingLP
	phaseRelaxingPost
	phaseEnforcing
	phaseBranching
	phaseDone
)

var phaseNames = [...]string{
	phasePropagating:  "propagating",
	phaseRelaxingPre:  "relaxing-pre",
	phaseSolvingLP:    "solving-lp",
	phaseRelaxingPost: "relaxing-post",
	phaseEnforcing:    "enforcing",
	phaseBranching:    "branching",
	phaseDone:         "done",
}

func (p nodePhase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// nodeState is the state of the focus node while it is solved. The again
// flags ask for another pass; the plain flags hold the work of the
// current pass.
type nodeState struct {
	depth int
	phase nodePhase

	cutoff        bool
	unbounded     bool
	infeasible    bool
	restart       bool
	afterNodeHeur bool

	propagateAgain  bool
	solveRelaxAgain bool
	solveLPAgain    bool

	propagate         bool
	solveRelax        bool
	solveLP           bool
	fullPropagation   bool
	initialLPSolved   bool
	pricingAborted    bool
	forcedLPSolve     bool
	forcedEnforcement bool
	branched          bool

	nlperrors int
	nloops    int

	// solution identity at the last enforcement
	lastDomChgs int64
	lastLPs     int64
}

func (st *nodeState) again() bool {
	return st.propagateAgain || st.solveRelaxAgain || st.solveLPAgain
}

// startPass moves the again flags into the work of the new pass.
func (st *nodeState) startPass() {
	st.nloops++
	st.propagate, st.propagateAgain = st.propagateAgain, false
	st.solveRelax, st.solveRelaxAgain = st.solveRelaxAgain, false
	st.solveLP, st.solveLPAgain = st.solveLPAgain, false
	st.forcedEnforcement = false
	st.branched = false
}

// recordLP takes over the outcome of an LP phase. An unbounded ray seen
// by an earlier LP phase of the node is kept.
func (st *nodeState) recordLP(out lpOutcome) {
	st.unbounded = st.unbounded || out.unbounded
	st.pricingAborted = out.pricingAborted
	st.cutoff = st.cutoff || out.cutoff
}

// wantLP decides whether the focus node solves its LP relaxation.
func (s *Solver) wantLP(depth int) bool {
	set := s.set.LP
	has := (set.SolveDepth == -1 || depth <= set.SolveDepth) && set.SolveFreq >= 1 && depth%set.SolveFreq == 0
	has = has || (depth == 0 && set.SolveFreq == 0)
	return has && s.tol.IsLT(s.pseudoObjective(), s.primal.cutoffBound())
}

// applyCuts moves the cuts of the separation store into the relaxation,
// or drops them if the node is cut off.
func (s *Solver) applyCuts(cutoff bool) (newCutoff, propagateAgain, solveLPAgain bool) {
	if cutoff {
		s.sepastore.Clear()
		return true, false, false
	}
	if s.sepastore.Len() == 0 {
		return false, false, false
	}
	old := s.stats.DomChgCount
	_, cutoff = s.sepastore.Apply(cutTarget{s}, s.cutpool, s.set.MaxCuts(s.focusDepth() == 0))
	return cutoff, s.stats.DomChgCount != old, true
}

func (s *Solver) applyNodeCuts(st *nodeState) {
	cutoff, propagateAgain, solveLPAgain := s.applyCuts(st.cutoff)
	st.cutoff = cutoff
	st.propagateAgain = st.propagateAgain || propagateAgain
	st.solveLPAgain = st.solveLPAgain || solveLPAgain
}

// updateLoopStatus picks up a cut off path, bound changes since the last
// propagation and relaxators that still have to run. After branching no
// further pass is needed.
func (s *Solver) updateLoopStatus(st *nodeState) {
	st.cutoff = st.cutoff || s.tree.CutoffDepth() <= st.depth
	if s.tree.NChildren() == 0 {
		st.propagateAgain = st.propagateAgain || s.tree.Focus().NeedsRepropagation()
		st.solveRelaxAgain = st.solveRelaxAgain || !s.relaxsSolved()
	} else {
		st.propagateAgain = false
		st.solveRelaxAgain = false
	}
}

func (s *Solver) restartAllowed() bool {
	limit := s.set.Restarts.MaxRestarts
	return (limit == -1 || s.stats.Runs <= limit) && len(s.pricers) == 0
}

// restartDue reports whether enough integral variables were fixed at the
// root of this run to start over.
func (s *Solver) restartDue(fac float64) bool {
	if !s.restartAllowed() {
		return false
	}
	return float64(s.stats.RootIntFixingsRun) > fac*float64(s.runIntVars) &&
		(s.stats.Runs == 1 || float64(s.stats.RunVars) <= (1-s.set.Restarts.RestartMinRed)*float64(s.stats.PrevRunVars))
}

func (s *Solver) finalRestartFac(depth int) float64 {
	fac := s.set.Restarts.SubRestartFac
	if depth == 0 {
		fac = math.Min(fac, s.set.Restarts.RestartFac)
	}
	return fac
}

// solveNode solves the focus node. Passes over the node are repeated
// until no propagation, relaxation or LP work is left, the node is cut
// off or a restart is due.
func (s *Solver) solveNode() (*nodeState, error) {
	focus := s.tree.Focus()
	st := &nodeState{
		depth:           focus.Depth,
		cutoff:          s.tree.CutoffDepth() <= focus.Depth,
		propagateAgain:  true,
		solveRelaxAgain: true,
		solveLPAgain:    true,
		fullPropagation: true,
		lastDomChgs:     s.stats.DomChgCount,
		lastLPs:         s.stats.LPs,
	}
	s.externCands = nil
	s.nodeSepaRounds = 0
	s.focusLP = s.wantLP(st.depth)

	if _, err := s.primalHeuristics(nil, false, bnb.BeforeNode); err != nil {
		return st, err
	}

	for !st.cutoff && st.again() && st.nlperrors < s.set.MaxLPErrors && !st.restart {
		st.startPass()
		scope, err := s.sepastore.Open("node pass")
		if err != nil {
			return st, err
		}
		for st.phase = phasePropagating; st.phase != phaseDone; {
			next, err := s.runPhase(st)
			if err != nil {
				s.sepastore.Clear()
				s.log.Debugf("(node %d) solving stopped in phase %s", focus.ID, st.phase)
				return st, err
			}
			st.phase = next
		}
		if err := scope.Close(); err != nil {
			return st, err
		}

		st.restart = st.restart || (st.depth == 0 && s.restartDue(s.set.Restarts.ImmRestartFac))
		s.log.Debugf("node solving loop %d: cutoff=%t propagate=%t relax=%t lp=%t lperrors=%d restart=%t",
			st.nloops, st.cutoff, st.propagateAgain, st.solveRelaxAgain, st.solveLPAgain, st.nlperrors, st.restart)
	}

	s.conflict.Flush()

	if st.nlperrors >= s.set.MaxLPErrors {
		return st, bnb.LPError{Node: focus.ID, LP: s.stats.LPs, Errors: st.nlperrors, Reason: "aborting"}
	}

	st.restart = st.restart || s.restartDue(s.finalRestartFac(st.depth))

	if st.cutoff {
		focus.UpdateLowerBound(math.Inf(1))
		st.infeasible = true
		st.restart = false
	}
	return st, nil
}

func (s *Solver) runPhase(st *nodeState) (nodePhase, error) {
	switch st.phase {
	case phasePropagating:
		return s.propagatePhase(st)
	case phaseRelaxingPre:
		return phaseSolvingLP, s.relaxPhase(st, true)
	case phaseSolvingLP:
		return s.lpPhase(st)
	case phaseRelaxingPost:
		return s.relaxPostPhase(st)
	case phaseEnforcing:
		return s.enforcePhase(st)
	case phaseBranching:
		return s.branchPhase(st)
	}
	return phaseDone, nil
}

func (s *Solver) propagatePhase(st *nodeState) (nodePhase, error) {
	st.cutoff = s.applyBounding(st.cutoff)

	if st.propagate && !st.cutoff {
		wasFlushed := s.lp.IsFlushed()
		oldBoundChgs := s.stats.BoundChanges
		cutoff, err := s.propagateDomains(st.depth, 0, st.fullPropagation)
		if err != nil {
			return phaseDone, err
		}
		st.fullPropagation = false
		st.cutoff = st.cutoff || cutoff || s.tree.CutoffDepth() <= st.depth
		st.solveLP = st.solveLP || (wasFlushed && !s.lp.IsFlushed())
		st.solveRelax = st.solveRelax || s.stats.BoundChanges > oldBoundChgs
		st.cutoff = s.applyBounding(st.cutoff)
	}

	if !st.cutoff {
		found, err := s.primalHeuristics(nil, false, bnb.AfterPropLoop)
		if err != nil {
			return phaseDone, err
		}
		st.propagateAgain = st.propagateAgain || found
	}
	return phaseRelaxingPre, nil
}

func (s *Solver) relaxPhase(st *nodeState, beforeLP bool) error {
	if !st.solveRelax || st.cutoff {
		return nil
	}
	if beforeLP {
		s.externCands = nil
	}
	if err := s.solveNodeRelax(st.depth, beforeLP, st); err != nil {
		return err
	}
	st.cutoff = st.cutoff || s.tree.CutoffDepth() <= st.depth
	s.applyNodeCuts(st)
	st.cutoff = s.applyBounding(st.cutoff)
	return nil
}

func (s *Solver) lpPhase(st *nodeState) (nodePhase, error) {
	if !st.solveLP || st.cutoff || !s.focusHasLP() {
		return phaseRelaxingPost, nil
	}
	out, err := s.solveNodeLP(st.initialLPSolved)
	if err != nil {
		return phaseDone, err
	}
	st.initialLPSolved = true
	st.recordLP(out)
	st.cutoff = st.cutoff || s.tree.CutoffDepth() <= st.depth

	focus := s.tree.Focus()
	if !out.lperror {
		focus.HasLP = true
		focus.LPObj = s.lp.ObjVal()
	} else {
		if st.forcedLPSolve {
			return phaseDone, bnb.LPError{Node: focus.ID, LP: s.stats.LPs, Reason: "forced relaxation solve failed"}
		}
		s.focusLP = false
		st.nlperrors++
		s.log.Warnf("(node %d) unresolved numerical troubles in LP %d, using pseudo solution instead (loop %d)",
			focus.ID, s.stats.LPs, st.nlperrors)
	}

	if stat := s.lp.Status(); stat == bnb.TimeLimitLP || stat == bnb.IterLimit {
		s.focusLP = false
		st.forcedEnforcement = true
	}

	if !st.cutoff && !out.lperror && s.set.Exact && s.lp.Status() == bnb.InfeasibleLP &&
		focus.LowerBound < s.primal.cutoffBound() {
		npseudo := len(s.pseudoCands())
		if npseudo == 0 && s.hasContinuous() {
			return phaseDone, fmt.Errorf("could not prove infeasibility of LP %d with %d continuous variables: %w",
				s.stats.LPs, s.prob.NContinuous(), bnb.ErrExactLPUnavailable)
		}
		s.focusLP = false
		s.log.Debugf("could not prove infeasibility of LP %d, using pseudo solution (%d unfixed variables) instead",
			s.stats.LPs, npseudo)
	}

	st.cutoff = s.applyBounding(st.cutoff)
	return phaseRelaxingPost, nil
}

func (s *Solver) relaxPostPhase(st *nodeState) (nodePhase, error) {
	if err := s.relaxPhase(st, false); err != nil {
		return phaseDone, err
	}
	s.updateLoopStatus(st)

	// the first pass at the root of the first run also calls the after
	// node heuristics, which are then skipped after the node
	if !st.cutoff || s.tree.NOpen() > 0 {
		timing := bnb.AfterLPLoop
		if st.depth == 0 && s.stats.Runs == 1 && st.nloops == 1 {
			timing |= bnb.AfterNode
			st.afterNodeHeur = true
		}
		found, err := s.primalHeuristics(nil, false, timing)
		if err != nil {
			return phaseDone, err
		}
		st.cutoff = s.applyBounding(st.cutoff)
		if found {
			st.propagateAgain = true
			st.solveLPAgain = true
			st.solveRelaxAgain = true
			s.markRelaxsUnsolved()
		}
	}
	return phaseEnforcing, nil
}

func (s *Solver) enforcePhase(st *nodeState) (nodePhase, error) {
	if !st.cutoff && !st.again() {
		// a changed solution is enforced from scratch; otherwise only the
		// constraints added by the last enforcement are new and the
		// infeasible flag is kept
		if st.lastDomChgs != s.stats.DomChgCount || st.lastLPs != s.stats.LPs {
			st.lastDomChgs = s.stats.DomChgCount
			st.lastLPs = s.stats.LPs
			st.infeasible = false
		}
		out, err := s.enforceConstraints(st.infeasible, st.forcedEnforcement)
		if err != nil {
			return phaseDone, err
		}
		st.branched = out.branched
		st.cutoff = st.cutoff || out.cutoff
		st.infeasible = out.infeasible
		st.propagateAgain = st.propagateAgain || out.propagateAgain
		st.solveLPAgain = st.solveLPAgain || out.solveLPAgain
		st.solveRelaxAgain = st.solveRelaxAgain || out.solveRelaxAgain
		st.cutoff = s.applyBounding(st.cutoff)
		s.updateLoopStatus(st)
	}

	// a feasible node after aborted pricing need not be optimal for its
	// subtree, so it is branched on
	if st.pricingAborted && !st.infeasible && !st.cutoff {
		if _, err := s.primal.trySol(s.currentSolution()); err != nil {
			return phaseDone, err
		}
		st.infeasible = true
	}
	return phaseBranching, nil
}

func (s *Solver) branchPhase(st *nodeState) (nodePhase, error) {
	st.forcedLPSolve = false
	if !st.infeasible || st.cutoff || st.unbounded || st.again() || st.branched {
		return phaseDone, nil
	}

	res, nlpcands, err := s.branch()
	if err != nil {
		return phaseDone, err
	}
	switch res {
	case bnb.Cutoff:
		st.cutoff = true
	case bnb.ConsAdded, bnb.ReducedDom:
		if res == bnb.ConsAdded && nlpcands > 0 {
			return phaseDone, bnb.InvalidResultError{Plugin: "branching", Call: "LP branching", Result: res}
		}
		st.propagateAgain = true
		st.solveLPAgain = true
		st.solveRelaxAgain = true
		s.markRelaxsUnsolved()
	case bnb.Separated:
		st.solveLPAgain = true
		st.solveRelaxAgain = true
		s.markRelaxsUnsolved()
	case bnb.Branched:
		st.branched = true
	case bnb.DidNotRun:
		if err := s.unbranchable(st); err != nil {
			return phaseDone, err
		}
	default:
		return phaseDone, bnb.InvalidResultError{Plugin: "branching", Call: "branching", Result: res}
	}

	s.applyNodeCuts(st)
	st.cutoff = s.applyBounding(st.cutoff)
	s.updateLoopStatus(st)
	return phaseDone, nil
}

// unbranchable handles an infeasible node whose integral variables are
// all fixed. Without continuous variables and pricers the node is fully
// enumerated and cut off. Otherwise the LP has to be solved, unless a
// limit was hit, in which case the subtree is closed by a single child.
func (s *Solver) unbranchable(st *nodeState) error {
	if !s.hasContinuous() && len(s.pricers) == 0 {
		st.cutoff = true
		return nil
	}
	if stat := s.lp.Status(); stat == bnb.TimeLimitLP || stat == bnb.IterLimit || s.isStopped(false) {
		s.passThroughChild()
		st.branched = true
		return nil
	}
	if st.pricingAborted {
		return bnb.ErrPricingAbortedNoBranch
	}
	s.log.Infof("(node %d) forcing the solution of an LP", s.focusID())
	s.focusLP = true
	st.solveLPAgain = true
	st.forcedLPSolve = true
	return nil
}
