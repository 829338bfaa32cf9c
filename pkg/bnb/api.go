package bnb

import (
	"fmt"
	"strings"
)

// Result is the outcome reported by a plugin callback. Each call site
// accepts only a subset of the values; anything else is rejected with an
// InvalidResultError.
type Result int

const (
	DidNotRun Result = iota
	Delayed
	DidNotFind
	Feasible
	Infeasible
	Unbounded
	Cutoff
	Separated
	ReducedDom
	ConsAdded
	Branched
	SolveLP
	FoundSol
	Suspended
	Success
)

var resultNames = [...]string{
	DidNotRun:  "did-not-run",
	Delayed:    "delayed",
	DidNotFind: "did-not-find",
	Feasible:   "feasible",
	Infeasible: "infeasible",
	Unbounded:  "unbounded",
	Cutoff:     "cutoff",
	Separated:  "separated",
	ReducedDom: "reduced-domain",
	ConsAdded:  "constraint-added",
	Branched:   "branched",
	SolveLP:    "solve-relaxation",
	FoundSol:   "found-solution",
	Suspended:  "suspended",
	Success:    "success",
}

func (r Result) String() string {
	if r >= 0 && int(r) < len(resultNames) {
		return resultNames[r]
	}
	return fmt.Sprintf("result(%d)", int(r))
}

// SolStat is the status of the most recent relaxation solve.
type SolStat int

const (
	NotSolved SolStat = iota
	Optimal
	InfeasibleLP
	UnboundedRay
	ObjLimit
	IterLimit
	TimeLimitLP
	Error
)

var solStatNames = [...]string{
	NotSolved:    "not-solved",
	Optimal:      "optimal",
	InfeasibleLP: "infeasible",
	UnboundedRay: "unbounded",
	ObjLimit:     "objective-limit",
	IterLimit:    "iteration-limit",
	TimeLimitLP:  "time-limit",
	Error:        "error",
}

func (s SolStat) String() string {
	if s >= 0 && int(s) < len(solStatNames) {
		return solStatNames[s]
	}
	return fmt.Sprintf("solstat(%d)", int(s))
}

// Status is the search status of a solve run.
type Status int

const (
	StatusUnknown Status = iota
	StatusUserInterrupt
	StatusNodeLimit
	StatusStallNodeLimit
	StatusTimeLimit
	StatusMemLimit
	StatusGapLimit
	StatusSolLimit
	StatusBestSolLimit
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusInfOrUnbd
)

var statusNames = [...]string{
	StatusUnknown:        "unknown",
	StatusUserInterrupt:  "user-interrupt",
	StatusNodeLimit:      "node-limit",
	StatusStallNodeLimit: "stall-node-limit",
	StatusTimeLimit:      "time-limit",
	StatusMemLimit:       "memory-limit",
	StatusGapLimit:       "gap-limit",
	StatusSolLimit:       "solution-limit",
	StatusBestSolLimit:   "best-solution-limit",
	StatusOptimal:        "optimal",
	StatusInfeasible:     "infeasible",
	StatusUnbounded:      "unbounded",
	StatusInfOrUnbd:      "infeasible-or-unbounded",
}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// HeurTiming is a bitset of the points in node processing at which a
// primal heuristic wants to be called.
type HeurTiming uint

const (
	BeforeNode HeurTiming = 1 << iota
	DuringLPLoop
	AfterLPLoop
	AfterLPNode
	AfterPseudoNode
	AfterLPPlunge
	AfterPseudoPlunge
	DuringPricingLoop
	BeforePresol
	DuringPresolLoop
	AfterPropLoop

	// AfterNode is replaced by the matching AfterLP*/AfterPseudo* bits
	// when heuristics are called after a node.
	AfterNode = AfterLPNode | AfterPseudoNode
)

var timingNames = []struct {
	t    HeurTiming
	name string
}{
	{BeforeNode, "before-node"},
	{DuringLPLoop, "during-lp-loop"},
	{AfterLPLoop, "after-lp-loop"},
	{AfterLPNode, "after-lp-node"},
	{AfterPseudoNode, "after-pseudo-node"},
	{AfterLPPlunge, "after-lp-plunge"},
	{AfterPseudoPlunge, "after-pseudo-plunge"},
	{DuringPricingLoop, "during-pricing-loop"},
	{BeforePresol, "before-presol"},
	{DuringPresolLoop, "during-presol-loop"},
	{AfterPropLoop, "after-prop-loop"},
}

func (t HeurTiming) String() string {
	var s []string
	for _, n := range timingNames {
		if t&n.t != 0 {
			s = append(s, n.name)
		}
	}
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, "|")
}
