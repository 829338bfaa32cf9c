package bnb

import "github.com/sirupsen/logrus"

// Plugin is the common part of every callback collaborator. Plugins of one
// kind are called in order of decreasing priority; ties keep registration
// order. For propagators, separators and relaxators the sign of the
// priority also selects the phase the plugin runs in.
type Plugin interface {
	Name() string
	Priority() int
}

// Propagator tightens variable domains. Valid results: DidNotRun,
// DidNotFind, Delayed, ReducedDom, Cutoff.
type Propagator interface {
	Plugin
	Propagate(env Env, depth int, onlyDelayed bool) (Result, error)
}

// Separator adds cuts violated by the relaxation solution. Valid results:
// DidNotRun, DidNotFind, Delayed, Separated, ReducedDom, ConsAdded, Cutoff.
type Separator interface {
	Plugin
	Separate(env Env, depth int, boundDist float64, onlyDelayed bool) (Result, error)
}

// ConstraintHandler owns a class of constraints and guarantees that every
// accepted solution satisfies them.
type ConstraintHandler interface {
	Plugin
	// InitLP adds the relaxation rows of the handler's initial constraints
	// through Env.AddCut.
	InitLP(env Env) error
	Propagate(env Env, depth int, full, onlyDelayed bool) (Result, error)
	Separate(env Env, depth int, onlyDelayed bool) (Result, error)
	EnforceLP(env Env, infeasible bool) (Result, error)
	EnforcePseudo(env Env, infeasible, objInfeasible, forced bool) (Result, error)
	Check(env Env, sol []float64) (bool, error)
}

// Relaxator computes a bound from a relaxation other than the LP. Valid
// results: DidNotRun, Success, Suspended, Separated, ReducedDom,
// ConsAdded, Cutoff.
type Relaxator interface {
	Plugin
	Relax(env Env, depth int) (lowerBound float64, res Result, err error)
}

// Pricer generates new columns through Env.AddVar. It returns DidNotRun
// when it could not complete a pricing pass, or Success together with a
// valid lower bound for the node.
type Pricer interface {
	Plugin
	Price(env Env) (lowerBound float64, res Result, err error)
}

// Candidate is a branching candidate.
type Candidate struct {
	Var   int
	Val   float64
	Frac  float64
	Score float64
}

// BranchRule decides how to split a node. Returning DidNotRun lets the
// next rule, and finally the built-in fallback, handle the candidates.
type BranchRule interface {
	Plugin
	BranchLP(env Env, cands []Candidate, allowAddCons bool) (Result, error)
	BranchExtern(env Env, cands []Candidate, allowAddCons bool) (Result, error)
	BranchPseudo(env Env, cands []Candidate, allowAddCons bool) (Result, error)
}

// Heuristic searches for primal solutions. Valid results: DidNotRun,
// Delayed, DidNotFind, FoundSol.
type Heuristic interface {
	Plugin
	Timing() HeurTiming
	Exec(env Env, timing HeurTiming) (Result, error)
}

// Child is a node created by branching. Bound changes only apply to the
// child's subtree.
type Child interface {
	ChgLB(j int, v float64)
	ChgUB(j int, v float64)
}

// Env is the view of the focus node handed to plugins.
type Env interface {
	NVars() int
	Var(j int) Var
	NRows() int
	Row(i int) Row
	Depth() int

	LB(j int) float64
	UB(j int) float64
	// TightenLB and TightenUB change a local bound of the focus node.
	// Integral variables are rounded. infeasible is set when the new
	// bound empties the domain.
	TightenLB(j int, v float64) (infeasible, tightened bool)
	TightenUB(j int, v float64) (infeasible, tightened bool)

	HasLP() bool
	LPStatus() SolStat
	LPValue(j int) float64
	LPObjective() float64
	PseudoValue(j int) float64
	PseudoObjective() float64
	NodeLowerBound() float64
	CutoffBound() float64

	// AddCut stores a cut in the separation store. Forced cuts are
	// applied regardless of efficacy.
	AddCut(cut Row, forced bool)
	AddPoolCut(cut Row)
	NCuts() int

	// AddVar stores a priced variable; it enters the problem and the
	// relaxation when the pricing round is applied.
	AddVar(v Var, col []ColEntry)

	CreateChild(estimate float64) Child
	NChildren() int
	// Branch splits the focus node on variable j at value val.
	Branch(j int, val float64) error
	AddExternCand(j int, val, score float64)

	TrySol(sol []float64) (bool, error)
	Tolerances() Tolerances
	Logger() *logrus.Entry
}
