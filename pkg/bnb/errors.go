package bnb

import (
	"errors"
	"fmt"
)

var (
	// ErrExactLPUnavailable is returned in exact mode when an infeasible
	// relaxation cannot be proven infeasible and no integer variable is
	// left to branch on.
	ErrExactLPUnavailable = errors.New("exact relaxation solver required but not available")

	// ErrStoreNotEmpty is returned when cuts or columns are left in a
	// store across a phase boundary.
	ErrStoreNotEmpty = errors.New("store not empty at phase boundary")

	// ErrPricingAbortedNoBranch is returned when pricing was aborted at a
	// node that cannot be branched on.
	ErrPricingAbortedNoBranch = errors.New("pricing was aborted, but no branching could be created")
)

// InvalidResultError reports a plugin returning a result that is not
// allowed where it was called.
type InvalidResultError struct {
	Plugin string
	Call   string
	Result Result
}

func (e InvalidResultError) Error() string {
	return fmt.Sprintf("invalid result <%s> from %s of <%s>", e.Result, e.Call, e.Plugin)
}

// LPError reports numerical trouble in the relaxation that could not be
// worked around.
type LPError struct {
	Node   int64
	LP     int64
	Errors int
	Reason string
}

func (e LPError) Error() string {
	if e.Errors > 0 {
		return fmt.Sprintf("(node %d) unresolved numerical troubles in LP %d after %d attempts: %s", e.Node, e.LP, e.Errors, e.Reason)
	}
	return fmt.Sprintf("(node %d) unresolved numerical troubles in LP %d: %s", e.Node, e.LP, e.Reason)
}

// NoSolution is the error of a finished search that has no incumbent.
type NoSolution struct {
	Status Status
}

func (e NoSolution) Error() string {
	return fmt.Sprintf("no solution found (%s)", e.Status)
}
