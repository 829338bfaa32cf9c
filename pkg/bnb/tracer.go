package bnb

import (
	"fmt"
	"io"
)

type EventType int

const (
	NodeFocused EventType = iota
	NodeFeasible
	NodeInfeasible
	NodeBranched
	FirstLPSolved
	LPSolved
	BestSolutionFound
)

func (t EventType) String() string {
	switch t {
	case NodeFocused:
		return "node-focused"
	case NodeFeasible:
		return "node-feasible"
	case NodeInfeasible:
		return "node-infeasible"
	case NodeBranched:
		return "node-branched"
	case FirstLPSolved:
		return "first-lp-solved"
	case LPSolved:
		return "lp-solved"
	case BestSolutionFound:
		return "best-solution-found"
	}
	return fmt.Sprintf("event(%d)", int(t))
}

// Event describes a point of interest in the search.
type Event struct {
	Type       EventType
	Node       int64
	Depth      int
	LowerBound float64
	// Objective is the LP objective for LP events and the solution value
	// for BestSolutionFound.
	Objective float64
}

type Tracer interface {
	Trace(e Event)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(_ Event) {
}

type LoggingTracer struct {
	Writer io.Writer
}

func (t LoggingTracer) Trace(e Event) {
	switch e.Type {
	case FirstLPSolved, LPSolved, BestSolutionFound:
		fmt.Fprintf(t.Writer, "%-20s node=%d depth=%d lower=%g obj=%g\n", e.Type, e.Node, e.Depth, e.LowerBound, e.Objective)
	default:
		fmt.Fprintf(t.Writer, "%-20s node=%d depth=%d lower=%g\n", e.Type, e.Node, e.Depth, e.LowerBound)
	}
}

// MultiTracer forwards events to every tracer in order.
type MultiTracer []Tracer

func (m MultiTracer) Trace(e Event) {
	for _, t := range m {
		t.Trace(e)
	}
}
