package tree

import "math"

// BoundChg is a local bound change stored at a node.
type BoundChg struct {
	Var   int
	Value float64
	Upper bool
	// Branching marks changes created by branching, as opposed to
	// inferences made while processing the node.
	Branching bool
	// LPSolVal is the relaxation value of the variable at the parent when
	// the branching was created, NaN if unknown.
	LPSolVal float64
}

// Node is a search tree node.
type Node struct {
	ID         int64
	Depth      int
	LowerBound float64
	Estimate   float64
	Parent     *Node
	DomChgs    []BoundChg

	// HasLP is set once a relaxation was solved at the node; LPObj holds
	// the resulting objective value.
	HasLP bool
	LPObj float64

	propagated  bool
	repropagate bool
	cutoff      bool
}

// UpdateLowerBound raises the lower bound. The bound never decreases.
func (n *Node) UpdateLowerBound(v float64) {
	if v > n.LowerBound {
		n.LowerBound = v
	}
	if n.Estimate < n.LowerBound {
		n.Estimate = n.LowerBound
	}
}

// SetEstimate sets the estimate, which is never below the lower bound.
func (n *Node) SetEstimate(v float64) {
	n.Estimate = math.Max(v, n.LowerBound)
}

// AddBoundChg records a bound change. A change arriving after the node
// was propagated requests another propagation pass.
func (n *Node) AddBoundChg(c BoundChg) {
	n.DomChgs = append(n.DomChgs, c)
	if n.propagated {
		n.repropagate = true
	}
}

func (n *Node) MarkPropagated() {
	n.propagated = true
	n.repropagate = false
}

func (n *Node) IsPropagated() bool { return n.propagated }

// NeedsRepropagation reports bound changes made since the last
// propagation pass.
func (n *Node) NeedsRepropagation() bool { return n.repropagate }

func (n *Node) IsCutoff() bool { return n.cutoff }

// Path returns the nodes from the root down to n.
func (n *Node) Path() []*Node {
	var path []*Node
	for m := n; m != nil; m = m.Parent {
		path = append(path, m)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// LPFork returns the deepest proper ancestor of n at which a relaxation
// was solved.
func (n *Node) LPFork() *Node {
	for m := n.Parent; m != nil; m = m.Parent {
		if m.HasLP {
			return m
		}
	}
	return nil
}

// LastBranching returns the last branching bound change on the path to n.
func (n *Node) LastBranching() (BoundChg, bool) {
	for m := n; m != nil; m = m.Parent {
		for i := len(m.DomChgs) - 1; i >= 0; i-- {
			if m.DomChgs[i].Branching {
				return m.DomChgs[i], true
			}
		}
	}
	return BoundChg{}, false
}
