package tree

import (
	"math"

	"gopkg.in/dnaeon/go-priorityqueue.v1"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// Tree holds the open nodes of the search. Children of the focus node are
// preferred by selection; all other open nodes are leaves kept in a queue
// ordered by lower bound.
type Tree struct {
	tol      bnb.Tolerances
	root     *Node
	focus    *Node
	children []*Node
	leaves   *priorityqueue.PriorityQueue[*Node, float64]
	open     map[int64]*Node
	peeked   *Node
	nextID   int64

	cutoffDepth int
}

func New(tol bnb.Tolerances) *Tree {
	t := &Tree{tol: tol}
	t.Restart()
	return t
}

// Restart drops every node and creates a fresh root.
func (t *Tree) Restart() {
	t.focus = nil
	t.children = nil
	t.peeked = nil
	t.leaves = priorityqueue.New[*Node, float64](priorityqueue.MinHeap)
	t.open = map[int64]*Node{}
	t.cutoffDepth = math.MaxInt
	t.root = t.newNode(nil)
	t.root.LowerBound = math.Inf(-1)
	t.root.Estimate = math.Inf(-1)
	t.pushLeaf(t.root)
}

func (t *Tree) newNode(parent *Node) *Node {
	t.nextID++
	n := &Node{ID: t.nextID, Parent: parent}
	if parent != nil {
		n.Depth = parent.Depth + 1
		n.LowerBound = parent.LowerBound
		n.Estimate = parent.Estimate
	}
	return n
}

func (t *Tree) pushLeaf(n *Node) {
	t.open[n.ID] = n
	t.leaves.Put(n, n.LowerBound)
}

func (t *Tree) Root() *Node  { return t.root }
func (t *Tree) Focus() *Node { return t.focus }

// NChildren returns the number of children of the focus node.
func (t *Tree) NChildren() int { return len(t.children) }

// Children returns the children of the focus node, including those
// already pruned.
func (t *Tree) Children() []*Node { return t.children }

// NOpen returns the number of open nodes, children included.
func (t *Tree) NOpen() int { return len(t.open) }

// CreateChild creates a child of the focus node.
func (t *Tree) CreateChild(estimate float64) *Node {
	n := t.newNode(t.focus)
	n.SetEstimate(estimate)
	t.children = append(t.children, n)
	t.open[n.ID] = n
	return n
}

// SelectNext returns the next node to process without removing it. A
// child of the focus node is preferred, in which case plunging is set.
func (t *Tree) SelectNext() (n *Node, plunging bool) {
	var best *Node
	for _, c := range t.children {
		if _, ok := t.open[c.ID]; !ok {
			continue
		}
		if best == nil || c.LowerBound < best.LowerBound || (c.LowerBound == best.LowerBound && c.Estimate < best.Estimate) {
			best = c
		}
	}
	if best != nil {
		return best, true
	}
	if t.peeked != nil {
		if _, ok := t.open[t.peeked.ID]; ok {
			return t.peeked, false
		}
		t.peeked = nil
	}
	for t.leaves.Len() > 0 {
		item := t.leaves.Get()
		if _, ok := t.open[item.Value.ID]; ok {
			t.peeked = item.Value
			return t.peeked, false
		}
	}
	return nil, false
}

// FocusNode makes n the focus node. The remaining children of the old
// focus become leaves. If the lower bound of n reaches the cutoff bound,
// n is dropped instead and cutoff is returned.
func (t *Tree) FocusNode(n *Node, cutoffBound float64) (cutoff bool) {
	for _, c := range t.children {
		if c == n {
			continue
		}
		if _, ok := t.open[c.ID]; ok {
			t.leaves.Put(c, c.LowerBound)
		}
	}
	t.children = nil
	t.cutoffDepth = math.MaxInt
	if t.peeked == n {
		t.peeked = nil
	}
	t.focus = nil
	if n == nil {
		return false
	}
	delete(t.open, n.ID)
	if t.tol.IsGE(n.LowerBound, cutoffBound) {
		n.cutoff = true
		return true
	}
	t.focus = n
	return false
}

// MarkCutoff records that the active path is infeasible from depth on.
func (t *Tree) MarkCutoff(depth int) {
	if depth < t.cutoffDepth {
		t.cutoffDepth = depth
	}
	if t.focus != nil && depth <= t.focus.Depth {
		t.focus.cutoff = true
	}
}

func (t *Tree) CutoffDepth() int { return t.cutoffDepth }

// LowerBound returns the smallest lower bound of the focus node and all
// open nodes, +inf for an empty tree.
func (t *Tree) LowerBound() float64 {
	lb := t.leafBound()
	if t.focus != nil {
		lb = min(lb, t.focus.LowerBound)
	}
	for _, c := range t.children {
		if _, ok := t.open[c.ID]; ok {
			lb = min(lb, c.LowerBound)
		}
	}
	if t.peeked != nil {
		if _, ok := t.open[t.peeked.ID]; ok {
			lb = min(lb, t.peeked.LowerBound)
		}
	}
	return lb
}

// leafBound returns the smallest lower bound of the queued leaves from the
// head of the queue. Closed nodes are dropped, and a head whose bound rose
// since it was queued is queued again under its new bound.
func (t *Tree) leafBound() float64 {
	for t.leaves.Len() > 0 {
		item := t.leaves.Get()
		n := item.Value
		if _, ok := t.open[n.ID]; !ok {
			continue
		}
		t.leaves.Put(n, n.LowerBound)
		if n.LowerBound == item.Priority || math.IsNaN(n.LowerBound) {
			return n.LowerBound
		}
	}
	return math.Inf(1)
}

// Prune drops all open nodes whose lower bound reaches the cutoff bound
// and returns how many were dropped.
func (t *Tree) Prune(cutoffBound float64) int {
	pruned := 0
	for id, n := range t.open {
		if t.tol.IsGE(n.LowerBound, cutoffBound) {
			n.cutoff = true
			delete(t.open, id)
			pruned++
		}
	}
	return pruned
}
