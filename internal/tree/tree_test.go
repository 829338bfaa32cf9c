package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/bnb/pkg/bnb"
)

func TestNodeLowerBoundMonotone(t *testing.T) {
	n := &Node{LowerBound: 1}
	for _, v := range []float64{0.5, 2, 1.5, math.Inf(-1), 3} {
		before := n.LowerBound
		n.UpdateLowerBound(v)
		assert.GreaterOrEqual(t, n.LowerBound, before)
	}
	assert.Equal(t, 3.0, n.LowerBound)
	n.SetEstimate(1)
	assert.Equal(t, 3.0, n.Estimate)
}

func TestRepropagation(t *testing.T) {
	n := &Node{}
	n.AddBoundChg(BoundChg{Var: 0, Value: 1})
	assert.False(t, n.NeedsRepropagation())
	n.MarkPropagated()
	n.AddBoundChg(BoundChg{Var: 1, Value: 0, Upper: true})
	assert.True(t, n.NeedsRepropagation())
	n.MarkPropagated()
	assert.False(t, n.NeedsRepropagation())
}

func TestSelectionAndFocus(t *testing.T) {
	tr := New(bnb.DefaultTolerances())
	root, plunging := tr.SelectNext()
	require.NotNil(t, root)
	assert.False(t, plunging)
	assert.Equal(t, 0, root.Depth)
	require.False(t, tr.FocusNode(root, math.Inf(1)))
	root.UpdateLowerBound(5)

	left := tr.CreateChild(6)
	left.UpdateLowerBound(7)
	right := tr.CreateChild(5)
	assert.Equal(t, 2, tr.NChildren())
	assert.Equal(t, 2, tr.NOpen())
	assert.Equal(t, 5.0, tr.LowerBound())

	next, plunging := tr.SelectNext()
	assert.True(t, plunging)
	assert.Same(t, right, next)
	assert.Equal(t, 1, next.Depth)

	require.False(t, tr.FocusNode(next, math.Inf(1)))
	assert.Equal(t, 0, tr.NChildren())
	assert.Equal(t, 1, tr.NOpen())

	next, plunging = tr.SelectNext()
	assert.False(t, plunging)
	assert.Same(t, left, next)
	assert.True(t, tr.FocusNode(next, 7), "node at the cutoff bound is dropped")
	assert.Nil(t, tr.Focus())

	next, _ = tr.SelectNext()
	assert.Nil(t, next)
	assert.True(t, math.IsInf(tr.LowerBound(), 1))
}

func TestPruneAndCutoffDepth(t *testing.T) {
	tr := New(bnb.DefaultTolerances())
	root, _ := tr.SelectNext()
	tr.FocusNode(root, math.Inf(1))
	a := tr.CreateChild(0)
	a.UpdateLowerBound(3)
	b := tr.CreateChild(0)
	b.UpdateLowerBound(1)
	assert.Equal(t, 1, tr.Prune(2))
	assert.Equal(t, 1, tr.NOpen())
	assert.True(t, a.IsCutoff())

	assert.Equal(t, math.MaxInt, tr.CutoffDepth())
	tr.MarkCutoff(0)
	assert.Equal(t, 0, tr.CutoffDepth())
	assert.True(t, root.IsCutoff())
}

func TestPathAndFork(t *testing.T) {
	root := &Node{HasLP: true}
	mid := &Node{Parent: root, Depth: 1, DomChgs: []BoundChg{{Var: 2, Value: 1, Branching: true}}}
	leaf := &Node{Parent: mid, Depth: 2}
	assert.Equal(t, []*Node{root, mid, leaf}, leaf.Path())
	assert.Same(t, root, leaf.LPFork())
	bc, ok := leaf.LastBranching()
	require.True(t, ok)
	assert.Equal(t, 2, bc.Var)
}

func TestLowerBoundOfQueuedLeaves(t *testing.T) {
	tr := New(bnb.DefaultTolerances())
	root, _ := tr.SelectNext()
	require.False(t, tr.FocusNode(root, math.Inf(1)))
	a := tr.CreateChild(0)
	a.UpdateLowerBound(4)
	b := tr.CreateChild(0)
	b.UpdateLowerBound(2)
	c := tr.CreateChild(0)
	c.UpdateLowerBound(6)
	require.False(t, tr.FocusNode(a, math.Inf(1)))
	assert.Equal(t, 2.0, tr.LowerBound())

	b.UpdateLowerBound(5)
	assert.Equal(t, 4.0, tr.LowerBound())

	assert.Equal(t, 1, tr.Prune(5.5))
	assert.Equal(t, 4.0, tr.LowerBound())
	assert.Equal(t, 1, tr.NOpen())

	next, plunging := tr.SelectNext()
	assert.False(t, plunging)
	assert.Same(t, b, next)
	assert.Equal(t, 4.0, tr.LowerBound())
	require.False(t, tr.FocusNode(next, math.Inf(1)))
	assert.Equal(t, 5.0, tr.LowerBound())
	assert.Equal(t, 0, tr.NOpen())
}
