package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/bnb/internal/solver"
	"github.com/operator-framework/bnb/pkg/bnb"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	r := NewRecorder(reg)

	for _, e := range []bnb.Event{
		{Type: bnb.NodeFocused, Node: 1},
		{Type: bnb.FirstLPSolved, Node: 1, LowerBound: -3, Objective: -2.5},
		{Type: bnb.NodeBranched, Node: 1},
		{Type: bnb.NodeFocused, Node: 2, Depth: 1},
		{Type: bnb.BestSolutionFound, Node: 2, Depth: 1, Objective: -2},
		{Type: bnb.NodeFeasible, Node: 2, Depth: 1},
	} {
		r.Trace(e)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(r.events.WithLabelValues("node-focused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.events.WithLabelValues("best-solution-found")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.events.WithLabelValues("node-infeasible")))
	assert.Equal(t, -2.5, testutil.ToFloat64(r.lpObj))
	assert.Equal(t, -2.0, testutil.ToFloat64(r.incumbent))

	n, err := testutil.GatherAndCount(reg, "bnb_focus_depth", "bnb_node_bound_gain")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStatsCollector(t *testing.T) {
	st := solver.Stats{Nodes: 7, LPs: 12, Branchings: 3, Cutoffs: 2, LowerBound: -4, UpperBound: -3}
	c := NewStatsCollector(func() solver.Stats { return st })

	assert.Equal(t, 14, testutil.CollectAndCount(c))

	expected := `
# HELP bnb_nodes_total Focused nodes over all runs.
# TYPE bnb_nodes_total counter
bnb_nodes_total 7
# HELP bnb_branchings_total Nodes that were branched on.
# TYPE bnb_branchings_total counter
bnb_branchings_total 3
# HELP bnb_lower_bound Global lower bound.
# TYPE bnb_lower_bound gauge
bnb_lower_bound -4
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"bnb_nodes_total", "bnb_branchings_total", "bnb_lower_bound"))

	// counters are read on every scrape
	st.Nodes = 9
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(`
# HELP bnb_nodes_total Focused nodes over all runs.
# TYPE bnb_nodes_total counter
bnb_nodes_total 9
`), "bnb_nodes_total"))

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))
	_, err := reg.Gather()
	assert.NoError(t, err)
}
