package archive

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchive(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs", "bnb.db")
	a, err := Open(path)
	require.NoError(t, err)

	start := time.Unix(1700000000, 0)
	runs := []Run{
		{
			ID: "a", Problem: "knapsack", Status: "optimal",
			Objective: -9, LowerBound: -9, Solution: []float64{1, 1, 0},
			Nodes: 3, LPs: 5, Started: start, Duration: 20 * time.Millisecond,
		},
		{
			ID: "b", Problem: "knapsack", Status: "node-limit",
			Objective: -8, LowerBound: -9.5, Solution: []float64{1, 0, 1},
			Nodes: 1, LPs: 2, Started: start.Add(time.Minute), Duration: time.Millisecond,
		},
		{
			ID: "c", Problem: "knapsack", Status: "user-interrupt",
			Objective: math.Inf(1), LowerBound: math.Inf(-1),
			Started: start.Add(2 * time.Minute),
		},
		{
			ID: "d", Problem: "other", Status: "infeasible",
			Objective: math.Inf(1), LowerBound: math.Inf(1),
			Started: start,
		},
	}
	for _, r := range runs {
		require.NoError(t, a.Record(ctx, r))
	}

	got, err := a.Runs(ctx, "knapsack")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, runs[0].Solution, got[0].Solution)
	assert.Equal(t, 20*time.Millisecond, got[0].Duration)
	assert.True(t, got[0].Started.Equal(start))
	assert.False(t, got[2].HasSolution())
	assert.True(t, math.IsInf(got[2].Objective, 1))
	assert.True(t, math.IsInf(got[2].LowerBound, -1))

	best, ok, err := a.Best(ctx, "knapsack")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", best.ID)

	_, ok, err = a.Best(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)

	// runs are replaced by ID
	runs[1].Status = "optimal"
	require.NoError(t, a.Record(ctx, runs[1]))
	got, err = a.Runs(ctx, "knapsack")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "optimal", got[1].Status)

	require.NoError(t, a.Close())

	// the archive survives reopening
	a, err = Open(path)
	require.NoError(t, err)
	defer a.Close()
	got, err = a.Runs(ctx, "other")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "infeasible", got[0].Status)
}
