package plugins

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/bnb/pkg/bnb"
)

func TestLinearInitLP(t *testing.T) {
	p := &bnb.Problem{
		Vars: []bnb.Var{binary("x", 1), binary("y", 1)},
		Rows: []bnb.Row{
			row("c1", 1, math.Inf(1), 1, 1),
			row("c2", math.Inf(-1), 1, 1, -1),
		},
	}
	p.Rows[1].Lazy = true
	env := newFakeEnv(p)

	require.NoError(t, NewLinear().InitLP(env))
	require.Len(t, env.cuts, 1)
	assert.Equal(t, "c1", env.cuts[0].Name)
}

func TestLinearPropagate(t *testing.T) {
	type tc struct {
		Name   string
		Vars   []bnb.Var
		Row    bnb.Row
		Result bnb.Result
		LB, UB []float64
	}

	inf, big := math.Inf(1), bnb.DefaultTolerances().Infinity
	for _, tt := range []tc{
		{
			Name:   "knapsack fixes heavy item",
			Vars:   []bnb.Var{binary("x", 0), binary("y", 0)},
			Row:    row("c", -inf, 3, 4, 1),
			Result: bnb.ReducedDom,
			LB:     []float64{0, 0},
			UB:     []float64{0, 1},
		},
		{
			Name:   "covering row fixes both",
			Vars:   []bnb.Var{binary("x", 0), binary("y", 0)},
			Row:    row("c", 2, inf, 1, 1),
			Result: bnb.ReducedDom,
			LB:     []float64{1, 1},
			UB:     []float64{1, 1},
		},
		{
			Name:   "integer bound is rounded",
			Vars:   []bnb.Var{{Name: "n", Type: bnb.Integer, UB: 10}, binary("y", 0)},
			Row:    row("c", -inf, 7.5, 2, 1),
			Result: bnb.ReducedDom,
			LB:     []float64{0, 0},
			UB:     []float64{3, 1},
		},
		{
			Name:   "continuous bound keeps the tolerance",
			Vars:   []bnb.Var{{Name: "z", UB: 10}},
			Row:    row("c", -inf, 4, 1),
			Result: bnb.ReducedDom,
			LB:     []float64{0},
			UB:     []float64{4 + 1e-6},
		},
		{
			Name:   "free variable is bounded by its partner",
			Vars:   []bnb.Var{binary("x", 0), {Name: "z", LB: -big, UB: big}},
			Row:    row("c", -inf, 0, 1, 1),
			Result: bnb.ReducedDom,
			LB:     []float64{0, -big},
			UB:     []float64{1, 1e-6},
		},
		{
			Name:   "infeasible row",
			Vars:   []bnb.Var{binary("x", 0), binary("y", 0)},
			Row:    row("c", 3, inf, 1, 1),
			Result: bnb.Cutoff,
			LB:     []float64{0, 0},
			UB:     []float64{1, 1},
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			env := newFakeEnv(&bnb.Problem{Vars: tt.Vars, Rows: []bnb.Row{tt.Row}})
			res, err := NewLinear().Propagate(env, 0, true, false)
			require.NoError(t, err)
			assert.Equal(t, tt.Result, res)
			if res != bnb.Cutoff {
				assert.InDeltaSlice(t, tt.LB, env.lb, 1e-9)
				assert.InDeltaSlice(t, tt.UB, env.ub, 1e-9)
			}
		})
	}
}

func TestLinearEnforceAndCheck(t *testing.T) {
	inf := math.Inf(1)
	p := &bnb.Problem{
		Vars: []bnb.Var{binary("x", 1), binary("y", 1)},
		Rows: []bnb.Row{
			row("cover", 1, inf, 1, 1),
			row("lazy", -inf, 1, 1, 1),
		},
	}
	p.Rows[1].Lazy = true
	h := NewLinear()

	t.Run("satisfied", func(t *testing.T) {
		env := newFakeEnv(p).withLP(1, 0)
		res, err := h.EnforceLP(env, false)
		require.NoError(t, err)
		assert.Equal(t, bnb.Feasible, res)
	})

	t.Run("violated lazy row is separated", func(t *testing.T) {
		env := newFakeEnv(p).withLP(1, 1)
		res, err := h.EnforceLP(env, false)
		require.NoError(t, err)
		assert.Equal(t, bnb.Separated, res)
		require.Len(t, env.cuts, 1)
		assert.Equal(t, "lazy", env.cuts[0].Name)
	})

	t.Run("violated relaxation row is infeasible", func(t *testing.T) {
		env := newFakeEnv(p).withLP(0, 0)
		res, err := h.EnforceLP(env, false)
		require.NoError(t, err)
		assert.Equal(t, bnb.Infeasible, res)
		assert.Empty(t, env.cuts)
	})

	t.Run("pseudo solution", func(t *testing.T) {
		env := newFakeEnv(p)
		res, err := h.EnforcePseudo(env, false, false, false)
		require.NoError(t, err)
		assert.Equal(t, bnb.Infeasible, res)

		res, err = h.EnforcePseudo(env, false, true, false)
		require.NoError(t, err)
		assert.Equal(t, bnb.DidNotRun, res)
	})

	t.Run("pseudo solution with continuous variables asks for the LP", func(t *testing.T) {
		q := &bnb.Problem{
			Vars: []bnb.Var{{Name: "z", Obj: 1, UB: 5}},
			Rows: []bnb.Row{row("c", 2, inf, 1)},
		}
		env := newFakeEnv(q)
		res, err := h.EnforcePseudo(env, false, false, false)
		require.NoError(t, err)
		assert.Equal(t, bnb.SolveLP, res)

		res, err = h.EnforcePseudo(env, false, false, true)
		require.NoError(t, err)
		assert.Equal(t, bnb.Infeasible, res)
	})

	t.Run("check", func(t *testing.T) {
		env := newFakeEnv(p)
		ok, err := h.Check(env, []float64{1, 0})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = h.Check(env, []float64{1, 1})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestLinearSeparate(t *testing.T) {
	inf := math.Inf(1)
	p := &bnb.Problem{
		Vars: []bnb.Var{binary("x", 1), binary("y", 1)},
		Rows: []bnb.Row{
			row("in-lp", -inf, 0.5, 1, 1),
			row("lazy", -inf, 1, 1, 1),
		},
	}
	p.Rows[1].Lazy = true

	env := newFakeEnv(p)
	res, err := NewLinear().Separate(env, 0, false)
	require.NoError(t, err)
	assert.Equal(t, bnb.DidNotRun, res)

	env = newFakeEnv(p).withLP(0.75, 0.75)
	res, err = NewLinear().Separate(env, 0, false)
	require.NoError(t, err)
	assert.Equal(t, bnb.Separated, res)
	require.Len(t, env.cuts, 1)
	assert.Equal(t, "lazy", env.cuts[0].Name)
}

func TestIntegrality(t *testing.T) {
	p := &bnb.Problem{Vars: []bnb.Var{binary("x", 1), {Name: "z", UB: 1}}}
	h := Integrality{}

	res, err := h.EnforceLP(newFakeEnv(p).withLP(0.5, 0.5), false)
	require.NoError(t, err)
	assert.Equal(t, bnb.Infeasible, res)

	res, err = h.EnforceLP(newFakeEnv(p).withLP(1, 0.5), false)
	require.NoError(t, err)
	assert.Equal(t, bnb.Feasible, res)

	ok, err := h.Check(newFakeEnv(p), []float64{1 - 1e-7, 0.3})
	require.NoError(t, err)
	assert.True(t, ok)
}
