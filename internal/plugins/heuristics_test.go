package plugins

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/bnb/pkg/bnb"
)

func TestCoverSeparate(t *testing.T) {
	type tc struct {
		Name   string
		Vars   []bnb.Var
		Row    bnb.Row
		LP     []float64
		Result bnb.Result
		Cover  []int
	}

	inf := math.Inf(1)
	vars := []bnb.Var{binary("x", -1), binary("y", -1), binary("z", -1)}
	for _, tt := range []tc{
		{
			Name:   "violated cover",
			Vars:   vars,
			Row:    row("c", -inf, 5, 3, 3, 3),
			LP:     []float64{0.9, 0.9, 0},
			Result: bnb.Separated,
			Cover:  []int{0, 1},
		},
		{
			Name:   "greater or equal form",
			Vars:   vars,
			Row:    row("c", -5, inf, -3, -3, -3),
			LP:     []float64{0.9, 0.9, 0},
			Result: bnb.Separated,
			Cover:  []int{0, 1},
		},
		{
			Name:   "cover is satisfied",
			Vars:   vars,
			Row:    row("c", -inf, 5, 3, 3, 3),
			LP:     []float64{0.5, 0.5, 0},
			Result: bnb.DidNotFind,
		},
		{
			Name:   "not a knapsack",
			Vars:   []bnb.Var{binary("x", -1), {Name: "z", UB: 1}},
			Row:    row("c", -inf, 1, 1, 1),
			LP:     []float64{1, 1},
			Result: bnb.DidNotFind,
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			env := newFakeEnv(&bnb.Problem{Vars: tt.Vars, Rows: []bnb.Row{tt.Row}}).withLP(tt.LP...)
			res, err := NewCover().Separate(env, 0, 1, false)
			require.NoError(t, err)
			assert.Equal(t, tt.Result, res)
			if tt.Cover == nil {
				assert.Empty(t, env.cuts)
				return
			}
			require.Len(t, env.cuts, 1)
			var got []int
			for _, c := range env.cuts[0].Coefs {
				got = append(got, c.Var)
			}
			assert.ElementsMatch(t, tt.Cover, got)
			assert.Equal(t, float64(len(tt.Cover)-1), env.cuts[0].RHS)
		})
	}
}

func TestMinimalCoverDropsUnneededItems(t *testing.T) {
	items := []knapsackItem{{j: 0, a: 1, x: 1}, {j: 1, a: 4, x: 0.9}, {j: 2, a: 3, x: 0.8}}
	cover := minimalCover(items, 5, bnb.DefaultTolerances())
	var got []int
	for _, it := range cover {
		got = append(got, it.j)
	}
	assert.ElementsMatch(t, []int{1, 2}, got)

	assert.Empty(t, minimalCover([]knapsackItem{{j: 0, a: 1, x: 1}}, 5, bnb.DefaultTolerances()))
}

func TestRounding(t *testing.T) {
	p := &bnb.Problem{Vars: []bnb.Var{binary("x", -1), binary("y", 1)}}

	res, err := Rounding{}.Exec(newFakeEnv(p), bnb.AfterLPNode)
	require.NoError(t, err)
	assert.Equal(t, bnb.DidNotRun, res)

	res, err = Rounding{}.Exec(newFakeEnv(p).withLP(1, 0), bnb.AfterLPNode)
	require.NoError(t, err)
	assert.Equal(t, bnb.DidNotRun, res)

	env := newFakeEnv(p).withLP(0.6, 0.4)
	res, err = Rounding{}.Exec(env, bnb.AfterLPNode)
	require.NoError(t, err)
	assert.Equal(t, bnb.FoundSol, res)
	require.Len(t, env.sols, 2)
	assert.Equal(t, []float64{1, 0}, env.sols[0])
	assert.Equal(t, []float64{1, 0}, env.sols[1])

	env = newFakeEnv(p).withLP(0.6, 0.4)
	env.accept = false
	res, err = Rounding{}.Exec(env, bnb.AfterLPNode)
	require.NoError(t, err)
	assert.Equal(t, bnb.DidNotFind, res)
}

func TestMostFractional(t *testing.T) {
	p := &bnb.Problem{Vars: []bnb.Var{
		binary("x", 1),
		{Name: "n", Type: bnb.Integer, Obj: 2, UB: 10},
	}}

	t.Run("LP", func(t *testing.T) {
		env := newFakeEnv(p)
		res, err := MostFractional{}.BranchLP(env, []bnb.Candidate{
			{Var: 0, Val: 0.1, Frac: 0.1},
			{Var: 1, Val: 3.55, Frac: 0.55},
		}, false)
		require.NoError(t, err)
		assert.Equal(t, bnb.Branched, res)
		assert.Equal(t, []branching{{j: 1, val: 3.55}}, env.branches)
	})

	t.Run("extern", func(t *testing.T) {
		env := newFakeEnv(p)
		res, err := MostFractional{}.BranchExtern(env, []bnb.Candidate{
			{Var: 0, Val: 0.5, Score: 3},
			{Var: 1, Val: 4, Score: 1},
		}, true)
		require.NoError(t, err)
		assert.Equal(t, bnb.Branched, res)
		assert.Equal(t, []branching{{j: 0, val: 0.5}}, env.branches)
	})

	t.Run("pseudo halves the domain", func(t *testing.T) {
		env := newFakeEnv(p)
		res, err := MostFractional{}.BranchPseudo(env, []bnb.Candidate{{Var: 0}, {Var: 1}}, true)
		require.NoError(t, err)
		assert.Equal(t, bnb.Branched, res)
		require.Len(t, env.children, 2)
		assert.Equal(t, map[int]float64{1: 5}, env.children[0].ub)
		assert.Equal(t, map[int]float64{1: 6}, env.children[1].lb)
	})

	t.Run("no candidates", func(t *testing.T) {
		res, err := MostFractional{}.BranchLP(newFakeEnv(p), nil, false)
		require.NoError(t, err)
		assert.Equal(t, bnb.DidNotRun, res)
	})
}
