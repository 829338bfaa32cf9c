package lp

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/bnb/pkg/bnb"
)

var inf = math.Inf(1)

func le(name string, rhs float64, coefs ...bnb.Coef) bnb.Row {
	return bnb.Row{Name: name, Coefs: coefs, LHS: -inf, RHS: rhs}
}

func TestSolve(t *testing.T) {
	type col struct {
		obj, lb, ub float64
	}
	type tc struct {
		Name      string
		Cols      []col
		Rows      []bnb.Row
		Status    bnb.SolStat
		Objective float64
		Values    []float64
	}
	for _, tt := range []tc{
		{
			Name:      "bounded box",
			Cols:      []col{{-1, 0, 1}, {-1, 0, 1}},
			Rows:      []bnb.Row{le("cap", 1.5, bnb.Coef{Var: 0, Val: 1}, bnb.Coef{Var: 1, Val: 1})},
			Status:    bnb.Optimal,
			Objective: -1.5,
		},
		{
			Name:      "fixed column contributes constant",
			Cols:      []col{{2, 3, 3}, {1, 0, 5}},
			Rows:      []bnb.Row{{Name: "r", Coefs: []bnb.Coef{{Var: 0, Val: 1}, {Var: 1, Val: 1}}, LHS: 4, RHS: inf}},
			Status:    bnb.Optimal,
			Objective: 7,
			Values:    []float64{3, 1},
		},
		{
			Name:   "infeasible row",
			Cols:   []col{{1, 0, 1}},
			Rows:   []bnb.Row{{Name: "r", Coefs: []bnb.Coef{{Var: 0, Val: 1}}, LHS: 2, RHS: inf}},
			Status: bnb.InfeasibleLP,
		},
		{
			Name:   "crossing bounds",
			Cols:   []col{{1, 2, 1}},
			Status: bnb.InfeasibleLP,
		},
		{
			Name:   "unbounded free column",
			Cols:   []col{{-1, 0, inf}},
			Status: bnb.UnboundedRay,
		},
		{
			Name:      "free variable",
			Cols:      []col{{1, -inf, inf}},
			Rows:      []bnb.Row{{Name: "r", Coefs: []bnb.Coef{{Var: 0, Val: 1}}, LHS: -3, RHS: inf}},
			Status:    bnb.Optimal,
			Objective: -3,
			Values:    []float64{-3},
		},
		{
			Name:      "upper bounded only",
			Cols:      []col{{-1, -inf, 4}},
			Status:    bnb.Optimal,
			Objective: -4,
			Values:    []float64{4},
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			r := New(bnb.DefaultTolerances())
			for j, c := range tt.Cols {
				r.AddCol(j, c.obj, c.lb, c.ub)
			}
			for _, row := range tt.Rows {
				r.AddRow(row)
			}
			status, err := r.Solve(time.Time{})
			require.NoError(t, err)
			assert.Equal(t, tt.Status, status)
			assert.True(t, r.IsFlushed())
			if tt.Status != bnb.Optimal {
				return
			}
			assert.InDelta(t, tt.Objective, r.ObjVal(), 1e-7)
			for j, v := range tt.Values {
				assert.InDelta(t, v, r.Value(j), 1e-7)
			}
		})
	}
}

func TestCutoffBound(t *testing.T) {
	r := New(bnb.DefaultTolerances())
	r.AddCol(0, 1, 2, 5)
	status, err := r.Solve(time.Time{})
	require.NoError(t, err)
	require.Equal(t, bnb.Optimal, status)

	r.SetCutoffBound(1)
	assert.Equal(t, bnb.ObjLimit, r.Status())

	r.SetCutoffBound(inf)
	assert.False(t, r.IsSolved())
	status, err = r.Solve(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, bnb.Optimal, status)
}

func TestSolveWithoutCutoff(t *testing.T) {
	r := New(bnb.DefaultTolerances())
	r.AddCol(0, 1, 2, 5)
	r.SetCutoffBound(1)
	status, err := r.Solve(time.Time{})
	require.NoError(t, err)
	require.Equal(t, bnb.ObjLimit, status)

	status, err = r.SolveWithoutCutoff(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, bnb.Optimal, status)
	assert.InDelta(t, 2, r.ObjVal(), 1e-9)
	assert.Equal(t, 1.0, r.CutoffBound())
}

func TestModificationsUnflush(t *testing.T) {
	r := New(bnb.DefaultTolerances())
	r.AddCol(0, 1, 0, 1)
	_, err := r.Solve(time.Time{})
	require.NoError(t, err)

	r.ChgBounds(0, 0, 1)
	assert.True(t, r.IsFlushed(), "unchanged bounds keep the relaxation flushed")

	r.ChgBounds(0, 1, 1)
	assert.False(t, r.IsFlushed())
	_, err = r.Solve(time.Time{})
	require.NoError(t, err)
	assert.InDelta(t, 1, r.ObjVal(), 1e-9)

	r.AddRow(le("r", 1, bnb.Coef{Var: 0, Val: 1}))
	assert.Equal(t, 1, r.NRows())
	r.TruncateRows(0)
	assert.Equal(t, 0, r.NRows())
	assert.False(t, r.IsFlushed())
}

func TestDeadline(t *testing.T) {
	r := New(bnb.DefaultTolerances())
	r.AddCol(0, 1, 0, 1)
	status, err := r.Solve(time.Now().Add(-time.Second))
	require.NoError(t, err)
	assert.Equal(t, bnb.TimeLimitLP, status)
	assert.False(t, r.IsSolved())
}

func TestDegenerateRows(t *testing.T) {
	r := New(bnb.DefaultTolerances())
	for j, c := range []struct{ obj, lb, ub float64 }{
		{10, 0, 1}, {7, -1, 3}, {7, -1, 3}, {-3, 0, 1}, {-10, -2, 2},
	} {
		r.AddCol(j, c.obj, c.lb, c.ub)
	}
	coefs := func(vals ...float64) []bnb.Coef {
		var cs []bnb.Coef
		for j, v := range vals {
			if v != 0 {
				cs = append(cs, bnb.Coef{Var: j, Val: v})
			}
		}
		return cs
	}
	rows := []bnb.Row{
		{Name: "r1", Coefs: coefs(2, 2, 5, 3, 1), LHS: 9, RHS: 11},
		{Name: "r2", Coefs: coefs(3, -2, 0, -3, -2), LHS: 2, RHS: 2},
		{Name: "r3", Coefs: coefs(8, 0, -2, 0, 7), LHS: -inf, RHS: 3},
	}
	for _, row := range rows {
		r.AddRow(row)
	}

	type result struct {
		status bnb.SolStat
		err    error
	}
	done := make(chan result, 1)
	go func() {
		status, err := r.Solve(time.Now().Add(time.Second))
		done <- result{status, err}
	}()
	var res result
	select {
	case res = <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("solve did not return after its deadline")
	}
	// numerical trouble is reported, not hidden
	assert.Equal(t, res.status == bnb.Error, res.err != nil)
	if res.status != bnb.Optimal {
		assert.Contains(t, []bnb.SolStat{bnb.IterLimit, bnb.TimeLimitLP, bnb.Error}, res.status)
		return
	}
	// the best integer point has objective 24
	assert.LessOrEqual(t, r.ObjVal(), 24+1e-6)
	for _, row := range rows {
		act := 0.0
		for _, c := range row.Coefs {
			act += c.Val * r.Value(c.Var)
		}
		assert.GreaterOrEqual(t, act, row.LHS-1e-6, row.Name)
		assert.LessOrEqual(t, act, row.RHS+1e-6, row.Name)
	}
}

func TestArtificialStart(t *testing.T) {
	r := New(bnb.DefaultTolerances())
	r.AddCol(0, 1, 0, inf)
	r.AddCol(1, 2, 0, inf)
	r.AddRow(bnb.Row{Name: "cover", Coefs: []bnb.Coef{{Var: 0, Val: 1}, {Var: 1, Val: 1}}, LHS: 2, RHS: inf})
	r.AddRow(bnb.Row{Name: "tie", Coefs: []bnb.Coef{{Var: 0, Val: 1}, {Var: 1, Val: -1}}, LHS: 0, RHS: 0})
	status, err := r.Solve(time.Time{})
	require.NoError(t, err)
	assert.Equal(t, bnb.Optimal, status)
	assert.InDelta(t, 3, r.ObjVal(), 1e-9)
	assert.InDelta(t, 1, r.Value(0), 1e-9)
	assert.InDelta(t, 1, r.Value(1), 1e-9)
}
