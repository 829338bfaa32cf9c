package store

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operator-framework/bnb/pkg/bnb"
)

type fakeTarget struct {
	rows   []bnb.Row
	lb, ub map[int]float64
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{lb: map[int]float64{}, ub: map[int]float64{}}
}

func (f *fakeTarget) AddRow(row bnb.Row) { f.rows = append(f.rows, row) }

func (f *fakeTarget) TightenLB(j int, v float64) (bool, bool) {
	f.lb[j] = v
	if u, ok := f.ub[j]; ok && v > u {
		return true, true
	}
	return false, true
}

func (f *fakeTarget) TightenUB(j int, v float64) (bool, bool) {
	f.ub[j] = v
	if l, ok := f.lb[j]; ok && v < l {
		return true, true
	}
	return false, true
}

func row(name string, rhs float64, coefs ...bnb.Coef) bnb.Row {
	return bnb.Row{Name: name, Coefs: coefs, LHS: math.Inf(-1), RHS: rhs}
}

func TestSepaStoreApply(t *testing.T) {
	s := NewSepaStore()
	pool := NewCutPool(10)
	s.Add(row("weak", 1, bnb.Coef{Var: 0, Val: 1}, bnb.Coef{Var: 1, Val: 1}), 0.1, false)
	s.Add(row("strong", 1, bnb.Coef{Var: 0, Val: 1}, bnb.Coef{Var: 2, Val: 1}), 0.5, false)
	s.Add(row("forced", 2, bnb.Coef{Var: 1, Val: 1}, bnb.Coef{Var: 2, Val: 1}), 0, true)
	s.Add(row("bound", 3, bnb.Coef{Var: 3, Val: -2}), 1, false)

	target := newFakeTarget()
	applied, cutoff := s.Apply(target, pool, 2)
	assert.False(t, cutoff)
	assert.Equal(t, 3, applied)
	assert.Equal(t, 0, s.Len())
	require.Len(t, target.rows, 2)
	assert.Equal(t, "forced", target.rows[0].Name)
	assert.Equal(t, "strong", target.rows[1].Name)
	assert.Equal(t, -1.5, target.lb[3])
	assert.Equal(t, 2, pool.Len())
}

func TestSepaStoreBoundCutoff(t *testing.T) {
	s := NewSepaStore()
	target := newFakeTarget()
	target.ub[0] = 1
	s.Add(bnb.Row{Name: "lb", Coefs: []bnb.Coef{{Var: 0, Val: 1}}, LHS: 2, RHS: math.Inf(1)}, 1, false)
	_, cutoff := s.Apply(target, nil, 10)
	assert.True(t, cutoff)
	assert.Equal(t, 0, s.Len())
}

func TestForceCutsMode(t *testing.T) {
	s := NewSepaStore()
	s.StartForceCuts()
	s.Add(row("r", 1), 0, false)
	s.EndForceCuts()
	s.Add(row("q", 1), 0, false)
	require.Len(t, s.Cuts(), 2)
	assert.True(t, s.Cuts()[0].Forced)
	assert.False(t, s.Cuts()[1].Forced)
}

func TestScope(t *testing.T) {
	s := NewSepaStore()
	scope, err := s.Open("enforcement")
	require.NoError(t, err)
	s.Add(row("r", 1, bnb.Coef{Var: 0, Val: 1}, bnb.Coef{Var: 1, Val: 1}), 1, false)
	err = scope.Close()
	assert.True(t, errors.Is(err, bnb.ErrStoreNotEmpty))

	_, err = s.Open("next")
	assert.True(t, errors.Is(err, bnb.ErrStoreNotEmpty))

	s.Clear()
	scope, err = s.Open("next")
	require.NoError(t, err)
	assert.NoError(t, scope.Close())
}

type fakePriceTarget struct {
	vars   []bnb.Var
	bounds map[int][2]float64
}

func (f *fakePriceTarget) AddProblemVar(v bnb.Var, _ []bnb.ColEntry) (int, error) {
	f.vars = append(f.vars, v)
	return len(f.vars) - 1, nil
}

func (f *fakePriceTarget) AddColumn(j int, lb, ub float64) { f.bounds[j] = [2]float64{lb, ub} }

func (f *fakePriceTarget) ChgColumnBounds(j int, lb, ub float64) { f.bounds[j] = [2]float64{lb, ub} }

func TestPriceStore(t *testing.T) {
	p := NewPriceStore()
	target := &fakePriceTarget{vars: make([]bnb.Var, 2), bounds: map[int][2]float64{}}
	p.AddProbVar(1, 2, 4)
	p.AddProbVar(1, 2, 4)
	p.AddVar(bnb.Var{Name: "new", LB: 0, UB: 1}, nil)
	assert.Equal(t, 2, p.Len())

	n, err := p.Apply(target)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, [2]float64{0, 4}, target.bounds[1])
	assert.Equal(t, [2]float64{0, 1}, target.bounds[2])

	p.ResetBounds(target)
	assert.Equal(t, [2]float64{2, 4}, target.bounds[1])
}

func TestCutPoolAging(t *testing.T) {
	pool := NewCutPool(1)
	cut := row("c", 1, bnb.Coef{Var: 0, Val: 1}, bnb.Coef{Var: 1, Val: 1})
	assert.True(t, pool.Add(cut))
	assert.False(t, pool.Add(cut))

	s := NewSepaStore()
	violated := func(int) float64 { return 1 }
	satisfied := func(int) float64 { return 0 }
	tol := bnb.DefaultTolerances()

	assert.Equal(t, bnb.Separated, pool.Separate(s, violated, tol))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, bnb.DidNotFind, pool.Separate(s, satisfied, tol))
	assert.Equal(t, 1, pool.Len())
	assert.Equal(t, bnb.DidNotFind, pool.Separate(s, satisfied, tol))
	assert.Equal(t, 0, pool.Len())
}
