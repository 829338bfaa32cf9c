package plugins

import (
	"fmt"
	"math"
	"sort"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// Cover separates minimal cover inequalities of knapsack rows, rows over
// binary variables with nonnegative coefficients and a finite right hand
// side (or the negation of one).
type Cover struct {
	// MaxCuts limits the cuts added per call. Zero means no limit.
	MaxCuts int
}

var _ bnb.Separator = &Cover{}

func NewCover() *Cover { return &Cover{MaxCuts: 50} }

func (c *Cover) Name() string  { return "cover" }
func (c *Cover) Priority() int { return 10 }

type knapsackItem struct {
	j int
	a float64
	x float64
}

// knapsack returns the items and capacity of row i read as a knapsack, if
// it is one.
func knapsack(env bnb.Env, row bnb.Row) ([]knapsackItem, float64, bool) {
	tol := env.Tolerances()
	sign, capacity := 1.0, row.RHS
	if tol.IsInfinity(row.RHS) {
		if tol.IsInfinity(-row.LHS) {
			return nil, 0, false
		}
		sign, capacity = -1, -row.LHS
	}
	items := make([]knapsackItem, 0, len(row.Coefs))
	for _, co := range row.Coefs {
		a := sign * co.Val
		if a < 0 || env.Var(co.Var).Type != bnb.Binary {
			return nil, 0, false
		}
		if a > 0 {
			items = append(items, knapsackItem{j: co.Var, a: a})
		}
	}
	return items, capacity, len(items) > 1
}

// minimalCover picks items by decreasing LP value until their weight
// exceeds the capacity, then drops the lightest items the cover does not
// need.
func minimalCover(items []knapsackItem, capacity float64, tol bnb.Tolerances) []knapsackItem {
	sort.SliceStable(items, func(a, b int) bool {
		if items[a].x != items[b].x {
			return items[a].x > items[b].x
		}
		return items[a].a > items[b].a
	})
	var cover []knapsackItem
	weight := 0.0
	for _, it := range items {
		cover = append(cover, it)
		weight += it.a
		if tol.IsGT(weight, capacity) {
			break
		}
	}
	if !tol.IsGT(weight, capacity) {
		return nil
	}
	sort.SliceStable(cover, func(a, b int) bool { return cover[a].a < cover[b].a })
	minimal := cover[:0]
	for _, it := range cover {
		if tol.IsGT(weight-it.a, capacity) {
			weight -= it.a
			continue
		}
		minimal = append(minimal, it)
	}
	return minimal
}

func (c *Cover) Separate(env bnb.Env, _ int, _ float64, onlyDelayed bool) (bnb.Result, error) {
	if onlyDelayed || !env.HasLP() {
		return bnb.DidNotRun, nil
	}
	tol := env.Tolerances()
	found := 0
	for i := 0; i < env.NRows(); i++ {
		row := env.Row(i)
		items, capacity, ok := knapsack(env, row)
		if !ok {
			continue
		}
		for k := range items {
			items[k].x = env.LPValue(items[k].j)
		}
		cover := minimalCover(items, capacity, tol)
		if len(cover) == 0 {
			continue
		}
		cut := bnb.Row{
			Name: fmt.Sprintf("cover_%s_%d", row.Name, i),
			LHS:  math.Inf(-1),
			RHS:  float64(len(cover) - 1),
		}
		for _, it := range cover {
			cut.Coefs = append(cut.Coefs, bnb.Coef{Var: it.j, Val: 1})
		}
		if cut.Violation(env.LPValue) <= tol.FeasTol {
			continue
		}
		env.Logger().Debugf("cover cut on %d items of row <%s>", len(cover), row.Name)
		env.AddCut(cut, false)
		found++
		if c.MaxCuts > 0 && found >= c.MaxCuts {
			break
		}
	}
	if found > 0 {
		return bnb.Separated, nil
	}
	return bnb.DidNotFind, nil
}
