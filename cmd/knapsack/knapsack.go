package knapsack

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/operator-framework/bnb/pkg/bnb"
)

const (
	maxValue  = 100
	maxWeight = 50
)

// Generate returns a random 0/1 knapsack with the given number of items.
// The objective is the total value of the packed items and is meant to be
// maximized. The bag holds half of the total weight.
func Generate(items int, seed int64) *bnb.Problem {
	rng := rand.New(rand.NewSource(seed))
	p := &bnb.Problem{Name: fmt.Sprintf("knapsack-%d-%d", items, seed)}
	row := bnb.Row{Name: "capacity", LHS: math.Inf(-1)}
	total := 0.0
	for i := 0; i < items; i++ {
		w := float64(rng.Intn(maxWeight) + 1)
		p.Vars = append(p.Vars, bnb.Var{
			Name: fmt.Sprintf("item%d", i),
			Type: bnb.Binary,
			Obj:  float64(rng.Intn(maxValue) + 1),
			UB:   1,
		})
		row.Coefs = append(row.Coefs, bnb.Coef{Var: i, Val: w})
		total += w
	}
	row.RHS = math.Floor(total / 2)
	p.Rows = []bnb.Row{row}
	return p
}
