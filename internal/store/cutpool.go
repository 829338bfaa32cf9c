package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/operator-framework/bnb/pkg/bnb"
)

type pooledCut struct {
	row bnb.Row
	age int
}

// CutPool keeps globally valid cuts for separation at later nodes. Cuts
// that stay satisfied for more than maxAge pool separations are dropped.
type CutPool struct {
	cuts   map[string]*pooledCut
	order  []string
	maxAge int
}

func NewCutPool(maxAge int) *CutPool {
	return &CutPool{cuts: map[string]*pooledCut{}, maxAge: maxAge}
}

// RowKey identifies a row by its sides and sorted coefficients.
func RowKey(row bnb.Row) string {
	coefs := append([]bnb.Coef(nil), row.Coefs...)
	sort.Slice(coefs, func(i, j int) bool { return coefs[i].Var < coefs[j].Var })
	var b strings.Builder
	fmt.Fprintf(&b, "%g:%g", row.LHS, row.RHS)
	for _, c := range coefs {
		fmt.Fprintf(&b, "|%d:%g", c.Var, c.Val)
	}
	return b.String()
}

// Add stores a cut unless an identical one is already pooled.
func (p *CutPool) Add(row bnb.Row) bool {
	k := RowKey(row)
	if c, ok := p.cuts[k]; ok {
		c.age = 0
		return false
	}
	p.cuts[k] = &pooledCut{row: row}
	p.order = append(p.order, k)
	return true
}

func (p *CutPool) Len() int { return len(p.cuts) }

// Separate adds every pooled cut violated by x to the separation store.
func (p *CutPool) Separate(s *SepaStore, x func(int) float64, tol bnb.Tolerances) bnb.Result {
	found := false
	kept := p.order[:0]
	for _, k := range p.order {
		c := p.cuts[k]
		v := c.row.Violation(x)
		if v > tol.FeasTol {
			c.age = 0
			eff := v
			if n := c.row.Norm(); n > 0 {
				eff = v / n
			}
			s.Add(c.row, eff, false)
			found = true
		} else {
			c.age++
		}
		if p.maxAge >= 0 && c.age > p.maxAge {
			delete(p.cuts, k)
			continue
		}
		kept = append(kept, k)
	}
	p.order = kept
	if found {
		return bnb.Separated
	}
	return bnb.DidNotFind
}
