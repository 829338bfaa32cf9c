package solver

import (
	"sort"

	"github.com/operator-framework/bnb/internal/tree"
	"github.com/operator-framework/bnb/pkg/bnb"
)

// primalHeuristics calls the heuristics for the given timing. Heuristics
// that delayed themselves run first. AfterNode is replaced by the node
// and plunge flags matching the next node and the focus relaxation.
func (s *Solver) primalHeuristics(next *tree.Node, plunging bool, timing bnb.HeurTiming) (foundSol bool, err error) {
	if len(s.heurs) == 0 || (timing == bnb.AfterNode && next == nil) {
		return false, nil
	}
	if timing&bnb.AfterNode == bnb.AfterNode {
		timing &^= bnb.AfterNode
		pseudoNode := !s.focusHasLP()
		plunging = next != nil && plunging
		if plunging && s.focusDepth() > 0 {
			if pseudoNode {
				timing |= bnb.AfterPseudoNode
			} else {
				timing |= bnb.AfterLPNode
			}
		} else {
			if pseudoNode {
				timing |= bnb.AfterPseudoPlunge | bnb.AfterPseudoNode
			} else {
				timing |= bnb.AfterLPPlunge | bnb.AfterLPNode
			}
		}
	}

	heurs := append([]*heuristic(nil), s.heurs...)
	sort.SliceStable(heurs, func(i, j int) bool { return heurs[i].wasDelayed && !heurs[j].wasDelayed })

	before := s.stats.BestSolsFound
	for _, h := range heurs {
		if _, err := h.exec(env{s}, timing); err != nil {
			return false, err
		}
	}
	return s.stats.BestSolsFound > before, nil
}
