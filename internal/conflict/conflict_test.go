package conflict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzerRecordsAndFlushes(t *testing.T) {
	a := NewAnalyzer(nil)
	assert.False(t, a.AnalyzeLP(nil), "empty fixings carry no conflict")
	assert.True(t, a.AnalyzeLP([]Fixing{{Var: 0, Value: true}, {Var: 1, Value: true}}))
	assert.True(t, a.AnalyzePseudo([]Fixing{{Var: 2, Value: false}}))
	assert.False(t, a.AnalyzePseudo([]Fixing{}))
	assert.Equal(t, 2, a.NPending())
	assert.Equal(t, 2, a.Flush())
	assert.Equal(t, 0, a.NPending())

	s := a.Stats()
	assert.Equal(t, int64(1), s.LPCalls)
	assert.Equal(t, int64(1), s.PseudoCalls)
	assert.Equal(t, int64(2), s.Successes)
	assert.True(t, a.Known(1))
	assert.False(t, a.Known(5))
}

func TestImplications(t *testing.T) {
	a := NewAnalyzer(nil)
	a.AnalyzeLP([]Fixing{{Var: 0, Value: true}, {Var: 1, Value: true}})
	a.Flush()

	implied, conflict := a.Implications([]Fixing{{Var: 0, Value: true}})
	require.False(t, conflict)
	assert.Contains(t, implied, Fixing{Var: 1, Value: false})

	_, conflict = a.Implications([]Fixing{{Var: 0, Value: true}, {Var: 1, Value: true}})
	assert.True(t, conflict)

	implied, conflict = a.Implications([]Fixing{{Var: 0, Value: false}, {Var: 7, Value: true}})
	assert.False(t, conflict)
	assert.NotContains(t, implied, Fixing{Var: 1, Value: false})
}
