package config

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	type tc struct {
		Name  string
		Input string
		Check func(t *testing.T, s Settings)
		Error string
	}

	for _, tt := range []tc{
		{
			Name:  "empty input keeps defaults",
			Input: "",
			Check: func(t *testing.T, s Settings) {
				assert.Equal(t, Default(), s)
			},
		},
		{
			Name: "overrides merge into defaults",
			Input: `
limits:
  time: 30
  nodes: 1000
separating:
  maxStallRounds: 3
`,
			Check: func(t *testing.T, s Settings) {
				assert.Equal(t, 30.0, s.Limits.Time)
				assert.Equal(t, int64(1000), s.Limits.Nodes)
				assert.Equal(t, 3, s.Separating.MaxStallRounds)
				assert.Equal(t, 100, s.Separating.MaxCuts)
				assert.True(t, math.IsInf(s.Limits.Memory, 1))
			},
		},
		{
			Name:  "unknown key",
			Input: "limits:\n  hours: 3\n",
			Error: "field hours not found",
		},
		{
			Name:  "invalid value",
			Input: "maxLPErrors: 0\n",
			Error: "maxLPErrors must be positive",
		},
		{
			Name:  "bound distance out of range",
			Input: "separating:\n  maxBoundDist: 2\n",
			Error: "maxBoundDist",
		},
	} {
		t.Run(tt.Name, func(t *testing.T) {
			s, err := Load(strings.NewReader(tt.Input))
			if tt.Error != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.Error)
				return
			}
			require.NoError(t, err)
			tt.Check(t, s)
		})
	}
}

func TestRoundCaps(t *testing.T) {
	s := Default()
	assert.Equal(t, 1000, s.MaxPropRounds(0))
	assert.Equal(t, 100, s.MaxPropRounds(3))
	s.Propagating.MaxRounds = -1
	assert.Equal(t, math.MaxInt, s.MaxPropRounds(3))

	assert.Equal(t, 2000, s.MaxCuts(true))
	assert.Equal(t, 100, s.MaxCuts(false))
	assert.Equal(t, 2000, s.MaxPriceVars(true))
	assert.Equal(t, 100, s.MaxPriceVars(false))
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("does-not-exist.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does-not-exist.yaml")
}
