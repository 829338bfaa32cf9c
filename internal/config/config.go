package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/operator-framework/bnb/pkg/bnb"
)

// Settings holds every parameter of the node processing engine. A value
// of -1 means "no limit" wherever a count is expected.
type Settings struct {
	LP          LP             `yaml:"lp"`
	Propagating Propagating    `yaml:"propagating"`
	Separating  Separating     `yaml:"separating"`
	Pricing     Pricing        `yaml:"pricing"`
	Limits      Limits         `yaml:"limits"`
	Restarts    Restarts       `yaml:"restarts"`
	Numerics    bnb.Tolerances `yaml:"numerics"`
	Conflict    Conflict       `yaml:"conflict"`
	// Exact switches bounding to strict comparisons.
	Exact bool `yaml:"exact"`
	// MaxLPErrors is the number of numerical LP failures tolerated at a
	// single node before the solve is aborted.
	MaxLPErrors int `yaml:"maxLPErrors"`
}

type LP struct {
	// SolveFreq solves the LP at every SolveFreq'th depth; 0 solves it
	// only at the root, -1 never.
	SolveFreq  int `yaml:"solveFreq"`
	SolveDepth int `yaml:"solveDepth"`
}

type Propagating struct {
	MaxRounds     int  `yaml:"maxRounds"`
	MaxRoundsRoot int  `yaml:"maxRoundsRoot"`
	AbortOnCutoff bool `yaml:"abortOnCutoff"`
}

type Separating struct {
	MaxRounds           int     `yaml:"maxRounds"`
	MaxRoundsRoot       int     `yaml:"maxRoundsRoot"`
	MaxRoundsRootSubrun int     `yaml:"maxRoundsRootSubrun"`
	MaxAddRounds        int     `yaml:"maxAddRounds"`
	MaxStallRounds      int     `yaml:"maxStallRounds"`
	MaxBoundDist        float64 `yaml:"maxBoundDist"`
	PoolFreq            int     `yaml:"poolFreq"`
	MaxCuts             int     `yaml:"maxCuts"`
	MaxCutsRoot         int     `yaml:"maxCutsRoot"`
	MaxRuns             int     `yaml:"maxRuns"`
	PoolMaxAge          int     `yaml:"poolMaxAge"`
}

type Pricing struct {
	MaxVars     int `yaml:"maxVars"`
	MaxVarsRoot int `yaml:"maxVarsRoot"`
}

type Limits struct {
	// Time is the wall clock limit in seconds.
	Time       float64 `yaml:"time"`
	Nodes      int64   `yaml:"nodes"`
	StallNodes int64   `yaml:"stallNodes"`
	Gap        float64 `yaml:"gap"`
	AbsGap     float64 `yaml:"absGap"`
	Solutions  int64   `yaml:"solutions"`
	BestSol    int64   `yaml:"bestSol"`
	// Memory is the heap limit in megabytes.
	Memory float64 `yaml:"memory"`
}

type Restarts struct {
	MaxRestarts   int     `yaml:"maxRestarts"`
	ImmRestartFac float64 `yaml:"immRestartFac"`
	RestartFac    float64 `yaml:"restartFac"`
	SubRestartFac float64 `yaml:"subRestartFac"`
	RestartMinRed float64 `yaml:"restartMinRed"`
}

type Conflict struct {
	Enabled    bool    `yaml:"enabled"`
	RestartNum int     `yaml:"restartNum"`
	RestartFac float64 `yaml:"restartFac"`
}

func Default() Settings {
	return Settings{
		LP: LP{SolveFreq: 1, SolveDepth: -1},
		Propagating: Propagating{
			MaxRounds:     100,
			MaxRoundsRoot: 1000,
			AbortOnCutoff: true,
		},
		Separating: Separating{
			MaxRounds:           5,
			MaxRoundsRoot:       -1,
			MaxRoundsRootSubrun: -1,
			MaxAddRounds:        -1,
			MaxStallRounds:      5,
			MaxBoundDist:        1.0,
			PoolFreq:            5,
			MaxCuts:             100,
			MaxCutsRoot:         2000,
			MaxRuns:             -1,
			PoolMaxAge:          100,
		},
		Pricing: Pricing{MaxVars: 100, MaxVarsRoot: 2000},
		Limits: Limits{
			Time:       math.Inf(1),
			Nodes:      -1,
			StallNodes: -1,
			Gap:        0,
			AbsGap:     0,
			Solutions:  -1,
			BestSol:    -1,
			Memory:     math.Inf(1),
		},
		Restarts: Restarts{
			MaxRestarts:   -1,
			ImmRestartFac: 0.20,
			RestartFac:    0.05,
			SubRestartFac: 1.00,
			RestartMinRed: 0.10,
		},
		Numerics:    bnb.DefaultTolerances(),
		Conflict:    Conflict{Enabled: true, RestartNum: 250, RestartFac: 1.5},
		MaxLPErrors: 10,
	}
}

// MaxPropRounds returns the propagation round cap for the given depth,
// with -1 mapped to no limit.
func (s Settings) MaxPropRounds(depth int) int {
	n := s.Propagating.MaxRounds
	if depth == 0 {
		n = s.Propagating.MaxRoundsRoot
	}
	if n < 0 {
		return math.MaxInt
	}
	return n
}

func (s Settings) MaxCuts(root bool) int {
	if root {
		return s.Separating.MaxCutsRoot
	}
	return s.Separating.MaxCuts
}

func (s Settings) MaxPriceVars(root bool) int {
	if root {
		return s.Pricing.MaxVarsRoot
	}
	return s.Pricing.MaxVars
}

// Validate reports inconsistent settings.
func (s Settings) Validate() error {
	var errs []error
	if s.LP.SolveFreq < -1 {
		errs = append(errs, fmt.Errorf("lp.solveFreq must be >= -1, got %d", s.LP.SolveFreq))
	}
	if s.Separating.MaxBoundDist < 0 || s.Separating.MaxBoundDist > 1 {
		errs = append(errs, fmt.Errorf("separating.maxBoundDist must lie in [0,1], got %g", s.Separating.MaxBoundDist))
	}
	if s.Separating.MaxCuts < 0 || s.Separating.MaxCutsRoot < 0 {
		errs = append(errs, errors.New("separating.maxCuts and separating.maxCutsRoot must be non-negative"))
	}
	if s.Pricing.MaxVars < 1 || s.Pricing.MaxVarsRoot < 1 {
		errs = append(errs, errors.New("pricing.maxVars and pricing.maxVarsRoot must be positive"))
	}
	if s.Limits.Time <= 0 {
		errs = append(errs, fmt.Errorf("limits.time must be positive, got %g", s.Limits.Time))
	}
	if s.Limits.Gap < 0 || s.Limits.AbsGap < 0 {
		errs = append(errs, errors.New("gap limits must be non-negative"))
	}
	if s.Restarts.RestartMinRed < 0 || s.Restarts.RestartMinRed > 1 {
		errs = append(errs, fmt.Errorf("restarts.restartMinRed must lie in [0,1], got %g", s.Restarts.RestartMinRed))
	}
	if s.Numerics.Epsilon <= 0 || s.Numerics.FeasTol < s.Numerics.Epsilon || s.Numerics.Infinity <= 1 {
		errs = append(errs, errors.New("numerics: need 0 < epsilon <= feastol and infinity > 1"))
	}
	if s.MaxLPErrors < 1 {
		errs = append(errs, fmt.Errorf("maxLPErrors must be positive, got %d", s.MaxLPErrors))
	}
	return errors.Join(errs...)
}

// Load reads settings from YAML on top of the defaults. Unknown keys are
// rejected.
func Load(r io.Reader) (Settings, error) {
	s := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return Settings{}, fmt.Errorf("error decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	return s, nil
}

// LoadFile is Load for a file path.
func LoadFile(path string) (Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return Settings{}, fmt.Errorf("error opening settings file (%s): %w", path, err)
	}
	defer f.Close()
	return Load(f)
}
