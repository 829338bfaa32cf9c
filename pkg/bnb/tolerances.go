package bnb

import "math"

// Tolerances bundles the numerical comparison settings of a run.
type Tolerances struct {
	Epsilon  float64 `yaml:"epsilon"`
	FeasTol  float64 `yaml:"feastol"`
	Infinity float64 `yaml:"infinity"`
}

func DefaultTolerances() Tolerances {
	return Tolerances{Epsilon: 1e-9, FeasTol: 1e-6, Infinity: 1e20}
}

func (t Tolerances) IsInfinity(v float64) bool {
	return v >= t.Infinity
}

func (t Tolerances) IsEQ(a, b float64) bool {
	if t.IsInfinity(a) || t.IsInfinity(b) || t.IsInfinity(-a) || t.IsInfinity(-b) {
		return (t.IsInfinity(a) && t.IsInfinity(b)) || (t.IsInfinity(-a) && t.IsInfinity(-b))
	}
	return math.Abs(a-b) <= t.Epsilon
}

func (t Tolerances) IsLT(a, b float64) bool {
	return !t.IsEQ(a, b) && a < b
}

func (t Tolerances) IsLE(a, b float64) bool {
	return t.IsEQ(a, b) || a < b
}

func (t Tolerances) IsGT(a, b float64) bool {
	return !t.IsEQ(a, b) && a > b
}

func (t Tolerances) IsGE(a, b float64) bool {
	return t.IsEQ(a, b) || a > b
}

func (t Tolerances) IsZero(v float64) bool {
	return math.Abs(v) <= t.Epsilon
}

// IsFeasIntegral reports whether v is integral within the feasibility
// tolerance.
func (t Tolerances) IsFeasIntegral(v float64) bool {
	return math.Abs(v-math.Round(v)) <= t.FeasTol
}

// Frac returns the fractional part of v, or zero if v is integral within
// the feasibility tolerance.
func (t Tolerances) Frac(v float64) float64 {
	if t.IsFeasIntegral(v) {
		return 0
	}
	return v - math.Floor(v)
}

// FeasFloor rounds down, treating values within the feasibility tolerance
// of the next integer as that integer.
func (t Tolerances) FeasFloor(v float64) float64 {
	return math.Floor(v + t.FeasTol)
}

// FeasCeil rounds up, treating values within the feasibility tolerance of
// the previous integer as that integer.
func (t Tolerances) FeasCeil(v float64) float64 {
	return math.Ceil(v - t.FeasTol)
}

// RelDiff returns (a-b)/max(1,|a|,|b|).
func RelDiff(a, b float64) float64 {
	q := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return (a - b) / q
}
