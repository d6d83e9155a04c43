package model

import (
	"math"

	"github.com/nvandessel/phsim/internal/numeric"
	"github.com/nvandessel/phsim/internal/rng"
)

// NormalizedHealth maps health onto [0, 1].
func (a Agent) NormalizedHealth(currentHealth float64) float64 {
	h := a.params.Health
	return (currentHealth - h.Min) / (h.Max - h.Min)
}

// SimplicityFloor is the minimum tractability the system keeps regardless of
// health: (1-SC)^k. It is 0 for an extreme-complexity system.
func (a Agent) SimplicityFloor() float64 {
	return math.Pow(1-a.SystemComplexity, a.params.Tractability.FloorExponent)
}

// Tractability is how workable the system is at the given health, in [0, 1].
// It increases with health and never drops below SimplicityFloor.
func (a Agent) Tractability(currentHealth float64) float64 {
	tp := a.params.Tractability
	var raw float64
	switch tp.Curve {
	case TractabilitySigmoid:
		raw = numeric.Sigmoid(currentHealth-tp.Midpoint, tp.Steepness)
	default:
		raw = math.Pow(numeric.Clamp(a.NormalizedHealth(currentHealth), 0, 1), tp.Exponent)
	}
	floor := a.SimplicityFloor()
	return floor + (1-floor)*raw
}

// Fragility is how readily damage cascades at the given health.
func (a Agent) Fragility(currentHealth float64) float64 {
	inverse := 1 - a.Tractability(currentHealth)
	return math.Pow(inverse, a.params.FragilityExponent) * a.SystemComplexity
}

// CeilingFactor is the diminishing-returns multiplier for improvement. It is
// exactly zero at and above MaxHealth.
func (a Agent) CeilingFactor(currentHealth float64) float64 {
	raw := 1 - math.Pow(currentHealth/a.MaxHealth(), a.params.CeilingFactorExponent)
	return math.Max(0, raw)
}

// ExpectedImpact is the mean of the next health delta, excluding drift.
func (a Agent) ExpectedImpact(currentHealth float64) float64 {
	base := a.BaseImpact()
	if base <= 0 {
		return base * a.Fragility(currentHealth)
	}
	return base * a.Tractability(currentHealth) * a.CeilingFactor(currentHealth)
}

// bell is 4s(1-s): 0 at the extremes, 1 at s = 0.5.
func bell(s float64) float64 {
	return 4 * s * (1 - s)
}

// EffectiveSigma is the volatility of the next change. It peaks in the
// transition zone and falls to a positive floor at both extremes.
func (a Agent) EffectiveSigma(currentHealth float64) float64 {
	sc := a.params.SigmaScale
	s := a.Tractability(currentHealth)
	return a.BaseSigma() * (sc.Floor + sc.Range*bell(s))
}

// VarianceAttenuation further scales the sampled noise by tractability, with
// an extra boost for imperfect agents improving complex systems.
func (a Agent) VarianceAttenuation(currentHealth float64) float64 {
	va := a.params.VarianceAttenuation
	s := a.Tractability(currentHealth)
	base := va.Floor + va.Range*bell(s)
	challenge := (1 - a.EngineeringRigor) * a.SystemComplexity
	boost := s * math.Max(0, a.BaseImpact()) * challenge * va.ImprovementVariance
	return base + boost
}

// CeilingResistance dampens the whole noise term once health exceeds the
// agent's ceiling. It is 1 at or below the ceiling.
func (a Agent) CeilingResistance(currentHealth float64) float64 {
	maxHealth := a.MaxHealth()
	if currentHealth <= maxHealth {
		return 1
	}
	overshoot := (currentHealth - maxHealth) / maxHealth
	return math.Exp(-a.params.CeilingDecay * overshoot)
}

// ComplexityDrift is the accumulated maintenance cost of the next change.
// changeCount is the number of changes already applied to the system, across
// every agent that has worked on it. The result is never positive.
func (a Agent) ComplexityDrift(currentHealth float64, changeCount int) float64 {
	d := a.params.Drift
	rate := d.Base + d.Growth*float64(changeCount)
	return -rate * a.Tractability(currentHealth) * a.SystemComplexity
}

// TimeCost is the time multiplier of one change at the given health, in
// [TimeCost.Base, TimeCost.Max].
func (a Agent) TimeCost(currentHealth float64) float64 {
	tc := a.params.TimeCost
	return tc.Base + (tc.Max-tc.Base)*(1-a.Tractability(currentHealth))
}

// NoiseTerm draws the random component of the next delta from src.
// It consumes exactly two values from src.
func (a Agent) NoiseTerm(currentHealth float64, src rng.Source) float64 {
	raw := a.EffectiveSigma(currentHealth) * numeric.Gaussian(src)
	return raw * a.VarianceAttenuation(currentHealth) * a.CeilingResistance(currentHealth)
}

// SampleNextHealth applies one change event and returns the resulting health,
// clamped to the health bounds.
func (a Agent) SampleNextHealth(currentHealth float64, changeCount int, src rng.Source) float64 {
	delta := a.ExpectedImpact(currentHealth) +
		a.ComplexityDrift(currentHealth, changeCount) +
		a.NoiseTerm(currentHealth, src)
	h := a.params.Health
	return numeric.Clamp(currentHealth+delta, h.Min, h.Max)
}
