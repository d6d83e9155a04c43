package model

import (
	"fmt"
)

// Breakeven curve names.
const (
	BreakevenExponential = "exponential"
	BreakevenLinear      = "linear"
)

// Tractability curve names.
const (
	TractabilityPower   = "power"
	TractabilitySigmoid = "sigmoid"
)

// Parameters holds every tunable constant of the dynamics.
type Parameters struct {
	// Health bounds the scale of the simulation.
	Health HealthBounds `json:"health" yaml:"health"`

	// Ceiling controls the highest health an agent can sustain:
	// maxHealth = base + slope*rigor.
	Ceiling LinearTerm `json:"ceiling" yaml:"ceiling"`

	// Impact converts rigor into expected impact per change.
	Impact ImpactParams `json:"impact" yaml:"impact"`

	// Sigma bounds the base volatility: min at rigor 1, max at rigor 0.
	Sigma Range `json:"sigma" yaml:"sigma"`

	// Tractability shapes how workable the system is at a given health.
	Tractability TractabilityParams `json:"tractability" yaml:"tractability"`

	// FragilityExponent is the power applied to (1 - tractability) for
	// net-negative agents.
	FragilityExponent float64 `json:"fragility_exponent" yaml:"fragility_exponent"`

	// CeilingFactorExponent controls diminishing returns near the ceiling.
	CeilingFactorExponent float64 `json:"ceiling_factor_exponent" yaml:"ceiling_factor_exponent"`

	// SigmaScale is the bell-curve multiplier on base sigma.
	SigmaScale BellCurve `json:"sigma_scale" yaml:"sigma_scale"`

	// VarianceAttenuation dampens the sampled noise term.
	VarianceAttenuation AttenuationParams `json:"variance_attenuation" yaml:"variance_attenuation"`

	// CeilingDecay is the exponential decay applied to noise above the ceiling.
	CeilingDecay float64 `json:"ceiling_decay" yaml:"ceiling_decay"`

	// Drift is the accumulated maintenance cost per change: base + growth*changeCount.
	Drift DriftParams `json:"drift" yaml:"drift"`

	// TimeCost bounds the time multiplier of one change.
	TimeCost TimeCostParams `json:"time_cost" yaml:"time_cost"`
}

// HealthBounds is the closed health interval.
type HealthBounds struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// LinearTerm is base + slope*x.
type LinearTerm struct {
	Base  float64 `json:"base" yaml:"base"`
	Slope float64 `json:"slope" yaml:"slope"`
}

// DriftParams is the complexity drift rate base + growth*changeCount.
type DriftParams struct {
	Base   float64 `json:"base" yaml:"base"`
	Growth float64 `json:"growth" yaml:"growth"`
}

// Range is a closed [min, max] interval.
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// ImpactParams configures base impact and the breakeven rigor.
type ImpactParams struct {
	Slope float64 `json:"slope" yaml:"slope"`

	// BreakevenCurve selects "exponential" or "linear".
	BreakevenCurve string `json:"breakeven_curve" yaml:"breakeven_curve"`

	// BreakevenBaseline is the breakeven rigor of a trivially simple system.
	BreakevenBaseline float64 `json:"breakeven_baseline" yaml:"breakeven_baseline"`

	// Exponential curve: baseline + scale*exp(rate*SC).
	BreakevenScale float64 `json:"breakeven_scale" yaml:"breakeven_scale"`
	BreakevenRate  float64 `json:"breakeven_rate" yaml:"breakeven_rate"`

	// Linear curve: baseline + slope*SC.
	BreakevenSlope float64 `json:"breakeven_slope" yaml:"breakeven_slope"`
}

// TractabilityParams configures the system-state curve and its complexity floor.
type TractabilityParams struct {
	// Curve selects "power" (normalized^Exponent) or "sigmoid".
	Curve string `json:"curve" yaml:"curve"`

	Exponent float64 `json:"exponent" yaml:"exponent"`

	// Sigmoid midpoint (in health units) and steepness.
	Midpoint  float64 `json:"midpoint" yaml:"midpoint"`
	Steepness float64 `json:"steepness" yaml:"steepness"`

	// FloorExponent sets the simplicity floor (1-SC)^FloorExponent.
	FloorExponent float64 `json:"floor_exponent" yaml:"floor_exponent"`
}

// BellCurve is floor + range*4s(1-s).
type BellCurve struct {
	Floor float64 `json:"floor" yaml:"floor"`
	Range float64 `json:"range" yaml:"range"`
}

// AttenuationParams is a bell curve plus a boost for imperfect agents
// improving complex systems.
type AttenuationParams struct {
	Floor               float64 `json:"floor" yaml:"floor"`
	Range               float64 `json:"range" yaml:"range"`
	ImprovementVariance float64 `json:"improvement_variance" yaml:"improvement_variance"`
}

// TimeCostParams bounds the per-change time multiplier.
type TimeCostParams struct {
	Base float64 `json:"base" yaml:"base"`
	Max  float64 `json:"max" yaml:"max"`
}

// DefaultParameters returns the calibrated constants.
func DefaultParameters() Parameters {
	return Parameters{
		Health:  HealthBounds{Min: 1, Max: 10},
		Ceiling: LinearTerm{Base: 5, Slope: 5},
		Impact: ImpactParams{
			Slope:             2.4,
			BreakevenCurve:    BreakevenExponential,
			BreakevenBaseline: 0.25,
			BreakevenScale:    0.00109,
			BreakevenRate:     6.4,
			BreakevenSlope:    0.25,
		},
		Sigma: Range{Min: 0.1, Max: 0.5},
		Tractability: TractabilityParams{
			Curve:         TractabilityPower,
			Exponent:      1.5,
			Midpoint:      5,
			Steepness:     1.5,
			FloorExponent: 4,
		},
		FragilityExponent:     2,
		CeilingFactorExponent: 2,
		SigmaScale:            BellCurve{Floor: 0.15, Range: 0.85},
		VarianceAttenuation: AttenuationParams{
			Floor:               0.3,
			Range:               0.7,
			ImprovementVariance: 0.5,
		},
		CeilingDecay: 5,
		Drift:        DriftParams{Base: 0.001, Growth: 0.00001},
		TimeCost:     TimeCostParams{Base: 1, Max: 3},
	}
}

// Validate checks the parameters for values that would break the invariants
// of the dynamics (positive volatility, ordered ranges, known curves).
func (p Parameters) Validate() error {
	if p.Health.Min >= p.Health.Max {
		return fmt.Errorf("health.min (%g) must be below health.max (%g)", p.Health.Min, p.Health.Max)
	}
	if p.Sigma.Min <= 0 {
		return fmt.Errorf("sigma.min must be positive, got %g", p.Sigma.Min)
	}
	if p.Sigma.Max < p.Sigma.Min {
		return fmt.Errorf("sigma.max (%g) must be >= sigma.min (%g)", p.Sigma.Max, p.Sigma.Min)
	}
	if p.SigmaScale.Floor <= 0 {
		return fmt.Errorf("sigma_scale.floor must be positive, got %g", p.SigmaScale.Floor)
	}
	if p.VarianceAttenuation.Floor <= 0 {
		return fmt.Errorf("variance_attenuation.floor must be positive, got %g", p.VarianceAttenuation.Floor)
	}
	if p.TimeCost.Base <= 0 || p.TimeCost.Max < p.TimeCost.Base {
		return fmt.Errorf("time_cost must satisfy 0 < base <= max, got base=%g max=%g", p.TimeCost.Base, p.TimeCost.Max)
	}
	if p.Drift.Base < 0 || p.Drift.Growth < 0 {
		return fmt.Errorf("drift terms must be non-negative, got base=%g growth=%g", p.Drift.Base, p.Drift.Growth)
	}
	if p.Ceiling.Base <= 0 || p.Ceiling.Base+p.Ceiling.Slope <= 0 {
		return fmt.Errorf("ceiling must stay positive over engineering rigor 0..1, got base=%g slope=%g", p.Ceiling.Base, p.Ceiling.Slope)
	}
	if p.CeilingDecay <= 0 {
		return fmt.Errorf("ceiling_decay must be positive, got %g", p.CeilingDecay)
	}
	if p.CeilingFactorExponent <= 0 {
		return fmt.Errorf("ceiling_factor_exponent must be positive, got %g", p.CeilingFactorExponent)
	}
	switch p.Impact.BreakevenCurve {
	case BreakevenExponential, BreakevenLinear:
	default:
		return fmt.Errorf("invalid breakeven_curve: %q (valid: %s, %s)", p.Impact.BreakevenCurve, BreakevenExponential, BreakevenLinear)
	}
	if p.Impact.BreakevenScale < 0 || p.Impact.BreakevenRate < 0 || p.Impact.BreakevenSlope < 0 {
		return fmt.Errorf("breakeven curve must be non-decreasing in complexity")
	}
	switch p.Tractability.Curve {
	case TractabilityPower:
		if p.Tractability.Exponent <= 0 {
			return fmt.Errorf("tractability.exponent must be positive, got %g", p.Tractability.Exponent)
		}
	case TractabilitySigmoid:
		if p.Tractability.Steepness <= 0 {
			return fmt.Errorf("tractability.steepness must be positive, got %g", p.Tractability.Steepness)
		}
	default:
		return fmt.Errorf("invalid tractability curve: %q (valid: %s, %s)", p.Tractability.Curve, TractabilityPower, TractabilitySigmoid)
	}
	if p.Tractability.FloorExponent <= 0 {
		return fmt.Errorf("tractability.floor_exponent must be positive, got %g", p.Tractability.FloorExponent)
	}
	return nil
}
