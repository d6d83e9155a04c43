package model

import (
	"math"
)

// Agent holds the fixed traits of one agent working on one system.
// An Agent is immutable; a handoff constructs a new Agent for the next phase.
type Agent struct {
	params Parameters

	// EngineeringRigor is the agent's discipline, 0 (none) to 1 (perfect).
	EngineeringRigor float64

	// SystemComplexity is how tightly coupled the target system is,
	// 0 (trivial) to 1 (extreme).
	SystemComplexity float64
}

// NewAgent derives an Agent from rigor and complexity. Inputs are assumed to
// be validated by the caller.
func NewAgent(params Parameters, engineeringRigor, systemComplexity float64) Agent {
	return Agent{
		params:           params,
		EngineeringRigor: engineeringRigor,
		SystemComplexity: systemComplexity,
	}
}

// Parameters returns the constants the agent was built with.
func (a Agent) Parameters() Parameters {
	return a.params
}

// MaxHealth is the highest health the agent can sustain.
func (a Agent) MaxHealth() float64 {
	return a.params.Ceiling.Base + a.params.Ceiling.Slope*a.EngineeringRigor
}

// BreakevenRigor is the rigor at which expected impact is exactly zero for
// this agent's system complexity. It never decreases as complexity grows.
func (a Agent) BreakevenRigor() float64 {
	return BreakevenRigor(a.params, a.SystemComplexity)
}

// BreakevenRigor computes the breakeven rigor for a complexity level.
func BreakevenRigor(params Parameters, systemComplexity float64) float64 {
	ip := params.Impact
	if ip.BreakevenCurve == BreakevenLinear {
		return ip.BreakevenBaseline + ip.BreakevenSlope*systemComplexity
	}
	return ip.BreakevenBaseline + ip.BreakevenScale*math.Exp(ip.BreakevenRate*systemComplexity)
}

// BaseImpact is the expected delta per change before health feedback.
// Negative agents degrade the system on average, positive agents improve it.
func (a Agent) BaseImpact() float64 {
	return a.params.Impact.Slope * (a.EngineeringRigor - a.BreakevenRigor())
}

// BaseSigma is the agent's intrinsic volatility. Always positive.
func (a Agent) BaseSigma() float64 {
	s := a.params.Sigma
	return s.Min + (s.Max-s.Min)*(1-a.EngineeringRigor)
}
