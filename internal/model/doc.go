// Package model implements the product-health dynamics: the traits an agent
// derives from its engineering rigor (ceiling, base impact, base volatility)
// and the per-change feedback terms that depend on the current health of the
// system (tractability, fragility, volatility shaping, ceiling resistance,
// complexity drift and time cost).
//
// Health lives on a 1-10 scale. Engineering rigor and system complexity are
// both 0-1. Every tunable constant is carried in Parameters so alternative
// curve shapes can be selected by configuration instead of by code changes.
//
// Usage:
//
//	params := model.DefaultParameters()
//	agent := model.NewAgent(params, 0.8, 0.85)
//	next := agent.SampleNextHealth(8, 0, src)
package model
