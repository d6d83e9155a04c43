// Package simulation drives the product-health model over many change events
// and reduces the sampled trajectories to summary statistics.
//
// A Simulator steps one Agent (or a sequence of agents, for handoff runs)
// through a trajectory. Randomness always comes from an injected rng.Source,
// so identical sources reproduce identical trajectories. RunBatch fans many
// independent runs out over a bounded worker pool, giving each run its own
// seeded stream, and Summarize reduces them to a Stats record.
//
// Usage:
//
//	sim := simulation.NewSimulator(model.DefaultParameters(), src)
//	run := sim.Simulate(simulation.TrajectoryConfig{
//	    NChanges:         1000,
//	    EngineeringRigor: 0.8,
//	})
//	stats := simulation.Summarize([]simulation.Run{run}, 3)
package simulation
