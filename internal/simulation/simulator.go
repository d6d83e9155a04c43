package simulation

import (
	"github.com/nvandessel/phsim/internal/model"
	"github.com/nvandessel/phsim/internal/rng"
)

// Simulator samples health trajectories. It is not safe for concurrent use
// because it draws from a single source; use one Simulator per goroutine.
type Simulator struct {
	params   model.Parameters
	src      rng.Source
	observer func(StepEvent)
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithStepObserver installs fn to be called after every applied change.
func WithStepObserver(fn func(StepEvent)) Option {
	return func(s *Simulator) { s.observer = fn }
}

// NewSimulator creates a Simulator drawing randomness from src.
func NewSimulator(params model.Parameters, src rng.Source, opts ...Option) *Simulator {
	s := &Simulator{params: params, src: src}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Simulate runs a single agent for cfg.NChanges changes.
func (s *Simulator) Simulate(cfg TrajectoryConfig) Run {
	agent := model.NewAgent(s.params, cfg.EngineeringRigor, cfg.Complexity())
	run := newRun(cfg.Start(), cfg.NChanges)
	state := HealthState{Health: cfg.Start()}

	s.advance(agent, 0, cfg.NChanges, &state, &run)

	run.TotalTime = state.CumulativeTime
	return run
}

// SimulatePhased runs each phase in order with its own agent. Health, the
// accumulated change count and cumulative time carry across phase
// boundaries, producing one continuous trajectory of 1 + Σ NChanges values.
func (s *Simulator) SimulatePhased(phases []PhaseConfig, startHealth, systemComplexity float64) Run {
	run := newRun(startHealth, TotalChanges(phases))
	state := HealthState{Health: startHealth}

	for i, phase := range phases {
		agent := model.NewAgent(s.params, phase.EngineeringRigor, systemComplexity)
		s.advance(agent, i, phase.NChanges, &state, &run)
	}

	run.TotalTime = state.CumulativeTime
	return run
}

// advance applies n changes with agent, appending to run.
func (s *Simulator) advance(agent model.Agent, phase, n int, state *HealthState, run *Run) {
	for i := 0; i < n; i++ {
		current := state.Health
		cost := agent.TimeCost(current)
		state.CumulativeTime += cost
		next := agent.SampleNextHealth(current, state.ChangeCount, s.src)

		if s.observer != nil {
			s.observer(StepEvent{
				Phase:       phase,
				Step:        state.ChangeCount + 1,
				ChangeCount: state.ChangeCount,
				Health:      current,
				Next:        next,
				TimeCost:    cost,
			})
		}

		state.Health = next
		state.ChangeCount++
		run.Health = append(run.Health, next)
		run.Time = append(run.Time, state.CumulativeTime)
	}
}

func newRun(start float64, changes int) Run {
	health := make([]float64, 1, changes+1)
	health[0] = start
	times := make([]float64, 1, changes+1)
	return Run{Health: health, Time: times}
}

// SimulateTrajectory runs one single-agent trajectory with default parameters.
func SimulateTrajectory(cfg TrajectoryConfig, src rng.Source) Run {
	return NewSimulator(model.DefaultParameters(), src).Simulate(cfg)
}

// SimulatePhasedTrajectory runs one handoff trajectory with default parameters.
func SimulatePhasedTrajectory(phases []PhaseConfig, startHealth, systemComplexity float64, src rng.Source) Run {
	return NewSimulator(model.DefaultParameters(), src).SimulatePhased(phases, startHealth, systemComplexity)
}
