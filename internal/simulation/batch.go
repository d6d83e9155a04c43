package simulation

import (
	"context"
	"fmt"
	"runtime"

	"github.com/nvandessel/phsim/internal/model"
	"github.com/nvandessel/phsim/internal/rng"
	"golang.org/x/sync/errgroup"
)

// BatchConfig controls a batch of independent runs.
type BatchConfig struct {
	// Runs is the number of trajectories to sample.
	Runs int

	// Workers bounds concurrency. 0 means runtime.GOMAXPROCS(0).
	Workers int

	// Seed is the base seed. Run i draws from stream i of this seed, so the
	// batch result does not depend on Workers or scheduling order.
	Seed uint64

	// Params are the model constants. A zero value means defaults.
	Params *model.Parameters

	// Observer, when set, sees every applied change of every run. It is
	// called concurrently from worker goroutines.
	Observer func(run int, ev StepEvent)
}

// RunFunc produces one run with the given simulator.
type RunFunc func(sim *Simulator) Run

// SingleAgent returns a RunFunc simulating cfg.
func SingleAgent(cfg TrajectoryConfig) RunFunc {
	return func(sim *Simulator) Run { return sim.Simulate(cfg) }
}

// Phased returns a RunFunc simulating a handoff across phases.
func Phased(phases []PhaseConfig, startHealth, systemComplexity float64) RunFunc {
	return func(sim *Simulator) Run { return sim.SimulatePhased(phases, startHealth, systemComplexity) }
}

// RunBatch samples cfg.Runs trajectories with fn. Results are index-aligned:
// runs[i] always comes from stream i. Scheduling stops early when ctx is
// cancelled; runs already started complete.
func RunBatch(ctx context.Context, cfg BatchConfig, fn RunFunc) ([]Run, error) {
	if cfg.Runs <= 0 {
		return nil, fmt.Errorf("runs must be positive, got %d", cfg.Runs)
	}
	params := model.DefaultParameters()
	if cfg.Params != nil {
		params = *cfg.Params
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	runs := make([]Run, cfg.Runs)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < cfg.Runs; i++ {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var opts []Option
			if cfg.Observer != nil {
				opts = append(opts, WithStepObserver(func(ev StepEvent) { cfg.Observer(i, ev) }))
			}
			sim := NewSimulator(params, rng.NewSeeded(cfg.Seed, uint64(i)), opts...)
			runs[i] = fn(sim)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("batch cancelled: %w", err)
	}
	return runs, nil
}
