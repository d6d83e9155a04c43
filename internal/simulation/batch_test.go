package simulation_test

import (
	"context"
	"errors"
	"maps"
	"reflect"
	"slices"
	"sync"
	"testing"

	"github.com/nvandessel/phsim/internal/model"
	"github.com/nvandessel/phsim/internal/simulation"
)

func runBatch(t *testing.T, cfg simulation.BatchConfig, fn simulation.RunFunc) []simulation.Run {
	t.Helper()
	runs, err := simulation.RunBatch(context.Background(), cfg, fn)
	if err != nil {
		t.Fatalf("RunBatch() error = %v", err)
	}
	return runs
}

func TestRunBatch_IndependentOfWorkerCount(t *testing.T) {
	cfg := simulation.TrajectoryConfig{NChanges: 100, EngineeringRigor: 0.4, SystemComplexity: simulation.Float(0.5)}

	serial := runBatch(t, simulation.BatchConfig{Runs: 32, Workers: 1, Seed: 7}, simulation.SingleAgent(cfg))
	parallel := runBatch(t, simulation.BatchConfig{Runs: 32, Workers: 8, Seed: 7}, simulation.SingleAgent(cfg))

	if !reflect.DeepEqual(serial, parallel) {
		t.Fatal("worker count changed the results")
	}
	if slices.Equal(serial[0].Health, serial[1].Health) {
		t.Error("each run should draw from its own stream")
	}
}

func TestRunBatch_SeedChangesResults(t *testing.T) {
	cfg := simulation.TrajectoryConfig{NChanges: 50, EngineeringRigor: 0.4}

	a := runBatch(t, simulation.BatchConfig{Runs: 4, Seed: 1}, simulation.SingleAgent(cfg))
	b := runBatch(t, simulation.BatchConfig{Runs: 4, Seed: 2}, simulation.SingleAgent(cfg))

	if reflect.DeepEqual(a, b) {
		t.Error("different seeds produced identical batches")
	}
}

func TestRunBatch_InvalidRuns(t *testing.T) {
	_, err := simulation.RunBatch(context.Background(), simulation.BatchConfig{Runs: 0}, simulation.SingleAgent(simulation.TrajectoryConfig{NChanges: 1}))
	if err == nil {
		t.Error("zero runs should fail")
	}
}

func TestRunBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := simulation.RunBatch(ctx, simulation.BatchConfig{Runs: 100, Workers: 2}, simulation.SingleAgent(simulation.TrajectoryConfig{NChanges: 10}))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRunBatch_CustomParameters(t *testing.T) {
	params := model.DefaultParameters()
	params.Health.Min = 2
	cfg := simulation.TrajectoryConfig{NChanges: 300, EngineeringRigor: 0.1, SystemComplexity: simulation.Float(1)}

	runs := runBatch(t, simulation.BatchConfig{Runs: 10, Seed: 3, Params: &params}, simulation.SingleAgent(cfg))

	simulation.AssertWithinBounds(t, runs, 2, 10)
}

func TestRunBatch_Observer(t *testing.T) {
	var mu sync.Mutex
	perRun := map[int]int{}
	cfg := simulation.BatchConfig{
		Runs:    4,
		Workers: 2,
		Seed:    9,
		Observer: func(run int, ev simulation.StepEvent) {
			mu.Lock()
			defer mu.Unlock()
			perRun[run]++
		},
	}

	runBatch(t, cfg, simulation.SingleAgent(simulation.TrajectoryConfig{NChanges: 6, EngineeringRigor: 0.5}))
	if want := map[int]int{0: 6, 1: 6, 2: 6, 3: 6}; !maps.Equal(perRun, want) {
		t.Errorf("observed steps = %v, want %v", perRun, want)
	}
}

func TestBatch_AgentOutcomes(t *testing.T) {
	sc := simulation.Float(0.85)
	batch := simulation.BatchConfig{Runs: 200, Seed: 2024}

	vibe := runBatch(t, batch, simulation.SingleAgent(simulation.TrajectoryConfig{
		NChanges: 300, EngineeringRigor: 0.3, SystemComplexity: sc,
	}))
	senior := runBatch(t, batch, simulation.SingleAgent(simulation.TrajectoryConfig{
		NChanges: 300, EngineeringRigor: 0.8, SystemComplexity: sc,
	}))

	vibeStats := simulation.Summarize(vibe, 3)
	seniorStats := simulation.Summarize(senior, 3)

	if vibeStats.AverageFinal >= 5 {
		t.Errorf("vibe average final = %v, want < 5", vibeStats.AverageFinal)
	}
	if vibeStats.FailureRate <= 0.5 {
		t.Errorf("vibe failure rate = %v, want > 0.5", vibeStats.FailureRate)
	}
	if seniorStats.AverageFinal <= 8 {
		t.Errorf("senior average final = %v, want > 8", seniorStats.AverageFinal)
	}
	if seniorStats.FailureRate != 0 {
		t.Errorf("senior failure rate = %v, want 0", seniorStats.FailureRate)
	}
	if vibeStats.TimeOverheadPercent <= seniorStats.TimeOverheadPercent {
		t.Errorf("vibe overhead %v should exceed senior overhead %v", vibeStats.TimeOverheadPercent, seniorStats.TimeOverheadPercent)
	}
}

func TestBatch_PercentileOrdering(t *testing.T) {
	runs := runBatch(t, simulation.BatchConfig{Runs: 200, Seed: 77},
		simulation.SingleAgent(simulation.TrajectoryConfig{NChanges: 200, EngineeringRigor: 0.8, SystemComplexity: simulation.Float(0.5)}))

	stats := simulation.Summarize(runs, 3)

	for name, traj := range map[string][]float64{
		"average": stats.AverageTrajectory,
		"p10":     stats.P10Trajectory,
		"p90":     stats.P90Trajectory,
	} {
		if len(traj) != 201 {
			t.Fatalf("%s trajectory length = %d, want 201", name, len(traj))
		}
	}
	simulation.AssertPercentileOrdering(t, stats)
}

func TestBatch_Handoff(t *testing.T) {
	phases := []simulation.PhaseConfig{
		{EngineeringRigor: 0.3, NChanges: 100},
		{EngineeringRigor: 0.8, NChanges: 200},
	}
	runs := runBatch(t, simulation.BatchConfig{Runs: 50, Seed: 9}, simulation.Phased(phases, 8, 0.5))

	simulation.AssertTrajectoryLength(t, runs, 301)
	simulation.AssertWithinBounds(t, runs, 1, 10)

	stats := simulation.Summarize(runs, 3)
	if stats.AverageTrajectory[100] >= stats.AverageTrajectory[300] {
		t.Errorf("no recovery after handoff: %v at 100, %v at 300", stats.AverageTrajectory[100], stats.AverageTrajectory[300])
	}
}
