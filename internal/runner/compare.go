package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/nvandessel/phsim/internal/chart"
	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/logging"
	"github.com/nvandessel/phsim/internal/sanitize"
	"github.com/nvandessel/phsim/internal/scenarios"
	"github.com/nvandessel/phsim/internal/simulation"
)

// SeriesResult is one line of a comparison or chart.
type SeriesResult struct {
	Key   string           `json:"key"`
	Label string           `json:"label"`
	Color string           `json:"color"`
	Stats simulation.Stats `json:"stats"`
}

// ChartResponse holds per-series statistics and chart-ready datasets.
type ChartResponse struct {
	Name             string          `json:"name,omitempty"`
	Complexity       string          `json:"complexity,omitempty"`
	SystemComplexity float64         `json:"systemComplexity"`
	NChanges         int             `json:"nChanges"`
	Runs             int             `json:"runs"`
	Seed             uint64          `json:"seed"`
	Series           []SeriesResult  `json:"series"`
	Datasets         []chart.Dataset `json:"datasets"`
}

// ChartRequest asks for the builtin scenarios side by side.
type ChartRequest struct {
	// Complexity is a profile key; SystemComplexity wins when set.
	Complexity       string   `json:"complexity,omitempty"`
	SystemComplexity *float64 `json:"systemComplexity,omitempty"`

	// Keys selects scenarios. Empty means the whole catalog.
	Keys []string `json:"keys,omitempty"`

	NChanges   int              `json:"nChanges,omitempty"`
	Runs       int              `json:"runs,omitempty"`
	Seed       uint64           `json:"seed,omitempty"`
	Visibility chart.Visibility `json:"visibility,omitempty"`
}

// CompareOptions controls a Comparison run.
type CompareOptions struct {
	Runs       int
	Seed       uint64
	Visibility chart.Visibility
}

// Chart simulates each selected catalog scenario at one complexity.
func (r *Runner) Chart(ctx context.Context, req ChartRequest) (*ChartResponse, error) {
	complexity := req.Complexity
	if complexity == "" && req.SystemComplexity == nil {
		complexity = DefaultComplexityProfile
	}
	resp := &ChartResponse{Complexity: complexity}
	if complexity != "" {
		p, ok := scenarios.Complexity(complexity)
		if !ok {
			return nil, invalid(fmt.Errorf("unknown complexity %q (options: %v)", complexity, scenarios.ComplexityKeys()))
		}
		resp.SystemComplexity = p.SystemComplexity
	}
	if req.SystemComplexity != nil {
		if err := unitRange("system complexity", *req.SystemComplexity); err != nil {
			return nil, invalid(err)
		}
		resp.SystemComplexity = *req.SystemComplexity
		resp.Complexity = ""
	}
	if req.NChanges < 0 || req.NChanges > constants.MaxChanges {
		return nil, invalid(fmt.Errorf("changes must be between 1 and %d, got %d", constants.MaxChanges, req.NChanges))
	}

	var list []scenarios.Scenario
	if len(req.Keys) == 0 {
		list = r.catalog.List()
	} else {
		for _, key := range req.Keys {
			s, err := r.catalog.Get(key)
			if err != nil {
				return nil, invalid(err)
			}
			list = append(list, s)
		}
	}
	if req.NChanges > 0 {
		for i := range list {
			list[i] = list[i].WithChanges(req.NChanges)
		}
	}

	runs := req.Runs
	if runs == 0 {
		runs = constants.DefaultChartRuns
	}
	if err := r.simulateSeries(ctx, resp, list, runs, req.Seed, req.Visibility); err != nil {
		return nil, err
	}
	return resp, nil
}

// Compare simulates every agent of c, including handoffs.
func (r *Runner) Compare(ctx context.Context, c scenarios.Comparison, opts CompareOptions) (*ChartResponse, error) {
	list, err := c.Expand()
	if err != nil {
		return nil, invalid(err)
	}
	sc, err := c.SystemComplexity()
	if err != nil {
		return nil, invalid(err)
	}
	runs := opts.Runs
	if runs == 0 {
		runs = constants.DefaultChartRuns
	}
	resp := &ChartResponse{Name: sanitize.Label(c.Name), Complexity: c.Complexity, SystemComplexity: sc}
	if err := r.simulateSeries(ctx, resp, list, runs, opts.Seed, opts.Visibility); err != nil {
		return nil, err
	}
	return resp, nil
}

// simulateSeries runs every scenario with the same seed so lines differ only
// by their inputs.
func (r *Runner) simulateSeries(ctx context.Context, resp *ChartResponse, list []scenarios.Scenario, runs int, seed uint64, vis chart.Visibility) error {
	if runs < 0 || runs > constants.MaxRuns {
		return invalid(fmt.Errorf("runs must be between 1 and %d, got %d", constants.MaxRuns, runs))
	}
	vis, err := chart.ParseVisibility(string(vis))
	if err != nil {
		return invalid(err)
	}
	if seed == 0 {
		seed = r.cfg.Simulation.Seed
	}
	if seed == 0 {
		seed = r.seedFn()
	}
	resp.Runs = runs
	resp.Seed = seed

	series := make([]chart.Series, 0, len(list))
	for i, s := range list {
		if s.NChanges == 0 && !s.IsPhased() {
			s.NChanges = scenarios.DefaultChanges
		}
		if s.TotalChanges() > resp.NChanges {
			resp.NChanges = s.TotalChanges()
		}
		start := time.Now()
		out, err := simulation.RunBatch(ctx, simulation.BatchConfig{
			Runs:    runs,
			Workers: r.cfg.Simulation.Workers,
			Seed:    seed,
			Params:  &r.cfg.Model,
		}, s.RunFunc(resp.SystemComplexity))
		duration := time.Since(start)
		if err != nil {
			r.metrics.ObserveBatch(s.Key, "chart", runs, 0, false, duration)
			r.events.Log(logging.Event{
				Kind: logging.EventBatchFailed, Source: "chart", Scenario: s.Key,
				Runs: runs, Seed: seed, DurationMS: duration.Milliseconds(), Error: err.Error(),
			})
			return fmt.Errorf("simulating %s: %w", s.Key, err)
		}
		stats := simulation.SummarizeRuns(out, r.cfg.Simulation.FailureThreshold)
		r.metrics.ObserveBatch(s.Key, "chart", runs, stats.FailureRate, true, duration)

		color := chart.ColorFor(s.Key, i)
		label := sanitize.Label(s.Label)
		resp.Series = append(resp.Series, SeriesResult{Key: s.Key, Label: label, Color: color, Stats: stats})
		series = append(series, chart.Series{Label: label, Color: color, Stats: stats})
	}
	resp.Datasets = chart.Build(series, vis)

	r.logger.Debug("chart complete", "series", len(list), "runs", runs, "seed", seed)
	return nil
}
