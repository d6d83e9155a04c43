// Package runner is the service layer shared by the CLI, the HTTP API and
// the MCP server. It resolves requests against the scenario catalog and
// configuration, runs batches, and records the outcome in the event log,
// metrics and result history.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/phsim/internal/config"
	"github.com/nvandessel/phsim/internal/logging"
	"github.com/nvandessel/phsim/internal/metrics"
	"github.com/nvandessel/phsim/internal/rng"
	"github.com/nvandessel/phsim/internal/sanitize"
	"github.com/nvandessel/phsim/internal/scenarios"
	"github.com/nvandessel/phsim/internal/simulation"
	"github.com/nvandessel/phsim/internal/store"
)

// traceRunPoints bounds the trajectory printed for the first run at trace level.
const traceRunPoints = 10

// Runner executes simulation requests. It is safe for concurrent use.
type Runner struct {
	cfg     *config.PhsimConfig
	catalog *scenarios.Catalog
	store   store.ResultStore
	events  *logging.EventLogger
	logger  *slog.Logger
	metrics metrics.Recorder
	seedFn  func() uint64
}

// Option configures a Runner.
type Option func(*Runner)

// WithCatalog replaces the builtin scenario catalog.
func WithCatalog(c *scenarios.Catalog) Option {
	return func(r *Runner) { r.catalog = c }
}

// WithStore enables result history.
func WithStore(s store.ResultStore) Option {
	return func(r *Runner) { r.store = s }
}

// WithEventLogger enables the JSONL event log.
func WithEventLogger(el *logging.EventLogger) Option {
	return func(r *Runner) { r.events = el }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m metrics.Recorder) Option {
	return func(r *Runner) { r.metrics = m }
}

// New creates a Runner. A nil cfg means config.Default().
func New(cfg *config.PhsimConfig, opts ...Option) *Runner {
	if cfg == nil {
		cfg = config.Default()
	}
	r := &Runner{
		cfg:     cfg,
		catalog: scenarios.NewCatalog(),
		logger:  logging.Discard(),
		metrics: metrics.Nop{},
		seedFn:  rng.WallClockSeed,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the scenario catalog.
func (r *Runner) Catalog() *scenarios.Catalog {
	return r.catalog
}

// Store returns the result store, or nil when history is disabled.
func (r *Runner) Store() store.ResultStore {
	return r.store
}

// Response is the outcome of one batch.
type Response struct {
	ID               string                   `json:"id,omitempty"`
	Scenario         string                   `json:"scenario"`
	Label            string                   `json:"label"`
	Complexity       string                   `json:"complexity,omitempty"`
	SystemComplexity float64                  `json:"systemComplexity"`
	EngineeringRigor float64                  `json:"engineeringRigor"`
	Phases           []simulation.PhaseConfig `json:"phases,omitempty"`
	NChanges         int                      `json:"nChanges"`
	StartValue       float64                  `json:"startValue"`
	FailureThreshold float64                  `json:"failureThreshold"`
	Runs             int                      `json:"runs"`
	Seed             uint64                   `json:"seed"`
	DurationMS       int64                    `json:"durationMs"`
	Stats            simulation.Stats         `json:"stats"`
}

// resolve applies catalog lookups and defaults to req.
func (r *Runner) resolve(req Request) (resolved, error) {
	if err := req.Validate(); err != nil {
		return resolved{}, invalid(err)
	}

	var s scenarios.Scenario
	switch {
	case req.Scenario != "":
		found, err := r.catalog.Get(req.Scenario)
		if err != nil {
			return resolved{}, invalid(err)
		}
		s = found
	case req.Agent != "":
		profile, ok := scenarios.Agent(req.Agent)
		if !ok {
			return resolved{}, invalid(fmt.Errorf("unknown agent %q", req.Agent))
		}
		s = scenarios.Scenario{Key: profile.Key, Label: profile.Label, EngineeringRigor: profile.EngineeringRigor}
	case req.EngineeringRigor != nil:
		s = scenarios.Scenario{
			Key:              "custom",
			Label:            fmt.Sprintf("Custom (ER=%g)", *req.EngineeringRigor),
			EngineeringRigor: *req.EngineeringRigor,
		}
	default:
		s = scenarios.Scenario{Key: "custom-handoff", Label: "Custom Handoff", Phases: req.Phases}
		s.EngineeringRigor = req.Phases[0].EngineeringRigor
	}

	if s.NChanges == 0 && !s.IsPhased() {
		s.NChanges = scenarios.DefaultChanges
	}
	if req.NChanges > 0 && req.NChanges != s.TotalChanges() {
		s = s.WithChanges(req.NChanges)
	}
	if s.IsPhased() {
		s.NChanges = s.TotalChanges()
	}
	if req.StartValue != 0 {
		s.StartValue = req.StartValue
	} else if s.StartValue == 0 && !s.IsPhased() {
		s.StartValue = r.cfg.Simulation.StartHealth
	}
	if req.Label != "" {
		s.Label = sanitize.Label(req.Label)
	}

	res := resolved{scenario: s}

	complexityKey := req.Complexity
	if complexityKey == "" && req.SystemComplexity == nil {
		complexityKey = DefaultComplexityProfile
	}
	if complexityKey != "" {
		profile, _ := scenarios.Complexity(complexityKey)
		res.systemComplexity = profile.SystemComplexity
		res.complexityLabel = profile.Key
	}
	if req.SystemComplexity != nil {
		res.systemComplexity = *req.SystemComplexity
		res.complexityLabel = ""
	}

	res.failureThreshold = req.FailureThreshold
	if res.failureThreshold == 0 {
		res.failureThreshold = r.cfg.Simulation.FailureThreshold
	}
	res.runs = req.Runs
	if res.runs == 0 {
		res.runs = r.cfg.Simulation.Runs
	}
	res.workers = req.Workers
	if res.workers == 0 {
		res.workers = r.cfg.Simulation.Workers
	}
	res.seed = req.Seed
	if res.seed == 0 {
		res.seed = r.cfg.Simulation.Seed
	}
	if res.seed == 0 {
		res.seed = r.seedFn()
	}
	return res, nil
}

// Run resolves req, runs the batch, summarizes it, and records the outcome.
func (r *Runner) Run(ctx context.Context, req Request) (*Response, error) {
	res, err := r.resolve(req)
	if err != nil {
		return nil, err
	}
	source := req.Source
	if source == "" {
		source = "cli"
	}
	s := res.scenario

	r.logger.Debug("starting batch",
		"scenario", s.Key, "runs", res.runs, "changes", s.TotalChanges(),
		"system_complexity", res.systemComplexity, "seed", res.seed)

	batch := simulation.BatchConfig{
		Runs:    res.runs,
		Workers: res.workers,
		Seed:    res.seed,
		Params:  &r.cfg.Model,
	}
	if logging.TraceEnabled(r.logger) {
		batch.Observer = func(run int, ev simulation.StepEvent) {
			logging.Trace(r.logger, "change applied",
				"run", run, "phase", ev.Phase, "step", ev.Step,
				"health", ev.Health, "next", ev.Next, "time_cost", ev.TimeCost)
		}
	}

	start := time.Now()
	runs, err := simulation.RunBatch(ctx, batch, s.RunFunc(res.systemComplexity))
	duration := time.Since(start)
	if err != nil {
		r.metrics.ObserveBatch(s.Key, source, res.runs, 0, false, duration)
		r.events.Log(logging.Event{
			Kind: logging.EventBatchFailed, Source: source, Scenario: s.Key,
			Runs: res.runs, Seed: res.seed, DurationMS: duration.Milliseconds(), Error: err.Error(),
		})
		return nil, err
	}
	if logging.TraceEnabled(r.logger) && len(runs) > 0 {
		logging.Trace(r.logger, "first run", "scenario", s.Key,
			"trajectory", simulation.FormatRunDebug(runs[0], traceRunPoints))
	}

	stats := simulation.SummarizeRuns(runs, res.failureThreshold)

	resp := &Response{
		Scenario:         s.Key,
		Label:            s.Label,
		Complexity:       res.complexityLabel,
		SystemComplexity: res.systemComplexity,
		EngineeringRigor: s.EngineeringRigor,
		Phases:           s.Phases,
		NChanges:         s.TotalChanges(),
		StartValue:       s.Start(),
		FailureThreshold: res.failureThreshold,
		Runs:             res.runs,
		Seed:             res.seed,
		DurationMS:       duration.Milliseconds(),
		Stats:            stats,
	}

	r.metrics.ObserveBatch(s.Key, source, res.runs, stats.FailureRate, true, duration)
	r.events.Log(logging.Event{
		Kind: logging.EventBatchCompleted, Source: source, Scenario: s.Key,
		Runs: res.runs, Workers: res.workers, Seed: res.seed, NChanges: resp.NChanges,
		SystemComplexity: res.systemComplexity, AverageFinal: stats.AverageFinal,
		FailureRate: stats.FailureRate, DurationMS: duration.Milliseconds(),
	})
	r.logger.Info("batch complete",
		"scenario", s.Key, "runs", res.runs, "average_final", stats.AverageFinal,
		"failure_rate", stats.FailureRate, "duration", duration)

	if r.store != nil && !req.NoSave {
		id, err := r.store.Save(ctx, toResult(resp, source))
		if err != nil {
			return nil, fmt.Errorf("saving result: %w", err)
		}
		resp.ID = id
		r.events.Log(logging.Event{Kind: logging.EventResultSaved, Source: source, Scenario: s.Key, ResultID: id})
	}

	return resp, nil
}

func toResult(resp *Response, source string) store.Result {
	return store.Result{
		Source:           source,
		Scenario:         resp.Scenario,
		Label:            resp.Label,
		SystemComplexity: resp.SystemComplexity,
		EngineeringRigor: resp.EngineeringRigor,
		StartValue:       resp.StartValue,
		NChanges:         resp.NChanges,
		Phases:           resp.Phases,
		FailureThreshold: resp.FailureThreshold,
		Runs:             resp.Runs,
		Seed:             resp.Seed,
		DurationMS:       resp.DurationMS,
		Stats:            resp.Stats,
	}
}

// FromResult rebuilds a Response from a stored result.
func FromResult(res *store.Result) *Response {
	return &Response{
		ID:               res.ID,
		Scenario:         res.Scenario,
		Label:            res.Label,
		SystemComplexity: res.SystemComplexity,
		EngineeringRigor: res.EngineeringRigor,
		Phases:           res.Phases,
		NChanges:         res.NChanges,
		StartValue:       res.StartValue,
		FailureThreshold: res.FailureThreshold,
		Runs:             res.Runs,
		Seed:             res.Seed,
		DurationMS:       res.DurationMS,
		Stats:            res.Stats,
	}
}
