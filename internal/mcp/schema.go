package mcp

import (
	"time"

	"github.com/nvandessel/phsim/internal/scenarios"
	"github.com/nvandessel/phsim/internal/simulation"
	"github.com/nvandessel/phsim/internal/store"
)

// SimulateInput defines the input for the phsim_simulate tool.
type SimulateInput struct {
	Scenario         string   `json:"scenario,omitempty" jsonschema:"Preset scenario key, e.g. ai-vibe or ai-handoff. Use phsim_scenarios to list them"`
	Agent            string   `json:"agent,omitempty" jsonschema:"Agent profile key (ai-vibe, ai-guardrails, junior, senior) instead of a scenario"`
	EngineeringRigor *float64 `json:"engineering_rigor,omitempty" jsonschema:"Ad hoc engineering rigor in [0, 1] instead of a scenario or agent"`
	Complexity       string   `json:"complexity,omitempty" jsonschema:"Complexity profile key: simple, medium, enterprise (default) or extreme"`
	SystemComplexity *float64 `json:"system_complexity,omitempty" jsonschema:"Explicit system complexity in [0, 1]; overrides complexity"`
	NChanges         int      `json:"n_changes,omitempty" jsonschema:"Number of changes per run (default 1000)"`
	Runs             int      `json:"runs,omitempty" jsonschema:"Number of Monte Carlo runs (default from config)"`
	Seed             uint64   `json:"seed,omitempty" jsonschema:"Random seed for a reproducible batch; 0 picks one"`
	Trajectories     bool     `json:"trajectories,omitempty" jsonschema:"Include the full average, p10 and p90 trajectories"`
	NoSave           bool     `json:"no_save,omitempty" jsonschema:"Do not record the result in history"`
}

// SimulateOutput defines the output for the phsim_simulate tool.
type SimulateOutput struct {
	ID               string      `json:"id,omitempty" jsonschema:"History id of the saved result"`
	Scenario         string      `json:"scenario"`
	Label            string      `json:"label"`
	SystemComplexity float64     `json:"system_complexity"`
	NChanges         int         `json:"n_changes"`
	Runs             int         `json:"runs"`
	Seed             uint64      `json:"seed"`
	Summary          StatsDigest `json:"summary"`
	Bands            *Bands      `json:"bands,omitempty" jsonschema:"Full trajectories, present when requested"`
	Message          string      `json:"message"`
}

// StatsDigest is the scalar part of simulation statistics plus a short
// preview of the average trajectory.
type StatsDigest struct {
	AverageFinal         float64   `json:"average_final"`
	AverageMin           float64   `json:"average_min"`
	FailureRate          float64   `json:"failure_rate"`
	AverageTotalTime     float64   `json:"average_total_time"`
	AverageTimePerChange float64   `json:"average_time_per_change"`
	BaselineTime         float64   `json:"baseline_time"`
	TimeOverheadPercent  float64   `json:"time_overhead_percent"`
	Preview              []float64 `json:"preview" jsonschema:"First points of the average trajectory"`
}

// Bands holds the per-step trajectories.
type Bands struct {
	Average []float64 `json:"average"`
	P10     []float64 `json:"p10"`
	P90     []float64 `json:"p90"`
}

// ScenariosInput defines the input for the phsim_scenarios tool.
type ScenariosInput struct{}

// ScenariosOutput defines the output for the phsim_scenarios tool.
type ScenariosOutput struct {
	Scenarios    []scenarios.Scenario          `json:"scenarios"`
	Agents       []scenarios.AgentProfile      `json:"agents"`
	Complexities []scenarios.ComplexityProfile `json:"complexities"`
}

// CompareInput defines the input for the phsim_compare tool.
type CompareInput struct {
	Name       string                      `json:"name,omitempty" jsonschema:"Name of the comparison"`
	Complexity string                      `json:"complexity,omitempty" jsonschema:"Complexity profile key (default enterprise)"`
	NChanges   int                         `json:"n_changes,omitempty" jsonschema:"Number of changes per run (default 1000)"`
	Agents     []scenarios.ComparisonAgent `json:"agents,omitempty" jsonschema:"Agents to compare; omit to compare the preset scenarios"`
	Runs       int                         `json:"runs,omitempty" jsonschema:"Runs per agent (default 800)"`
	Seed       uint64                      `json:"seed,omitempty" jsonschema:"Random seed shared by every agent"`
}

// CompareOutput defines the output for the phsim_compare tool.
type CompareOutput struct {
	Name             string         `json:"name,omitempty"`
	SystemComplexity float64        `json:"system_complexity"`
	NChanges         int            `json:"n_changes"`
	Runs             int            `json:"runs"`
	Seed             uint64         `json:"seed"`
	Series           []SeriesDigest `json:"series"`
}

// SeriesDigest is one agent's line in a comparison.
type SeriesDigest struct {
	Key     string      `json:"key"`
	Label   string      `json:"label"`
	Summary StatsDigest `json:"summary"`
}

// HistoryInput defines the input for the phsim_history tool.
type HistoryInput struct {
	ID       string `json:"id,omitempty" jsonschema:"Show one stored result by id"`
	Scenario string `json:"scenario,omitempty" jsonschema:"Only list results for this scenario"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum number of results to list (default 20)"`
}

// HistoryOutput defines the output for the phsim_history tool.
type HistoryOutput struct {
	Results []HistoryItem   `json:"results,omitempty"`
	Result  *SimulateOutput `json:"result,omitempty"`
	Count   int             `json:"count"`
}

// HistoryItem is a listing view of a stored result.
type HistoryItem struct {
	ID               string  `json:"id"`
	CreatedAt        string  `json:"created_at" jsonschema:"RFC 3339 timestamp"`
	Source           string  `json:"source"`
	Scenario         string  `json:"scenario"`
	SystemComplexity float64 `json:"system_complexity"`
	NChanges         int     `json:"n_changes"`
	Runs             int     `json:"runs"`
	AverageFinal     float64 `json:"average_final"`
	FailureRate      float64 `json:"failure_rate"`
	Scope            string  `json:"scope,omitempty"`
}

func historyItem(s store.Summary) HistoryItem {
	return HistoryItem{
		ID:               s.ID,
		CreatedAt:        s.CreatedAt.UTC().Format(time.RFC3339),
		Source:           s.Source,
		Scenario:         s.Scenario,
		SystemComplexity: s.SystemComplexity,
		NChanges:         s.NChanges,
		Runs:             s.Runs,
		AverageFinal:     s.AverageFinal,
		FailureRate:      s.FailureRate,
		Scope:            string(s.Scope),
	}
}

func digest(s simulation.Stats, preview int) StatsDigest {
	n := min(preview, len(s.AverageTrajectory))
	return StatsDigest{
		AverageFinal:         s.AverageFinal,
		AverageMin:           s.AverageMin,
		FailureRate:          s.FailureRate,
		AverageTotalTime:     s.AverageTotalTime,
		AverageTimePerChange: s.AverageTimePerChange,
		BaselineTime:         s.BaselineTime,
		TimeOverheadPercent:  s.TimeOverheadPercent,
		Preview:              s.AverageTrajectory[:n:n],
	}
}
