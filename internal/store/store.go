// Package store persists simulation results so past batches can be listed,
// inspected, exported and compared.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/simulation"
)

// ErrNotFound is returned when a result ID does not exist.
var ErrNotFound = errors.New("result not found")

// Result is one stored batch: the inputs that produced it and its summary.
type Result struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Source is the surface that ran the batch: "cli", "http" or "mcp".
	Source string `json:"source"`

	Scenario         string                   `json:"scenario"`
	Label            string                   `json:"label"`
	SystemComplexity float64                  `json:"system_complexity"`
	EngineeringRigor float64                  `json:"engineering_rigor"`
	StartValue       float64                  `json:"start_value"`
	NChanges         int                      `json:"n_changes"`
	Phases           []simulation.PhaseConfig `json:"phases,omitempty"`
	FailureThreshold float64                  `json:"failure_threshold"`

	Runs       int    `json:"runs"`
	Seed       uint64 `json:"seed"`
	DurationMS int64  `json:"duration_ms"`

	Stats simulation.Stats `json:"stats"`

	// Scope records which store a result was read from. It is not persisted.
	Scope constants.Scope `json:"scope,omitempty"`
}

// Summary is the listing view of a Result, without trajectories.
type Summary struct {
	ID               string          `json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	Source           string          `json:"source"`
	Scenario         string          `json:"scenario"`
	Label            string          `json:"label"`
	SystemComplexity float64         `json:"system_complexity"`
	NChanges         int             `json:"n_changes"`
	Runs             int             `json:"runs"`
	AverageFinal     float64         `json:"average_final"`
	FailureRate      float64         `json:"failure_rate"`
	Scope            constants.Scope `json:"scope,omitempty"`
}

// Summarize returns r's listing view.
func (r Result) Summarize() Summary {
	return Summary{
		ID:               r.ID,
		CreatedAt:        r.CreatedAt,
		Source:           r.Source,
		Scenario:         r.Scenario,
		Label:            r.Label,
		SystemComplexity: r.SystemComplexity,
		NChanges:         r.NChanges,
		Runs:             r.Runs,
		AverageFinal:     r.Stats.AverageFinal,
		FailureRate:      r.Stats.FailureRate,
		Scope:            r.Scope,
	}
}

// ListOptions filters List. Zero values mean no filter.
type ListOptions struct {
	Scenario string
	Source   string
	Since    time.Time
	Limit    int
}

// ResultStore stores simulation results.
type ResultStore interface {
	// Save stores r. An empty ID is assigned a new UUID and a zero CreatedAt
	// is set to now. The stored ID is returned.
	Save(ctx context.Context, r Result) (string, error)

	// Get returns the result with id, or ErrNotFound.
	Get(ctx context.Context, id string) (*Result, error)

	// List returns summaries newest first.
	List(ctx context.Context, opts ListOptions) ([]Summary, error)

	// Delete removes the result with id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error

	// All returns every full result, oldest first, for export.
	All(ctx context.Context) ([]Result, error)

	Close() error
}
