package runner

import (
	"errors"
	"fmt"

	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/scenarios"
	"github.com/nvandessel/phsim/internal/simulation"
)

// DefaultComplexityProfile is used when a request names no complexity.
const DefaultComplexityProfile = scenarios.ComplexityEnterprise

// ErrInvalidRequest marks errors caused by the caller's input. Store, context
// and simulation failures never match it.
var ErrInvalidRequest = errors.New("invalid request")

type invalidRequestError struct {
	err error
}

func (e *invalidRequestError) Error() string { return e.err.Error() }

func (e *invalidRequestError) Unwrap() []error { return []error{e.err, ErrInvalidRequest} }

// invalid tags err as a caller error, keeping its message and chain.
func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &invalidRequestError{err: err}
}

// Request asks for one batch. Exactly one of Scenario, Agent,
// EngineeringRigor or Phases selects what to simulate.
type Request struct {
	// Scenario is a catalog key such as "ai-handoff".
	Scenario string `json:"scenario,omitempty"`

	// Agent is an agent profile key such as "senior".
	Agent string `json:"agent,omitempty"`

	// EngineeringRigor simulates an ad hoc agent.
	EngineeringRigor *float64 `json:"engineeringRigor,omitempty"`

	// Phases simulates an ad hoc handoff.
	Phases []simulation.PhaseConfig `json:"phases,omitempty"`

	// Label overrides the display label.
	Label string `json:"label,omitempty"`

	// Complexity is a complexity profile key. SystemComplexity wins when both
	// are set.
	Complexity       string   `json:"complexity,omitempty"`
	SystemComplexity *float64 `json:"systemComplexity,omitempty"`

	// NChanges overrides the scenario's length. Phased scenarios are rescaled.
	NChanges int `json:"nChanges,omitempty"`

	StartValue       float64 `json:"startValue,omitempty"`
	FailureThreshold float64 `json:"failureThreshold,omitempty"`

	// Runs, Workers and Seed fall back to configuration. A zero seed after
	// fallback is replaced with a wall-clock seed.
	Runs    int    `json:"runs,omitempty"`
	Workers int    `json:"workers,omitempty"`
	Seed    uint64 `json:"seed,omitempty"`

	// Source tags stored results: "cli", "http" or "mcp".
	Source string `json:"source,omitempty"`

	// NoSave skips the result history.
	NoSave bool `json:"noSave,omitempty"`
}

// Validate checks field ranges. It does not consult the catalog.
func (r Request) Validate() error {
	selectors := 0
	if r.Scenario != "" {
		selectors++
	}
	if r.Agent != "" {
		selectors++
	}
	if r.EngineeringRigor != nil {
		selectors++
	}
	if len(r.Phases) > 0 {
		selectors++
	}
	if selectors == 0 {
		return fmt.Errorf("one of scenario, agent, engineering rigor or phases is required")
	}
	if selectors > 1 {
		return fmt.Errorf("only one of scenario, agent, engineering rigor or phases may be set")
	}

	if r.EngineeringRigor != nil {
		if err := unitRange("engineering rigor", *r.EngineeringRigor); err != nil {
			return err
		}
	}
	for i, p := range r.Phases {
		if p.NChanges <= 0 {
			return fmt.Errorf("phase %d: changes must be positive, got %d", i, p.NChanges)
		}
		if err := unitRange(fmt.Sprintf("phase %d engineering rigor", i), p.EngineeringRigor); err != nil {
			return err
		}
	}
	if r.SystemComplexity != nil {
		if err := unitRange("system complexity", *r.SystemComplexity); err != nil {
			return err
		}
	}
	if r.Complexity != "" {
		if _, ok := scenarios.Complexity(r.Complexity); !ok {
			return fmt.Errorf("unknown complexity %q (options: %v)", r.Complexity, scenarios.ComplexityKeys())
		}
	}
	if r.NChanges < 0 || r.NChanges > constants.MaxChanges {
		return fmt.Errorf("changes must be between 1 and %d, got %d", constants.MaxChanges, r.NChanges)
	}
	if r.Runs < 0 || r.Runs > constants.MaxRuns {
		return fmt.Errorf("runs must be between 1 and %d, got %d", constants.MaxRuns, r.Runs)
	}
	if r.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", r.Workers)
	}
	if r.StartValue != 0 && (r.StartValue < 1 || r.StartValue > 10) {
		return fmt.Errorf("start value must be between 1 and 10, got %g", r.StartValue)
	}
	if r.FailureThreshold < 0 || r.FailureThreshold > 10 {
		return fmt.Errorf("failure threshold must be between 0 and 10, got %g", r.FailureThreshold)
	}
	return nil
}

func unitRange(name string, v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("%s must be between 0 and 1, got %g", name, v)
	}
	return nil
}

// resolved is a Request with every default applied.
type resolved struct {
	scenario         scenarios.Scenario
	systemComplexity float64
	complexityLabel  string
	failureThreshold float64
	runs             int
	workers          int
	seed             uint64
}
