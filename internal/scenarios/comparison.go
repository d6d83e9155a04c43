package scenarios

import (
	"fmt"
	"math"

	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/simulation"
)

// Comparison runs several agents against the same system, optionally with
// one agent handing off to another part way through.
type Comparison struct {
	Name       string            `json:"name" yaml:"name"`
	Complexity string            `json:"complexity" yaml:"complexity"`
	NChanges   int               `json:"nChanges" yaml:"n_changes"`
	Agents     []ComparisonAgent `json:"agents" yaml:"agents"`
}

// ComparisonAgent is one line on a comparison chart.
type ComparisonAgent struct {
	ID               string  `json:"id" yaml:"id"`
	Name             string  `json:"name" yaml:"name"`
	EngineeringRigor float64 `json:"engineeringRigor" yaml:"engineering_rigor"`

	// HandoffTo names another agent that takes over after HandoffFraction of
	// the changes.
	HandoffTo string `json:"handoffTo,omitempty" yaml:"handoff_to,omitempty"`
}

// SystemComplexity resolves the comparison's complexity profile.
func (c Comparison) SystemComplexity() (float64, error) {
	p, ok := Complexity(c.Complexity)
	if !ok {
		return 0, fmt.Errorf("comparison %s: unknown complexity %q (options: %v)", c.Name, c.Complexity, ComplexityKeys())
	}
	return p.SystemComplexity, nil
}

// Validate checks the comparison's agents and handoff references.
func (c Comparison) Validate() error {
	if c.NChanges <= 0 || c.NChanges > constants.MaxChanges {
		return fmt.Errorf("comparison %s: n_changes must be between 1 and %d, got %d", c.Name, constants.MaxChanges, c.NChanges)
	}
	if _, err := c.SystemComplexity(); err != nil {
		return err
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("comparison %s: at least one agent is required", c.Name)
	}
	if len(c.Agents) > constants.MaxComparisonAgents {
		return fmt.Errorf("comparison %s: at most %d agents allowed, got %d", c.Name, constants.MaxComparisonAgents, len(c.Agents))
	}
	ids := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if a.ID == "" {
			return fmt.Errorf("comparison %s: agent id is required", c.Name)
		}
		if ids[a.ID] {
			return fmt.Errorf("comparison %s: duplicate agent id %q", c.Name, a.ID)
		}
		if a.EngineeringRigor < 0 || a.EngineeringRigor > 1 {
			return fmt.Errorf("comparison %s: agent %s: engineering rigor must be in [0, 1], got %g", c.Name, a.ID, a.EngineeringRigor)
		}
		ids[a.ID] = true
	}
	for _, a := range c.Agents {
		if a.HandoffTo == "" {
			continue
		}
		if a.HandoffTo == a.ID {
			return fmt.Errorf("comparison %s: agent %s cannot hand off to itself", c.Name, a.ID)
		}
		if !ids[a.HandoffTo] {
			return fmt.Errorf("comparison %s: agent %s hands off to unknown agent %q", c.Name, a.ID, a.HandoffTo)
		}
	}
	return nil
}

// HandoffPoint is the number of changes made before a handoff.
func HandoffPoint(nChanges int) int {
	return int(math.Round(float64(nChanges) * HandoffFraction))
}

// Expand turns each agent into a Scenario. An agent with a handoff becomes a
// two-phase scenario; the target agent's own line is unaffected.
func (c Comparison) Expand() ([]Scenario, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	byID := make(map[string]ComparisonAgent, len(c.Agents))
	for _, a := range c.Agents {
		byID[a.ID] = a
	}

	out := make([]Scenario, 0, len(c.Agents))
	for _, a := range c.Agents {
		label := a.Name
		if label == "" {
			label = a.ID
		}
		s := Scenario{
			Key:              a.ID,
			Label:            label,
			NChanges:         c.NChanges,
			StartValue:       DefaultStart,
			EngineeringRigor: a.EngineeringRigor,
		}
		if a.HandoffTo != "" {
			target := byID[a.HandoffTo]
			point := HandoffPoint(c.NChanges)
			s.Phases = []simulation.PhaseConfig{
				{NChanges: point, StartValue: DefaultStart, EngineeringRigor: a.EngineeringRigor},
				{NChanges: c.NChanges - point, EngineeringRigor: target.EngineeringRigor},
			}
		}
		out = append(out, s)
	}
	return out, nil
}
