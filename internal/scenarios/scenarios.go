package scenarios

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/nvandessel/phsim/internal/simulation"
)

// ErrUnknownScenario is returned when a scenario key is not in the catalog.
var ErrUnknownScenario = errors.New("unknown scenario")

// Defaults for the preset table.
const (
	DefaultChanges        = 1000
	DefaultStart          = 8.0
	HandoffFraction       = 0.2
	handoffAIChanges      = 200
	handoffRecoverChanges = 800
)

// Scenario is a named simulation input: either a single agent, or a list of
// phases when Phases is non-empty.
type Scenario struct {
	Key              string                   `json:"key" yaml:"key"`
	Label            string                   `json:"label" yaml:"label"`
	NChanges         int                      `json:"nChanges" yaml:"n_changes"`
	StartValue       float64                  `json:"startValue" yaml:"start_value"`
	EngineeringRigor float64                  `json:"engineeringRigor" yaml:"engineering_rigor"`
	Phases           []simulation.PhaseConfig `json:"phases,omitempty" yaml:"phases,omitempty"`
}

// IsPhased reports whether the scenario is a handoff.
func (s Scenario) IsPhased() bool {
	return len(s.Phases) > 0
}

// Start returns the starting health, falling back to the first phase and
// then to DefaultStart.
func (s Scenario) Start() float64 {
	if s.StartValue != 0 {
		return s.StartValue
	}
	if s.IsPhased() && s.Phases[0].StartValue != 0 {
		return s.Phases[0].StartValue
	}
	return DefaultStart
}

// TotalChanges is the trajectory length minus one.
func (s Scenario) TotalChanges() int {
	if s.IsPhased() {
		return simulation.TotalChanges(s.Phases)
	}
	return s.NChanges
}

// Validate checks ranges and shape.
func (s Scenario) Validate() error {
	if s.Key == "" {
		return fmt.Errorf("scenario key is required")
	}
	if start := s.Start(); start < 1 || start > 10 {
		return fmt.Errorf("scenario %s: start value must be in [1, 10], got %g", s.Key, start)
	}
	if !s.IsPhased() {
		if s.NChanges <= 0 {
			return fmt.Errorf("scenario %s: n_changes must be positive, got %d", s.Key, s.NChanges)
		}
		return validRigor(s.Key, s.EngineeringRigor)
	}
	for i, p := range s.Phases {
		if p.NChanges <= 0 {
			return fmt.Errorf("scenario %s: phase %d: n_changes must be positive, got %d", s.Key, i, p.NChanges)
		}
		if err := validRigor(fmt.Sprintf("%s phase %d", s.Key, i), p.EngineeringRigor); err != nil {
			return err
		}
	}
	return nil
}

func validRigor(name string, er float64) error {
	if er < 0 || er > 1 {
		return fmt.Errorf("scenario %s: engineering rigor must be in [0, 1], got %g", name, er)
	}
	return nil
}

// WithChanges returns a copy running for n changes. A two-phase handoff keeps
// its handoff at HandoffFraction of the run; other phase lists are scaled
// proportionally with the remainder given to the last phase.
func (s Scenario) WithChanges(n int) Scenario {
	out := s
	if !s.IsPhased() {
		out.NChanges = n
		return out
	}
	total := s.TotalChanges()
	phases := slices.Clone(s.Phases)
	assigned := 0
	for i := range phases[:len(phases)-1] {
		phases[i].NChanges = int(math.Round(float64(n) * float64(s.Phases[i].NChanges) / float64(total)))
		assigned += phases[i].NChanges
	}
	phases[len(phases)-1].NChanges = n - assigned
	out.Phases = phases
	out.NChanges = n
	return out
}

// RunFunc returns the simulation function for this scenario.
func (s Scenario) RunFunc(systemComplexity float64) simulation.RunFunc {
	if s.IsPhased() {
		return simulation.Phased(s.Phases, s.Start(), systemComplexity)
	}
	return simulation.SingleAgent(simulation.TrajectoryConfig{
		NChanges:         s.NChanges,
		StartValue:       s.Start(),
		EngineeringRigor: s.EngineeringRigor,
		SystemComplexity: simulation.Float(systemComplexity),
	})
}

func single(key, label, agentKey string) Scenario {
	a := agentProfiles[agentKey]
	return Scenario{
		Key:              key,
		Label:            label,
		NChanges:         DefaultChanges,
		StartValue:       DefaultStart,
		EngineeringRigor: a.EngineeringRigor,
	}
}

func handoff(key, label, fromKey, toKey string) Scenario {
	from := agentProfiles[fromKey]
	to := agentProfiles[toKey]
	return Scenario{
		Key:              key,
		Label:            label,
		NChanges:         DefaultChanges,
		StartValue:       DefaultStart,
		EngineeringRigor: from.EngineeringRigor,
		Phases: []simulation.PhaseConfig{
			{NChanges: handoffAIChanges, StartValue: DefaultStart, EngineeringRigor: from.EngineeringRigor},
			{NChanges: handoffRecoverChanges, EngineeringRigor: to.EngineeringRigor},
		},
	}
}

// Builtin returns the preset scenarios in display order.
func Builtin() []Scenario {
	return []Scenario{
		single("ai-vibe", "AI Vibe Coding", AgentAIVibe),
		single("ai-guardrails", "AI with Guardrails", AgentAIGuardrails),
		single("junior-engineer", "Junior Engineer", AgentJunior),
		single("senior-engineers", "Senior Engineers", AgentSenior),
		handoff("ai-handoff", "AI to Senior Handoff", AgentAIVibe, AgentSenior),
		handoff("ai-junior-handoff", "AI to Junior Handoff", AgentAIVibe, AgentJunior),
	}
}

// Catalog is an ordered, keyed set of scenarios. It is safe for concurrent use.
type Catalog struct {
	mu    sync.RWMutex
	order []string
	byKey map[string]Scenario
}

// NewCatalog returns a catalog seeded with the builtin scenarios.
func NewCatalog() *Catalog {
	c := &Catalog{byKey: make(map[string]Scenario)}
	for _, s := range Builtin() {
		c.put(s)
	}
	return c
}

func (c *Catalog) put(s Scenario) {
	if _, exists := c.byKey[s.Key]; !exists {
		c.order = append(c.order, s.Key)
	}
	c.byKey[s.Key] = s
}

// Add validates s and adds it, replacing any scenario with the same key.
func (c *Catalog) Add(s Scenario) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(s)
	return nil
}

// Get looks up a scenario by key.
func (c *Catalog) Get(key string) (Scenario, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.byKey[key]
	if !ok {
		return Scenario{}, fmt.Errorf("%w: %q (options: %v)", ErrUnknownScenario, key, c.order)
	}
	return s, nil
}

// List returns all scenarios in insertion order.
func (c *Catalog) List() []Scenario {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Scenario, len(c.order))
	for i, k := range c.order {
		out[i] = c.byKey[k]
	}
	return out
}

// Keys returns all scenario keys in insertion order.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order)
}
