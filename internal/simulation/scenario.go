package simulation

// Defaults applied to zero-valued configuration fields.
const (
	DefaultStartValue       = 8.0
	DefaultFailureThreshold = 3.0
	DefaultComplexity       = 1.0
)

// TrajectoryConfig describes a single-agent run.
type TrajectoryConfig struct {
	// NChanges is the number of change events to simulate.
	NChanges int `json:"nChanges" yaml:"n_changes"`

	// StartValue is the starting health (default 8).
	StartValue float64 `json:"startValue,omitempty" yaml:"start_value,omitempty"`

	// EngineeringRigor is the agent's rigor, 0-1.
	EngineeringRigor float64 `json:"engineeringRigor" yaml:"engineering_rigor"`

	// SystemComplexity is the target system's complexity, 0-1.
	// nil means DefaultComplexity.
	SystemComplexity *float64 `json:"systemComplexity,omitempty" yaml:"system_complexity,omitempty"`

	// FailureThreshold is the health at or below which a run counts as failed
	// (default 3).
	FailureThreshold float64 `json:"failureThreshold,omitempty" yaml:"failure_threshold,omitempty"`
}

// Start returns StartValue, applying the default.
func (c TrajectoryConfig) Start() float64 {
	if c.StartValue == 0 {
		return DefaultStartValue
	}
	return c.StartValue
}

// Complexity returns SystemComplexity, applying the default.
func (c TrajectoryConfig) Complexity() float64 {
	if c.SystemComplexity == nil {
		return DefaultComplexity
	}
	return *c.SystemComplexity
}

// Threshold returns FailureThreshold, applying the default.
func (c TrajectoryConfig) Threshold() float64 {
	if c.FailureThreshold == 0 {
		return DefaultFailureThreshold
	}
	return c.FailureThreshold
}

// PhaseConfig is one contiguous stretch of a handoff run under one agent.
type PhaseConfig struct {
	NChanges         int     `json:"nChanges" yaml:"n_changes"`
	StartValue       float64 `json:"startValue,omitempty" yaml:"start_value,omitempty"`
	EngineeringRigor float64 `json:"engineeringRigor" yaml:"engineering_rigor"`
}

// TotalChanges sums NChanges over phases.
func TotalChanges(phases []PhaseConfig) int {
	total := 0
	for _, p := range phases {
		total += p.NChanges
	}
	return total
}

// HealthState is the evolving state of one run. It carries across phase
// boundaries unchanged.
type HealthState struct {
	Health         float64
	ChangeCount    int
	CumulativeTime float64
}

// Run is one sampled trajectory. Health[0] is the start value and every
// element lies within the health bounds. Time[k] is the cumulative time after
// k changes.
type Run struct {
	Health    []float64 `json:"healthTrajectory"`
	Time      []float64 `json:"timeTrajectory"`
	TotalTime float64   `json:"totalTime"`
}

// Final returns the last health value.
func (r Run) Final() float64 {
	return r.Health[len(r.Health)-1]
}

// StepEvent describes one applied change, for observers.
type StepEvent struct {
	Phase       int     // index into the phase list (0 for single runs)
	Step        int     // 1-based step within the whole trajectory
	ChangeCount int     // changes applied before this one, across phases
	Health      float64 // health before the change
	Next        float64 // health after the change
	TimeCost    float64 // time charged for the change
}
