package scenarios

import (
	"slices"
)

// AgentProfile is a named engineering rigor.
type AgentProfile struct {
	Key              string  `json:"key" yaml:"key"`
	Label            string  `json:"label" yaml:"label"`
	EngineeringRigor float64 `json:"engineeringRigor" yaml:"engineering_rigor"`
	Description      string  `json:"description" yaml:"description"`
}

// ComplexityProfile is a named system complexity.
type ComplexityProfile struct {
	Key              string  `json:"key" yaml:"key"`
	Label            string  `json:"label" yaml:"label"`
	SystemComplexity float64 `json:"systemComplexity" yaml:"system_complexity"`
	Description      string  `json:"description" yaml:"description"`
}

// Agent profile keys.
const (
	AgentAIVibe       = "ai-vibe"
	AgentAIGuardrails = "ai-guardrails"
	AgentJunior       = "junior"
	AgentSenior       = "senior"
)

// Complexity profile keys.
const (
	ComplexitySimple     = "simple"
	ComplexityMedium     = "medium"
	ComplexityEnterprise = "enterprise"
	ComplexityExtreme    = "extreme"
)

var agentProfiles = map[string]AgentProfile{
	AgentAIVibe: {
		Key: AgentAIVibe, Label: "AI Vibe Coding", EngineeringRigor: 0.3,
		Description: "No tests, no structure, just shipping",
	},
	AgentAIGuardrails: {
		Key: AgentAIGuardrails, Label: "AI with Guardrails", EngineeringRigor: 0.4,
		Description: "AI with code review and basic testing",
	},
	AgentJunior: {
		Key: AgentJunior, Label: "Junior Engineer", EngineeringRigor: 0.5,
		Description: "Follows patterns but doesn't create them",
	},
	AgentSenior: {
		Key: AgentSenior, Label: "Senior Engineer", EngineeringRigor: 0.8,
		Description: "Actively improves architecture and maintainability",
	},
}

var complexityProfiles = map[string]ComplexityProfile{
	ComplexitySimple: {
		Key: ComplexitySimple, Label: "Simple System", SystemComplexity: 0.25,
		Description: "Off-the-shelf tools suffice (blog, marketing site, basic CMS)",
	},
	ComplexityMedium: {
		Key: ComplexityMedium, Label: "Medium System", SystemComplexity: 0.5,
		Description: "Standard SaaS app, libraries handle most logic",
	},
	ComplexityEnterprise: {
		Key: ComplexityEnterprise, Label: "Enterprise System", SystemComplexity: 0.85,
		Description: "Complex business rules, bespoke domain logic, many integrations",
	},
	ComplexityExtreme: {
		Key: ComplexityExtreme, Label: "Extreme System", SystemComplexity: 1.0,
		Description: "Safety-critical or deeply coupled; only near-perfect rigor improves it",
	},
}

// Agent returns the agent profile for key.
func Agent(key string) (AgentProfile, bool) {
	p, ok := agentProfiles[key]
	return p, ok
}

// Complexity returns the complexity profile for key.
func Complexity(key string) (ComplexityProfile, bool) {
	p, ok := complexityProfiles[key]
	return p, ok
}

// Agents returns all agent profiles ordered by rigor.
func Agents() []AgentProfile {
	out := make([]AgentProfile, 0, len(agentProfiles))
	for _, p := range agentProfiles {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b AgentProfile) int {
		switch {
		case a.EngineeringRigor < b.EngineeringRigor:
			return -1
		case a.EngineeringRigor > b.EngineeringRigor:
			return 1
		}
		return 0
	})
	return out
}

// Complexities returns all complexity profiles ordered by complexity.
func Complexities() []ComplexityProfile {
	out := make([]ComplexityProfile, 0, len(complexityProfiles))
	for _, p := range complexityProfiles {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b ComplexityProfile) int {
		switch {
		case a.SystemComplexity < b.SystemComplexity:
			return -1
		case a.SystemComplexity > b.SystemComplexity:
			return 1
		}
		return 0
	})
	return out
}

// ComplexityKeys returns the complexity profile keys ordered by complexity.
func ComplexityKeys() []string {
	profiles := Complexities()
	keys := make([]string, len(profiles))
	for i, p := range profiles {
		keys[i] = p.Key
	}
	return keys
}
