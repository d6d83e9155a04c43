// Package scenarios holds the preset agent profiles, complexity profiles and
// named scenarios, loads custom scenarios from YAML, and expands multi-agent
// comparisons (including handoffs) into simulation inputs.
package scenarios
