package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk shape of a scenario file.
type File struct {
	Scenarios   []Scenario   `yaml:"scenarios"`
	Comparisons []Comparison `yaml:"comparisons,omitempty"`
}

// LoadFile reads and validates a YAML scenario file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scenario file: %w", err)
	}

	for _, s := range f.Scenarios {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("invalid scenario in %s: %w", path, err)
		}
	}
	for _, c := range f.Comparisons {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("invalid comparison in %s: %w", path, err)
		}
	}
	return &f, nil
}

// LoadInto reads path and adds its scenarios to c.
func (c *Catalog) LoadInto(path string) (*File, error) {
	f, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	for _, s := range f.Scenarios {
		if err := c.Add(s); err != nil {
			return nil, err
		}
	}
	return f, nil
}
