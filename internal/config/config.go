// Package config provides unified configuration loading for phsim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/model"
	"gopkg.in/yaml.v3"
)

// PhsimConfig contains all phsim configuration settings.
type PhsimConfig struct {
	// Simulation controls batch size, concurrency and seeding.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Model holds the dynamics constants.
	Model model.Parameters `json:"model" yaml:"model"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Store configures the result history.
	Store StoreConfig `json:"store" yaml:"store"`

	// Server configures `phsim serve`.
	Server ServerConfig `json:"server" yaml:"server"`
}

// SimulationConfig configures Monte Carlo batches.
type SimulationConfig struct {
	// Runs is the number of trajectories per batch.
	Runs int `json:"runs" yaml:"runs"`

	// Workers bounds concurrency. 0 uses GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`

	// Seed fixes the random streams. 0 seeds from the wall clock.
	Seed uint64 `json:"seed" yaml:"seed"`

	// FailureThreshold is the health at or below which a run fails.
	FailureThreshold float64 `json:"failure_threshold" yaml:"failure_threshold"`

	// StartHealth is the default starting health.
	StartHealth float64 `json:"start_health" yaml:"start_health"`
}

// LoggingConfig configures phsim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the batch event log at .phsim/events.jsonl.
	// "trace" additionally logs every applied change.
	Level string `json:"level" yaml:"level"`
}

// StoreConfig configures result history.
type StoreConfig struct {
	// Enabled turns on saving batch results.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Dir overrides the data directory. Empty means <project>/.phsim.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Addr is the listen address. Port 0 picks a free port.
	Addr string `json:"addr" yaml:"addr"`
}

// Default returns a PhsimConfig with sensible defaults.
func Default() *PhsimConfig {
	return &PhsimConfig{
		Simulation: SimulationConfig{
			Runs:             constants.DefaultRuns,
			FailureThreshold: constants.DefaultFailureThreshold,
			StartHealth:      constants.DefaultStartHealth,
		},
		Model: model.DefaultParameters(),
		Logging: LoggingConfig{
			Level: "info",
		},
		Store: StoreConfig{
			Enabled: true,
		},
		Server: ServerConfig{
			Addr: "localhost:0",
		},
	}
}

// GlobalDir returns ~/.phsim.
func GlobalDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, constants.DataDirName), nil
}

// Path returns the global config file path.
func Path() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, constants.ConfigFileName), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.phsim/config.yaml -> environment variables
func Load() (*PhsimConfig, error) {
	config := Default()

	if configPath, err := Path(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file. Fields the file
// omits keep their defaults.
func LoadFromFile(path string) (*PhsimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c *PhsimConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *PhsimConfig) Validate() error {
	if c.Simulation.Runs <= 0 {
		return fmt.Errorf("runs must be positive, got %d", c.Simulation.Runs)
	}
	if c.Simulation.Runs > constants.MaxRuns {
		return fmt.Errorf("runs must be at most %d, got %d", constants.MaxRuns, c.Simulation.Runs)
	}

	if c.Simulation.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Simulation.Workers)
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}

	h := c.Model.Health
	if c.Simulation.StartHealth < h.Min || c.Simulation.StartHealth > h.Max {
		return fmt.Errorf("start_health must be between %g and %g, got %g", h.Min, h.Max, c.Simulation.StartHealth)
	}
	if c.Simulation.FailureThreshold < h.Min || c.Simulation.FailureThreshold > h.Max {
		return fmt.Errorf("failure_threshold must be between %g and %g, got %g", h.Min, h.Max, c.Simulation.FailureThreshold)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Unparseable numeric values are ignored.
func applyEnvOverrides(config *PhsimConfig) {
	if v := os.Getenv("PHSIM_RUNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Runs = n
		}
	}

	if v := os.Getenv("PHSIM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Workers = n
		}
	}

	if v := os.Getenv("PHSIM_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}

	if v := os.Getenv("PHSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("PHSIM_STORE_ENABLED"); v != "" {
		config.Store.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("PHSIM_STORE_DIR"); v != "" {
		config.Store.Dir = v
	}

	if v := os.Getenv("PHSIM_SERVER_ADDR"); v != "" {
		config.Server.Addr = v
	}
}
