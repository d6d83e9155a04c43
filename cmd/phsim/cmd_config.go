package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nvandessel/phsim/internal/config"
	"github.com/nvandessel/phsim/internal/model"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage phsim configuration",
		Long: `View and modify phsim configuration settings.

Configuration is stored in ~/.phsim/config.yaml.

Examples:
  phsim config list                              # Show all settings
  phsim config get simulation.runs               # Get a specific setting
  phsim config set simulation.seed 42            # Set a setting
  phsim config set model.impact.breakeven_curve linear`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			seed := "(wall clock)"
			if cfg.Simulation.Seed != 0 {
				seed = strconv.FormatUint(cfg.Simulation.Seed, 10)
			}
			workers := "(GOMAXPROCS)"
			if cfg.Simulation.Workers != 0 {
				workers = strconv.Itoa(cfg.Simulation.Workers)
			}

			fmt.Fprintln(out, "Configuration (~/.phsim/config.yaml):")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Simulation Settings:")
			fmt.Fprintf(out, "  simulation.runs:               %d\n", cfg.Simulation.Runs)
			fmt.Fprintf(out, "  simulation.workers:            %s\n", workers)
			fmt.Fprintf(out, "  simulation.seed:               %s\n", seed)
			fmt.Fprintf(out, "  simulation.failure_threshold:  %g\n", cfg.Simulation.FailureThreshold)
			fmt.Fprintf(out, "  simulation.start_health:       %g\n", cfg.Simulation.StartHealth)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Model Settings:")
			fmt.Fprintf(out, "  model.impact.breakeven_curve:  %s\n", cfg.Model.Impact.BreakevenCurve)
			fmt.Fprintf(out, "  model.tractability.curve:      %s\n", cfg.Model.Tractability.Curve)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Other Settings:")
			fmt.Fprintf(out, "  logging.level:                 %s\n", valueOrDefault(cfg.Logging.Level, "info"))
			fmt.Fprintf(out, "  store.enabled:                 %v\n", cfg.Store.Enabled)
			fmt.Fprintf(out, "  store.dir:                     %s\n", valueOrDefault(cfg.Store.Dir, "(project .phsim)"))
			fmt.Fprintf(out, "  server.addr:                   %s\n", cfg.Server.Addr)
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}

			path, err := config.Path()
			if err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.PhsimConfig, key string) (interface{}, bool) {
	switch key {
	case "simulation.runs":
		return cfg.Simulation.Runs, true
	case "simulation.workers":
		return cfg.Simulation.Workers, true
	case "simulation.seed":
		return cfg.Simulation.Seed, true
	case "simulation.failure_threshold":
		return cfg.Simulation.FailureThreshold, true
	case "simulation.start_health":
		return cfg.Simulation.StartHealth, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "store.enabled":
		return cfg.Store.Enabled, true
	case "store.dir":
		return cfg.Store.Dir, true
	case "server.addr":
		return cfg.Server.Addr, true
	case "model.impact.breakeven_curve":
		return cfg.Model.Impact.BreakevenCurve, true
	case "model.tractability.curve":
		return cfg.Model.Tractability.Curve, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range checks
// are left to PhsimConfig.Validate.
func setConfigValue(cfg *config.PhsimConfig, key, value string) error {
	switch key {
	case "simulation.runs", "simulation.workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %s", key, value)
		}
		if key == "simulation.runs" {
			cfg.Simulation.Runs = n
		} else {
			cfg.Simulation.Workers = n
		}
	case "simulation.seed":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %s", value)
		}
		cfg.Simulation.Seed = n
	case "simulation.failure_threshold", "simulation.start_health":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number for %s: %s", key, value)
		}
		if key == "simulation.failure_threshold" {
			cfg.Simulation.FailureThreshold = f
		} else {
			cfg.Simulation.StartHealth = f
		}
	case "logging.level":
		cfg.Logging.Level = value
	case "store.enabled":
		cfg.Store.Enabled = value == "true" || value == "1"
	case "store.dir":
		cfg.Store.Dir = value
	case "server.addr":
		cfg.Server.Addr = value
	case "model.impact.breakeven_curve":
		if value != model.BreakevenExponential && value != model.BreakevenLinear {
			return fmt.Errorf("invalid breakeven curve: %s (valid: %s, %s)", value, model.BreakevenExponential, model.BreakevenLinear)
		}
		cfg.Model.Impact.BreakevenCurve = value
	case "model.tractability.curve":
		if value != model.TractabilityPower && value != model.TractabilitySigmoid {
			return fmt.Errorf("invalid tractability curve: %s (valid: %s, %s)", value, model.TractabilityPower, model.TractabilitySigmoid)
		}
		cfg.Model.Tractability.Curve = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
