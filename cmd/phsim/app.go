package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nvandessel/phsim/internal/config"
	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/logging"
	"github.com/nvandessel/phsim/internal/metrics"
	"github.com/nvandessel/phsim/internal/runner"
	"github.com/nvandessel/phsim/internal/scenarios"
	"github.com/nvandessel/phsim/internal/store"
)

// app holds what a command needs to run simulations.
type app struct {
	cfg     *config.PhsimConfig
	logger  *slog.Logger
	events  *logging.EventLogger
	store   store.ResultStore
	dataDir string
	runner  *runner.Runner
}

type appOptions struct {
	// history opens the result store when store.enabled is set.
	history bool
	scope   constants.Scope

	// scenarioFile is loaded into the catalog.
	scenarioFile string

	recorder metrics.Recorder
}

// loadConfig loads and validates configuration, applying --log-level.
func loadConfig(cmd *cobra.Command) (*config.PhsimConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// dataDir is store.dir when configured, otherwise <root>/.phsim.
func dataDir(cmd *cobra.Command, cfg *config.PhsimConfig) string {
	if cfg.Store.Dir != "" {
		return cfg.Store.Dir
	}
	root, _ := cmd.Flags().GetString("root")
	return store.LocalPath(root)
}

// openStore opens the result history. A configured store.dir is a single
// store; otherwise writes go to the scope's directory and reads see both.
func openStore(cmd *cobra.Command, cfg *config.PhsimConfig, scope constants.Scope) (store.ResultStore, error) {
	if cfg.Store.Dir != "" {
		return store.NewSQLiteResultStore(cfg.Store.Dir)
	}
	root, _ := cmd.Flags().GetString("root")
	return store.OpenMultiResultStore(root, scope)
}

func openApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logging.NewLogger(cfg.Logging.Level, os.Stderr),
		dataDir: dataDir(cmd, cfg),
	}
	a.events = logging.NewEventLogger(a.dataDir, cfg.Logging.Level)

	runnerOpts := []runner.Option{
		runner.WithLogger(a.logger),
		runner.WithEventLogger(a.events),
	}
	if opts.recorder != nil {
		runnerOpts = append(runnerOpts, runner.WithMetrics(opts.recorder))
	}

	if opts.scenarioFile != "" {
		catalog := scenarios.NewCatalog()
		if _, err := catalog.LoadInto(opts.scenarioFile); err != nil {
			a.Close()
			return nil, err
		}
		runnerOpts = append(runnerOpts, runner.WithCatalog(catalog))
	}

	if opts.history && cfg.Store.Enabled {
		scope := opts.scope
		if scope == "" {
			scope = constants.ScopeLocal
		}
		rs, err := openStore(cmd, cfg, scope)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open result store: %w", err)
		}
		a.store = rs
		runnerOpts = append(runnerOpts, runner.WithStore(rs))
	}

	a.runner = runner.New(cfg, runnerOpts...)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("closing result store", "error", err)
		}
	}
	a.events.Close()
}
