package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/phsim/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run phsim as an MCP server",
		Long: `Start phsim as a Model Context Protocol (MCP) server over stdio.

Tools exposed:
  phsim_simulate   Run a Monte Carlo batch for a scenario, agent or rigor
  phsim_scenarios  List built-in scenarios, agents and complexity presets
  phsim_compare    Compare agents or scenarios under one system complexity
  phsim_history    List or fetch saved results

Tool calls are audited to .phsim/audit.jsonl.

Configuration for Claude Desktop (~/.config/claude/claude_desktop_config.json):
  {
    "mcpServers": {
      "phsim": {
        "command": "phsim",
        "args": ["mcp-server"]
      }
    }
  }`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, appOptions{history: true})
			if err != nil {
				return err
			}
			defer a.Close()

			server, err := mcp.NewServer(&mcp.Config{
				Name:     "phsim",
				Version:  version,
				Runner:   a.runner,
				AuditDir: a.dataDir,
				Logger:   a.logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			a.logger.Info("mcp server starting", "version", version, "data_dir", a.dataDir)
			return server.Run(cmd.Context())
		},
	}
}
