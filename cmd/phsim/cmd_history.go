package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/phsim/internal/archive"
	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/report"
	"github.com/nvandessel/phsim/internal/runner"
	"github.com/nvandessel/phsim/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved simulation results",
		Long: `List, show and delete simulation results saved by 'phsim run', the HTTP
API and the MCP server.

Results live in <root>/.phsim/history.db (local) and ~/.phsim/history.db
(global).

Examples:
  phsim history list                      # newest first, both scopes
  phsim history list --scenario ai-vibe --since 7d
  phsim history show <id>
  phsim history delete <id>`,
	}

	cmd.PersistentFlags().String("scope", "both", "History scope: local, global or both")

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistoryDeleteCmd(),
	)
	return cmd
}

// openHistory opens the result store for the --scope flag.
func openHistory(cmd *cobra.Command) (store.ResultStore, error) {
	scopeFlag, _ := cmd.Flags().GetString("scope")
	scope, err := constants.ParseScope(scopeFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if cfg.Store.Dir != "" {
		return store.NewSQLiteResultStore(cfg.Store.Dir)
	}
	root, _ := cmd.Flags().GetString("root")
	rs, err := store.OpenScoped(root, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to open result store: %w", err)
	}
	return rs, nil
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved results, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			scenario, _ := cmd.Flags().GetString("scenario")
			source, _ := cmd.Flags().GetString("source")
			limit, _ := cmd.Flags().GetInt("limit")
			since, _ := cmd.Flags().GetString("since")

			opts := store.ListOptions{Scenario: scenario, Source: source, Limit: limit}
			if since != "" {
				d, err := archive.ParseDuration(since)
				if err != nil {
					return fmt.Errorf("invalid --since: %w", err)
				}
				opts.Since = time.Now().Add(-d)
			}

			rs, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			list, err := rs.List(cmd.Context(), opts)
			if err != nil {
				return fmt.Errorf("failed to list results: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				if list == nil {
					list = []store.Summary{}
				}
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"results": list,
					"count":   len(list),
				})
			}
			report.History(out, list)
			return nil
		},
	}

	cmd.Flags().String("scenario", "", "Only results for this scenario key")
	cmd.Flags().String("source", "", "Only results from this source: cli, http or mcp")
	cmd.Flags().Int("limit", 20, "Maximum number of results (0 = all)")
	cmd.Flags().String("since", "", "Only results newer than this age (e.g. 24h, 7d)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a saved result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			rs, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			res, err := rs.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(res)
			}
			report.Text(out, runner.FromResult(res))
			return nil
		},
	}
}

func newHistoryDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			rs, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer rs.Close()

			if err := rs.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{
					"status": "deleted",
					"id":     args[0],
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
