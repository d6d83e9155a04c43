package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nvandessel/phsim/internal/chart"
	"github.com/nvandessel/phsim/internal/report"
	"github.com/nvandessel/phsim/internal/runner"
	"github.com/nvandessel/phsim/internal/scenarios"
	"github.com/nvandessel/phsim/internal/shutdown"
)

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [name]",
		Short: "Compare scenarios or agents side by side",
		Long: `Simulate several scenarios with the same seed and system complexity and
print one summary line per scenario. With --json the output includes
chart-ready datasets (average line plus p10-p90 band per series).

Without --file the preset scenarios are compared. With --file, the named
comparison from the YAML file is run (or the only one, if there is one).

Examples:
  phsim compare                                   # all presets, enterprise
  phsim compare -c simple --scenarios ai-vibe,senior-engineers
  phsim compare --file team.yaml vibe-vs-senior   # comparison from a file
  phsim compare --json --visibility averages-only`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			file, _ := cmd.Flags().GetString("file")
			complexity, _ := cmd.Flags().GetString("complexity")
			keys, _ := cmd.Flags().GetString("scenarios")
			nChanges, _ := cmd.Flags().GetInt("changes")
			runs, _ := cmd.Flags().GetInt("runs")
			seed, _ := cmd.Flags().GetUint64("seed")
			visFlag, _ := cmd.Flags().GetString("visibility")

			vis, err := chart.ParseVisibility(visFlag)
			if err != nil {
				return err
			}

			a, err := openApp(cmd, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := shutdown.Context(cmd.Context())
			defer cancel()

			var resp *runner.ChartResponse
			if file != "" {
				f, err := scenarios.LoadFile(file)
				if err != nil {
					return err
				}
				c, err := pickComparison(f.Comparisons, args)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("complexity") {
					c.Complexity = complexity
				}
				if nChanges > 0 {
					c.NChanges = nChanges
				}
				resp, err = a.runner.Compare(ctx, c, runner.CompareOptions{Runs: runs, Seed: seed, Visibility: vis})
				if err != nil {
					return err
				}
			} else {
				if len(args) > 0 {
					return fmt.Errorf("a comparison name requires --file")
				}
				req := runner.ChartRequest{
					Complexity: complexity,
					NChanges:   nChanges,
					Runs:       runs,
					Seed:       seed,
					Visibility: vis,
				}
				if keys != "" {
					req.Keys = strings.Split(keys, ",")
				}
				resp, err = a.runner.Chart(ctx, req)
				if err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(resp)
			}
			report.Chart(out, resp)
			return nil
		},
	}

	cmd.Flags().String("file", "", "YAML file with comparisons")
	cmd.Flags().StringP("complexity", "c", runner.DefaultComplexityProfile, "Complexity profile: simple, medium, enterprise, extreme")
	cmd.Flags().String("scenarios", "", "Comma-separated scenario keys (default: all presets)")
	cmd.Flags().IntP("changes", "n", 0, "Changes per run (default: scenario length)")
	cmd.Flags().IntP("runs", "r", 0, "Runs per series (default 800)")
	cmd.Flags().Uint64("seed", 0, "Random seed shared by every series (0 = config or wall clock)")
	cmd.Flags().String("visibility", string(chart.VisibilityAll), "Dataset visibility: all or averages-only")

	return cmd
}

// pickComparison selects the named comparison, or the only one when no name
// is given.
func pickComparison(list []scenarios.Comparison, args []string) (scenarios.Comparison, error) {
	if len(list) == 0 {
		return scenarios.Comparison{}, fmt.Errorf("file defines no comparisons")
	}
	if len(args) == 0 {
		if len(list) > 1 {
			names := make([]string, len(list))
			for i, c := range list {
				names[i] = c.Name
			}
			return scenarios.Comparison{}, fmt.Errorf("file defines %d comparisons, pick one: %s", len(list), strings.Join(names, ", "))
		}
		return list[0], nil
	}
	for _, c := range list {
		if c.Name == args[0] {
			return c, nil
		}
	}
	return scenarios.Comparison{}, fmt.Errorf("comparison %q not found", args[0])
}
