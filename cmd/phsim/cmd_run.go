package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/report"
	"github.com/nvandessel/phsim/internal/runner"
	"github.com/nvandessel/phsim/internal/shutdown"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a Monte Carlo batch and print summary statistics",
		Long: `Simulate many product-health trajectories for one scenario and print the
average final and minimum health, failure rate, the start of the average
trajectory and time metrics.

Select what to simulate with exactly one of --scenario, --agent or --rigor.
Results are saved to the history unless --no-save is given.

Examples:
  phsim run                                    # ai-vibe, enterprise complexity
  phsim run -s ai-handoff -c medium -r 5000    # handoff in a medium system
  phsim run --agent senior -n 2000             # senior engineers, 2000 changes
  phsim run --rigor 0.65 --sc 0.7 --seed 42    # ad hoc agent and complexity
  phsim run -s custom --file scenarios.yaml    # scenario from a YAML file
  phsim run -s ai-vibe --csv > ai-vibe.csv     # per-step average and band`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			csvOut, _ := cmd.Flags().GetBool("csv")
			scenarioKey, _ := cmd.Flags().GetString("scenario")
			agent, _ := cmd.Flags().GetString("agent")
			complexity, _ := cmd.Flags().GetString("complexity")
			nChanges, _ := cmd.Flags().GetInt("changes")
			runs, _ := cmd.Flags().GetInt("runs")
			workers, _ := cmd.Flags().GetInt("workers")
			seed, _ := cmd.Flags().GetUint64("seed")
			start, _ := cmd.Flags().GetFloat64("start")
			threshold, _ := cmd.Flags().GetFloat64("threshold")
			label, _ := cmd.Flags().GetString("label")
			file, _ := cmd.Flags().GetString("file")
			noSave, _ := cmd.Flags().GetBool("no-save")
			scopeFlag, _ := cmd.Flags().GetString("scope")

			if jsonOut && csvOut {
				return fmt.Errorf("--json and --csv are mutually exclusive")
			}
			scope, err := constants.ParseScope(scopeFlag)
			if err != nil {
				return err
			}
			if scope == constants.ScopeBoth {
				return fmt.Errorf("--scope must be local or global when saving results")
			}

			req := runner.Request{
				Agent:            agent,
				Complexity:       complexity,
				NChanges:         nChanges,
				Runs:             runs,
				Workers:          workers,
				Seed:             seed,
				StartValue:       start,
				FailureThreshold: threshold,
				Label:            label,
				Source:           "cli",
				NoSave:           noSave,
			}
			if cmd.Flags().Changed("rigor") {
				rigor, _ := cmd.Flags().GetFloat64("rigor")
				req.EngineeringRigor = &rigor
			}
			if cmd.Flags().Changed("sc") {
				sc, _ := cmd.Flags().GetFloat64("sc")
				req.SystemComplexity = &sc
				if !cmd.Flags().Changed("complexity") {
					req.Complexity = ""
				}
			}
			// --scenario has a default; it only competes with the other
			// selectors when given explicitly.
			if cmd.Flags().Changed("scenario") || (req.Agent == "" && req.EngineeringRigor == nil) {
				req.Scenario = scenarioKey
			}

			a, err := openApp(cmd, appOptions{history: !noSave, scope: scope, scenarioFile: file})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := shutdown.Context(cmd.Context())
			defer cancel()

			resp, err := a.runner.Run(ctx, req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case jsonOut:
				return json.NewEncoder(out).Encode(resp)
			case csvOut:
				return report.CSV(out, resp)
			default:
				report.Text(out, resp)
			}
			return nil
		},
	}

	cmd.Flags().StringP("scenario", "s", "ai-vibe", "Scenario key (see 'phsim scenarios')")
	cmd.Flags().String("agent", "", "Agent profile key instead of a scenario (ai-vibe, ai-guardrails, junior, senior)")
	cmd.Flags().Float64("rigor", 0, "Ad hoc engineering rigor in [0, 1] instead of a scenario")
	cmd.Flags().StringP("complexity", "c", runner.DefaultComplexityProfile, "Complexity profile: simple, medium, enterprise, extreme")
	cmd.Flags().Float64("sc", 0, "Explicit system complexity in [0, 1] (overrides --complexity)")
	cmd.Flags().IntP("changes", "n", 0, "Changes per run (default: scenario length, 1000)")
	cmd.Flags().IntP("runs", "r", 0, "Number of runs (default from config)")
	cmd.Flags().Int("workers", 0, "Concurrent workers (default from config, 0 = GOMAXPROCS)")
	cmd.Flags().Uint64("seed", 0, "Random seed (default from config, 0 = wall clock)")
	cmd.Flags().Float64("start", 0, "Starting health (default: scenario or config)")
	cmd.Flags().Float64("threshold", 0, "Failure threshold (default from config)")
	cmd.Flags().String("label", "", "Display label for the result")
	cmd.Flags().String("file", "", "YAML scenario file to add to the catalog")
	cmd.Flags().Bool("csv", false, "Write per-step average, p10 and p90 as CSV")
	cmd.Flags().Bool("no-save", false, "Do not save the result to history")
	cmd.Flags().String("scope", "local", "History to save to: local or global")

	return cmd
}
