// Package report renders simulation results for the terminal: a colored text
// summary, tables of scenarios and history, and CSV trajectories.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/runner"
	"github.com/nvandessel/phsim/internal/scenarios"
	"github.com/nvandessel/phsim/internal/store"
)

// Num formats v with the fewest digits that round-trip.
func Num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinNums(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = Num(v)
	}
	return strings.Join(parts, ", ")
}

// healthColor grades a health value against the failure threshold.
func healthColor(v, threshold float64) *color.Color {
	switch {
	case v <= threshold:
		return color.New(color.FgRed, color.Bold)
	case v < constants.DefaultStartHealth-2:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

// Header writes the "Running ..." preamble for resp.
func Header(w io.Writer, resp *runner.Response) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	fmt.Fprintf(w, "Running %s with %d simulations, %d changes each...\n",
		cyan(resp.Scenario), resp.Runs, resp.NChanges)

	label := "Custom"
	if p, ok := scenarios.Complexity(resp.Complexity); ok {
		label = p.Label
	}
	fmt.Fprintf(w, "System Complexity: %s (SC=%s)\n", label, Num(resp.SystemComplexity))
}

// Text writes the full text summary of resp.
func Text(w io.Writer, resp *runner.Response) {
	Header(w, resp)

	s := resp.Stats
	gray := color.New(color.FgHiBlack).SprintFunc()
	bold := color.New(color.Bold).SprintFunc()
	final := healthColor(s.AverageFinal, resp.FailureThreshold).SprintFunc()
	minimum := healthColor(s.AverageMin, resp.FailureThreshold).SprintFunc()

	failure := color.New(color.FgGreen).SprintFunc()
	if s.FailureRate > 0 {
		failure = color.New(color.FgYellow).SprintFunc()
	}
	if s.FailureRate >= 0.5 {
		failure = color.New(color.FgRed, color.Bold).SprintFunc()
	}

	n := min(constants.PreviewPoints, len(s.AverageTrajectory))

	fmt.Fprintf(w, "Average final PH: %s\n", final(Num(s.AverageFinal)))
	fmt.Fprintf(w, "Average minimum PH: %s\n", minimum(Num(s.AverageMin)))
	fmt.Fprintf(w, "Failure rate (PH ≤ %s): %s\n", Num(resp.FailureThreshold), failure(Num(s.FailureRate)))
	fmt.Fprintf(w, "Average trajectory (first %d): %s\n", n, joinNums(s.AverageTrajectory[:n]))
	fmt.Fprintln(w, bold("Time metrics:"))
	fmt.Fprintf(w, "  Total time: %s %s\n", Num(s.AverageTotalTime), gray("(baseline: "+Num(s.BaselineTime)+")"))
	fmt.Fprintf(w, "  Time per change: %s\n", Num(s.AverageTimePerChange))
	fmt.Fprintf(w, "  Time overhead: %s%%\n", Num(s.TimeOverheadPercent))

	if resp.ID != "" {
		fmt.Fprintf(w, "%s\n", gray(fmt.Sprintf("Saved as %s (seed %d)", resp.ID, resp.Seed)))
	} else {
		fmt.Fprintf(w, "%s\n", gray(fmt.Sprintf("Seed %d", resp.Seed)))
	}
}

// Chart writes one summary line per series.
func Chart(w io.Writer, resp *runner.ChartResponse) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()

	title := resp.Name
	if title == "" {
		title = "Scenarios"
	}
	fmt.Fprintf(w, "%s: %d simulations, %d changes, SC=%s\n",
		cyan(title), resp.Runs, resp.NChanges, Num(resp.SystemComplexity))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SERIES\tFINAL\tMIN\tFAILURE\tOVERHEAD")
	for _, s := range resp.Series {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s%%\n",
			s.Label, Num(s.Stats.AverageFinal), Num(s.Stats.AverageMin),
			Num(s.Stats.FailureRate), Num(s.Stats.TimeOverheadPercent))
	}
	tw.Flush()
}

// Scenarios writes the catalog with its profiles.
func Scenarios(w io.Writer, list []scenarios.Scenario) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLABEL\tCHANGES\tRIGOR")
	for _, s := range list {
		rigor := Num(s.EngineeringRigor)
		if s.IsPhased() {
			parts := make([]string, len(s.Phases))
			for i, p := range s.Phases {
				parts[i] = fmt.Sprintf("%s×%d", Num(p.EngineeringRigor), p.NChanges)
			}
			rigor = strings.Join(parts, " → ")
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", s.Key, s.Label, s.TotalChanges(), rigor)
	}
	tw.Flush()

	fmt.Fprintln(w)
	fmt.Fprintln(tw, "COMPLEXITY\tLABEL\tSC")
	for _, p := range scenarios.Complexities() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Key, p.Label, Num(p.SystemComplexity))
	}
	tw.Flush()
}

// History writes stored result summaries, newest first.
func History(w io.Writer, list []store.Summary) {
	if len(list) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSOURCE\tSCENARIO\tSC\tRUNS\tFINAL\tFAILURE")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			s.ID, s.CreatedAt.Local().Format(time.DateTime), s.Source, s.Scenario,
			Num(s.SystemComplexity), s.Runs, Num(s.AverageFinal), Num(s.FailureRate))
	}
	tw.Flush()
}

// CSV writes the per-step average and band as
// step,average,p10,p90.
func CSV(w io.Writer, resp *runner.Response) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"step", "average", "p10", "p90"}); err != nil {
		return err
	}
	s := resp.Stats
	for i, avg := range s.AverageTrajectory {
		row := []string{strconv.Itoa(i), Num(avg), Num(s.P10Trajectory[i]), Num(s.P90Trajectory[i])}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
