package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/phsim/internal/constants"
	"github.com/nvandessel/phsim/internal/ratelimit"
	"github.com/nvandessel/phsim/internal/runner"
	"github.com/nvandessel/phsim/internal/scenarios"
	"github.com/nvandessel/phsim/internal/store"
)

// defaultHistoryLimit bounds phsim_history listings.
const defaultHistoryLimit = 20

// registerTools registers all phsim MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSimulate,
		Description: "Run a Monte Carlo batch of product-health trajectories for a scenario, agent or ad hoc engineering rigor and return summary statistics",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolScenarios,
		Description: "List preset scenarios, agent profiles and system complexity profiles",
	}, s.handleScenarios)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolCompare,
		Description: "Compare several agents (optionally with handoffs) against the same system complexity",
	}, s.handleCompare)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolHistory,
		Description: "List stored simulation results, or show one by id",
	}, s.handleHistory)

	return nil
}

func isRateLimited(err error) bool {
	return errors.Is(err, ratelimit.ErrRateLimited)
}

// checkLimit applies the tool's limiter and counts rejections.
func (s *Server) checkLimit(tool string) error {
	err := ratelimit.CheckLimit(s.toolLimiters, tool)
	if err != nil {
		s.metrics.IncThrottle(tool)
	}
	return err
}

func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolSimulate, start, retErr, auditParams(map[string]any{
			"scenario": args.Scenario, "agent": args.Agent, "engineering_rigor": args.EngineeringRigor,
			"complexity": args.Complexity, "system_complexity": args.SystemComplexity,
			"n_changes": args.NChanges, "runs": args.Runs, "seed": args.Seed,
		}))
	}()

	if err := s.checkLimit(ratelimit.ToolSimulate); err != nil {
		return nil, SimulateOutput{}, err
	}

	resp, err := s.runner.Run(ctx, runner.Request{
		Scenario:         args.Scenario,
		Agent:            args.Agent,
		EngineeringRigor: args.EngineeringRigor,
		Complexity:       args.Complexity,
		SystemComplexity: args.SystemComplexity,
		NChanges:         args.NChanges,
		Runs:             args.Runs,
		Seed:             args.Seed,
		Source:           "mcp",
		NoSave:           args.NoSave,
	})
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("simulation failed: %w", err)
	}

	return nil, simulateOutput(resp, args.Trajectories), nil
}

func simulateOutput(resp *runner.Response, bands bool) SimulateOutput {
	out := SimulateOutput{
		ID:               resp.ID,
		Scenario:         resp.Scenario,
		Label:            resp.Label,
		SystemComplexity: resp.SystemComplexity,
		NChanges:         resp.NChanges,
		Runs:             resp.Runs,
		Seed:             resp.Seed,
		Summary:          digest(resp.Stats, constants.PreviewPoints),
	}
	if bands {
		out.Bands = &Bands{
			Average: resp.Stats.AverageTrajectory,
			P10:     resp.Stats.P10Trajectory,
			P90:     resp.Stats.P90Trajectory,
		}
	}
	out.Message = fmt.Sprintf("%s: average final health %g, failure rate %g over %d runs",
		resp.Label, resp.Stats.AverageFinal, resp.Stats.FailureRate, resp.Runs)
	return out
}

func (s *Server) handleScenarios(ctx context.Context, req *sdk.CallToolRequest, args ScenariosInput) (_ *sdk.CallToolResult, _ ScenariosOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolScenarios, start, retErr, nil)
	}()

	if err := s.checkLimit(ratelimit.ToolScenarios); err != nil {
		return nil, ScenariosOutput{}, err
	}

	return nil, ScenariosOutput{
		Scenarios:    s.runner.Catalog().List(),
		Agents:       scenarios.Agents(),
		Complexities: scenarios.Complexities(),
	}, nil
}

func (s *Server) handleCompare(ctx context.Context, req *sdk.CallToolRequest, args CompareInput) (_ *sdk.CallToolResult, _ CompareOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolCompare, start, retErr, auditParams(map[string]any{
			"name": args.Name, "complexity": args.Complexity, "n_changes": args.NChanges,
			"agents": len(args.Agents), "runs": args.Runs, "seed": args.Seed,
		}))
	}()

	if err := s.checkLimit(ratelimit.ToolCompare); err != nil {
		return nil, CompareOutput{}, err
	}

	var (
		resp *runner.ChartResponse
		err  error
	)
	if len(args.Agents) == 0 {
		resp, err = s.runner.Chart(ctx, runner.ChartRequest{
			Complexity: args.Complexity,
			NChanges:   args.NChanges,
			Runs:       args.Runs,
			Seed:       args.Seed,
		})
	} else {
		c := scenarios.Comparison{
			Name:       args.Name,
			Complexity: args.Complexity,
			NChanges:   args.NChanges,
			Agents:     args.Agents,
		}
		if c.Complexity == "" {
			c.Complexity = runner.DefaultComplexityProfile
		}
		if c.NChanges == 0 {
			c.NChanges = scenarios.DefaultChanges
		}
		resp, err = s.runner.Compare(ctx, c, runner.CompareOptions{Runs: args.Runs, Seed: args.Seed})
	}
	if err != nil {
		return nil, CompareOutput{}, fmt.Errorf("comparison failed: %w", err)
	}

	out := CompareOutput{
		Name:             resp.Name,
		SystemComplexity: resp.SystemComplexity,
		NChanges:         resp.NChanges,
		Runs:             resp.Runs,
		Seed:             resp.Seed,
		Series:           make([]SeriesDigest, 0, len(resp.Series)),
	}
	for _, series := range resp.Series {
		out.Series = append(out.Series, SeriesDigest{
			Key:     series.Key,
			Label:   series.Label,
			Summary: digest(series.Stats, constants.PreviewPoints),
		})
	}
	return nil, out, nil
}

func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolHistory, start, retErr, auditParams(map[string]any{
			"id": args.ID, "scenario": args.Scenario, "limit": args.Limit,
		}))
	}()

	if err := s.checkLimit(ratelimit.ToolHistory); err != nil {
		return nil, HistoryOutput{}, err
	}

	rs := s.runner.Store()
	if rs == nil {
		return nil, HistoryOutput{}, errors.New("result history is disabled")
	}

	if args.ID != "" {
		res, err := rs.Get(ctx, args.ID)
		if err != nil {
			return nil, HistoryOutput{}, fmt.Errorf("failed to get result %s: %w", args.ID, err)
		}
		out := simulateOutput(runner.FromResult(res), false)
		return nil, HistoryOutput{Result: &out, Count: 1}, nil
	}

	limit := args.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	list, err := rs.List(ctx, store.ListOptions{Scenario: args.Scenario, Limit: limit})
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("failed to list results: %w", err)
	}

	items := make([]HistoryItem, 0, len(list))
	for _, summary := range list {
		items = append(items, historyItem(summary))
	}
	return nil, HistoryOutput{Results: items, Count: len(items)}, nil
}
