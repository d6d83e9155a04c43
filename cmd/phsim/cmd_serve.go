package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/phsim/internal/metrics"
	"github.com/nvandessel/phsim/internal/ratelimit"
	"github.com/nvandessel/phsim/internal/server"
	"github.com/nvandessel/phsim/internal/shutdown"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation HTTP API",
		Long: `Start an HTTP server exposing simulations, comparisons, charts and
result history as JSON, with Prometheus metrics on /metrics.

Examples:
  phsim serve                          # random free port on localhost
  phsim serve --addr localhost:8080
  curl -X POST localhost:8080/api/simulate -d '{"scenario":"ai-vibe","runs":500}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			perMinute, _ := cmd.Flags().GetFloat64("rate")
			burst, _ := cmd.Flags().GetInt("burst")

			recorder := metrics.NewPrometheusRecorder()
			a, err := openApp(cmd, appOptions{history: true, recorder: recorder})
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}

			opts := []server.Option{
				server.WithAddr(addr),
				server.WithMetrics(recorder),
				server.WithLogger(a.logger),
			}
			if perMinute > 0 {
				opts = append(opts, server.WithLimiter(ratelimit.PerMinute(perMinute, burst)))
			}
			srv := server.NewServer(a.runner, opts...)

			ctx, cancel := shutdown.Context(cmd.Context())
			defer cancel()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe(ctx) }()

			if done, err := waitListening(srv, errCh); done {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Serving phsim API on http://%s\n", srv.Addr())
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop.")

			return <-errCh
		},
	}

	cmd.Flags().String("addr", "", "Listen address (default from config server.addr)")
	cmd.Flags().Float64("rate", 60, "Simulation requests per minute per client (0 disables limiting)")
	cmd.Flags().Int("burst", 10, "Rate limiter burst size")
	return cmd
}

// waitListening blocks until srv has bound its address. done reports that
// ListenAndServe already returned, with its error.
func waitListening(srv *server.Server, errCh <-chan error) (done bool, err error) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for srv.Addr() == "" {
		select {
		case err := <-errCh:
			return true, err
		case <-ticker.C:
		}
	}
	return false, nil
}
