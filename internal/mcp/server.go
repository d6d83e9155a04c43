// Package mcp provides an MCP (Model Context Protocol) server for phsim.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/phsim/internal/logging"
	"github.com/nvandessel/phsim/internal/metrics"
	"github.com/nvandessel/phsim/internal/ratelimit"
	"github.com/nvandessel/phsim/internal/runner"
	"github.com/nvandessel/phsim/internal/shutdown"
)

// Server wraps the MCP SDK server and exposes phsim tools.
type Server struct {
	server       *sdk.Server
	runner       *runner.Runner
	toolLimiters ratelimit.ToolLimiters
	metrics      metrics.Recorder
	audit        *AuditLogger
	logger       *slog.Logger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "phsim")
	Version string // Server version
	Runner  *runner.Runner

	// AuditDir enables the tool audit log when set.
	AuditDir string

	Metrics  metrics.Recorder
	Logger   *slog.Logger
	Limiters ratelimit.ToolLimiters
}

// NewServer creates a new MCP server with phsim tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("mcp server requires a runner")
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{})

	s := &Server{
		server:       mcpServer,
		runner:       cfg.Runner,
		toolLimiters: cfg.Limiters,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
	}
	if s.toolLimiters == nil {
		s.toolLimiters = ratelimit.NewToolLimiters()
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if cfg.AuditDir != "" {
		s.audit = NewAuditLogger(cfg.AuditDir)
	}

	if err := s.registerTools(); err != nil {
		s.audit.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := shutdown.Context(ctx)
	defer cancel()

	return s.server.Run(ctx, &sdk.StdioTransport{})
}

// Close releases the audit log.
func (s *Server) Close() error {
	return s.audit.Close()
}
