package app

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/config"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/gateway"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/mcp"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/tools"
)

// NewGateway builds the registration table and a gateway that sends
// through sender.
func NewGateway(sender gateway.Sender, logger *logrus.Entry) (*gateway.Gateway, error) {
	registry, err := tools.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("build operation registry: %w", err)
	}
	return gateway.New(registry, sender, logger.WithField("component", "gateway")), nil
}

// NewMCPServer constructs an MCP server with every Databricks tool and the
// bundled prompts.
func NewMCPServer(g *gateway.Gateway, logger *logrus.Entry) *mcp.Server {
	return mcp.NewServer(mcp.NewToolbox(mcp.GatewayTools(g)...), mcp.DefaultPrompts(), logger)
}

// Build wires a validated configuration into a ready MCP server.
func Build(cfg *config.Config, logger *logrus.Entry) (*mcp.Server, error) {
	transport := gateway.NewTransport(cfg, logger.WithField("component", "transport"))
	g, err := NewGateway(transport, logger)
	if err != nil {
		return nil, err
	}
	return NewMCPServer(g, logger), nil
}

// Run serves MCP on the configured transport until ctx is done or, for
// stdio, stdin closes.
func Run(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout io.Writer, logger *logrus.Entry) error {
	server, err := Build(cfg, logger)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"transport": cfg.Transport,
		"host":      cfg.DatabricksHost,
		"timeout":   cfg.RequestTimeout().String(),
	}).Info("starting Databricks MCP server")

	switch cfg.Transport {
	case config.TransportStdio:
		return mcp.ServeStdio(ctx, server, stdin, stdout, logger)
	case config.TransportSSE:
		return mcp.RunHTTP(ctx, server, cfg.ListenAddr(), logger)
	default:
		return fmt.Errorf("unsupported transport %q", cfg.Transport)
	}
}
