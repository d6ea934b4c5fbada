package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/app"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/config"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "DEBUG"
	}
	logger, cleanup, err := logging.New(logging.Options{
		Component:  "databricks_mcp",
		Dir:        cfg.LogDir,
		Level:      level,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging error: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, cfg, os.Stdin, os.Stdout, logger); err != nil {
		logger.Errorf("server error: %v", err)
		cleanup()
		os.Exit(1)
	}
	logger.Info("server stopped")
}
