package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/slackmcp/internal/config"
	"github.com/Aman-CERP/slackmcp/internal/logging"
	mcpserver "github.com/Aman-CERP/slackmcp/internal/mcp"
	"github.com/Aman-CERP/slackmcp/internal/telemetry"
	"github.com/Aman-CERP/slackmcp/pkg/version"
)

func newServeCmd(g *globals) *cobra.Command {
	var (
		transport string
		addr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the MCP server.

With the stdio transport (default) the server speaks JSON-RPC on stdin and
stdout, as local agents expect. Nothing else is ever written to stdout;
logs go to ` + logging.DefaultLogPath() + `.

With the http transport the server listens on --addr and serves the
streamable MCP endpoint at /mcp, a health check at /healthz and Prometheus
metrics at the configured metrics path.`,
		Example: `  # Local agent (stdio)
  slackmcp serve

  # Shared server
  slackmcp serve --transport http --addr 0.0.0.0:8765`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("transport") {
				cfg.Server.Transport = transport
			}
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if g.debug {
				cfg.Server.LogLevel = "debug"
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio or http")
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8765", "Listen address for the http transport")

	return cmd
}

// runServe starts the server with MCP-safe logging. No stdout output may
// happen before or during serving.
func runServe(ctx context.Context, cfg *config.Config) error {
	logger, cleanup, err := logging.SetupMCPMode(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	logger.Info("slackmcp starting",
		slog.String("version", version.Version),
		slog.String("transport", cfg.Server.Transport),
		slog.Bool("semantic", cfg.SemanticEnabled()))

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.New(telemetry.DefaultConfig())
	}

	b, err := openBackend(ctx, cfg, metrics)
	if err != nil {
		logger.Error("Failed to open backend", slog.String("error", err.Error()))
		return err
	}
	defer b.Close()

	opts := []mcpserver.Option{
		mcpserver.WithLogger(logger),
		mcpserver.WithHealthCheck(b.store),
	}
	if metrics != nil {
		opts = append(opts,
			mcpserver.WithToolObserver(metrics),
			mcpserver.WithMetricsHandler(metrics.Handler(), cfg.Metrics.Path))
	}

	srv, err := mcpserver.NewServer(b.service, opts...)
	if err != nil {
		return err
	}

	return srv.Serve(ctx, cfg.Server.Transport, cfg.Server.Addr)
}
