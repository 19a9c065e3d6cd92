// Package cmd provides the CLI commands for slackmcp.
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/slackmcp/internal/config"
	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
	"github.com/Aman-CERP/slackmcp/internal/logging"
	mcpserver "github.com/Aman-CERP/slackmcp/internal/mcp"
	"github.com/Aman-CERP/slackmcp/internal/preflight"
	"github.com/Aman-CERP/slackmcp/pkg/version"
)

// deps are the constructors commands use to reach the archive. Tests swap
// them for fakes.
type deps struct {
	// openService returns the query service and a function releasing it.
	openService func(ctx context.Context, cfg *config.Config) (mcpserver.Service, func(), error)
	// doctorOptions opens what the doctor checks run against.
	doctorOptions func(ctx context.Context, cfg *config.Config, offline bool) ([]preflight.Option, func())
}

func defaultDeps() deps {
	return deps{
		openService:   openQueryService,
		doctorOptions: openDoctorTargets,
	}
}

// globals holds persistent flag values and per-run state.
type globals struct {
	deps

	debug      bool
	dir        string
	cleanupLog func()
}

// NewRootCmd creates the root command for the slackmcp CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(defaultDeps())
}

func newRootCmd(d deps) *cobra.Command {
	g := &globals{deps: d}

	cmd := &cobra.Command{
		Use:   "slackmcp",
		Short: "Conversation context and hybrid search over a Slack archive, served over MCP",
		Long: `slackmcp gives AI agents read-only access to a Slack archive stored in
PostgreSQL: threads with surrounding channel context, conversation listings
and hybrid keyword + semantic search.

Run 'slackmcp serve' to start the MCP server, or use the query commands
below directly from a terminal.`,
		Version:       version.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.SetVersionTemplate("slackmcp version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "Enable debug logging to "+logging.DefaultLogPath())
	cmd.PersistentFlags().StringVar(&g.dir, "dir", "", "Project directory holding .slackmcp.yaml and .env (default: nearest project root)")

	cmd.PersistentPreRunE = g.startLogging
	cmd.PersistentPostRunE = g.stopLogging

	cmd.AddCommand(newServeCmd(g))
	cmd.AddCommand(newSearchCmd(g))
	cmd.AddCommand(newContextCmd(g))
	cmd.AddCommand(newThreadCmd(g))
	cmd.AddCommand(newConversationsCmd(g))
	cmd.AddCommand(newChannelsCmd(g))
	cmd.AddCommand(newResolveCmd(g))
	cmd.AddCommand(newDoctorCmd(g))
	cmd.AddCommand(newConfigCmd(g))
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command and prints a failure the way users act on
// it: message, then suggestion.
func Execute() error {
	cmd := NewRootCmd()
	err := cmd.Execute()
	if err != nil {
		printError(cmd.ErrOrStderr(), err)
	}
	return err
}

func printError(w io.Writer, err error) {
	_, _ = fmt.Fprintln(w, slerrors.FormatForCLI(err))
}

// startLogging configures slog for CLI commands. serve sets up MCP-safe
// logging itself because stdout belongs to the protocol.
func (g *globals) startLogging(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "serve" {
		return nil
	}

	cfg := logging.StderrConfig("warn")
	if g.debug {
		cfg = logging.DebugConfig()
	}
	logger, cleanup, err := logging.Setup(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	g.cleanupLog = cleanup
	slog.SetDefault(logger)
	if g.debug {
		slog.Debug("Debug logging enabled",
			slog.String("log_file", cfg.FilePath),
			slog.String("command", cmd.CommandPath()))
	}
	return nil
}

func (g *globals) stopLogging(_ *cobra.Command, _ []string) error {
	if g.cleanupLog != nil {
		g.cleanupLog()
		g.cleanupLog = nil
	}
	return nil
}

// projectDir returns --dir or the nearest project root of the working
// directory.
func (g *globals) projectDir() string {
	if g.dir != "" {
		return g.dir
	}
	root, err := config.FindProjectRoot(".")
	if err != nil {
		root, _ = os.Getwd()
	}
	return root
}

// loadConfig loads and validates the effective configuration.
func (g *globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.projectDir())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withService loads the configuration, opens the query service and runs fn.
func (g *globals) withService(ctx context.Context, fn func(svc mcpserver.Service) error) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	svc, closeFn, err := g.openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}
