package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/slackmcp/internal/logging"
	"github.com/Aman-CERP/slackmcp/internal/output"
)

type logsOptions struct {
	follow    bool
	lines     int
	level     string
	tool      string
	requestID string
	grep      string
	noColor   bool
	logFile   string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View server logs",
		Long: `View and tail the slackmcp server log.

By default shows the last 50 entries of ~/.slackmcp/logs/server.log.
Every tool call logs its tool name and a request id, so --tool and
--request narrow the output to one tool or one call.`,
		Example: `  slackmcp logs                     # Last 50 entries
  slackmcp logs -f                  # Follow in real time
  slackmcp logs --level error       # Errors only
  slackmcp logs --tool search       # One tool
  slackmcp logs --request 1b4e28ba  # One call, by id prefix
  slackmcp logs --grep "timeout"    # Regex over the raw line`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("no-color") {
				opts.noColor = !output.IsTerminal(cmd.OutOrStdout())
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runLogs(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.tool, "tool", "", "Only entries of this MCP tool")
	cmd.Flags().StringVar(&opts.requestID, "request", "", "Only entries of this request id (prefix match)")
	cmd.Flags().StringVar(&opts.grep, "grep", "", "Filter by pattern (regex)")
	cmd.Flags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file")

	return cmd
}

func runLogs(ctx context.Context, stdout, stderr io.Writer, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.grep != "" {
		pattern, err = regexp.Compile(opts.grep)
		if err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:     opts.level,
		Pattern:   pattern,
		Tool:      opts.tool,
		RequestID: opts.requestID,
		NoColor:   opts.noColor,
	}, stdout)

	_, _ = fmt.Fprintf(stderr, "Log file: %s\n", path)
	if opts.follow {
		_, _ = fmt.Fprintln(stderr, "Following... (Ctrl+C to stop)")
	}
	_, _ = fmt.Fprintln(stderr, "---")

	entries, err := viewer.Tail(path, opts.lines)
	if err != nil {
		return err
	}
	viewer.Print(entries)

	if !opts.follow {
		return nil
	}

	ch := make(chan logging.LogEntry, 64)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, ch)
		close(ch)
	}()
	for entry := range ch {
		_, _ = fmt.Fprintln(stdout, viewer.FormatEntry(entry))
	}
	return <-errCh
}
