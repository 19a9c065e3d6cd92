package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/slackmcp/internal/config"
	"github.com/Aman-CERP/slackmcp/internal/output"
	"github.com/Aman-CERP/slackmcp/internal/preflight"
)

// errDoctorFailed is returned when a required check fails.
var errDoctorFailed = errors.New("system check failed")

func newDoctorCmd(g *globals) *cobra.Command {
	var (
		verbose    bool
		jsonOutput bool
		offline    bool
	)

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, database and embeddings",
		Long: `Run diagnostics to ensure slackmcp can serve queries.

Checks:
  - Configuration is valid
  - PostgreSQL is reachable
  - The vector extension is installed (required for semantic search)
  - The archive has messages
  - The embeddings endpoint answers with the expected dimensions
  - slack.workspace_url is set (permalinks)
  - The log directory is writable

Use --offline to skip the embeddings probe.
Use --verbose for detailed diagnostic information.
Use --json for machine-readable output.`,
		Example: `  # Run diagnostics
  slackmcp doctor

  # Verbose output with details
  slackmcp doctor --verbose

  # JSON output for scripting
  slackmcp doctor --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.runDoctor(cmd, verbose, jsonOutput, offline)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show detailed diagnostic info")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&offline, "offline", false, "Skip the embeddings endpoint probe")

	return cmd
}

// doctorReport is the JSON form of a doctor run.
type doctorReport struct {
	Status string                  `json:"status"`
	Checks []preflight.CheckResult `json:"checks"`
}

func (g *globals) runDoctor(cmd *cobra.Command, verbose, jsonOutput, offline bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Validation errors are reported by the config check rather than
	// aborting the run.
	cfg, err := config.Load(g.projectDir())
	if err != nil {
		return err
	}

	opts, closeTargets := g.doctorOptions(ctx, cfg, offline)
	defer closeTargets()

	opts = append(opts,
		preflight.WithVerbose(verbose),
		preflight.WithOutput(cmd.OutOrStdout()),
	)
	checker := preflight.New(cfg, opts...)
	results := checker.RunAll(ctx)

	if jsonOutput {
		report := doctorReport{Status: checker.SummaryStatus(results), Checks: results}
		if err := output.New(cmd.OutOrStdout()).JSON(report); err != nil {
			return err
		}
	} else {
		checker.PrintResults(results)
	}

	if checker.HasCriticalFailures(results) {
		return errDoctorFailed
	}
	return nil
}
