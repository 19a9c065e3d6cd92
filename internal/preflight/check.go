package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/Aman-CERP/slackmcp/internal/config"
	"github.com/Aman-CERP/slackmcp/internal/embed"
	"github.com/Aman-CERP/slackmcp/internal/logging"
)

// DefaultTimeout bounds each check that talks to an upstream.
const DefaultTimeout = 5 * time.Second

// CheckStatus represents the result of a preflight check.
type CheckStatus int

const (
	// StatusPass indicates the check passed successfully.
	StatusPass CheckStatus = iota
	// StatusWarn indicates a non-critical warning.
	StatusWarn
	// StatusFail indicates the check failed.
	StatusFail
)

// String returns the string representation of a CheckStatus.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText encodes the status by name in JSON output.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult holds the result of a single preflight check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical returns true if this is a required check that failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Database is the part of the store the checks need.
// store.PostgresStore implements it.
type Database interface {
	Ping(ctx context.Context) error
	HasExtension(ctx context.Context, name string) (bool, error)
	CountMessages(ctx context.Context) (int64, error)
}

// Checker performs preflight validation checks.
type Checker struct {
	cfg      *config.Config
	db       Database
	dbErr    error
	embedder embed.Embedder
	logPath  string
	timeout  time.Duration
	verbose  bool
	output   io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithDatabase sets the store the database checks run against.
func WithDatabase(db Database) Option {
	return func(c *Checker) {
		c.db = db
	}
}

// WithDatabaseError records why the store could not be opened; the
// database checks report it instead of running.
func WithDatabaseError(err error) Option {
	return func(c *Checker) {
		c.dbErr = err
	}
}

// WithEmbedder enables a live embedding probe.
func WithEmbedder(e embed.Embedder) Option {
	return func(c *Checker) {
		c.embedder = e
	}
}

// WithLogPath overrides the log file whose directory is checked.
func WithLogPath(path string) Option {
	return func(c *Checker) {
		c.logPath = path
	}
}

// WithTimeout bounds each upstream check.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithVerbose enables verbose output.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// New creates a new Checker for cfg with the given options.
func New(cfg *config.Config, opts ...Option) *Checker {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	c := &Checker{
		cfg:     cfg,
		logPath: logging.DefaultLogPath(),
		timeout: DefaultTimeout,
		output:  os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs all preflight checks and returns the results.
func (c *Checker) RunAll(ctx context.Context) []CheckResult {
	var results []CheckResult

	results = append(results, c.CheckConfig())

	// Database checks share one verdict on reachability.
	db := c.CheckDatabase(ctx)
	results = append(results, db)
	if db.Status == StatusPass {
		results = append(results, c.CheckVectorExtension(ctx))
		results = append(results, c.CheckMessages(ctx))
	}

	results = append(results, c.CheckEmbeddings(ctx))
	results = append(results, c.CheckWorkspaceURL())
	results = append(results, c.CheckLogDir())

	return results
}

// HasCriticalFailures returns true if any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns a summary status string for the results.
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	hasCriticalFailure := false

	for _, r := range results {
		if r.IsCritical() {
			hasCriticalFailure = true
		}
		if r.Status == StatusWarn || (r.Status == StatusFail && !r.Required) {
			hasWarnings = true
		}
	}

	if hasCriticalFailure {
		return "failed"
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults prints check results to the configured output.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "slackmcp doctor")
	_, _ = fmt.Fprintln(c.output, "===============")
	_, _ = fmt.Fprintln(c.output)

	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "      %s\n", r.Details)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	status := c.SummaryStatus(results)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(status))

	var warnings, errors []string
	for _, r := range results {
		if r.IsCritical() {
			errors = append(errors, r.Name+": "+r.Message)
		} else if r.Status != StatusPass {
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	if len(errors) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d error(s):\n", len(errors))
		for _, e := range errors {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", e)
		}
	}

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(c.output)
		_, _ = fmt.Fprintf(c.output, "%d warning(s):\n", len(warnings))
		for _, w := range warnings {
			_, _ = fmt.Fprintf(c.output, "  - %s\n", w)
		}
	}
}

// CheckConfig validates the loaded configuration.
func (c *Checker) CheckConfig() CheckResult {
	result := CheckResult{
		Name:     "config",
		Required: true,
	}

	if err := c.cfg.Validate(); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}

	result.Status = StatusPass
	result.Message = "OK"
	if config.UserConfigExists() {
		result.Details = "User config: " + config.GetUserConfigPath()
	}
	return result
}

// CheckWorkspaceURL warns when permalinks cannot be built.
func (c *Checker) CheckWorkspaceURL() CheckResult {
	result := CheckResult{
		Name:     "workspace_url",
		Required: false,
	}

	if c.cfg.Slack.WorkspaceURL == "" {
		result.Status = StatusWarn
		result.Message = "not set (permalinks disabled)"
		result.Details = "Set SLACK_WORKSPACE_URL or slack.workspace_url, e.g. https://acme.slack.com"
		return result
	}

	result.Status = StatusPass
	result.Message = c.cfg.Slack.WorkspaceURL
	return result
}
