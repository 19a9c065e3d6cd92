package preflight

import (
	"context"
	"fmt"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

// CheckDatabase checks that the database answers a ping.
func (c *Checker) CheckDatabase(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "database",
		Required: true,
	}

	switch {
	case c.dbErr != nil:
		result.Status = StatusFail
		result.Message = c.dbErr.Error()
		if s := suggestion(c.dbErr); s != "" {
			result.Details = s
		}
		return result
	case c.db == nil:
		result.Status = StatusFail
		result.Message = "not configured"
		result.Details = "Set DATABASE_URL or database.url in .slackmcp.yaml."
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.db.Ping(ctx); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("unreachable: %v", err)
		return result
	}

	result.Status = StatusPass
	result.Message = "reachable"
	return result
}

// CheckVectorExtension checks that pgvector is installed. Without it the
// semantic leg cannot run, but keyword search still works.
func (c *Checker) CheckVectorExtension(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "vector_extension",
		Required: c.cfg.SemanticEnabled(),
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ok, err := c.db.HasExtension(ctx, "vector")
	switch {
	case err != nil:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot query extensions: %v", err)
	case !ok:
		result.Status = StatusFail
		result.Message = "pgvector is not installed"
		result.Details = "Run CREATE EXTENSION vector; or set embeddings.provider: none."
	default:
		result.Status = StatusPass
		result.Message = "installed"
	}
	return result
}

// CheckMessages checks that slack.message is readable and reports its size.
func (c *Checker) CheckMessages(ctx context.Context) CheckResult {
	result := CheckResult{
		Name:     "messages",
		Required: true,
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	n, err := c.db.CountMessages(ctx)
	switch {
	case err != nil:
		result.Status = StatusFail
		result.Message = fmt.Sprintf("slack.message is not readable: %v", err)
	case n == 0:
		result.Status = StatusWarn
		result.Message = "slack.message is empty"
		result.Details = "Every lookup will return no results until the archive is loaded."
	default:
		result.Status = StatusPass
		result.Message = fmt.Sprintf("%d messages", n)
	}
	return result
}

func suggestion(err error) string {
	if se, ok := slerrors.As(err); ok {
		return se.Suggestion
	}
	return ""
}
