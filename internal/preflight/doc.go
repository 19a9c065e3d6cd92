// Package preflight runs the environment checks behind 'slackmcp doctor'
// and reports whether the server can start.
//
// The package validates:
//   - Configuration validity
//   - Database reachability, the vector extension and the message table
//   - Embedding provider credentials and vector width
//   - Workspace URL for permalinks
//   - A writable log directory with free disk space
//
// Use the Checker type to run all validations:
//
//	checker := preflight.New(cfg, preflight.WithDatabase(st))
//	results := checker.RunAll(ctx)
//	if checker.HasCriticalFailures(results) {
//	    // Handle failures
//	}
package preflight
