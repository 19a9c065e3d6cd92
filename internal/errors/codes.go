// Package errors provides structured error handling for slackmcp.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Lookup errors (entity resolution, message identity)
//   - 3XX: Upstream errors (database, embedding provider)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryLookup indicates a referenced entity could not be resolved uniquely.
	CategoryLookup Category = "LOOKUP"
	// CategoryUpstream indicates a storage engine or embedding provider failure.
	CategoryUpstream Category = "UPSTREAM"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Lookup errors (200-299)
	ErrCodeNotFound       = "ERR_201_NOT_FOUND"
	ErrCodeAmbiguousMatch = "ERR_202_AMBIGUOUS_MATCH"

	// Upstream errors (300-399)
	ErrCodeUpstreamFailure = "ERR_301_UPSTREAM_FAILURE"
	ErrCodeEmbeddingFailed = "ERR_302_EMBEDDING_FAILED"
	ErrCodeUpstreamTimeout = "ERR_303_UPSTREAM_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput         = "ERR_401_INVALID_INPUT"
	ErrCodeUnparseableTimestamp = "ERR_402_UNPARSEABLE_TIMESTAMP"
	ErrCodeInvalidWindow        = "ERR_403_INVALID_WINDOW"
	ErrCodeInvalidLimit         = "ERR_404_INVALID_LIMIT"
	ErrCodeQueryEmpty           = "ERR_405_QUERY_EMPTY"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// "ERR_201_NOT_FOUND" -> '2'
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryLookup
	case '3':
		return CategoryUpstream
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeUnparseableTimestamp:
		// Absorbed by permalink generation; only fatal to a request when
		// the timestamp was caller input.
		return SeverityWarning
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode reports whether the caller may reasonably retry the whole
// request. Nothing inside slackmcp retries on its own.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeUpstreamTimeout, ErrCodeUpstreamFailure:
		return true
	default:
		return false
	}
}
