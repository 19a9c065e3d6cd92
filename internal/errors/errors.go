package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// SlackError is the structured error type for slackmcp.
// It provides rich context for error handling, logging, and agent-facing presentation.
type SlackError struct {
	// Code is the unique error code (e.g., "ERR_201_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Lookup, Upstream, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the caller may retry the request.
	Retryable bool

	// Suggestion is an actionable suggestion for the caller.
	Suggestion string
}

// Error implements the error interface.
func (e *SlackError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *SlackError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with SlackError.
func (e *SlackError) Is(target error) bool {
	if t, ok := target.(*SlackError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *SlackError) WithDetail(key, value string) *SlackError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the caller.
// Returns the error for method chaining.
func (e *SlackError) WithSuggestion(suggestion string) *SlackError {
	e.Suggestion = suggestion
	return e
}

// New creates a new SlackError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *SlackError {
	return &SlackError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a SlackError from an existing error.
// The error's message becomes the SlackError message.
func Wrap(code string, err error) *SlackError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is comparisons. Only the code is compared.
var (
	ErrNotFound             = New(ErrCodeNotFound, "not found", nil)
	ErrAmbiguousMatch       = New(ErrCodeAmbiguousMatch, "ambiguous match", nil)
	ErrUpstreamFailure      = New(ErrCodeUpstreamFailure, "upstream failure", nil)
	ErrUnparseableTimestamp = New(ErrCodeUnparseableTimestamp, "unparseable timestamp", nil)
	ErrInvalidWindow        = New(ErrCodeInvalidWindow, "invalid window", nil)
	ErrInvalidLimit         = New(ErrCodeInvalidLimit, "invalid limit", nil)
)

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *SlackError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// NotFound reports that a reference of the given kind ("channel", "user",
// "message") matched nothing.
func NotFound(kind, query string) *SlackError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s %q not found", kind, query), nil).
		WithDetail("kind", kind).
		WithDetail("query", query)
}

// AmbiguousMatch reports that a reference matched several candidates.
// The candidate names are part of the message so callers can disambiguate.
func AmbiguousMatch(kind, query string, candidates []string) *SlackError {
	list := strings.Join(candidates, ", ")
	return New(ErrCodeAmbiguousMatch,
		fmt.Sprintf("%s %q is ambiguous, matches: %s", kind, query, list), nil).
		WithDetail("kind", kind).
		WithDetail("query", query).
		WithDetail("candidates", list).
		WithSuggestion(fmt.Sprintf("Use the %s id or one of the exact names listed.", kind))
}

// UpstreamError creates an error for a failed storage or provider call.
func UpstreamError(message string, cause error) *SlackError {
	return New(ErrCodeUpstreamFailure, message, cause)
}

// EmbeddingError creates an error for a failed embedding provider call.
func EmbeddingError(message string, cause error) *SlackError {
	return New(ErrCodeEmbeddingFailed, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *SlackError {
	return New(ErrCodeInvalidInput, message, cause)
}

// UnparseableTimestamp creates an error for a malformed native timestamp.
func UnparseableTimestamp(raw string, cause error) *SlackError {
	return New(ErrCodeUnparseableTimestamp, fmt.Sprintf("unparseable timestamp %q", raw), cause).
		WithDetail("ts", raw)
}

// InvalidWindow creates an error for a context window outside [0, max].
func InvalidWindow(window, maxWindow int) *SlackError {
	return New(ErrCodeInvalidWindow,
		fmt.Sprintf("window must be between 0 and %d, got %d", maxWindow, window), nil)
}

// InvalidLimit creates an error for a result limit outside [1, max].
func InvalidLimit(limit, maxLimit int) *SlackError {
	return New(ErrCodeInvalidLimit,
		fmt.Sprintf("limit must be between 1 and %d, got %d", maxLimit, limit), nil)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *SlackError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first SlackError in err's chain.
func As(err error) (*SlackError, bool) {
	var se *SlackError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
// Returns true if the chain contains a SlackError with Retryable set.
func IsRetryable(err error) bool {
	if se, ok := As(err); ok {
		return se.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if se, ok := As(err); ok {
		return se.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a SlackError.
// Returns empty string if the chain holds none.
func GetCode(err error) string {
	if se, ok := As(err); ok {
		return se.Code
	}
	return ""
}

// GetCategory extracts the category from a SlackError.
// Returns empty string if the chain holds none.
func GetCategory(err error) Category {
	if se, ok := As(err); ok {
		return se.Category
	}
	return ""
}
