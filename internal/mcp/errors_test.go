package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	// Given: nil error
	var err error

	// When: mapping the error
	result := MapError(err)

	// Then: returns nil
	assert.Nil(t, result)
}

func TestMapError_SlackErrorCategories(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"validation", slerrors.ValidationError("since must be before until", nil), ErrCodeInvalidParams},
		{"bad timestamp", slerrors.UnparseableTimestamp("yesterday", nil), ErrCodeInvalidParams},
		{"bad window", slerrors.InvalidWindow(51, 50), ErrCodeInvalidParams},
		{"empty query", slerrors.New(slerrors.ErrCodeQueryEmpty, "search query is empty", nil), ErrCodeInvalidParams},
		{"not found", slerrors.NotFound("channel", "#nope"), ErrCodeNotFound},
		{"ambiguous", slerrors.AmbiguousMatch("user", "dobbs", []string{"@bob", "@robert"}), ErrCodeAmbiguous},
		{"upstream", slerrors.UpstreamError("query failed", nil), ErrCodeUpstream},
		{"embedding", slerrors.EmbeddingError("create embeddings", nil), ErrCodeUpstream},
		{"timeout", slerrors.New(slerrors.ErrCodeUpstreamTimeout, "search timed out", nil), ErrCodeUpstream},
		{"config", slerrors.ConfigError("missing database url", nil), ErrCodeInternalError},
		{"internal", slerrors.InternalError("boom", nil), ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(tt.err)

			require.NotNil(t, result)
			assert.Equal(t, tt.wantCode, result.Code)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	// Given: an ambiguous match, which carries a suggestion
	err := slerrors.AmbiguousMatch("user", "dobbs", []string{"@bob (Bob Dobbs)", "@robert (Robert Dobbs)"})

	// When: mapping the error
	result := MapError(err)

	// Then: candidates and suggestion both reach the client
	assert.Contains(t, result.Message, "@bob (Bob Dobbs), @robert (Robert Dobbs)")
	assert.Contains(t, result.Message, "Use the user id")
}

func TestMapError_WrappedSlackError(t *testing.T) {
	// Given: a not found error wrapped by a caller
	err := fmt.Errorf("get thread: %w", slerrors.NotFound("thread", "C1/100.000000"))

	// When: mapping the error
	result := MapError(err)

	// Then: the structured error is still found
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeNotFound, result.Code)
}

func TestMapError_ContextErrors(t *testing.T) {
	deadline := MapError(context.DeadlineExceeded)
	require.NotNil(t, deadline)
	assert.Equal(t, ErrCodeUpstream, deadline.Code)
	assert.Contains(t, deadline.Message, "timed out")

	canceled := MapError(context.Canceled)
	require.NotNil(t, canceled)
	assert.Equal(t, ErrCodeUpstream, canceled.Code)
	assert.Contains(t, canceled.Message, "canceled")
}

func TestMapError_Sentinels(t *testing.T) {
	assert.Equal(t, ErrCodeMethodNotFound, MapError(ErrToolNotFound).Code)
	assert.Equal(t, ErrCodeInvalidParams, MapError(ErrInvalidParams).Code)
}

func TestMapError_PassesMCPErrorThrough(t *testing.T) {
	original := NewInvalidParamsError("format must be markdown or json")

	result := MapError(original)

	assert.Same(t, original, result)
}

func TestMapError_UnknownError(t *testing.T) {
	// Given: unknown error
	err := errors.New("some unknown error")

	// When: mapping the error
	result := MapError(err)

	// Then: returns internal error without leaking the cause
	require.NotNil(t, result)
	assert.Equal(t, ErrCodeInternalError, result.Code)
	assert.Equal(t, "Internal server error.", result.Message)
}

func TestMCPError_Error(t *testing.T) {
	// Given: an MCP error
	err := &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: "missing required field",
	}

	// When: calling Error()
	msg := err.Error()

	// Then: returns formatted message
	assert.Contains(t, msg, "MCP error")
	assert.Contains(t, msg, "-32602")
	assert.Contains(t, msg, "missing required field")
}

func TestNewMethodNotFoundError(t *testing.T) {
	err := NewMethodNotFoundError("unknown_tool")

	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, "unknown_tool")
}
