package slackts

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

// =============================================================================
// Decode
// =============================================================================

func TestDecode_ValidForms(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantUS int64
	}{
		{"canonical", "1712345678.000200", 1712345678_000200},
		{"short fraction is right padded", "1712345678.5", 1712345678_500000},
		{"long fraction is truncated", "1712345678.1234569", 1712345678_123456},
		{"whole seconds", "1712345678", 1712345678_000000},
		{"permalink millis", "p1712345678123", 1712345678_123000},
		{"permalink micros", "p1712345678000200", 1712345678_000200},
		{"surrounding space", " 1712345678.000001 ", 1712345678_000001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantUS, got.UnixMicro())
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestDecode_TruncatesNeverRounds(t *testing.T) {
	// Given: a fraction whose seventh digit would round up
	got, err := Decode("1.0000009")

	// Then: the extra digit is dropped
	require.NoError(t, err)
	assert.Equal(t, int64(1_000000), got.UnixMicro())
}

func TestDecode_Malformed(t *testing.T) {
	inputs := []string{
		"",
		"   ",
		"abc",
		"1712345678.",
		".000200",
		"1712345678.00a200",
		"-1712345678.000200",
		"p",
		"p12x4",
		"1712345678.000200.1",
		"99999999999999999999.1",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := Decode(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, slerrors.ErrUnparseableTimestamp))
		})
	}
}

// =============================================================================
// Encode
// =============================================================================

func TestEncode_Forms(t *testing.T) {
	ts := time.Unix(1712345678, 200*int64(time.Microsecond))

	assert.Equal(t, "1712345678.000200", Encode(ts, false))
	assert.Equal(t, "1712345678000200", Encode(ts, true))
}

func TestEncode_DropsSubMicrosecondPrecision(t *testing.T) {
	ts := time.Unix(10, 999)

	assert.Equal(t, "10.000000", Encode(ts, false))
	assert.Equal(t, "10000000", Encode(ts, true))
}

func TestEncode_PreEpoch(t *testing.T) {
	ts := time.Unix(-1, 500_000*int64(time.Microsecond)) // -0.5s

	assert.Equal(t, "-1.500000", Encode(ts, false))
}

// =============================================================================
// Round trip
// =============================================================================

func TestRoundTrip_CanonicalIsExact(t *testing.T) {
	inputs := []string{
		"0.000000",
		"1.000001",
		"1712345678.000200",
		"1712345678.999999",
		"2000000000.123456",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			decoded, err := Decode(in)
			require.NoError(t, err)
			assert.Equal(t, in, Encode(decoded, false))
		})
	}
}

func TestRoundTrip_OtherFormsKeepTheInstant(t *testing.T) {
	inputs := []string{
		"1712345678.2",
		"1712345678.12345678",
		"1712345678",
		"p1712345678123",
		"p1712345678000200",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			first, err := Decode(in)
			require.NoError(t, err)

			second, err := Decode(Encode(first, false))
			require.NoError(t, err)
			assert.True(t, first.Equal(second))

			// And: the microsecond form survives as a permalink token
			third, err := Decode("p" + Encode(first, true))
			require.NoError(t, err)
			assert.True(t, first.Equal(third))
		})
	}
}

func TestNormalize(t *testing.T) {
	got, err := Normalize("1712345678.5")
	require.NoError(t, err)
	assert.Equal(t, "1712345678.500000", got)

	_, err = Normalize("nope")
	assert.Error(t, err)
}
