package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/slackmcp/internal/store"
)

// =============================================================================
// RRF Fusion Tests
// =============================================================================
// Fusion is keyed by (channel, ts), uses 0-based ranks, gives no penalty to
// a message missing from a leg, and breaks ties by newest ts then channel.
// =============================================================================

// --- Test Helpers ---

func msg(channel string, sec int64, text string) *store.Message {
	return &store.Message{ChannelID: channel, TS: time.Unix(sec, 0).UTC(), Text: text}
}

func ranked(m *store.Message, rank int) store.RankedMessage {
	return store.RankedMessage{Message: m, Rank: rank}
}

func keysOf(results []*SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Message.Text
	}
	return out
}

func TestRRFFusion_Scenario(t *testing.T) {
	// Given: semantic [A@0, B@1, C@2] and lexical [B@0, A@1] at weight 0.5
	a := msg("C1", 300, "A")
	b := msg("C1", 200, "B")
	c := msg("C1", 100, "C")
	semantic := []store.RankedMessage{ranked(a, 0), ranked(b, 1), ranked(c, 2)}
	lexical := []store.RankedMessage{ranked(b, 0), ranked(a, 1)}

	// When: fusing
	results := NewRRFFusion().Fuse(semantic, lexical, WeightsFor(0.5))

	// Then: A and B score the same, A wins on newer ts, C follows
	require.Len(t, results, 3)
	assert.Equal(t, []string{"A", "B", "C"}, keysOf(results))
	assert.InDelta(t, 0.5/60+0.5/61, results[0].Score, 1e-12)
	assert.Equal(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 0.5/62, results[2].Score, 1e-12)

	assert.Equal(t, 0, results[0].SemanticRank)
	assert.Equal(t, 1, results[0].LexicalRank)
	assert.Equal(t, NoRank, results[2].LexicalRank)
}

func TestRRFFusion_MissingLegContributesZero(t *testing.T) {
	// Given: X only in lexical at rank 0, Y only in semantic at rank 0
	x := msg("C1", 100, "X")
	y := msg("C1", 200, "Y")

	results := NewRRFFusion().Fuse(
		[]store.RankedMessage{ranked(y, 0)},
		[]store.RankedMessage{ranked(x, 0)},
		Weights{Semantic: 0.25, Lexical: 0.75},
	)

	// Then: each score is its single contribution, no missing-rank penalty
	require.Len(t, results, 2)
	assert.Equal(t, "X", results[0].Message.Text)
	assert.InDelta(t, 0.75/60, results[0].Score, 1e-12)
	assert.InDelta(t, 0.25/60, results[1].Score, 1e-12)
}

func TestRRFFusion_KeyIsChannelAndTS(t *testing.T) {
	// Given: same text in two channels, and the same ts in two channels
	a := msg("C1", 100, "same text")
	b := msg("C2", 100, "same text")

	results := NewRRFFusion().Fuse(
		[]store.RankedMessage{ranked(a, 0)},
		[]store.RankedMessage{ranked(b, 0)},
		WeightsFor(0.5),
	)

	// Then: they stay distinct; the tie falls to channel id
	require.Len(t, results, 2)
	assert.Equal(t, "C1", results[0].Message.ChannelID)
	assert.Equal(t, "C2", results[1].Message.ChannelID)
}

func TestRRFFusion_DenseRanksShareScore(t *testing.T) {
	// Given: two semantic candidates tied at rank 0
	older := msg("C1", 100, "older")
	newer := msg("C1", 200, "newer")

	results := NewRRFFusion().Fuse(
		[]store.RankedMessage{ranked(older, 0), ranked(newer, 0)},
		nil,
		WeightsFor(1),
	)

	require.Len(t, results, 2)
	assert.Equal(t, []string{"newer", "older"}, keysOf(results))
	assert.Equal(t, results[0].Score, results[1].Score)
}

func TestRRFFusion_DuplicateWithinLegCountsOnce(t *testing.T) {
	a := msg("C1", 100, "A")
	dup := msg("C1", 100, "A")

	results := NewRRFFusion().Fuse(
		[]store.RankedMessage{ranked(a, 0), ranked(dup, 3)},
		nil,
		WeightsFor(1),
	)

	require.Len(t, results, 1)
	assert.InDelta(t, 1.0/60, results[0].Score, 1e-12)
}

func TestRRFFusion_Empty(t *testing.T) {
	results := NewRRFFusion().Fuse(nil, nil, WeightsFor(0.5))
	assert.NotNil(t, results)
	assert.Empty(t, results)
}

func TestRRFFusion_CustomK(t *testing.T) {
	tests := []struct {
		name  string
		k     int
		wantK int
	}{
		{"custom", 10, 10},
		{"zero defaults", 0, DefaultRRFConstant},
		{"negative defaults", -5, DefaultRRFConstant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewRRFFusionWithK(tt.k)
			assert.Equal(t, tt.wantK, f.K)

			results := f.Fuse([]store.RankedMessage{ranked(msg("C1", 1, "A"), 0)}, nil, WeightsFor(1))
			assert.InDelta(t, 1.0/float64(tt.wantK), results[0].Score, 1e-12)
		})
	}
}

func TestRRFFusion_Deterministic(t *testing.T) {
	var semantic, lexical []store.RankedMessage
	for i := 0; i < 20; i++ {
		m := msg("C1", int64(1000+i), string(rune('a'+i)))
		semantic = append(semantic, ranked(m, i/3))
		lexical = append(lexical, ranked(m, (19-i)/3))
	}

	first := keysOf(NewRRFFusion().Fuse(semantic, lexical, WeightsFor(0.5)))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, keysOf(NewRRFFusion().Fuse(semantic, lexical, WeightsFor(0.5))))
	}
}
