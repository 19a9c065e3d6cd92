// Package search provides hybrid message search combining a semantic leg
// (vector distance) and a lexical leg (full-text relevance).
// Results are fused using Reciprocal Rank Fusion (RRF) over rank positions.
package search

import (
	"context"
	"time"

	"github.com/Aman-CERP/slackmcp/internal/store"
)

// NoRank marks a result absent from a leg.
const NoRank = -1

// Leg names used in logs and metrics.
const (
	LegSemantic = "semantic"
	LegLexical  = "lexical"
)

// SemanticRanker ranks messages by vector distance to a query embedding.
type SemanticRanker interface {
	SemanticSearch(ctx context.Context, vec []float32, f store.Filter, k int) ([]store.RankedMessage, error)
}

// LexicalRanker ranks messages by full-text relevance to a query string.
type LexicalRanker interface {
	LexicalSearch(ctx context.Context, query string, f store.Filter, k int) ([]store.RankedMessage, error)
}

// Observer receives per-search telemetry. telemetry.Metrics implements it.
type Observer interface {
	ObserveSearchLeg(leg string, d time.Duration, err error)
	ObserveFusedResults(n int)
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// Filter restricts both legs identically.
	Filter store.Filter

	// SemanticWeight in [0, 1]. 0 runs only the lexical leg, 1 only the
	// semantic leg. The lexical weight is 1 - SemanticWeight.
	SemanticWeight float64

	// Limit is the maximum number of results (0 uses the engine default).
	Limit int
}

// SearchResult is one ranked message.
type SearchResult struct {
	Message *store.Message

	// Score is the fused RRF score when both legs ran. With a single leg
	// it is that leg's own relevance: cosine similarity for semantic,
	// ts_rank_cd for lexical.
	Score float64

	// SemanticRank and LexicalRank are 0-based dense ranks, NoRank if absent.
	SemanticRank int
	LexicalRank  int
}

// Weights configures the relative importance of the two legs.
type Weights struct {
	Semantic float64
	Lexical  float64
}

// WeightsFor splits a semantic weight into both leg weights.
func WeightsFor(semantic float64) Weights {
	return Weights{Semantic: semantic, Lexical: 1 - semantic}
}

// EngineConfig configures the search engine.
type EngineConfig struct {
	// DefaultLimit is the default number of results (default: 10).
	DefaultLimit int

	// MaxLimit is the maximum allowed results (default: 100).
	MaxLimit int

	// RRFConstant is the RRF smoothing constant k (default: 60).
	RRFConstant int

	// OverfetchFactor multiplies the limit to size each leg (default: 2).
	OverfetchFactor int

	// SearchTimeout bounds one search including embedding (default: 10s).
	SearchTimeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() EngineConfig {
	return EngineConfig{
		DefaultLimit:    10,
		MaxLimit:        100,
		RRFConstant:     DefaultRRFConstant,
		OverfetchFactor: 2,
		SearchTimeout:   10 * time.Second,
	}
}
