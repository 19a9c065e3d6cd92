package search

import (
	"sort"

	"github.com/Aman-CERP/slackmcp/internal/store"
)

// DefaultRRFConstant is the standard RRF smoothing parameter.
const DefaultRRFConstant = 60

// RRFFusion combines the semantic and lexical legs using
// Reciprocal Rank Fusion.
//
// Algorithm: score(d) = Σ weight_i / (k + rank_i)
//
// Where:
//   - k = smoothing constant (default: 60)
//   - rank_i = 0-based dense rank in leg i
//   - weight_i = weight for leg i
//
// A message missing from a leg gets no contribution from it.
type RRFFusion struct {
	K int
}

// NewRRFFusion creates a new RRF fusion instance with default k=60.
func NewRRFFusion() *RRFFusion {
	return &RRFFusion{K: DefaultRRFConstant}
}

// NewRRFFusionWithK creates a new RRF fusion with custom k value.
// If k <= 0, defaults to 60.
func NewRRFFusionWithK(k int) *RRFFusion {
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &RRFFusion{K: k}
}

// Fuse merges both legs keyed by (channel, ts). Message text is never part
// of the key since identical text is common in chat.
//
// Results are sorted by: score (desc) → ts (newest first) → channel id (asc).
func (f *RRFFusion) Fuse(semantic, lexical []store.RankedMessage, weights Weights) []*SearchResult {
	if len(semantic) == 0 && len(lexical) == 0 {
		return []*SearchResult{}
	}

	scores := make(map[store.KeyID]*SearchResult, len(semantic)+len(lexical))

	for _, r := range semantic {
		result, seen := f.getOrCreate(scores, r.Message)
		if seen && result.SemanticRank != NoRank {
			continue
		}
		result.SemanticRank = r.Rank
		result.Score += weights.Semantic / float64(f.K+r.Rank)
	}

	for _, r := range lexical {
		result, seen := f.getOrCreate(scores, r.Message)
		if seen && result.LexicalRank != NoRank {
			continue
		}
		result.LexicalRank = r.Rank
		result.Score += weights.Lexical / float64(f.K+r.Rank)
	}

	return f.toSortedSlice(scores)
}

// getOrCreate returns the result for m's key, creating it if needed.
func (f *RRFFusion) getOrCreate(m map[store.KeyID]*SearchResult, msg *store.Message) (*SearchResult, bool) {
	id := msg.Key().ID()
	if r, ok := m[id]; ok {
		return r, true
	}
	r := &SearchResult{Message: msg, SemanticRank: NoRank, LexicalRank: NoRank}
	m[id] = r
	return r, false
}

// toSortedSlice converts map to slice and sorts by score with tie-breaking.
func (f *RRFFusion) toSortedSlice(m map[store.KeyID]*SearchResult) []*SearchResult {
	results := make([]*SearchResult, 0, len(m))
	for _, r := range m {
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool {
		return compare(results[i], results[j])
	})

	return results
}

// compare reports whether a ranks before b.
//
// Priority:
//  1. Higher score
//  2. Newer ts
//  3. Lexicographically smaller channel id (deterministic)
func compare(a, b *SearchResult) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Message.TS.Equal(b.Message.TS) {
		return a.Message.TS.After(b.Message.TS)
	}
	return a.Message.ChannelID < b.Message.ChannelID
}
