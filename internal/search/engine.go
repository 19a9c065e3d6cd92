package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/slackmcp/internal/embed"
	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
	"github.com/Aman-CERP/slackmcp/internal/store"
)

// Engine implements hybrid search over stored messages.
type Engine struct {
	semantic SemanticRanker
	lexical  LexicalRanker
	embedder embed.Embedder // nil disables the semantic leg
	config   EngineConfig
	fusion   *RRFFusion
	observer Observer
}

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// EngineOption configures the search engine.
type EngineOption func(*Engine)

// WithObserver sets an optional telemetry observer.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observer = o
	}
}

// NewEngine creates a hybrid search engine. embedder may be nil, in which
// case only lexical searches (SemanticWeight 0) succeed.
func NewEngine(
	semantic SemanticRanker,
	lexical LexicalRanker,
	embedder embed.Embedder,
	config EngineConfig,
	opts ...EngineOption,
) (*Engine, error) {
	if semantic == nil {
		return nil, fmt.Errorf("%w: semantic ranker is required", ErrNilDependency)
	}
	if lexical == nil {
		return nil, fmt.Errorf("%w: lexical ranker is required", ErrNilDependency)
	}

	d := DefaultConfig()
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = d.DefaultLimit
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = d.MaxLimit
	}
	if config.RRFConstant <= 0 {
		config.RRFConstant = d.RRFConstant
	}
	if config.OverfetchFactor <= 0 {
		config.OverfetchFactor = d.OverfetchFactor
	}
	if config.SearchTimeout <= 0 {
		config.SearchTimeout = d.SearchTimeout
	}

	e := &Engine{
		semantic: semantic,
		lexical:  lexical,
		embedder: embedder,
		config:   config,
		fusion:   NewRRFFusionWithK(config.RRFConstant),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the effective engine configuration.
func (e *Engine) Config() EngineConfig { return e.config }

// SemanticEnabled reports whether an embedder is configured.
func (e *Engine) SemanticEnabled() bool { return e.embedder != nil }

// Search runs the enabled legs concurrently and fuses them. Any leg
// failure fails the whole search; partial results would misrepresent
// relevance.
func (e *Engine) Search(ctx context.Context, query string, opts SearchOptions) ([]*SearchResult, error) {
	start := time.Now()

	query = strings.TrimSpace(query)
	opts, err := e.applyDefaults(query, opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.config.SearchTimeout)
	defer cancel()

	weights := WeightsFor(opts.SemanticWeight)
	k := opts.Limit * e.config.OverfetchFactor

	semantic, lexical, err := e.parallelSearch(ctx, query, opts.Filter, weights, k)
	if err != nil {
		return nil, err
	}

	var results []*SearchResult
	switch {
	case weights.Lexical == 0:
		results = passthrough(semantic, LegSemantic)
	case weights.Semantic == 0:
		results = passthrough(lexical, LegLexical)
	default:
		results = e.fusion.Fuse(semantic, lexical, weights)
	}
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	if e.observer != nil {
		e.observer.ObserveFusedResults(len(results))
	}
	slog.Debug("search completed",
		slog.String("query", query),
		slog.Float64("semantic_weight", opts.SemanticWeight),
		slog.Int("semantic_candidates", len(semantic)),
		slog.Int("lexical_candidates", len(lexical)),
		slog.Int("results", len(results)),
		slog.Duration("duration", time.Since(start)))

	return results, nil
}

// applyDefaults validates opts and fills in the default limit.
func (e *Engine) applyDefaults(query string, opts SearchOptions) (SearchOptions, error) {
	if query == "" {
		return opts, slerrors.New(slerrors.ErrCodeQueryEmpty, "search query is empty", nil)
	}
	if math.IsNaN(opts.SemanticWeight) || opts.SemanticWeight < 0 || opts.SemanticWeight > 1 {
		return opts, slerrors.ValidationError(
			fmt.Sprintf("semantic weight must be between 0 and 1, got %v", opts.SemanticWeight), nil)
	}
	if opts.Limit == 0 {
		opts.Limit = e.config.DefaultLimit
	}
	if opts.Limit < 0 || opts.Limit > e.config.MaxLimit {
		return opts, slerrors.InvalidLimit(opts.Limit, e.config.MaxLimit)
	}
	if opts.SemanticWeight > 0 && e.embedder == nil {
		return opts, slerrors.New(slerrors.ErrCodeConfigNotFound,
			"semantic search needs an embedding provider", nil).
			WithSuggestion("Configure embeddings.api_key or pass semantic_weight 0 for keyword search.")
	}
	return opts, nil
}

// parallelSearch executes the enabled legs concurrently. Unlike a
// best-effort search, the first leg error cancels the other leg.
func (e *Engine) parallelSearch(ctx context.Context, query string, f store.Filter, w Weights, k int) (
	semantic []store.RankedMessage,
	lexical []store.RankedMessage,
	err error,
) {
	g, gctx := errgroup.WithContext(ctx)

	if w.Semantic > 0 {
		g.Go(func() error {
			start := time.Now()
			res, legErr := e.semanticLeg(gctx, query, f, k)
			e.observeLeg(LegSemantic, start, legErr)
			if legErr != nil {
				return legErr
			}
			semantic = res
			return nil
		})
	}

	if w.Lexical > 0 {
		g.Go(func() error {
			start := time.Now()
			res, legErr := e.lexical.LexicalSearch(gctx, query, f, k)
			e.observeLeg(LegLexical, start, legErr)
			if legErr != nil {
				return fmt.Errorf("lexical leg: %w", legErr)
			}
			lexical = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, asUpstream(err)
	}
	return semantic, lexical, nil
}

// semanticLeg embeds the query and ranks by vector distance.
func (e *Engine) semanticLeg(ctx context.Context, query string, f store.Filter, k int) ([]store.RankedMessage, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	res, err := e.semantic.SemanticSearch(ctx, vec, f, k)
	if err != nil {
		return nil, fmt.Errorf("semantic leg: %w", err)
	}
	return res, nil
}

func (e *Engine) observeLeg(leg string, start time.Time, err error) {
	if e.observer != nil {
		e.observer.ObserveSearchLeg(leg, time.Since(start), err)
	}
}

// asUpstream keeps upstream-category errors and wraps anything else as an
// upstream failure.
func asUpstream(err error) error {
	if se, ok := slerrors.As(err); ok && se.Category == slerrors.CategoryUpstream {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return slerrors.New(slerrors.ErrCodeUpstreamTimeout, "search timed out", err)
	}
	return slerrors.UpstreamError("search leg failed", err)
}

// passthrough returns a single leg in its own order. Score is the leg's
// relevance with higher meaning better.
func passthrough(leg []store.RankedMessage, name string) []*SearchResult {
	results := make([]*SearchResult, len(leg))
	for i, r := range leg {
		res := &SearchResult{Message: r.Message, SemanticRank: NoRank, LexicalRank: NoRank}
		switch name {
		case LegSemantic:
			res.SemanticRank = r.Rank
			res.Score = 1 - r.Score
		default:
			res.LexicalRank = r.Rank
			res.Score = r.Score
		}
		results[i] = res
	}
	return results
}
