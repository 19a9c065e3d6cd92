package cmd

import (
	"context"
	"log/slog"

	"github.com/Aman-CERP/slackmcp/internal/config"
	"github.com/Aman-CERP/slackmcp/internal/embed"
	mcpserver "github.com/Aman-CERP/slackmcp/internal/mcp"
	"github.com/Aman-CERP/slackmcp/internal/preflight"
	"github.com/Aman-CERP/slackmcp/internal/query"
	"github.com/Aman-CERP/slackmcp/internal/search"
	"github.com/Aman-CERP/slackmcp/internal/slackts"
	"github.com/Aman-CERP/slackmcp/internal/store"
	"github.com/Aman-CERP/slackmcp/internal/telemetry"
	"github.com/Aman-CERP/slackmcp/internal/window"
)

// backend is the wired archive: store, embedder, engine and service.
type backend struct {
	store    *store.PostgresStore
	embedder embed.Embedder
	service  *query.Service
}

// openBackend connects to the database and wires the query service.
// metrics may be nil.
func openBackend(ctx context.Context, cfg *config.Config, metrics *telemetry.Metrics) (*backend, error) {
	var (
		storeOpts  []store.Option
		engineOpts []search.EngineOption
		cacheObs   embed.CacheObserver
	)
	if metrics != nil {
		storeOpts = append(storeOpts, store.WithObserver(metrics))
		engineOpts = append(engineOpts, search.WithObserver(metrics))
		cacheObs = metrics
	}

	st, err := store.NewPostgresStore(ctx, storeConfig(cfg), storeOpts...)
	if err != nil {
		return nil, err
	}

	emb, err := openEmbedder(cfg, cacheObs)
	if err != nil {
		st.Close()
		return nil, err
	}

	engine, err := search.NewEngine(st, st, emb, engineConfig(cfg), engineOpts...)
	if err != nil {
		st.Close()
		return nil, err
	}

	linker := slackts.NewLinker(cfg.Slack.WorkspaceURL)
	svc := query.NewService(st, engine, linker, queryConfig(cfg, emb != nil))

	slog.Debug("Backend ready",
		slog.Bool("semantic", emb != nil),
		slog.Bool("permalinks", linker.Enabled()))

	return &backend{store: st, embedder: emb, service: svc}, nil
}

// Close releases the embedder and the connection pool.
func (b *backend) Close() {
	if b.embedder != nil {
		_ = b.embedder.Close()
	}
	b.store.Close()
}

// openEmbedder builds the query embedder. A missing API key degrades to
// keyword-only search instead of failing every command.
func openEmbedder(cfg *config.Config, obs embed.CacheObserver) (embed.Embedder, error) {
	if !cfg.SemanticEnabled() {
		return nil, nil
	}
	if cfg.Embeddings.APIKey == "" && cfg.Embeddings.BaseURL == "" {
		slog.Warn("No embedding API key configured, semantic search disabled",
			slog.String("hint", "set OPENAI_API_KEY or embeddings.provider: none"))
		return nil, nil
	}
	return embed.NewFromConfig(embed.Config{
		Provider:   cfg.Embeddings.Provider,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		BaseURL:    cfg.Embeddings.BaseURL,
		APIKey:     cfg.Embeddings.APIKey,
		CacheSize:  cfg.Embeddings.CacheSize,
		Timeout:    cfg.Embeddings.Timeout,
	}, obs)
}

func storeConfig(cfg *config.Config) store.Config {
	return store.Config{
		URL:              cfg.Database.URL,
		MinConns:         cfg.Database.MinConns,
		MaxConns:         cfg.Database.MaxConns,
		ConnectRetries:   cfg.Database.ConnectRetries,
		StatementTimeout: cfg.Database.StatementTimeout,
	}
}

// doctorStoreConfig is storeConfig with a single connection attempt, so an
// unreachable database is reported at once instead of after the backoff.
// store.Config treats zero retries as one ping; a negative count would
// restore the default backoff.
func doctorStoreConfig(cfg *config.Config) store.Config {
	sc := storeConfig(cfg)
	sc.ConnectRetries = 0
	return sc
}

func engineConfig(cfg *config.Config) search.EngineConfig {
	return search.EngineConfig{
		DefaultLimit:    cfg.Search.DefaultLimit,
		MaxLimit:        cfg.Search.MaxLimit,
		RRFConstant:     cfg.Search.RRFConstant,
		OverfetchFactor: cfg.Search.OverfetchFactor,
		SearchTimeout:   cfg.Search.Timeout,
	}
}

// queryConfig maps request defaults. Without an embedder the default
// weight drops to 0 so requests that give no weight stay answerable.
func queryConfig(cfg *config.Config, semantic bool) query.Config {
	weight := cfg.Search.SemanticWeight
	if !semantic {
		weight = 0
	}
	return query.Config{
		Planner: window.Config{
			ChannelSpan: cfg.Context.ChannelSpan,
			MaxWindow:   cfg.Context.MaxWindow,
			MaxLimit:    cfg.Context.MaxLimit,
		},
		DefaultWindow:         cfg.Context.DefaultWindow,
		DefaultLimit:          cfg.Context.DefaultLimit,
		DefaultSemanticWeight: weight,
	}
}

// openQueryService is the production deps.openService.
func openQueryService(ctx context.Context, cfg *config.Config) (mcpserver.Service, func(), error) {
	b, err := openBackend(ctx, cfg, nil)
	if err != nil {
		return nil, nil, err
	}
	return b.service, b.Close, nil
}

// openDoctorTargets is the production deps.doctorOptions. Connection
// failures become check results rather than errors.
func openDoctorTargets(ctx context.Context, cfg *config.Config, offline bool) ([]preflight.Option, func()) {
	var (
		opts    []preflight.Option
		closers []func()
	)

	if cfg.Database.URL != "" {
		st, err := store.NewPostgresStore(ctx, doctorStoreConfig(cfg))
		if err != nil {
			opts = append(opts, preflight.WithDatabaseError(err))
		} else {
			opts = append(opts, preflight.WithDatabase(st))
			closers = append(closers, st.Close)
		}
	}

	if !offline {
		if emb, err := openEmbedder(cfg, nil); err == nil && emb != nil {
			opts = append(opts, preflight.WithEmbedder(emb))
			closers = append(closers, func() { _ = emb.Close() })
		}
	}

	return opts, func() {
		for _, c := range closers {
			c()
		}
	}
}
