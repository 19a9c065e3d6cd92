package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	slerrors "github.com/Aman-CERP/slackmcp/internal/errors"
)

// Config configures the PostgreSQL connection pool.
type Config struct {
	URL      string
	MinConns int32
	MaxConns int32

	// ConnectRetries bounds the retries of the initial ping. Zero pings
	// exactly once; a negative value uses the default backoff.
	ConnectRetries   int
	StatementTimeout time.Duration
}

// QueryObserver is notified after every query. telemetry.Metrics implements it.
type QueryObserver interface {
	ObserveQuery(op string, d time.Duration, err error)
}

// PostgresStore reads the archive through a pgx connection pool.
type PostgresStore struct {
	pool     *pgxpool.Pool
	observer QueryObserver
}

// Option configures a PostgresStore.
type Option func(*PostgresStore)

// WithObserver reports query latency and failures to o.
func WithObserver(o QueryObserver) Option {
	return func(s *PostgresStore) { s.observer = o }
}

// NewPostgresStore opens a pool and waits for the database to answer a ping.
// The ping is retried with backoff so a database that is still starting
// does not fail the server on boot.
func NewPostgresStore(ctx context.Context, cfg Config, opts ...Option) (*PostgresStore, error) {
	if cfg.URL == "" {
		return nil, slerrors.New(slerrors.ErrCodeConfigNotFound, "database url is not configured", nil).
			WithSuggestion("Set DATABASE_URL or database.url in .slackmcp.yaml.")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, slerrors.ConfigError("invalid database url", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.StatementTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.StatementTimeout.Milliseconds(), 10)
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, slerrors.UpstreamError("create connection pool", err)
	}

	if err := slerrors.Retry(ctx, connectRetry(cfg), pool.Ping); err != nil {
		pool.Close()
		return nil, slerrors.UpstreamError("connect to database", err).
			WithSuggestion("Check that PostgreSQL is running and DATABASE_URL is correct.")
	}

	s := &PostgresStore{pool: pool}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// connectRetry is the backoff for the initial ping.
func connectRetry(cfg Config) slerrors.RetryConfig {
	retry := slerrors.DefaultRetryConfig()
	if cfg.ConnectRetries >= 0 {
		retry.MaxRetries = cfg.ConnectRetries
	}
	retry.OnRetry = func(attempt int, err error) {
		slog.Warn("database not ready, retrying",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))
	}
	return retry
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return wrapQueryError("ping", err)
	}
	return nil
}

// HasExtension reports whether the named extension is installed.
func (s *PostgresStore) HasExtension(ctx context.Context, name string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = $1)`, name).Scan(&ok)
	if err != nil {
		return false, wrapQueryError("check extension", err)
	}
	return ok, nil
}

// CountMessages returns the number of archived messages.
func (s *PostgresStore) CountMessages(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM slack.message`).Scan(&n); err != nil {
		return 0, wrapQueryError("count messages", err)
	}
	return n, nil
}

// observe is deferred by every query method.
func (s *PostgresStore) observe(op string, start time.Time, err *error) {
	if s.observer != nil {
		s.observer.ObserveQuery(op, time.Since(start), *err)
	}
}

// wrapQueryError turns a driver error into an upstream failure.
// Deadline overruns get their own code so callers can tell them apart.
func wrapQueryError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return slerrors.New(slerrors.ErrCodeUpstreamTimeout, fmt.Sprintf("%s: timed out", op), err)
	}
	return slerrors.UpstreamError(op, err)
}
