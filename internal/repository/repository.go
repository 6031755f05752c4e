// Package repository provides database access layer.
package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgreSQL error codes the repository maps to domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ErrConstraintViolation indicates a write referenced a row that does not exist,
// e.g. a note whose author has no users row.
var ErrConstraintViolation = errors.New("constraint violation")

// Options tunes the connection pool.
type Options struct {
	MaxConns     int32
	MinConns     int32
	PingAttempts uint
	Logger       *slog.Logger
}

// DefaultOptions returns the pool settings used by the API server.
func DefaultOptions() Options {
	return Options{
		MaxConns:     10,
		MinConns:     2,
		PingAttempts: 5,
	}
}

// Repository provides database access methods.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new Repository with a connection pool.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	return NewWithOptions(ctx, databaseURL, DefaultOptions())
}

// NewWithOptions creates a Repository, retrying the initial ping so the
// server can start while Postgres is still coming up.
func NewWithOptions(ctx context.Context, databaseURL string, opts Options) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		config.MinConns = opts.MinConns
	}
	if opts.PingAttempts == 0 {
		opts.PingAttempts = 1
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	err = retry.Do(
		func() error { return pool.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(opts.PingAttempts),
		retry.Delay(300*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			if opts.Logger != nil {
				opts.Logger.Warn("database ping failed",
					slog.Uint64("attempt", uint64(attempt+1)),
					slog.String("error", err.Error()),
				)
			}
		}),
	)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{pool: pool}, nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// pgErrorCode extracts the SQLSTATE from a pgx error, or "" if err is not a
// PostgreSQL error.
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgErrorCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgErrorCode(err) == pgForeignKeyViolation
}
