// Package postgres is the record collaborator of a table: it loads
// dimension items and record snapshots and persists record changes, with
// every statement built by squirrel.
package postgres

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/avast/retry-go/v4"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/dimtable/internal/config"
)

var (
	// ErrConflict is returned when a write would duplicate a unique key.
	ErrConflict = errors.New("record conflicts with an existing record")

	// ErrInvalidReference is returned when a write references a missing row.
	ErrInvalidReference = errors.New("record references a missing row")
)

// DBTX is satisfied by *pgxpool.Pool, pgx.Tx and pgxmock pools.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewQueryBuilder returns a statement builder using $n placeholders.
func NewQueryBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Connect opens a pool with the configured limits and waits for the
// database to answer, retrying while it starts up.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parse database URL")
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create pool")
	}

	err = retry.Do(
		func() error { return pool.Ping(ctx) },
		retry.Context(ctx),
		retry.Attempts(uint(max(cfg.ConnectAttempts, 1))),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("database not ready, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "ping database")
	}

	if u, err := url.Parse(cfg.URL); err == nil {
		logger.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		logger.Info("connected to database")
	}
	return pool, nil
}

// translate maps constraint violations to the package's error kinds.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		return errors.Mark(err, ErrConflict)
	case pgerrcode.ForeignKeyViolation:
		return errors.Mark(err, ErrInvalidReference)
	default:
		return err
	}
}
