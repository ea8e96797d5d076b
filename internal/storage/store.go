package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"broadcast-tracker/internal/config"
)

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse database dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	return pool, nil
}

// BroadcastStore defines the persistence sink contract the pipeline depends
// on. Backends are pluggable; the core only sees this interface.
type BroadcastStore interface {
	// InsertBroadcast persists a record. A duplicate broadcast id is a
	// no-op, never an error.
	InsertBroadcast(ctx context.Context, rec BroadcastRecord) error

	// UpdateOutcome fills one offset's (variance, won) pair. An already-set
	// pair is left untouched; an unknown id yields ErrNotFound.
	UpdateOutcome(ctx context.Context, broadcastID string, offset Offset, variancePct decimal.Decimal, won bool) error

	// ListKnownIDs returns all persisted broadcast ids, for dedup
	// rehydration at startup.
	ListKnownIDs(ctx context.Context) ([]string, error)

	ListRecentBroadcasts(ctx context.Context, limit int) ([]BroadcastRecord, error)
	ListBroadcastsBetween(ctx context.Context, from, to time.Time) ([]BroadcastRecord, error)

	// ListPendingOutcomes returns records created before the cutoff that
	// still have at least one unset outcome pair.
	ListPendingOutcomes(ctx context.Context, createdBefore time.Time) ([]BroadcastRecord, error)

	CountBroadcasts(ctx context.Context) (int64, error)
}
