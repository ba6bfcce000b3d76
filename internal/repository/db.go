package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// DefaultMaxConcurrentTx limits concurrent transactions on one pool.
const DefaultMaxConcurrentTx = 10

// DB wraps a sqlx pool opened by one of the driver packages.
type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB wraps an open connection pool. maxConcurrent <= 0 uses
// DefaultMaxConcurrentTx.
func NewDB(db *sqlx.DB, maxConcurrent int64) *DB {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentTx
	}
	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(maxConcurrent),
	}
}

// WithTx executes a function within a transaction
func (db *DB) WithTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	// Acquire semaphore
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Dialect returns "sqlite" or "postgres" depending on the driver in use.
func (db *DB) Dialect() string {
	if db.DriverName() == "sqlite3" {
		return "sqlite"
	}
	return "postgres"
}
