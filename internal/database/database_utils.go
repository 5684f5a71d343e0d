// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/forkcast/internal/metrics"
)

const (
	defaultQueryTimeout = 30 * time.Second
	conflictRetries     = 3
)

// ensureContext applies the default 30s timeout when ctx has no deadline.
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		return context.WithTimeout(context.Background(), defaultQueryTimeout)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

// Checkpoint forces a WAL checkpoint.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint failed: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.cfg.Path
}

// RecordCounts holds row counts of the main tables.
type RecordCounts struct {
	Users        int64 `json:"users"`
	Restaurants  int64 `json:"restaurants"`
	Orders       int64 `json:"orders"`
	Interactions int64 `json:"interactions"`
}

// GetRecordCounts returns row counts for the health endpoint and the CLI.
func (db *DB) GetRecordCounts(ctx context.Context) (RecordCounts, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var c RecordCounts
	targets := []struct {
		table string
		dst   *int64
	}{
		{"users", &c.Users},
		{"restaurants", &c.Restaurants},
		{"orders", &c.Orders},
		{"interactions", &c.Interactions},
	}
	for _, tgt := range targets {
		// Table names come from the fixed list above.
		if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+tgt.table).Scan(tgt.dst); err != nil {
			return RecordCounts{}, fmt.Errorf("failed to count %s: %w", tgt.table, err)
		}
	}
	return c, nil
}

// timed runs fn and records its duration and outcome.
func timed(operation, table string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
	return err
}

// withTx runs fn in a transaction, retrying DuckDB write conflicts.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 50 * time.Millisecond):
			}
		}
		err = db.runTx(ctx, fn)
		if err == nil || !isTransactionConflict(err) {
			return err
		}
	}
	return fmt.Errorf("transaction conflict after %d attempts: %w", conflictRetries, err)
}

func (db *DB) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		rollbackQuietly(tx)
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
