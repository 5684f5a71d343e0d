// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package database

import (
	"runtime"
	"strings"
	"time"
)

// configureConnectionPool sizes the pool for the analytic read pattern:
// a few long scans during training plus short order-history lookups.
func (db *DB) configureConnectionPool() {
	db.conn.SetMaxOpenConns(runtime.NumCPU())
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// isConnectionError reports errors that mean the database itself is
// unreachable rather than a query being wrong. Only these count toward
// opening the breaker.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"broken pipe",
		"bad connection",
		"database is closed",
		"connection reset",
		"io error",
		"could not set lock",
		"database has been invalidated",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// isTransactionConflict reports DuckDB write-write conflicts, which are
// safe to retry.
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "Transaction conflict") ||
		strings.Contains(msg, "Conflict on tuple deletion") ||
		strings.Contains(msg, "conflict on update")
}
