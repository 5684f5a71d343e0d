// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

/*
database_schema.go - Interaction store schema

Tables:
  - users: catalog users; deleted_at marks a logical delete
  - restaurants: catalog restaurants with the cuisine and price range the
    statistics summarize
  - orders: order history; a NULL rating means the customer did not rate
  - interactions: signals derived from recommendation feedback
  - user_stats, item_stats: the last statistics computed between training runs

Every statement is idempotent so startup can run it against an existing file.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
		deleted_at TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS restaurants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		cuisine TEXT NOT NULL DEFAULT '',
		price_range TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT current_timestamp,
		deleted_at TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		restaurant_id TEXT NOT NULL,
		rating DOUBLE,
		total DOUBLE NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS interactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		rating DOUBLE NOT NULL,
		implicit BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS user_stats (
		user_id TEXT PRIMARY KEY,
		interaction_count INTEGER NOT NULL,
		average_rating DOUBLE NOT NULL,
		top_cuisines TEXT NOT NULL DEFAULT '[]',
		price_band TEXT NOT NULL DEFAULT '',
		average_order_value DOUBLE NOT NULL DEFAULT 0,
		time_bucket TEXT NOT NULL DEFAULT '',
		cold_start_score DOUBLE NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS item_stats (
		item_id TEXT PRIMARY KEY,
		total_orders INTEGER NOT NULL,
		unique_customers INTEGER NOT NULL,
		average_rating DOUBLE NOT NULL,
		popularity_score DOUBLE NOT NULL,
		cuisine TEXT NOT NULL DEFAULT '',
		price_range TEXT NOT NULL DEFAULT '',
		peak_buckets TEXT NOT NULL DEFAULT '[]',
		cold_start_score DOUBLE NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}

var indexQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_restaurant ON orders(restaurant_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON interactions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_item ON interactions(item_id)`,
}
