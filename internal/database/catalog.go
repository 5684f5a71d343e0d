// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tomtom215/forkcast/internal/recommend"
)

// Restaurant is a catalog row.
type Restaurant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Cuisine    string `json:"cuisine"`
	PriceRange string `json:"price_range"`
}

// UpsertUsers adds users to the catalog. Existing users keep their creation
// time; a previously deleted user is restored.
func (db *DB) UpsertUsers(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err := timed("upsert", "users", func() error {
		return db.withTx(ctx, func(tx *sql.Tx) error {
			for _, id := range ids {
				if id == "" {
					return fmt.Errorf("%w: empty user ID", ErrInvalidInput)
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO users (id, created_at) VALUES (?, ?)
					ON CONFLICT (id) DO UPDATE SET deleted_at = NULL`,
					id, db.now().UTC()); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("upsert users: %w", err)
	}
	return nil
}

// UpsertRestaurants adds or updates catalog restaurants.
func (db *DB) UpsertRestaurants(ctx context.Context, restaurants ...Restaurant) error {
	if len(restaurants) == 0 {
		return nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err := timed("upsert", "restaurants", func() error {
		return db.withTx(ctx, func(tx *sql.Tx) error {
			for _, r := range restaurants {
				if r.ID == "" {
					return fmt.Errorf("%w: empty restaurant ID", ErrInvalidInput)
				}
				if _, err := tx.ExecContext(ctx, `
					INSERT INTO restaurants (id, name, cuisine, price_range, created_at) VALUES (?, ?, ?, ?, ?)
					ON CONFLICT (id) DO UPDATE SET
						name = EXCLUDED.name,
						cuisine = EXCLUDED.cuisine,
						price_range = EXCLUDED.price_range,
						deleted_at = NULL`,
					r.ID, r.Name, r.Cuisine, r.PriceRange, db.now().UTC()); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("upsert restaurants: %w", err)
	}
	return nil
}

// InsertOrders records order history. A zero Rating is stored as unrated.
// Orders already present (by ID) are left unchanged.
func (db *DB) InsertOrders(ctx context.Context, orders ...recommend.OrderRecord) error {
	if len(orders) == 0 {
		return nil
	}
	for _, o := range orders {
		if o.OrderID == "" || o.UserID == "" || o.RestaurantID == "" {
			return fmt.Errorf("%w: order needs order, user and restaurant IDs", ErrInvalidInput)
		}
		if o.Rating < 0 || o.Rating > 5 {
			return fmt.Errorf("%w: order %s rating %v outside [0, 5]", ErrInvalidInput, o.OrderID, o.Rating)
		}
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err := timed("insert", "orders", func() error {
		return db.withTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO orders (id, user_id, restaurant_id, rating, total, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
				ON CONFLICT (id) DO NOTHING`)
			if err != nil {
				return err
			}
			defer closeWithLog(stmt, "statement")

			for _, o := range orders {
				var rating sql.NullFloat64
				if o.Rated() {
					rating = sql.NullFloat64{Float64: o.Rating, Valid: true}
				}
				created := o.CreatedAt
				if created.IsZero() {
					created = db.now()
				}
				if _, err := stmt.ExecContext(ctx, o.OrderID, o.UserID, o.RestaurantID, rating, o.Total, created.UTC()); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("insert orders: %w", err)
	}
	return nil
}

// MarkDeleted logically deletes a user or restaurant. Its orders and
// interactions stay on disk but no longer feed training, and its persisted
// statistics are removed. Deleting an unknown ID records a tombstone row so
// later order imports stay excluded.
func (db *DB) MarkDeleted(ctx context.Context, kind recommend.EntityKind, id string) error {
	var table, statsTable, statsKey string
	switch kind {
	case recommend.KindUser:
		table, statsTable, statsKey = "users", "user_stats", "user_id"
	case recommend.KindItem:
		table, statsTable, statsKey = "restaurants", "item_stats", "item_id"
	default:
		return fmt.Errorf("%w: entity kind %q", ErrInvalidInput, kind)
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	now := db.now().UTC()
	err := timed("delete", table, func() error {
		return db.withTx(ctx, func(tx *sql.Tx) error {
			// Fixed table names from the switch above.
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO `+table+` (id, created_at, deleted_at) VALUES (?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET deleted_at = EXCLUDED.deleted_at`,
				id, now, now); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, `DELETE FROM `+statsTable+` WHERE `+statsKey+` = ?`, id)
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("mark %s %s deleted: %w", kind, id, err)
	}
	return nil
}
