// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/tomtom215/forkcast/internal/recommend"
)

// liveFilter excludes rows that reference logically deleted owners.
const liveFilter = `
	user_id NOT IN (SELECT id FROM users WHERE deleted_at IS NOT NULL)
	AND %[1]s NOT IN (SELECT id FROM restaurants WHERE deleted_at IS NOT NULL)`

// FetchInteractions returns every order as an explicit rating plus every
// feedback-derived interaction, ordered by time. Unrated orders count as
// the configured UnratedOrderRating.
func (db *DB) FetchInteractions(ctx context.Context) ([]recommend.Interaction, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	query := `
		SELECT user_id, restaurant_id, COALESCE(rating, ?), false, created_at
		FROM orders
		WHERE ` + fmt.Sprintf(liveFilter, "restaurant_id") + `
		UNION ALL
		SELECT user_id, item_id, rating, implicit, created_at
		FROM interactions
		WHERE ` + fmt.Sprintf(liveFilter, "item_id") + `
		ORDER BY 5, 1, 2`

	var out []recommend.Interaction
	err := timed("select", "interactions", func() error {
		rows, err := db.conn.QueryContext(ctx, query, db.cfg.UnratedOrderRating)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, "rows")

		for rows.Next() {
			var in recommend.Interaction
			if err := rows.Scan(&in.UserID, &in.ItemID, &in.Rating, &in.Implicit, &in.Timestamp); err != nil {
				return err
			}
			in.Timestamp = in.Timestamp.UTC()
			out = append(out, in)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query interactions: %w", err)
	}
	return out, nil
}

// FetchEntities returns the live catalog IDs, sorted.
func (db *DB) FetchEntities(ctx context.Context) (users, items []string, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	users, err = db.queryIDs(ctx, "users", `SELECT id FROM users WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("query users: %w", err)
	}
	items, err = db.queryIDs(ctx, "restaurants", `SELECT id FROM restaurants WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, nil, fmt.Errorf("query restaurants: %w", err)
	}
	return users, items, nil
}

func (db *DB) queryIDs(ctx context.Context, table, query string) ([]string, error) {
	var ids []string
	err := timed("select", table, func() error {
		rows, err := db.conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, "rows")

		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return rows.Err()
	})
	return ids, err
}

const orderHistoryQuery = `
	SELECT o.id, o.user_id, o.restaurant_id, COALESCE(o.rating, 0),
	       COALESCE(r.cuisine, ''), COALESCE(r.price_range, ''), o.total, o.created_at
	FROM orders o
	LEFT JOIN restaurants r ON r.id = o.restaurant_id
	WHERE %s = ?
	ORDER BY o.created_at, o.id`

// FetchOrderHistoryByUser returns a user's orders, oldest first.
func (db *DB) FetchOrderHistoryByUser(ctx context.Context, userID string) ([]recommend.OrderRecord, error) {
	orders, err := db.fetchOrders(ctx, "o.user_id", userID)
	if err != nil {
		return nil, fmt.Errorf("query orders for user %s: %w", userID, err)
	}
	return orders, nil
}

// FetchOrderHistoryByItem returns a restaurant's orders, oldest first.
func (db *DB) FetchOrderHistoryByItem(ctx context.Context, itemID string) ([]recommend.OrderRecord, error) {
	orders, err := db.fetchOrders(ctx, "o.restaurant_id", itemID)
	if err != nil {
		return nil, fmt.Errorf("query orders for restaurant %s: %w", itemID, err)
	}
	return orders, nil
}

func (db *DB) fetchOrders(ctx context.Context, column, id string) ([]recommend.OrderRecord, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var out []recommend.OrderRecord
	err := timed("select", "orders", func() error {
		rows, err := db.conn.QueryContext(ctx, fmt.Sprintf(orderHistoryQuery, column), id)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, "rows")

		for rows.Next() {
			var o recommend.OrderRecord
			if err := rows.Scan(&o.OrderID, &o.UserID, &o.RestaurantID, &o.Rating,
				&o.Cuisine, &o.PriceRange, &o.Total, &o.CreatedAt); err != nil {
				return err
			}
			o.CreatedAt = o.CreatedAt.UTC()
			out = append(out, o)
		}
		return rows.Err()
	})
	return out, err
}

// AppendInteractions stores feedback-derived interactions in one transaction.
func (db *DB) AppendInteractions(ctx context.Context, interactions []recommend.Interaction) error {
	if len(interactions) == 0 {
		return nil
	}
	for _, in := range interactions {
		if in.UserID == "" || in.ItemID == "" {
			return fmt.Errorf("%w: interaction needs user and item IDs", ErrInvalidInput)
		}
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err := timed("insert", "interactions", func() error {
		return db.withTx(ctx, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx,
				`INSERT INTO interactions (id, user_id, item_id, rating, implicit, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
			if err != nil {
				return err
			}
			defer closeWithLog(stmt, "statement")

			for _, in := range interactions {
				ts := in.Timestamp
				if ts.IsZero() {
					ts = db.now()
				}
				if _, err := stmt.ExecContext(ctx, uuid.NewString(), in.UserID, in.ItemID, in.Rating, in.Implicit, ts.UTC()); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("append interactions: %w", err)
	}
	return nil
}
