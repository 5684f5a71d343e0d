// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/forkcast/internal/recommend"
)

// SaveStats upserts the statistics in update in one transaction. Rows for
// owners absent from update are left untouched.
func (db *DB) SaveStats(ctx context.Context, update recommend.StatsUpdate) error {
	if update.Empty() {
		return nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err := timed("upsert", "stats", func() error {
		return db.withTx(ctx, func(tx *sql.Tx) error {
			for i := range update.Users {
				if err := upsertUserStats(ctx, tx, &update.Users[i]); err != nil {
					return err
				}
			}
			for i := range update.Items {
				if err := upsertItemStats(ctx, tx, &update.Items[i]); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

func upsertUserStats(ctx context.Context, tx *sql.Tx, s *recommend.UserStats) error {
	cuisines, err := json.Marshal(nonNil(s.Preferences.TopCuisines))
	if err != nil {
		return fmt.Errorf("encode cuisines for %s: %w", s.UserID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_stats (user_id, interaction_count, average_rating, top_cuisines,
			price_band, average_order_value, time_bucket, cold_start_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			interaction_count = EXCLUDED.interaction_count,
			average_rating = EXCLUDED.average_rating,
			top_cuisines = EXCLUDED.top_cuisines,
			price_band = EXCLUDED.price_band,
			average_order_value = EXCLUDED.average_order_value,
			time_bucket = EXCLUDED.time_bucket,
			cold_start_score = EXCLUDED.cold_start_score,
			updated_at = EXCLUDED.updated_at`,
		s.UserID, s.InteractionCount, s.AverageRating, string(cuisines),
		s.Preferences.PriceBand, s.Preferences.AverageOrderValue, string(s.Preferences.TimeBucket),
		s.ColdStartScore, s.UpdatedAt.UTC())
	return err
}

func upsertItemStats(ctx context.Context, tx *sql.Tx, s *recommend.ItemStats) error {
	buckets, err := json.Marshal(nonNil(s.Features.PeakBuckets))
	if err != nil {
		return fmt.Errorf("encode peak buckets for %s: %w", s.ItemID, err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO item_stats (item_id, total_orders, unique_customers, average_rating,
			popularity_score, cuisine, price_range, peak_buckets, cold_start_score, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			total_orders = EXCLUDED.total_orders,
			unique_customers = EXCLUDED.unique_customers,
			average_rating = EXCLUDED.average_rating,
			popularity_score = EXCLUDED.popularity_score,
			cuisine = EXCLUDED.cuisine,
			price_range = EXCLUDED.price_range,
			peak_buckets = EXCLUDED.peak_buckets,
			cold_start_score = EXCLUDED.cold_start_score,
			updated_at = EXCLUDED.updated_at`,
		s.ItemID, s.TotalOrders, s.UniqueCustomers, s.AverageRating,
		s.Popularity, s.Features.Cuisine, s.Features.PriceRange, string(buckets),
		s.ColdStartScore, s.UpdatedAt.UTC())
	return err
}

// LoadStats returns every persisted statistic, ordered by owner ID.
func (db *DB) LoadStats(ctx context.Context) (recommend.StatsUpdate, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var update recommend.StatsUpdate
	err := timed("select", "user_stats", func() error {
		rows, err := db.conn.QueryContext(ctx, `
			SELECT user_id, interaction_count, average_rating, top_cuisines, price_band,
			       average_order_value, time_bucket, cold_start_score, updated_at
			FROM user_stats ORDER BY user_id`)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, "rows")

		for rows.Next() {
			var (
				s        recommend.UserStats
				cuisines string
				bucket   string
			)
			if err := rows.Scan(&s.UserID, &s.InteractionCount, &s.AverageRating, &cuisines,
				&s.Preferences.PriceBand, &s.Preferences.AverageOrderValue, &bucket,
				&s.ColdStartScore, &s.UpdatedAt); err != nil {
				return err
			}
			if err := json.Unmarshal([]byte(cuisines), &s.Preferences.TopCuisines); err != nil {
				return fmt.Errorf("decode cuisines for %s: %w", s.UserID, err)
			}
			s.Preferences.TimeBucket = recommend.TimeBucket(bucket)
			s.UpdatedAt = s.UpdatedAt.UTC()
			update.Users = append(update.Users, s)
		}
		return rows.Err()
	})
	if err != nil {
		return recommend.StatsUpdate{}, fmt.Errorf("load user stats: %w", err)
	}

	err = timed("select", "item_stats", func() error {
		rows, err := db.conn.QueryContext(ctx, `
			SELECT item_id, total_orders, unique_customers, average_rating, popularity_score,
			       cuisine, price_range, peak_buckets, cold_start_score, updated_at
			FROM item_stats ORDER BY item_id`)
		if err != nil {
			return err
		}
		defer closeWithLog(rows, "rows")

		for rows.Next() {
			var (
				s       recommend.ItemStats
				buckets string
			)
			if err := rows.Scan(&s.ItemID, &s.TotalOrders, &s.UniqueCustomers, &s.AverageRating,
				&s.Popularity, &s.Features.Cuisine, &s.Features.PriceRange, &buckets,
				&s.ColdStartScore, &s.UpdatedAt); err != nil {
				return err
			}
			if err := json.Unmarshal([]byte(buckets), &s.Features.PeakBuckets); err != nil {
				return fmt.Errorf("decode peak buckets for %s: %w", s.ItemID, err)
			}
			s.UpdatedAt = s.UpdatedAt.UTC()
			update.Items = append(update.Items, s)
		}
		return rows.Err()
	})
	if err != nil {
		return recommend.StatsUpdate{}, fmt.Errorf("load item stats: %w", err)
	}

	return update, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
