// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package feedback

import (
	"sort"
	"time"

	"github.com/tomtom215/forkcast/internal/recommend"
)

// TimeBucketOf maps a timestamp to its time-of-day bucket using the hour in
// the timestamp's own location. Convert with t.In first to bucket in another
// zone; the Compute functions use StatsConfig.Location.
func TimeBucketOf(t time.Time) recommend.TimeBucket {
	switch h := t.Hour(); {
	case h >= 6 && h < 12:
		return recommend.BucketMorning
	case h >= 12 && h < 17:
		return recommend.BucketAfternoon
	case h >= 17 && h < 22:
		return recommend.BucketEvening
	default:
		return recommend.BucketNight
	}
}

// ColdStartScore returns max(0, 1 - n/k). It is 1 for a non-positive k.
func ColdStartScore(n, k int) float64 {
	if k <= 0 {
		return 1
	}
	s := 1 - float64(n)/float64(k)
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Popularity returns min(total/maxOrders, 1).
func Popularity(total, maxOrders int) float64 {
	if maxOrders <= 0 || total <= 0 {
		return 0
	}
	p := float64(total) / float64(maxOrders)
	if p > 1 {
		return 1
	}
	return p
}

// ComputeUserStats summarizes a user's order history. Only rated orders
// contribute to the average rating.
func ComputeUserStats(userID string, orders []recommend.OrderRecord, cfg recommend.StatsConfig) recommend.UserStats {
	stats := recommend.UserStats{
		UserID:           userID,
		InteractionCount: len(orders),
		ColdStartScore:   ColdStartScore(len(orders), cfg.UserColdStartK),
		Preferences: recommend.PreferenceSummary{
			TopCuisines: []string{},
		},
	}
	if len(orders) == 0 {
		return stats
	}

	loc := cfg.Location()
	cuisines := make(map[string]int)
	prices := make(map[string]int)
	buckets := make(map[recommend.TimeBucket]int)
	var ratingSum, totalSum float64
	var rated int

	for _, o := range orders {
		if o.Rated() {
			ratingSum += o.Rating
			rated++
		}
		totalSum += o.Total
		if o.Cuisine != "" {
			cuisines[o.Cuisine]++
		}
		if o.PriceRange != "" {
			prices[o.PriceRange]++
		}
		buckets[TimeBucketOf(o.CreatedAt.In(loc))]++
	}

	if rated > 0 {
		stats.AverageRating = ratingSum / float64(rated)
	}
	stats.Preferences.TopCuisines = topKeys(cuisines, cfg.TopCuisines)
	stats.Preferences.PriceBand = mode(prices)
	stats.Preferences.AverageOrderValue = totalSum / float64(len(orders))
	if top := topBuckets(buckets, 1); len(top) > 0 {
		stats.Preferences.TimeBucket = top[0]
	}

	return stats
}

// ComputeItemStats summarizes a restaurant's order history.
func ComputeItemStats(itemID string, orders []recommend.OrderRecord, cfg recommend.StatsConfig) recommend.ItemStats {
	stats := recommend.ItemStats{
		ItemID:         itemID,
		TotalOrders:    len(orders),
		Popularity:     Popularity(len(orders), cfg.MaxOrdersCap),
		ColdStartScore: ColdStartScore(len(orders), cfg.ItemColdStartK),
		Features: recommend.ItemFeatures{
			PeakBuckets: []recommend.TimeBucket{},
		},
	}
	if len(orders) == 0 {
		return stats
	}

	loc := cfg.Location()
	customers := make(map[string]struct{})
	cuisines := make(map[string]int)
	prices := make(map[string]int)
	buckets := make(map[recommend.TimeBucket]int)
	var ratingSum float64
	var rated int

	for _, o := range orders {
		customers[o.UserID] = struct{}{}
		if o.Rated() {
			ratingSum += o.Rating
			rated++
		}
		if o.Cuisine != "" {
			cuisines[o.Cuisine]++
		}
		if o.PriceRange != "" {
			prices[o.PriceRange]++
		}
		buckets[TimeBucketOf(o.CreatedAt.In(loc))]++
	}

	stats.UniqueCustomers = len(customers)
	if rated > 0 {
		stats.AverageRating = ratingSum / float64(rated)
	}
	stats.Features.Cuisine = mode(cuisines)
	stats.Features.PriceRange = mode(prices)
	stats.Features.PeakBuckets = topBuckets(buckets, cfg.PeakBuckets)

	return stats
}

// topKeys returns up to n keys by descending count, ties by key.
func topKeys(counts map[string]int, n int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool {
		if counts[keys[a]] != counts[keys[b]] {
			return counts[keys[a]] > counts[keys[b]]
		}
		return keys[a] < keys[b]
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// mode returns the most frequent key, ties lexicographic, or "" when empty.
func mode(counts map[string]int) string {
	if top := topKeys(counts, 1); len(top) > 0 {
		return top[0]
	}
	return ""
}

// topBuckets returns up to n buckets by descending count with ties in
// canonical bucket order.
func topBuckets(counts map[recommend.TimeBucket]int, n int) []recommend.TimeBucket {
	out := make([]recommend.TimeBucket, 0, len(counts))
	for _, b := range recommend.TimeBuckets {
		if counts[b] > 0 {
			out = append(out, b)
		}
	}
	// stable keeps canonical order among equal counts
	sort.SliceStable(out, func(a, b int) bool {
		return counts[out[a]] > counts[out[b]]
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
