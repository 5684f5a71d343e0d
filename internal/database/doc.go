// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

/*
Package database is the DuckDB-backed interaction store.

It holds the restaurant and user catalog, order history, the interactions
derived from recommendation feedback, and the statistics the feedback
aggregator computes between training runs. DB implements
recommend.DataProvider together with the feedback package's StatsWriter and
InteractionWriter.

Orders are read as explicit ratings. An order the customer never rated is
read as UnratedOrderRating (default 4.0) so that repeat ordering still
counts as preference. Logically deleted users and restaurants are excluded
from training data and the catalog but their history is kept.

BreakerProvider wraps any DataProvider with a sony/gobreaker circuit breaker
and exports its state to Prometheus.

All reads take a context; calls without a deadline get a 30 second timeout.
*/
package database
