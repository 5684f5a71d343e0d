// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

/*
Command evaluate trains one model offline against a DuckDB file, holds out
a slice of the interactions, and prints precision@K, recall@K and the lift
over a random baseline.

Configuration is loaded the same way as the server (defaults, optional
YAML file, environment); flags override it:

	evaluate -db /data/forkcast.duckdb -algorithm als -split random -k 20
	evaluate -json > report.json

Nothing is written back: no snapshot, no embeddings, no stats.
*/
package main
