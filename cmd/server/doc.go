// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

/*
Package main is the entry point for the Forkcast server.

Forkcast recommends restaurants to users from their order history with a
latent factor model, and keeps per-user and per-restaurant statistics
current from recommendation feedback between training runs.

# Application Architecture

	RootSupervisor ("forkcast")
	├── DataSupervisor ("data-layer")
	│   ├── Training service (startup and scheduled retraining)
	│   ├── Stats flush service (feedback aggregation)
	│   └── Embedding GC service (badger value log)
	├── MessagingSupervisor ("messaging-layer")
	│   └── Feedback pipeline (NATS JetStream + Watermill router, optional)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, optional YAML file and environment
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB holding users, restaurants, orders, interactions and stats
 4. Engine: trainer, circuit-broken data provider, result cache, model
    snapshots and the badger embedding store; the newest snapshot and the
    persisted stats are restored before serving
 5. Supervisor Tree: Suture v4 process supervision
 6. Feedback pipeline: embedded or external NATS when FEEDBACK_ENABLED=true
 7. HTTP Server: chi router with middleware stack

# Configuration

See internal/config for every setting. Common ones:

	DUCKDB_PATH=/data/forkcast.duckdb
	RECOMMEND_TRAINER_ALGORITHM=sgd|als
	TRAIN_INTERVAL=6h
	NATS_ENABLED=true
	FEEDBACK_ENABLED=true

# Graceful Shutdown

SIGINT or SIGTERM cancels the root context. The supervisor stops the API
layer, the feedback pipeline and the data services, the stats aggregator is
flushed a last time, and the embedding store and database are closed.
*/
package main
