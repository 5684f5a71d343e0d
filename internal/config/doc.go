// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

/*
Package config provides centralized configuration management for Forkcast.

Configuration is layered with Koanf v2, later layers overriding earlier ones:

 1. Built-in defaults (structs provider)
 2. An optional YAML file: CONFIG_PATH, else config.yaml, config.yml,
    /etc/forkcast/config.yaml or /etc/forkcast/config.yml
 3. Environment variables

Only mapped environment variables are read. Examples:

  - HTTP_PORT: Listen port (default: 8650)
  - DUCKDB_PATH: Interaction store file (default: /data/forkcast.duckdb)
  - EMBEDDINGS_PATH: Badger directory for embeddings (default: /data/embeddings)
  - SNAPSHOT_DIR: Model snapshot directory (default: /data/models)
  - RECOMMEND_TRAINER_FACTORS: Embedding dimensionality (default: 15)
  - RECOMMEND_TRAINER_ALGORITHM: sgd or als (default: sgd)
  - RECOMMEND_SPLIT_POLICY: time or random (default: time)
  - TRAIN_INTERVAL: Retraining interval (default: 6h)
  - NATS_ENABLED, FEEDBACK_ENABLED: Feedback events over JetStream (default: false)
  - LOG_LEVEL, LOG_FORMAT: Logging (default: info, json)

The YAML file uses the koanf paths directly:

	recommend:
	  trainer:
	    factors: 32
	    algorithm: als
	  ranking:
	    cold_start_threshold: 0.6

Load validates the merged result, including the engine configuration, and
returns a descriptive error naming the offending setting.
*/
package config
