// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

/*
Package metrics provides Prometheus metrics collection and export.

All collectors are registered on the default registry through promauto and
exposed at /metrics in the Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Database:
  - duckdb_query_duration_seconds{operation,table}
  - duckdb_query_errors_total{operation,table,error_type}

HTTP:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Recommendation engine:
  - recommend_training_runs_total{algorithm,status}
  - recommend_training_duration_seconds{algorithm}
  - recommend_training_final_loss
  - recommend_model_version, recommend_model_entities{kind}
  - recommend_ranking_requests_total{operation,strategy}
  - recommend_ranking_duration_seconds{operation}
  - recommend_evaluation_precision_at_k{version}, recommend_evaluation_recall_at_k{version}
  - cache_hits_total{cache_type}, cache_misses_total{cache_type}, cache_entries{cache_type}

Feedback pipeline:
  - recommend_feedback_records_total{result}
  - recommend_stats_refreshed_total{kind}
  - recommend_stats_dirty_entities
  - nats_messages_published_total, nats_messages_consumed_total
  - nats_messages_parse_failed_total, nats_processing_duration_seconds

Resilience:
  - circuit_breaker_state{name}
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_state_transitions_total{name,from,to}
*/
package metrics
