// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Number of API requests currently being served",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	// Result Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cache entries",
		},
		[]string{"cache_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total requests through the circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	// NATS Metrics
	NATSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_published_total",
			Help: "Total number of messages published to NATS",
		},
	)

	NATSMessagesConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_consumed_total",
			Help: "Total number of messages consumed from NATS",
		},
	)

	NATSMessagesParseFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_messages_parse_failed_total",
			Help: "Total number of NATS messages that failed to parse",
		},
	)

	NATSProcessingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "nats_processing_duration_seconds",
			Help:    "Time spent handling a single NATS message",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		},
	)

	// Training Metrics
	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_training_runs_total",
			Help: "Total number of training runs by algorithm and outcome",
		},
		[]string{"algorithm", "status"}, // "success", "error", "skipped"
	)

	TrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_training_duration_seconds",
			Help:    "Wall-clock duration of training runs",
			Buckets: []float64{.01, .1, .5, 1, 5, 10, 30, 60, 300, 900, 1800},
		},
		[]string{"algorithm"},
	)

	TrainingFinalLoss = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_training_final_loss",
			Help: "Final regularized loss of the current model",
		},
	)

	ModelEntities = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommend_model_entities",
			Help: "Number of embeddings in the current model",
		},
		[]string{"kind"},
	)

	ModelVersion = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_model_version",
			Help: "Sequence number of the model currently serving",
		},
	)

	// Ranking Metrics
	RankingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_ranking_requests_total",
			Help: "Total ranking requests by operation and strategy",
		},
		[]string{"operation", "strategy"},
	)

	RankingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_ranking_duration_seconds",
			Help:    "Latency of ranking requests",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		},
		[]string{"operation"},
	)

	// Evaluation Metrics
	EvaluationPrecision = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommend_evaluation_precision_at_k",
			Help: "Mean precision@K of the last evaluation",
		},
		[]string{"version"},
	)

	EvaluationRecall = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recommend_evaluation_recall_at_k",
			Help: "Mean recall@K of the last evaluation",
		},
		[]string{"version"},
	)

	// Feedback Metrics
	FeedbackRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_feedback_records_total",
			Help: "Total feedback records by outcome",
		},
		[]string{"result"}, // "accepted", "skipped", "invalid"
	)

	StatsRefreshed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_stats_refreshed_total",
			Help: "Total per-entity statistics recomputed",
		},
		[]string{"kind"},
	)

	StatsDirtyEntities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recommend_stats_dirty_entities",
			Help: "Entities waiting for a statistics flush",
		},
	)

	// Application Info
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCacheLookup records a hit or miss for the named cache.
func RecordCacheLookup(cacheType string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cacheType).Inc()
		return
	}
	CacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordTraining records the outcome of one training run.
func RecordTraining(algorithm string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = classifyTrainingError(err)
	}
	TrainingRuns.WithLabelValues(algorithm, status).Inc()
	if err == nil {
		TrainingDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	}
}

// classifyTrainingError maps an error to a bounded label value.
func classifyTrainingError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "already in progress"):
		return "skipped"
	case strings.Contains(msg, "insufficient data"):
		return "insufficient_data"
	case strings.Contains(msg, "invalid configuration"):
		return "invalid_config"
	default:
		return "error"
	}
}

// RecordModelPublished updates gauges describing the serving model.
func RecordModelPublished(sequence, users, items int, finalLoss float64) {
	ModelVersion.Set(float64(sequence))
	ModelEntities.WithLabelValues("user").Set(float64(users))
	ModelEntities.WithLabelValues("item").Set(float64(items))
	TrainingFinalLoss.Set(finalLoss)
}

// RecordRanking records a ranking request.
func RecordRanking(operation, strategy string, duration time.Duration) {
	RankingRequests.WithLabelValues(operation, strategy).Inc()
	RankingDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordEvaluation records the metrics of an evaluation run.
func RecordEvaluation(version string, precision, recall float64) {
	EvaluationPrecision.WithLabelValues(version).Set(precision)
	EvaluationRecall.WithLabelValues(version).Set(recall)
}

// RecordFeedback records how many feedback records were accepted or skipped.
func RecordFeedback(result string, n int) {
	if n <= 0 {
		return
	}
	FeedbackRecords.WithLabelValues(result).Add(float64(n))
}

// RecordStatsRefresh records recomputed statistics per kind.
func RecordStatsRefresh(users, items int) {
	StatsRefreshed.WithLabelValues("user").Add(float64(users))
	StatsRefreshed.WithLabelValues("item").Add(float64(items))
}

// RecordNATSPublish increments the published message counter
func RecordNATSPublish() {
	NATSMessagesPublished.Inc()
}

// RecordNATSConsume increments the consumed message counter
func RecordNATSConsume() {
	NATSMessagesConsumed.Inc()
}

// RecordNATSParseFailed increments the parse failure counter
func RecordNATSParseFailed() {
	NATSMessagesParseFailed.Inc()
}

// RecordNATSProcessingDuration observes the handling time of one message
func RecordNATSProcessingDuration(duration time.Duration) {
	NATSProcessingDuration.Observe(duration.Seconds())
}
