// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package metrics

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		err       error
		wantErrs  float64
	}{
		{name: "successful select", operation: "SELECT", table: "interactions_ok", wantErrs: 0},
		{name: "failed upsert", operation: "UPSERT", table: "user_stats_fail", err: errors.New("conflict"), wantErrs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordDBQuery(tt.operation, tt.table, 5*time.Millisecond, tt.err)

			errType := ""
			if tt.err != nil {
				errType = tt.err.Error()
			}
			got := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation, tt.table, errType))
			if got != tt.wantErrs {
				t.Errorf("DBQueryErrors = %v, want %v", got, tt.wantErrs)
			}
		})
	}
}

func TestRecordDBQuery_ErrorTruncation(t *testing.T) {
	long := strings.Repeat("x", 80)
	RecordDBQuery("SELECT", "truncation_test", time.Millisecond, errors.New(long))

	got := testutil.ToFloat64(DBQueryErrors.WithLabelValues("SELECT", "truncation_test", long[:50]))
	if got != 1 {
		t.Errorf("truncated error counter = %v, want 1", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/test-route", "200"))
	RecordAPIRequest("GET", "/api/v1/test-route", "200", 3*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/test-route", "200"))

	if after-before != 1 {
		t.Errorf("APIRequestsTotal delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest_RequestLifecycle(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active requests = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}

func TestRecordCacheLookup(t *testing.T) {
	RecordCacheLookup("lookup_test", true)
	RecordCacheLookup("lookup_test", true)
	RecordCacheLookup("lookup_test", false)

	if got := testutil.ToFloat64(CacheHits.WithLabelValues("lookup_test")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("lookup_test")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
}

func TestRecordTraining(t *testing.T) {
	tests := []struct {
		name      string
		algorithm string
		err       error
		status    string
	}{
		{name: "success", algorithm: "test-sgd-ok", status: "success"},
		{name: "in progress", algorithm: "test-sgd-busy", err: errors.New("training already in progress"), status: "skipped"},
		{name: "no data", algorithm: "test-sgd-empty", err: fmt.Errorf("train: %w", errors.New("insufficient data")), status: "insufficient_data"},
		{name: "bad config", algorithm: "test-sgd-config", err: errors.New("invalid configuration: factors"), status: "invalid_config"},
		{name: "other", algorithm: "test-sgd-other", err: errors.New("disk full"), status: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordTraining(tt.algorithm, time.Second, tt.err)
			if got := testutil.ToFloat64(TrainingRuns.WithLabelValues(tt.algorithm, tt.status)); got != 1 {
				t.Errorf("TrainingRuns{%s,%s} = %v, want 1", tt.algorithm, tt.status, got)
			}
		})
	}
}

func TestRecordModelPublished(t *testing.T) {
	RecordModelPublished(7, 120, 45, 0.25)

	if got := testutil.ToFloat64(ModelVersion); got != 7 {
		t.Errorf("ModelVersion = %v, want 7", got)
	}
	if got := testutil.ToFloat64(ModelEntities.WithLabelValues("item")); got != 45 {
		t.Errorf("ModelEntities{item} = %v, want 45", got)
	}
	if got := testutil.ToFloat64(TrainingFinalLoss); got != 0.25 {
		t.Errorf("TrainingFinalLoss = %v, want 0.25", got)
	}
}

func TestRecordFeedback(t *testing.T) {
	RecordFeedback("test_accepted", 3)
	RecordFeedback("test_accepted", 0)

	if got := testutil.ToFloat64(FeedbackRecords.WithLabelValues("test_accepted")); got != 3 {
		t.Errorf("FeedbackRecords = %v, want 3", got)
	}
}

func TestRecordEvaluation(t *testing.T) {
	RecordEvaluation("test-9.0", 0.3, 0.6)

	if got := testutil.ToFloat64(EvaluationPrecision.WithLabelValues("test-9.0")); got != 0.3 {
		t.Errorf("precision = %v, want 0.3", got)
	}
	if got := testutil.ToFloat64(EvaluationRecall.WithLabelValues("test-9.0")); got != 0.6 {
		t.Errorf("recall = %v, want 0.6", got)
	}
}

func TestConcurrentMetricRecording(t *testing.T) {
	var wg sync.WaitGroup
	for n := 0; n < 10; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := 0; m < 100; m++ {
				RecordRanking("concurrent_test", "popularity", time.Microsecond)
				RecordNATSConsume()
			}
		}()
	}
	wg.Wait()

	if got := testutil.ToFloat64(RankingRequests.WithLabelValues("concurrent_test", "popularity")); got != 1000 {
		t.Errorf("RankingRequests = %v, want 1000", got)
	}
}

func TestMetricGathering(t *testing.T) {
	RecordDBQuery("TEST", "test_table", time.Millisecond, nil)
	RecordStatsRefresh(1, 1)

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Logf("Lint errors (may be expected): %v", err)
	}
	for _, p := range problems {
		t.Logf("Metric lint problem: %s", p.Text)
	}
}
