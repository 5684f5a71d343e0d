// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package main

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/forkcast/internal/config"
	"github.com/tomtom215/forkcast/internal/eventprocessor"
	"github.com/tomtom215/forkcast/internal/recommend"
)

type recordingAggregator struct {
	mu      sync.Mutex
	records []recommend.RecommendationRecord
}

func (r *recordingAggregator) Record(_ context.Context, records []recommend.RecommendationRecord) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return len(records), nil
}

func (r *recordingAggregator) snapshot() []recommend.RecommendationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recommend.RecommendationRecord(nil), r.records...)
}

// TestNATSComponents_IsRunning tests the IsRunning method.
func TestNATSComponents_IsRunning(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		var c *NATSComponents
		if c.IsRunning() {
			t.Error("IsRunning() should return false for nil components")
		}
	})

	t.Run("not running", func(t *testing.T) {
		c := &NATSComponents{}
		if c.IsRunning() {
			t.Error("IsRunning() should return false when not running")
		}
	})

	t.Run("running", func(t *testing.T) {
		c := &NATSComponents{running: true}
		if !c.IsRunning() {
			t.Error("IsRunning() should return true when running")
		}
	})
}

// TestNATSComponents_Shutdown tests the Shutdown method.
func TestNATSComponents_Shutdown(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		var c *NATSComponents
		c.Shutdown(context.Background())
	})

	t.Run("empty components twice", func(t *testing.T) {
		c := &NATSComponents{running: true}
		c.Shutdown(context.Background())
		c.Shutdown(context.Background())
		if c.IsRunning() {
			t.Error("Should not be running after shutdown")
		}
	})

	t.Run("start after shutdown fails", func(t *testing.T) {
		c := &NATSComponents{router: &eventprocessor.Router{}}
		c.closed = true
		if err := c.Start(context.Background()); err == nil {
			t.Error("Start() after Shutdown should fail")
		}
	})
}

func TestInitNATSDisabled(t *testing.T) {
	tests := []struct {
		name     string
		nats     bool
		feedback bool
	}{
		{"both disabled", false, false},
		{"feedback disabled", true, false},
		{"nats disabled", false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.NATS.Enabled = tt.nats
			cfg.Feedback.Enabled = tt.feedback

			c, err := InitNATS(context.Background(), cfg, &recordingAggregator{})
			if err != nil || c != nil {
				t.Fatalf("InitNATS() = %v, %v; want nil, nil", c, err)
			}
			if c.Publisher() != nil {
				t.Error("Publisher() on nil components should be nil")
			}
		})
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestFeedbackPipelineEndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("embedded NATS server skipped in short mode")
	}

	cfg := &config.Config{
		NATS: config.NATSConfig{
			Enabled:              true,
			URL:                  fmt.Sprintf("nats://127.0.0.1:%d", freePort(t)),
			EmbeddedServer:       true,
			StoreDir:             t.TempDir(),
			MaxMemory:            64 << 20,
			MaxStore:             64 << 20,
			StreamName:           "FORKCAST_TEST",
			StreamRetentionDays:  1,
			DurableName:          "forkcast-test",
			QueueGroup:           "feedback-test",
			SubscribersCount:     1,
			RetryCount:           1,
			RetryInitialInterval: 10 * time.Millisecond,
			CloseTimeout:         5 * time.Second,
		},
		Feedback: config.FeedbackConfig{
			Enabled: true,
			Topic:   "forkcast.feedback.test",
		},
	}

	agg := &recordingAggregator{}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	c, err := InitNATS(ctx, cfg, agg)
	if err != nil {
		t.Fatalf("InitNATS() error = %v", err)
	}
	t.Cleanup(func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		c.Shutdown(shutdownCtx)
	})

	if err := c.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if !c.IsRunning() {
		t.Fatal("IsRunning() = false after Start")
	}

	event := eventprocessor.NewFeedbackEvent("u1", "r1", recommend.Feedback{Ordered: true})
	if err := c.Publisher().Submit(ctx, event); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	deadline := time.Now().Add(15 * time.Second)
	for len(agg.snapshot()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("feedback event never reached the aggregator")
		}
		time.Sleep(20 * time.Millisecond)
	}

	got := agg.snapshot()[0]
	if got.UserID != "u1" || got.ItemID != "r1" || !got.Feedback.Ordered {
		t.Errorf("recorded %+v", got)
	}
}
