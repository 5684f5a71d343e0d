// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package eventprocessor

import (
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/forkcast/internal/config"
)

func testNATSConfig() *config.NATSConfig {
	return &config.NATSConfig{
		Enabled:              true,
		URL:                  "nats://127.0.0.1:4333",
		EmbeddedServer:       true,
		StoreDir:             "/tmp/js",
		MaxMemory:            64 << 20,
		MaxStore:             128 << 20,
		StreamName:           "FORKCAST",
		StreamRetentionDays:  3,
		DurableName:          "forkcast-feedback",
		QueueGroup:           "feedback",
		SubscribersCount:     4,
		RetryCount:           2,
		RetryInitialInterval: 50 * time.Millisecond,
		CloseTimeout:         5 * time.Second,
	}
}

func TestServerConfigFrom(t *testing.T) {
	t.Parallel()

	got, err := ServerConfigFrom(testNATSConfig())
	if err != nil {
		t.Fatalf("ServerConfigFrom() error = %v", err)
	}
	if got.Host != "127.0.0.1" || got.Port != 4333 {
		t.Errorf("listen = %s:%d, want 127.0.0.1:4333", got.Host, got.Port)
	}
	if got.StoreDir != "/tmp/js" || got.JetStreamMaxMem != 64<<20 || got.JetStreamMaxStore != 128<<20 {
		t.Errorf("jetstream limits = %+v", got)
	}

	for _, bad := range []string{"nats://localhost", "nats://host:port", "://"} {
		cfg := testNATSConfig()
		cfg.URL = bad
		if _, err := ServerConfigFrom(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("ServerConfigFrom(%q) error = %v, want ErrInvalidConfig", bad, err)
		}
	}
}

func TestSubscriberConfigFrom(t *testing.T) {
	t.Parallel()

	got := SubscriberConfigFrom(testNATSConfig())
	if got.URL != "nats://127.0.0.1:4333" || got.StreamName != "FORKCAST" {
		t.Errorf("connection = %+v", got)
	}
	if got.DurableName != "forkcast-feedback" || got.QueueGroup != "feedback" || got.SubscribersCount != 4 {
		t.Errorf("consumer = %+v", got)
	}
	if got.CloseTimeout != 5*time.Second || got.MaxDeliver != 5 {
		t.Errorf("timeouts = %+v", got)
	}
}

func TestStreamConfigFrom(t *testing.T) {
	t.Parallel()

	fb := &config.FeedbackConfig{Topic: "forkcast.feedback"}
	got := StreamConfigFrom(testNATSConfig(), fb)
	if got.Name != "FORKCAST" {
		t.Errorf("Name = %q", got.Name)
	}
	if len(got.Subjects) != 2 || got.Subjects[0] != "forkcast.feedback" || got.Subjects[1] != "forkcast.feedback.poison" {
		t.Errorf("Subjects = %v", got.Subjects)
	}
	if got.MaxAge != 72*time.Hour || got.MaxBytes != 128<<20 {
		t.Errorf("limits = %v %d", got.MaxAge, got.MaxBytes)
	}
}

func TestRouterConfigFrom(t *testing.T) {
	t.Parallel()

	fb := &config.FeedbackConfig{Topic: "orders.feedback"}
	got := RouterConfigFrom(testNATSConfig(), fb)
	if got.RetryMaxRetries != 2 || got.RetryInitialInterval != 50*time.Millisecond {
		t.Errorf("retry = %d/%v", got.RetryMaxRetries, got.RetryInitialInterval)
	}
	if got.CloseTimeout != 5*time.Second {
		t.Errorf("CloseTimeout = %v", got.CloseTimeout)
	}
	if got.PoisonQueueTopic != "orders.feedback.poison" {
		t.Errorf("PoisonQueueTopic = %q", got.PoisonQueueTopic)
	}
}
