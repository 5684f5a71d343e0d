// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package eventprocessor

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/forkcast/internal/logging"
)

func startEmbedded(t *testing.T) *EmbeddedServer {
	t.Helper()
	if testing.Short() {
		t.Skip("embedded NATS server skipped in short mode")
	}

	cfg := DefaultServerConfig()
	cfg.Port = -1
	cfg.StoreDir = t.TempDir()
	cfg.JetStreamMaxMem = 16 << 20
	cfg.JetStreamMaxStore = 64 << 20

	srv, err := NewEmbeddedServer(&cfg)
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestNewStreamInitializerValidates(t *testing.T) {
	t.Parallel()

	if _, err := NewStreamInitializer(nil, &StreamConfig{Name: "S", Subjects: []string{"a"}}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil JetStream error = %v", err)
	}
	if _, err := NewEmbeddedServer(nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil server config error = %v", err)
	}
	if _, err := NewSubscriber(nil, nil); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("nil subscriber config error = %v", err)
	}
}

func TestEmbeddedServerPublishesToStream(t *testing.T) {
	srv := startEmbedded(t)
	if !srv.IsRunning() || !srv.JetStreamEnabled() {
		t.Fatal("embedded server not running with JetStream")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	const topic = "forkcast.feedback"
	streamCfg := DefaultStreamConfig()
	streamCfg.Subjects = []string{topic, PoisonTopic(topic)}
	streamCfg.MaxBytes = 16 << 20

	// Twice: the second call takes the update path.
	for i := 0; i < 2; i++ {
		if err := EnsureStreamAt(ctx, srv.ClientURL(), &streamCfg); err != nil {
			t.Fatalf("EnsureStreamAt() call %d error = %v", i+1, err)
		}
	}

	pubCfg := DefaultPublisherConfig(srv.ClientURL())
	pubCfg.MaxReconnects = 0
	pub, err := NewPublisher(pubCfg, topic, NewWatermillLoggerWith(logging.NewTestLogger(io.Discard)))
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	defer pub.Close()

	event := validEvent()
	for i := 0; i < 2; i++ {
		if err := pub.Submit(ctx, event); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer nc.Close()
	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream.New() error = %v", err)
	}

	si, err := NewStreamInitializer(js, &streamCfg)
	if err != nil {
		t.Fatalf("NewStreamInitializer() error = %v", err)
	}
	if !si.IsHealthy(ctx) {
		t.Fatal("stream not healthy")
	}

	stream, err := js.Stream(ctx, streamCfg.Name)
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	info, err := stream.Info(ctx)
	if err != nil {
		t.Fatalf("Info() error = %v", err)
	}
	// The duplicate submission shares a Nats-Msg-Id and is dropped.
	if info.State.Msgs != 1 {
		t.Errorf("stream holds %d messages, want 1", info.State.Msgs)
	}
}
