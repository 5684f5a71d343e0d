// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package eventprocessor

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/metrics"
	"github.com/tomtom215/forkcast/internal/recommend"
)

type stubRecorder struct {
	mu      sync.Mutex
	records []recommend.RecommendationRecord
	err     error
}

func (s *stubRecorder) Record(_ context.Context, records []recommend.RecommendationRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.records = append(s.records, records...)
	return len(records), nil
}

func (s *stubRecorder) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestFeedbackHandlerSubmit(t *testing.T) {
	t.Parallel()

	rec := &stubRecorder{}
	h := NewFeedbackHandler(rec, 0)

	if err := h.Submit(context.Background(), validEvent()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if rec.count() != 1 {
		t.Fatalf("recorded %d, want 1", rec.count())
	}
	got := rec.records[0]
	if got.UserID != "u1" || got.ItemID != "r1" || !got.Feedback.Ordered {
		t.Errorf("recorded %+v", got)
	}
}

func TestFeedbackHandlerSubmitFillsDefaults(t *testing.T) {
	t.Parallel()

	rec := &stubRecorder{}
	h := NewFeedbackHandler(rec, 0)
	fixed := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	h.now = func() time.Time { return fixed }

	e := &FeedbackEvent{UserID: "u1", RestaurantID: "r2", Feedback: recommend.Feedback{Dismissed: true}}
	if err := h.Submit(context.Background(), e); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if e.EventID == "" {
		t.Error("EventID not assigned")
	}
	if !rec.records[0].CreatedAt.Equal(fixed) {
		t.Errorf("CreatedAt = %v, want %v", rec.records[0].CreatedAt, fixed)
	}
}

func TestFeedbackHandlerSubmitRejectsInvalid(t *testing.T) {
	t.Parallel()

	rec := &stubRecorder{}
	h := NewFeedbackHandler(rec, 0)

	e := validEvent()
	e.RestaurantID = " r1"
	if err := h.Submit(context.Background(), e); !errors.Is(err, ErrMalformedEvent) {
		t.Errorf("Submit() error = %v, want ErrMalformedEvent", err)
	}
	if rec.count() != 0 {
		t.Errorf("invalid event was recorded")
	}
}

func TestFeedbackHandlerThrottleHonorsContext(t *testing.T) {
	t.Parallel()

	rec := &stubRecorder{}
	h := NewFeedbackHandler(rec, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.Submit(ctx, validEvent())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Submit() error = %v, want context.Canceled", err)
	}
	if rec.count() != 0 {
		t.Errorf("throttled event was recorded")
	}
}

func TestFeedbackHandlerHandle(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("database is closed")

	tests := []struct {
		name     string
		payload  []byte
		recErr   error
		wantErr  error
		recorded int
	}{
		{
			name:     "valid event",
			payload:  mustSerialize(t, validEvent()),
			recorded: 1,
		},
		{
			name:    "garbage is acknowledged",
			payload: []byte("{nope"),
		},
		{
			name:    "invalid event is acknowledged",
			payload: []byte(`{"event_id":"e1","user_id":"","restaurant_id":"r1"}`),
		},
		{
			name:    "store failure is retried",
			payload: mustSerialize(t, validEvent()),
			recErr:  storeErr,
			wantErr: storeErr,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := &stubRecorder{err: tt.recErr}
			h := NewFeedbackHandler(rec, 0)

			msg := message.NewMessage("m1", tt.payload)
			msg.Metadata.Set(correlationHeader, "abc123")

			err := h.Handle(msg)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Handle() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Handle() error = %v, want %v", err, tt.wantErr)
			}
			if rec.count() != tt.recorded {
				t.Errorf("recorded %d, want %d", rec.count(), tt.recorded)
			}
		})
	}
}

func TestFeedbackHandlerCountsParseFailures(t *testing.T) {
	t.Parallel()

	before := testutil.ToFloat64(metrics.NATSMessagesParseFailed)
	h := NewFeedbackHandler(&stubRecorder{}, 0)
	if err := h.Handle(message.NewMessage("m1", []byte("]"))); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := testutil.ToFloat64(metrics.NATSMessagesParseFailed) - before; got < 1 {
		t.Errorf("parse failures grew by %v, want at least 1", got)
	}
}

func mustSerialize(t *testing.T, e *FeedbackEvent) []byte {
	t.Helper()
	data, err := SerializeEvent(e)
	if err != nil {
		t.Fatalf("SerializeEvent() error = %v", err)
	}
	return data
}

func newTestPubSub(t *testing.T) *gochannel.GoChannel {
	t.Helper()
	ps := gochannel.NewGoChannel(gochannel.Config{}, NewWatermillLoggerWith(logging.NewTestLogger(io.Discard)))
	t.Cleanup(func() { _ = ps.Close() })
	return ps
}

func startRouter(t *testing.T, cfg *RouterConfig, ps *gochannel.GoChannel, topic string, h *FeedbackHandler) {
	t.Helper()

	router, err := NewRouter(cfg, ps, NewWatermillLoggerWith(logging.NewTestLogger(io.Discard)))
	if err != nil {
		t.Fatalf("NewRouter() error = %v", err)
	}
	router.AddConsumerHandler("feedback", topic, ps, h.Handle)
	if router.Handlers() != 1 {
		t.Fatalf("Handlers() = %d, want 1", router.Handlers())
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = router.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = router.Close()
		<-done
	})

	select {
	case <-router.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}
	if !router.IsRunning() {
		t.Error("IsRunning() = false after Running closed")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRouterDeliversFeedback(t *testing.T) {
	t.Parallel()

	const topic = "forkcast.feedback"
	ps := newTestPubSub(t)
	rec := &stubRecorder{}

	cfg := DefaultRouterConfig()
	cfg.CloseTimeout = time.Second
	startRouter(t, &cfg, ps, topic, NewFeedbackHandler(rec, 0))

	pub := NewPublisherWith(ps, topic)
	ctx := logging.ContextWithCorrelationID(context.Background(), "req-1")
	if err := pub.Submit(ctx, validEvent()); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	waitFor(t, func() bool { return rec.count() == 1 })
}

func TestRouterPoisonsAfterRetries(t *testing.T) {
	t.Parallel()

	const topic = "forkcast.feedback"
	ps := newTestPubSub(t)
	rec := &stubRecorder{err: errors.New("io error: disk full")}

	poisoned, err := ps.Subscribe(context.Background(), PoisonTopic(topic))
	if err != nil {
		t.Fatalf("Subscribe(poison) error = %v", err)
	}

	cfg := DefaultRouterConfig()
	cfg.CloseTimeout = time.Second
	cfg.RetryMaxRetries = 1
	cfg.RetryInitialInterval = time.Millisecond
	cfg.RetryMaxInterval = time.Millisecond
	cfg.PoisonQueueTopic = PoisonTopic(topic)
	startRouter(t, &cfg, ps, topic, NewFeedbackHandler(rec, 0))

	pub := NewPublisherWith(ps, topic)
	event := validEvent()
	if err := pub.Submit(context.Background(), event); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case msg := <-poisoned:
		msg.Ack()
		if msg.UUID != event.EventID {
			t.Errorf("poisoned UUID = %q, want %q", msg.UUID, event.EventID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message never reached the poison queue")
	}
}

func TestPublisherClosed(t *testing.T) {
	t.Parallel()

	pub := NewPublisherWith(newTestPubSub(t), "forkcast.feedback")
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := pub.Submit(context.Background(), validEvent()); !errors.Is(err, ErrPublisherClosed) {
		t.Errorf("Submit() after Close error = %v, want ErrPublisherClosed", err)
	}
}

func TestPublisherRejectsInvalid(t *testing.T) {
	t.Parallel()

	pub := NewPublisherWith(newTestPubSub(t), "forkcast.feedback")
	e := validEvent()
	e.UserID = ""
	if err := pub.Submit(context.Background(), e); !errors.Is(err, ErrMalformedEvent) {
		t.Errorf("Submit() error = %v, want ErrMalformedEvent", err)
	}
}
