// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"golang.org/x/time/rate"

	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/metrics"
	"github.com/tomtom215/forkcast/internal/recommend"
	"github.com/tomtom215/forkcast/internal/validation"
)

// correlationHeader carries the submitting request's correlation ID.
const correlationHeader = "correlation_id"

// Recorder accepts recommendation feedback. *feedback.Aggregator
// implements it.
type Recorder interface {
	Record(ctx context.Context, records []recommend.RecommendationRecord) (int, error)
}

// FeedbackHandler validates feedback events and hands them to a Recorder.
// Writes are throttled so a replayed backlog cannot saturate the store.
type FeedbackHandler struct {
	recorder   Recorder
	limiter    *rate.Limiter
	serializer *Serializer
	events     *logging.EventLogger
	now        func() time.Time
}

// NewFeedbackHandler creates a handler. perSecond <= 0 disables throttling.
func NewFeedbackHandler(recorder Recorder, perSecond int) *FeedbackHandler {
	h := &FeedbackHandler{
		recorder:   recorder,
		serializer: NewSerializer(),
		events:     logging.NewEventLogger(),
		now:        time.Now,
	}
	if perSecond > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	}
	return h
}

// Handle is the Watermill consumer function. Malformed events are logged
// and acknowledged; store failures are returned so the router retries them.
func (h *FeedbackHandler) Handle(msg *message.Message) error {
	start := h.now()
	metrics.RecordNATSConsume()
	defer func() { metrics.RecordNATSProcessingDuration(h.now().Sub(start)) }()

	ctx := msg.Context()
	if cid := msg.Metadata.Get(correlationHeader); cid != "" {
		ctx = logging.ContextWithCorrelationID(ctx, cid)
	}

	event, err := h.serializer.Unmarshal(msg.Payload)
	if err != nil {
		metrics.RecordNATSParseFailed()
		h.events.LogEventRejected(ctx, msg.UUID, err)
		return nil
	}

	err = h.Submit(ctx, event)
	if errors.Is(err, ErrMalformedEvent) {
		h.events.LogEventRejected(ctx, event.EventID, err)
		return nil
	}
	if err != nil {
		h.events.LogEventFailed(ctx, event.EventID, err)
		return err
	}

	h.events.LogEventProcessed(ctx, event.EventID, h.now().Sub(start))
	return nil
}

// Submit validates and records one event without going through NATS.
// The HTTP API uses it when messaging is disabled.
func (h *FeedbackHandler) Submit(ctx context.Context, event *FeedbackEvent) error {
	event.EnsureDefaults(h.now())
	if verr := validation.ValidateStruct(event); verr != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, verr)
	}

	h.events.LogEventReceived(ctx, event.EventID, event.UserID, event.RestaurantID, event.Kind())

	if h.limiter != nil {
		if err := h.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("throttle feedback: %w", err)
		}
	}

	if _, err := h.recorder.Record(ctx, []recommend.RecommendationRecord{event.Record()}); err != nil {
		return fmt.Errorf("record feedback %s: %w", event.EventID, err)
	}
	return nil
}
