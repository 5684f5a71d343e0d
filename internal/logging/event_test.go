// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package logging

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEventLogger(t *testing.T) {
	prevLevel := GetLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	var buf bytes.Buffer
	el := NewEventLoggerWithLogger(zerolog.New(&buf))
	ctx := ContextWithCorrelationID(context.Background(), "batch001")

	tests := []struct {
		name string
		emit func()
		want []string
	}{
		{
			name: "received",
			emit: func() { el.LogEventReceived(ctx, "e1", "u1", "r1", "clicked") },
			want: []string{`"event_id":"e1"`, `"user_id":"u1"`, `"restaurant_id":"r1"`, `"kind":"clicked"`, `"correlation_id":"batch001"`},
		},
		{
			name: "rejected",
			emit: func() { el.LogEventRejected(ctx, "e2", errors.New("unknown kind")) },
			want: []string{`"level":"warn"`, "unknown kind"},
		},
		{
			name: "failed",
			emit: func() { el.LogEventFailed(ctx, "e3", errors.New("db locked")) },
			want: []string{`"level":"error"`, "db locked"},
		},
		{
			name: "flush",
			emit: func() { el.LogBatchFlush(ctx, 12, time.Second) },
			want: []string{`"event_count":12`, "feedback batch flushed"},
		},
		{
			name: "subscription",
			emit: func() { el.LogSubscriptionStarted("forkcast.feedback", "feedback") },
			want: []string{`"topic":"forkcast.feedback"`, `"queue":"feedback"`},
		},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.emit()
		out := buf.String()
		if !strings.Contains(out, `"component":"feedback"`) {
			t.Errorf("%s: missing component in %s", tt.name, out)
		}
		for _, want := range tt.want {
			if !strings.Contains(out, want) {
				t.Errorf("%s: missing %s in %s", tt.name, want, out)
			}
		}
	}
}
