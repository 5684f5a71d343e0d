// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package eventprocessor

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/forkcast/internal/recommend"
)

// SchemaVersion is the current feedback event schema version.
const SchemaVersion = 1

// FeedbackEvent reports what a user did with one served recommendation.
// It is the payload of the feedback topic and of POST /api/v1/feedback.
type FeedbackEvent struct {
	SchemaVersion int `json:"schema_version,omitempty"`

	EventID          string    `json:"event_id" validate:"required,max=64"`
	RecommendationID string    `json:"recommendation_id,omitempty" validate:"max=64"`
	Timestamp        time.Time `json:"timestamp"`

	UserID       string `json:"user_id" validate:"required,entityid"`
	RestaurantID string `json:"restaurant_id" validate:"required,entityid"`

	// Where the restaurant appeared in the served list.
	Algorithm string  `json:"algorithm,omitempty" validate:"max=64"`
	Rank      int     `json:"rank" validate:"gte=0"`
	Score     float64 `json:"score"`

	Feedback recommend.Feedback `json:"feedback"`

	// Context carries request features recorded at serve time.
	Context map[string]string `json:"context,omitempty" validate:"max=32"`
}

// NewFeedbackEvent creates an event with a fresh ID and timestamp.
func NewFeedbackEvent(userID, restaurantID string, fb recommend.Feedback) *FeedbackEvent {
	return &FeedbackEvent{
		SchemaVersion: SchemaVersion,
		EventID:       uuid.NewString(),
		Timestamp:     time.Now().UTC(),
		UserID:        userID,
		RestaurantID:  restaurantID,
		Feedback:      fb,
	}
}

// GetSchemaVersion returns the schema version, treating 0 as 1.
func (e *FeedbackEvent) GetSchemaVersion() int {
	if e.SchemaVersion == 0 {
		return 1
	}
	return e.SchemaVersion
}

// EnsureDefaults fills the ID, timestamp and schema version when absent.
func (e *FeedbackEvent) EnsureDefaults(now time.Time) {
	if e.SchemaVersion == 0 {
		e.SchemaVersion = SchemaVersion
	}
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now.UTC()
	}
}

// Kind names the strongest signal in the event, for logs.
func (e *FeedbackEvent) Kind() string {
	switch fb := e.Feedback; {
	case fb.Ordered:
		return "ordered"
	case fb.Rating > 0:
		return "rated"
	case fb.Clicked:
		return "clicked"
	case fb.Dismissed:
		return "dismissed"
	default:
		return "impression"
	}
}

// Record converts the event to the record the feedback aggregator consumes.
func (e *FeedbackEvent) Record() recommend.RecommendationRecord {
	id := e.RecommendationID
	if id == "" {
		id = e.EventID
	}
	return recommend.RecommendationRecord{
		ID:        id,
		UserID:    e.UserID,
		ItemID:    e.RestaurantID,
		Algorithm: e.Algorithm,
		Score:     e.Score,
		Rank:      e.Rank,
		Context:   e.Context,
		Feedback:  e.Feedback,
		CreatedAt: e.Timestamp,
	}
}
