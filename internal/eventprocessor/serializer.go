// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/forkcast/internal/validation"
)

// Serializer encodes and decodes feedback events for NATS messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal validates the event and converts it to JSON.
func (s *Serializer) Marshal(event *FeedbackEvent) ([]byte, error) {
	if verr := validation.ValidateStruct(event); verr != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, verr)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal decodes JSON into an event. It does not validate.
func (s *Serializer) Unmarshal(data []byte) (*FeedbackEvent, error) {
	var event FeedbackEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return &event, nil
}

// SerializeEvent marshals an event with a default Serializer.
func SerializeEvent(event *FeedbackEvent) ([]byte, error) {
	return NewSerializer().Marshal(event)
}

// DeserializeEvent unmarshals an event with a default Serializer.
func DeserializeEvent(data []byte) (*FeedbackEvent, error) {
	return NewSerializer().Unmarshal(data)
}
