// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package eventprocessor

import "errors"

// ErrNilPublisher is returned when a component needs a publisher and got nil.
var ErrNilPublisher = errors.New("publisher cannot be nil")

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrMalformedEvent marks an event that can never be processed. Handlers
// acknowledge such messages instead of retrying them.
var ErrMalformedEvent = errors.New("malformed feedback event")
