// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package services

import (
	"context"
	"fmt"
	"time"
)

// NATSComponentsRunner is the lifecycle of the feedback pipeline.
//
// The interface keeps this package free of cmd/server imports. Satisfied by
// *NATSComponents from cmd/server/nats_init.go:
//   - Start(ctx context.Context) error: runs the Watermill router
//   - Shutdown(ctx context.Context): closes router, subscriber, publisher,
//     connection and embedded server, in that order
//   - IsRunning() bool: reports whether the router is running
type NATSComponentsRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// NATSComponentsService runs the feedback pipeline as a supervised service.
//
// It adapts the Start/Shutdown lifecycle to suture's Serve:
//  1. Calls Start(ctx) to run the router and its feedback handler
//  2. Waits for context cancellation
//  3. Calls Shutdown with its own deadline for a graceful drain
//
// A failed Start is returned so suture restarts the service with backoff.
// The components it manages:
//   - Embedded NATS server (when nats.embedded_server is set)
//   - JetStream connection, stream and feedback publisher
//   - Durable feedback subscriber
//   - Watermill router with retry and the poison topic
//
// Example usage:
//
//	components, err := InitNATS(ctx, cfg, aggregator)
//	if err != nil {
//	    return err
//	}
//	tree.AddMessagingService(services.NewNATSComponentsService(components))
type NATSComponentsService struct {
	components      NATSComponentsRunner
	shutdownTimeout time.Duration
	name            string
}

// NewNATSComponentsService wraps components with a 10s shutdown timeout,
// long enough for the router to finish handlers already in flight.
func NewNATSComponentsService(components NATSComponentsRunner) *NATSComponentsService {
	return NewNATSComponentsServiceWithTimeout(components, 10*time.Second)
}

// NewNATSComponentsServiceWithTimeout wraps components with a custom
// shutdown timeout. A non-positive timeout becomes 10s.
func NewNATSComponentsServiceWithTimeout(components NATSComponentsRunner, shutdownTimeout time.Duration) *NATSComponentsService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &NATSComponentsService{
		components:      components,
		shutdownTimeout: shutdownTimeout,
		name:            "nats-components",
	}
}

// Serve implements suture.Service.
func (s *NATSComponentsService) Serve(ctx context.Context) error {
	if err := s.components.Start(ctx); err != nil {
		return fmt.Errorf("NATS components start failed: %w", err)
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	s.components.Shutdown(shutdownCtx)

	return ctx.Err()
}

// String implements fmt.Stringer for suture's logs.
func (s *NATSComponentsService) String() string {
	return s.name
}
