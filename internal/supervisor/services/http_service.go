// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HTTPServer is the part of *http.Server the service drives.
//
// The service binds the listener itself and hands it to Serve, so it knows
// the address actually bound. Satisfied by *http.Server:
//   - Serve(l net.Listener) error
//   - Shutdown(ctx context.Context) error
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// HTTPServerService runs the recommendation API as a supervised service.
//
// It translates between the blocking http.Server lifecycle and suture's
// context-aware Serve:
//
//  1. Binds the configured address, so a port conflict fails Serve at once
//     and a ":0" address resolves to a real port (see Addr)
//  2. Serves on that listener in a goroutine
//  3. Waits for context cancellation or a server error
//  4. On cancellation, calls Shutdown with the configured timeout
//
// A server error is returned so suture restarts the service with backoff.
// Every restart binds a fresh listener and is logged with its attempt number.
//
// Example usage:
//
//	srv := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}
//	svc := services.NewHTTPServerService(srv, ":8080", 10*time.Second, logging.WithComponent("http"))
//	tree.AddAPIService(svc)
type HTTPServerService struct {
	server          HTTPServer
	addr            string
	shutdownTimeout time.Duration
	name            string
	logger          zerolog.Logger

	starts atomic.Int32

	mu    sync.RWMutex
	bound string
}

// NewHTTPServerService creates the service for server listening on addr.
//
// shutdownTimeout is how long in-flight requests get to finish once the
// tree stops; a non-positive value becomes 10s.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHTTPServerService(server HTTPServer, addr string, shutdownTimeout time.Duration, logger zerolog.Logger) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		addr:            addr,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
		logger:          logger,
	}
}

// Addr returns the address currently bound, or "" when not listening.
func (h *HTTPServerService) Addr() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.bound
}

func (h *HTTPServerService) setBound(addr string) {
	h.mu.Lock()
	h.bound = addr
	h.mu.Unlock()
}

// Serve implements suture.Service.
//
// It returns ctx.Err() after a graceful shutdown and a wrapped error when
// binding, serving or shutting down fails. http.ErrServerClosed is expected
// on shutdown and is not an error.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	l, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("http server listen on %s: %w", h.addr, err)
	}
	bound := l.Addr().String()
	h.setBound(bound)
	defer h.setBound("")

	attempt := h.starts.Add(1)
	event := h.logger.Info()
	if attempt > 1 {
		event = h.logger.Warn()
	}
	event.Str("addr", bound).Int32("attempt", attempt).Msg("HTTP server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server on %s failed: %w", bound, err)
		}
		return nil

	case <-ctx.Done():
		h.logger.Info().Str("addr", bound).Dur("timeout", h.shutdownTimeout).Msg("HTTP server draining")

		// ctx is already canceled; the drain gets its own deadline.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}

		<-errCh
		h.logger.Info().Str("addr", bound).Msg("HTTP server stopped")
		return ctx.Err()
	}
}

// String implements fmt.Stringer for suture's logs.
func (h *HTTPServerService) String() string {
	return h.name
}
