// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
)

// readyTimeout bounds how long NewEmbeddedServer waits for the listener.
const readyTimeout = 30 * time.Second

// EmbeddedServer is an in-process NATS server with JetStream.
//
// It lets a single-node deployment ingest feedback without running a
// broker. The lifecycle is:
//
//  1. NewEmbeddedServer starts the server and blocks until it accepts
//     clients or readyTimeout passes
//  2. Clients connect to ClientURL, which carries the resolved port
//  3. Shutdown stops it, waiting for the stop unless ctx ends first
//
// JetStream state lives in ServerConfig.StoreDir, so streams and durable
// consumers survive a restart when the directory does.
//
// Example usage:
//
//	srv, err := eventprocessor.NewEmbeddedServer(&eventprocessor.ServerConfig{
//	    Host:              "127.0.0.1",
//	    Port:              4222,
//	    StoreDir:          "/data/nats",
//	    JetStreamMaxMem:   64 << 20,
//	    JetStreamMaxStore: 1 << 30,
//	})
//	if err != nil {
//	    return err
//	}
//	defer srv.Shutdown(context.Background())
//	nc, err := nats.Connect(srv.ClientURL())
type EmbeddedServer struct {
	server    *server.Server
	config    ServerConfig
	clientURL string
}

// NewEmbeddedServer starts the server and waits until it accepts clients.
// A Port of -1 picks a free port; ClientURL reports it. OS signal handling
// is left to the process, and payloads are capped at 1MB, far above any
// feedback event.
func NewEmbeddedServer(cfg *ServerConfig) (*EmbeddedServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: server config required", ErrInvalidConfig)
	}

	opts := &server.Options{
		ServerName:         "forkcast",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.JetStreamMaxMem,
		JetStreamMaxStore:  cfg.JetStreamMaxStore,
		NoSigs:             true,
		MaxPayload:         1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", readyTimeout)
	}

	return &EmbeddedServer{
		server:    ns,
		config:    *cfg,
		clientURL: ns.ClientURL(),
	}, nil
}

// ClientURL is the URL clients connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server and waits for it unless ctx ends first.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// IsRunning reports whether the server is accepting clients.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// JetStreamEnabled reports whether JetStream started.
func (s *EmbeddedServer) JetStreamEnabled() bool {
	return s.server.JetStreamEnabled()
}
