// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*HTTPServerService)(nil)
	_ suture.Service = (*NATSComponentsService)(nil)
	_ suture.Service = (*TrainingService)(nil)
	_ suture.Service = (*StatsFlushService)(nil)
	_ suture.Service = (*EmbeddingGCService)(nil)
)

// fakeHTTPServer blocks in Serve until Shutdown unless serveErr is set.
type fakeHTTPServer struct {
	serveErr    error
	shutdownErr error

	serves    atomic.Int32
	shutdowns atomic.Int32
	started   chan struct{}
	stop      chan struct{}
	stopOnce  sync.Once
}

func newFakeHTTPServer() *fakeHTTPServer {
	return &fakeHTTPServer{started: make(chan struct{}, 4), stop: make(chan struct{})}
}

func (f *fakeHTTPServer) Serve(l net.Listener) error {
	defer l.Close()
	f.serves.Add(1)
	select {
	case f.started <- struct{}{}:
	default:
	}
	if f.serveErr != nil {
		return f.serveErr
	}
	<-f.stop
	return http.ErrServerClosed
}

func (f *fakeHTTPServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	f.stopOnce.Do(func() { close(f.stop) })
	return f.shutdownErr
}

func newTestHTTPService(srv HTTPServer) *HTTPServerService {
	return NewHTTPServerService(srv, "127.0.0.1:0", time.Second, zerolog.Nop())
}

func serveUntilStarted(t *testing.T, svc *HTTPServerService, srv *fakeHTTPServer) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	select {
	case <-srv.started:
	case <-time.After(time.Second):
		cancel()
		t.Fatal("server did not start")
	}
	return cancel, errCh
}

func TestNewHTTPServerServiceDefaults(t *testing.T) {
	t.Parallel()

	for _, timeout := range []time.Duration{0, -time.Second} {
		svc := NewHTTPServerService(newFakeHTTPServer(), ":0", timeout, zerolog.Nop())
		if svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout %v became %v, want 10s", timeout, svc.shutdownTimeout)
		}
	}
	if got := newTestHTTPService(newFakeHTTPServer()).String(); got != "http-server" {
		t.Errorf("String() = %q", got)
	}
}

func TestHTTPServerServiceGracefulShutdown(t *testing.T) {
	t.Parallel()

	srv := newFakeHTTPServer()
	svc := newTestHTTPService(srv)
	cancel, errCh := serveUntilStarted(t, svc, srv)

	addr := svc.Addr()
	if _, port, err := net.SplitHostPort(addr); err != nil || port == "0" {
		t.Errorf("Addr() = %q, want a resolved port", addr)
	}
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
	if srv.serves.Load() != 1 || srv.shutdowns.Load() != 1 {
		t.Errorf("serves=%d shutdowns=%d, want 1/1", srv.serves.Load(), srv.shutdowns.Load())
	}
	if got := svc.Addr(); got != "" {
		t.Errorf("Addr() after stop = %q, want empty", got)
	}
}

func TestHTTPServerServiceBindFailure(t *testing.T) {
	t.Parallel()

	taken, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer taken.Close()

	srv := newFakeHTTPServer()
	svc := NewHTTPServerService(srv, taken.Addr().String(), time.Second, zerolog.Nop())
	if err := svc.Serve(context.Background()); err == nil {
		t.Fatal("Serve() on a taken port succeeded")
	}
	if srv.serves.Load() != 0 {
		t.Error("server started without a listener")
	}
}

func TestHTTPServerServiceServeFailure(t *testing.T) {
	t.Parallel()

	acceptErr := errors.New("accept: too many open files")
	srv := newFakeHTTPServer()
	srv.serveErr = acceptErr

	err := newTestHTTPService(srv).Serve(context.Background())
	if !errors.Is(err, acceptErr) {
		t.Errorf("Serve() = %v, want %v", err, acceptErr)
	}
}

func TestHTTPServerServiceShutdownFailure(t *testing.T) {
	t.Parallel()

	shutdownErr := errors.New("shutdown timeout")
	srv := newFakeHTTPServer()
	srv.shutdownErr = shutdownErr

	cancel, errCh := serveUntilStarted(t, newTestHTTPService(srv), srv)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, shutdownErr) {
			t.Errorf("Serve() = %v, want %v", err, shutdownErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestHTTPServerServiceUnderSupervisor(t *testing.T) {
	t.Parallel()

	srv := newFakeHTTPServer()
	sup := suture.New("test", suture.Spec{
		FailureThreshold: 3,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(newTestHTTPService(srv))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	select {
	case <-srv.started:
	case <-time.After(time.Second):
		cancel()
		t.Fatal("server did not start")
	}
	cancel()
	<-errCh

	if srv.shutdowns.Load() < 1 {
		t.Error("Shutdown was not called")
	}
}

func TestHTTPServerServiceRestartsWithFreshListener(t *testing.T) {
	t.Parallel()

	srv := newFakeHTTPServer()
	srv.serveErr = errors.New("listener closed unexpectedly")
	sup := suture.New("test", suture.Spec{
		FailureThreshold: 5,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          2 * time.Second,
	})
	sup.Add(newTestHTTPService(srv))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for srv.serves.Load() < 2 {
		if time.Now().After(deadline) {
			cancel()
			t.Fatalf("serves = %d, want a restart", srv.serves.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-errCh
}
