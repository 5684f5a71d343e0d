// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package eventprocessor

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/forkcast/internal/config"
)

// ServerConfig holds embedded NATS server settings.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns local single-node defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20,
		JetStreamMaxStore: 1 << 30,
	}
}

// ServerConfigFrom derives the embedded server settings. The listen address
// comes from the client URL so publisher and subscriber reach the server.
func ServerConfigFrom(cfg *config.NATSConfig) (ServerConfig, error) {
	out := DefaultServerConfig()
	out.StoreDir = cfg.StoreDir
	out.JetStreamMaxMem = cfg.MaxMemory
	out.JetStreamMaxStore = cfg.MaxStore

	u, err := url.Parse(cfg.URL)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("%w: nats url: %w", ErrInvalidConfig, err)
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("%w: nats url %q needs host:port: %w", ErrInvalidConfig, cfg.URL, err)
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return ServerConfig{}, fmt.Errorf("%w: nats port %q: %w", ErrInvalidConfig, port, err)
	}
	out.Host, out.Port = host, p
	return out, nil
}

// PublisherConfig holds publisher connection settings.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool //nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for url.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds durable consumer settings.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration

	// StreamName binds the consumer to an existing stream.
	StreamName string
}

// DefaultSubscriberConfig returns production defaults for url.
func DefaultSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		DurableName:      "forkcast-feedback",
		QueueGroup:       "feedback",
		SubscribersCount: 2,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    1000,
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// SubscriberConfigFrom derives the feedback consumer settings.
func SubscriberConfigFrom(cfg *config.NATSConfig) SubscriberConfig {
	out := DefaultSubscriberConfig(cfg.URL)
	out.DurableName = cfg.DurableName
	out.QueueGroup = cfg.QueueGroup
	if cfg.SubscribersCount > 0 {
		out.SubscribersCount = cfg.SubscribersCount
	}
	if cfg.CloseTimeout > 0 {
		out.CloseTimeout = cfg.CloseTimeout
	}
	out.StreamName = cfg.StreamName
	return out
}

// StreamConfig holds JetStream stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns a stream for the default feedback topic.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "FORKCAST",
		Subjects:        []string{"forkcast.>"},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        1 << 30,
		MaxMsgs:         -1, // Unlimited
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// StreamConfigFrom derives the stream settings. The stream captures the
// feedback topic and its poison queue.
func StreamConfigFrom(nats *config.NATSConfig, fb *config.FeedbackConfig) StreamConfig {
	out := DefaultStreamConfig()
	out.Name = nats.StreamName
	out.Subjects = []string{fb.Topic, PoisonTopic(fb.Topic)}
	if nats.StreamRetentionDays > 0 {
		out.MaxAge = time.Duration(nats.StreamRetentionDays) * 24 * time.Hour
	}
	if nats.MaxStore > 0 {
		out.MaxBytes = nats.MaxStore
	}
	return out
}

// PoisonTopic is where messages go after exhausting their retries.
func PoisonTopic(topic string) string {
	return topic + ".poison"
}

// CircuitBreakerConfig configures the publisher circuit breaker.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns publisher breaker defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
