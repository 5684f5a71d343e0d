// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/forkcast/internal/config"
	"github.com/tomtom215/forkcast/internal/eventprocessor"
	"github.com/tomtom215/forkcast/internal/logging"
)

// NATSComponents holds the feedback pipeline for lifecycle management:
// the API publishes feedback events to JetStream and the router feeds them
// to the stats aggregator.
type NATSComponents struct {
	server     *eventprocessor.EmbeddedServer
	natsConn   *natsgo.Conn
	publisher  *eventprocessor.Publisher
	router     *eventprocessor.Router
	subscriber *eventprocessor.Subscriber
	handler    *eventprocessor.FeedbackHandler

	mu      sync.Mutex
	running bool
	closed  bool
}

// InitNATS builds the feedback pipeline when NATS and feedback are both
// enabled. It returns nil, nil otherwise.
//
//nolint:gocyclo // Sequential initialization steps
func InitNATS(ctx context.Context, cfg *config.Config, recorder eventprocessor.Recorder) (*NATSComponents, error) {
	if !cfg.NATS.Enabled || !cfg.Feedback.Enabled {
		logging.Info().
			Bool("nats", cfg.NATS.Enabled).
			Bool("feedback", cfg.Feedback.Enabled).
			Msg("Feedback pipeline disabled")
		return nil, nil
	}

	logging.Info().Msg("Initializing feedback pipeline...")
	components := &NATSComponents{}
	fail := func(err error) (*NATSComponents, error) {
		components.close(context.Background())
		return nil, err
	}

	// Step 1: embedded server or external URL
	natsURL := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		serverCfg, err := eventprocessor.ServerConfigFrom(&cfg.NATS)
		if err != nil {
			return nil, err
		}
		server, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, err
		}
		components.server = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	} else {
		logging.Info().Str("url", natsURL).Msg("Using external NATS server")
	}

	// Step 2: connection and stream
	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return fail(fmt.Errorf("connect to NATS: %w", err))
	}
	components.natsConn = nc

	js, err := jetstream.New(nc)
	if err != nil {
		return fail(fmt.Errorf("create JetStream context: %w", err))
	}

	streamCfg := eventprocessor.StreamConfigFrom(&cfg.NATS, &cfg.Feedback)
	streamInitializer, err := eventprocessor.NewStreamInitializer(js, &streamCfg)
	if err != nil {
		return fail(fmt.Errorf("create stream initializer: %w", err))
	}
	stream, err := streamInitializer.EnsureStream(ctx)
	if err != nil {
		return fail(fmt.Errorf("ensure stream exists: %w", err))
	}
	info := stream.CachedInfo()
	logging.Info().
		Str("name", info.Config.Name).
		Strs("subjects", info.Config.Subjects).
		Dur("max_age", info.Config.MaxAge).
		Msg("JetStream stream ready")

	// Step 3: publisher behind a circuit breaker
	publisher, err := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(natsURL), cfg.Feedback.Topic, nil)
	if err != nil {
		return fail(err)
	}
	publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(eventprocessor.DefaultCircuitBreakerConfig("feedback-publisher")))
	components.publisher = publisher

	// Step 4: router with poison queue on the same connection settings
	routerCfg := eventprocessor.RouterConfigFrom(&cfg.NATS, &cfg.Feedback)
	router, err := eventprocessor.NewRouter(&routerCfg, publisher.WatermillPublisher(), nil)
	if err != nil {
		return fail(fmt.Errorf("create router: %w", err))
	}
	components.router = router

	// Step 5: subscriber and handler
	subCfg := eventprocessor.SubscriberConfigFrom(&cfg.NATS)
	subCfg.URL = natsURL
	subCfg.StreamName = streamCfg.Name
	subscriber, err := eventprocessor.NewSubscriber(&subCfg, nil)
	if err != nil {
		return fail(fmt.Errorf("create subscriber: %w", err))
	}
	components.subscriber = subscriber

	components.handler = eventprocessor.NewFeedbackHandler(recorder, cfg.Feedback.ThrottlePerSecond)
	router.AddConsumerHandler("feedback-handler", cfg.Feedback.Topic, subscriber, components.handler.Handle)

	logging.Info().
		Str("topic", cfg.Feedback.Topic).
		Str("poison_topic", eventprocessor.PoisonTopic(cfg.Feedback.Topic)).
		Int("retries", routerCfg.RetryMaxRetries).
		Msg("Feedback pipeline initialized")
	return components, nil
}

// Publisher is the feedback sink for the API.
func (c *NATSComponents) Publisher() *eventprocessor.Publisher {
	if c == nil {
		return nil
	}
	return c.publisher
}

// Start runs the router and returns once it is consuming.
func (c *NATSComponents) Start(ctx context.Context) error {
	if c == nil || c.router == nil {
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("feedback pipeline already shut down")
	}
	c.mu.Unlock()

	running := c.router.RunAsync(ctx)
	select {
	case <-running:
	case <-ctx.Done():
		return fmt.Errorf("context canceled while starting router: %w", ctx.Err())
	}

	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	logging.Info().Msg("Feedback router started")
	return nil
}

// Shutdown stops the pipeline. Order: router, subscriber, publisher,
// connection, embedded server.
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}
	c.close(ctx)
}

// IsRunning reports whether the router is consuming.
func (c *NATSComponents) IsRunning() bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *NATSComponents) close(ctx context.Context) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.running = false
	c.mu.Unlock()

	logging.Info().Msg("Shutting down feedback pipeline...")

	if c.router != nil {
		if err := c.router.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing router")
		}
	}
	if c.subscriber != nil {
		if err := c.subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing subscriber")
		}
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}
	if c.natsConn != nil {
		c.natsConn.Close()
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}

	logging.Info().Msg("Feedback pipeline shut down")
}
