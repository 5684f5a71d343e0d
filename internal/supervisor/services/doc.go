// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

/*
Package services adapts Forkcast components to suture.Service.

Each wrapper turns a component lifecycle (Serve on a bound listener,
Start/Shutdown or a periodic job) into a context-aware Serve that returns
when the context is cancelled, and names itself through fmt.Stringer for
suture's logs.

# Services

	HTTPServerService      recommendation API, graceful drain on shutdown
	NATSComponentsService  feedback stream, publisher and consumer router
	TrainingService        startup and scheduled model retraining
	StatsFlushService      incremental statistics flush, final flush on stop
	EmbeddingGCService     badger value log garbage collection

Periodic services log failures and keep going; only a failing listener or a
failed NATS start returns an error, which makes suture restart the service
with backoff.

# Usage

	tree.AddDataService(services.NewEmbeddingGCService(store, time.Hour, 0.5, logger))
	tree.AddDataService(services.NewStatsFlushService(aggregator, engine, time.Minute, logger))
	tree.AddDataService(services.NewTrainingService(engine, services.TrainingServiceConfig{
	    TrainOnStartup: true,
	    TrainInterval:  24 * time.Hour,
	}, logger))
	tree.AddAPIService(services.NewHTTPServerService(srv, ":8080", 10*time.Second, logger))
*/
package services
