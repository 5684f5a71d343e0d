// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

/*
Package supervisor runs Forkcast's long-lived services under suture v4.

Services are grouped so a failure in one layer restarts only that layer:

	forkcast
	├── data-layer
	│   ├── training-service
	│   ├── stats-flush-service
	│   └── embedding-gc-service
	├── messaging-layer
	│   └── nats-components (when NATS is enabled)
	└── api-layer
	    └── http-server

A crashing feedback consumer restarts with backoff while the API keeps
serving the last published model. Supervisor events are logged through
sutureslog.

The DuckDB connection and the badger embedding store are not services:
they are opened before the tree starts and closed after it stops.

Restart behavior follows TreeConfig:

	FailureThreshold  failures before backoff (default 5)
	FailureDecay      seconds for the failure count to decay (default 30)
	FailureBackoff    pause once the threshold is hit (default 15s)
	ShutdownTimeout   per-service stop budget (default 10s)

UnstoppedServiceReport lists services that ignored cancellation.
*/
package supervisor
