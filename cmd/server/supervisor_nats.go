// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package main

import (
	"github.com/tomtom215/forkcast/internal/config"
	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/supervisor"
	"github.com/tomtom215/forkcast/internal/supervisor/services"
)

// AddNATSToSupervisor adds the feedback pipeline to the messaging layer.
// The supervisor calls Start when it begins serving and Shutdown when it
// stops, and restarts the pipeline if the router fails.
//
// This is a no-op if natsComponents is nil.
func AddNATSToSupervisor(tree *supervisor.SupervisorTree, natsComponents *NATSComponents, cfg *config.NATSConfig) {
	if natsComponents == nil {
		return
	}
	tree.AddMessagingService(services.NewNATSComponentsServiceWithTimeout(natsComponents, cfg.CloseTimeout))
	logging.Info().Msg("Feedback pipeline added to supervisor tree (messaging layer)")
}
