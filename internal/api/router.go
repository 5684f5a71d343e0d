// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires the handler into a chi router.
//
// Health and metrics sit outside the rate limiter so probes and scrapers
// are never throttled.
func NewRouter(h *Handler, cfg MiddlewareConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(CORS(cfg))
	r.Use(PrometheusMetrics())
	r.Use(AccessLog())

	r.Get("/api/v1/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(RateLimit(cfg))
		r.Use(SecurityHeaders())

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/popular", h.Popular)
			r.Get("/users/{userID}", h.Recommendations)
		})
		r.Get("/similar/{kind}/{entityID}", h.Similar)

		r.Route("/models", func(r chi.Router) {
			r.Get("/", h.Models)
			r.Post("/train", h.Train)
			r.Get("/{version}/evaluation", h.Evaluation)
		})

		r.Post("/feedback", h.Feedback)
		r.Delete("/entities/{kind}/{entityID}", h.DeleteEntity)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}
