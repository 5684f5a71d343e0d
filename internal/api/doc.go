// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

/*
Package api serves the recommendation engine over HTTP with chi.

# Routes

	GET    /api/v1/health
	GET    /metrics
	GET    /api/v1/recommendations/users/{userID}?count=
	GET    /api/v1/recommendations/popular?count=
	GET    /api/v1/similar/{kind}/{entityID}?count=&search_limit=
	GET    /api/v1/models
	POST   /api/v1/models/train[?wait=true]
	GET    /api/v1/models/{version}/evaluation
	POST   /api/v1/feedback
	DELETE /api/v1/entities/{kind}/{entityID}

kind is "user" or "item" ("restaurant" is accepted as an alias). An absent
count uses the configured default (recommend.ranking.default_count); count=0
returns an empty list. Counts are capped at recommend.ranking.max_count.

# Responses

Every body is an envelope:

	{"success": true, "data": {...}, "meta": {"request_id": "...", "timestamp": "..."}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}}

Request parameters are validated with go-playground/validator through the
validation package; failures are 400 VALIDATION_ERROR with field details.

# Middleware

Request IDs and correlation IDs are put into the request context for
logging, CORS uses go-chi/cors, and /api/v1 is rate limited per client IP
with go-chi/httprate. Request metrics are labelled with the chi route
pattern.
*/
package api
