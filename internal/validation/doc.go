// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

// Package validation wraps a shared go-playground/validator instance for API
// requests and feedback events.
//
// Two custom tags are registered:
//
//	entityid    non-empty printable ID, no '/', no surrounding spaces, <= 128 bytes
//	entitykind  user, users, item, items, restaurant or restaurants
//
// Failures are reported with json field names and convert to the API's
// VALIDATION_ERROR body through ToAPIError.
package validation
