// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/forkcast/internal/database"
	"github.com/tomtom215/forkcast/internal/eventprocessor"
	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/recommend"
	"github.com/tomtom215/forkcast/internal/validation"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
	Meta    *Meta     `json:"meta,omitempty"`
}

// APIError is the error body of a failed request.
type APIError struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// Meta carries request tracing data.
type Meta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Error codes
const (
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeInvalidJSON        = "INVALID_JSON"
	ErrCodeValidationFailed   = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeInsufficientData   = "INSUFFICIENT_DATA"
	ErrCodeTooManyRequests    = "TOO_MANY_REQUESTS"
	ErrCodeTimeout            = "TIMEOUT"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data any) {
	writeJSON(w, status, Response{
		Success: true,
		Data:    data,
		Meta: &Meta{
			RequestID: logging.RequestIDFromContext(r.Context()),
			Timestamp: time.Now().UTC(),
		},
	})
}

// respondError writes an error envelope. err is logged, never returned to
// the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error) {
	requestID := logging.RequestIDFromContext(r.Context())
	if err != nil {
		event := logging.CtxWarn(r.Context())
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Err(err).
			Str("code", code).
			Int("status", status).
			Str("path", r.URL.Path).
			Msg("api error")
	}

	writeJSON(w, status, Response{
		Success: false,
		Error: &APIError{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
		Meta: &Meta{RequestID: requestID, Timestamp: time.Now().UTC()},
	})
}

func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	body := verr.ToAPIError()
	requestID := logging.RequestIDFromContext(r.Context())
	writeJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Error: &APIError{
			Code:      ErrCodeValidationFailed,
			Message:   body.Message,
			Details:   body.Details,
			RequestID: requestID,
		},
		Meta: &Meta{RequestID: requestID, Timestamp: time.Now().UTC()},
	})
}

// errorStatus maps domain errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, recommend.ErrVersionNotFound),
		errors.Is(err, recommend.ErrEntityNotFound):
		return http.StatusNotFound, ErrCodeNotFound
	case errors.Is(err, recommend.ErrTrainingInProgress):
		return http.StatusConflict, ErrCodeConflict
	case errors.Is(err, recommend.ErrInsufficientData):
		return http.StatusUnprocessableEntity, ErrCodeInsufficientData
	case errors.Is(err, recommend.ErrInvalidConfiguration),
		errors.Is(err, eventprocessor.ErrMalformedEvent):
		return http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, database.ErrStoreUnavailable),
		errors.Is(err, eventprocessor.ErrPublisherClosed):
		return http.StatusServiceUnavailable, ErrCodeServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, ErrCodeTimeout
	default:
		return http.StatusInternalServerError, ErrCodeInternalError
	}
}

// respondDomainError writes err with the status errorStatus picks.
func respondDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status, code := errorStatus(err)
	if status < http.StatusInternalServerError {
		message = err.Error()
	}
	respondError(w, r, status, code, message, err)
}
