// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/forkcast/internal/eventprocessor"
	"github.com/tomtom215/forkcast/internal/logging"
	"github.com/tomtom215/forkcast/internal/recommend"
	"github.com/tomtom215/forkcast/internal/validation"
)

// maxFeedbackBody bounds POST /feedback bodies.
const maxFeedbackBody = 64 << 10

// Recommender is the engine surface the API serves. *recommend.Engine
// implements it.
type Recommender interface {
	Recommend(ctx context.Context, userID string, n int) (*recommend.Result, error)
	Popular(ctx context.Context, n int) (*recommend.Result, error)
	FindSimilarWithLimit(ctx context.Context, kind recommend.EntityKind, id string, n, searchLimit int) (*recommend.Result, error)
	Models() []recommend.ModelInfo
	Status() recommend.TrainingStatus
	CurrentVersion() string
	Train(ctx context.Context) error
	Evaluate(ctx context.Context, version string) (*recommend.EvaluationReport, error)
	HandleEntityDeleted(ctx context.Context, kind recommend.EntityKind, id string) error
}

// EntityStore marks catalog entities deleted. *database.DB implements it.
type EntityStore interface {
	MarkDeleted(ctx context.Context, kind recommend.EntityKind, id string) error
}

// Pinger reports store health. *database.DB implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FeedbackSink accepts feedback events. *eventprocessor.Publisher queues
// them on NATS; *eventprocessor.FeedbackHandler records them directly.
type FeedbackSink interface {
	Submit(ctx context.Context, event *eventprocessor.FeedbackEvent) error
}

// Dependencies are the collaborators of Handler. Only Engine is required.
type Dependencies struct {
	Engine   Recommender
	Entities EntityStore
	Health   Pinger
	Feedback FeedbackSink

	// RequestTimeout bounds ranking and store calls. Default 10s.
	RequestTimeout time.Duration

	// TrainTimeout bounds a training run started over HTTP. Default 30m.
	TrainTimeout time.Duration

	// DefaultCount is the result count when a request has no count
	// parameter. An explicit count=0 is passed through. Default 10.
	DefaultCount int
}

// Handler serves the recommendation API.
type Handler struct {
	engine   Recommender
	entities EntityStore
	health   Pinger
	feedback FeedbackSink

	requestTimeout time.Duration
	trainTimeout   time.Duration
	defaultCount   int
	startedAt      time.Time
	logger         zerolog.Logger
}

// NewHandler creates the handler.
func NewHandler(deps Dependencies) (*Handler, error) {
	if deps.Engine == nil {
		return nil, errors.New("api: engine is required")
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 10 * time.Second
	}
	if deps.TrainTimeout <= 0 {
		deps.TrainTimeout = 30 * time.Minute
	}
	if deps.DefaultCount <= 0 {
		deps.DefaultCount = 10
	}
	return &Handler{
		engine:         deps.Engine,
		entities:       deps.Entities,
		health:         deps.Health,
		feedback:       deps.Feedback,
		requestTimeout: deps.RequestTimeout,
		trainTimeout:   deps.TrainTimeout,
		defaultCount:   deps.DefaultCount,
		startedAt:      time.Now(),
		logger:         logging.WithComponent("api"),
	}, nil
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status        string                   `json:"status"`
	Database      string                   `json:"database"`
	FeedbackSink  bool                     `json:"feedback_enabled"`
	ModelVersion  string                   `json:"model_version,omitempty"`
	Training      recommend.TrainingStatus `json:"training"`
	UptimeSeconds int64                    `json:"uptime_seconds"`
}

// Health handles GET /api/v1/health. It answers 503 when the interaction
// store is unreachable; ranking still works from the published model.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:        "healthy",
		Database:      "not configured",
		FeedbackSink:  h.feedback != nil,
		ModelVersion:  h.engine.CurrentVersion(),
		Training:      h.engine.Status(),
		UptimeSeconds: int64(time.Since(h.startedAt).Seconds()),
	}

	status := http.StatusOK
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Ping(ctx); err != nil {
			logging.CtxWarn(r.Context()).Err(err).Msg("health check: database ping failed")
			resp.Status = "degraded"
			resp.Database = "unavailable"
			status = http.StatusServiceUnavailable
		} else {
			resp.Database = "ok"
		}
	}
	respondSuccess(w, r, status, resp)
}

type recommendationsRequest struct {
	UserID string `json:"user_id" validate:"required,entityid"`
	Count  int    `json:"count" validate:"gte=0,lte=1000"`
}

// Recommendations handles GET /api/v1/recommendations/users/{userID}.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	count, ok := h.queryCount(w, r)
	if !ok {
		return
	}
	req := recommendationsRequest{UserID: chi.URLParam(r, "userID"), Count: count}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	res, err := h.engine.Recommend(ctx, req.UserID, req.Count)
	if err != nil {
		respondDomainError(w, r, "failed to generate recommendations", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, res)
}

type popularRequest struct {
	Count int `json:"count" validate:"gte=0,lte=1000"`
}

// Popular handles GET /api/v1/recommendations/popular.
func (h *Handler) Popular(w http.ResponseWriter, r *http.Request) {
	count, ok := h.queryCount(w, r)
	if !ok {
		return
	}
	req := popularRequest{Count: count}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	res, err := h.engine.Popular(ctx, req.Count)
	if err != nil {
		respondDomainError(w, r, "failed to rank popular restaurants", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, res)
}

type similarRequest struct {
	Kind        string `json:"kind" validate:"required,entitykind"`
	EntityID    string `json:"entity_id" validate:"required,entityid"`
	Count       int    `json:"count" validate:"gte=0,lte=1000"`
	SearchLimit int    `json:"search_limit" validate:"gte=0,lte=100000"`
}

// Similar handles GET /api/v1/similar/{kind}/{entityID}.
func (h *Handler) Similar(w http.ResponseWriter, r *http.Request) {
	count, ok := h.queryCount(w, r)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "search_limit")
	if !ok {
		return
	}
	req := similarRequest{
		Kind:        chi.URLParam(r, "kind"),
		EntityID:    chi.URLParam(r, "entityID"),
		Count:       count,
		SearchLimit: limit,
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	kind, _ := recommend.ParseEntityKind(req.Kind)

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	res, err := h.engine.FindSimilarWithLimit(ctx, kind, req.EntityID, req.Count, req.SearchLimit)
	if err != nil {
		respondDomainError(w, r, "failed to find similar entities", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, res)
}

// ModelsResponse is the body of GET /api/v1/models.
type ModelsResponse struct {
	CurrentVersion string                   `json:"current_version,omitempty"`
	Status         recommend.TrainingStatus `json:"status"`
	Models         []recommend.ModelInfo    `json:"models"`
}

// Models handles GET /api/v1/models.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, ModelsResponse{
		CurrentVersion: h.engine.CurrentVersion(),
		Status:         h.engine.Status(),
		Models:         h.engine.Models(),
	})
}

// Train handles POST /api/v1/models/train. By default the run starts in the
// background and the response is 202; with ?wait=true it answers after the
// run with the new training status.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	if h.engine.Status().IsTraining {
		respondError(w, r, http.StatusConflict, ErrCodeConflict, recommend.ErrTrainingInProgress.Error(), nil)
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))
	if wait {
		ctx, cancel := context.WithTimeout(r.Context(), h.trainTimeout)
		defer cancel()
		if err := h.engine.Train(ctx); err != nil {
			respondDomainError(w, r, "training failed", err)
			return
		}
		respondSuccess(w, r, http.StatusOK, h.engine.Status())
		return
	}

	// The run outlives the request.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.trainTimeout)
	go func() {
		defer cancel()
		if err := h.engine.Train(ctx); err != nil {
			logging.CtxWarn(ctx).Err(err).Msg("training started over HTTP failed")
		}
	}()

	respondSuccess(w, r, http.StatusAccepted, map[string]any{
		"accepted":        true,
		"current_version": h.engine.CurrentVersion(),
	})
}

// Evaluation handles GET /api/v1/models/{version}/evaluation. The version
// "current" selects the serving model.
func (h *Handler) Evaluation(w http.ResponseWriter, r *http.Request) {
	version := chi.URLParam(r, "version")
	if version == "current" {
		version = ""
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	report, err := h.engine.Evaluate(ctx, version)
	if err != nil {
		respondDomainError(w, r, "evaluation failed", err)
		return
	}
	respondSuccess(w, r, http.StatusOK, report)
}

// Feedback handles POST /api/v1/feedback. The body is a FeedbackEvent;
// event_id and timestamp are filled in when absent.
func (h *Handler) Feedback(w http.ResponseWriter, r *http.Request) {
	if h.feedback == nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "feedback ingestion is disabled", nil)
		return
	}

	var event eventprocessor.FeedbackEvent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxFeedbackBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&event); err != nil {
		respondError(w, r, http.StatusBadRequest, ErrCodeInvalidJSON, "request body is not a valid feedback event", err)
		return
	}

	event.EnsureDefaults(time.Now())
	if verr := validation.ValidateStruct(&event); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if err := h.feedback.Submit(ctx, &event); err != nil {
		respondDomainError(w, r, "failed to accept feedback", err)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, map[string]any{
		"event_id": event.EventID,
		"kind":     event.Kind(),
	})
}

type deleteEntityRequest struct {
	Kind     string `json:"kind" validate:"required,entitykind"`
	EntityID string `json:"entity_id" validate:"required,entityid"`
}

// DeleteEntity handles DELETE /api/v1/entities/{kind}/{entityID}. The
// catalog row is marked deleted so the next training run skips it, and the
// engine stops ranking it immediately.
func (h *Handler) DeleteEntity(w http.ResponseWriter, r *http.Request) {
	req := deleteEntityRequest{Kind: chi.URLParam(r, "kind"), EntityID: chi.URLParam(r, "entityID")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}
	kind, _ := recommend.ParseEntityKind(req.Kind)

	ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
	defer cancel()

	if h.entities != nil {
		if err := h.entities.MarkDeleted(ctx, kind, req.EntityID); err != nil {
			respondDomainError(w, r, "failed to delete entity", err)
			return
		}
	}
	if err := h.engine.HandleEntityDeleted(ctx, kind, req.EntityID); err != nil {
		respondDomainError(w, r, "failed to delete entity", err)
		return
	}

	h.logger.Info().
		Str("kind", string(kind)).
		Str("entity_id", req.EntityID).
		Str("request_id", logging.RequestIDFromContext(r.Context())).
		Msg("entity deleted")

	respondSuccess(w, r, http.StatusOK, map[string]any{
		"kind":      kind,
		"entity_id": req.EntityID,
		"deleted":   true,
	})
}

// queryInt parses an optional non-negative integer query parameter. An
// absent parameter is 0, which the engine replaces with its default.
// queryCount reads the count parameter, falling back to the default only
// when the parameter is absent or empty.
func (h *Handler) queryCount(w http.ResponseWriter, r *http.Request) (int, bool) {
	if r.URL.Query().Get("count") == "" {
		return h.defaultCount, true
	}
	return queryInt(w, r, "count")
}

func queryInt(w http.ResponseWriter, r *http.Request, key string) (int, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, key+" must be a non-negative integer", nil)
		return 0, false
	}
	return n, true
}
