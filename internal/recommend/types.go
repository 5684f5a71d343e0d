// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package recommend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/forkcast/internal/recommend/factor"
)

// EntityKind distinguishes user embeddings from item (restaurant) embeddings.
type EntityKind string

const (
	// KindUser identifies a platform user.
	KindUser EntityKind = "user"

	// KindItem identifies a restaurant.
	KindItem EntityKind = "item"
)

// Valid reports whether k is a known kind.
func (k EntityKind) Valid() bool {
	return k == KindUser || k == KindItem
}

// ParseEntityKind accepts the singular, plural and "restaurant" spellings.
func ParseEntityKind(s string) (EntityKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user", "users":
		return KindUser, nil
	case "item", "items", "restaurant", "restaurants":
		return KindItem, nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", s)
	}
}

// Interaction is a single observed (user, item, signal) event.
// Explicit ratings lie in [0, 5]; implicit strengths lie in [0, 1].
// Interactions are immutable once recorded.
type Interaction struct {
	UserID    string    `json:"user_id"`
	ItemID    string    `json:"item_id"`
	Rating    float64   `json:"rating"`
	Implicit  bool      `json:"implicit"`
	Timestamp time.Time `json:"timestamp"`
}

// IsPositive reports whether the interaction counts as relevant for evaluation.
// Implicit signals are positive at strength 0.5 or above.
func (i Interaction) IsPositive(threshold float64) bool {
	if i.Implicit {
		return i.Rating >= 0.5
	}
	return i.Rating >= threshold
}

// OrderRecord is one historical order joined with the restaurant attributes
// the aggregator summarizes.
type OrderRecord struct {
	OrderID      string    `json:"order_id"`
	UserID       string    `json:"user_id"`
	RestaurantID string    `json:"restaurant_id"`
	Rating       float64   `json:"rating"` // 0 means unrated
	Cuisine      string    `json:"cuisine"`
	PriceRange   string    `json:"price_range"`
	Total        float64   `json:"total"`
	CreatedAt    time.Time `json:"created_at"`
}

// Rated reports whether the customer left a rating on the order.
func (o OrderRecord) Rated() bool {
	return o.Rating > 0
}

// Feedback is what the user did with a served recommendation.
type Feedback struct {
	Clicked   bool    `json:"clicked"`
	Ordered   bool    `json:"ordered"`
	Rating    float64 `json:"rating" validate:"gte=0,lte=5"`
	Dismissed bool    `json:"dismissed"`
}

// HasSignal reports whether any feedback was recorded beyond the impression.
func (f Feedback) HasSignal() bool {
	return f.Clicked || f.Ordered || f.Dismissed || f.Rating > 0
}

// RecommendationRecord is a served recommendation plus the feedback it received.
// The external logging collaborator owns these; the engine only reads them.
type RecommendationRecord struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id" validate:"required"`
	ItemID    string            `json:"item_id" validate:"required"`
	Algorithm string            `json:"algorithm"`
	Score     float64           `json:"score"`
	Rank      int               `json:"rank" validate:"gte=0"`
	Context   map[string]string `json:"context_features,omitempty"`
	Feedback  Feedback          `json:"feedback"`
	CreatedAt time.Time         `json:"created_at"`
}

// TimeBucket is a coarse time-of-day band used in preference summaries.
type TimeBucket string

const (
	BucketMorning   TimeBucket = "morning"   // 06:00-12:00
	BucketAfternoon TimeBucket = "afternoon" // 12:00-17:00
	BucketEvening   TimeBucket = "evening"   // 17:00-22:00
	BucketNight     TimeBucket = "night"     // otherwise
)

// TimeBuckets lists the buckets in their canonical order.
var TimeBuckets = []TimeBucket{BucketMorning, BucketAfternoon, BucketEvening, BucketNight}

// PreferenceSummary describes what a user tends to order.
type PreferenceSummary struct {
	TopCuisines       []string   `json:"top_cuisines"`
	PriceBand         string     `json:"price_band"`
	AverageOrderValue float64    `json:"average_order_value"`
	TimeBucket        TimeBucket `json:"time_bucket"`
}

// ItemFeatures describes when and how a restaurant is ordered from.
type ItemFeatures struct {
	Cuisine     string       `json:"cuisine,omitempty"`
	PriceRange  string       `json:"price_range,omitempty"`
	PeakBuckets []TimeBucket `json:"peak_buckets"`
}

// UserStats are the rolling per-user statistics.
type UserStats struct {
	UserID           string            `json:"user_id"`
	InteractionCount int               `json:"interaction_count"`
	AverageRating    float64           `json:"average_rating"`
	Preferences      PreferenceSummary `json:"preference_summary"`
	ColdStartScore   float64           `json:"cold_start_score"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// ItemStats are the rolling per-restaurant statistics.
type ItemStats struct {
	ItemID          string       `json:"item_id"`
	TotalOrders     int          `json:"total_orders"`
	UniqueCustomers int          `json:"unique_customers"`
	AverageRating   float64      `json:"average_rating"`
	Popularity      float64      `json:"popularity_score"`
	Features        ItemFeatures `json:"content_features"`
	ColdStartScore  float64      `json:"cold_start_score"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// StatsUpdate is the output of a stats computation, applied between training runs.
type StatsUpdate struct {
	Users []UserStats `json:"users"`
	Items []ItemStats `json:"items"`
}

// Empty reports whether the update carries nothing.
func (u StatsUpdate) Empty() bool {
	return len(u.Users) == 0 && len(u.Items) == 0
}

// Embedding is the per-owner view of a model: the trained vector plus the
// statistics maintained between training runs.
type Embedding struct {
	OwnerID          string             `json:"owner_id"`
	Kind             EntityKind         `json:"kind"`
	Vector           []float64          `json:"vector"`
	ModelVersion     string             `json:"model_version"`
	TrainingEpoch    int                `json:"training_epoch"`
	InteractionCount int                `json:"interaction_count"`
	AverageRating    float64            `json:"average_rating"`
	ColdStartScore   float64            `json:"cold_start_score"`
	Preferences      *PreferenceSummary `json:"preference_summary,omitempty"`
	Features         *ItemFeatures      `json:"content_features,omitempty"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// Magnitude is the Euclidean norm of the vector, computed on demand.
func (e Embedding) Magnitude() float64 {
	return factor.Magnitude(e.Vector)
}

// Model is an immutable set of user and item vectors produced by one training run.
// A model is never mutated after it is published; retraining produces a new one.
type Model struct {
	Version   string
	Algorithm string
	Factors   int
	Epochs    int
	Seed      int64
	TrainedAt time.Time

	Users map[string][]float64
	Items map[string][]float64

	// UserCounts and ItemCounts hold the number of training interactions per owner.
	// Owners with zero entries kept their initialization vector.
	UserCounts map[string]int
	ItemCounts map[string]int

	userIDs []string
	itemIDs []string
}

// Index rebuilds the sorted ID lists. It must be called once after the maps
// are filled and before the model is shared.
func (m *Model) Index() {
	m.userIDs = sortedKeys(m.Users)
	m.itemIDs = sortedKeys(m.Items)
}

// IDs returns the owner IDs of the given kind in ascending order.
// The returned slice is shared and must not be modified.
func (m *Model) IDs(kind EntityKind) []string {
	if kind == KindUser {
		return m.userIDs
	}
	return m.itemIDs
}

// Vector returns the vector of an owner, if the model has one.
func (m *Model) Vector(kind EntityKind, id string) ([]float64, bool) {
	var v []float64
	var ok bool
	if kind == KindUser {
		v, ok = m.Users[id]
	} else {
		v, ok = m.Items[id]
	}
	return v, ok
}

// Count returns the number of training interactions of an owner.
func (m *Model) Count(kind EntityKind, id string) int {
	if kind == KindUser {
		return m.UserCounts[id]
	}
	return m.ItemCounts[id]
}

// InteractionTotal returns the number of interactions the model was fit on.
func (m *Model) InteractionTotal() int {
	total := 0
	for _, n := range m.UserCounts {
		total += n
	}
	return total
}

func sortedKeys(m map[string][]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TrainInput is everything a Trainer needs for one run.
type TrainInput struct {
	Interactions []Interaction

	// Users and Items list catalog owners that should receive a vector even
	// without interactions. They are initialized but never updated.
	Users []string
	Items []string

	// Version is stamped on the produced model.
	Version string

	// Progress, when set, is called after every epoch.
	Progress func(epoch int, loss float64)
}

// TrainResult is the output of a training run.
type TrainResult struct {
	Model     *Model
	Duration  time.Duration
	FinalLoss float64
	LossCurve []float64
}

// TrainingTimeSeconds returns the wall-clock training time in seconds.
func (r *TrainResult) TrainingTimeSeconds() float64 {
	return r.Duration.Seconds()
}

// Trainer fits a Model to interactions. Implementations must be deterministic
// for a fixed seed and configuration.
type Trainer interface {
	// Name returns the algorithm name, e.g. "sgd".
	Name() string

	// Train fits a new model. It returns ErrInvalidConfiguration for bad
	// hyperparameters and ErrInsufficientData for an empty interaction set.
	Train(ctx context.Context, in TrainInput) (*TrainResult, error)
}

// ScoredItem is one ranked entry.
type ScoredItem struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
}

// Strategy names the ranking path that produced a result.
type Strategy string

const (
	StrategyPersonalized Strategy = "personalized"
	StrategyPopularity   Strategy = "popularity"
	StrategySimilarity   Strategy = "similarity"
	StrategyNone         Strategy = "none"
)

// Result is a ranked list plus where it came from.
type Result struct {
	Items        []ScoredItem `json:"items"`
	Strategy     Strategy     `json:"strategy"`
	ModelVersion string       `json:"model_version,omitempty"`
	CacheHit     bool         `json:"cache_hit"`
}

// ResultCache stores ranked results. Implementations bound size and age.
type ResultCache interface {
	Get(key string) (*Result, bool)
	Set(key string, value *Result)
	Clear()
}

// DataProvider reads snapshots from the interaction store. It never mutates them.
type DataProvider interface {
	// FetchInteractions returns every recorded interaction.
	FetchInteractions(ctx context.Context) ([]Interaction, error)

	// FetchEntities returns the catalog user and restaurant IDs.
	FetchEntities(ctx context.Context) (users, items []string, err error)

	// FetchOrderHistoryByUser returns a user's orders.
	FetchOrderHistoryByUser(ctx context.Context, userID string) ([]OrderRecord, error)

	// FetchOrderHistoryByItem returns a restaurant's orders.
	FetchOrderHistoryByItem(ctx context.Context, itemID string) ([]OrderRecord, error)

	// LoadStats returns the last persisted statistics.
	LoadStats(ctx context.Context) (StatsUpdate, error)
}

// EmbeddingStore persists individual embeddings.
type EmbeddingStore interface {
	LoadEmbedding(ctx context.Context, kind EntityKind, ownerID string) (Embedding, bool, error)
	SaveEmbedding(ctx context.Context, emb Embedding) error
	SaveModel(ctx context.Context, model *Model) error
	DeleteEmbedding(ctx context.Context, kind EntityKind, ownerID string) error
}

// ModelStore persists whole model snapshots so a restart can resume serving.
type ModelStore interface {
	SaveSnapshot(model *Model) error
	LoadLatestSnapshot() (*Model, error)
}

// ModelInfo summarizes a retained model version.
type ModelInfo struct {
	Version      string    `json:"version"`
	Algorithm    string    `json:"algorithm"`
	Factors      int       `json:"factors"`
	Epochs       int       `json:"epochs"`
	TrainedAt    time.Time `json:"trained_at"`
	Users        int       `json:"users"`
	Items        int       `json:"items"`
	Interactions int       `json:"interactions"`
	FinalLoss    float64   `json:"final_loss"`
	DurationMS   int64     `json:"duration_ms"`
	HoldoutSize  int       `json:"holdout_size"`
	Current      bool      `json:"current"`
}

// TrainingStatus is the engine's training state.
type TrainingStatus struct {
	IsTraining             bool      `json:"is_training"`
	LastTrainedAt          time.Time `json:"last_trained_at"`
	LastTrainingDurationMS int64     `json:"last_training_duration_ms"`
	LastError              string    `json:"last_error,omitempty"`
	InteractionCount       int       `json:"interaction_count"`
	UserCount              int       `json:"user_count"`
	ItemCount              int       `json:"item_count"`
	ModelVersion           string    `json:"model_version"`
	FinalLoss              float64   `json:"final_loss"`
}

// EvaluationReport holds offline ranking quality for one model version.
type EvaluationReport struct {
	ModelVersion            string  `json:"model_version"`
	K                       int     `json:"k"`
	PrecisionAtK            float64 `json:"precision_at_k"`
	RecallAtK               float64 `json:"recall_at_k"`
	UsersEvaluated          int     `json:"users_evaluated"`
	HeldOut                 int     `json:"held_out"`
	TotalItems              int     `json:"total_items"`
	RandomBaselinePrecision float64 `json:"random_baseline_precision"`

	// Lift is PrecisionAtK over the random baseline; 0 when the baseline is 0.
	Lift float64 `json:"lift"`
}
