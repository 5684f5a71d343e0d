// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package feedback

import (
	"github.com/tomtom215/forkcast/internal/recommend"
)

// WeightConfig maps implicit feedback to rating-scale training signal.
type WeightConfig struct {
	Ordered   float64 `json:"ordered" koanf:"ordered"`
	Clicked   float64 `json:"clicked" koanf:"clicked"`
	Dismissed float64 `json:"dismissed" koanf:"dismissed"`
}

// DefaultWeightConfig returns ordered 4.0, clicked 3.0 and dismissed 1.0.
func DefaultWeightConfig() WeightConfig {
	return WeightConfig{
		Ordered:   4.0,
		Clicked:   3.0,
		Dismissed: 1.0,
	}
}

// Weight returns the training rating for one piece of feedback and whether
// it carries any signal. An explicit rating always wins; otherwise the
// strongest implicit action is used.
func (w WeightConfig) Weight(fb recommend.Feedback) (float64, bool) {
	switch {
	case fb.Rating > 0:
		return fb.Rating, true
	case fb.Ordered:
		return w.Ordered, true
	case fb.Clicked:
		return w.Clicked, true
	case fb.Dismissed:
		return w.Dismissed, true
	default:
		return 0, false
	}
}

// InteractionWeights converts served recommendations with feedback into
// interactions for the next training run. Impressions without any feedback
// are skipped, as are records missing a user or item.
func InteractionWeights(records []recommend.RecommendationRecord, cfg WeightConfig) []recommend.Interaction {
	out := make([]recommend.Interaction, 0, len(records))
	for _, r := range records {
		if r.UserID == "" || r.ItemID == "" {
			continue
		}
		rating, ok := cfg.Weight(r.Feedback)
		if !ok {
			continue
		}
		out = append(out, recommend.Interaction{
			UserID:    r.UserID,
			ItemID:    r.ItemID,
			Rating:    rating,
			Timestamp: r.CreatedAt,
		})
	}
	return out
}
