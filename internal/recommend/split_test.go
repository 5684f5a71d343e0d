// Forkcast - Restaurant Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/forkcast

package recommend

import (
	"fmt"
	"testing"
	"time"
)

func timedInteractions(n int) []Interaction {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Interaction, n)
	for i := range out {
		// newest first so the split has to sort
		out[i] = Interaction{
			UserID:    fmt.Sprintf("u%d", i%3),
			ItemID:    fmt.Sprintf("r%d", i),
			Rating:    float64(i%5 + 1),
			Timestamp: base.Add(time.Duration(n-i) * time.Hour),
		}
	}
	return out
}

func TestSplitInteractions_Time(t *testing.T) {
	t.Parallel()

	in := timedInteractions(10)
	train, test := SplitInteractions(in, SplitConfig{Policy: SplitTime, TestFraction: 0.2})

	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("split sizes = %d/%d, want 8/2", len(train), len(test))
	}

	var latestTrain time.Time
	for _, it := range train {
		if it.Timestamp.After(latestTrain) {
			latestTrain = it.Timestamp
		}
	}
	for _, it := range test {
		if !it.Timestamp.After(latestTrain) {
			t.Errorf("test interaction at %v is not after the training cutoff %v", it.Timestamp, latestTrain)
		}
	}

	// input order untouched
	if in[0].ItemID != "r0" {
		t.Error("SplitInteractions modified its input")
	}
}

func TestSplitInteractions_Random(t *testing.T) {
	t.Parallel()

	in := timedInteractions(50)
	cfg := SplitConfig{Policy: SplitRandom, TestFraction: 0.3, Seed: 42}

	train1, test1 := SplitInteractions(in, cfg)
	train2, test2 := SplitInteractions(in, cfg)

	if len(test1) != 15 || len(train1) != 35 {
		t.Fatalf("split sizes = %d/%d, want 35/15", len(train1), len(test1))
	}
	for i := range test1 {
		if test1[i] != test2[i] {
			t.Fatalf("random split not reproducible at %d", i)
		}
	}
	for i := range train1 {
		if train1[i] != train2[i] {
			t.Fatalf("random split not reproducible at %d", i)
		}
	}

	seen := map[string]bool{}
	for _, it := range append(append([]Interaction{}, train1...), test1...) {
		if seen[it.ItemID] {
			t.Errorf("interaction %s appears twice", it.ItemID)
		}
		seen[it.ItemID] = true
	}
	if len(seen) != 50 {
		t.Errorf("split lost interactions: %d of 50", len(seen))
	}

	_, other := SplitInteractions(in, SplitConfig{Policy: SplitRandom, TestFraction: 0.3, Seed: 7})
	same := true
	for i := range other {
		if other[i] != test1[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced the same test set")
	}
}

func TestSplitInteractions_EdgeCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		n         int
		fraction  float64
		wantTrain int
		wantTest  int
	}{
		{name: "empty", n: 0, fraction: 0.2, wantTrain: 0, wantTest: 0},
		{name: "single interaction stays in training", n: 1, fraction: 0.5, wantTrain: 1, wantTest: 0},
		{name: "small fraction still holds one out", n: 3, fraction: 0.01, wantTrain: 2, wantTest: 1},
		{name: "large fraction keeps one for training", n: 4, fraction: 0.99, wantTrain: 1, wantTest: 3},
		{name: "zero fraction", n: 5, fraction: 0, wantTrain: 5, wantTest: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			train, test := SplitInteractions(timedInteractions(tt.n), SplitConfig{Policy: SplitTime, TestFraction: tt.fraction})
			if len(train) != tt.wantTrain || len(test) != tt.wantTest {
				t.Errorf("split sizes = %d/%d, want %d/%d", len(train), len(test), tt.wantTrain, tt.wantTest)
			}
		})
	}
}

func TestSplitInteractions_TrainAppendDoesNotClobberTest(t *testing.T) {
	t.Parallel()

	train, test := SplitInteractions(timedInteractions(5), SplitConfig{Policy: SplitTime, TestFraction: 0.4})
	before := test[0]
	_ = append(train, Interaction{UserID: "intruder"})
	if test[0] != before {
		t.Error("appending to train overwrote the test set")
	}
}
