// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCounts_Score(t *testing.T) {
	tests := []struct {
		name   string
		counts Counts
		want   float64
	}{
		{"no games", Counts{}, 0.5},
		{"all wins", Counts{Wins: 10}, 1},
		{"all draws", Counts{Draws: 7}, 0.5},
		{"mixed", Counts{Wins: 60, Losses: 40, Draws: 100}, 0.55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.counts.Score(), 1e-12)
		})
	}
}

func TestCounts_Add(t *testing.T) {
	a := Counts{Subject: "test", Wins: 1, Losses: 2, Draws: 3}
	b := Counts{Subject: "other", Wins: 10, Losses: 20, Draws: 30}

	got := a.Add(b)

	assert.Equal(t, Counts{Subject: "test", Wins: 11, Losses: 22, Draws: 33}, got)
	assert.Equal(t, 66, got.Games())
}

func TestEloFromScore(t *testing.T) {
	t.Run("even score is zero", func(t *testing.T) {
		assert.InDelta(t, 0, EloFromScore(0.5), 1e-12)
	})

	t.Run("three to one", func(t *testing.T) {
		assert.InDelta(t, 400*math.Log10(3), EloFromScore(0.75), 1e-9)
	})

	t.Run("antisymmetric", func(t *testing.T) {
		assert.InDelta(t, -EloFromScore(0.8), EloFromScore(0.2), 1e-9)
	})

	t.Run("extremes are finite", func(t *testing.T) {
		hi := EloFromScore(1)
		lo := EloFromScore(0)
		assert.False(t, math.IsInf(hi, 0))
		assert.False(t, math.IsInf(lo, 0))
		assert.InDelta(t, 400*math.Log10((1-1e-4)/1e-4), hi, 1e-6)
		assert.InDelta(t, -hi, lo, 1e-6)
	})
}

func TestEloError(t *testing.T) {
	t.Run("zero games is infinite", func(t *testing.T) {
		assert.True(t, math.IsInf(EloError(0.5, 0), 1))
	})

	t.Run("even score hundred games", func(t *testing.T) {
		want := 400 / (math.Ln10 * 0.25) * math.Sqrt(0.25/100)
		assert.InDelta(t, want, EloError(0.5, 100), 1e-9)
		assert.InDelta(t, 34.74, EloError(0.5, 100), 0.01)
	})

	t.Run("shrinks with more games", func(t *testing.T) {
		assert.Less(t, EloError(0.6, 400), EloError(0.6, 100))
	})

	t.Run("clean sweep is finite", func(t *testing.T) {
		assert.False(t, math.IsInf(EloError(1, 10), 0))
	})
}

func TestLOS(t *testing.T) {
	t.Run("zero games", func(t *testing.T) {
		assert.Equal(t, 0.5, LOS(0.9, 0))
	})

	t.Run("even score", func(t *testing.T) {
		assert.Equal(t, 0.5, LOS(0.5, 500))
	})

	t.Run("zero variance", func(t *testing.T) {
		assert.Equal(t, 1.0, LOS(1, 20))
		assert.Equal(t, 0.0, LOS(0, 20))
	})

	t.Run("known value", func(t *testing.T) {
		// score 0.55 over 200 games: z = 0.05 / sqrt(0.2475/200)
		z := 0.05 / math.Sqrt(0.55*0.45/200)
		want := 0.5 * (1 + math.Erf(z/math.Sqrt2))
		assert.InDelta(t, want, LOS(0.55, 200), 1e-12)
		assert.InDelta(t, 0.922, LOS(0.55, 200), 0.001)
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.InDelta(t, 1-LOS(0.6, 100), LOS(0.4, 100), 1e-12)
	})
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		los   float64
		games int
		want  Class
	}{
		{"no games beats everything", 0.99, 0, NoData},
		{"stronger boundary", 0.95, 10, Stronger},
		{"just below stronger", 0.9499, 10, Inconclusive},
		{"weaker boundary", 0.05, 10, Weaker},
		{"just above weaker", 0.0501, 10, Inconclusive},
		{"coin flip", 0.5, 10, Inconclusive},
		{"certain", 1, 10, Stronger},
		{"hopeless", 0, 10, Weaker},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.los, tt.games))
		})
	}
}

func TestClass_ExitCodeAndNames(t *testing.T) {
	tests := []struct {
		class Class
		code  int
		name  string
	}{
		{Stronger, 0, "stronger"},
		{Weaker, 1, "weaker"},
		{Inconclusive, 2, "inconclusive"},
		{NoData, 3, "no-data"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.class.ExitCode())
			assert.Equal(t, tt.name, tt.class.String())
			parsed, err := ParseClass(tt.name)
			assert.NoError(t, err)
			assert.Equal(t, tt.class, parsed)
			assert.NotEmpty(t, tt.class.Description())
		})
	}

	_, err := ParseClass("maybe")
	assert.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	t.Run("no data", func(t *testing.T) {
		v := Evaluate(Counts{Subject: "test"})
		assert.Equal(t, NoData, v.Class)
		assert.Equal(t, 0, v.Games)
		assert.Equal(t, 0.5, v.Score)
		assert.Equal(t, 0.5, v.LOS)
		assert.True(t, math.IsInf(v.EloError, 1))
	})

	t.Run("inconclusive", func(t *testing.T) {
		v := Evaluate(Counts{Wins: 60, Losses: 40, Draws: 100})
		assert.Equal(t, Inconclusive, v.Class)
		assert.Equal(t, 200, v.Games)
		assert.InDelta(t, 0.55, v.Score, 1e-12)
		assert.InDelta(t, EloFromScore(0.55), v.Elo, 1e-12)
		assert.Less(t, v.EloLow, v.Elo)
		assert.Greater(t, v.EloHigh, v.Elo)
		assert.InDelta(t, v.Elo-v.EloLow, v.EloHigh-v.Elo, 1e-9)
	})

	t.Run("stronger", func(t *testing.T) {
		v := Evaluate(Counts{Wins: 120, Losses: 60, Draws: 20})
		assert.Equal(t, Stronger, v.Class)
		assert.Equal(t, 0, v.Class.ExitCode())
	})

	t.Run("weaker", func(t *testing.T) {
		v := Evaluate(Counts{Wins: 60, Losses: 120, Draws: 20})
		assert.Equal(t, Weaker, v.Class)
		assert.Negative(t, v.Elo)
	})
}
