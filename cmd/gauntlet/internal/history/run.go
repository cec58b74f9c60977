// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package history records finished runs in a BadgerDB database so that
// verdicts and benchmark results can be listed and compared over time.
package history

import (
	"math"
	"time"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/perft"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/stats"
)

// Kind is the workflow that produced a run.
type Kind string

const (
	KindCompare   Kind = "compare"
	KindGauntlet  Kind = "gauntlet"
	KindSummarize Kind = "summarize"
	KindBench     Kind = "bench"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindCompare, KindGauntlet, KindSummarize, KindBench:
		return true
	}
	return false
}

// Artifacts are the files a run leaves behind.
type Artifacts struct {
	PGN     string `json:"pgn,omitempty"`
	Log     string `json:"log,omitempty"`
	Summary string `json:"summary,omitempty"`
}

// Paths returns the non-empty artifact paths.
func (a Artifacts) Paths() []string {
	var out []string
	for _, p := range []string{a.PGN, a.Log, a.Summary} {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Run is one finished workflow run.
type Run struct {
	ID         string    `json:"id"`
	Kind       Kind      `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Test and Base are display names ("main (abc1234)" or a path).
	Test string `json:"test"`
	Base string `json:"base,omitempty"`

	TimeControl string `json:"time_control,omitempty"`
	ExitCode    int    `json:"exit_code"`

	Verdict   *VerdictRecord    `json:"verdict,omitempty"`
	Bench     *perft.Comparison `json:"bench,omitempty"`
	Artifacts Artifacts         `json:"artifacts"`
}

// Duration is FinishedAt - StartedAt.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// VerdictRecord is the JSON-safe form of stats.Verdict. Unbounded values
// (no games played) are stored as nil.
type VerdictRecord struct {
	Wins     int      `json:"wins"`
	Losses   int      `json:"losses"`
	Draws    int      `json:"draws"`
	Games    int      `json:"games"`
	Score    float64  `json:"score"`
	Elo      float64  `json:"elo"`
	EloError *float64 `json:"elo_error,omitempty"`
	LOS      float64  `json:"los"`
	Class    string   `json:"class"`
}

// NewVerdictRecord converts v.
func NewVerdictRecord(v stats.Verdict) *VerdictRecord {
	rec := &VerdictRecord{
		Wins:   v.Counts.Wins,
		Losses: v.Counts.Losses,
		Draws:  v.Counts.Draws,
		Games:  v.Games,
		Score:  v.Score,
		Elo:    v.Elo,
		LOS:    v.LOS,
		Class:  v.Class.String(),
	}
	if !math.IsInf(v.EloError, 0) && !math.IsNaN(v.EloError) {
		e := v.EloError
		rec.EloError = &e
	}
	return rec
}
