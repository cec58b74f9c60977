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
	"fmt"
	"math"
)

// -----------------------------------------------------------------------------
// Classification
// -----------------------------------------------------------------------------

// Class is the outcome of a strength comparison.
type Class int

const (
	// Stronger means LOS >= 0.95.
	Stronger Class = iota
	// Weaker means LOS <= 0.05.
	Weaker
	// Inconclusive means 0.05 < LOS < 0.95.
	Inconclusive
	// NoData means no games were played.
	NoData
)

// String returns the machine-readable name used in CI output and history.
func (c Class) String() string {
	switch c {
	case Stronger:
		return "stronger"
	case Weaker:
		return "weaker"
	case Inconclusive:
		return "inconclusive"
	case NoData:
		return "no-data"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

// Description returns the sentence shown to humans.
func (c Class) Description() string {
	switch c {
	case Stronger:
		return "Test appears stronger"
	case Weaker:
		return "Test appears weaker"
	case Inconclusive:
		return "Inconclusive"
	case NoData:
		return "No games completed"
	default:
		return "Unknown"
	}
}

// ExitCode maps the class to the process exit status: 0 stronger,
// 1 weaker, 2 inconclusive, 3 no data.
func (c Class) ExitCode() int {
	switch c {
	case Stronger:
		return 0
	case Weaker:
		return 1
	case Inconclusive:
		return 2
	default:
		return 3
	}
}

// ParseClass is the inverse of Class.String.
func ParseClass(s string) (Class, error) {
	for _, c := range []Class{Stronger, Weaker, Inconclusive, NoData} {
		if c.String() == s {
			return c, nil
		}
	}
	return NoData, fmt.Errorf("unknown verdict class %q", s)
}

// Classify maps a likelihood of superiority to a Class.
//
// Inputs:
//   - los: Likelihood of superiority.
//   - games: Games played. Zero always yields NoData.
func Classify(los float64, games int) Class {
	switch {
	case games <= 0:
		return NoData
	case los >= StrongerThreshold:
		return Stronger
	case los <= WeakerThreshold:
		return Weaker
	default:
		return Inconclusive
	}
}

// -----------------------------------------------------------------------------
// Verdict
// -----------------------------------------------------------------------------

// Verdict is the full statistical summary of a match.
type Verdict struct {
	Counts   Counts  `json:"counts"`
	Games    int     `json:"games"`
	Score    float64 `json:"score"`
	Elo      float64 `json:"elo"`
	EloError float64 `json:"elo_error"`
	EloLow   float64 `json:"elo_low"`
	EloHigh  float64 `json:"elo_high"`
	LOS      float64 `json:"los"`
	Class    Class   `json:"class"`
}

// Evaluate computes the verdict for counts.
//
// Description:
//
//	With zero games the verdict is NoData with score 0.5, Elo 0, and an
//	infinite error. EloLow/EloHigh bound a 95% interval.
//
// Inputs:
//   - counts: Outcome tally from the subject's perspective.
//
// Outputs:
//   - Verdict: Always populated.
func Evaluate(counts Counts) Verdict {
	games := counts.Games()
	score := counts.Score()

	v := Verdict{
		Counts: counts,
		Games:  games,
		Score:  score,
		LOS:    LOS(score, games),
	}
	if games == 0 {
		v.EloError = math.Inf(1)
		v.EloLow = math.Inf(-1)
		v.EloHigh = math.Inf(1)
		v.Class = NoData
		return v
	}

	v.Elo = EloFromScore(score)
	v.EloError = EloError(score, games)
	v.EloLow = v.Elo - z95*v.EloError
	v.EloHigh = v.Elo + z95*v.EloError
	v.Class = Classify(v.LOS, games)
	return v
}
