// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package stats turns win/draw/loss counts into an Elo estimate and a
// strength verdict.
//
// All functions are pure and safe for concurrent use.
package stats

import "math"

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	// StrongerThreshold is the LOS at or above which the subject is
	// classified as stronger.
	StrongerThreshold = 0.95

	// WeakerThreshold is the LOS at or below which the subject is
	// classified as weaker.
	WeakerThreshold = 0.05

	// eloScoreClamp keeps the Elo logit finite at 0% and 100% scores.
	eloScoreClamp = 1e-4

	// errorScoreClamp keeps the delta-method derivative finite.
	errorScoreClamp = 1e-6

	// z95 is the two-sided 95% normal quantile.
	z95 = 1.959963984540054
)

// -----------------------------------------------------------------------------
// Counts
// -----------------------------------------------------------------------------

// Counts is the outcome tally of a match from the subject's perspective.
//
// Subject and Opponent are labels for reports. Any participant other than
// the subject counts as the opponent.
type Counts struct {
	Subject  string `json:"subject"`
	Opponent string `json:"opponent,omitempty"`
	Wins     int    `json:"wins"`
	Losses   int    `json:"losses"`
	Draws    int    `json:"draws"`
}

// Games returns wins + losses + draws.
func (c Counts) Games() int {
	return c.Wins + c.Losses + c.Draws
}

// Score returns (wins + draws/2) / games, or 0.5 when no games were played.
func (c Counts) Score() float64 {
	games := c.Games()
	if games == 0 {
		return 0.5
	}
	return (float64(c.Wins) + 0.5*float64(c.Draws)) / float64(games)
}

// Add returns the element-wise sum of c and other, keeping c's labels.
func (c Counts) Add(other Counts) Counts {
	c.Wins += other.Wins
	c.Losses += other.Losses
	c.Draws += other.Draws
	return c
}

// -----------------------------------------------------------------------------
// Estimators
// -----------------------------------------------------------------------------

// EloFromScore converts an expected score into an Elo difference.
//
// Description:
//
//	Uses the logistic model 400*log10(s/(1-s)). The score is clamped to
//	[1e-4, 1-1e-4] so a clean sweep yields a large finite number.
//
// Inputs:
//   - score: Expected score in [0, 1].
//
// Outputs:
//   - float64: Elo difference. 0 at score 0.5, increasing in score.
func EloFromScore(score float64) float64 {
	s := clamp(score, eloScoreClamp, 1-eloScoreClamp)
	return 400 * math.Log10(s/(1-s))
}

// EloError returns the standard error of the Elo estimate.
//
// Description:
//
//	Delta method on the logit: derivative 400/(ln10*p*(1-p)) times the
//	binomial standard error sqrt(p*(1-p)/n), with p clamped to
//	[1e-6, 1-1e-6].
//
// Inputs:
//   - score: Observed score.
//   - games: Number of games. Zero yields +Inf.
//
// Outputs:
//   - float64: Standard error in Elo points.
func EloError(score float64, games int) float64 {
	if games <= 0 {
		return math.Inf(1)
	}
	p := clamp(score, errorScoreClamp, 1-errorScoreClamp)
	variance := p * (1 - p) / float64(games)
	derivative := 400 / (math.Ln10 * p * (1 - p))
	return derivative * math.Sqrt(variance)
}

// LOS returns the likelihood of superiority: the probability under a
// normal approximation that the subject's true score exceeds 0.5.
//
// Description:
//
//	z = (p - 0.5) / sqrt(p*(1-p)/n) and LOS = Phi(z). With zero games the
//	answer is 0.5. With zero variance (all wins or all losses) the answer
//	is 1 or 0.
//
// Inputs:
//   - score: Observed score.
//   - games: Number of games.
//
// Outputs:
//   - float64: Probability in [0, 1]. 0.5 at score 0.5.
func LOS(score float64, games int) float64 {
	if games <= 0 {
		return 0.5
	}
	variance := score * (1 - score) / float64(games)
	if variance <= 0 {
		if score > 0.5 {
			return 1
		}
		return 0
	}
	z := (score - 0.5) / math.Sqrt(variance)
	return normalCDF(z)
}

// normalCDF is the standard normal CDF.
func normalCDF(x float64) float64 {
	return 0.5 * (1 + math.Erf(x/math.Sqrt2))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
