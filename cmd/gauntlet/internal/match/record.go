// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package match reads match logs written by the match runner and drives
// the runner itself.
//
// # Description
//
// A match log is PGN. Only three tag lines matter: White, Black and
// Result. Records are separated by blank lines. Everything else (move
// text, other tags, comments) is ignored, and a record missing any of the
// three tags is dropped without error. This makes the reader safe to run
// against a log that the runner is still appending to.
//
// # Thread Safety
//
// Scanner is not safe for concurrent use. All other functions are pure.
package match

// Outcome is the result of a single game.
type Outcome int

const (
	// Draw covers "1/2-1/2" and every token other than the two decisive
	// ones, including the unfinished-game marker "*".
	Draw Outcome = iota
	// WhiteWin is "1-0".
	WhiteWin
	// BlackWin is "0-1".
	BlackWin
)

// String returns the canonical PGN token.
func (o Outcome) String() string {
	switch o {
	case WhiteWin:
		return "1-0"
	case BlackWin:
		return "0-1"
	default:
		return "1/2-1/2"
	}
}

// ParseOutcome maps a PGN result token to an Outcome.
func ParseOutcome(token string) Outcome {
	switch token {
	case "1-0":
		return WhiteWin
	case "0-1":
		return BlackWin
	default:
		return Draw
	}
}

// Record is one completed game from the log.
type Record struct {
	White   string
	Black   string
	Result  string
	Outcome Outcome
}

// Winner returns the winning participant's name, or "" for a draw.
func (r Record) Winner() string {
	switch r.Outcome {
	case WhiteWin:
		return r.White
	case BlackWin:
		return r.Black
	default:
		return ""
	}
}
