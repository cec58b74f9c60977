// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package match

import (
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/stats"
)

// Aggregator folds Records into outcome counts for one subject.
//
// A decisive game credited to the subject is a win and any other decisive
// game is a loss, so every participant who is not the subject plays the
// opponent role. Opponent is only a label.
type Aggregator struct {
	counts stats.Counts
}

// NewAggregator creates an Aggregator for subject. opponent may be empty.
func NewAggregator(subject, opponent string) *Aggregator {
	return &Aggregator{counts: stats.Counts{Subject: subject, Opponent: opponent}}
}

// Add folds one record.
func (a *Aggregator) Add(rec Record) {
	switch rec.Outcome {
	case WhiteWin, BlackWin:
		if rec.Winner() == a.counts.Subject {
			a.counts.Wins++
		} else {
			a.counts.Losses++
		}
	default:
		a.counts.Draws++
	}
}

// Counts returns the tally so far.
func (a *Aggregator) Counts() stats.Counts {
	return a.counts
}

// Aggregate counts records from subject's perspective.
func Aggregate(records []Record, subject, opponent string) stats.Counts {
	agg := NewAggregator(subject, opponent)
	for _, rec := range records {
		agg.Add(rec)
	}
	return agg.Counts()
}

// AggregateFile streams the log at path into counts without holding all
// records in memory.
//
// # Outputs
//
//   - stats.Counts: Tally from subject's perspective.
//   - error: ErrLogNotFound if the log is missing, or a read error.
func AggregateFile(path, subject, opponent string) (stats.Counts, error) {
	agg := NewAggregator(subject, opponent)
	f, err := openLog(path)
	if err != nil {
		return agg.Counts(), err
	}
	defer f.Close()

	sc := NewScanner(f)
	for sc.Scan() {
		agg.Add(sc.Record())
	}
	return agg.Counts(), sc.Err()
}
