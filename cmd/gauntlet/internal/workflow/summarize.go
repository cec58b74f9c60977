// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/match"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/report"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/stats"
)

// SummarizeOptions configures a summary of an existing match log.
type SummarizeOptions struct {
	// PGN is the match log.
	PGN string

	// Subject is the engine name whose results are counted as wins.
	Subject string

	// Opponent labels the other side. Default: "opponent".
	Opponent string

	// Summary is written when non-empty.
	Summary string
}

// Summarize evaluates an existing match log without running anything.
func (w *Workflow) Summarize(ctx context.Context, opts SummarizeOptions) (*MatchResult, error) {
	_, span := w.tracer.Start(ctx, "workflow.summarize")
	defer span.End()

	if opts.Subject == "" {
		return nil, fmt.Errorf("summarize: a subject engine name is required")
	}
	opponent := opts.Opponent
	if opponent == "" {
		opponent = "opponent"
	}

	started := w.now()
	counts, err := match.AggregateFile(opts.PGN, opts.Subject, opponent)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}
	verdict := stats.Evaluate(counts)

	res := &MatchResult{
		Counts:  counts,
		Verdict: verdict,
		Report: report.Match{
			Title:         "summary",
			Test:          opts.Subject,
			SubjectLabel:  opts.Subject,
			OpponentLabel: opponent,
			Verdict:       verdict,
			PGNPath:       opts.PGN,
		},
	}
	if opts.Summary != "" {
		if err := writeFile(opts.Summary, report.MatchText(res.Report)); err != nil {
			w.logger.Warn("failed to write summary", slog.String("error", err.Error()))
			opts.Summary = ""
		}
	}

	res.Run = history.Run{
		Kind:       history.KindSummarize,
		StartedAt:  started,
		FinishedAt: w.now(),
		Test:       opts.Subject,
		Base:       opponent,
		ExitCode:   res.ExitCode(),
		Verdict:    history.NewVerdictRecord(verdict),
		Artifacts:  history.Artifacts{PGN: opts.PGN, Summary: opts.Summary},
	}
	w.record(ctx, &res.Run)
	return res, nil
}
