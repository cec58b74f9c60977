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
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/match"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/progress"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/report"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/sandbox"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/stats"
	"github.com/AleutianAI/gauntlet/pkg/validation"
)

// MatchOptions configures a compare or gauntlet run.
type MatchOptions struct {
	// Test is the candidate: a git ref or a binary path.
	Test string

	// Base is the reference: a git ref or a binary path. Ignored when
	// External is set.
	Base string

	// External is a fixed opponent binary used instead of Base.
	External string

	// OpponentName overrides the opponent's engine name in the match.
	OpponentName string

	Games       int
	Concurrency int
	TimeControl match.TimeControl

	// MatchRunner is the fastchess executable. Default: "fastchess".
	MatchRunner string

	Outputs Outputs

	// Progress logs the running tally while the match plays.
	Progress         bool
	ProgressInterval time.Duration
}

func (o MatchOptions) validate() error {
	var errs []error
	if o.Test == "" {
		errs = append(errs, errors.New("a test revision is required"))
	}
	if o.Base == "" && o.External == "" {
		errs = append(errs, errors.New("a base revision or external opponent is required"))
	}
	if o.Games <= 0 {
		errs = append(errs, fmt.Errorf("games must be positive, got %d", o.Games))
	}
	if o.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", o.Concurrency))
	}
	if err := o.TimeControl.Validate(); err != nil {
		errs = append(errs, err)
	}
	if o.OpponentName != "" {
		if err := validation.ValidateEngineName(o.OpponentName); err != nil {
			errs = append(errs, fmt.Errorf("opponent name: %w", err))
		}
	}
	return errors.Join(errs...)
}

// MatchResult is the outcome of compare, gauntlet, or summarize.
type MatchResult struct {
	// Test and Base are zero for summarize runs.
	Test sandbox.Artifact
	Base sandbox.Artifact

	Counts  stats.Counts
	Verdict stats.Verdict

	// Report is ready for report.WriteMatch.
	Report report.Match

	Run history.Run
}

// ExitCode maps the verdict: 0 stronger, 1 weaker, 2 inconclusive,
// 3 no games.
func (r *MatchResult) ExitCode() int {
	return r.Verdict.Class.ExitCode()
}

// Compare builds (or locates) the test and base engines, plays them
// against each other, and evaluates the result.
//
// # Description
//
// Both revisions are materialized sequentially in one sandbox scope that
// is closed before Compare returns. The match runner writes the PGN,
// which is then parsed and aggregated from the test engine's perspective.
//
// # Outputs
//
//   - *MatchResult: Verdict and report; nil on error.
//   - error: Validation failure, ErrRunnerNotFound,
//     sandbox.ErrUnknownRevision, *sandbox.BuildError, a match runner
//     failure (*util.CommandError), or the context's cancel cause.
func (w *Workflow) Compare(ctx context.Context, opts MatchOptions) (*MatchResult, error) {
	kind := history.KindCompare
	if opts.External != "" {
		kind = history.KindGauntlet
	}
	return w.runMatch(ctx, kind, opts)
}

// Gauntlet plays the test revision against a fixed external opponent.
func (w *Workflow) Gauntlet(ctx context.Context, opts MatchOptions) (*MatchResult, error) {
	if opts.External == "" {
		return nil, errors.New("gauntlet: an external opponent is required")
	}
	return w.runMatch(ctx, history.KindGauntlet, opts)
}

func (w *Workflow) runMatch(ctx context.Context, kind history.Kind, opts MatchOptions) (res *MatchResult, err error) {
	ctx, span := w.tracer.Start(ctx, "workflow."+string(kind),
		trace.WithAttributes(
			attribute.String("test", opts.Test),
			attribute.String("base", opts.Base),
			attribute.String("external", opts.External),
			attribute.Int("games", opts.Games),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := opts.validate(); err != nil {
		return nil, err
	}
	if err := w.requireIsolator(); err != nil {
		return nil, err
	}
	runnerName := opts.MatchRunner
	if runnerName == "" {
		runnerName = "fastchess"
	}
	if _, err := w.lookPath(runnerName); err != nil {
		return nil, fmt.Errorf("%w: %s (install fastchess or pass --fastchess)", ErrRunnerNotFound, runnerName)
	}

	started := w.now()
	outputs, err := opts.Outputs.resolve(string(kind), started)
	if err != nil {
		return nil, err
	}

	scope, err := w.isolator.NewScope(string(kind))
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	test, base, err := w.materializePair(ctx, scope, opts)
	if err != nil {
		return nil, err
	}

	testName, baseName := test.Name, base.Name
	if opts.OpponentName != "" {
		baseName = opts.OpponentName
	}
	testName, baseName = engineNames(testName, baseName)

	plan := match.Plan{
		Runner:      runnerName,
		Subject:     match.Engine{Name: testName, Binary: test.BinaryPath},
		Opponent:    match.Engine{Name: baseName, Binary: base.BinaryPath},
		Games:       opts.Games,
		Concurrency: opts.Concurrency,
		TimeControl: opts.TimeControl,
		PGNPath:     outputs.PGN,
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	if err := w.playMatch(ctx, plan, outputs.Log, opts); err != nil {
		return nil, err
	}

	_, evalSpan := w.tracer.Start(ctx, "match.Evaluate")
	counts, err := match.AggregateFile(outputs.PGN, testName, baseName)
	evalSpan.End()
	if err != nil {
		return nil, fmt.Errorf("read match log: %w", err)
	}
	verdict := stats.Evaluate(counts)

	title := "Branch Comparison"
	opponentLabel := "base"
	if kind == history.KindGauntlet {
		title = fmt.Sprintf("fastchess (%s)", opts.TimeControl.Mode)
		opponentLabel = baseName
	}
	res = &MatchResult{
		Test:    test,
		Base:    base,
		Counts:  counts,
		Verdict: verdict,
		Report: report.Match{
			Title:         title,
			Test:          test.DisplayName,
			Base:          base.DisplayName,
			SubjectLabel:  "test",
			OpponentLabel: opponentLabel,
			Verdict:       verdict,
			PGNPath:       outputs.PGN,
			LogPath:       outputs.Log,
		},
	}
	if err := writeFile(outputs.Summary, report.MatchText(res.Report)); err != nil {
		w.logger.Warn("failed to write summary", slog.String("error", err.Error()))
		outputs.Summary = ""
	}

	res.Run = history.Run{
		Kind:        kind,
		StartedAt:   started,
		FinishedAt:  w.now(),
		Test:        test.DisplayName,
		Base:        base.DisplayName,
		TimeControl: opts.TimeControl.String(),
		ExitCode:    res.ExitCode(),
		Verdict:     history.NewVerdictRecord(verdict),
		Artifacts:   history.Artifacts{PGN: outputs.PGN, Log: outputs.Log, Summary: outputs.Summary},
	}
	w.record(ctx, &res.Run)

	span.SetAttributes(
		attribute.String("verdict", verdict.Class.String()),
		attribute.Int("games_played", verdict.Games),
	)
	w.logger.Info("match evaluated",
		slog.String("verdict", verdict.Class.String()),
		slog.Int("games", verdict.Games),
		slog.Float64("elo", verdict.Elo),
		slog.Float64("los", verdict.LOS))
	return res, nil
}

// materializePair resolves the test engine, then the base or external
// one.
func (w *Workflow) materializePair(ctx context.Context, scope *sandbox.Scope, opts MatchOptions) (sandbox.Artifact, sandbox.Artifact, error) {
	ctx, span := w.tracer.Start(ctx, "sandbox.Materialize")
	defer span.End()

	w.logger.Info("preparing test engine", slog.String("ref", opts.Test))
	test, err := scope.Materialize(ctx, opts.Test, "test")
	if err != nil {
		return test, sandbox.Artifact{}, fmt.Errorf("test engine: %w", err)
	}

	ref := opts.Base
	if opts.External != "" {
		ref = opts.External
	}
	w.logger.Info("preparing base engine", slog.String("ref", ref))
	base, err := scope.Materialize(ctx, ref, "base")
	if err != nil {
		return test, base, fmt.Errorf("base engine: %w", err)
	}
	return test, base, nil
}

// playMatch runs the match runner with its output in logPath and, when
// enabled, a progress watcher on the PGN.
func (w *Workflow) playMatch(ctx context.Context, plan match.Plan, logPath string, opts MatchOptions) error {
	ctx, span := w.tracer.Start(ctx, "match.Run",
		trace.WithAttributes(attribute.String("time_control", plan.TimeControl.String())))
	defer span.End()

	logFile, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("create runner log: %w", err)
	}
	defer logFile.Close()

	if opts.Progress {
		stop := w.watchProgress(ctx, plan, opts)
		defer stop()
	}

	cmd := plan.Command()
	cmd.Output = logFile
	w.logger.Info("running match",
		slog.Int("games", plan.Games),
		slog.String("time_control", plan.TimeControl.String()),
		slog.String("pgn", plan.PGNPath))
	if err := w.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("match runner (log: %s): %w", logPath, err)
	}
	return nil
}

// watchProgress starts a progress watcher and returns the function that
// stops it and waits for its final reading.
func (w *Workflow) watchProgress(ctx context.Context, plan match.Plan, opts MatchOptions) func() {
	watcher, err := progress.NewWatcher(progress.Config{
		Path:     plan.PGNPath,
		Subject:  plan.Subject.Name,
		Opponent: plan.Opponent.Name,
		Total:    plan.Games,
		Interval: opts.ProgressInterval,
		Logger:   w.logger,
	})
	if err != nil {
		w.logger.Warn("progress disabled", slog.String("error", err.Error()))
		return func() {}
	}

	watchCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		watcher.Start(watchCtx)
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
