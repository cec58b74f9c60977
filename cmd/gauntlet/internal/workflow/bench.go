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

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/perft"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/report"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/sandbox"
)

// BenchOptions configures a throughput benchmark.
type BenchOptions struct {
	Test string
	Base string

	// Positions default to perft.DefaultPositions.
	Positions []perft.Position

	// Summary is written when non-empty.
	Summary string

	// OnResult is called after each probe with the side ("base" or
	// "test") and the measurement. Optional.
	OnResult func(side string, res perft.Result)
}

// BenchResult is the outcome of a benchmark.
type BenchResult struct {
	Test sandbox.Artifact
	Base sandbox.Artifact

	BaseResults []perft.Result
	TestResults []perft.Result
	Comparison  perft.Comparison

	Report report.Bench
	Run    history.Run
}

// ExitCode is 0 when the gate passes and 1 otherwise.
func (r *BenchResult) ExitCode() int {
	return r.Comparison.ExitCode()
}

// Bench materializes both revisions, probes every position on the base
// engine and then on the test engine, and gates the test results against
// the base.
//
// # Outputs
//
//   - *BenchResult: Comparison and report; nil on error.
//   - error: sandbox.ErrUnknownRevision, *sandbox.BuildError,
//     process.ErrTimeout, *util.CommandError, perft.ErrUnparseableOutput,
//     or the context's cancel cause.
func (w *Workflow) Bench(ctx context.Context, opts BenchOptions) (res *BenchResult, err error) {
	ctx, span := w.tracer.Start(ctx, "workflow.bench",
		trace.WithAttributes(
			attribute.String("test", opts.Test),
			attribute.String("base", opts.Base),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if opts.Test == "" || opts.Base == "" {
		return nil, errors.New("bench: test and base revisions are required")
	}
	if err := w.requireIsolator(); err != nil {
		return nil, err
	}
	positions := opts.Positions
	if len(positions) == 0 {
		positions = perft.DefaultPositions()
	}

	started := w.now()
	scope, err := w.isolator.NewScope(string(history.KindBench))
	if err != nil {
		return nil, err
	}
	defer scope.Close(ctx)

	test, base, err := w.materializePair(ctx, scope, MatchOptions{Test: opts.Test, Base: opts.Base})
	if err != nil {
		return nil, err
	}

	baseResults, err := w.probeSuite(ctx, "base", base, positions, opts.OnResult)
	if err != nil {
		return nil, err
	}
	testResults, err := w.probeSuite(ctx, "test", test, positions, opts.OnResult)
	if err != nil {
		return nil, err
	}

	cmp, err := w.gate.Compare(ctx, baseResults, testResults)
	if err != nil {
		return nil, err
	}

	res = &BenchResult{
		Test:        test,
		Base:        base,
		BaseResults: baseResults,
		TestResults: testResults,
		Comparison:  cmp,
		Report: report.Bench{
			Base:       base.DisplayName,
			Test:       test.DisplayName,
			Comparison: cmp,
		},
	}
	summary := opts.Summary
	if summary != "" {
		if err := writeFile(summary, report.BenchText(res.Report)); err != nil {
			w.logger.Warn("failed to write summary", slog.String("error", err.Error()))
			summary = ""
		}
	}

	res.Run = history.Run{
		Kind:       history.KindBench,
		StartedAt:  started,
		FinishedAt: w.now(),
		Test:       test.DisplayName,
		Base:       base.DisplayName,
		ExitCode:   res.ExitCode(),
		Bench:      &res.Comparison,
		Artifacts:  history.Artifacts{Summary: summary},
	}
	w.record(ctx, &res.Run)

	span.SetAttributes(
		attribute.Int("regressions", cmp.Regressions),
		attribute.Bool("pass", cmp.Pass),
	)
	return res, nil
}

func (w *Workflow) probeSuite(ctx context.Context, side string, art sandbox.Artifact, positions []perft.Position, onResult func(string, perft.Result)) ([]perft.Result, error) {
	ctx, span := w.tracer.Start(ctx, "perft.Suite", trace.WithAttributes(attribute.String("side", side)))
	defer span.End()

	w.logger.Info("benchmarking", slog.String("side", side), slog.String("engine", art.DisplayName))
	var cb func(perft.Result)
	if onResult != nil {
		cb = func(r perft.Result) { onResult(side, r) }
	}
	results, err := w.prober.Suite(ctx, art.BinaryPath, positions, cb)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s engine: %w", side, err)
	}
	return results, nil
}
