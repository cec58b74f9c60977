// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package workflow composes the sandbox, match runner, parser, statistics,
// and perft probes into the user-facing runs: compare, gauntlet,
// summarize, and bench.
//
// A workflow runs on one goroutine and starts at most one child process
// at a time through the process.Runner. Every sandbox it creates is
// released before it returns, whatever the outcome.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/infra/process"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/perft"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/sandbox"
)

// ErrRunnerNotFound is returned when the match runner executable is not
// on PATH.
var ErrRunnerNotFound = errors.New("match runner not found")

// Sink receives every finished run: the history store, metrics,
// time-series, and archive exporters all implement it.
type Sink interface {
	Record(ctx context.Context, run *history.Run) error
}

// Deps are the collaborators of a Workflow.
type Deps struct {
	// Runner spawns the match runner and probes.
	Runner process.Runner

	// Isolator materializes revisions. Required for compare, gauntlet and
	// bench.
	Isolator *sandbox.Isolator

	// Prober measures perft throughput. Default: a Prober over Runner.
	Prober *perft.Prober

	// Gate compares benchmark results. Default: perft.NewGate().
	Gate *perft.Gate

	// Sinks are notified after each successful run, in order. Sink
	// failures are logged and do not change the outcome.
	Sinks []Sink

	Logger *slog.Logger

	// Now and LookPath are replaceable for tests.
	Now      func() time.Time
	LookPath func(string) (string, error)
}

// Workflow runs the regression workflows.
type Workflow struct {
	runner   process.Runner
	isolator *sandbox.Isolator
	prober   *perft.Prober
	gate     *perft.Gate
	sinks    []Sink
	logger   *slog.Logger
	now      func() time.Time
	lookPath func(string) (string, error)
	tracer   trace.Tracer
}

// New creates a Workflow, filling defaults.
func New(deps Deps) *Workflow {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	w := &Workflow{
		runner:   deps.Runner,
		isolator: deps.Isolator,
		prober:   deps.Prober,
		gate:     deps.Gate,
		sinks:    deps.Sinks,
		logger:   logger,
		now:      deps.Now,
		lookPath: deps.LookPath,
		tracer:   otel.Tracer("gauntlet/workflow"),
	}
	if w.prober == nil {
		w.prober = perft.NewProber(deps.Runner, 0, logger)
	}
	if w.gate == nil {
		w.gate = perft.NewGate(perft.WithGateLogger(logger))
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.lookPath == nil {
		w.lookPath = exec.LookPath
	}
	return w
}

// =============================================================================
// Output files
// =============================================================================

// Outputs locates the files a run writes. Empty paths get timestamped
// defaults inside Dir.
type Outputs struct {
	Dir     string
	PGN     string
	Log     string
	Summary string
}

// resolve fills empty paths with "<Dir>/<prefix>_<YYYYMMDD_HHMMSS>.<ext>"
// and creates the parent directories.
func (o Outputs) resolve(prefix string, now time.Time) (Outputs, error) {
	dir := o.Dir
	if dir == "" {
		dir = "."
	}
	stamp := now.Format("20060102_150405")
	name := func(ext string) string {
		return filepath.Join(dir, fmt.Sprintf("%s_%s.%s", prefix, stamp, ext))
	}
	if o.PGN == "" {
		o.PGN = name("pgn")
	}
	if o.Log == "" {
		o.Log = name("log")
	}
	if o.Summary == "" {
		o.Summary = name("txt")
	}
	o.Dir = dir
	for _, p := range []string{o.PGN, o.Log, o.Summary} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return o, fmt.Errorf("create output directory: %w", err)
		}
	}
	return o, nil
}

// =============================================================================
// Helpers
// =============================================================================

// record notifies the sinks. The run is passed by pointer so the history
// store can assign its ID before the archive uses it.
func (w *Workflow) record(ctx context.Context, run *history.Run) {
	for _, sink := range w.sinks {
		if err := sink.Record(ctx, run); err != nil {
			w.logger.Warn("failed to record run",
				slog.String("sink", fmt.Sprintf("%T", sink)),
				slog.String("error", err.Error()))
		}
	}
}

func (w *Workflow) requireIsolator() error {
	if w.isolator == nil {
		return errors.New("workflow: no build isolator configured")
	}
	return nil
}

// engineNames returns distinct match names for two artifacts. Identical
// names (two binaries called "c3") get "-test" and "-base" suffixes.
func engineNames(test, base string) (string, string) {
	if test != base {
		return test, base
	}
	return test + "-test", base + "-base"
}

func writeFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
