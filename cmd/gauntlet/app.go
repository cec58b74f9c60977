// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/config"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/archive"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/infra/process"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/perft"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/sandbox"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/telemetry"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/workflow"
	"github.com/AleutianAI/gauntlet/pkg/logging"
	"github.com/AleutianAI/gauntlet/pkg/ux"
)

// shutdownTimeout bounds flushing spans and closing sinks at exit.
const shutdownTimeout = 10 * time.Second

// app holds the global flags and the loaded configuration. One app
// serves one Execute call.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	repoRoot   string
	logLevel   string
	ci         bool

	cfg    config.Config
	logger *logging.Logger

	// signalCode is 128+n once a run was interrupted by signal n.
	signalCode int
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, logger: logging.Nop()}
}

// load reads the configuration and sets up logging. It runs before every
// subcommand.
func (a *app) load() error {
	repoRoot := a.repoRoot
	if repoRoot == "" {
		repoRoot = "."
	}
	cfg, err := config.Load(a.configPath, repoRoot)
	if err != nil {
		return err
	}
	if a.repoRoot != "" {
		cfg.RepoRoot = a.repoRoot
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "gauntlet",
		JSON:    cfg.Logging.JSON,
		Output:  a.stderr,
	})
	return nil
}

func (a *app) mode() ux.Mode {
	return ux.DetectMode(a.stdout, a.ci)
}

// =============================================================================
// Session
// =============================================================================

// session is everything a workflow command needs for one run: the root
// context, the supervisor and its signal handler, the output directory
// lock, and the sinks. close releases all of it in reverse order.
type session struct {
	ctx      context.Context
	cancel   context.CancelCauseFunc
	workflow *workflow.Workflow
	signals  *process.SignalHandler
	logger   *logging.Logger

	closers []func(context.Context) error
	app     *app
}

// sessionOptions selects the optional parts of a session.
type sessionOptions struct {
	// command tags every log entry of the session.
	command string

	// lock takes the run lock in the output directory.
	lock bool
}

// open builds a session from a.cfg.
func (a *app) open(parent context.Context, opts sessionOptions) (s *session, err error) {
	cfg := a.cfg
	runLogger := a.logger.With(slog.String("command", opts.command))
	logger := runLogger.Slog()

	ctx, cancel := context.WithCancelCause(parent)
	s = &session{ctx: ctx, cancel: cancel, app: a, logger: runLogger}
	defer func() {
		if err != nil {
			s.close()
			s = nil
		}
	}()
	s.onClose(func(context.Context) error { return a.logger.Close() })

	if opts.lock {
		lock := process.NewRunLock(cfg.OutputDir, "gauntlet")
		if err := lock.Acquire(); err != nil {
			return s, err
		}
		s.onClose(func(context.Context) error { return lock.Release() })
	}

	shutdown, err := a.initTracing(ctx)
	if err != nil {
		return s, err
	}
	s.onClose(shutdown)

	timeouts := cfg.TimeoutConfig()
	sup := process.NewSupervisor(process.Config{
		GracePeriod: timeouts.Grace,
		KillWait:    timeouts.KillWait,
		Logger:      logger,
	})
	s.signals = sup.HandleSignals(cancel, nil)
	s.onClose(func(context.Context) error {
		a.signalCode = s.signals.ExitCode()
		s.signals.Stop()
		sup.Cleanup()
		return nil
	})

	sinks, err := a.sinks(ctx, s)
	if err != nil {
		return s, err
	}

	s.workflow = workflow.New(workflow.Deps{
		Runner: sup,
		Isolator: sandbox.NewIsolator(sandbox.Config{
			RepoRoot:   cfg.RepoRoot,
			TempDir:    cfg.TempDir,
			Runner:     sup,
			Builder:    sandbox.NewRecipeBuilder(cfg.Build, sup, logger),
			GitTimeout: timeouts.Git,
			Logger:     logger,
		}),
		Prober: perft.NewProber(sup, timeouts.Probe, logger),
		Gate: perft.NewGate(
			perft.WithThreshold(cfg.Bench.Threshold),
			perft.WithAllowedRegressions(cfg.Bench.AllowedRegressions),
			perft.WithGateLogger(logger),
		),
		Sinks:  sinks,
		Logger: logger,
	})

	ready := []any{slog.String("output_dir", cfg.OutputDir)}
	if path := a.logger.FilePath(); path != "" {
		ready = append(ready, slog.String("log_file", path))
	}
	runLogger.Info("session ready", ready...)
	return s, nil
}

func (a *app) initTracing(ctx context.Context) (func(context.Context) error, error) {
	cfg := a.cfg.Tracing
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}
	var out io.Writer = a.stderr
	var file *os.File
	if cfg.Output != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
			return nil, fmt.Errorf("create trace directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open trace output: %w", err)
		}
		out, file = f, f
	}
	shutdown, err := telemetry.Init(ctx, telemetry.TracingConfig{
		Enabled:        true,
		ServiceName:    "gauntlet",
		ServiceVersion: version,
		Output:         out,
	})
	if err != nil {
		if file != nil {
			_ = file.Close()
		}
		return nil, err
	}
	return func(ctx context.Context) error {
		err := shutdown(ctx)
		if file != nil {
			err = errors.Join(err, file.Close())
		}
		return err
	}, nil
}

// sinks creates the configured run sinks. The history store comes first
// so the run ID it assigns is visible to the archives.
func (a *app) sinks(ctx context.Context, s *session) ([]workflow.Sink, error) {
	cfg := a.cfg
	logger := a.logger.Slog()
	var sinks []workflow.Sink

	if cfg.History.Enabled {
		store, err := history.Open(history.Config{Path: cfg.History.Path, Logger: logger})
		if err != nil {
			return nil, err
		}
		s.onClose(func(context.Context) error { return store.Close() })
		sinks = append(sinks, store)
	}

	sinks = append(sinks, telemetry.NewMetrics(cfg.Metrics.Textfile))

	if cfg.Influx.URL != "" {
		sink, err := telemetry.NewInfluxSink(telemetry.InfluxConfig{
			URL:    cfg.Influx.URL,
			Token:  cfg.Influx.Token,
			Org:    cfg.Influx.Org,
			Bucket: cfg.Influx.Bucket,
		})
		if err != nil {
			return nil, err
		}
		s.onClose(func(context.Context) error { sink.Close(); return nil })
		sinks = append(sinks, sink)
	}

	if cfg.Archive.Dir != "" {
		sinks = append(sinks, archive.NewDirArchiver(cfg.Archive.Dir))
	}
	if cfg.Archive.GCSBucket != "" {
		gcs, err := archive.NewGCSArchiver(ctx, archive.GCSConfig{
			Bucket:          cfg.Archive.GCSBucket,
			Prefix:          cfg.Archive.GCSPrefix,
			CredentialsFile: cfg.Archive.CredentialsFile,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		s.onClose(func(context.Context) error { return gcs.Close() })
		sinks = append(sinks, gcs)
	}
	return sinks, nil
}

// fail logs a workflow error before it is reported, so the failure is
// also in the JSON log file.
func (s *session) fail(err error) error {
	s.logger.Error("run failed", slog.String("error", err.Error()))
	return err
}

func (s *session) onClose(fn func(context.Context) error) {
	s.closers = append(s.closers, fn)
}

// close releases the session in reverse order of acquisition. Failures
// are logged; they never change the exit status.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.logger.Warn("shutdown step failed", slog.String("error", err.Error()))
		}
	}
	s.closers = nil
	s.cancel(nil)
}
