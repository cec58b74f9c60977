// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package progress reports a running match by watching the PGN file the
// match runner appends to.
//
// The watcher only reads the file. It never spawns processes, so it can
// run next to the supervised match runner without touching the
// single-active-child rule.
package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/match"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/stats"
)

// DefaultInterval is the minimum time between two progress reports.
const DefaultInterval = 2 * time.Second

// Snapshot is the tally at one point in the match.
type Snapshot struct {
	Counts stats.Counts

	// Total is the number of games requested, or 0 if unknown.
	Total int
}

// Games returns the number of finished games.
func (s Snapshot) Games() int {
	return s.Counts.Games()
}

// String renders "37/200 games, +20 -10 =7, score 0.635".
func (s Snapshot) String() string {
	total := "?"
	if s.Total > 0 {
		total = fmt.Sprint(s.Total)
	}
	return fmt.Sprintf("%d/%s games, +%d -%d =%d, score %.3f",
		s.Games(), total, s.Counts.Wins, s.Counts.Losses, s.Counts.Draws, s.Counts.Score())
}

// Config configures a Watcher.
type Config struct {
	// Path is the PGN file. Its directory must exist.
	Path string

	// Subject and Opponent are passed to the aggregator.
	Subject  string
	Opponent string

	// Total is the number of games requested.
	Total int

	// Interval throttles reports. Default: DefaultInterval.
	Interval time.Duration

	Logger *slog.Logger

	// OnUpdate is called with each reported snapshot. Optional.
	OnUpdate func(Snapshot)
}

// Watcher tails a PGN file.
//
// # Thread Safety
//
// Latest may be called from any goroutine. Start must be called once.
type Watcher struct {
	cfg     Config
	path    string
	watcher *fsnotify.Watcher
	limiter *rate.Limiter
	logger  *slog.Logger

	mu     sync.Mutex
	latest Snapshot
}

// NewWatcher creates a watcher on the directory holding cfg.Path.
//
// # Outputs
//
//   - *Watcher: Ready to Start.
//   - error: Non-nil if the directory cannot be watched.
func NewWatcher(cfg Config) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, errors.New("progress: path is required")
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("progress: resolve %s: %w", cfg.Path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("progress: create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("progress: watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		cfg:     cfg,
		path:    path,
		watcher: fw,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		logger:  logger,
		latest:  Snapshot{Counts: stats.Counts{Subject: cfg.Subject, Opponent: cfg.Opponent}, Total: cfg.Total},
	}, nil
}

// Start processes file events until ctx is done, then takes a final
// reading and closes the underlying watcher. Run it in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) || !w.limiter.Allow() {
				continue
			}
			w.refresh(false)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("progress watcher error", slog.String("error", err.Error()))

		case <-ctx.Done():
			w.refresh(true)
			return
		}
	}
}

// Latest returns the most recent snapshot.
func (w *Watcher) Latest() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.latest
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	name, err := filepath.Abs(event.Name)
	return err == nil && name == w.path
}

// refresh re-reads the file and reports when the game count changed.
// A final refresh always reports.
func (w *Watcher) refresh(final bool) {
	counts, err := match.AggregateFile(w.path, w.cfg.Subject, w.cfg.Opponent)
	if err != nil {
		if !errors.Is(err, match.ErrLogNotFound) {
			w.logger.Debug("progress read failed", slog.String("error", err.Error()))
		}
		return
	}

	snap := Snapshot{Counts: counts, Total: w.cfg.Total}
	w.mu.Lock()
	changed := snap.Games() != w.latest.Games()
	w.latest = snap
	w.mu.Unlock()

	if !changed && !final {
		return
	}
	w.logger.Info("match progress", slog.String("progress", snap.String()))
	if w.cfg.OnUpdate != nil {
		w.cfg.OnUpdate(snap)
	}
}
