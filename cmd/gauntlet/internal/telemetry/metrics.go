// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package telemetry exports run results outside the process.

Three independent sinks are provided:

  - Metrics: Prometheus gauges written to a node-exporter textfile after
    each run, since the CLI lives too briefly to be scraped.
  - Init: OpenTelemetry tracing with a stdout exporter, covering the
    workflow stages (build, match, probe, evaluate).
  - InfluxSink: one point per run (and per benchmark position) for
    long-term Elo and NPS trends.

# Metrics Exported

  - gauntlet_run_exit_code{kind}: Exit code of the last run
  - gauntlet_run_duration_seconds{kind}: Wall time of the last run
  - gauntlet_run_timestamp_seconds{kind}: Finish time of the last run
  - gauntlet_match_games{kind}: Games in the last match
  - gauntlet_match_elo{kind}: Elo difference, test minus base
  - gauntlet_match_elo_error{kind}: Standard error of the Elo difference
  - gauntlet_match_los{kind}: Likelihood of superiority (0..1)
  - gauntlet_perft_nps{position,side}: Nodes per second, side = base|test
  - gauntlet_perft_diff_percent{position}: Test vs base NPS change
  - gauntlet_perft_regressions: Regressed positions in the last benchmark
*/
package telemetry

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
)

const metricsNamespace = "gauntlet"

// Metrics holds the gauges for one process on a private registry.
//
// # Thread Safety
//
// Safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry
	textfile string

	exitCode  *prometheus.GaugeVec
	duration  *prometheus.GaugeVec
	timestamp *prometheus.GaugeVec

	games    *prometheus.GaugeVec
	elo      *prometheus.GaugeVec
	eloError *prometheus.GaugeVec
	los      *prometheus.GaugeVec

	nps         *prometheus.GaugeVec
	diff        *prometheus.GaugeVec
	regressions prometheus.Gauge
}

// NewMetrics creates and registers the gauges.
//
// # Inputs
//
//   - textfile: Path written by Record. Empty disables writing; the gauges
//     are still updated.
func NewMetrics(textfile string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		textfile: textfile,

		exitCode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "run", Name: "exit_code",
			Help: "Exit code of the last run.",
		}, []string{"kind"}),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "run", Name: "duration_seconds",
			Help: "Wall time of the last run.",
		}, []string{"kind"}),
		timestamp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "run", Name: "timestamp_seconds",
			Help: "Unix time the last run finished.",
		}, []string{"kind"}),

		games: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "match", Name: "games",
			Help: "Games counted in the last match.",
		}, []string{"kind"}),
		elo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "match", Name: "elo",
			Help: "Elo difference of the test engine.",
		}, []string{"kind"}),
		eloError: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "match", Name: "elo_error",
			Help: "Standard error of the Elo difference.",
		}, []string{"kind"}),
		los: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "match", Name: "los",
			Help: "Likelihood that the test engine is stronger.",
		}, []string{"kind"}),

		nps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "perft", Name: "nps",
			Help: "Perft nodes per second.",
		}, []string{"position", "side"}),
		diff: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "perft", Name: "diff_percent",
			Help: "Test NPS change relative to base, in percent.",
		}, []string{"position"}),
		regressions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Subsystem: "perft", Name: "regressions",
			Help: "Regressed positions in the last benchmark.",
		}),
	}

	m.registry.MustRegister(
		m.exitCode, m.duration, m.timestamp,
		m.games, m.elo, m.eloError, m.los,
		m.nps, m.diff, m.regressions,
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe updates the gauges from run.
func (m *Metrics) Observe(run *history.Run) {
	kind := string(run.Kind)
	m.exitCode.WithLabelValues(kind).Set(float64(run.ExitCode))
	m.duration.WithLabelValues(kind).Set(run.Duration().Seconds())
	if !run.FinishedAt.IsZero() {
		m.timestamp.WithLabelValues(kind).Set(float64(run.FinishedAt.Unix()))
	}

	if v := run.Verdict; v != nil {
		m.games.WithLabelValues(kind).Set(float64(v.Games))
		m.los.WithLabelValues(kind).Set(v.LOS)
		if v.Games > 0 {
			m.elo.WithLabelValues(kind).Set(v.Elo)
		}
		if v.EloError != nil {
			m.eloError.WithLabelValues(kind).Set(*v.EloError)
		}
	}

	if b := run.Bench; b != nil {
		for _, row := range b.Rows {
			m.nps.WithLabelValues(row.Position.Name, "base").Set(float64(row.BaseNPS))
			m.nps.WithLabelValues(row.Position.Name, "test").Set(float64(row.TestNPS))
			m.diff.WithLabelValues(row.Position.Name).Set(row.DiffPct)
		}
		m.regressions.Set(float64(b.Regressions))
	}
}

// Record observes run and rewrites the textfile, if configured.
func (m *Metrics) Record(_ context.Context, run *history.Run) error {
	m.Observe(run)
	if m.textfile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.textfile), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(m.textfile, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
