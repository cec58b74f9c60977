// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the gauntlet configuration file schema, its
// defaults, and the loader.
//
// The file is YAML. Every field has a default, so an absent file is the
// same as an empty one. Durations use Go syntax ("5s", "2m").
package config

import (
	"time"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/perft"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/sandbox"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/util"
)

// DefaultFileName is looked up in the repository root when --config is
// not given.
const DefaultFileName = "gauntlet.yaml"

// Config is the root of the configuration file.
type Config struct {
	// RepoRoot is the engine repository. Default: current directory.
	RepoRoot string `yaml:"repo_root"`

	// OutputDir receives PGN files, runner logs, and summaries.
	OutputDir string `yaml:"output_dir" validate:"required"`

	// TempDir is where sandbox scopes are created. Default: os.TempDir().
	TempDir string `yaml:"temp_dir"`

	// MatchRunner is the fastchess executable.
	MatchRunner string `yaml:"match_runner" validate:"required"`

	Build    sandbox.Recipe `yaml:"build"`
	Match    MatchConfig    `yaml:"match"`
	Bench    BenchConfig    `yaml:"bench"`
	Timeouts TimeoutsConfig `yaml:"timeouts"`
	Logging  LoggingConfig  `yaml:"logging"`
	History  HistoryConfig  `yaml:"history"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Influx   InfluxConfig   `yaml:"influx"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

// MatchConfig holds the defaults for compare and gauntlet runs.
type MatchConfig struct {
	Games       int    `yaml:"games" validate:"gt=0"`
	Concurrency int    `yaml:"concurrency" validate:"gt=0"`
	Mode        string `yaml:"mode" validate:"oneof=depth movetime"`
	Depth       int    `yaml:"depth" validate:"gt=0"`
	MoveTimeMs  int    `yaml:"movetime_ms" validate:"gt=0"`

	// Progress enables live progress lines while the match runs.
	Progress bool `yaml:"progress"`
}

// BenchConfig holds the throughput benchmark settings.
type BenchConfig struct {
	// Threshold is the allowed slowdown in percent.
	Threshold float64 `yaml:"threshold" validate:"gte=0"`

	// AllowedRegressions is how many regressed positions still pass.
	AllowedRegressions int `yaml:"allowed_regressions" validate:"gte=0"`

	// ProbeTimeout bounds one probe of one position.
	ProbeTimeout time.Duration `yaml:"probe_timeout" validate:"gte=0"`

	Positions []perft.Position `yaml:"positions" validate:"min=1,dive"`
}

// TimeoutsConfig tunes child-process teardown and git.
type TimeoutsConfig struct {
	Grace    time.Duration `yaml:"grace" validate:"gte=0"`
	KillWait time.Duration `yaml:"kill_wait" validate:"gte=0"`
	Git      time.Duration `yaml:"git" validate:"gte=0"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// HistoryConfig configures the run-history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path" validate:"required_if=Enabled true"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	// Textfile is written after each run when set, for the node exporter
	// textfile collector.
	Textfile string `yaml:"textfile"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`

	// Output is the file spans are written to. Empty means stderr.
	Output string `yaml:"output"`
}

// InfluxConfig configures the optional time-series sink. The sink is
// enabled when URL is set.
type InfluxConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org" validate:"required_with=URL"`
	Bucket string `yaml:"bucket" validate:"required_with=URL"`
}

// ArchiveConfig configures where run artifacts are copied after a run.
// Dir and GCSBucket may both be set.
type ArchiveConfig struct {
	Dir             string `yaml:"dir"`
	GCSBucket       string `yaml:"gcs_bucket"`
	GCSPrefix       string `yaml:"gcs_prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		RepoRoot:    ".",
		OutputDir:   "Testing/fastchess",
		MatchRunner: "fastchess",
		Build:       sandbox.DefaultRecipe(),
		Match: MatchConfig{
			Games:       200,
			Concurrency: 4,
			Mode:        "depth",
			Depth:       5,
			MoveTimeMs:  50,
		},
		Bench: BenchConfig{
			Threshold:    perft.DefaultThreshold,
			ProbeTimeout: util.DefaultProbeTimeout,
			Positions:    perft.DefaultPositions(),
		},
		Timeouts: TimeoutsConfig{
			Grace:    util.DefaultGracePeriod,
			KillWait: util.DefaultKillWait,
			Git:      util.DefaultGitTimeout,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		History: HistoryConfig{
			Path: "Testing/fastchess/history",
		},
	}
}

// TimeoutConfig converts the teardown and git settings.
func (c Config) TimeoutConfig() util.TimeoutConfig {
	return util.TimeoutConfig{
		Grace:    c.Timeouts.Grace,
		KillWait: c.Timeouts.KillWait,
		Probe:    c.Bench.ProbeTimeout,
		Git:      c.Timeouts.Git,
	}.Validated()
}
