// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultConfig_IsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "")
	cfg, err := Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, 200, cfg.Match.Games)
}

func TestLoad_OverridesFieldByField(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
match_runner: /opt/fastchess
match:
  games: 50
  mode: movetime
timeouts:
  grace: 10s
bench:
  threshold: 2.5
  positions:
    - name: startpos
      fen: rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1
      depth: 4
`)
	cfg, err := Load("", dir)
	require.NoError(t, err)

	assert.Equal(t, "/opt/fastchess", cfg.MatchRunner)
	assert.Equal(t, 50, cfg.Match.Games)
	assert.Equal(t, "movetime", cfg.Match.Mode)
	assert.Equal(t, 4, cfg.Match.Concurrency)
	assert.Equal(t, 10*time.Second, cfg.Timeouts.Grace)
	assert.Equal(t, 2.5, cfg.Bench.Threshold)
	require.Len(t, cfg.Bench.Positions, 1)
	assert.Equal(t, 4, cfg.Bench.Positions[0].Depth)
	assert.Equal(t, "c3", cfg.Build.Binary)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "gamez: 10\n")
	_, err := Load("", dir)
	assert.Error(t, err)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad mode", "match:\n  mode: bullet\n", "Mode"},
		{"zero games", "match:\n  games: 0\n", "Games"},
		{"negative threshold", "bench:\n  threshold: -1\n", "Threshold"},
		{"deep position", "bench:\n  positions:\n    - {name: x, fen: y, depth: 40}\n", "Depth"},
		{"influx without org", "influx:\n  url: http://localhost:8086\n  bucket: b\n", "Org"},
		{"history without path", "history:\n  enabled: true\n  path: \"\"\n", "Path"},
		{"no compile step", "build:\n  compile: []\n", "Compile"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.body)
			_, err := Load("", dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GAUNTLET_MATCH_RUNNER", "/usr/local/bin/fastchess")
	t.Setenv("GAUNTLET_CONCURRENCY", "16")
	t.Setenv("GAUNTLET_LOG_LEVEL", "DEBUG")

	cfg, err := Load("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/fastchess", cfg.MatchRunner)
	assert.Equal(t, 16, cfg.Match.Concurrency)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestMarshal_RoundTripsDefaults(t *testing.T) {
	data, err := Marshal(DefaultConfig())
	require.NoError(t, err)

	dir := t.TempDir()
	writeConfig(t, dir, string(data))
	cfg, err := Load("", dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestTimeoutConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timeouts.Grace = 0
	tc := cfg.TimeoutConfig()
	assert.Equal(t, 5*time.Second, tc.Grace)
	assert.Equal(t, cfg.Bench.ProbeTimeout, tc.Probe)
}
