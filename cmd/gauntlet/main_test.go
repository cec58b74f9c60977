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
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cli struct {
	t      *testing.T
	dir    string
	config string
}

// newCLI writes a config file that keeps every output inside a temp dir.
func newCLI(t *testing.T) *cli {
	dir := t.TempDir()
	body := fmt.Sprintf(`
output_dir: %[1]s/out
temp_dir: %[1]s/tmp
history:
  enabled: true
  path: %[1]s/history
metrics:
  textfile: %[1]s/metrics/gauntlet.prom
`, dir)
	path := filepath.Join(dir, "gauntlet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return &cli{t: t, dir: dir, config: path}
}

func (c *cli) run(args ...string) (int, string, string) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args, "--config", c.config, "--repo", c.dir)
	code := Execute(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func (c *cli) pgn(wins, losses, draws int) string {
	c.t.Helper()
	var b strings.Builder
	for i := 0; i < wins; i++ {
		fmt.Fprintf(&b, "[White \"c3\"]\n[Black \"sf\"]\n[Result \"1-0\"]\n\n1. e4 1-0\n\n")
	}
	for i := 0; i < losses; i++ {
		fmt.Fprintf(&b, "[White \"c3\"]\n[Black \"sf\"]\n[Result \"0-1\"]\n\n1. e4 0-1\n\n")
	}
	for i := 0; i < draws; i++ {
		fmt.Fprintf(&b, "[White \"sf\"]\n[Black \"c3\"]\n[Result \"1/2-1/2\"]\n\n1. e4 1/2-1/2\n\n")
	}
	path := filepath.Join(c.dir, fmt.Sprintf("games_%d_%d_%d.pgn", wins, losses, draws))
	require.NoError(c.t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestExecute_Version(t *testing.T) {
	var stdout bytes.Buffer
	code := Execute([]string{"--version"}, &stdout, &bytes.Buffer{})
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), version)
}

func TestExecute_ConfigDefaults(t *testing.T) {
	c := newCLI(t)
	code, out, _ := c.run("config", "--defaults")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "match_runner: fastchess")
	assert.Contains(t, out, "games: 200")
}

func TestExecute_ConfigRedactsToken(t *testing.T) {
	c := newCLI(t)
	t.Setenv("GAUNTLET_INFLUX_TOKEN", "s3cret")
	code, out, _ := c.run("config")
	require.Equal(t, 0, code)
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "<redacted>")
}

func TestExecute_InvalidConfig(t *testing.T) {
	c := newCLI(t)
	require.NoError(t, os.WriteFile(c.config, []byte("match:\n  games: 0\n"), 0o644))

	code, _, stderr := c.run("summarize", c.pgn(1, 0, 0))
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "invalid config")
}

func TestExecute_SummarizeCI(t *testing.T) {
	tests := []struct {
		name                string
		wins, losses, draws int
		wantCode            int
		wantResult          string
	}{
		{"stronger", 20, 2, 4, 0, "result=Test appears stronger"},
		{"weaker", 2, 20, 4, 1, "result=Test appears weaker"},
		{"inconclusive", 5, 5, 10, 2, "result=Inconclusive"},
		{"no games", 0, 0, 0, 3, "result=No games completed."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCLI(t)
			code, out, stderr := c.run("summarize", c.pgn(tt.wins, tt.losses, tt.draws),
				"--subject", "c3", "--opponent-name", "sf", "--ci")

			assert.Equal(t, tt.wantCode, code, stderr)
			assert.Contains(t, out, "test=c3\n")
			assert.Contains(t, out, fmt.Sprintf("games=%d\n", tt.wins+tt.losses+tt.draws))
			assert.Contains(t, out, tt.wantResult)
		})
	}
}

func TestExecute_SummarizeHuman(t *testing.T) {
	c := newCLI(t)
	summary := filepath.Join(c.dir, "summary.txt")
	code, out, _ := c.run("summarize", c.pgn(3, 1, 2), "--opponent-name", "sf", "--summary", summary)

	assert.Equal(t, 2, code)
	assert.Contains(t, out, "W/D/L (c3 vs sf): 3/2/1")
	data, err := os.ReadFile(summary)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
	assert.FileExists(t, filepath.Join(c.dir, "metrics", "gauntlet.prom"))
}

func TestExecute_SummarizeMissingPGN(t *testing.T) {
	c := newCLI(t)
	code, _, stderr := c.run("summarize", filepath.Join(c.dir, "missing.pgn"))
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "not found")
}

func TestExecute_SessionLogFile(t *testing.T) {
	c := newCLI(t)
	logDir := filepath.Join(c.dir, "logs")
	f, err := os.OpenFile(c.config, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fmt.Fprintf(f, "logging:\n  dir: %s\n", logDir)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	code, _, stderr := c.run("summarize", filepath.Join(c.dir, "missing.pgn"))
	require.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "session ready")

	files, err := filepath.Glob(filepath.Join(logDir, "gauntlet_*.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	log := string(data)
	assert.Contains(t, log, `"msg":"session ready"`)
	assert.Contains(t, log, `"command":"summarize"`)
	assert.Contains(t, log, `"log_file":"`+files[0]+`"`)
	assert.Contains(t, log, `"msg":"run failed"`)
}

func TestExecute_History(t *testing.T) {
	c := newCLI(t)

	code, out, _ := c.run("history")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "No recorded runs.")

	code, _, _ = c.run("summarize", c.pgn(20, 2, 4), "--opponent-name", "sf")
	require.Equal(t, 0, code)
	code, _, _ = c.run("summarize", c.pgn(2, 20, 4), "--opponent-name", "sf")
	require.Equal(t, 1, code)

	code, out, _ = c.run("history", "--ci")
	require.Equal(t, 0, code)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var newest struct {
		ID       string `json:"id"`
		Kind     string `json:"kind"`
		ExitCode int    `json:"exit_code"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &newest))
	assert.Equal(t, "summarize", newest.Kind)
	assert.Equal(t, 1, newest.ExitCode)

	code, out, _ = c.run("history", "--limit", "1")
	require.Equal(t, 0, code)
	assert.Contains(t, out, newest.ID[:8])
	assert.Contains(t, out, "weaker")

	code, out, _ = c.run("history", "show", newest.ID)
	require.Equal(t, 0, code)
	assert.Contains(t, out, newest.ID)
	assert.Contains(t, out, "W/D/L:")

	code, _, stderr := c.run("history", "show", "no-such-run")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "not found")

	code, _, stderr = c.run("history", "--kind", "blitz")
	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "unknown run kind")
}

func TestExecute_CompareWithoutRunner(t *testing.T) {
	c := newCLI(t)
	code, _, stderr := c.run("compare", "--fastchess", "no-such-fastchess-binary", "--test", "a", "--base", "b")

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "match runner not found")
}

func TestExecute_CompareBadMode(t *testing.T) {
	c := newCLI(t)
	code, _, stderr := c.run("compare", "--mode", "blitz")

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "Mode")
}

func TestExecute_GauntletRequiresOpponent(t *testing.T) {
	c := newCLI(t)
	code, _, stderr := c.run("gauntlet")

	assert.Equal(t, ExitFailure, code)
	assert.Contains(t, stderr, "opponent")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		signalCode int
		want       int
		wantStderr string
	}{
		{"success", nil, 0, 0, ""},
		{"verdict", &ExitError{Code: 2}, 0, 2, ""},
		{"wrapped verdict", fmt.Errorf("run: %w", &ExitError{Code: 1}), 0, 1, ""},
		{"failure", errors.New("build main: exit status 2"), 0, ExitFailure, "build main"},
		{"verdict with cause", &ExitError{Code: 5, Err: errors.New("boom")}, 0, 5, "boom"},
		{"signal wins", errors.New("interrupted"), 130, 130, "interrupted"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			a := newApp(&bytes.Buffer{}, &stderr)
			a.signalCode = tt.signalCode

			assert.Equal(t, tt.want, a.exitCode(tt.err))
			if tt.wantStderr == "" {
				assert.Empty(t, stderr.String())
			} else {
				assert.Contains(t, stderr.String(), tt.wantStderr)
			}
		})
	}
}

func TestVerdictExit(t *testing.T) {
	assert.NoError(t, verdictExit(0))
	var exitErr *ExitError
	require.ErrorAs(t, verdictExit(3), &exitErr)
	assert.Equal(t, 3, exitErr.Code)
}
