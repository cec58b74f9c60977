// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
)

func sampleRun(t *testing.T) *history.Run {
	t.Helper()
	dir := t.TempDir()
	pgn := filepath.Join(dir, "compare_20250301_120000.pgn")
	require.NoError(t, os.WriteFile(pgn, []byte("[Result \"1-0\"]\n"), 0o644))
	return &history.Run{
		ID:        "0123456789abcdef",
		Kind:      history.KindCompare,
		StartedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Artifacts: history.Artifacts{
			PGN: pgn,
			Log: filepath.Join(dir, "missing.log"),
		},
	}
}

func TestRunPrefix(t *testing.T) {
	run := &history.Run{ID: "0123456789abcdef", Kind: history.KindBench, StartedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	assert.Equal(t, "bench/20250301-120000-01234567", RunPrefix(run))

	run.ID = ""
	assert.Equal(t, "bench/20250301-120000", RunPrefix(run))
}

func TestDirArchiver_Record(t *testing.T) {
	root := t.TempDir()
	run := sampleRun(t)

	require.NoError(t, NewDirArchiver(root).Record(context.Background(), run))

	dest := filepath.Join(root, "compare", "20250301-120000-01234567")
	assert.FileExists(t, filepath.Join(dest, "compare_20250301_120000.pgn"))
	assert.NoFileExists(t, filepath.Join(dest, "missing.log"))

	data, err := os.ReadFile(filepath.Join(dest, "run.json"))
	require.NoError(t, err)
	var got history.Run
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, run.ID, got.ID)
}

type memObject struct {
	bytes.Buffer
	closed bool
}

func (m *memObject) Close() error {
	m.closed = true
	return nil
}

func TestGCSArchiver_Record(t *testing.T) {
	var mu sync.Mutex
	objects := map[string]*memObject{}
	a := &GCSArchiver{
		bucket: "engine-ci",
		prefix: "gauntlet",
		logger: discardLogger(),
	}
	a.newWriter = func(ctx context.Context, name string) io.WriteCloser {
		mu.Lock()
		defer mu.Unlock()
		obj := &memObject{}
		objects[name] = obj
		return obj
	}

	require.NoError(t, a.Record(context.Background(), sampleRun(t)))

	prefix := "gauntlet/compare/20250301-120000-01234567/"
	require.Contains(t, objects, prefix+"compare_20250301_120000.pgn")
	require.Contains(t, objects, prefix+"run.json")
	assert.NotContains(t, objects, prefix+"missing.log")
	assert.True(t, objects[prefix+"run.json"].closed)
	assert.Contains(t, objects[prefix+"compare_20250301_120000.pgn"].String(), "1-0")
	assert.NoError(t, a.Close())
}

func TestNewGCSArchiver_Validation(t *testing.T) {
	_, err := NewGCSArchiver(context.Background(), GCSConfig{})
	assert.Error(t, err)

	_, err = NewGCSArchiver(context.Background(), GCSConfig{Bucket: "b", CredentialsFile: filepath.Join(t.TempDir(), "key.json")})
	assert.Error(t, err)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
