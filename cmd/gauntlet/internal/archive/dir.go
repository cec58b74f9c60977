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
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
)

// DirArchiver copies artifacts under a local root directory.
type DirArchiver struct {
	root string
}

// NewDirArchiver creates an archiver rooted at root.
func NewDirArchiver(root string) *DirArchiver {
	return &DirArchiver{root: root}
}

// Record copies run's artifacts and writes run.json. Missing artifacts
// are skipped; a run interrupted before the match started has no PGN.
func (a *DirArchiver) Record(ctx context.Context, run *history.Run) error {
	dest := filepath.Join(a.root, filepath.FromSlash(RunPrefix(run)))
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}

	for _, src := range run.Artifacts.Paths() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFile(src, filepath.Join(dest, filepath.Base(src))); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
	}

	data, err := encodeRun(run)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dest, "run.json"), data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	return out.Close()
}
