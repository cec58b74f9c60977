// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Scope owns the sandboxes created for one workflow run.
type Scope struct {
	iso       *Isolator
	root      string
	mu        sync.Mutex
	sandboxes []*Sandbox
	slots     map[string]int
	closed    bool
}

// ErrScopeClosed is returned by Materialize after Close.
var ErrScopeClosed = errors.New("sandbox scope closed")

// Root returns the scope's root directory.
func (s *Scope) Root() string {
	return s.root
}

// Sandboxes returns the sandboxes created so far.
func (s *Scope) Sandboxes() []Sandbox {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sandbox, len(s.sandboxes))
	for i, sb := range s.sandboxes {
		out[i] = *sb
	}
	return out
}

// Materialize produces a runnable binary for ref.
//
// # Description
//
// A binary path is returned as is. A git ref is checked out into
// <root>/<slot>/src and built into <root>/<slot>/build. The sandbox is
// registered before the checkout, so Close removes it even when the build
// fails. Reusing a slot name gets a distinct directory.
//
// # Inputs
//
//   - ref: Revision identifier.
//   - slot: Role of the revision ("test", "base"); names the sandbox and
//     the engine.
//
// # Outputs
//
//   - Artifact: The binary and its names.
//   - error: ErrUnknownRevision, *BuildError, or ErrScopeClosed.
func (s *Scope) Materialize(ctx context.Context, ref, slot string) (Artifact, error) {
	rev, err := s.iso.Resolve(ctx, ref)
	if err != nil {
		return Artifact{}, err
	}

	if rev.Kind == KindBinary {
		return Artifact{
			Revision:    rev,
			Name:        filepath.Base(rev.Path),
			DisplayName: rev.Path,
			BinaryPath:  rev.Path,
		}, nil
	}

	sb, err := s.newSandbox(slot)
	if err != nil {
		return Artifact{}, err
	}

	logger := s.iso.logger.With(slog.String("ref", ref), slog.String("slot", slot))
	logger.Info("checking out revision", slog.String("dir", sb.SourceDir))
	if err := s.iso.git.AddWorktree(ctx, sb.SourceDir, ref); err != nil {
		return Artifact{}, &BuildError{Revision: ref, Err: err}
	}
	s.mu.Lock()
	sb.worktree = true
	s.mu.Unlock()

	logger.Info("building revision", slog.String("dir", sb.BuildDir))
	binary, err := s.iso.builder.Build(ctx, sb.SourceDir, sb.BuildDir)
	if err != nil {
		return Artifact{}, &BuildError{Revision: ref, Err: err}
	}

	short := s.iso.git.ShortHash(ctx, ref)
	return Artifact{
		Revision:    rev,
		Name:        slot,
		DisplayName: fmt.Sprintf("%s (%s)", ref, short),
		BinaryPath:  binary,
		Built:       true,
	}, nil
}

func (s *Scope) newSandbox(slot string) (*Sandbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrScopeClosed
	}

	dirName := slot
	if n := s.slots[slot]; n > 0 {
		dirName = fmt.Sprintf("%s-%d", slot, n)
	}
	s.slots[slot]++

	root := filepath.Join(s.root, dirName)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create sandbox %s: %w", dirName, err)
	}
	sb := &Sandbox{
		Slot:      slot,
		Root:      root,
		SourceDir: filepath.Join(root, "src"),
		BuildDir:  filepath.Join(root, "build"),
	}
	s.sandboxes = append(s.sandboxes, sb)
	return sb, nil
}

// Close removes every worktree and the scope root.
//
// # Description
//
// Runs even if ctx is already cancelled (an interrupted run still cleans
// up). Each failure is logged as a warning and never returned. Closing
// twice is a no-op.
func (s *Scope) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	created := len(s.sandboxes)
	var worktrees []string
	for _, sb := range s.sandboxes {
		if sb.worktree {
			worktrees = append(worktrees, sb.SourceDir)
		}
	}
	s.mu.Unlock()

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*s.iso.gitTimeout)
	defer cancel()

	for _, dir := range worktrees {
		if err := s.iso.git.RemoveWorktree(cleanupCtx, dir); err != nil {
			s.iso.logger.Warn("failed to remove worktree",
				slog.String("dir", dir), slog.String("error", err.Error()))
		}
	}

	if err := os.RemoveAll(s.root); err != nil {
		s.iso.logger.Warn("failed to remove sandbox root",
			slog.String("root", s.root), slog.String("error", err.Error()))
	}

	if created > 0 {
		if err := s.iso.git.PruneWorktrees(cleanupCtx); err != nil {
			s.iso.logger.Warn("failed to prune worktrees", slog.String("error", err.Error()))
		}
	}
}

func newSandboxID() string {
	return uuid.NewString()
}
