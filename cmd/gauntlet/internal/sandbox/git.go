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
	"fmt"
	"strings"
	"time"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/infra/process"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/util"
)

// Git runs git commands against the engine repository.
//
// # Description
//
// Every call goes through the process.Runner with a bounded timeout, so
// a git command hung on a lock file is killed like any other child.
//
// # Thread Safety
//
// Safe for concurrent use if the Runner is.
type Git struct {
	repoRoot string
	runner   process.Runner
	timeout  time.Duration
}

// NewGit creates a client rooted at repoRoot. A non-positive timeout means
// util.DefaultGitTimeout.
func NewGit(repoRoot string, runner process.Runner, timeout time.Duration) *Git {
	return &Git{
		repoRoot: repoRoot,
		runner:   runner,
		timeout:  util.EnforceDefaultTimeout(timeout, util.DefaultGitTimeout),
	}
}

// IsRef reports whether ref resolves in the repository
// (`git rev-parse --verify`).
func (g *Git) IsRef(ctx context.Context, ref string) bool {
	_, err := g.run(ctx, "rev-parse", "--verify", "--quiet", ref)
	return err == nil
}

// ShortHash returns the abbreviated commit hash for ref, or ref itself
// when it cannot be resolved.
func (g *Git) ShortHash(ctx context.Context, ref string) string {
	out, err := g.run(ctx, "rev-parse", "--short", ref)
	if err != nil || out == "" {
		return ref
	}
	return out
}

// AddWorktree checks ref out into dir as a detached worktree.
func (g *Git) AddWorktree(ctx context.Context, dir, ref string) error {
	if _, err := g.run(ctx, "worktree", "add", "--detach", dir, ref); err != nil {
		return fmt.Errorf("add worktree for %s: %w", ref, err)
	}
	return nil
}

// RemoveWorktree force-removes the worktree at dir.
func (g *Git) RemoveWorktree(ctx context.Context, dir string) error {
	if _, err := g.run(ctx, "worktree", "remove", "--force", dir); err != nil {
		return fmt.Errorf("remove worktree %s: %w", dir, err)
	}
	return nil
}

// PruneWorktrees drops bookkeeping for worktrees whose directories are
// gone.
func (g *Git) PruneWorktrees(ctx context.Context) error {
	if _, err := g.run(ctx, "worktree", "prune"); err != nil {
		return fmt.Errorf("prune worktrees: %w", err)
	}
	return nil
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	out, err := g.runner.Probe(ctx, process.Command{
		Name: "git",
		Args: args,
		Dir:  g.repoRoot,
	}, g.timeout)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
