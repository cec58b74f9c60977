// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sandbox turns revision identifiers into runnable engine
// binaries.
//
// # Description
//
// A revision is either a path to an existing binary, used as is, or a git
// ref, which is checked out into a detached worktree inside a private
// sandbox directory and built there. Sandboxes belong to a Scope; closing
// the Scope removes every worktree and directory it created and only logs
// warnings on failure, so cleanup never hides the run's real result.
//
// # Example
//
//	iso := sandbox.NewIsolator(sandbox.Config{RepoRoot: ".", Runner: sup, Builder: b})
//	scope, err := iso.NewScope("compare")
//	if err != nil { ... }
//	defer scope.Close(ctx)
//
//	test, err := scope.Materialize(ctx, "HEAD", "test")
//	base, err := scope.Materialize(ctx, "main", "base")
//
// # Thread Safety
//
// Isolator is safe for concurrent use. A Scope serializes its own
// bookkeeping, but workflows materialize one revision at a time.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/infra/process"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/util"
	"github.com/AleutianAI/gauntlet/pkg/validation"
)

// =============================================================================
// Errors
// =============================================================================

// ErrUnknownRevision is returned when a revision is neither an existing
// file nor a git ref.
var ErrUnknownRevision = errors.New("unknown revision")

// BuildError reports a revision that could not be checked out or built.
type BuildError struct {
	Revision string
	Err      error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build %s: %v", e.Revision, e.Err)
}

// Unwrap returns the underlying failure.
func (e *BuildError) Unwrap() error {
	return e.Err
}

// =============================================================================
// Types
// =============================================================================

// Kind says how a revision is materialized.
type Kind int

const (
	// KindBinary is a path to an engine binary, used without building.
	KindBinary Kind = iota
	// KindGitRef is a branch, tag, or commit to check out and build.
	KindGitRef
)

// String returns "binary" or "git-ref".
func (k Kind) String() string {
	if k == KindGitRef {
		return "git-ref"
	}
	return "binary"
}

// Revision is a resolved revision identifier.
type Revision struct {
	// Ref is the identifier as given by the user.
	Ref string
	// Kind is how the identifier resolved.
	Kind Kind
	// Path is the absolute binary path for KindBinary.
	Path string
}

// Artifact is a runnable engine binary.
type Artifact struct {
	Revision Revision

	// Name is the engine name used in the match. Built refs are named
	// after their slot ("test", "base"); binaries after their base name.
	Name string

	// DisplayName is "ref (shorthash)" for refs and the path for binaries.
	DisplayName string

	// BinaryPath is the executable to run.
	BinaryPath string

	// Built is true when the binary was produced by this run.
	Built bool
}

// Sandbox is one private checkout plus build directory.
type Sandbox struct {
	Slot      string
	Root      string
	SourceDir string
	BuildDir  string
	worktree  bool
}

// =============================================================================
// Isolator
// =============================================================================

// Config configures an Isolator.
type Config struct {
	// RepoRoot is the engine repository. Default: current directory.
	RepoRoot string

	// TempDir is where scope roots are created. Default: os.TempDir().
	TempDir string

	// Runner executes git and the build.
	Runner process.Runner

	// Builder compiles checkouts. Default: DefaultRecipe via Runner.
	Builder Builder

	// GitTimeout bounds each git command.
	GitTimeout time.Duration

	Logger *slog.Logger
}

// Isolator resolves revisions and hands out Scopes.
type Isolator struct {
	git        *Git
	builder    Builder
	tempDir    string
	gitTimeout time.Duration
	logger     *slog.Logger
	newID      func() string
}

// NewIsolator creates an Isolator.
func NewIsolator(cfg Config) *Isolator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	repoRoot := cfg.RepoRoot
	if repoRoot == "" {
		repoRoot = "."
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	builder := cfg.Builder
	if builder == nil {
		builder = NewRecipeBuilder(DefaultRecipe(), cfg.Runner, logger)
	}
	timeout := util.EnforceDefaultTimeout(cfg.GitTimeout, util.DefaultGitTimeout)
	return &Isolator{
		git:        NewGit(repoRoot, cfg.Runner, timeout),
		builder:    builder,
		tempDir:    tempDir,
		gitTimeout: timeout,
		logger:     logger,
		newID:      newSandboxID,
	}
}

// Git returns the isolator's git client.
func (i *Isolator) Git() *Git {
	return i.git
}

// Resolve classifies ref.
//
// # Description
//
// An existing regular file wins over a git ref of the same name. Refs
// starting with "-" are rejected so they can never be read as git flags.
//
// # Outputs
//
//   - Revision: The resolved revision.
//   - error: ErrUnknownRevision (wrapped with ref) when neither applies.
func (i *Isolator) Resolve(ctx context.Context, ref string) (Revision, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Revision{}, fmt.Errorf("%w: empty revision", ErrUnknownRevision)
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		abs, err := filepath.Abs(ref)
		if err != nil {
			abs = ref
		}
		return Revision{Ref: ref, Kind: KindBinary, Path: abs}, nil
	}
	if err := validation.ValidateRevision(ref); err != nil {
		return Revision{}, fmt.Errorf("%w: %v", ErrUnknownRevision, err)
	}
	if !i.git.IsRef(ctx, ref) {
		return Revision{}, fmt.Errorf("%w: %q is neither a file nor a git ref", ErrUnknownRevision, ref)
	}
	return Revision{Ref: ref, Kind: KindGitRef}, nil
}

// NewScope creates a fresh, uniquely named sandbox root.
//
// # Inputs
//
//   - label: Short tag included in the directory name (e.g. "compare").
func (i *Isolator) NewScope(label string) (*Scope, error) {
	if err := os.MkdirAll(i.tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	root := filepath.Join(i.tempDir, fmt.Sprintf("gauntlet-%s-%s", label, i.newID()))
	if err := os.Mkdir(root, 0o700); err != nil {
		return nil, fmt.Errorf("create sandbox root: %w", err)
	}
	i.logger.Debug("sandbox scope created", slog.String("root", root))
	return &Scope{iso: i, root: root, slots: map[string]int{}}, nil
}
