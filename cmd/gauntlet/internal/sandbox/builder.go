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
	"strings"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/infra/process"
)

// Builder turns a source tree into an engine binary.
type Builder interface {
	// Build compiles srcDir into outDir and returns the binary path. It
	// succeeds only if the binary exists afterwards.
	Build(ctx context.Context, srcDir, outDir string) (string, error)
}

// Recipe is a two-step build: configure, then compile.
//
// Arguments may contain {src}, {out} and {target}, which are replaced with
// the source directory, the output directory and Target.
type Recipe struct {
	Configure []string `yaml:"configure"`
	Compile   []string `yaml:"compile" validate:"required,min=1"`
	Target    string   `yaml:"target"`
	Binary    string   `yaml:"binary" validate:"required"`
}

// DefaultRecipe is a CMake Release build of the c3 target.
func DefaultRecipe() Recipe {
	return Recipe{
		Configure: []string{"cmake", "-S", "{src}", "-B", "{out}", "-DCMAKE_BUILD_TYPE=Release"},
		Compile:   []string{"cmake", "--build", "{out}", "--config", "Release", "--target", "{target}"},
		Target:    "c3",
		Binary:    "c3",
	}
}

// ErrBinaryMissing is returned when the build succeeded but produced no
// binary at the expected path.
var ErrBinaryMissing = errors.New("build produced no binary")

// RecipeBuilder runs a Recipe through a process.Runner.
type RecipeBuilder struct {
	recipe Recipe
	runner process.Runner
	logger *slog.Logger
}

// NewRecipeBuilder creates a RecipeBuilder. A nil logger means
// slog.Default().
func NewRecipeBuilder(recipe Recipe, runner process.Runner, logger *slog.Logger) *RecipeBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecipeBuilder{recipe: recipe, runner: runner, logger: logger}
}

// Build runs the configure step (if any) and the compile step. Output of
// both goes to <outDir>/build.log.
func (b *RecipeBuilder) Build(ctx context.Context, srcDir, outDir string) (string, error) {
	if len(b.recipe.Compile) == 0 {
		return "", errors.New("build recipe has no compile step")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create build directory: %w", err)
	}

	logPath := filepath.Join(outDir, "build.log")
	logFile, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("create build log: %w", err)
	}
	defer logFile.Close()

	steps := []struct {
		name string
		argv []string
	}{
		{"configure", b.recipe.Configure},
		{"compile", b.recipe.Compile},
	}
	for _, step := range steps {
		if len(step.argv) == 0 {
			continue
		}
		argv := b.expand(step.argv, srcDir, outDir)
		b.logger.Debug("build step", slog.String("step", step.name), slog.String("command", strings.Join(argv, " ")))
		err := b.runner.Run(ctx, process.Command{
			Name:   argv[0],
			Args:   argv[1:],
			Dir:    srcDir,
			Output: logFile,
		})
		if err != nil {
			return "", fmt.Errorf("%s step (log: %s): %w", step.name, logPath, err)
		}
	}

	binary := filepath.Join(outDir, b.recipe.Binary)
	info, err := os.Stat(binary)
	if err != nil || info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrBinaryMissing, binary)
	}
	return binary, nil
}

func (b *RecipeBuilder) expand(argv []string, srcDir, outDir string) []string {
	r := strings.NewReplacer("{src}", srcDir, "{out}", outDir, "{target}", b.recipe.Target)
	out := make([]string, len(argv))
	for i, a := range argv {
		out[i] = r.Replace(a)
	}
	return out
}

var _ Builder = (*RecipeBuilder)(nil)
