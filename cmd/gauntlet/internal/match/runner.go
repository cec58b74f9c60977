// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package match

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/infra/process"
	"github.com/AleutianAI/gauntlet/pkg/validation"
)

// =============================================================================
// Time Control
// =============================================================================

// Mode selects how engines are limited per move.
type Mode string

const (
	// ModeDepth searches every move to a fixed depth.
	ModeDepth Mode = "depth"
	// ModeMoveTime gives every move a fixed wall-clock budget.
	ModeMoveTime Mode = "movetime"
)

// TimeControl limits each engine's search. Exactly one of Depth or
// MoveTime is used, selected by Mode.
type TimeControl struct {
	Mode     Mode
	Depth    int
	MoveTime time.Duration
}

// Validate checks that the selected limit is positive and the mode known.
func (tc TimeControl) Validate() error {
	switch tc.Mode {
	case ModeDepth:
		if tc.Depth <= 0 {
			return fmt.Errorf("depth must be positive, got %d", tc.Depth)
		}
	case ModeMoveTime:
		if tc.MoveTime <= 0 {
			return fmt.Errorf("movetime must be positive, got %s", tc.MoveTime)
		}
	default:
		return fmt.Errorf("unknown time control mode %q", tc.Mode)
	}
	return nil
}

// Arg returns the runner's per-engine limit: "depth=N" or "st=S.SSS".
func (tc TimeControl) Arg() string {
	if tc.Mode == ModeMoveTime {
		return fmt.Sprintf("st=%.3f", tc.MoveTime.Seconds())
	}
	return "depth=" + strconv.Itoa(tc.Depth)
}

// String describes the limit for logs and reports.
func (tc TimeControl) String() string {
	if tc.Mode == ModeMoveTime {
		return "movetime=" + tc.MoveTime.String()
	}
	return "depth=" + strconv.Itoa(tc.Depth)
}

// =============================================================================
// Runner Command
// =============================================================================

// Engine is one participant handed to the runner.
type Engine struct {
	Name   string
	Binary string
}

// Plan describes one match run.
type Plan struct {
	// Runner is the match runner executable. Default: "fastchess".
	Runner string

	// Subject plays every game; Opponent is its single opponent.
	Subject  Engine
	Opponent Engine

	// Games is the number of rounds, one game each.
	Games int

	// Concurrency is how many games run in parallel.
	Concurrency int

	TimeControl TimeControl

	// PGNPath is where the runner writes the match log.
	PGNPath string
}

// Validate checks the plan before the runner is spawned.
func (p Plan) Validate() error {
	var errs []error
	if p.Subject.Binary == "" || p.Opponent.Binary == "" {
		errs = append(errs, errors.New("both engines need a binary"))
	}
	if p.Subject.Name == "" || p.Opponent.Name == "" {
		errs = append(errs, errors.New("both engines need a name"))
	}
	for _, e := range []Engine{p.Subject, p.Opponent} {
		if e.Name == "" {
			continue
		}
		if err := validation.ValidateEngineName(e.Name); err != nil {
			errs = append(errs, err)
		}
	}
	if p.Subject.Name != "" && p.Subject.Name == p.Opponent.Name {
		errs = append(errs, fmt.Errorf("engine names must differ, both are %q", p.Subject.Name))
	}
	if p.Games <= 0 {
		errs = append(errs, fmt.Errorf("games must be positive, got %d", p.Games))
	}
	if p.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("concurrency must be positive, got %d", p.Concurrency))
	}
	if p.PGNPath == "" {
		errs = append(errs, errors.New("a PGN output path is required"))
	}
	if err := p.TimeControl.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Command builds the runner invocation: a seeded single-gauntlet
// tournament, one game per round, PGN output, UCI engines with the shared
// limit, and crash recovery enabled.
func (p Plan) Command() process.Command {
	runner := p.Runner
	if runner == "" {
		runner = "fastchess"
	}
	return process.Command{
		Name: runner,
		Args: []string{
			"-tournament", "gauntlet",
			"-seeds", "1",
			"-engine", "cmd=" + p.Subject.Binary, "name=" + p.Subject.Name,
			"-engine", "cmd=" + p.Opponent.Binary, "name=" + p.Opponent.Name,
			"-rounds", strconv.Itoa(p.Games),
			"-games", "1",
			"-concurrency", strconv.Itoa(p.Concurrency),
			"-pgnout", "file=" + p.PGNPath,
			"-each", "proto=uci", p.TimeControl.Arg(),
			"-recover",
		},
	}
}
