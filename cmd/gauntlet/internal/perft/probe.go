// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package perft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/infra/process"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/util"
)

// ErrUnparseableOutput is returned when probe output lacks one of the
// nodes, time or nps fields.
var ErrUnparseableOutput = errors.New("unparseable perft output")

var (
	nodesPattern = regexp.MustCompile(`nodes:\s*(\d+)`)
	timePattern  = regexp.MustCompile(`time:\s*(\d+)`)
	npsPattern   = regexp.MustCompile(`nps:\s*(\d+)`)
)

// maxEchoedOutput bounds how much engine output is quoted in an error.
const maxEchoedOutput = 512

// Result is the measurement for one position on one binary.
type Result struct {
	Position Position `json:"position"`
	Nodes    int64    `json:"nodes"`
	TimeMs   int64    `json:"time_ms"`
	NPS      int64    `json:"nps"`
}

// ParseOutput extracts the first nodes/time/nps values from engine output.
//
// # Outputs
//
//   - nodes, timeMs, nps: Parsed values.
//   - error: ErrUnparseableOutput (wrapped, with the output quoted) when
//     any field is missing.
func ParseOutput(output string) (nodes, timeMs, nps int64, err error) {
	fields := []*regexp.Regexp{nodesPattern, timePattern, npsPattern}
	values := make([]int64, len(fields))
	for i, re := range fields {
		m := re.FindStringSubmatch(output)
		if m == nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", ErrUnparseableOutput, truncate(output))
		}
		v, convErr := strconv.ParseInt(m[1], 10, 64)
		if convErr != nil {
			return 0, 0, 0, fmt.Errorf("%w: %s: %v", ErrUnparseableOutput, m[0], convErr)
		}
		values[i] = v
	}
	return values[0], values[1], values[2], nil
}

// Script returns the stdin sent to the engine for pos.
func Script(pos Position) string {
	return fmt.Sprintf("position fen %s\nperft %d\nquit\n", pos.FEN, pos.Depth)
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxEchoedOutput {
		return s[:maxEchoedOutput] + "..."
	}
	return s
}

// =============================================================================
// Prober
// =============================================================================

// Prober runs perft probes through a process.Runner.
type Prober struct {
	runner  process.Runner
	timeout time.Duration
	logger  *slog.Logger
}

// NewProber creates a Prober. A non-positive timeout means
// util.DefaultProbeTimeout. A nil logger means slog.Default().
func NewProber(runner process.Runner, timeout time.Duration, logger *slog.Logger) *Prober {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		runner:  runner,
		timeout: util.EnforceDefaultTimeout(timeout, util.DefaultProbeTimeout),
		logger:  logger,
	}
}

// Probe measures one position on binary.
//
// # Outputs
//
//   - Result: The measurement.
//   - error: process.ErrTimeout, *util.CommandError when the engine
//     failed without printing a measurement, or ErrUnparseableOutput.
func (p *Prober) Probe(ctx context.Context, binary string, pos Position) (Result, error) {
	out, err := p.runner.Probe(ctx, process.Command{
		Name:  binary,
		Stdin: strings.NewReader(Script(pos)),
	}, p.timeout)
	var cmdErr *util.CommandError
	if err != nil && !errors.As(err, &cmdErr) {
		return Result{}, fmt.Errorf("probe %s: %w", pos.Label(), err)
	}

	// Engines that print the perft line and then exit non-zero on quit
	// still produced a measurement.
	nodes, timeMs, nps, parseErr := ParseOutput(string(out))
	if parseErr != nil {
		if cmdErr != nil {
			return Result{}, fmt.Errorf("probe %s: %w", pos.Label(), err)
		}
		return Result{}, fmt.Errorf("probe %s: %w", pos.Label(), parseErr)
	}
	if cmdErr != nil {
		p.logger.Warn("engine exited non-zero after perft output",
			slog.String("position", pos.Label()),
			slog.Int("exit_code", cmdErr.ExitCode),
		)
	}
	return Result{Position: pos, Nodes: nodes, TimeMs: timeMs, NPS: nps}, nil
}

// Suite probes every position in order and stops at the first failure.
//
// # Inputs
//
//   - onResult: Optional callback after each successful probe.
func (p *Prober) Suite(ctx context.Context, binary string, positions []Position, onResult func(Result)) ([]Result, error) {
	results := make([]Result, 0, len(positions))
	for _, pos := range positions {
		res, err := p.Probe(ctx, binary, pos)
		if err != nil {
			return results, err
		}
		p.logger.Info("perft probe",
			slog.String("position", pos.Label()),
			slog.String("nps", FormatNPS(res.NPS)),
			slog.Int64("time_ms", res.TimeMs),
		)
		if onResult != nil {
			onResult(res)
		}
		results = append(results, res)
	}
	return results, nil
}

// FormatNPS renders nps with an M or K suffix and one decimal, e.g.
// "12.3M NPS", "850.0K NPS", "999 NPS".
func FormatNPS(nps int64) string {
	switch {
	case nps >= 1_000_000:
		return fmt.Sprintf("%.1fM NPS", float64(nps)/1_000_000)
	case nps >= 1_000:
		return fmt.Sprintf("%.1fK NPS", float64(nps)/1_000)
	default:
		return fmt.Sprintf("%d NPS", nps)
	}
}
