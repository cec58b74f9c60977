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
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DefaultThreshold is the allowed NPS drop in percent.
const DefaultThreshold = 5.0

// =============================================================================
// Gate Configuration
// =============================================================================

// GateConfig configures a Gate.
type GateConfig struct {
	// Threshold is the allowed slowdown in percent. A position regresses
	// when its diff is strictly below -Threshold.
	Threshold float64

	// AllowedRegressions is how many regressed positions still pass.
	AllowedRegressions int

	Logger *slog.Logger
}

// DefaultGateConfig returns a 5% threshold with no allowed regressions.
func DefaultGateConfig() *GateConfig {
	return &GateConfig{
		Threshold: DefaultThreshold,
		Logger:    slog.Default(),
	}
}

// GateOption customizes a Gate.
type GateOption func(*GateConfig)

// WithThreshold sets the allowed slowdown in percent. Negative values are
// ignored.
func WithThreshold(threshold float64) GateOption {
	return func(c *GateConfig) {
		if threshold >= 0 {
			c.Threshold = threshold
		}
	}
}

// WithAllowedRegressions lets count regressed positions through.
func WithAllowedRegressions(count int) GateOption {
	return func(c *GateConfig) {
		if count >= 0 {
			c.AllowedRegressions = count
		}
	}
}

// WithGateLogger sets the logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(c *GateConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// =============================================================================
// Gate
// =============================================================================

// Row is the comparison for one position.
type Row struct {
	Position   Position `json:"position"`
	BaseNPS    int64    `json:"base_nps"`
	TestNPS    int64    `json:"test_nps"`
	DiffPct    float64  `json:"diff_pct"`
	Regression bool     `json:"regression"`
}

// Status returns "ok" or "regression".
func (r Row) Status() string {
	if r.Regression {
		return "regression"
	}
	return "ok"
}

// Comparison is the gate's decision.
type Comparison struct {
	Threshold   float64  `json:"threshold"`
	Rows        []Row    `json:"rows"`
	Skipped     []string `json:"skipped,omitempty"`
	Regressions int      `json:"regressions"`
	Pass        bool     `json:"pass"`
}

// ExitCode returns 0 when the comparison passed and 1 otherwise.
func (c Comparison) ExitCode() int {
	if c.Pass {
		return 0
	}
	return 1
}

// Gate decides whether a test build's throughput regressed.
type Gate struct {
	config *GateConfig
	logger *slog.Logger
}

// NewGate creates a Gate.
func NewGate(opts ...GateOption) *Gate {
	config := DefaultGateConfig()
	for _, opt := range opts {
		opt(config)
	}
	return &Gate{config: config, logger: config.Logger}
}

// Threshold returns the configured threshold in percent.
func (g *Gate) Threshold() float64 {
	return g.config.Threshold
}

// Compare pairs base and test results position by position.
//
// # Description
//
// diff = (test - base) / base * 100. A row regresses when diff is
// strictly below -Threshold, so a drop of exactly the threshold passes.
// Positions whose base NPS is zero are skipped (no meaningful ratio).
//
// # Inputs
//
//   - ctx: Used for tracing only.
//   - base, test: Results in the same position order.
//
// # Outputs
//
//   - Comparison: Rows and decision.
//   - error: Non-nil if the slices disagree in length or position order.
func (g *Gate) Compare(ctx context.Context, base, test []Result) (Comparison, error) {
	_, span := otel.Tracer("gauntlet/perft").Start(ctx, "perft.Gate.Compare",
		trace.WithAttributes(
			attribute.Float64("threshold", g.config.Threshold),
			attribute.Int("positions", len(base)),
		),
	)
	defer span.End()

	if len(base) != len(test) {
		return Comparison{}, fmt.Errorf("result count mismatch: base %d, test %d", len(base), len(test))
	}

	cmp := Comparison{Threshold: g.config.Threshold}
	for i := range base {
		b, t := base[i], test[i]
		if b.Position.Name != t.Position.Name || b.Position.Depth != t.Position.Depth {
			return Comparison{}, fmt.Errorf("position mismatch at %d: %s vs %s",
				i, b.Position.Label(), t.Position.Label())
		}
		if b.NPS == 0 {
			g.logger.Warn("skipping position with zero base NPS", slog.String("position", b.Position.Label()))
			cmp.Skipped = append(cmp.Skipped, b.Position.Name)
			continue
		}

		diff := float64(t.NPS-b.NPS) / float64(b.NPS) * 100
		row := Row{
			Position:   b.Position,
			BaseNPS:    b.NPS,
			TestNPS:    t.NPS,
			DiffPct:    diff,
			Regression: diff < -g.config.Threshold,
		}
		if row.Regression {
			cmp.Regressions++
		}
		cmp.Rows = append(cmp.Rows, row)
	}

	cmp.Pass = cmp.Regressions <= g.config.AllowedRegressions
	span.SetAttributes(
		attribute.Int("regressions", cmp.Regressions),
		attribute.Bool("pass", cmp.Pass),
	)
	return cmp, nil
}
