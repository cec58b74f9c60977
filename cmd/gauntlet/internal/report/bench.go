// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/perft"
	"github.com/AleutianAI/gauntlet/pkg/ux"
)

// Bench describes a finished benchmark for rendering.
type Bench struct {
	Base       string
	Test       string
	Comparison perft.Comparison
}

// WriteBench writes b in the given mode.
func WriteBench(w io.Writer, b Bench, mode ux.Mode) error {
	var text string
	if mode == ux.ModeMachine {
		text = benchMachine(b)
	} else {
		text = benchHuman(b, mode)
	}
	_, err := io.WriteString(w, text)
	return err
}

// BenchText is the plain human report.
func BenchText(b Bench) string {
	return benchHuman(b, ux.ModePlain)
}

func benchMachine(bench Bench) string {
	c := bench.Comparison
	var b strings.Builder
	kv(&b, "base", bench.Base)
	kv(&b, "test", bench.Test)
	kv(&b, "threshold", formatThreshold(c.Threshold))
	for _, row := range c.Rows {
		name := row.Position.Name
		status := "pass"
		if row.Regression {
			status = "regression"
		}
		kv(&b, name+"_base_nps", strconv.FormatInt(row.BaseNPS, 10))
		kv(&b, name+"_test_nps", strconv.FormatInt(row.TestNPS, 10))
		kv(&b, name+"_diff", fmt.Sprintf("%+.1f", row.DiffPct))
		kv(&b, name+"_status", status)
	}
	for _, name := range c.Skipped {
		kv(&b, name+"_status", "skipped")
	}
	if c.Pass {
		kv(&b, "result", "pass")
	} else {
		kv(&b, "result", "regression")
	}
	return b.String()
}

func benchHuman(bench Bench, mode ux.Mode) string {
	c := bench.Comparison
	var b strings.Builder

	fmt.Fprintln(&b, mode.Style(ux.Styles.Title, "=== Perft Benchmark ==="))
	fmt.Fprintf(&b, "Base: %s\n", bench.Base)
	fmt.Fprintf(&b, "Test: %s\n", bench.Test)
	fmt.Fprintf(&b, "Threshold: %s%%\n\n", formatThreshold(c.Threshold))

	fmt.Fprintf(&b, "%-18s %12s %12s %10s\n", "Position", "Base NPS", "Test NPS", "Diff")
	fmt.Fprintln(&b, strings.Repeat("-", 54))
	for _, row := range c.Rows {
		status := mode.Style(ux.Styles.Success, "ok")
		if row.Regression {
			status = mode.Style(ux.Styles.Error, "REGRESSION")
		}
		fmt.Fprintf(&b, "%-18s %12s %12s %+9.1f%% %s\n",
			row.Position.Label(),
			perft.FormatNPS(row.BaseNPS),
			perft.FormatNPS(row.TestNPS),
			row.DiffPct,
			status,
		)
	}
	for _, name := range c.Skipped {
		fmt.Fprintf(&b, "%-18s %s\n", name, mode.Style(ux.Styles.Muted, "skipped (base NPS is zero)"))
	}

	b.WriteString("\n")
	if c.Pass {
		fmt.Fprintf(&b, "Result: %s %s\n", mode.Icon(ux.IconSuccess), mode.Style(ux.Styles.Success, "No regressions detected"))
	} else {
		fmt.Fprintf(&b, "Result: %s %s\n", mode.Icon(ux.IconError),
			mode.Style(ux.Styles.Error, fmt.Sprintf("REGRESSION detected (>%s%% slower)", formatThreshold(c.Threshold))))
	}
	return b.String()
}

// formatThreshold prints 5 as "5.0" and 2.5 as "2.5".
func formatThreshold(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
