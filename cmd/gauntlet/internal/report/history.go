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
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
	"github.com/AleutianAI/gauntlet/pkg/ux"
)

// WriteHistory lists runs, newest first. Machine mode writes one JSON
// object per line.
func WriteHistory(w io.Writer, runs []history.Run, mode ux.Mode) error {
	if mode == ux.ModeMachine {
		enc := json.NewEncoder(w)
		for i := range runs {
			if err := enc.Encode(&runs[i]); err != nil {
				return err
			}
		}
		return nil
	}

	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, mode.Style(ux.Styles.Muted, "No recorded runs."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTARTED\tTEST\tBASE\tRESULT\tEXIT")
	for _, run := range runs {
		id := run.ID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			id, run.Kind, run.StartedAt.Local().Format(time.DateTime),
			run.Test, dash(run.Base), outcome(run), run.ExitCode)
	}
	return tw.Flush()
}

// WriteRun prints one run in detail. Machine mode writes indented JSON.
func WriteRun(w io.Writer, run history.Run, mode ux.Mode) error {
	if mode == ux.ModeMachine {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(&run)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	row := func(key, value string) {
		fmt.Fprintf(tw, "%s\t%s\n", mode.Style(ux.Styles.Bold, key+":"), value)
	}
	row("ID", run.ID)
	row("Kind", string(run.Kind))
	row("Started", run.StartedAt.Local().Format(time.DateTime))
	row("Duration", run.Duration().Round(time.Second).String())
	row("Test", run.Test)
	row("Base", dash(run.Base))
	if run.TimeControl != "" {
		row("Time control", run.TimeControl)
	}
	row("Result", outcome(run))
	row("Exit", fmt.Sprint(run.ExitCode))
	if v := run.Verdict; v != nil && v.Games > 0 {
		row("W/D/L", fmt.Sprintf("%d/%d/%d", v.Wins, v.Draws, v.Losses))
		row("LOS", fmt.Sprintf("%.1f%%", v.LOS*100))
	}
	if b := run.Bench; b != nil {
		for _, r := range b.Rows {
			row(r.Position.Name, fmt.Sprintf("%+.1f%% (%s)", r.DiffPct, r.Status()))
		}
	}
	for _, p := range run.Artifacts.Paths() {
		row("Artifact", p)
	}
	return tw.Flush()
}

func outcome(run history.Run) string {
	switch {
	case run.Verdict != nil:
		if run.Verdict.Games == 0 {
			return "no games"
		}
		return fmt.Sprintf("%s %+.1f Elo (%d games)", run.Verdict.Class, run.Verdict.Elo, run.Verdict.Games)
	case run.Bench != nil:
		if run.Bench.Pass {
			return "pass"
		}
		return fmt.Sprintf("%d regression(s)", run.Bench.Regressions)
	default:
		return "-"
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
