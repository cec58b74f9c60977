// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders workflow results for people and for CI.
//
// Human reports keep the layout of the long-standing text summaries so
// existing scrapers keep working; machine reports are key=value lines, one
// per fact.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/stats"
	"github.com/AleutianAI/gauntlet/pkg/ux"
)

// NoGames is printed instead of a summary when the log holds no games.
const NoGames = "No games completed."

// Match describes a finished match for rendering.
type Match struct {
	// Title heads the human report, e.g. "Branch Comparison".
	Title string

	// Test and Base are display names. Base is the opponent in gauntlet
	// and summarize runs.
	Test string
	Base string

	// SubjectLabel and OpponentLabel name the W/D/L line sides.
	// Defaults: "test" and "base".
	SubjectLabel  string
	OpponentLabel string

	Verdict stats.Verdict

	// PGNPath and LogPath are listed after a human report when set.
	PGNPath string
	LogPath string
}

func (m Match) labels() (string, string) {
	subject, opponent := m.SubjectLabel, m.OpponentLabel
	if subject == "" {
		subject = "test"
	}
	if opponent == "" {
		opponent = "base"
	}
	return subject, opponent
}

// WriteMatch writes m in the given mode.
func WriteMatch(w io.Writer, m Match, mode ux.Mode) error {
	var text string
	if mode == ux.ModeMachine {
		text = matchMachine(m)
	} else {
		text = matchHuman(m, mode)
	}
	_, err := io.WriteString(w, text)
	return err
}

// MatchText is the plain human report, as written to summary files.
func MatchText(m Match) string {
	return matchHuman(m, ux.ModePlain)
}

func matchMachine(m Match) string {
	v := m.Verdict
	var b strings.Builder
	kv(&b, "base", m.Base)
	kv(&b, "test", m.Test)
	kv(&b, "games", fmt.Sprint(v.Games))
	if v.Games == 0 {
		kv(&b, "result", NoGames)
		return b.String()
	}
	kv(&b, "wins", fmt.Sprint(v.Counts.Wins))
	kv(&b, "losses", fmt.Sprint(v.Counts.Losses))
	kv(&b, "draws", fmt.Sprint(v.Counts.Draws))
	kv(&b, "score", fmt.Sprintf("%.3f", v.Score))
	kv(&b, "elo", fmt.Sprintf("%+.1f", v.Elo))
	kv(&b, "elo_error", fmt.Sprintf("%.1f", v.EloError))
	kv(&b, "los", fmt.Sprintf("%.1f", v.LOS*100))
	kv(&b, "result", v.Class.Description())
	return b.String()
}

func matchHuman(m Match, mode ux.Mode) string {
	v := m.Verdict
	var b strings.Builder

	title := m.Title
	if title == "" {
		title = "Branch Comparison"
	}
	fmt.Fprintln(&b, mode.Style(ux.Styles.Title, "=== "+title+" ==="))

	if v.Games == 0 {
		fmt.Fprintln(&b, NoGames)
		paths(&b, m, mode)
		return b.String()
	}

	if m.Base != "" {
		fmt.Fprintf(&b, "Base: %s\n", m.Base)
	}
	fmt.Fprintf(&b, "Test: %s\n\n", m.Test)

	subject, opponent := m.labels()
	fmt.Fprintf(&b, "Games: %d\n", v.Games)
	fmt.Fprintf(&b, "W/D/L (%s vs %s): %d/%d/%d\n", subject, opponent, v.Counts.Wins, v.Counts.Draws, v.Counts.Losses)
	fmt.Fprintf(&b, "Score: %.3f\n", v.Score)
	fmt.Fprintf(&b, "Elo diff: %+.1f +/- %.1f\n", v.Elo, v.EloError)
	fmt.Fprintf(&b, "95%% interval: [%+.1f, %+.1f]\n", v.EloLow, v.EloHigh)
	fmt.Fprintf(&b, "LOS: %.1f%%\n\n", v.LOS*100)

	fmt.Fprintf(&b, "Result: %s\n", classStyle(v.Class, mode))
	paths(&b, m, mode)
	return b.String()
}

func classStyle(c stats.Class, mode ux.Mode) string {
	switch c {
	case stats.Stronger:
		return mode.Icon(ux.IconSuccess) + " " + mode.Style(ux.Styles.Success, c.Description())
	case stats.Weaker:
		return mode.Icon(ux.IconError) + " " + mode.Style(ux.Styles.Error, c.Description())
	default:
		return mode.Icon(ux.IconWarning) + " " + mode.Style(ux.Styles.Warning, c.Description())
	}
}

func paths(b *strings.Builder, m Match, mode ux.Mode) {
	if m.PGNPath == "" && m.LogPath == "" {
		return
	}
	b.WriteString("\n")
	if m.PGNPath != "" {
		fmt.Fprintln(b, mode.Style(ux.Styles.Muted, "PGN: "+m.PGNPath))
	}
	if m.LogPath != "" {
		fmt.Fprintln(b, mode.Style(ux.Styles.Muted, "Log: "+m.LogPath))
	}
}

func kv(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(value)
	b.WriteByte('\n')
}
