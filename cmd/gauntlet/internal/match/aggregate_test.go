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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/stats"
)

func TestAggregate(t *testing.T) {
	records := []Record{
		{White: "test", Black: "base", Outcome: WhiteWin},
		{White: "base", Black: "test", Outcome: WhiteWin},
		{White: "base", Black: "test", Outcome: BlackWin},
		{White: "test", Black: "base", Outcome: BlackWin},
		{White: "test", Black: "base", Outcome: Draw},
	}

	got := Aggregate(records, "test", "base")

	assert.Equal(t, stats.Counts{Subject: "test", Opponent: "base", Wins: 2, Losses: 2, Draws: 1}, got)
}

func TestAggregate_ThirdPartyCountsAsOpponent(t *testing.T) {
	records := []Record{
		{White: "stranger", Black: "test", Outcome: WhiteWin},
		{White: "stranger", Black: "other", Outcome: BlackWin},
	}

	got := Aggregate(records, "test", "base")

	assert.Equal(t, 0, got.Wins)
	assert.Equal(t, 2, got.Losses)
}

func TestAggregate_Empty(t *testing.T) {
	got := Aggregate(nil, "test", "")
	assert.Equal(t, 0, got.Games())
	assert.Equal(t, stats.NoData, stats.Evaluate(got).Class)
}

func TestAggregateFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "match.pgn")
	require.NoError(t, os.WriteFile(path, []byte(sampleLog), 0o644))

	got, err := AggregateFile(path, "test", "base")

	require.NoError(t, err)
	assert.Equal(t, 2, got.Wins)
	assert.Equal(t, 0, got.Losses)
	assert.Equal(t, 1, got.Draws)

	_, err = AggregateFile(filepath.Join(t.TempDir(), "missing.pgn"), "test", "base")
	assert.ErrorIs(t, err, ErrLogNotFound)
}

// TestAggregateRoundTrip verifies that rendering counts as PGN and
// reading them back yields the same counts.
// Property: Aggregate(Parse(render(w, l, d))) == (w, l, d)
func TestAggregateRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("counts survive a trip through PGN", prop.ForAll(
		func(w, l, d int, subjectWhite bool) bool {
			var b strings.Builder
			write := func(white, black, result string) {
				fmt.Fprintf(&b, "[White \"%s\"]\n[Black \"%s\"]\n[Result \"%s\"]\n\n1. e4 *\n\n", white, black, result)
			}
			for i := 0; i < w; i++ {
				if subjectWhite {
					write("test", "base", "1-0")
				} else {
					write("base", "test", "0-1")
				}
			}
			for i := 0; i < l; i++ {
				if subjectWhite {
					write("test", "base", "0-1")
				} else {
					write("base", "test", "1-0")
				}
			}
			for i := 0; i < d; i++ {
				write("test", "base", "1/2-1/2")
			}

			records, err := Parse(strings.NewReader(b.String()))
			if err != nil {
				return false
			}
			got := Aggregate(records, "test", "base")
			return got.Wins == w && got.Losses == l && got.Draws == d
		},
		gen.IntRange(0, 30),
		gen.IntRange(0, 30),
		gen.IntRange(0, 30),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
