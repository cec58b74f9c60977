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
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/infra/process"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/util"
)

func TestParseOutput(t *testing.T) {
	t.Run("engine format", func(t *testing.T) {
		nodes, ms, nps, err := ParseOutput("info string perft\nnodes: 4865609\ntime: 412 ms\nnps: 11809730\n")
		require.NoError(t, err)
		assert.Equal(t, int64(4865609), nodes)
		assert.Equal(t, int64(412), ms)
		assert.Equal(t, int64(11809730), nps)
	})

	t.Run("first occurrence wins", func(t *testing.T) {
		nodes, _, _, err := ParseOutput("nodes: 1\ntime: 2\nnps: 3\nnodes: 99\n")
		require.NoError(t, err)
		assert.Equal(t, int64(1), nodes)
	})

	t.Run("no whitespace", func(t *testing.T) {
		_, ms, _, err := ParseOutput("nodes:10 time:20 nps:30")
		require.NoError(t, err)
		assert.Equal(t, int64(20), ms)
	})

	missing := []string{
		"",
		"time: 1\nnps: 2\n",
		"nodes: 1\nnps: 2\n",
		"nodes: 1\ntime: 2\n",
		"nodes: many\ntime: 2\nnps: 3\n",
	}
	for i, out := range missing {
		t.Run(fmt.Sprintf("unparseable %d", i), func(t *testing.T) {
			_, _, _, err := ParseOutput(out)
			assert.ErrorIs(t, err, ErrUnparseableOutput)
		})
	}
}

func TestScript(t *testing.T) {
	pos := DefaultPositions()[1]
	assert.Equal(t,
		"position fen r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1\nperft 4\nquit\n",
		Script(pos))
}

func TestDefaultPositions(t *testing.T) {
	positions := DefaultPositions()
	require.Len(t, positions, 3)
	assert.Equal(t, "startpos (d5)", positions[0].Label())
	assert.Equal(t, "kiwipete (d4)", positions[1].Label())
	assert.Equal(t, "tricky (d5)", positions[2].Label())
}

func TestFormatNPS(t *testing.T) {
	tests := []struct {
		nps  int64
		want string
	}{
		{0, "0 NPS"},
		{999, "999 NPS"},
		{1_000, "1.0K NPS"},
		{850_000, "850.0K NPS"},
		{999_999, "1000.0K NPS"},
		{1_000_000, "1.0M NPS"},
		{12_345_678, "12.3M NPS"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNPS(tt.nps))
		})
	}
}

func TestProber_Probe(t *testing.T) {
	runner := &process.MockRunner{
		ProbeFunc: func(ctx context.Context, cmd process.Command, timeout time.Duration) ([]byte, error) {
			input, err := io.ReadAll(cmd.Stdin)
			if err != nil {
				return nil, err
			}
			if string(input) != Script(DefaultPositions()[0]) {
				return nil, fmt.Errorf("unexpected script %q", input)
			}
			return []byte("nodes: 4865609\ntime: 500 ms\nnps: 9731218\n"), nil
		},
	}
	prober := NewProber(runner, 0, nil)

	res, err := prober.Probe(context.Background(), "/build/c3", DefaultPositions()[0])

	require.NoError(t, err)
	assert.Equal(t, int64(9731218), res.NPS)
	assert.Equal(t, "startpos", res.Position.Name)

	calls := runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/build/c3", calls[0].Command.Name)
	assert.Equal(t, util.DefaultProbeTimeout, calls[0].Timeout)
}

func TestProber_Errors(t *testing.T) {
	tests := []struct {
		name    string
		out     []byte
		err     error
		wantIs  error
		wantCmd bool
	}{
		{name: "timeout", err: fmt.Errorf("c3: %w", process.ErrTimeout), wantIs: process.ErrTimeout},
		{name: "crash", err: util.NewCommandError("c3", nil, 139, "segfault", nil), wantCmd: true},
		{name: "crash after partial output", out: []byte("nodes: 12\n"), err: util.NewCommandError("c3", nil, 134, "abort", nil), wantCmd: true},
		{name: "garbage", out: []byte("unknown command: perft\n"), wantIs: ErrUnparseableOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &process.MockRunner{
				ProbeFunc: func(context.Context, process.Command, time.Duration) ([]byte, error) {
					return tt.out, tt.err
				},
			}
			_, err := NewProber(runner, time.Second, nil).Probe(context.Background(), "c3", DefaultPositions()[2])
			require.Error(t, err)
			if tt.wantIs != nil {
				assert.ErrorIs(t, err, tt.wantIs)
			}
			if tt.wantCmd {
				var cmdErr *util.CommandError
				assert.ErrorAs(t, err, &cmdErr)
			}
			assert.Contains(t, err.Error(), "tricky (d5)")
		})
	}
}

func TestProber_NonZeroExitWithMeasurement(t *testing.T) {
	runner := &process.MockRunner{
		ProbeFunc: func(context.Context, process.Command, time.Duration) ([]byte, error) {
			return []byte("nodes: 15833292\ntime: 1200 ms\nnps: 13194410\n"),
				util.NewCommandError("c3", nil, 1, "", nil)
		},
	}

	res, err := NewProber(runner, time.Second, nil).Probe(context.Background(), "c3", DefaultPositions()[2])

	require.NoError(t, err)
	assert.Equal(t, int64(15833292), res.Nodes)
	assert.Equal(t, int64(1200), res.TimeMs)
	assert.Equal(t, int64(13194410), res.NPS)
}

func TestProber_Suite(t *testing.T) {
	n := 0
	runner := &process.MockRunner{
		ProbeFunc: func(context.Context, process.Command, time.Duration) ([]byte, error) {
			n++
			if n == 3 {
				return nil, process.ErrTimeout
			}
			return []byte(fmt.Sprintf("nodes: %d\ntime: 1\nnps: %d\n", n, n*1000)), nil
		},
	}
	var seen []string
	results, err := NewProber(runner, time.Second, nil).Suite(context.Background(), "c3", DefaultPositions(),
		func(r Result) { seen = append(seen, r.Position.Name) })

	assert.ErrorIs(t, err, process.ErrTimeout)
	assert.Len(t, results, 2)
	assert.Equal(t, []string{"startpos", "kiwipete"}, seen)
}
