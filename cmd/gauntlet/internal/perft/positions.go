// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package perft measures engine move-generation throughput and flags
// throughput regressions between two builds.
//
// # Description
//
// A probe starts the engine, sends a position and a perft command on
// stdin, and reads the node count, elapsed time and nodes per second the
// engine prints. The gate compares per-position NPS between a base and a
// test build against a percentage threshold.
//
// # Thread Safety
//
// Prober is safe for concurrent use if its Runner is. The gate is
// stateless after construction.
package perft

import "fmt"

// Position is one benchmark position.
type Position struct {
	Name  string `yaml:"name" validate:"required"`
	FEN   string `yaml:"fen" validate:"required"`
	Depth int    `yaml:"depth" validate:"gte=1,lte=10"`
}

// Label returns "name (dN)".
func (p Position) Label() string {
	return fmt.Sprintf("%s (d%d)", p.Name, p.Depth)
}

// DefaultPositions returns the standard suite: the initial position at
// depth 5, "kiwipete" at depth 4, and the "tricky" endgame at depth 5.
func DefaultPositions() []Position {
	return []Position{
		{
			Name:  "startpos",
			FEN:   "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1",
			Depth: 5,
		},
		{
			Name:  "kiwipete",
			FEN:   "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
			Depth: 4,
		},
		{
			Name:  "tricky",
			FEN:   "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1",
			Depth: 5,
		},
	}
}
