// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command gauntlet plays regression matches and throughput benchmarks
// between two revisions of a chess engine.
//
// Usage:
//
//	gauntlet compare --test HEAD --base main
//	gauntlet gauntlet --opponent /usr/games/stockfish --mode movetime
//	gauntlet bench --test HEAD --base main --threshold 5
//	gauntlet summarize Testing/fastchess/games.pgn --subject c3
//	gauntlet history --kind compare --limit 10
//
// Exit status is the verdict (0 stronger or pass, 1 weaker or regression,
// 2 inconclusive, 3 no games), 4 for any other failure, and 128+n when
// interrupted by signal n.
package main

import (
	"io"
	"os"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(Execute(os.Args[1:], os.Stdout, os.Stderr))
}

// Execute runs the CLI with args and returns the process exit status.
func Execute(args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return a.exitCode(root.Execute())
}
