// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/config"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/history"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/match"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/perft"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/report"
	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/workflow"
	"github.com/AleutianAI/gauntlet/pkg/ux"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "gauntlet",
		Short: "Regression matches and perft benchmarks between engine revisions",
		Long: `gauntlet builds two revisions of the engine in isolated git worktrees,
plays them against each other with fastchess, and reports whether the
test revision is stronger, weaker, or indistinguishable. It can also
compare perft throughput and fail on a slowdown.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: "+config.DefaultFileName+" in the repository root)")
	pf.StringVar(&a.repoRoot, "repo", "", "engine repository root (default: current directory)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&a.ci, "ci", false, "print key=value results for CI instead of the human summary")

	root.AddCommand(
		newCompareCmd(a),
		newGauntletCmd(a),
		newBenchCmd(a),
		newSummarizeCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
	)
	return root
}

// =============================================================================
// Match flags
// =============================================================================

// matchFlags are shared by compare and gauntlet. Flags override the
// configuration only when given.
type matchFlags struct {
	games       int
	concurrency int
	mode        string
	depth       int
	moveTimeMs  int
	fastchess   string
	progress    bool

	pgn     string
	log     string
	summary string
}

func (f *matchFlags) register(cmd *cobra.Command) {
	d := config.DefaultConfig()
	fs := cmd.Flags()
	fs.IntVar(&f.games, "games", d.Match.Games, "number of games (rounds)")
	fs.IntVar(&f.concurrency, "concurrency", d.Match.Concurrency, "parallel games")
	fs.StringVar(&f.mode, "mode", d.Match.Mode, "time control: depth or movetime")
	fs.IntVar(&f.depth, "depth", d.Match.Depth, "fixed search depth for depth mode")
	fs.IntVar(&f.moveTimeMs, "movetime-ms", d.Match.MoveTimeMs, "per-move time in ms for movetime mode")
	fs.StringVar(&f.fastchess, "fastchess", d.MatchRunner, "fastchess executable")
	fs.BoolVar(&f.progress, "progress", false, "log the running score while games are played")
	fs.StringVar(&f.pgn, "pgn", "", "PGN output path (default: timestamped in the output directory)")
	fs.StringVar(&f.log, "log", "", "fastchess log path (default: timestamped in the output directory)")
	fs.StringVar(&f.summary, "summary", "", "summary path (default: timestamped in the output directory)")
}

// apply writes the flags the user set into cfg and revalidates it.
func (f *matchFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	if fs.Changed("games") {
		cfg.Match.Games = f.games
	}
	if fs.Changed("concurrency") {
		cfg.Match.Concurrency = f.concurrency
	}
	if fs.Changed("mode") {
		cfg.Match.Mode = f.mode
	}
	if fs.Changed("depth") {
		cfg.Match.Depth = f.depth
	}
	if fs.Changed("movetime-ms") {
		cfg.Match.MoveTimeMs = f.moveTimeMs
	}
	if fs.Changed("fastchess") {
		cfg.MatchRunner = f.fastchess
	}
	if fs.Changed("progress") {
		cfg.Match.Progress = f.progress
	}
	return cfg.Validate()
}

func (f *matchFlags) options(cfg config.Config) workflow.MatchOptions {
	return workflow.MatchOptions{
		Games:       cfg.Match.Games,
		Concurrency: cfg.Match.Concurrency,
		TimeControl: timeControl(cfg.Match),
		MatchRunner: cfg.MatchRunner,
		Progress:    cfg.Match.Progress,
		Outputs: workflow.Outputs{
			Dir:     cfg.OutputDir,
			PGN:     f.pgn,
			Log:     f.log,
			Summary: f.summary,
		},
	}
}

func timeControl(m config.MatchConfig) match.TimeControl {
	return match.TimeControl{
		Mode:     match.Mode(m.Mode),
		Depth:    m.Depth,
		MoveTime: time.Duration(m.MoveTimeMs) * time.Millisecond,
	}
}

// =============================================================================
// compare / gauntlet
// =============================================================================

func newCompareCmd(a *app) *cobra.Command {
	var flags matchFlags
	var test, base, external string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Play the test revision against the base revision",
		Long: `Builds --test and --base (git refs or engine binaries) in private
worktrees, plays them with fastchess, and prints the Elo difference and
verdict.

Exit status: 0 stronger, 1 weaker, 2 inconclusive, 3 no games.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.apply(cmd, &a.cfg); err != nil {
				return err
			}
			opts := flags.options(a.cfg)
			opts.Test, opts.Base, opts.External = test, base, external
			return a.runMatch(cmd.Context(), opts, false)
		},
	}
	cmd.Flags().StringVar(&test, "test", "HEAD", "test git ref or engine binary")
	cmd.Flags().StringVar(&base, "base", "main", "base git ref or engine binary")
	cmd.Flags().StringVar(&external, "external", "", "external engine binary to play instead of --base")
	flags.register(cmd)
	return cmd
}

func newGauntletCmd(a *app) *cobra.Command {
	var flags matchFlags
	var test, opponent, opponentName string

	cmd := &cobra.Command{
		Use:   "gauntlet",
		Short: "Play the test revision against an external engine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := flags.apply(cmd, &a.cfg); err != nil {
				return err
			}
			opts := flags.options(a.cfg)
			opts.Test, opts.External, opts.OpponentName = test, opponent, opponentName
			return a.runMatch(cmd.Context(), opts, true)
		},
	}
	cmd.Flags().StringVar(&test, "test", "HEAD", "test git ref or engine binary")
	cmd.Flags().StringVar(&opponent, "opponent", "", "opponent engine binary")
	cmd.Flags().StringVar(&opponentName, "opponent-name", "", "opponent name in the match (default: binary name)")
	_ = cmd.MarkFlagRequired("opponent")
	flags.register(cmd)
	return cmd
}

func (a *app) runMatch(ctx context.Context, opts workflow.MatchOptions, gauntlet bool) error {
	command := "compare"
	if gauntlet {
		command = "gauntlet"
	}
	s, err := a.open(ctx, sessionOptions{command: command, lock: true})
	if err != nil {
		return err
	}
	defer s.close()

	var res *workflow.MatchResult
	if gauntlet {
		res, err = s.workflow.Gauntlet(s.ctx, opts)
	} else {
		res, err = s.workflow.Compare(s.ctx, opts)
	}
	if err != nil {
		return s.fail(err)
	}
	if err := report.WriteMatch(a.stdout, res.Report, a.mode()); err != nil {
		return err
	}
	return verdictExit(res.ExitCode())
}

// =============================================================================
// bench
// =============================================================================

func newBenchCmd(a *app) *cobra.Command {
	var test, base, summary string
	var threshold float64

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Compare perft throughput of the test and base revisions",
		Long: `Runs perft on a fixed set of positions with both revisions and fails
when any position is more than --threshold percent slower.

Exit status: 0 pass, 1 regression.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("threshold") {
				a.cfg.Bench.Threshold = threshold
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			s, err := a.open(cmd.Context(), sessionOptions{command: "bench", lock: true})
			if err != nil {
				return err
			}
			defer s.close()

			opts := workflow.BenchOptions{
				Test:      test,
				Base:      base,
				Positions: a.cfg.Bench.Positions,
				Summary:   summary,
			}
			mode := a.mode()
			if mode != ux.ModeMachine {
				opts.OnResult = benchProgress(a, mode)
			}
			res, err := s.workflow.Bench(s.ctx, opts)
			if err != nil {
				return s.fail(err)
			}
			if mode != ux.ModeMachine {
				fmt.Fprintln(a.stdout)
			}
			if err := report.WriteBench(a.stdout, res.Report, mode); err != nil {
				return err
			}
			return verdictExit(res.ExitCode())
		},
	}
	cmd.Flags().StringVar(&test, "test", "HEAD", "test git ref or engine binary")
	cmd.Flags().StringVar(&base, "base", "main", "base git ref or engine binary")
	cmd.Flags().Float64Var(&threshold, "threshold", perft.DefaultThreshold, "allowed slowdown in percent")
	cmd.Flags().StringVar(&summary, "summary", "", "also write the report to this file")
	return cmd
}

// benchProgress prints each probe as it completes, under a heading per
// side.
func benchProgress(a *app, mode ux.Mode) func(string, perft.Result) {
	var current string
	return func(side string, r perft.Result) {
		if side != current {
			current = side
			fmt.Fprintf(a.stdout, "Benchmarking %s...\n", mode.Style(ux.Styles.Bold, side))
		}
		fmt.Fprintf(a.stdout, "  %s (d%d): %s (%dms)\n",
			r.Position.Name, r.Position.Depth, perft.FormatNPS(r.NPS), r.TimeMs)
	}
}

// =============================================================================
// summarize
// =============================================================================

func newSummarizeCmd(a *app) *cobra.Command {
	var subject, opponent, summary string

	cmd := &cobra.Command{
		Use:   "summarize <pgn>",
		Short: "Summarize an existing match PGN without playing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context(), sessionOptions{command: "summarize"})
			if err != nil {
				return err
			}
			defer s.close()

			res, err := s.workflow.Summarize(s.ctx, workflow.SummarizeOptions{
				PGN:      args[0],
				Subject:  subject,
				Opponent: opponent,
				Summary:  summary,
			})
			if err != nil {
				return s.fail(err)
			}
			if err := report.WriteMatch(a.stdout, res.Report, a.mode()); err != nil {
				return err
			}
			return verdictExit(res.ExitCode())
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "c3", "engine whose results are counted")
	cmd.Flags().StringVar(&opponent, "opponent-name", "opponent", "label for the other side")
	cmd.Flags().StringVar(&summary, "summary", "", "also write the summary to this file")
	return cmd
}

// =============================================================================
// history
// =============================================================================

func newHistoryCmd(a *app) *cobra.Command {
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k := history.Kind(kind)
			if kind != "" && !k.Valid() {
				return fmt.Errorf("unknown run kind %q", kind)
			}
			return a.withHistory(func(store *history.Store) error {
				runs, err := store.List(cmd.Context(), history.Filter{Kind: k, Limit: limit})
				if err != nil {
					return err
				}
				return report.WriteHistory(a.stdout, runs, a.mode())
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only runs of this kind: compare, gauntlet, summarize, bench")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs (0 for all)")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withHistory(func(store *history.Store) error {
				run, err := store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return report.WriteRun(a.stdout, run, a.mode())
			})
		},
	}
	cmd.AddCommand(show)
	return cmd
}

// withHistory opens the history database for reading. A database that
// was never created reads as empty.
func (a *app) withHistory(fn func(*history.Store) error) error {
	defer a.logger.Close()
	cfg := history.Config{Path: a.cfg.History.Path, Logger: a.logger.Slog()}
	if _, err := os.Stat(cfg.Path); errors.Is(err, os.ErrNotExist) {
		a.logger.Debug("history database not found", "path", cfg.Path)
		cfg.InMemory = true
	}
	store, err := history.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// =============================================================================
// config
// =============================================================================

func newConfigCmd(a *app) *cobra.Command {
	var defaults bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.logger.Close()
			cfg := a.cfg
			if defaults {
				cfg = config.DefaultConfig()
			}
			if cfg.Influx.Token != "" {
				cfg.Influx.Token = "<redacted>"
			}
			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(data)
			return err
		},
	}
	cmd.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults instead")
	return cmd
}
