// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/util"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrTimeout is returned by Probe when the child outlived its timeout.
	ErrTimeout = errors.New("process timed out")

	// ErrBusy is returned when a child is started while another one is
	// still active.
	ErrBusy = errors.New("another child process is active")

	// ErrAborted is returned when Cleanup ran while the child was starting.
	ErrAborted = errors.New("process aborted by cleanup")
)

// =============================================================================
// Configuration
// =============================================================================

// Config configures a Supervisor.
type Config struct {
	// GracePeriod is the wait between SIGTERM and SIGKILL.
	// Default: util.DefaultGracePeriod (5s).
	GracePeriod time.Duration

	// KillWait is the wait after SIGKILL before the child is forgotten.
	// Default: util.DefaultKillWait (2s).
	KillWait time.Duration

	// Logger receives teardown and spawn events. Default: slog.Default().
	Logger *slog.Logger
}

// =============================================================================
// Supervisor
// =============================================================================

// Supervisor runs external commands and guarantees their process groups do
// not outlive the orchestrator.
//
// # Description
//
// At most one child is active at a time. Every child is the leader of a
// fresh process group so that teardown reaches its descendants (engines
// spawned by the match runner, compilers spawned by the build tool).
//
// # Thread Safety
//
// Safe for concurrent use. The active slot is swapped under a mutex and
// signals are delivered outside it, so Cleanup may run from a signal
// goroutine while Run is blocked.
type Supervisor struct {
	mu       sync.Mutex
	active   Child
	grace    time.Duration
	killWait time.Duration
	logger   *slog.Logger
}

// NewSupervisor creates an idle Supervisor.
func NewSupervisor(cfg Config) *Supervisor {
	timeouts := util.TimeoutConfig{Grace: cfg.GracePeriod, KillWait: cfg.KillWait}.Validated()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		grace:    timeouts.Grace,
		killWait: timeouts.KillWait,
		logger:   logger,
	}
}

// Run executes cmd in a new process group and waits for it.
//
// # Description
//
// When cmd.Output is set, stdout and stderr are written to it. In every
// case the last few KiB of output are kept for the error message. If ctx
// ends first the group is torn down and the context cause is returned.
//
// # Inputs
//
//   - ctx: Cancellation. Cancelling kills the whole group.
//   - cmd: Command to run.
//
// # Outputs
//
//   - error: nil on exit status 0, *util.CommandError otherwise.
func (s *Supervisor) Run(ctx context.Context, cmd Command) error {
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	tail := util.NewTailBuffer(0)
	execCmd := s.command(cmd)
	if cmd.Output != nil {
		sink := &syncWriter{w: io.MultiWriter(cmd.Output, tail)}
		execCmd.Stdout = sink
		execCmd.Stderr = sink
	} else {
		execCmd.Stdout = tail
		execCmd.Stderr = tail
	}

	child, untrack, err := s.spawn(cmd, execCmd)
	if err != nil {
		return err
	}
	defer untrack()

	select {
	case <-child.Done():
	case <-ctx.Done():
		s.teardown(child)
		return context.Cause(ctx)
	}

	return exitError(cmd, child.Err(), tail)
}

// Probe executes cmd with a hard wall-clock timeout and returns its stdout.
//
// # Description
//
// Used for short, bounded interactions such as perft probes and git
// queries. On timeout the group is torn down and an error wrapping
// ErrTimeout is returned. Stderr is only kept for the error message.
//
// # Inputs
//
//   - ctx: Parent cancellation.
//   - cmd: Command to run. cmd.Output is ignored.
//   - timeout: Hard limit. Non-positive means util.DefaultProbeTimeout.
//
// # Outputs
//
//   - []byte: Stdout. Nil when the probe timed out or was cancelled.
//   - error: ErrTimeout, *util.CommandError, or the context cause.
func (s *Supervisor) Probe(ctx context.Context, cmd Command, timeout time.Duration) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, context.Cause(ctx)
	}
	timeout = util.EnforceDefaultTimeout(timeout, util.DefaultProbeTimeout)
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var stdout bytes.Buffer
	tail := util.NewTailBuffer(0)
	execCmd := s.command(cmd)
	execCmd.Stdout = &stdout
	execCmd.Stderr = tail

	child, untrack, err := s.spawn(cmd, execCmd)
	if err != nil {
		return nil, err
	}
	defer untrack()

	select {
	case <-child.Done():
	case <-probeCtx.Done():
		s.teardown(child)
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}
		return nil, fmt.Errorf("%s: %w after %s", cmd, ErrTimeout, timeout)
	}

	if err := exitError(cmd, child.Err(), tail); err != nil {
		return stdout.Bytes(), err
	}
	return stdout.Bytes(), nil
}

// Track registers an already running child as the active one.
//
// # Description
//
// Run and Probe use it internally. It is exported so callers that start
// processes by other means (and tests) still get Cleanup coverage.
//
// # Outputs
//
//   - func(): Forgets the child if it is still the active one.
//   - error: ErrBusy if another child is active.
func (s *Supervisor) Track(child Child) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, ErrBusy
	}
	s.active = child
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.active == child {
			s.active = nil
		}
	}, nil
}

// Active returns the active child, or nil when idle.
func (s *Supervisor) Active() Child {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Cleanup tears down the active child's process group, if any.
//
// # Description
//
// SIGTERM to the group, wait up to the grace period, SIGKILL to the group,
// wait up to the kill wait, then clear the slot. Calling it when idle or
// more than once is a no-op. Errors are logged, never returned, and a
// panic inside teardown is recovered.
//
// # Thread Safety
//
// Safe to call concurrently with Run and with itself.
func (s *Supervisor) Cleanup() {
	s.mu.Lock()
	child := s.active
	s.active = nil
	s.mu.Unlock()

	if child == nil {
		return
	}
	s.terminate(child)
}

// teardown forgets child if it is still active and terminates its group.
func (s *Supervisor) teardown(child Child) {
	s.mu.Lock()
	if s.active == child {
		s.active = nil
	}
	s.mu.Unlock()
	s.terminate(child)
}

func (s *Supervisor) terminate(child Child) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic during process teardown", "pid", child.Pid(), "panic", r)
		}
	}()

	select {
	case <-child.Done():
		return
	default:
	}

	pid := child.Pid()
	s.logger.Info("terminating process group", "pid", pid, "grace", s.grace)
	s.signal(child, unix.SIGTERM)
	if waitDone(child.Done(), s.grace) {
		return
	}

	s.logger.Warn("process group ignored SIGTERM, killing", "pid", pid)
	s.signal(child, unix.SIGKILL)
	if !waitDone(child.Done(), s.killWait) {
		s.logger.Error("process group still present after SIGKILL", "pid", pid)
	}
}

func (s *Supervisor) signal(child Child, sig syscall.Signal) {
	if err := child.Signal(sig); err != nil && !errors.Is(err, unix.ESRCH) {
		s.logger.Warn("signal process group", "pid", child.Pid(), "signal", sig.String(), "error", err)
	}
}

func (s *Supervisor) command(cmd Command) *exec.Cmd {
	execCmd := exec.Command(cmd.Name, cmd.Args...)
	execCmd.Dir = cmd.Dir
	execCmd.Stdin = cmd.Stdin
	if len(cmd.Env) > 0 {
		execCmd.Env = append(os.Environ(), cmd.Env...)
	}
	return execCmd
}

func (s *Supervisor) spawn(cmd Command, execCmd *exec.Cmd) (*groupChild, func(), error) {
	// Claim the slot before starting so two callers cannot both spawn.
	placeholder := &pendingChild{}
	release, err := s.Track(placeholder)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", cmd, err)
	}

	s.logger.Debug("spawning process", "command", cmd.String(), "dir", cmd.Dir)
	child, err := startGroup(execCmd, s.killWait)
	if err != nil {
		release()
		return nil, nil, util.NewCommandError(cmd.Name, cmd.Args, -1, "", err)
	}

	s.mu.Lock()
	claimed := s.active == placeholder
	if claimed {
		s.active = child
	}
	s.mu.Unlock()

	if !claimed {
		s.terminate(child)
		return nil, nil, fmt.Errorf("%s: %w", cmd, ErrAborted)
	}

	return child, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.active == Child(child) || s.active == placeholder {
			s.active = nil
		}
	}, nil
}

// pendingChild holds the slot while a process is being started.
type pendingChild struct{}

func (*pendingChild) Pid() int                    { return 0 }
func (*pendingChild) Signal(syscall.Signal) error { return nil }
func (*pendingChild) Done() <-chan struct{}       { return closedChan }

var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

func exitError(cmd Command, err error, tail *util.TailBuffer) error {
	if err == nil {
		return nil
	}
	code := -1
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code = exitErr.ExitCode()
	}
	return util.NewCommandError(cmd.Name, cmd.Args, code, tail.String(), err)
}

func waitDone(done <-chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}
