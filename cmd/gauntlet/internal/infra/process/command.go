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
	"context"
	"io"
	"sync"
	"time"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/util"
)

// =============================================================================
// Command
// =============================================================================

// Command describes one child process invocation.
type Command struct {
	// Name is the program to execute, resolved through PATH.
	Name string

	// Args are the arguments after the program name.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env entries are appended to the inherited environment.
	Env []string

	// Stdin feeds the child's standard input. Nil means no input.
	Stdin io.Reader

	// Output receives stdout and stderr for Run. Probe ignores it and
	// captures stdout instead.
	Output io.Writer
}

// String returns the command line for logs and errors.
func (c Command) String() string {
	return util.CommandLine(c.Name, c.Args)
}

// =============================================================================
// Runner Interface
// =============================================================================

// Runner executes external commands on behalf of the sandbox and the
// workflows.
//
// # Description
//
// Supervisor is the production implementation. MockRunner lets tests
// script results without spawning processes.
type Runner interface {
	// Run executes cmd to completion.
	//
	// # Outputs
	//
	//   - error: *util.CommandError on non-zero exit or spawn failure,
	//     the context cause if ctx ended first.
	Run(ctx context.Context, cmd Command) error

	// Probe executes cmd with a hard timeout and returns its stdout.
	//
	// # Outputs
	//
	//   - []byte: Captured stdout (nil on timeout).
	//   - error: ErrTimeout (wrapped) when the timeout fired,
	//     *util.CommandError on non-zero exit.
	Probe(ctx context.Context, cmd Command, timeout time.Duration) ([]byte, error)
}

// =============================================================================
// Mock Runner
// =============================================================================

// MockRunner implements Runner with scripted behaviour.
//
// # Description
//
// Each call is recorded in Calls. A nil RunFunc succeeds; a nil ProbeFunc
// returns empty output.
//
// # Thread Safety
//
// Safe for concurrent use.
type MockRunner struct {
	RunFunc   func(ctx context.Context, cmd Command) error
	ProbeFunc func(ctx context.Context, cmd Command, timeout time.Duration) ([]byte, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one invocation.
type MockCall struct {
	Method  string
	Command Command
	Timeout time.Duration
}

// Run records the call and delegates to RunFunc.
func (m *MockRunner) Run(ctx context.Context, cmd Command) error {
	m.record(MockCall{Method: "Run", Command: cmd})
	if m.RunFunc == nil {
		return nil
	}
	return m.RunFunc(ctx, cmd)
}

// Probe records the call and delegates to ProbeFunc.
func (m *MockRunner) Probe(ctx context.Context, cmd Command, timeout time.Duration) ([]byte, error) {
	m.record(MockCall{Method: "Probe", Command: cmd, Timeout: timeout})
	if m.ProbeFunc == nil {
		return nil, nil
	}
	return m.ProbeFunc(ctx, cmd, timeout)
}

// Calls returns a copy of the recorded invocations.
func (m *MockRunner) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CommandLines returns the recorded command lines in order.
func (m *MockRunner) CommandLines() []string {
	calls := m.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Command.String()
	}
	return out
}

func (m *MockRunner) record(call MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

var (
	_ Runner = (*Supervisor)(nil)
	_ Runner = (*MockRunner)(nil)
)
