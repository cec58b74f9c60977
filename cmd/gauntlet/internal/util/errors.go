// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package util

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// Command Error Type
// =============================================================================

// CommandError reports a child process that ran but did not succeed.
//
// # Description
//
// Returned by the supervisor when a child exits with a non-zero status or
// is terminated by a signal. Carries the command line, the exit status and
// the tail of whatever the child wrote to stderr.
//
// # Thread Safety
//
// Immutable after creation.
//
// # Example
//
//	var cmdErr *util.CommandError
//	if errors.As(err, &cmdErr) {
//	    fmt.Println(cmdErr.ExitCode, cmdErr.Stderr)
//	}
type CommandError struct {
	// Command is the command line as it was executed.
	Command string

	// ExitCode is the exit status, or -1 when the child was killed by a
	// signal or the status is unknown.
	ExitCode int

	// Stderr is the trimmed stderr tail. Empty when output was redirected
	// to a log file.
	Stderr string

	// Wrapped is the underlying error (may be nil).
	Wrapped error
}

// Error formats the failure. Stderr takes priority over the wrapped error.
func (e *CommandError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s (exit %d): %s", e.Command, e.ExitCode, e.Stderr)
	}
	if e.Wrapped != nil {
		return fmt.Sprintf("%s (exit %d): %v", e.Command, e.ExitCode, e.Wrapped)
	}
	return fmt.Sprintf("%s (exit %d)", e.Command, e.ExitCode)
}

// Unwrap returns the wrapped error.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}

var _ error = (*CommandError)(nil)

// NewCommandError builds a CommandError, joining name and args into the
// command line and trimming stderr.
func NewCommandError(name string, args []string, exitCode int, stderr string, wrapped error) *CommandError {
	return &CommandError{
		Command:  CommandLine(name, args),
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(stderr),
		Wrapped:  wrapped,
	}
}

// CommandLine renders name and args the way they are logged.
func CommandLine(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

// ExitCodeOf returns the exit code carried by a CommandError anywhere in
// the chain of err.
//
// # Outputs
//
//   - int: The exit code, or -1.
//   - bool: False if err contains no CommandError.
func ExitCodeOf(err error) (int, bool) {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.ExitCode, true
	}
	return -1, false
}
