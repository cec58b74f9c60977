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
	"errors"
	"fmt"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/infra/process"
)

// ExitFailure is the status for any error that is not a verdict.
const ExitFailure = 4

// ExitError carries a verdict exit status out of a command. Err is nil
// for a completed run whose verdict is simply non-zero.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// verdictExit returns nil for status 0 and an *ExitError otherwise.
func verdictExit(code int) error {
	if code == 0 {
		return nil
	}
	return &ExitError{Code: code}
}

// exitCode maps the result of the root command to a process status and
// reports failures on stderr.
func (a *app) exitCode(err error) int {
	if code := a.signalCode; code != 0 {
		fmt.Fprintf(a.stderr, "gauntlet: interrupted (exit %d)\n", code)
		return code
	}
	if err == nil {
		return 0
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return exitErr.Code
	}

	fmt.Fprintf(a.stderr, "gauntlet: %v\n", err)
	var lockErr *process.ErrLockHeld
	if errors.As(err, &lockErr) {
		fmt.Fprintf(a.stderr, "gauntlet: remove %s if no other run is active\n", lockErr.LockPath)
	}
	if exitErr != nil {
		return exitErr.Code
	}
	return ExitFailure
}
