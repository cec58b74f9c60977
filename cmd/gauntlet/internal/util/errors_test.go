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
	"testing"
)

// =============================================================================
// CommandError Tests
// =============================================================================

func TestCommandError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *CommandError
		want string
	}{
		{
			name: "stderr wins",
			err:  NewCommandError("cmake", []string{"--build", "build"}, 2, "  no target c3\n", errors.New("exit status 2")),
			want: "cmake --build build (exit 2): no target c3",
		},
		{
			name: "wrapped only",
			err:  NewCommandError("fastchess", nil, 1, "", errors.New("exit status 1")),
			want: "fastchess (exit 1): exit status 1",
		},
		{
			name: "bare",
			err:  &CommandError{Command: "git", ExitCode: 128},
			want: "git (exit 128)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCommandError_Unwrap(t *testing.T) {
	sentinel := errors.New("boom")
	err := NewCommandError("c3", nil, 1, "", sentinel)
	if !errors.Is(err, sentinel) {
		t.Error("errors.Is should find the wrapped error")
	}
}

func TestExitCodeOf(t *testing.T) {
	wrapped := fmt.Errorf("build base: %w", NewCommandError("cmake", nil, 3, "", nil))

	code, ok := ExitCodeOf(wrapped)
	if !ok || code != 3 {
		t.Errorf("ExitCodeOf() = (%d, %v), want (3, true)", code, ok)
	}

	code, ok = ExitCodeOf(errors.New("plain"))
	if ok || code != -1 {
		t.Errorf("ExitCodeOf(plain) = (%d, %v), want (-1, false)", code, ok)
	}
}
