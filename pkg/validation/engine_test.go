// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validation

import (
	"testing"
)

func TestValidateEngineName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"slot name", "test", false},
		{"binary name", "stockfish_16", false},
		{"collision suffix", "c3-base", false},
		{"version", "sf16.1+nnue", false},
		{"max length", strings64(), false},

		{"empty", "", true},
		{"space", "stockfish 16", true},
		{"equals", "name=x", true},
		{"quote", `c3"`, true},
		{"newline", "c3\n[Result", true},
		{"leading hyphen", "-c3", true},
		{"too long", strings64() + "x", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEngineName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateEngineName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateRevision(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"branch", "main", false},
		{"nested branch", "feature/move-ordering", false},
		{"relative", "HEAD~3", false},
		{"hash", "a1b2c3d", false},

		{"empty", "", true},
		{"option", "--upload-pack=evil", true},
		{"space", "main branch", true},
		{"control", "main\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRevision(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRevision(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func strings64() string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
