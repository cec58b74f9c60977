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
	"testing"
	"time"
)

func TestEnforceMinTimeout(t *testing.T) {
	tests := []struct {
		name      string
		requested time.Duration
		minimum   time.Duration
		want      time.Duration
	}{
		{"zero", 0, time.Second, time.Second},
		{"negative", -time.Second, time.Second, time.Second},
		{"below", 10 * time.Millisecond, time.Second, time.Second},
		{"above", time.Minute, time.Second, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EnforceMinTimeout(tt.requested, tt.minimum); got != tt.want {
				t.Errorf("EnforceMinTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTimeoutConfig_Validated(t *testing.T) {
	t.Run("zero value gets defaults", func(t *testing.T) {
		got := TimeoutConfig{}.Validated()
		if got != NewTimeoutConfig() {
			t.Errorf("Validated() = %+v, want %+v", got, NewTimeoutConfig())
		}
	})

	t.Run("small values raised to floor", func(t *testing.T) {
		got := TimeoutConfig{
			Grace:    time.Millisecond,
			KillWait: time.Millisecond,
			Probe:    time.Millisecond,
			Git:      time.Millisecond,
		}.Validated()
		if got.Grace != MinTeardownWait || got.KillWait != MinTeardownWait {
			t.Errorf("teardown waits = %v/%v, want %v", got.Grace, got.KillWait, MinTeardownWait)
		}
		if got.Probe != MinProbeTimeout {
			t.Errorf("Probe = %v, want %v", got.Probe, MinProbeTimeout)
		}
		if got.Git != time.Millisecond {
			t.Errorf("Git = %v, want 1ms", got.Git)
		}
	})
}
