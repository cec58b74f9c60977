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

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

const (
	// DefaultGracePeriod is how long a process group gets to exit after
	// SIGTERM before it is sent SIGKILL.
	DefaultGracePeriod = 5 * time.Second

	// DefaultKillWait bounds the wait for the group to disappear after
	// SIGKILL.
	DefaultKillWait = 2 * time.Second

	// DefaultProbeTimeout is the hard wall-clock limit on one perft probe.
	DefaultProbeTimeout = 300 * time.Second

	// DefaultGitTimeout bounds short git commands (rev-parse, worktree).
	DefaultGitTimeout = 60 * time.Second

	// MinProbeTimeout keeps a misconfigured probe timeout from failing
	// every position on process startup alone.
	MinProbeTimeout = time.Second

	// MinTeardownWait is the floor for the grace period and kill wait.
	MinTeardownWait = 100 * time.Millisecond
)

// =============================================================================
// Timeout Configuration
// =============================================================================

// TimeoutConfig groups the durations the supervisor and probes use.
type TimeoutConfig struct {
	Grace    time.Duration
	KillWait time.Duration
	Probe    time.Duration
	Git      time.Duration
}

// NewTimeoutConfig returns the default timeouts.
func NewTimeoutConfig() TimeoutConfig {
	return TimeoutConfig{
		Grace:    DefaultGracePeriod,
		KillWait: DefaultKillWait,
		Probe:    DefaultProbeTimeout,
		Git:      DefaultGitTimeout,
	}
}

// Validated returns a copy with zero values replaced by defaults and
// values below the minimums raised to them.
func (c TimeoutConfig) Validated() TimeoutConfig {
	return TimeoutConfig{
		Grace:    EnforceMinTimeout(EnforceDefaultTimeout(c.Grace, DefaultGracePeriod), MinTeardownWait),
		KillWait: EnforceMinTimeout(EnforceDefaultTimeout(c.KillWait, DefaultKillWait), MinTeardownWait),
		Probe:    EnforceMinTimeout(EnforceDefaultTimeout(c.Probe, DefaultProbeTimeout), MinProbeTimeout),
		Git:      EnforceDefaultTimeout(c.Git, DefaultGitTimeout),
	}
}

// EnforceMinTimeout returns minimum when requested is non-positive or
// below it.
func EnforceMinTimeout(requested, minimum time.Duration) time.Duration {
	if requested <= 0 || requested < minimum {
		return minimum
	}
	return requested
}

// EnforceDefaultTimeout returns defaultVal when requested is non-positive.
func EnforceDefaultTimeout(requested, defaultVal time.Duration) time.Duration {
	if requested <= 0 {
		return defaultVal
	}
	return requested
}
