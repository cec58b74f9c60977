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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// =============================================================================
// Run Lock
// =============================================================================

// RunLock guards an output directory against concurrent gauntlet runs.
//
// # Description
//
// Two runs writing into the same directory would interleave PGN files and
// race on `git worktree` bookkeeping. The lock is an advisory flock(2) on
// `<dir>/<name>.lock`, with the holder's PID written next to it for the
// error message. The kernel drops the lock when the process dies, so a
// crashed run never leaves a stale lock behind.
//
// # Thread Safety
//
// Not safe for concurrent use. Acquire once per process.
type RunLock struct {
	lockPath string
	pidPath  string
	file     *os.File
}

// ErrLockHeld reports that another run owns the lock.
type ErrLockHeld struct {
	HolderPID int
	LockPath  string
}

func (e *ErrLockHeld) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("another gauntlet run is using this output directory (PID %d)", e.HolderPID)
	}
	return fmt.Sprintf("another gauntlet run is using this output directory (lock %s)", e.LockPath)
}

// NewRunLock prepares a lock in dir. An empty name means "gauntlet".
func NewRunLock(dir, name string) *RunLock {
	if dir == "" {
		dir = os.TempDir()
	}
	if name == "" {
		name = "gauntlet"
	}
	return &RunLock{
		lockPath: filepath.Join(dir, name+".lock"),
		pidPath:  filepath.Join(dir, name+".pid"),
	}
}

// Acquire takes the lock without blocking.
//
// # Outputs
//
//   - error: *ErrLockHeld if another process holds it, or an I/O error.
func (l *RunLock) Acquire() error {
	if l.file != nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(l.lockPath), 0750); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file %s: %w", l.lockPath, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return &ErrLockHeld{HolderPID: l.HolderPID(), LockPath: l.lockPath}
		}
		return fmt.Errorf("acquire lock: %w", err)
	}

	l.file = f
	// The PID file is informational only.
	_ = os.WriteFile(l.pidPath, []byte(strconv.Itoa(os.Getpid())+"\n"), 0644)
	return nil
}

// Release drops the lock. Safe to call when not held.
func (l *RunLock) Release() error {
	if l.file == nil {
		return nil
	}
	_ = os.Remove(l.pidPath)
	err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// IsHeld reports whether this RunLock holds the lock.
func (l *RunLock) IsHeld() bool {
	return l.file != nil
}

// HolderPID reads the PID file, returning 0 when absent or malformed.
func (l *RunLock) HolderPID() int {
	data, err := os.ReadFile(l.pidPath)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
