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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLock_AcquireRelease(t *testing.T) {
	dir := t.TempDir()
	lock := NewRunLock(dir, "")

	require.NoError(t, lock.Acquire())
	assert.True(t, lock.IsHeld())
	assert.Equal(t, os.Getpid(), lock.HolderPID())

	require.NoError(t, lock.Release())
	assert.False(t, lock.IsHeld())
	assert.Equal(t, 0, lock.HolderPID())
	assert.NoError(t, lock.Release())
}

func TestRunLock_SecondInstanceRejected(t *testing.T) {
	dir := t.TempDir()
	first := NewRunLock(dir, "bench")
	second := NewRunLock(dir, "bench")

	require.NoError(t, first.Acquire())
	defer first.Release()

	err := second.Acquire()
	var held *ErrLockHeld
	require.ErrorAs(t, err, &held)
	assert.Equal(t, os.Getpid(), held.HolderPID)
	assert.Contains(t, held.Error(), "another gauntlet run")

	require.NoError(t, first.Release())
	assert.NoError(t, second.Acquire())
	assert.NoError(t, second.Release())
}

func TestRunLock_AcquireTwiceIsNoop(t *testing.T) {
	lock := NewRunLock(t.TempDir(), "x")
	require.NoError(t, lock.Acquire())
	assert.NoError(t, lock.Acquire())
	assert.NoError(t, lock.Release())
}
