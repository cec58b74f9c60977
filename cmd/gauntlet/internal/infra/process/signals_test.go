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
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignalHandler_FirstSignalCancelsAndCleansUp(t *testing.T) {
	sup := quietSupervisor()
	child := newFakeChild(syscall.SIGTERM)
	_, err := sup.Track(child)
	require.NoError(t, err)

	ctx, cancel := context.WithCancelCause(context.Background())
	h := sup.HandleSignals(cancel, func(int) { t.Error("exit must not be called on first signal") })
	defer h.Stop()

	h.deliver(syscall.SIGINT)

	assert.ErrorIs(t, context.Cause(ctx), ErrInterrupted)
	assert.Equal(t, []syscall.Signal{syscall.SIGTERM}, child.Signals())
	assert.Equal(t, 130, h.ExitCode())
	sig, ok := h.Received()
	assert.True(t, ok)
	assert.Equal(t, syscall.SIGINT, sig)
}

func TestSignalHandler_SecondSignalExits(t *testing.T) {
	sup := quietSupervisor()
	_, cancel := context.WithCancelCause(context.Background())
	var code int
	h := sup.HandleSignals(cancel, func(c int) { code = c })
	defer h.Stop()

	h.deliver(syscall.SIGTERM)
	h.deliver(syscall.SIGTERM)

	assert.Equal(t, 143, code)
	assert.Equal(t, 143, h.ExitCode())
}

func TestSignalHandler_NoSignal(t *testing.T) {
	sup := quietSupervisor()
	_, cancel := context.WithCancelCause(context.Background())
	h := sup.HandleSignals(cancel, nil)

	assert.Equal(t, 0, h.ExitCode())
	h.Stop()
	h.Stop()
}
