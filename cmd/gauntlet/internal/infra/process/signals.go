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
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/AleutianAI/gauntlet/cmd/gauntlet/internal/util"
)

// ErrInterrupted is the context cause set when a termination signal
// arrives.
var ErrInterrupted = errors.New("interrupted by signal")

// SignalHandler turns SIGINT/SIGTERM into supervised shutdown.
//
// # Description
//
// On the first signal it records the signal, cancels the root context with
// ErrInterrupted as the cause, and runs Supervisor.Cleanup. The workflow
// then unwinds normally (deferred sandbox release included) and the CLI
// exits with ExitCode(). A second signal skips the unwinding and exits
// immediately after another Cleanup.
//
// # Thread Safety
//
// Safe for concurrent use.
type SignalHandler struct {
	sup      *Supervisor
	cancel   context.CancelCauseFunc
	exit     func(int)
	sigs     chan os.Signal
	done     chan struct{}
	received atomic.Int32
	stopOnce sync.Once
}

// HandleSignals installs the handler. Call Stop when the run is over.
//
// # Inputs
//
//   - cancel: Cancels the root context of the run.
//   - exit: Called on a second signal. Nil means os.Exit.
func (s *Supervisor) HandleSignals(cancel context.CancelCauseFunc, exit func(int)) *SignalHandler {
	if exit == nil {
		exit = os.Exit
	}
	h := &SignalHandler{
		sup:    s,
		cancel: cancel,
		exit:   exit,
		sigs:   make(chan os.Signal, 2),
		done:   make(chan struct{}),
	}
	signal.Notify(h.sigs, syscall.SIGINT, syscall.SIGTERM)
	util.SafeGo(h.loop, func(r util.PanicReport) {
		s.logger.Error("signal handler panicked", "panic", r.Value)
	})
	return h
}

func (h *SignalHandler) loop() {
	for {
		select {
		case <-h.done:
			return
		case sig := <-h.sigs:
			h.deliver(sig)
		}
	}
}

func (h *SignalHandler) deliver(sig os.Signal) {
	num, ok := sig.(syscall.Signal)
	if !ok {
		return
	}
	first := h.received.CompareAndSwap(0, int32(num))
	if first {
		h.sup.logger.Warn("received signal, cleaning up", "signal", num.String())
		h.cancel(fmt.Errorf("%w: %s", ErrInterrupted, num))
		h.sup.Cleanup()
		return
	}
	h.sup.logger.Warn("second signal, exiting now", "signal", num.String())
	h.sup.Cleanup()
	h.exit(128 + int(num))
}

// Received returns the first signal delivered, if any.
func (h *SignalHandler) Received() (syscall.Signal, bool) {
	n := h.received.Load()
	return syscall.Signal(n), n != 0
}

// ExitCode returns 128 plus the received signal number, or 0 when no
// signal arrived.
func (h *SignalHandler) ExitCode() int {
	sig, ok := h.Received()
	if !ok {
		return 0
	}
	return 128 + int(sig)
}

// Stop uninstalls the handler. Safe to call more than once.
func (h *SignalHandler) Stop() {
	h.stopOnce.Do(func() {
		signal.Stop(h.sigs)
		close(h.done)
	})
}
