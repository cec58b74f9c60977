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
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Child is a running process group the supervisor can tear down.
//
// # Description
//
// The production implementation wraps an exec.Cmd started with Setpgid.
// Tests supply fakes to exercise the teardown protocol without spawning
// processes.
type Child interface {
	// Pid returns the group leader's process ID.
	Pid() int

	// Signal delivers sig to every process in the group.
	Signal(sig syscall.Signal) error

	// Done is closed once the group leader has been reaped, the rest of
	// its group has been killed and its output has been drained.
	Done() <-chan struct{}
}

// groupChild is a Child backed by an exec.Cmd in its own process group.
type groupChild struct {
	pid   int
	done  chan struct{}
	err   error
	pipes []*outputPipe
}

// outputPipe copies one of the child's output pipes into a writer.
type outputPipe struct {
	r      *os.File
	copied chan struct{}
}

// startGroup starts cmd as the leader of a new process group and reaps it
// in the background.
//
// # Description
//
// Output writers that are not files are fed through pipes owned here
// rather than by exec, so Wait returns when the leader exits even if a
// descendant still holds the write end. Once the leader is reaped the
// remaining group members are killed and the pipes get drainWait to reach
// EOF before they are closed.
//
// # Inputs
//
//   - cmd: Unstarted command. Stdout and Stderr may share one writer.
//   - drainWait: Bound on output draining and on exec's own stdin copy.
//
// # Outputs
//
//   - *groupChild: Started child.
//   - error: Pipe or start failure.
func startGroup(cmd *exec.Cmd, drainWait time.Duration) (*groupChild, error) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.WaitDelay = drainWait

	child := &groupChild{done: make(chan struct{})}
	var writeEnds []*os.File
	closeAll := func() {
		for _, w := range writeEnds {
			_ = w.Close()
		}
		for _, p := range child.pipes {
			_ = p.r.Close()
		}
	}

	attach := func(dst io.Writer) (io.Writer, error) {
		if dst == nil {
			return nil, nil
		}
		if f, ok := dst.(*os.File); ok {
			return f, nil
		}
		r, w, err := os.Pipe()
		if err != nil {
			return nil, fmt.Errorf("create output pipe: %w", err)
		}
		pipe := &outputPipe{r: r, copied: make(chan struct{})}
		child.pipes = append(child.pipes, pipe)
		writeEnds = append(writeEnds, w)
		go func() {
			defer close(pipe.copied)
			_, _ = io.Copy(dst, r)
		}()
		return w, nil
	}

	shared := cmd.Stdout != nil && cmd.Stdout == cmd.Stderr
	stdout, err := attach(cmd.Stdout)
	if err != nil {
		closeAll()
		return nil, err
	}
	stderr := stdout
	if !shared {
		if stderr, err = attach(cmd.Stderr); err != nil {
			closeAll()
			return nil, err
		}
	}
	cmd.Stdout, cmd.Stderr = stdout, stderr

	if err := cmd.Start(); err != nil {
		closeAll()
		return nil, err
	}
	// Only the child keeps the write ends open now.
	for _, w := range writeEnds {
		_ = w.Close()
	}

	child.pid = cmd.Process.Pid
	go func() {
		child.err = cmd.Wait()
		// The leader is gone. Anything left in its group is an orphan.
		_ = unix.Kill(-child.pid, unix.SIGKILL)
		child.drain(drainWait)
		close(child.done)
	}()
	return child, nil
}

// drain waits for every output pipe to reach EOF, closing the read ends
// of those still open after wait.
func (c *groupChild) drain(wait time.Duration) {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	expired := false
	for _, p := range c.pipes {
		if !expired {
			select {
			case <-p.copied:
			case <-timer.C:
				expired = true
			}
		}
		_ = p.r.Close()
		<-p.copied
	}
}

func (c *groupChild) Pid() int { return c.pid }

func (c *groupChild) Done() <-chan struct{} { return c.done }

// Signal sends sig to the child's process group. The group ID is looked up
// first; once the leader is reaped the lookup fails and the pid is used,
// which equals the group ID because of Setpgid.
func (c *groupChild) Signal(sig syscall.Signal) error {
	pgid, err := unix.Getpgid(c.pid)
	if err != nil {
		pgid = c.pid
	}
	return unix.Kill(-pgid, sig)
}

// Err returns the result of Wait. Valid only after Done is closed.
func (c *groupChild) Err() error {
	<-c.done
	return c.err
}

// syncWriter serializes writes so stdout and stderr can share one sink.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
