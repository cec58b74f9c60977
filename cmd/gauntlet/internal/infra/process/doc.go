// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

/*
Package process supervises the external programs gauntlet drives: the build
tool, the match runner, git, and the engine binaries themselves.

# Overview

  - Supervisor: spawns children in their own process group, tracks the one
    active child, and tears the whole group down on cancel, timeout, or
    signal.
  - Runner: the interface the rest of the tool uses to run commands, with
    MockRunner for tests.
  - RunLock: flock(2)-based lock that keeps two gauntlet runs from sharing
    an output directory.

# Supervisor

	sup := process.NewSupervisor(process.Config{Logger: logger})
	defer sup.Cleanup()

	if err := sup.Run(ctx, process.Command{Name: "fastchess", Args: args, Output: logFile}); err != nil {
	    var cmdErr *util.CommandError
	    if errors.As(err, &cmdErr) { ... }
	}

	out, err := sup.Probe(ctx, process.Command{Name: binary, Stdin: script}, 300*time.Second)
	if errors.Is(err, process.ErrTimeout) { ... }

Teardown sends SIGTERM to the group, waits up to the grace period, sends
SIGKILL, waits up to the kill wait, then forgets the child. Cleanup is
idempotent and safe to call from a signal path while Run is waiting.

A child that exits on its own does not leave its group behind either: once
the leader is reaped, surviving members get SIGKILL, so an engine the match
runner failed to stop cannot keep Run waiting on its output pipe.

# Signals

HandleSignals cancels the root context on SIGINT/SIGTERM and runs Cleanup
right away, so the active group dies even if the workflow is between steps.
The CLI then exits with 128+signal.

# Thread Safety

Supervisor and MockRunner are safe for concurrent use. RunLock is not.

# Limitations

  - Unix only (process groups, flock).
  - A child that calls setsid(2) itself escapes group teardown.
*/
package process
