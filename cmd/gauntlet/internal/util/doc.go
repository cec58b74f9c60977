// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package util provides leaf utilities shared by the gauntlet packages.
//
// Nothing here imports another internal package.
//
//   - Timeouts: probe, git and teardown durations with enforced minimums
//   - Command errors: [CommandError] for child processes that exit non-zero
//   - Tail buffer: [TailBuffer] keeps the last bytes a child wrote to stderr
//   - Goroutine safety: [SafeGo] recovers panics in background goroutines
//
// # Thread Safety
//
// [TailBuffer] is safe for concurrent writes. [CommandError] is immutable.
package util
