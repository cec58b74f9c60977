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

import "runtime/debug"

// PanicReport describes a recovered panic.
type PanicReport struct {
	Value any
	Stack string
}

// SafeGo runs fn in a new goroutine and hands any panic to onPanic
// instead of crashing the process. Crashing would skip child-process
// cleanup and leave orphaned engines behind.
//
// # Inputs
//
//   - fn: Work to run.
//   - onPanic: Optional panic callback.
func SafeGo(fn func(), onPanic func(PanicReport)) {
	go func() {
		defer func() {
			if r := recover(); r != nil && onPanic != nil {
				onPanic(PanicReport{Value: r, Stack: string(debug.Stack())})
			}
		}()
		fn()
	}()
}
