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

import "sync"

// DefaultTailSize is how much child stderr is kept for error messages.
const DefaultTailSize = 4096

// TailBuffer is an io.Writer that retains only the last capacity bytes
// written to it.
//
// # Description
//
// Used as a child's stderr sink so a chatty build or engine cannot grow
// memory without bound while the error message still shows the lines
// printed right before the failure.
//
// # Thread Safety
//
// Safe for concurrent use. exec.Cmd may write stdout and stderr from
// separate goroutines into the same sink.
type TailBuffer struct {
	mu       sync.Mutex
	buf      []byte
	capacity int
	dropped  int64
}

// NewTailBuffer creates a buffer keeping at most capacity bytes.
// A non-positive capacity uses DefaultTailSize.
func NewTailBuffer(capacity int) *TailBuffer {
	if capacity <= 0 {
		capacity = DefaultTailSize
	}
	return &TailBuffer{
		buf:      make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Write appends p, discarding the oldest bytes beyond capacity. It never
// fails.
func (t *TailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(p)
	if n >= t.capacity {
		t.dropped += int64(len(t.buf) + n - t.capacity)
		t.buf = append(t.buf[:0], p[n-t.capacity:]...)
		return n, nil
	}
	if overflow := len(t.buf) + n - t.capacity; overflow > 0 {
		t.dropped += int64(overflow)
		t.buf = append(t.buf[:0], t.buf[overflow:]...)
	}
	t.buf = append(t.buf, p...)
	return n, nil
}

// String returns the retained bytes.
func (t *TailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// Dropped reports how many bytes were discarded.
func (t *TailBuffer) Dropped() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}
