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

import (
	"sync"
	"sync/atomic"
)

// =============================================================================
// Window Type
// =============================================================================

// Window is a thread-safe bounded buffer that keeps the newest items.
//
// # Description
//
// Window holds at most capacity items. Pushing into a full window evicts
// the oldest item and increments DroppedCount. The resource sampler uses
// it to hold the last N readings of a trial.
//
// # Thread Safety
//
// All methods are protected by a mutex. A sampler goroutine may Push while
// a timed-out joiner reads ToSlice.
//
// # Example
//
//	w := util.NewWindow[float64](3)
//	for _, v := range []float64{1, 2, 3, 4} {
//	    w.Push(v)
//	}
//	w.ToSlice()      // [2 3 4]
//	w.DroppedCount() // 1
//
// # Limitations
//
//   - Fixed capacity after creation
//   - Dropped items cannot be recovered
type Window[T any] struct {
	buffer   []T
	head     int
	size     int
	capacity int
	dropped  int64
	mu       sync.Mutex
}

// NewWindow creates a window with the given capacity.
//
// # Inputs
//
//   - capacity: Maximum number of items. Values < 1 are raised to 1.
//
// # Outputs
//
//   - *Window[T]: Empty window ready for use
func NewWindow[T any](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{
		buffer:   make([]T, capacity),
		capacity: capacity,
	}
}

// Push adds an item, evicting the oldest one when full.
//
// # Outputs
//
//   - bool: true if an item was evicted to make room
func (w *Window[T]) Push(item T) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	evicted := false
	if w.size == w.capacity {
		w.head = (w.head + 1) % w.capacity
		w.size--
		atomic.AddInt64(&w.dropped, 1)
		evicted = true
	}

	tail := (w.head + w.size) % w.capacity
	w.buffer[tail] = item
	w.size++
	return evicted
}

// DroppedCount returns how many items were evicted since creation.
func (w *Window[T]) DroppedCount() int64 {
	return atomic.LoadInt64(&w.dropped)
}

// ToSlice returns a copy of the items, oldest first.
//
// Returns nil when the window is empty.
func (w *Window[T]) ToSlice() []T {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.size == 0 {
		return nil
	}
	out := make([]T, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buffer[(w.head+i)%w.capacity]
	}
	return out
}
