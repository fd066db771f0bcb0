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
	"fmt"
	"runtime/debug"
)

// =============================================================================
// Result Types
// =============================================================================

// SafeGoResult captures a panic recovered from a goroutine.
//
// # Description
//
// Passed to panic handlers with the panic value and the stack at the
// point of recovery.
//
// # Thread Safety
//
// SafeGoResult is immutable after creation and safe for concurrent reads.
type SafeGoResult struct {
	// PanicValue is the value passed to panic().
	PanicValue any

	// Stack is the stack trace at panic time, from runtime/debug.Stack().
	Stack string
}

// Err converts the recovered panic into an error.
//
// If the panic value already is an error it is wrapped so that errors.Is
// and errors.As still see it.
func (r SafeGoResult) Err() error {
	if err, ok := r.PanicValue.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r.PanicValue)
}

// =============================================================================
// Goroutine Safety Functions
// =============================================================================

// SafeGo runs a function in a goroutine with panic recovery.
//
// # Description
//
// If fn panics, the panic is caught and passed to onPanic instead of
// crashing the process. The resource sampler runs its poll loop this way:
// a misbehaving probe must not take the benchmark down.
//
// # Inputs
//
//   - fn: The function to execute in the goroutine
//   - onPanic: Callback invoked if fn panics (may be nil to silently recover)
//
// # Example
//
//	done := make(chan struct{})
//	SafeGo(func() {
//	    defer close(done)
//	    poll(ctx)
//	}, func(r SafeGoResult) {
//	    logger.Error("poll loop panicked", "panic", r.PanicValue)
//	})
//
// # Limitations
//
//   - onPanic runs in the recovered goroutine; if it panics the process crashes
//   - deferred calls inside fn still run before onPanic
//
// # Assumptions
//
//   - fn is non-nil
func SafeGo(fn func(), onPanic func(SafeGoResult)) {
	go func() {
		defer RecoverPanic(onPanic)()
		fn()
	}()
}

// RecoverPanic returns a deferred function that recovers panics.
//
// # Description
//
// For synchronous code that must not propagate a panic, such as a call
// into a crypto provider. The returned function must be deferred directly:
//
//	defer util.RecoverPanic(func(r util.SafeGoResult) {
//	    err = r.Err()
//	})()
//
// # Inputs
//
//   - onPanic: Callback invoked if a panic is recovered (may be nil)
//
// # Outputs
//
//   - func(): A function to be deferred that performs panic recovery
func RecoverPanic(onPanic func(SafeGoResult)) func() {
	return func() {
		if r := recover(); r != nil {
			if onPanic != nil {
				onPanic(SafeGoResult{
					PanicValue: r,
					Stack:      string(debug.Stack()),
				})
			}
		}
	}
}
