// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package adapter

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/util"
)

// Clock is the time source for adapter measurements. One clock is shared
// by every adapter of a run.
type Clock interface {
	// Now returns a monotonic reading. Only differences are meaningful.
	Now() time.Duration
	Name() string
}

const (
	ClockWall = "wall"
	ClockCPU  = "cpu"
)

// WallClock reads the monotonic wall clock.
type WallClock struct {
	origin time.Time
}

// NewWallClock returns a wall clock anchored at the current instant.
func NewWallClock() *WallClock {
	return &WallClock{origin: time.Now()}
}

func (c *WallClock) Now() time.Duration {
	return time.Since(c.origin)
}

func (c *WallClock) Name() string { return ClockWall }

// CPUClock reads the CPU time of the calling OS thread. Readings are only
// comparable on one thread, so measure pins the goroutine for the call.
// Where the platform has no thread CPU clock it falls back to the wall
// clock.
type CPUClock struct {
	fallback *WallClock
}

func NewCPUClock() *CPUClock {
	return &CPUClock{fallback: NewWallClock()}
}

func (c *CPUClock) Now() time.Duration {
	if d, ok := threadCPUTime(); ok {
		return d
	}
	return c.fallback.Now()
}

func (c *CPUClock) Name() string { return ClockCPU }

// ParseClock builds the clock named by configuration ("cpu" or "wall").
func ParseClock(name string) (Clock, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ClockCPU:
		return NewCPUClock(), nil
	case ClockWall:
		return NewWallClock(), nil
	default:
		return nil, fmt.Errorf("%w: unknown clock %q", ErrUnsupported, name)
	}
}

// measure runs fn under the clock. A provider panic becomes an OpError
// for op; so does any error fn returns.
func measure[T any](clock Clock, v Variant, op Op, fn func() (T, error)) (out Timed[T], err error) {
	defer util.RecoverPanic(func(r util.SafeGoResult) {
		out = Timed[T]{}
		err = newOpError(op, v, r.Err())
	})()

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	start := clock.Now()
	value, callErr := fn()
	elapsed := clock.Now() - start
	if callErr != nil {
		return Timed[T]{}, newOpError(op, v, callErr)
	}
	if elapsed < 0 {
		elapsed = 0
	}
	return Timed[T]{Value: value, Elapsed: elapsed}, nil
}
