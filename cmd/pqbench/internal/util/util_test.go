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
	"bytes"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Window Tests
// =============================================================================

func TestWindow_KeepsNewest(t *testing.T) {
	w := NewWindow[int](3)
	for i := 1; i <= 5; i++ {
		w.Push(i)
	}

	got := w.ToSlice()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("ToSlice() len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ToSlice()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if w.DroppedCount() != 2 {
		t.Errorf("DroppedCount() = %d, want 2", w.DroppedCount())
	}
}

func TestWindow_PushReportsEviction(t *testing.T) {
	w := NewWindow[string](1)
	if w.Push("a") {
		t.Error("first Push should not evict")
	}
	if !w.Push("b") {
		t.Error("second Push should evict")
	}
}

func TestWindow_EmptyReturnsNil(t *testing.T) {
	w := NewWindow[float64](10)
	if got := w.ToSlice(); got != nil {
		t.Errorf("ToSlice() = %v, want nil", got)
	}
}

func TestWindow_MinimumCapacity(t *testing.T) {
	w := NewWindow[int](0)
	w.Push(1)
	if !w.Push(2) {
		t.Error("second Push into a zero-capacity window should evict")
	}
	if got := w.ToSlice(); len(got) != 1 || got[0] != 2 {
		t.Errorf("ToSlice() = %v, want [2]", got)
	}
}

func TestWindow_ConcurrentPushAndRead(t *testing.T) {
	w := NewWindow[int](10)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			w.Push(i)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if len(w.ToSlice()) > 10 {
				t.Error("window exceeded capacity")
				return
			}
		}
	}()
	wg.Wait()
	if got := len(w.ToSlice()); got != 10 {
		t.Errorf("len(ToSlice()) = %d, want 10", got)
	}
}

// =============================================================================
// Goroutine Tests
// =============================================================================

func TestSafeGo_NoPanic(t *testing.T) {
	done := make(chan struct{})
	panicked := make(chan struct{}, 1)

	SafeGo(func() {
		close(done)
	}, func(SafeGoResult) {
		panicked <- struct{}{}
	})

	<-done
	select {
	case <-panicked:
		t.Error("onPanic called without panic")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestSafeGo_WithPanic(t *testing.T) {
	results := make(chan SafeGoResult, 1)

	SafeGo(func() {
		panic("probe exploded")
	}, func(r SafeGoResult) {
		results <- r
	})

	select {
	case r := <-results:
		if r.PanicValue != "probe exploded" {
			t.Errorf("PanicValue = %v", r.PanicValue)
		}
		if r.Stack == "" {
			t.Error("Stack is empty")
		}
	case <-time.After(time.Second):
		t.Fatal("onPanic was not called")
	}
}

func TestRecoverPanic_ConvertsToError(t *testing.T) {
	sentinel := errors.New("provider failure")

	run := func() (err error) {
		defer RecoverPanic(func(r SafeGoResult) {
			err = r.Err()
		})()
		panic(sentinel)
	}

	err := run()
	if !errors.Is(err, sentinel) {
		t.Errorf("err = %v, want wrapping %v", err, sentinel)
	}
}

func TestRecoverPanic_NilCallback(t *testing.T) {
	run := func() {
		defer RecoverPanic(nil)()
		panic(42)
	}
	run()
}

func TestSafeGoResult_ErrNonError(t *testing.T) {
	err := SafeGoResult{PanicValue: 42}.Err()
	if err == nil || !strings.Contains(err.Error(), "42") {
		t.Errorf("Err() = %v", err)
	}
}

// =============================================================================
// Timeout Tests
// =============================================================================

func TestEnforceDefaultTimeout(t *testing.T) {
	tests := []struct {
		name      string
		requested time.Duration
		want      time.Duration
	}{
		{"zero uses default", 0, 50 * time.Millisecond},
		{"negative uses default", -time.Second, 50 * time.Millisecond},
		{"positive kept", 3 * time.Millisecond, 3 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EnforceDefaultTimeout(tt.requested, 50*time.Millisecond); got != tt.want {
				t.Errorf("EnforceDefaultTimeout() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnforceMinTimeout(t *testing.T) {
	if got := EnforceMinTimeout(time.Second, MinSinkTimeout); got != MinSinkTimeout {
		t.Errorf("EnforceMinTimeout() = %v, want %v", got, MinSinkTimeout)
	}
	if got := EnforceMinTimeout(time.Hour, MinSinkTimeout); got != time.Hour {
		t.Errorf("EnforceMinTimeout() = %v, want 1h", got)
	}
}

// =============================================================================
// Progress Tests
// =============================================================================

func TestLineProgress_WritesLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, false)
	p.Start()
	p.SetMessage("Testing RSA, Variant 1/2 (2048)")
	p.SetMessage("Testing RSA, Variant 2/2 (3072)")
	p.Stop()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %q", len(lines), buf.String())
	}
	if lines[1] != "Testing RSA, Variant 2/2 (3072)" {
		t.Errorf("line 2 = %q", lines[1])
	}
}

func TestSpinner_StartStop(t *testing.T) {
	var buf syncBuffer
	s := NewSpinner(SpinnerConfig{Writer: &buf, Interval: time.Millisecond, ClearOnStop: true})

	s.Start()
	s.Start()
	if !s.IsRunning() {
		t.Fatal("spinner not running after Start")
	}
	s.SetMessage("Testing ML-KEM")
	time.Sleep(5 * time.Millisecond)
	s.Stop()
	s.Stop()

	if s.IsRunning() {
		t.Error("spinner still running after Stop")
	}
	if !strings.Contains(buf.String(), "Testing ML-KEM") {
		t.Errorf("output missing message: %q", buf.String())
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
