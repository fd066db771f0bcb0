// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sampling measures resource usage around a single operation.
//
// A Sampler captures a baseline reading, polls its Probe on a background
// goroutine while the operation runs, and reports the peak of the last few
// readings minus the baseline.
//
// # Lifecycle
//
//	s := sampling.New(probe, sampling.Config{})
//	if err := s.Start(ctx); err != nil { ... }   // baseline captured here
//	op()
//	m, err := s.StopAndJoin(50 * time.Millisecond)
//
// A Sampler is single-use: Idle → Running → Stopped.
package sampling

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/util"
	"github.com/AleutianAI/pqbench/pkg/logging"
)

const (
	// DefaultPeriod is the poll interval.
	DefaultPeriod = 200 * time.Microsecond

	// DefaultWindow is how many of the newest readings are kept.
	DefaultWindow = 10

	// DefaultJoinTimeout bounds StopAndJoin when the caller passes <= 0.
	DefaultJoinTimeout = 50 * time.Millisecond
)

// ErrInvalidState is returned by Start and StopAndJoin when called out of
// order.
var ErrInvalidState = errors.New("sampler: invalid state")

// State is the sampler lifecycle position.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// JoinOutcome tells whether the poll loop exited within the join timeout.
type JoinOutcome int

const (
	Completed JoinOutcome = iota
	TimedOut
)

func (o JoinOutcome) String() string {
	if o == TimedOut {
		return "timed_out"
	}
	return "completed"
}

// Measurement is one trial's resource delta.
type Measurement struct {
	// Value is max(window) - baseline. Zero when no sample was taken or the
	// baseline could not be read. May be negative.
	Value float64

	// Samples is how many readings the window held at summary time.
	Samples int

	// Dropped is how many older readings were evicted from the window.
	Dropped int

	// Transient is how many readings failed and were skipped.
	Transient int

	Outcome JoinOutcome
}

// Config tunes a Sampler. Zero values take the defaults.
type Config struct {
	Period time.Duration
	Window int
	Logger *logging.Logger
}

// Sampler polls one Probe for the duration of one operation.
type Sampler struct {
	probe    Probe
	period   time.Duration
	deferred bool
	logger   *logging.Logger

	state     atomic.Int32
	window    *util.Window[float64]
	transient atomic.Int64

	baseline   float64
	baselineOK bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle sampler.
func New(probe Probe, cfg Config) *Sampler {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Nop()
	}
	deferred := false
	if f, ok := probe.(PeriodFloor); ok {
		deferred = true
		if floor := f.MinPeriod(); cfg.Period < floor {
			cfg.Period = floor
		}
	}
	return &Sampler{
		probe:    probe,
		period:   cfg.Period,
		deferred: deferred,
		logger:   cfg.Logger.With("probe", probe.Name()),
		window:   util.NewWindow[float64](cfg.Window),
	}
}

// State returns the current lifecycle state.
func (s *Sampler) State() State {
	return State(s.state.Load())
}

// Start captures the baseline and launches the poll loop. It returns only
// after the baseline read has finished, so work started afterwards is
// inside the measured window.
func (s *Sampler) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrInvalidState
	}

	if v, err := s.probe.Read(ctx); err != nil {
		s.transient.Add(1)
		s.logger.Debug("baseline read failed", "error", err)
	} else {
		s.baseline = v
		s.baselineOK = true
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	done := s.done
	util.SafeGo(func() {
		defer close(done)
		s.poll(loopCtx)
	}, func(r util.SafeGoResult) {
		s.logger.Error("sampler poll loop panicked", "panic", r.PanicValue)
	})
	return nil
}

// StopAndJoin signals the poll loop to stop and waits at most timeout for
// it to exit (timeout <= 0 means DefaultJoinTimeout). The measurement is
// computed from the window either way; Outcome records which happened.
func (s *Sampler) StopAndJoin(timeout time.Duration) (Measurement, error) {
	if !s.state.CompareAndSwap(int32(StateRunning), int32(StateStopped)) {
		return Measurement{}, ErrInvalidState
	}
	s.cancel()

	timeout = util.EnforceDefaultTimeout(timeout, DefaultJoinTimeout)
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	outcome := Completed
	select {
	case <-s.done:
	case <-timer.C:
		outcome = TimedOut
		s.logger.Warn("sampler join timed out", "timeout", timeout)
	}
	return s.summarize(outcome), nil
}

func (s *Sampler) poll(ctx context.Context) {
	if !s.deferred {
		s.sample(ctx)
	}

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sample(ctx)
		}
	}
}

func (s *Sampler) sample(ctx context.Context) {
	v, err := s.probe.Read(ctx)
	if err != nil {
		// A read cut short by the stop signal is not a failure.
		if ctx.Err() != nil {
			return
		}
		s.transient.Add(1)
		if !errors.Is(err, ErrTransient) {
			s.logger.Debug("probe read failed", "error", err)
		}
		return
	}
	s.window.Push(v)
}

func (s *Sampler) summarize(outcome JoinOutcome) Measurement {
	readings := s.window.ToSlice()
	m := Measurement{
		Samples:   len(readings),
		Dropped:   int(s.window.DroppedCount()),
		Transient: int(s.transient.Load()),
		Outcome:   outcome,
	}
	if len(readings) == 0 || !s.baselineOK {
		return m
	}
	m.Value = floats.Max(readings) - s.baseline
	return m
}
