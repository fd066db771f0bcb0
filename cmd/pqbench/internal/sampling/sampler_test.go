// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sampling

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pqbench/pkg/logging"
)

const testJoin = time.Second

// sequenceProbe returns first for the baseline read and rest afterwards.
func sequenceProbe(first, rest float64) FuncProbe {
	var calls atomic.Int64
	return FuncProbe{ProbeName: "seq", Fn: func(context.Context) (float64, error) {
		if calls.Add(1) == 1 {
			return first, nil
		}
		return rest, nil
	}}
}

func TestSampler_ImmediateStopWithSamples(t *testing.T) {
	s := New(sequenceProbe(100, 150), Config{})

	require.NoError(t, s.Start(context.Background()))
	m, err := s.StopAndJoin(testJoin)
	require.NoError(t, err)

	assert.Equal(t, Completed, m.Outcome)
	require.GreaterOrEqual(t, m.Samples, 1)
	assert.Equal(t, 50.0, m.Value)
	assert.Equal(t, StateStopped, s.State())
}

func TestSampler_NoSamplesYieldsZero(t *testing.T) {
	var calls atomic.Int64
	probe := FuncProbe{ProbeName: "flaky", Fn: func(context.Context) (float64, error) {
		if calls.Add(1) == 1 {
			return 10, nil
		}
		return 0, ErrTransient
	}}
	s := New(probe, Config{Period: time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(5 * time.Millisecond)
	m, err := s.StopAndJoin(testJoin)
	require.NoError(t, err)

	assert.Equal(t, 0, m.Samples)
	assert.Equal(t, 0.0, m.Value)
	assert.Greater(t, m.Transient, 0)
}

func TestSampler_MissingBaselineYieldsZero(t *testing.T) {
	var calls atomic.Int64
	probe := FuncProbe{ProbeName: "late", Fn: func(context.Context) (float64, error) {
		if calls.Add(1) == 1 {
			return 0, errors.New("not ready")
		}
		return 500, nil
	}}
	s := New(probe, Config{})

	require.NoError(t, s.Start(context.Background()))
	m, err := s.StopAndJoin(testJoin)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, m.Samples, 1)
	assert.Equal(t, 0.0, m.Value)
}

func TestSampler_NegativeDelta(t *testing.T) {
	s := New(sequenceProbe(100, 40), Config{})

	require.NoError(t, s.Start(context.Background()))
	m, err := s.StopAndJoin(testJoin)
	require.NoError(t, err)
	assert.Equal(t, -60.0, m.Value)
}

func TestSampler_WindowIsBounded(t *testing.T) {
	var n atomic.Int64
	probe := FuncProbe{ProbeName: "counter", Fn: func(context.Context) (float64, error) {
		return float64(n.Add(1)), nil
	}}
	s := New(probe, Config{Period: 100 * time.Microsecond, Window: 3})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	m, err := s.StopAndJoin(testJoin)
	require.NoError(t, err)

	assert.LessOrEqual(t, m.Samples, 3)
	assert.Greater(t, m.Value, 0.0)
}

func TestSampler_JoinTimeout(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	probe := FuncProbe{ProbeName: "stuck", Fn: func(context.Context) (float64, error) {
		if calls.Add(1) == 1 {
			return 1, nil
		}
		<-release
		return 2, nil
	}}
	s := New(probe, Config{})

	require.NoError(t, s.Start(context.Background()))
	m, err := s.StopAndJoin(5 * time.Millisecond)
	close(release)

	require.NoError(t, err)
	assert.Equal(t, TimedOut, m.Outcome)
	assert.Equal(t, 0, m.Samples)
	assert.Equal(t, 0.0, m.Value)
}

func TestSampler_JoinTimeoutLogsEffectiveTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	var calls atomic.Int64
	probe := FuncProbe{ProbeName: "stuck", Fn: func(context.Context) (float64, error) {
		if calls.Add(1) == 1 {
			return 1, nil
		}
		<-release
		return 2, nil
	}}
	var buf bytes.Buffer
	logger := logging.New(logging.Config{Level: logging.LevelWarn, Output: &buf})
	s := New(probe, Config{Logger: logger})

	require.NoError(t, s.Start(context.Background()))
	m, err := s.StopAndJoin(0)
	require.NoError(t, err)

	assert.Equal(t, TimedOut, m.Outcome)
	assert.Contains(t, buf.String(), "sampler join timed out")
	assert.Contains(t, buf.String(), "timeout=50ms")
}

func TestSampler_ReportsDroppedReadings(t *testing.T) {
	var n atomic.Int64
	probe := FuncProbe{ProbeName: "counter", Fn: func(context.Context) (float64, error) {
		return float64(n.Add(1)), nil
	}}
	s := New(probe, Config{Period: 100 * time.Microsecond, Window: 2})

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool { return n.Load() > 6 }, time.Second, time.Millisecond)
	m, err := s.StopAndJoin(testJoin)
	require.NoError(t, err)

	assert.Equal(t, 2, m.Samples)
	assert.Greater(t, m.Dropped, 0)
}

// flooredReader counts reads and refuses to be polled faster than floor.
type flooredReader struct {
	floor time.Duration
	calls atomic.Int64
}

func (p *flooredReader) Name() string { return "floored" }

func (p *flooredReader) Read(context.Context) (float64, error) {
	return float64(p.calls.Add(1)), nil
}

func (p *flooredReader) MinPeriod() time.Duration { return p.floor }

func TestSampler_RespectsPeriodFloor(t *testing.T) {
	p := &flooredReader{floor: time.Hour}
	s := New(p, Config{Period: 100 * time.Microsecond})

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	m, err := s.StopAndJoin(testJoin)
	require.NoError(t, err)

	// Only the baseline read: no immediate poll and no tick within the floor.
	assert.Equal(t, int64(1), p.calls.Load())
	assert.Equal(t, 0, m.Samples)
	assert.Equal(t, 0.0, m.Value)
}

func TestSampler_StateErrors(t *testing.T) {
	s := New(sequenceProbe(1, 1), Config{})

	_, err := s.StopAndJoin(testJoin)
	assert.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrInvalidState)

	_, err = s.StopAndJoin(testJoin)
	require.NoError(t, err)

	_, err = s.StopAndJoin(testJoin)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.ErrorIs(t, s.Start(context.Background()), ErrInvalidState)
}

func TestSampler_ZeroTimeoutUsesDefault(t *testing.T) {
	s := New(sequenceProbe(1, 2), Config{})

	require.NoError(t, s.Start(context.Background()))
	m, err := s.StopAndJoin(0)
	require.NoError(t, err)
	assert.Equal(t, Completed, m.Outcome)
}

func TestSampler_ProbePanicIsContained(t *testing.T) {
	var calls atomic.Int64
	probe := FuncProbe{ProbeName: "boom", Fn: func(context.Context) (float64, error) {
		if calls.Add(1) == 1 {
			return 1, nil
		}
		panic("probe bug")
	}}
	s := New(probe, Config{})

	require.NoError(t, s.Start(context.Background()))
	m, err := s.StopAndJoin(testJoin)
	require.NoError(t, err)
	assert.Equal(t, Completed, m.Outcome)
	assert.Equal(t, 0.0, m.Value)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "timed_out", TimedOut.String())
	assert.Equal(t, "completed", Completed.String())
}

// =============================================================================
// Real probes
// =============================================================================

func TestRSSProbe_Read(t *testing.T) {
	p, err := NewRSSProbe()
	require.NoError(t, err)

	v, err := p.Read(context.Background())
	require.NoError(t, err)
	assert.Greater(t, v, 0.0)
}

func TestCPUPercentFactory_FreshProbes(t *testing.T) {
	f := CPUPercentFactory{}
	a, err := f.NewProbe()
	require.NoError(t, err)
	b, err := f.NewProbe()
	require.NoError(t, err)
	assert.NotSame(t, a, b)

	v, err := a.Read(context.Background())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, v, 0.0)

	floor, ok := a.(PeriodFloor)
	require.True(t, ok, "cpu probe should declare a period floor")
	assert.Equal(t, CPUMinPeriod, floor.MinPeriod())
}

func TestSampler_WithRSSProbe(t *testing.T) {
	p, err := NewRSSProbe()
	require.NoError(t, err)

	s := New(p, Config{})
	require.NoError(t, s.Start(context.Background()))
	buf := make([]byte, 8<<20)
	for i := range buf {
		buf[i] = byte(i)
	}
	m, err := s.StopAndJoin(testJoin)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, m.Samples, 1)
	_ = buf[len(buf)-1]
}
