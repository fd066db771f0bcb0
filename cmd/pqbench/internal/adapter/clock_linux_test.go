// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build linux

package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/sampling"
)

var spinSink uint64

// spin burns a fixed amount of CPU.
func spin(n int) uint64 {
	x := uint64(1)
	for i := 0; i < n; i++ {
		x = x*6364136223846793005 + 1442695040888963407
	}
	spinSink = x
	return x
}

func TestCPUClock_ExcludesSamplerWork(t *testing.T) {
	const trials = 100
	clock := NewCPUClock()
	v := kemVariant(RunnerOQS, "spin")
	ctx := context.Background()

	// Each sampler read burns a tenth of the op's work and fires every 20µs,
	// so a process-wide clock would bill several reads to each call.
	busy := sampling.FuncProbe{ProbeName: "busy", Fn: func(context.Context) (float64, error) {
		return float64(spin(20_000)), nil
	}}

	meanElapsed := func(sampled bool) time.Duration {
		var total time.Duration
		for i := 0; i < trials; i++ {
			var s *sampling.Sampler
			if sampled {
				s = sampling.New(busy, sampling.Config{Period: 20 * time.Microsecond})
				require.NoError(t, s.Start(ctx))
			}
			timed, err := measure(clock, v, OpEncapsulate, func() (uint64, error) {
				return spin(200_000), nil
			})
			require.NoError(t, err)
			if s != nil {
				_, err := s.StopAndJoin(time.Second)
				require.NoError(t, err)
			}
			total += timed.Elapsed
		}
		return total / trials
	}

	without := meanElapsed(false)
	with := meanElapsed(true)
	require.Positive(t, without)
	assert.Less(t, float64(with), 1.25*float64(without)+float64(20*time.Microsecond),
		"mean with sampler %s, without %s", with, without)
}

func TestMeasure_ReleasesThreadAfterPanic(t *testing.T) {
	clock := NewCPUClock()
	_, err := measure(clock, kemVariant(RunnerOQS, "panic"), OpEncapsulate, func() (int, error) {
		panic("provider blew up")
	})
	require.Error(t, err)

	// A second call on the same goroutine still measures normally.
	timed, err := measure(clock, kemVariant(RunnerOQS, "spin"), OpEncapsulate, func() (uint64, error) {
		return spin(10_000), nil
	})
	require.NoError(t, err)
	assert.Positive(t, timed.Elapsed)
}
