// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bench

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAggregate_ConstantInput(t *testing.T) {
	for _, n := range []int{1, 2, 3, 10, 500} {
		for _, c := range []float64{0, 5, 1024, 0.1, 123.456} {
			xs := make([]float64, n)
			for i := range xs {
				xs[i] = c
			}
			got := Aggregate(xs)
			assert.InDelta(t, c, got.Mean, 1e-9, "n=%d c=%v", n, c)
			assert.InDelta(t, 0, got.StdDev, 1e-6, "n=%d c=%v", n, c)
			assert.False(t, math.IsNaN(got.StdDev))
			assert.Equal(t, c, got.Max)
		}
	}
}

func TestAggregate_IntegerConstantIsExact(t *testing.T) {
	got := Aggregate([]float64{7, 7, 7, 7})
	assert.Equal(t, PhaseStats{Mean: 7, StdDev: 0, Max: 7}, got)
}

func TestAggregate_PopulationStdDev(t *testing.T) {
	// Population variance of 2,4,4,4,5,5,7,9 is 4.
	got := Aggregate([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, got.Mean, 1e-12)
	assert.InDelta(t, 2.0, got.StdDev, 1e-12)
	assert.Equal(t, 9.0, got.Max)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Equal(t, PhaseStats{}, Aggregate(nil))
	assert.Equal(t, PhaseStats{}, AggregateDurations(nil))
}

func TestAggregate_NegativeValues(t *testing.T) {
	got := Aggregate([]float64{-10, -20, -30})
	assert.InDelta(t, -20.0, got.Mean, 1e-12)
	assert.Equal(t, -10.0, got.Max)
}

func TestAggregateDurations_Nanoseconds(t *testing.T) {
	got := AggregateDurations([]time.Duration{time.Microsecond, 3 * time.Microsecond})
	assert.InDelta(t, 2000.0, got.Mean, 1e-9)
	assert.InDelta(t, 1000.0, got.StdDev, 1e-9)
	assert.Equal(t, 3000.0, got.Max)
}
