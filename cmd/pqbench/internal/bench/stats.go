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
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PhaseStats summarises one vector of trial observations.
type PhaseStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Max    float64 `json:"max"`
}

// Aggregate returns the arithmetic mean, the population standard deviation
// (divide by N) and the maximum of xs. Empty input yields zeros.
func Aggregate(xs []float64) PhaseStats {
	if len(xs) == 0 {
		return PhaseStats{}
	}
	mean, variance := stat.PopMeanVariance(xs, nil)
	// Rounding can leave a constant vector with a tiny negative variance.
	if variance < 0 {
		variance = 0
	}
	return PhaseStats{
		Mean:   mean,
		StdDev: math.Sqrt(variance),
		Max:    floats.Max(xs),
	}
}

// AggregateDurations is Aggregate over nanoseconds.
func AggregateDurations(ds []time.Duration) PhaseStats {
	xs := make([]float64, len(ds))
	for i, d := range ds {
		xs[i] = float64(d.Nanoseconds())
	}
	return Aggregate(xs)
}
