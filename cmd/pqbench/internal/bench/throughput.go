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
	"context"
	"time"
)

// DefaultThroughputBudget is the wall-clock budget per throughput phase.
const DefaultThroughputBudget = 10 * time.Second

// Throughput is the result of one throughput phase.
type Throughput struct {
	Operations   int           `json:"operations"`
	Budget       time.Duration `json:"budget"`
	Elapsed      time.Duration `json:"elapsed"`
	OpsPerSecond float64       `json:"ops_per_second"`
}

// MeasureThroughput calls op back to back until the wall-clock budget is
// spent and reports completions / budget seconds. It always uses the wall
// clock, whatever clock the trials use. A budget <= 0 means
// DefaultThroughputBudget.
//
// An op error aborts the phase; so does ctx cancellation.
func MeasureThroughput(ctx context.Context, budget time.Duration, op func() error) (Throughput, error) {
	if budget <= 0 {
		budget = DefaultThroughputBudget
	}

	start := time.Now()
	n := 0
	for time.Since(start) < budget {
		if err := ctx.Err(); err != nil {
			return Throughput{}, err
		}
		if err := op(); err != nil {
			return Throughput{}, err
		}
		n++
	}

	return Throughput{
		Operations:   n,
		Budget:       budget,
		Elapsed:      time.Since(start),
		OpsPerSecond: float64(n) / budget.Seconds(),
	}, nil
}
