// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pqbench instruments.
//
// Every Record method is safe on a nil *Metrics.
type Metrics struct {
	// TrialDuration records every trial's elapsed time on the run clock.
	TrialDuration metric.Float64Histogram

	// VariantsTotal counts finished variants by kind and status
	// ("ok" or a failure class).
	VariantsTotal metric.Int64Counter

	// SamplerJoinTimeouts counts sampler joins that hit their timeout.
	SamplerJoinTimeouts metric.Int64Counter

	// SampleFailures counts probe readings that failed and were skipped.
	SampleFailures metric.Int64Counter

	// Throughput is the ops/second of the latest throughput phase.
	Throughput metric.Float64Gauge

	// SinkWrites counts result sink writes by sink and status.
	SinkWrites metric.Int64Counter
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.TrialDuration, err = meter.Float64Histogram(
		"pqbench_trial_duration_seconds",
		metric.WithDescription("Elapsed time of one adapter call"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 0.01, 0.05, 0.1, 0.5, 1, 5),
	)
	if err != nil {
		return nil, fmt.Errorf("create trial_duration: %w", err)
	}

	m.VariantsTotal, err = meter.Int64Counter(
		"pqbench_variants_total",
		metric.WithDescription("Variants benchmarked"),
		metric.WithUnit("{variant}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create variants_total: %w", err)
	}

	m.SamplerJoinTimeouts, err = meter.Int64Counter(
		"pqbench_sampler_join_timeouts_total",
		metric.WithDescription("Resource sampler joins that timed out"),
		metric.WithUnit("{join}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sampler_join_timeouts: %w", err)
	}

	m.SampleFailures, err = meter.Int64Counter(
		"pqbench_sample_failures_total",
		metric.WithDescription("Probe readings that failed and were skipped"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sample_failures: %w", err)
	}

	m.Throughput, err = meter.Float64Gauge(
		"pqbench_throughput_ops_per_second",
		metric.WithDescription("Operations completed per second of budget"),
		metric.WithUnit("{operation}/s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create throughput: %w", err)
	}

	m.SinkWrites, err = meter.Int64Counter(
		"pqbench_sink_writes_total",
		metric.WithDescription("Result sink writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create sink_writes: %w", err)
	}

	return m, nil
}

// RecordTrials adds one histogram observation per trial.
func (m *Metrics) RecordTrials(ctx context.Context, kind, phase string, timings []time.Duration) {
	if m == nil {
		return
	}
	opt := metric.WithAttributes(attribute.String("kind", kind), attribute.String("phase", phase))
	for _, d := range timings {
		m.TrialDuration.Record(ctx, d.Seconds(), opt)
	}
}

// RecordSampling adds a phase's sampler join timeouts and failed readings.
func (m *Metrics) RecordSampling(ctx context.Context, kind, phase string, joinTimeouts, failures int) {
	if m == nil {
		return
	}
	opt := metric.WithAttributes(attribute.String("kind", kind), attribute.String("phase", phase))
	if joinTimeouts > 0 {
		m.SamplerJoinTimeouts.Add(ctx, int64(joinTimeouts), opt)
	}
	if failures > 0 {
		m.SampleFailures.Add(ctx, int64(failures), opt)
	}
}

// RecordThroughput sets the gauge for one variant phase.
func (m *Metrics) RecordThroughput(ctx context.Context, kind, algorithm, variant, phase string, opsPerSecond float64) {
	if m == nil {
		return
	}
	m.Throughput.Record(ctx, opsPerSecond, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("algorithm", algorithm),
		attribute.String("variant", variant),
		attribute.String("phase", phase),
	))
}

// RecordVariant counts one finished variant.
func (m *Metrics) RecordVariant(ctx context.Context, kind, status string) {
	if m == nil {
		return
	}
	m.VariantsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

// RecordSinkWrite counts one sink write.
func (m *Metrics) RecordSinkWrite(ctx context.Context, sink string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.SinkWrites.Add(ctx, 1, metric.WithAttributes(
		attribute.String("sink", sink),
		attribute.String("status", status),
	))
}
