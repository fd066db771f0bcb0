// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package results persists benchmark records.
//
// CSVSink writes the per-algorithm CSV files that plotting scripts read;
// History keeps every run in BadgerDB; InfluxSink writes time-series
// points; GCSUploader copies a finished results directory to Cloud
// Storage. MultiSink fans each family out to all enabled sinks.
package results

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/bench"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/telemetry"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/util"
)

type namedSink struct {
	name string
	sink bench.Sink
}

// MultiSink writes each family to every added sink concurrently. One
// sink's failure does not stop the others; all failures are returned
// joined.
type MultiSink struct {
	sinks   []namedSink
	metrics *telemetry.Metrics
	timeout time.Duration
}

func NewMultiSink(metrics *telemetry.Metrics) *MultiSink {
	return &MultiSink{metrics: metrics, timeout: util.DefaultSinkTimeout}
}

// SetTimeout bounds each sink write. Values below util.MinSinkTimeout are
// raised to it.
func (m *MultiSink) SetTimeout(d time.Duration) {
	m.timeout = util.EnforceMinTimeout(d, util.MinSinkTimeout)
}

// Add registers sink under name. Names label metrics and errors.
func (m *MultiSink) Add(name string, sink bench.Sink) *MultiSink {
	m.sinks = append(m.sinks, namedSink{name: name, sink: sink})
	return m
}

// Names returns the registered sink names in order.
func (m *MultiSink) Names() []string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.name
	}
	return names
}

func (m *MultiSink) WriteFamily(ctx context.Context, kind adapter.Kind, family string, records []bench.MetricRecord) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	for _, s := range m.sinks {
		g.Go(func() (err error) {
			defer func() {
				m.metrics.RecordSinkWrite(ctx, s.name, err)
				if err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
					mu.Unlock()
				}
			}()
			defer util.RecoverPanic(func(r util.SafeGoResult) {
				err = fmt.Errorf("sink panicked: %w", r.Err())
			})()
			return s.sink.WriteFamily(ctx, kind, family, records)
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
