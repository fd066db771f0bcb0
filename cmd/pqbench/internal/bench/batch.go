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
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/pqbench/cmd/pqbench/config"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/telemetry"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/util"
)

// ProgressFormat is the progress line shown before each variant.
const ProgressFormat = "Testing %s, Variant %d/%d (%s)"

// BatchOptions configures a Batch.
type BatchOptions struct {
	// Clock is handed to every adapter. Defaults to the wall clock.
	Clock adapter.Clock

	// Sink receives each family's records. Optional.
	Sink Sink

	// Progress shows the current variant. Optional.
	Progress util.ProgressIndicator

	// SinkTimeout bounds each family write. Defaults to
	// util.DefaultSinkTimeout.
	SinkTimeout time.Duration
}

// Batch runs whole suites, one variant at a time.
type Batch struct {
	orch *Orchestrator
	opts BatchOptions
}

func NewBatch(orch *Orchestrator, opts BatchOptions) *Batch {
	if opts.Clock == nil {
		opts.Clock = adapter.NewWallClock()
	}
	opts.SinkTimeout = util.EnforceDefaultTimeout(opts.SinkTimeout, util.DefaultSinkTimeout)
	return &Batch{orch: orch, opts: opts}
}

// Run benchmarks every variant of every suite, strictly in order.
//
// # Description
//
// A failing variant is recorded in the report and the batch moves on.
// Adapter construction errors are configuration errors and surface before
// any trial of that variant. Once a family's variants are done its records
// go to the sink; sink errors are collected, not fatal. Cancelling ctx
// stops the batch after the current variant aborts.
//
// # Outputs
//
//   - *BatchReport: Always non-nil
func (b *Batch) Run(ctx context.Context, suites ...*config.Suite) *BatchReport {
	o := b.orch.opts
	report := &BatchReport{RunID: o.RunID, Started: o.Now()}

	ctx, span := o.Tracer.Start(ctx, "batch", trace.WithAttributes(
		attribute.String("pqbench.run_id", o.RunID),
		attribute.String("pqbench.clock", b.opts.Clock.Name()),
	))
	defer span.End()

	if b.opts.Progress != nil {
		b.opts.Progress.Start()
		defer b.opts.Progress.Stop()
	}

walk:
	for _, s := range suites {
		if s == nil {
			continue
		}
		for i, fam := range s.Families {
			records := b.runFamily(ctx, s, i, report)
			b.write(ctx, s.Kind, fam.Algorithm, records, report)
			if ctx.Err() != nil {
				break walk
			}
		}
	}

	report.Finished = o.Now()
	span.SetAttributes(
		attribute.Int("pqbench.records", len(report.Records)),
		attribute.Int("pqbench.failures", len(report.Failures)),
	)
	if report.Failed() {
		telemetry.RecordError(span, fmt.Errorf("%d variants failed, %d sink errors", len(report.Failures), len(report.SinkErrors)))
	} else {
		telemetry.SetSpanOK(span)
	}
	o.Logger.Info("batch complete",
		"run_id", o.RunID,
		"records", len(report.Records),
		"failures", len(report.Failures),
		"elapsed", report.Finished.Sub(report.Started).Round(time.Millisecond),
	)
	return report
}

func (b *Batch) runFamily(ctx context.Context, s *config.Suite, i int, report *BatchReport) []MetricRecord {
	o := b.orch.opts
	variants := s.Variants(i)
	records := make([]MetricRecord, 0, len(variants))

	for j, v := range variants {
		if ctx.Err() != nil {
			return records
		}
		if b.opts.Progress != nil {
			b.opts.Progress.SetMessage(fmt.Sprintf(ProgressFormat, v.Family, j+1, len(variants), v.Name))
		}
		log := o.Logger.With("run_id", o.RunID, "kind", v.Kind, "variant", v.String())
		log.Info("variant started")

		start := time.Now()
		rec, err := b.runVariant(ctx, s, i, j, v)
		if err != nil {
			class := Classify(err)
			report.Failures = append(report.Failures, Failure{Variant: v, Class: class, Err: err})
			o.Metrics.RecordVariant(ctx, string(v.Kind), string(class))
			log.Error("variant failed", "class", class, "error", err)
			continue
		}

		records = append(records, *rec)
		report.Records = append(report.Records, *rec)
		o.Metrics.RecordVariant(ctx, string(v.Kind), "ok")
		log.Info("variant complete", "elapsed", time.Since(start).Round(time.Millisecond))
	}
	return records
}

func (b *Batch) runVariant(ctx context.Context, s *config.Suite, i, j int, v adapter.Variant) (*MetricRecord, error) {
	field := fmt.Sprintf("%s[%d].variants[%d]", s.Kind.Dir(), i, j)

	if v.Kind == adapter.KindKEM {
		k, err := adapter.NewKEM(v, b.opts.Clock)
		if err != nil {
			return nil, config.NewConfigError(field, v.Name, err)
		}
		return b.orch.RunKEM(ctx, k)
	}

	sig, err := adapter.NewSigner(v, b.opts.Clock)
	if err != nil {
		return nil, config.NewConfigError(field, v.Name, err)
	}
	return b.orch.RunSigner(ctx, sig)
}

func (b *Batch) write(ctx context.Context, kind adapter.Kind, family string, records []MetricRecord, report *BatchReport) {
	if b.opts.Sink == nil || len(records) == 0 {
		return
	}
	// Persist even when the run was cancelled mid-family.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.opts.SinkTimeout)
	defer cancel()

	if err := b.opts.Sink.WriteFamily(wctx, kind, family, records); err != nil {
		report.SinkErrors = append(report.SinkErrors, fmt.Errorf("write %s/%s: %w", kind.Dir(), family, err))
		b.orch.opts.Logger.Error("sink write failed", "kind", kind, "algorithm", family, "error", err)
	}
}
