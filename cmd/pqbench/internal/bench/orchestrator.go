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
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/sampling"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/telemetry"
	"github.com/AleutianAI/pqbench/pkg/logging"
)

// DefaultMessage is signed by every signature variant.
const DefaultMessage = "pqbench canonical message"

// Options configures an Orchestrator. Zero values take the defaults.
type Options struct {
	RunID            string
	Trials           int
	ThroughputBudget time.Duration
	Message          []byte

	// Memory is sampled around every trial. Required.
	Memory sampling.ProbeFactory

	// CPU is sampled too when non-nil.
	CPU sampling.ProbeFactory

	Sampler     sampling.Config
	JoinTimeout time.Duration

	// ClockName is recorded on every MetricRecord.
	ClockName string

	Logger  *logging.Logger
	Tracer  trace.Tracer
	Metrics *telemetry.Metrics

	// Now stamps records. Defaults to time.Now.
	Now func() time.Time
}

// Orchestrator runs the phases of one variant: key generation, the
// primary operation, the secondary operation, each a trial loop, with a
// throughput phase after each operation's trials.
//
// One canonical key pair (the first keygen trial's) is reused by every
// later phase, and the first primary trial's ciphertext or signature is the
// canonical input of the secondary phase.
type Orchestrator struct {
	opts Options
}

// ErrNoMemoryProbe is returned by NewOrchestrator when Options.Memory is nil.
var ErrNoMemoryProbe = errors.New("orchestrator: memory probe required")

func NewOrchestrator(opts Options) (*Orchestrator, error) {
	if opts.Memory == nil {
		return nil, ErrNoMemoryProbe
	}
	if opts.Trials <= 0 {
		opts.Trials = DefaultTrials
	}
	if opts.ThroughputBudget <= 0 {
		opts.ThroughputBudget = DefaultThroughputBudget
	}
	if len(opts.Message) == 0 {
		opts.Message = []byte(DefaultMessage)
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	if opts.Tracer == nil {
		opts.Tracer = tracenoop.NewTracerProvider().Tracer(telemetry.InstrumentationName)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sampler.Logger == nil {
		opts.Sampler.Logger = opts.Logger
	}
	return &Orchestrator{opts: opts}, nil
}

func (o *Orchestrator) trialConfig() TrialConfig {
	probes := []sampling.ProbeFactory{o.opts.Memory}
	if o.opts.CPU != nil {
		probes = append(probes, o.opts.CPU)
	}
	return TrialConfig{
		N:           o.opts.Trials,
		Probes:      probes,
		Sampler:     o.opts.Sampler,
		JoinTimeout: o.opts.JoinTimeout,
	}
}

// RunKEM benchmarks one KEM variant.
func (o *Orchestrator) RunKEM(ctx context.Context, k adapter.KEM) (*MetricRecord, error) {
	v := k.Variant()
	ctx, span := o.startVariant(ctx, v)
	defer span.End()

	keys, err := runPhase(ctx, o, v, PhaseKeygen, func(int) (adapter.Timed[adapter.KeyPair], error) {
		return k.GenerateKey()
	})
	if err != nil {
		return nil, o.fail(span, err)
	}
	kp := keys.First

	encaps, err := runPhase(ctx, o, v, PhaseEncapsulation, func(int) (adapter.Timed[adapter.Encapsulation], error) {
		return k.Encapsulate(kp.Public)
	})
	if err != nil {
		return nil, o.fail(span, err)
	}
	canonical := encaps.First

	encapsRate, err := o.throughput(ctx, v, PhaseEncapsulation, func() error {
		_, err := k.Encapsulate(kp.Public)
		return err
	})
	if err != nil {
		return nil, o.fail(span, err)
	}

	decaps, err := runPhase(ctx, o, v, PhaseDecapsulation, func(trial int) (adapter.Timed[[]byte], error) {
		t, err := k.Decapsulate(kp.Private, canonical.Ciphertext)
		if err != nil {
			return t, err
		}
		if !bytes.Equal(t.Value, canonical.SharedSecret) {
			return t, &CorrectnessError{
				Variant: v,
				Phase:   PhaseDecapsulation,
				Trial:   trial,
				Detail:  "recovered secret differs from encapsulated secret",
			}
		}
		return t, nil
	})
	if err != nil {
		return nil, o.fail(span, err)
	}

	decapsRate, err := o.throughput(ctx, v, PhaseDecapsulation, func() error {
		_, err := k.Decapsulate(kp.Private, canonical.Ciphertext)
		return err
	})
	if err != nil {
		return nil, o.fail(span, err)
	}

	rec := o.record(v)
	rec.Keygen = summarize(o, PhaseKeygen, keys, nil)
	rec.Primary = summarize(o, PhaseEncapsulation, encaps, &encapsRate)
	rec.Secondary = summarize(o, PhaseDecapsulation, decaps, &decapsRate)
	rec.PublicKeyLen = len(kp.Public)
	rec.SecretKeyLen = len(kp.Private)
	rec.OutputLen = len(canonical.Ciphertext)
	rec.JoinTimeouts = keys.JoinTimeouts + encaps.JoinTimeouts + decaps.JoinTimeouts
	rec.TransientSamples = keys.TransientSamples + encaps.TransientSamples + decaps.TransientSamples

	telemetry.SetSpanOK(span)
	return rec, nil
}

// RunSigner benchmarks one signature variant.
func (o *Orchestrator) RunSigner(ctx context.Context, s adapter.Signer) (*MetricRecord, error) {
	v := s.Variant()
	ctx, span := o.startVariant(ctx, v)
	defer span.End()

	msg := o.opts.Message

	keys, err := runPhase(ctx, o, v, PhaseKeygen, func(int) (adapter.Timed[adapter.KeyPair], error) {
		return s.GenerateKey()
	})
	if err != nil {
		return nil, o.fail(span, err)
	}
	kp := keys.First

	signs, err := runPhase(ctx, o, v, PhaseSignature, func(int) (adapter.Timed[[]byte], error) {
		return s.Sign(kp.Private, msg)
	})
	if err != nil {
		return nil, o.fail(span, err)
	}
	signature := signs.First

	signRate, err := o.throughput(ctx, v, PhaseSignature, func() error {
		_, err := s.Sign(kp.Private, msg)
		return err
	})
	if err != nil {
		return nil, o.fail(span, err)
	}

	verifies, err := runPhase(ctx, o, v, PhaseVerification, func(trial int) (adapter.Timed[bool], error) {
		t, err := s.Verify(kp.Public, msg, signature)
		if err != nil {
			return t, err
		}
		if !t.Value {
			return t, &CorrectnessError{
				Variant: v,
				Phase:   PhaseVerification,
				Trial:   trial,
				Detail:  "canonical signature did not verify",
			}
		}
		return t, nil
	})
	if err != nil {
		return nil, o.fail(span, err)
	}

	verifyRate, err := o.throughput(ctx, v, PhaseVerification, func() error {
		_, err := s.Verify(kp.Public, msg, signature)
		return err
	})
	if err != nil {
		return nil, o.fail(span, err)
	}

	rec := o.record(v)
	rec.Keygen = summarize(o, PhaseKeygen, keys, nil)
	rec.Primary = summarize(o, PhaseSignature, signs, &signRate)
	rec.Secondary = summarize(o, PhaseVerification, verifies, &verifyRate)
	rec.PublicKeyLen = len(kp.Public)
	rec.SecretKeyLen = len(kp.Private)
	rec.OutputLen = len(signature)
	rec.JoinTimeouts = keys.JoinTimeouts + signs.JoinTimeouts + verifies.JoinTimeouts
	rec.TransientSamples = keys.TransientSamples + signs.TransientSamples + verifies.TransientSamples

	telemetry.SetSpanOK(span)
	return rec, nil
}

func (o *Orchestrator) startVariant(ctx context.Context, v adapter.Variant) (context.Context, trace.Span) {
	return o.opts.Tracer.Start(ctx, "variant", trace.WithAttributes(
		attribute.String("pqbench.kind", string(v.Kind)),
		attribute.String("pqbench.algorithm", v.Family),
		attribute.String("pqbench.variant", v.Name),
		attribute.String("pqbench.runner", string(v.Runner)),
	))
}

func (o *Orchestrator) fail(span trace.Span, err error) error {
	telemetry.RecordError(span, err, attribute.String("pqbench.failure_class", string(Classify(err))))
	return err
}

func (o *Orchestrator) record(v adapter.Variant) *MetricRecord {
	return &MetricRecord{
		RunID:     o.opts.RunID,
		Variant:   v,
		Clock:     o.opts.ClockName,
		Trials:    o.opts.Trials,
		Timestamp: o.opts.Now().UTC(),
	}
}

func runPhase[T any](ctx context.Context, o *Orchestrator, v adapter.Variant, phase Phase, op func(int) (adapter.Timed[T], error)) (*TrialResult[T], error) {
	ctx, span := o.opts.Tracer.Start(ctx, "phase."+string(phase),
		trace.WithAttributes(attribute.Int("pqbench.trials", o.opts.Trials)))
	defer span.End()

	start := time.Now()
	res, err := RunTrials(ctx, o.trialConfig(), op)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("%s: %w", phase, err)
	}

	kind := string(v.Kind)
	o.opts.Metrics.RecordTrials(ctx, kind, string(phase), res.Timings)
	o.opts.Metrics.RecordSampling(ctx, kind, string(phase), res.JoinTimeouts, res.TransientSamples)
	if o.opts.Logger.Enabled(logging.LevelDebug) {
		o.opts.Logger.Debug("phase complete",
			"variant", v.String(),
			"phase", phase,
			"trials", len(res.Timings),
			"wall", time.Since(start),
			"join_timeouts", res.JoinTimeouts,
			"dropped_samples", res.DroppedSamples,
		)
	}
	telemetry.SetSpanOK(span)
	return res, nil
}

func (o *Orchestrator) throughput(ctx context.Context, v adapter.Variant, phase Phase, op func() error) (Throughput, error) {
	ctx, span := o.opts.Tracer.Start(ctx, "throughput."+string(phase),
		trace.WithAttributes(attribute.String("pqbench.budget", o.opts.ThroughputBudget.String())))
	defer span.End()

	tp, err := MeasureThroughput(ctx, o.opts.ThroughputBudget, op)
	if err != nil {
		telemetry.RecordError(span, err)
		return Throughput{}, fmt.Errorf("%s throughput: %w", phase, err)
	}
	span.SetAttributes(attribute.Float64("pqbench.ops_per_second", tp.OpsPerSecond))
	o.opts.Metrics.RecordThroughput(ctx, string(v.Kind), v.Family, v.Name, string(phase), tp.OpsPerSecond)
	telemetry.SetSpanOK(span)
	return tp, nil
}

func summarize[T any](o *Orchestrator, phase Phase, res *TrialResult[T], tp *Throughput) PhaseResult {
	pr := PhaseResult{
		Phase:      phase,
		Time:       AggregateDurations(res.Timings),
		Memory:     Aggregate(res.Resources[o.opts.Memory.Name()]),
		Throughput: tp,
	}
	if o.opts.CPU != nil {
		cpu := Aggregate(res.Resources[o.opts.CPU.Name()])
		pr.CPU = &cpu
	}
	return pr
}
