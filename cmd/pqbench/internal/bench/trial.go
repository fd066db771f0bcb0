// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bench is the benchmark execution engine.
//
// RunTrials repeats one adapter operation under fresh resource samplers and
// collects its timing and resource vectors; Aggregate reduces a vector to
// mean, population standard deviation and max; MeasureThroughput counts
// completions within a wall-clock budget. The Orchestrator sequences these
// into the three phases of a variant, and the Batch walks the configured
// suites.
package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/sampling"
)

// DefaultTrials is the per-phase trial count.
const DefaultTrials = 500

// Phase names one measured operation of a variant.
type Phase string

const (
	PhaseKeygen        Phase = "keygen"
	PhaseEncapsulation Phase = "encapsulation"
	PhaseDecapsulation Phase = "decapsulation"
	PhaseSignature     Phase = "signature"
	PhaseVerification  Phase = "verification"
)

// TrialConfig parameterises RunTrials.
type TrialConfig struct {
	// N is the number of trials. Must be >= 1.
	N int

	// Probes are sampled around every trial, one fresh sampler each.
	Probes []sampling.ProbeFactory

	Sampler     sampling.Config
	JoinTimeout time.Duration
}

// TrialResult holds the raw vectors of one phase.
type TrialResult[T any] struct {
	// First is the value the first trial produced.
	First T

	Timings []time.Duration

	// Resources maps probe name to one measurement per trial.
	Resources map[string][]float64

	JoinTimeouts     int
	TransientSamples int

	// DroppedSamples counts readings evicted from sampler windows.
	DroppedSamples int
}

// ErrNoTrials is returned when TrialConfig.N < 1.
var ErrNoTrials = errors.New("trial count must be at least 1")

// RunTrials calls op N times. Around every call it starts one sampler per
// probe (each captures its baseline before op runs) and stops them after.
// The first error aborts the loop and is returned as op produced it.
func RunTrials[T any](ctx context.Context, cfg TrialConfig, op func(trial int) (adapter.Timed[T], error)) (*TrialResult[T], error) {
	if cfg.N < 1 {
		return nil, ErrNoTrials
	}

	res := &TrialResult[T]{
		Timings:   make([]time.Duration, 0, cfg.N),
		Resources: make(map[string][]float64, len(cfg.Probes)),
	}
	for _, f := range cfg.Probes {
		res.Resources[f.Name()] = make([]float64, 0, cfg.N)
	}

	for i := 0; i < cfg.N; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		samplers, err := startSamplers(ctx, cfg)
		if err != nil {
			return nil, err
		}

		timed, opErr := op(i)

		for j, s := range samplers {
			m, err := s.StopAndJoin(cfg.JoinTimeout)
			if err != nil {
				return nil, fmt.Errorf("stop %s sampler: %w", cfg.Probes[j].Name(), err)
			}
			if m.Outcome == sampling.TimedOut {
				res.JoinTimeouts++
			}
			res.TransientSamples += m.Transient
			res.DroppedSamples += m.Dropped
			name := cfg.Probes[j].Name()
			res.Resources[name] = append(res.Resources[name], m.Value)
		}

		if opErr != nil {
			return nil, opErr
		}
		if i == 0 {
			res.First = timed.Value
		}
		res.Timings = append(res.Timings, timed.Elapsed)
	}
	return res, nil
}

func startSamplers(ctx context.Context, cfg TrialConfig) ([]*sampling.Sampler, error) {
	samplers := make([]*sampling.Sampler, 0, len(cfg.Probes))
	for _, f := range cfg.Probes {
		probe, err := f.NewProbe()
		if err == nil {
			s := sampling.New(probe, cfg.Sampler)
			if err = s.Start(ctx); err == nil {
				samplers = append(samplers, s)
				continue
			}
		}
		for _, started := range samplers {
			_, _ = started.StopAndJoin(cfg.JoinTimeout)
		}
		return nil, fmt.Errorf("start %s sampler: %w", f.Name(), err)
	}
	return samplers, nil
}
