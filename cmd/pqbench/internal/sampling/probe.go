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
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// ErrTransient marks a probe reading that failed but may succeed on the
// next poll. The sampler counts and skips these.
var ErrTransient = errors.New("transient sampling failure")

// Probe reads one scalar resource measurement.
type Probe interface {
	Name() string
	Read(ctx context.Context) (float64, error)
}

// PeriodFloor is implemented by probes whose readings are meaningless at
// short intervals. The sampler never polls them faster than MinPeriod and
// skips the immediate first poll.
type PeriodFloor interface {
	MinPeriod() time.Duration
}

// ProbeFactory builds a fresh Probe. Probes with per-instance state (CPU
// percent) must come from a factory so that every sampler owns its own.
type ProbeFactory interface {
	Name() string
	NewProbe() (Probe, error)
}

// =============================================================================
// RSS
// =============================================================================

// RSSProbe reads the resident set size of the current process in bytes.
//
// The process handle is read-only after construction and may be shared by
// every sampler of a run.
type RSSProbe struct {
	proc *process.Process
}

var _ Probe = (*RSSProbe)(nil)

func NewRSSProbe() (*RSSProbe, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open current process: %w", err)
	}
	return &RSSProbe{proc: proc}, nil
}

func (p *RSSProbe) Name() string { return "rss" }

func (p *RSSProbe) Read(ctx context.Context) (float64, error) {
	mi, err := p.proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: rss: %v", ErrTransient, err)
	}
	return float64(mi.RSS), nil
}

// SharedProbe hands the same probe to every sampler.
type SharedProbe struct {
	Probe Probe
}

var _ ProbeFactory = SharedProbe{}

func (f SharedProbe) Name() string { return f.Probe.Name() }

func (f SharedProbe) NewProbe() (Probe, error) { return f.Probe, nil }

// =============================================================================
// CPU percent
// =============================================================================

// CPUMinPeriod is the shortest interval CPU percent is sampled at. Process
// CPU times tick at scheduler granularity, so shorter deltas read as 0 or
// multiples of 100.
const CPUMinPeriod = 10 * time.Millisecond

// CPUPercentProbe reads the process CPU usage in percent since the
// previous reading. It keeps the previous reading inside its process
// handle, so it is not shareable. Operations shorter than CPUMinPeriod get
// no reading and report 0.
type CPUPercentProbe struct {
	proc *process.Process
}

var (
	_ Probe       = (*CPUPercentProbe)(nil)
	_ PeriodFloor = (*CPUPercentProbe)(nil)
)

func NewCPUPercentProbe() (*CPUPercentProbe, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open current process: %w", err)
	}
	return &CPUPercentProbe{proc: proc}, nil
}

func (p *CPUPercentProbe) Name() string { return "cpu" }

func (p *CPUPercentProbe) MinPeriod() time.Duration { return CPUMinPeriod }

func (p *CPUPercentProbe) Read(ctx context.Context) (float64, error) {
	pct, err := p.proc.PercentWithContext(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("%w: cpu: %v", ErrTransient, err)
	}
	return pct, nil
}

// CPUPercentFactory builds one CPUPercentProbe per sampler.
type CPUPercentFactory struct{}

var _ ProbeFactory = CPUPercentFactory{}

func (CPUPercentFactory) Name() string { return "cpu" }

func (CPUPercentFactory) NewProbe() (Probe, error) { return NewCPUPercentProbe() }

// =============================================================================
// Function probe
// =============================================================================

// FuncProbe adapts a function to Probe.
type FuncProbe struct {
	ProbeName string
	Fn        func(ctx context.Context) (float64, error)
}

var _ Probe = FuncProbe{}

func (p FuncProbe) Name() string { return p.ProbeName }

func (p FuncProbe) Read(ctx context.Context) (float64, error) { return p.Fn(ctx) }
