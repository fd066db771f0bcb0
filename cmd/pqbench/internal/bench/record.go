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

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
)

// PhaseResult is the summary of one phase.
type PhaseResult struct {
	Phase Phase `json:"phase"`

	// Time is in nanoseconds of the run's clock.
	Time PhaseStats `json:"time"`

	// Memory is in bytes of resident set growth.
	Memory PhaseStats `json:"memory"`

	// CPU is in percent; nil unless CPU sampling is enabled.
	CPU *PhaseStats `json:"cpu,omitempty"`

	// Throughput is nil for keygen, which has no throughput phase.
	Throughput *Throughput `json:"throughput,omitempty"`
}

// OpsPerSecond returns the throughput figure, zero when not measured.
func (p PhaseResult) OpsPerSecond() float64 {
	if p.Throughput == nil {
		return 0
	}
	return p.Throughput.OpsPerSecond
}

// MetricRecord is the full result of one variant.
//
// For KEMs Primary is encapsulation and Secondary decapsulation; for
// signature schemes they are signing and verification.
type MetricRecord struct {
	RunID     string          `json:"run_id"`
	Variant   adapter.Variant `json:"variant"`
	Clock     string          `json:"clock"`
	Trials    int             `json:"trials"`
	Timestamp time.Time       `json:"timestamp"`

	Keygen    PhaseResult `json:"keygen"`
	Primary   PhaseResult `json:"primary"`
	Secondary PhaseResult `json:"secondary"`

	PublicKeyLen int `json:"public_key_len"`
	SecretKeyLen int `json:"secret_key_len"`

	// OutputLen is the ciphertext length for KEMs, the signature length for
	// signature schemes.
	OutputLen int `json:"output_len"`

	JoinTimeouts     int `json:"join_timeouts"`
	TransientSamples int `json:"transient_samples"`
}

// Phases returns the two measured operation phases of a kind.
func Phases(kind adapter.Kind) (primary, secondary Phase) {
	if kind == adapter.KindKEM {
		return PhaseEncapsulation, PhaseDecapsulation
	}
	return PhaseSignature, PhaseVerification
}

// Sink receives the records of one algorithm family once all its variants
// have run.
type Sink interface {
	WriteFamily(ctx context.Context, kind adapter.Kind, family string, records []MetricRecord) error
}

// BatchReport is the outcome of a whole run.
type BatchReport struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Records  []MetricRecord
	Failures []Failure

	// SinkErrors are persistence failures. They do not fail variants.
	SinkErrors []error
}

// Failed reports whether any variant or sink failed.
func (r *BatchReport) Failed() bool {
	return len(r.Failures) > 0 || len(r.SinkErrors) > 0
}
