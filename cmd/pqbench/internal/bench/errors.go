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
	"errors"
	"fmt"

	"github.com/AleutianAI/pqbench/cmd/pqbench/config"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
)

// ErrCorrectnessViolation is matched by every *CorrectnessError.
var ErrCorrectnessViolation = errors.New("correctness violation")

// CorrectnessError reports a decapsulation that did not recover the
// encapsulated secret, or a canonical signature that did not verify.
type CorrectnessError struct {
	Variant adapter.Variant
	Phase   Phase
	Trial   int
	Detail  string
}

func (e *CorrectnessError) Error() string {
	return fmt.Sprintf("%s: %s trial %d: %s", e.Variant, e.Phase, e.Trial, e.Detail)
}

func (e *CorrectnessError) Is(target error) bool {
	return target == ErrCorrectnessViolation
}

// FailureClass groups variant failures for reporting.
type FailureClass string

const (
	ClassProvider      FailureClass = "provider"
	ClassCorrectness   FailureClass = "correctness"
	ClassConfiguration FailureClass = "configuration"
	ClassCancelled     FailureClass = "cancelled"
)

// Classify maps a variant error to its failure class.
func Classify(err error) FailureClass {
	switch {
	case errors.Is(err, ErrCorrectnessViolation):
		return ClassCorrectness
	case errors.Is(err, config.ErrConfiguration), errors.Is(err, adapter.ErrUnsupported):
		return ClassConfiguration
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCancelled
	default:
		return ClassProvider
	}
}

// Failure is a variant that aborted.
type Failure struct {
	Variant adapter.Variant
	Class   FailureClass
	Err     error
}
