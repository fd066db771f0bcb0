// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package adapter

import (
	"errors"
	"fmt"
)

// =============================================================================
// Sentinel Errors
// =============================================================================

var (
	// ErrKeyGeneration marks a failed key generation.
	ErrKeyGeneration = errors.New("key generation failed")

	// ErrEncapsulation marks a failed encapsulation.
	ErrEncapsulation = errors.New("encapsulation failed")

	// ErrDecapsulation marks a failed decapsulation.
	ErrDecapsulation = errors.New("decapsulation failed")

	// ErrSign marks a failed signing operation.
	ErrSign = errors.New("signing failed")

	// ErrVerify marks a verification that could not be carried out. A
	// signature that simply does not verify is not an error.
	ErrVerify = errors.New("verification failed")

	// ErrUnsupported marks a variant no provider can serve: unknown scheme
	// name, unknown curve, malformed modulus, or a kind the runner lacks.
	ErrUnsupported = errors.New("unsupported variant")
)

// Op names an adapter operation.
type Op string

const (
	OpKeyGen      Op = "keygen"
	OpEncapsulate Op = "encapsulate"
	OpDecapsulate Op = "decapsulate"
	OpSign        Op = "sign"
	OpVerify      Op = "verify"
)

func (o Op) sentinel() error {
	switch o {
	case OpKeyGen:
		return ErrKeyGeneration
	case OpEncapsulate:
		return ErrEncapsulation
	case OpDecapsulate:
		return ErrDecapsulation
	case OpSign:
		return ErrSign
	case OpVerify:
		return ErrVerify
	default:
		return nil
	}
}

// =============================================================================
// OpError
// =============================================================================

// OpError is a provider failure during one adapter operation.
//
// errors.Is matches both the wrapped cause and the sentinel of the
// operation, so callers can test errors.Is(err, adapter.ErrDecapsulation).
type OpError struct {
	Op      Op
	Variant Variant
	Err     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Variant, e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func (e *OpError) Is(target error) bool {
	s := e.Op.sentinel()
	return s != nil && target == s
}

func newOpError(op Op, v Variant, err error) *OpError {
	return &OpError{Op: op, Variant: v, Err: err}
}
