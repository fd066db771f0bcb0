// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package adapter gives every benchmarked cryptosystem one uniform contract.
//
// A KEM exposes GenerateKey, Encapsulate and Decapsulate; a Signer exposes
// GenerateKey, Sign and Verify. Each call measures its own cost with the
// run's injected Clock and returns it next to the result in a Timed value.
// Keys, ciphertexts and signatures cross the boundary as opaque bytes; every
// call re-parses its inputs, so parsing is part of the measured cost.
//
// Providers:
//
//   - OQS: post-quantum schemes from github.com/cloudflare/circl, looked up
//     by name (ML-KEM-768, X-Wing, ML-DSA-65, Ed25519-Dilithium2, ...)
//   - RSA: RSA-KEM via OAEP-SHA256 encryption, RSA-PSS signatures
//   - ECC: ECDSA over the NIST curves, Ed25519
package adapter

import (
	"fmt"
	"strings"
	"time"
)

// RunnerKind selects the provider family of a variant.
type RunnerKind string

const (
	RunnerOQS RunnerKind = "OQS"
	RunnerRSA RunnerKind = "RSA"
	RunnerECC RunnerKind = "ECC"
)

// ParseRunner maps a configuration value to a RunnerKind.
func ParseRunner(s string) (RunnerKind, error) {
	switch RunnerKind(strings.ToUpper(strings.TrimSpace(s))) {
	case RunnerOQS:
		return RunnerOQS, nil
	case RunnerRSA:
		return RunnerRSA, nil
	case RunnerECC:
		return RunnerECC, nil
	default:
		return "", fmt.Errorf("%w: unknown runner %q", ErrUnsupported, s)
	}
}

// Kind is the operation family of a variant.
type Kind string

const (
	KindKEM Kind = "KEM"
	KindDSS Kind = "DSS"
)

// Dir is the results sub-directory for the kind ("kem" or "sign").
func (k Kind) Dir() string {
	if k == KindKEM {
		return "kem"
	}
	return "sign"
}

// Variant identifies one concrete configuration of one algorithm family,
// e.g. {Family: "CRYSTALS-Kyber", Name: "ML-KEM-768", Runner: OQS, Kind: KEM}.
type Variant struct {
	Family string     `json:"family"`
	Name   string     `json:"name"`
	Runner RunnerKind `json:"runner"`
	Kind   Kind       `json:"kind"`
}

func (v Variant) String() string {
	return v.Family + "/" + v.Name
}

// KeyPair holds opaque key encodings. Never mutated after creation.
type KeyPair struct {
	Public  []byte
	Private []byte
}

// Encapsulation is the result of one KEM encapsulation.
type Encapsulation struct {
	Ciphertext   []byte
	SharedSecret []byte
}

// Timed carries a call's result together with its elapsed cost on the
// run's clock.
type Timed[T any] struct {
	Value   T
	Elapsed time.Duration
}
