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

import "fmt"

// =============================================================================
// Interfaces
// =============================================================================

// KEM is the uniform contract for key-encapsulation mechanisms.
//
// # Thread Safety
//
// Implementations hold no per-call state and are safe for sequential reuse.
// The engine never calls one adapter concurrently.
type KEM interface {
	Variant() Variant
	GenerateKey() (Timed[KeyPair], error)
	Encapsulate(pub []byte) (Timed[Encapsulation], error)
	Decapsulate(priv, ct []byte) (Timed[[]byte], error)
}

// Signer is the uniform contract for digital-signature schemes.
//
// Verify reports a signature that does not verify as (false, nil). An error
// means verification could not run at all, e.g. the public key is malformed.
type Signer interface {
	Variant() Variant
	GenerateKey() (Timed[KeyPair], error)
	Sign(priv, msg []byte) (Timed[[]byte], error)
	Verify(pub, msg, sig []byte) (Timed[bool], error)
}

// =============================================================================
// Construction
// =============================================================================

// NewKEM builds the KEM adapter for v.
//
// # Outputs
//
//   - KEM: Ready adapter
//   - error: wraps ErrUnsupported for unknown scheme names, malformed RSA
//     moduli, and ECC (which has no KEM)
func NewKEM(v Variant, clock Clock) (KEM, error) {
	v.Kind = KindKEM
	switch v.Runner {
	case RunnerOQS:
		return NewPQKEM(v, clock)
	case RunnerRSA:
		bits, err := ParseModulus(v.Name)
		if err != nil {
			return nil, err
		}
		return NewRSAKEM(v, bits, clock)
	case RunnerECC:
		return nil, fmt.Errorf("%w: runner ECC has no KEM (%s)", ErrUnsupported, v)
	default:
		return nil, fmt.Errorf("%w: unknown runner %q", ErrUnsupported, v.Runner)
	}
}

// NewSigner builds the signature adapter for v.
//
// RSA and ECC signers are composed from a KeyPairGenerator and a
// SignatureScheme; OQS signers come straight from the provider.
func NewSigner(v Variant, clock Clock) (Signer, error) {
	v.Kind = KindDSS
	switch v.Runner {
	case RunnerOQS:
		return NewPQSigner(v, clock)
	case RunnerRSA:
		bits, err := ParseModulus(v.Name)
		if err != nil {
			return nil, err
		}
		return NewComposedSigner(v, RSAKeyGenerator{Bits: bits}, RSAPSS{}, clock), nil
	case RunnerECC:
		curve, err := LookupCurve(v.Name)
		if err != nil {
			return nil, err
		}
		if curve.EdDSA {
			return NewComposedSigner(v, Ed25519KeyGenerator{}, EdDSA{}, clock), nil
		}
		return NewComposedSigner(v, ECDSAKeyGenerator{Curve: curve}, ECDSA{}, clock), nil
	default:
		return nil, fmt.Errorf("%w: unknown runner %q", ErrUnsupported, v.Runner)
	}
}

// Validate reports whether an adapter could be built for v without
// building it. RSA key generation is skipped, so this is cheap enough for
// configuration checks.
func Validate(v Variant) error {
	switch v.Runner {
	case RunnerOQS:
		if v.Kind == KindKEM {
			_, err := lookupKEMScheme(v.Name)
			return err
		}
		_, err := lookupSignScheme(v.Name)
		return err
	case RunnerRSA:
		_, err := ParseModulus(v.Name)
		return err
	case RunnerECC:
		if v.Kind == KindKEM {
			return fmt.Errorf("%w: runner ECC has no KEM (%s)", ErrUnsupported, v)
		}
		_, err := LookupCurve(v.Name)
		return err
	default:
		return fmt.Errorf("%w: unknown runner %q", ErrUnsupported, v.Runner)
	}
}
