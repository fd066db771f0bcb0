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
	"encoding/pem"
	"fmt"
)

// KeyPairGenerator produces encoded key pairs for one key type
// (an RSA modulus or a named curve).
type KeyPairGenerator interface {
	Generate() (KeyPair, error)
}

// SignatureScheme signs and verifies with encoded keys.
//
// Verify returns (false, nil) for signatures that do not verify,
// including malformed signature bytes.
type SignatureScheme interface {
	Sign(priv, msg []byte) ([]byte, error)
	Verify(pub, msg, sig []byte) (bool, error)
}

// ComposedSigner joins a key generator and a signature scheme into one
// Signer.
type ComposedSigner struct {
	variant Variant
	keys    KeyPairGenerator
	scheme  SignatureScheme
	clock   Clock
}

var _ Signer = (*ComposedSigner)(nil)

func NewComposedSigner(v Variant, keys KeyPairGenerator, scheme SignatureScheme, clock Clock) *ComposedSigner {
	v.Kind = KindDSS
	return &ComposedSigner{variant: v, keys: keys, scheme: scheme, clock: clock}
}

func (s *ComposedSigner) Variant() Variant { return s.variant }

func (s *ComposedSigner) GenerateKey() (Timed[KeyPair], error) {
	return measure(s.clock, s.variant, OpKeyGen, s.keys.Generate)
}

func (s *ComposedSigner) Sign(priv, msg []byte) (Timed[[]byte], error) {
	return measure(s.clock, s.variant, OpSign, func() ([]byte, error) {
		return s.scheme.Sign(priv, msg)
	})
}

func (s *ComposedSigner) Verify(pub, msg, sig []byte) (Timed[bool], error) {
	return measure(s.clock, s.variant, OpVerify, func() (bool, error) {
		return s.scheme.Verify(pub, msg, sig)
	})
}

// =============================================================================
// PEM helpers
// =============================================================================

func encodePEM(blockType string, der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
}

func decodePEM(data []byte, blockType string) ([]byte, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if block.Type != blockType {
		return nil, fmt.Errorf("PEM block is %q, want %q", block.Type, blockType)
	}
	return block.Bytes, nil
}
