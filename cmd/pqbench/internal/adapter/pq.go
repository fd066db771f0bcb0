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
	"fmt"
	"sort"

	"github.com/cloudflare/circl/kem"
	kemschemes "github.com/cloudflare/circl/kem/schemes"
	"github.com/cloudflare/circl/sign"
	signschemes "github.com/cloudflare/circl/sign/schemes"
)

// =============================================================================
// Post-quantum KEM
// =============================================================================

// PQKEM adapts a circl KEM scheme.
type PQKEM struct {
	variant Variant
	scheme  kem.Scheme
	clock   Clock
}

var _ KEM = (*PQKEM)(nil)

// NewPQKEM looks the scheme up by the variant name.
func NewPQKEM(v Variant, clock Clock) (*PQKEM, error) {
	s, err := lookupKEMScheme(v.Name)
	if err != nil {
		return nil, err
	}
	v.Kind = KindKEM
	return &PQKEM{variant: v, scheme: s, clock: clock}, nil
}

func lookupKEMScheme(name string) (kem.Scheme, error) {
	s := kemschemes.ByName(name)
	if s == nil {
		return nil, fmt.Errorf("%w: no KEM scheme named %q", ErrUnsupported, name)
	}
	return s, nil
}

func (k *PQKEM) Variant() Variant { return k.variant }

func (k *PQKEM) GenerateKey() (Timed[KeyPair], error) {
	return measure(k.clock, k.variant, OpKeyGen, func() (KeyPair, error) {
		pk, sk, err := k.scheme.GenerateKeyPair()
		if err != nil {
			return KeyPair{}, err
		}
		pub, err := pk.MarshalBinary()
		if err != nil {
			return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
		}
		priv, err := sk.MarshalBinary()
		if err != nil {
			return KeyPair{}, fmt.Errorf("marshal private key: %w", err)
		}
		return KeyPair{Public: pub, Private: priv}, nil
	})
}

func (k *PQKEM) Encapsulate(pub []byte) (Timed[Encapsulation], error) {
	return measure(k.clock, k.variant, OpEncapsulate, func() (Encapsulation, error) {
		pk, err := k.scheme.UnmarshalBinaryPublicKey(pub)
		if err != nil {
			return Encapsulation{}, fmt.Errorf("parse public key: %w", err)
		}
		ct, ss, err := k.scheme.Encapsulate(pk)
		if err != nil {
			return Encapsulation{}, err
		}
		return Encapsulation{Ciphertext: ct, SharedSecret: ss}, nil
	})
}

func (k *PQKEM) Decapsulate(priv, ct []byte) (Timed[[]byte], error) {
	return measure(k.clock, k.variant, OpDecapsulate, func() ([]byte, error) {
		sk, err := k.scheme.UnmarshalBinaryPrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return k.scheme.Decapsulate(sk, ct)
	})
}

// =============================================================================
// Post-quantum signatures
// =============================================================================

// PQSigner adapts a circl signature scheme.
type PQSigner struct {
	variant Variant
	scheme  sign.Scheme
	clock   Clock
}

var _ Signer = (*PQSigner)(nil)

// NewPQSigner looks the scheme up by the variant name.
func NewPQSigner(v Variant, clock Clock) (*PQSigner, error) {
	s, err := lookupSignScheme(v.Name)
	if err != nil {
		return nil, err
	}
	v.Kind = KindDSS
	return &PQSigner{variant: v, scheme: s, clock: clock}, nil
}

func lookupSignScheme(name string) (sign.Scheme, error) {
	s := signschemes.ByName(name)
	if s == nil {
		return nil, fmt.Errorf("%w: no signature scheme named %q", ErrUnsupported, name)
	}
	return s, nil
}

func (s *PQSigner) Variant() Variant { return s.variant }

func (s *PQSigner) GenerateKey() (Timed[KeyPair], error) {
	return measure(s.clock, s.variant, OpKeyGen, func() (KeyPair, error) {
		pk, sk, err := s.scheme.GenerateKey()
		if err != nil {
			return KeyPair{}, err
		}
		pub, err := pk.MarshalBinary()
		if err != nil {
			return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
		}
		priv, err := sk.MarshalBinary()
		if err != nil {
			return KeyPair{}, fmt.Errorf("marshal private key: %w", err)
		}
		return KeyPair{Public: pub, Private: priv}, nil
	})
}

func (s *PQSigner) Sign(priv, msg []byte) (Timed[[]byte], error) {
	return measure(s.clock, s.variant, OpSign, func() ([]byte, error) {
		sk, err := s.scheme.UnmarshalBinaryPrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return s.scheme.Sign(sk, msg, nil), nil
	})
}

func (s *PQSigner) Verify(pub, msg, sig []byte) (Timed[bool], error) {
	return measure(s.clock, s.variant, OpVerify, func() (bool, error) {
		pk, err := s.scheme.UnmarshalBinaryPublicKey(pub)
		if err != nil {
			return false, fmt.Errorf("parse public key: %w", err)
		}
		if len(sig) != s.scheme.SignatureSize() {
			return false, nil
		}
		return s.scheme.Verify(pk, msg, sig, nil), nil
	})
}

// =============================================================================
// Scheme listing
// =============================================================================

// SchemeInfo describes one provider scheme and its encoded sizes.
type SchemeInfo struct {
	Name           string
	Kind           Kind
	PublicKeySize  int
	PrivateKeySize int

	// OutputSize is the ciphertext size for KEMs, the signature size for
	// signature schemes.
	OutputSize int

	// SharedKeySize is zero for signature schemes.
	SharedKeySize int
}

// ListSchemes returns the provider's schemes of the given kind sorted by
// name.
func ListSchemes(kind Kind) []SchemeInfo {
	var out []SchemeInfo
	if kind == KindKEM {
		for _, s := range kemschemes.All() {
			out = append(out, SchemeInfo{
				Name:           s.Name(),
				Kind:           KindKEM,
				PublicKeySize:  s.PublicKeySize(),
				PrivateKeySize: s.PrivateKeySize(),
				OutputSize:     s.CiphertextSize(),
				SharedKeySize:  s.SharedKeySize(),
			})
		}
	} else {
		for _, s := range signschemes.All() {
			out = append(out, SchemeInfo{
				Name:           s.Name(),
				Kind:           KindDSS,
				PublicKeySize:  s.PublicKeySize(),
				PrivateKeySize: s.PrivateKeySize(),
				OutputSize:     s.SignatureSize(),
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
