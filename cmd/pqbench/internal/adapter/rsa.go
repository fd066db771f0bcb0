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
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"strconv"
	"strings"
)

const (
	// MinRSABits is the smallest modulus accepted as a variant.
	MinRSABits = 1024

	// RSAKEMSecretSize is the length of the secret RSA-KEM encrypts. It
	// fits under the OAEP-SHA256 limit of the smallest accepted modulus.
	RSAKEMSecretSize = 32

	pemRSAPrivate = "RSA PRIVATE KEY"
	pemPublic     = "PUBLIC KEY"
)

// ParseModulus reads an RSA variant name ("2048") as a modulus size.
func ParseModulus(name string) (int, error) {
	bits, err := strconv.Atoi(strings.TrimSpace(name))
	if err != nil {
		return 0, fmt.Errorf("%w: RSA variant %q is not a modulus size", ErrUnsupported, name)
	}
	if bits < MinRSABits {
		return 0, fmt.Errorf("%w: RSA modulus %d below %d", ErrUnsupported, bits, MinRSABits)
	}
	return bits, nil
}

// =============================================================================
// Key generation
// =============================================================================

// RSAKeyGenerator produces PEM-encoded RSA keys with public exponent 65537:
// PKCS#1 private key, PKIX public key.
type RSAKeyGenerator struct {
	Bits int
}

var _ KeyPairGenerator = RSAKeyGenerator{}

func (g RSAKeyGenerator) Generate() (KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, g.Bits)
	if err != nil {
		return KeyPair{}, err
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}
	return KeyPair{
		Public:  encodePEM(pemPublic, pubDER),
		Private: encodePEM(pemRSAPrivate, x509.MarshalPKCS1PrivateKey(key)),
	}, nil
}

func parseRSAPrivate(data []byte) (*rsa.PrivateKey, error) {
	der, err := decodePEM(data, pemRSAPrivate)
	if err != nil {
		return nil, err
	}
	return x509.ParsePKCS1PrivateKey(der)
}

func parseRSAPublic(data []byte) (*rsa.PublicKey, error) {
	der, err := decodePEM(data, pemPublic)
	if err != nil {
		return nil, err
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, err
	}
	pub, ok := key.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("public key is %T, not RSA", key)
	}
	return pub, nil
}

// =============================================================================
// RSA-KEM
// =============================================================================

// RSAKEM turns RSA-OAEP encryption into a KEM: encapsulation encrypts a
// fixed secret chosen when the adapter is built, decapsulation decrypts it.
type RSAKEM struct {
	variant Variant
	keys    RSAKeyGenerator
	secret  []byte
	clock   Clock
}

var _ KEM = (*RSAKEM)(nil)

func NewRSAKEM(v Variant, bits int, clock Clock) (*RSAKEM, error) {
	secret := make([]byte, RSAKEMSecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("draw RSA-KEM secret: %w", err)
	}
	v.Kind = KindKEM
	return &RSAKEM{variant: v, keys: RSAKeyGenerator{Bits: bits}, secret: secret, clock: clock}, nil
}

func (k *RSAKEM) Variant() Variant { return k.variant }

func (k *RSAKEM) GenerateKey() (Timed[KeyPair], error) {
	return measure(k.clock, k.variant, OpKeyGen, k.keys.Generate)
}

func (k *RSAKEM) Encapsulate(pub []byte) (Timed[Encapsulation], error) {
	return measure(k.clock, k.variant, OpEncapsulate, func() (Encapsulation, error) {
		pk, err := parseRSAPublic(pub)
		if err != nil {
			return Encapsulation{}, fmt.Errorf("parse public key: %w", err)
		}
		ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pk, k.secret, nil)
		if err != nil {
			return Encapsulation{}, err
		}
		return Encapsulation{Ciphertext: ct, SharedSecret: bytes.Clone(k.secret)}, nil
	})
}

func (k *RSAKEM) Decapsulate(priv, ct []byte) (Timed[[]byte], error) {
	return measure(k.clock, k.variant, OpDecapsulate, func() ([]byte, error) {
		sk, err := parseRSAPrivate(priv)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return rsa.DecryptOAEP(sha256.New(), nil, sk, ct, nil)
	})
}

// =============================================================================
// RSA-PSS
// =============================================================================

// RSAPSS signs SHA-256 digests with RSA-PSS at the maximum salt length.
type RSAPSS struct{}

var _ SignatureScheme = RSAPSS{}

var pssOptions = &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: crypto.SHA256}

func (RSAPSS) Sign(priv, msg []byte) ([]byte, error) {
	sk, err := parseRSAPrivate(priv)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	digest := sha256.Sum256(msg)
	return rsa.SignPSS(rand.Reader, sk, crypto.SHA256, digest[:], pssOptions)
}

func (RSAPSS) Verify(pub, msg, sig []byte) (bool, error) {
	pk, err := parseRSAPublic(pub)
	if err != nil {
		return false, fmt.Errorf("parse public key: %w", err)
	}
	digest := sha256.Sum256(msg)
	return rsa.VerifyPSS(pk, crypto.SHA256, digest[:], sig, pssOptions) == nil, nil
}
