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
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"fmt"
	"sort"
	"strings"
)

const (
	pemECPrivate    = "EC PRIVATE KEY"
	pemPKCS8Private = "PRIVATE KEY"
)

// Curve is a named curve an ECC variant can select.
type Curve struct {
	Name  string
	Curve elliptic.Curve

	// EdDSA marks Ed25519, which has no elliptic.Curve.
	EdDSA bool
}

var curves = map[string]Curve{
	"P-224":      {Name: "P-224", Curve: elliptic.P224()},
	"SECP224R1":  {Name: "P-224", Curve: elliptic.P224()},
	"P-256":      {Name: "P-256", Curve: elliptic.P256()},
	"SECP256R1":  {Name: "P-256", Curve: elliptic.P256()},
	"PRIME256V1": {Name: "P-256", Curve: elliptic.P256()},
	"P-384":      {Name: "P-384", Curve: elliptic.P384()},
	"SECP384R1":  {Name: "P-384", Curve: elliptic.P384()},
	"P-521":      {Name: "P-521", Curve: elliptic.P521()},
	"SECP521R1":  {Name: "P-521", Curve: elliptic.P521()},
	"ED25519":    {Name: "Ed25519", EdDSA: true},
}

// CurveNames lists the canonical curve names, sorted.
func CurveNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range curves {
		if !seen[c.Name] {
			seen[c.Name] = true
			names = append(names, c.Name)
		}
	}
	sort.Strings(names)
	return names
}

// LookupCurve resolves a curve name case-insensitively. P-192 is not
// offered by the standard library and is rejected like any unknown name.
func LookupCurve(name string) (Curve, error) {
	c, ok := curves[strings.ToUpper(strings.TrimSpace(name))]
	if !ok {
		return Curve{}, fmt.Errorf("%w: no curve named %q", ErrUnsupported, name)
	}
	return c, nil
}

// =============================================================================
// ECDSA
// =============================================================================

// ECDSAKeyGenerator produces a SEC 1 "EC PRIVATE KEY" PEM and a PKIX
// public key PEM.
type ECDSAKeyGenerator struct {
	Curve Curve
}

var _ KeyPairGenerator = ECDSAKeyGenerator{}

func (g ECDSAKeyGenerator) Generate() (KeyPair, error) {
	key, err := ecdsa.GenerateKey(g.Curve.Curve, rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	privDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}
	return KeyPair{
		Public:  encodePEM(pemPublic, pubDER),
		Private: encodePEM(pemECPrivate, privDER),
	}, nil
}

// ECDSA signs SHA-256 digests and emits ASN.1 DER signatures.
type ECDSA struct{}

var _ SignatureScheme = ECDSA{}

func (ECDSA) Sign(priv, msg []byte) ([]byte, error) {
	der, err := decodePEM(priv, pemECPrivate)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	sk, err := x509.ParseECPrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	digest := sha256.Sum256(msg)
	return ecdsa.SignASN1(rand.Reader, sk, digest[:])
}

func (ECDSA) Verify(pub, msg, sig []byte) (bool, error) {
	key, err := parsePKIXPublic(pub)
	if err != nil {
		return false, err
	}
	pk, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return false, fmt.Errorf("public key is %T, not ECDSA", key)
	}
	digest := sha256.Sum256(msg)
	return ecdsa.VerifyASN1(pk, digest[:], sig), nil
}

// =============================================================================
// Ed25519
// =============================================================================

// Ed25519KeyGenerator produces a PKCS#8 private key PEM and a PKIX public
// key PEM.
type Ed25519KeyGenerator struct{}

var _ KeyPairGenerator = Ed25519KeyGenerator{}

func (Ed25519KeyGenerator) Generate() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, err
	}
	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return KeyPair{}, fmt.Errorf("marshal public key: %w", err)
	}
	return KeyPair{
		Public:  encodePEM(pemPublic, pubDER),
		Private: encodePEM(pemPKCS8Private, privDER),
	}, nil
}

// EdDSA signs whole messages with Ed25519.
type EdDSA struct{}

var _ SignatureScheme = EdDSA{}

func (EdDSA) Sign(priv, msg []byte) ([]byte, error) {
	der, err := decodePEM(priv, pemPKCS8Private)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	sk, ok := key.(ed25519.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is %T, not Ed25519", key)
	}
	return ed25519.Sign(sk, msg), nil
}

func (EdDSA) Verify(pub, msg, sig []byte) (bool, error) {
	key, err := parsePKIXPublic(pub)
	if err != nil {
		return false, err
	}
	pk, ok := key.(ed25519.PublicKey)
	if !ok {
		return false, fmt.Errorf("public key is %T, not Ed25519", key)
	}
	return ed25519.Verify(pk, msg, sig), nil
}

func parsePKIXPublic(data []byte) (any, error) {
	der, err := decodePEM(data, pemPublic)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	key, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}
	return key, nil
}
