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
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/sampling"
)

const stubElapsed = 2 * time.Microsecond

// stubKEM hands out a fresh key pair per keygen call and remembers which
// public keys were encapsulated against.
type stubKEM struct {
	v         adapter.Variant
	keygens   int
	encapPubs [][]byte
	decaps    int

	corrupt   bool
	keygenErr error
}

func newStubKEM(name string) *stubKEM {
	return &stubKEM{v: adapter.Variant{Family: "Stub", Name: name, Runner: adapter.RunnerOQS, Kind: adapter.KindKEM}}
}

func (k *stubKEM) Variant() adapter.Variant { return k.v }

func (k *stubKEM) GenerateKey() (adapter.Timed[adapter.KeyPair], error) {
	if k.keygenErr != nil {
		return adapter.Timed[adapter.KeyPair]{}, k.keygenErr
	}
	k.keygens++
	id := byte(k.keygens)
	return adapter.Timed[adapter.KeyPair]{
		Value:   adapter.KeyPair{Public: bytes.Repeat([]byte{id}, 32), Private: bytes.Repeat([]byte{id}, 64)},
		Elapsed: stubElapsed,
	}, nil
}

func (k *stubKEM) Encapsulate(pub []byte) (adapter.Timed[adapter.Encapsulation], error) {
	k.encapPubs = append(k.encapPubs, pub)
	return adapter.Timed[adapter.Encapsulation]{
		Value:   adapter.Encapsulation{Ciphertext: append([]byte("ct"), pub...), SharedSecret: pub[:16]},
		Elapsed: stubElapsed,
	}, nil
}

func (k *stubKEM) Decapsulate(priv, ct []byte) (adapter.Timed[[]byte], error) {
	k.decaps++
	ss := bytes.Clone(ct[2 : 2+16])
	if k.corrupt && k.decaps == 2 {
		ss[0] ^= 1
	}
	return adapter.Timed[[]byte]{Value: ss, Elapsed: stubElapsed}, nil
}

type stubSigner struct {
	v        adapter.Variant
	reject   bool
	verifies int
}

func newStubSigner(name string) *stubSigner {
	return &stubSigner{v: adapter.Variant{Family: "Stub", Name: name, Runner: adapter.RunnerOQS, Kind: adapter.KindDSS}}
}

func (s *stubSigner) Variant() adapter.Variant { return s.v }

func (s *stubSigner) GenerateKey() (adapter.Timed[adapter.KeyPair], error) {
	return adapter.Timed[adapter.KeyPair]{
		Value:   adapter.KeyPair{Public: []byte("public"), Private: []byte("private-key")},
		Elapsed: stubElapsed,
	}, nil
}

func (s *stubSigner) Sign(priv, msg []byte) (adapter.Timed[[]byte], error) {
	return adapter.Timed[[]byte]{Value: append([]byte("sig:"), msg...), Elapsed: stubElapsed}, nil
}

func (s *stubSigner) Verify(pub, msg, sig []byte) (adapter.Timed[bool], error) {
	s.verifies++
	ok := bytes.Equal(sig, append([]byte("sig:"), msg...)) && !s.reject
	return adapter.Timed[bool]{Value: ok, Elapsed: stubElapsed}, nil
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		RunID:            "run-1",
		Trials:           4,
		ThroughputBudget: 5 * time.Millisecond,
		Memory:           constProbe("rss", 2048),
		Sampler:          testSampler(),
		ClockName:        "wall",
		Now:              func() time.Time { return fixedNow },
	}
}

func newTestOrchestrator(t *testing.T, opts Options) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(opts)
	require.NoError(t, err)
	return o
}

func TestNewOrchestrator_RequiresMemoryProbe(t *testing.T) {
	_, err := NewOrchestrator(Options{})
	assert.ErrorIs(t, err, ErrNoMemoryProbe)
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	o := newTestOrchestrator(t, Options{Memory: constProbe("rss", 0)})
	assert.Equal(t, DefaultTrials, o.opts.Trials)
	assert.Equal(t, DefaultThroughputBudget, o.opts.ThroughputBudget)
	assert.Equal(t, []byte(DefaultMessage), o.opts.Message)
	assert.NotNil(t, o.opts.Logger)
	assert.NotNil(t, o.opts.Tracer)
}

func TestRunKEM_Record(t *testing.T) {
	o := newTestOrchestrator(t, testOptions())
	k := newStubKEM("Stub-512")

	rec, err := o.RunKEM(context.Background(), k)
	require.NoError(t, err)

	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, k.v, rec.Variant)
	assert.Equal(t, "wall", rec.Clock)
	assert.Equal(t, 4, rec.Trials)
	assert.Equal(t, fixedNow, rec.Timestamp)

	assert.Equal(t, PhaseKeygen, rec.Keygen.Phase)
	assert.Equal(t, PhaseEncapsulation, rec.Primary.Phase)
	assert.Equal(t, PhaseDecapsulation, rec.Secondary.Phase)

	for _, p := range []PhaseResult{rec.Keygen, rec.Primary, rec.Secondary} {
		assert.Equal(t, float64(stubElapsed.Nanoseconds()), p.Time.Mean, p.Phase)
		assert.Equal(t, 0.0, p.Time.StdDev, p.Phase)
		assert.Equal(t, 0.0, p.Memory.Mean, p.Phase)
		assert.Nil(t, p.CPU, p.Phase)
	}

	assert.Nil(t, rec.Keygen.Throughput)
	require.NotNil(t, rec.Primary.Throughput)
	require.NotNil(t, rec.Secondary.Throughput)
	assert.Greater(t, rec.Primary.OpsPerSecond(), 0.0)
	assert.Greater(t, rec.Secondary.OpsPerSecond(), 0.0)
	assert.Equal(t, 0.0, rec.Keygen.OpsPerSecond())

	assert.Equal(t, 32, rec.PublicKeyLen)
	assert.Equal(t, 64, rec.SecretKeyLen)
	assert.Equal(t, 34, rec.OutputLen)
	assert.Equal(t, 0, rec.JoinTimeouts)
}

func TestRunKEM_ReusesCanonicalKeyPair(t *testing.T) {
	o := newTestOrchestrator(t, testOptions())
	k := newStubKEM("Stub-512")

	_, err := o.RunKEM(context.Background(), k)
	require.NoError(t, err)

	assert.Equal(t, 4, k.keygens)
	require.NotEmpty(t, k.encapPubs)
	first := bytes.Repeat([]byte{1}, 32)
	for i, pub := range k.encapPubs {
		require.Equal(t, first, pub, "encapsulation %d used a later key pair", i)
	}
}

func TestRunKEM_CorrectnessViolation(t *testing.T) {
	o := newTestOrchestrator(t, testOptions())
	k := newStubKEM("Stub-512")
	k.corrupt = true

	rec, err := o.RunKEM(context.Background(), k)
	assert.Nil(t, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrectnessViolation)
	assert.Equal(t, ClassCorrectness, Classify(err))

	var ce *CorrectnessError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, PhaseDecapsulation, ce.Phase)
	assert.Equal(t, 1, ce.Trial)
	assert.Equal(t, k.v, ce.Variant)
}

func TestRunKEM_ProviderError(t *testing.T) {
	o := newTestOrchestrator(t, testOptions())
	k := newStubKEM("Stub-512")
	k.keygenErr = &adapter.OpError{Op: adapter.OpKeyGen, Variant: k.v, Err: errors.New("rng failure")}

	_, err := o.RunKEM(context.Background(), k)
	require.Error(t, err)
	assert.ErrorIs(t, err, adapter.ErrKeyGeneration)
	assert.Equal(t, ClassProvider, Classify(err))
	assert.Contains(t, err.Error(), "keygen")
}

func TestRunKEM_WithCPUProbe(t *testing.T) {
	opts := testOptions()
	opts.CPU = constProbe("cpu", 50)
	o := newTestOrchestrator(t, opts)

	rec, err := o.RunKEM(context.Background(), newStubKEM("Stub-512"))
	require.NoError(t, err)
	for _, p := range []PhaseResult{rec.Keygen, rec.Primary, rec.Secondary} {
		require.NotNil(t, p.CPU, p.Phase)
		assert.Equal(t, 0.0, p.CPU.Max, p.Phase)
	}
}

func TestRunKEM_Cancelled(t *testing.T) {
	o := newTestOrchestrator(t, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.RunKEM(ctx, newStubKEM("Stub-512"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ClassCancelled, Classify(err))
}

func TestRunSigner_Record(t *testing.T) {
	opts := testOptions()
	opts.Message = []byte("hello")
	o := newTestOrchestrator(t, opts)
	s := newStubSigner("Stub-44")

	rec, err := o.RunSigner(context.Background(), s)
	require.NoError(t, err)

	assert.Equal(t, PhaseSignature, rec.Primary.Phase)
	assert.Equal(t, PhaseVerification, rec.Secondary.Phase)
	assert.Equal(t, len("public"), rec.PublicKeyLen)
	assert.Equal(t, len("private-key"), rec.SecretKeyLen)
	assert.Equal(t, len("sig:hello"), rec.OutputLen)
	assert.Greater(t, rec.Secondary.OpsPerSecond(), 0.0)
	assert.GreaterOrEqual(t, s.verifies, 4)
}

func TestRunSigner_CorrectnessViolation(t *testing.T) {
	o := newTestOrchestrator(t, testOptions())
	s := newStubSigner("Stub-44")
	s.reject = true

	_, err := o.RunSigner(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, ClassCorrectness, Classify(err))

	var ce *CorrectnessError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, PhaseVerification, ce.Phase)
	assert.Equal(t, 0, ce.Trial)
}

func TestRunKEM_RealRSA(t *testing.T) {
	if testing.Short() {
		t.Skip("RSA-2048 key generation")
	}
	opts := testOptions()
	opts.Trials = 5
	opts.ThroughputBudget = 20 * time.Millisecond
	rss, err := sampling.NewRSSProbe()
	require.NoError(t, err)
	opts.Memory = sampling.SharedProbe{Probe: rss}
	o := newTestOrchestrator(t, opts)

	k, err := adapter.NewKEM(adapter.Variant{Family: "RSA", Name: "2048", Runner: adapter.RunnerRSA}, adapter.NewWallClock())
	require.NoError(t, err)

	rec, err := o.RunKEM(context.Background(), k)
	require.NoError(t, err)

	assert.Greater(t, rec.PublicKeyLen, 0)
	assert.Greater(t, rec.SecretKeyLen, 0)
	assert.Equal(t, 256, rec.OutputLen)
	for _, p := range []PhaseResult{rec.Keygen, rec.Primary, rec.Secondary} {
		assert.GreaterOrEqual(t, p.Time.Mean, 0.0, p.Phase)
		assert.GreaterOrEqual(t, p.Time.Max, p.Time.Mean, p.Phase)
	}
}

func TestClassify(t *testing.T) {
	v := adapter.Variant{Family: "F", Name: "N"}
	tests := []struct {
		err  error
		want FailureClass
	}{
		{&CorrectnessError{Variant: v}, ClassCorrectness},
		{fmt.Errorf("decapsulation: %w", &CorrectnessError{Variant: v}), ClassCorrectness},
		{fmt.Errorf("build: %w", adapter.ErrUnsupported), ClassConfiguration},
		{context.Canceled, ClassCancelled},
		{fmt.Errorf("keygen: %w", context.DeadlineExceeded), ClassCancelled},
		{&adapter.OpError{Op: adapter.OpSign, Variant: v, Err: errors.New("x")}, ClassProvider},
		{errors.New("anything else"), ClassProvider},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.err), tt.err.Error())
	}
}
