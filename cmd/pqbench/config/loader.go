// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
)

// DefaultFile is the settings file looked up when none is named.
const DefaultFile = "pqbench.yaml"

// Load reads the settings file at path over the defaults.
//
// # Description
//
// An empty path tries DefaultFile in the working directory and falls back
// to the defaults when it does not exist. A named path must exist. Keys
// absent from the file keep their default values. Unknown keys are
// rejected so typos surface as configuration errors. The result is not
// validated; call Validate after applying CLI overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read the config file %s: %w", path, err)
	}
	if err := Decode(data, cfg); err != nil {
		return nil, NewConfigError(path, "", err)
	}
	return cfg, nil
}

// Decode unmarshals settings YAML onto cfg.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to parse settings: %w", err)
	}
	return nil
}

// Marshal renders cfg as YAML.
func (c *Config) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return out, nil
}

// Run is everything a benchmark run needs from configuration.
type Run struct {
	Settings *Config

	// KEM and Sign are nil when excluded by Suites.Only.
	KEM  *Suite
	Sign *Suite

	// Skipped lists variants no runner can build. ResolveForRun keeps them
	// in their suite so the batch records each as a configuration failure.
	Skipped []error
}

// Resolve validates cfg and loads the suites it names. Errors from the
// settings and both suites are reported together.
func Resolve(cfg *Config) (*Run, error) {
	run, err := resolve(cfg)
	if err != nil {
		return nil, err
	}
	if len(run.Skipped) > 0 {
		return nil, errors.Join(run.Skipped...)
	}
	return run, nil
}

// ResolveForRun is Resolve for benchmark runs: a variant its runner cannot
// build is listed in Run.Skipped instead of failing the whole run. Bad
// settings, unreadable suites and malformed families still fail.
func ResolveForRun(cfg *Config) (*Run, error) {
	return resolve(cfg)
}

func resolve(cfg *Config) (*Run, error) {
	run := &Run{Settings: cfg}
	var errs []error

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	load := func(path string, kind adapter.Kind) *Suite {
		s, skipped, err := loadSuite(path, kind)
		if err != nil {
			errs = append(errs, err)
			return nil
		}
		run.Skipped = append(run.Skipped, skipped...)
		return s
	}
	if cfg.RunKEM() {
		run.KEM = load(cfg.Suites.KEM, adapter.KindKEM)
	}
	if cfg.RunSign() {
		run.Sign = load(cfg.Suites.Sign, adapter.KindDSS)
	}
	if len(errs) > 0 {
		// Variant problems are reported alongside the fatal ones.
		return nil, errors.Join(append(errs, run.Skipped...)...)
	}
	return run, nil
}
