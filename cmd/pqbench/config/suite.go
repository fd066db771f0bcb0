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
	"embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
)

//go:embed suites/kems.yml suites/signschemes.yml
var builtinSuites embed.FS

// Built-in suite names, as reported by Suite.Source.
const (
	BuiltinKEMSuite  = "builtin:kems.yml"
	BuiltinSignSuite = "builtin:signschemes.yml"
)

// Family is one algorithm family of a suite file.
type Family struct {
	Algorithm string   `yaml:"algorithm" validate:"required"`
	Runner    string   `yaml:"runner" validate:"required"`
	Variants  []string `yaml:"variants" validate:"min=1,dive,required"`
}

// Suite is a parsed, validated suite file.
type Suite struct {
	Kind     adapter.Kind
	Source   string
	Families []Family
}

// Variants returns the adapter identity of every variant of family i, in
// file order.
func (s *Suite) Variants(i int) []adapter.Variant {
	f := s.Families[i]
	out := make([]adapter.Variant, 0, len(f.Variants))
	for _, name := range f.Variants {
		out = append(out, adapter.Variant{
			Family: f.Algorithm,
			Name:   name,
			Runner: adapter.RunnerKind(f.Runner),
			Kind:   s.Kind,
		})
	}
	return out
}

// Len is the number of variants across all families.
func (s *Suite) Len() int {
	n := 0
	for _, f := range s.Families {
		n += len(f.Variants)
	}
	return n
}

// LoadSuite reads and validates a suite file. An empty path loads the
// built-in suite of kind.
//
// # Outputs
//
//   - *Suite: Parsed suite
//   - error: file errors as they are; any content problem as *ConfigError
//     (one per problem, joined)
func LoadSuite(path string, kind adapter.Kind) (*Suite, error) {
	s, skipped, err := loadSuite(path, kind)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		return nil, errors.Join(skipped...)
	}
	return s, nil
}

func loadSuite(path string, kind adapter.Kind) (*Suite, []error, error) {
	if path == "" {
		s, err := BuiltinSuite(kind)
		return s, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read the suite file %s: %w", path, err)
	}
	return parseSuite(data, kind, path)
}

// BuiltinSuite returns the suite embedded in the binary.
func BuiltinSuite(kind adapter.Kind) (*Suite, error) {
	name, source := "suites/signschemes.yml", BuiltinSignSuite
	if kind == adapter.KindKEM {
		name, source = "suites/kems.yml", BuiltinKEMSuite
	}
	data, err := builtinSuites.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read builtin suite: %w", err)
	}
	return ParseSuite(data, kind, source)
}

// ParseSuite decodes and validates suite YAML. source names the data in
// error messages.
func ParseSuite(data []byte, kind adapter.Kind, source string) (*Suite, error) {
	s, skipped, err := parseSuite(data, kind, source)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		return nil, errors.Join(skipped...)
	}
	return s, nil
}

// parseSuite decodes suite YAML and splits its problems: a family that is
// malformed or names an unknown runner fails the suite, while a variant its
// runner cannot build is returned in skipped and stays in the suite.
func parseSuite(data []byte, kind adapter.Kind, source string) (*Suite, []error, error) {
	var families []Family
	if err := yaml.Unmarshal(data, &families); err != nil {
		return nil, nil, NewConfigError(source, "", fmt.Errorf("failed to parse suite: %w", err))
	}
	if len(families) == 0 {
		return nil, nil, NewConfigError(source, "", errors.New("suite has no algorithm families"))
	}

	s := &Suite{Kind: kind, Source: source, Families: families}
	broken, variants := s.check()
	if len(broken) > 0 {
		return nil, nil, errors.Join(append(broken, variants...)...)
	}
	return s, variants, nil
}

// Validate checks every family's shape and that every variant names
// something its runner can build: RSA moduli parse as integers of at least
// 1024 bits, ECC variants map to a supported curve, OQS variants name a
// provider scheme of the suite's kind. All problems are reported together.
func (s *Suite) Validate() error {
	families, variants := s.check()
	return errors.Join(append(families, variants...)...)
}

// check normalises runner names in place and returns family-level and
// variant-level problems separately. Variants of a broken family are not
// checked.
func (s *Suite) check() (families, variants []error) {
	for i, f := range s.Families {
		prefix := fmt.Sprintf("%s[%d]", s.Kind.Dir(), i)
		if err := validate.Struct(f); err != nil {
			families = append(families, fromValidation(prefix, err))
			continue
		}
		r, err := adapter.ParseRunner(f.Runner)
		if err != nil {
			families = append(families, NewConfigError(prefix+".runner", f.Runner, err))
			continue
		}
		s.Families[i].Runner = string(r)

		for j, v := range s.Variants(i) {
			if err := adapter.Validate(v); err != nil {
				field := fmt.Sprintf("%s.variants[%d]", prefix, j)
				variants = append(variants, NewConfigError(field, v.Name, err))
			}
		}
	}
	return families, variants
}
