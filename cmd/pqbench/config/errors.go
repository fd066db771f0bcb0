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
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrConfiguration is matched by every *ConfigError.
var ErrConfiguration = errors.New("configuration error")

// ConfigError reports an invalid setting or suite entry. It is raised
// before any trial runs.
type ConfigError struct {
	// Field is the dotted path of the offending value, e.g.
	// "kem[2].variants[0]" or "engine.trials".
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	var b strings.Builder
	b.WriteString("configuration error")
	if e.Field != "" {
		b.WriteString(": ")
		b.WriteString(e.Field)
		if e.Value != "" {
			fmt.Fprintf(&b, "=%q", e.Value)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigError wraps err as a configuration error for field.
func NewConfigError(field, value string, err error) *ConfigError {
	return &ConfigError{Field: field, Value: value, Err: err}
}

// fromValidation converts validator failures into ConfigErrors under
// prefix. Other errors are wrapped as they are.
func fromValidation(prefix string, err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewConfigError(prefix, "", err)
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		field := fieldPath(prefix, fe.Namespace())
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		errs = append(errs, NewConfigError(field, fmt.Sprint(fe.Value()), fmt.Errorf("failed rule %s", rule)))
	}
	return errors.Join(errs...)
}

// fieldPath drops the root struct name from a validator namespace
// ("Config.engine.trials" becomes "engine.trials") and prepends prefix.
func fieldPath(prefix, namespace string) string {
	if i := strings.IndexByte(namespace, '.'); i >= 0 {
		namespace = namespace[i+1:]
	} else {
		namespace = ""
	}
	switch {
	case prefix == "":
		return namespace
	case namespace == "":
		return prefix
	default:
		return prefix + "." + namespace
	}
}
