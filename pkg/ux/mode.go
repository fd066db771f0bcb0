// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.


package ux

import (
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// Mode selects how output is rendered.
type Mode string

const (
	// ModeRich uses colors, icons, boxes and bordered tables.
	ModeRich Mode = "rich"

	// ModePlain writes tab-separated text suitable for scripts and logs.
	ModePlain Mode = "plain"
)

// OutputEnv overrides mode detection when set to "rich" or "plain".
const OutputEnv = "PQBENCH_OUTPUT"

// ParseMode converts a string to a Mode. Unknown values mean rich.
func ParseMode(s string) Mode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "machine", "quiet", "q":
		return ModePlain
	default:
		return ModeRich
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectMode picks the mode for w: the OutputEnv override if set,
// otherwise rich on a terminal and plain when redirected.
func DetectMode(w io.Writer) Mode {
	if env := os.Getenv(OutputEnv); env != "" {
		return ParseMode(env)
	}
	if IsTerminal(w) {
		return ModeRich
	}
	return ModePlain
}
