// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.


package ux

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseMode(t *testing.T) {
	tests := map[string]Mode{
		"plain":   ModePlain,
		"PLAIN":   ModePlain,
		"machine": ModePlain,
		"q":       ModePlain,
		"rich":    ModeRich,
		"":        ModeRich,
		"fancy":   ModeRich,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseMode(in), in)
	}
}

func TestDetectMode(t *testing.T) {
	var buf bytes.Buffer

	t.Setenv(OutputEnv, "")
	assert.Equal(t, ModePlain, DetectMode(&buf), "a buffer is not a terminal")
	assert.False(t, IsTerminal(&buf))

	t.Setenv(OutputEnv, "rich")
	assert.Equal(t, ModeRich, DetectMode(&buf))

	t.Setenv(OutputEnv, "plain")
	assert.Equal(t, ModePlain, DetectMode(os.Stdout))
}

func TestPrinter_PlainMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModePlain)

	p.Title("ignored")
	p.Success("done")
	p.Warning("careful")
	p.Error("broken")
	p.Info("note")
	p.Box("Config", "valid")

	assert.Equal(t, "OK: done\nWARN: careful\nERROR: broken\nnote\nConfig: valid\n", buf.String())
	assert.Equal(t, ModePlain, p.Mode())
}

func TestPrinter_RichMessages(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, ModeRich)

	p.Title("pqbench")
	p.Success("done")
	p.Error("broken")
	p.Box("Config", "valid")

	out := buf.String()
	assert.Contains(t, out, "pqbench")
	assert.Contains(t, out, "✓")
	assert.Contains(t, out, "done")
	assert.Contains(t, out, "✗")
	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "valid")
}

func TestPrinter_Table(t *testing.T) {
	headers := []string{"Scheme", "Public key"}
	rows := [][]string{{"ML-KEM-768", "1184"}, {"X-Wing", "1216"}}

	var plain bytes.Buffer
	NewPrinter(&plain, ModePlain).Table(headers, rows)
	assert.Equal(t, "Scheme\tPublic key\nML-KEM-768\t1184\nX-Wing\t1216\n", plain.String())

	var rich bytes.Buffer
	NewPrinter(&rich, ModeRich).Table(headers, rows)
	out := rich.String()
	for _, cell := range []string{"Scheme", "Public key", "ML-KEM-768", "1184", "X-Wing", "1216"} {
		assert.Contains(t, out, cell)
	}
	assert.Contains(t, out, "╭")
}

func TestPrinter_Summary(t *testing.T) {
	s := RunSummary{RunID: "abc", Records: 12, Failures: 1, SinkErrors: 0, Elapsed: 1500 * time.Millisecond, ResultsDir: "results"}

	var plain bytes.Buffer
	NewPrinter(&plain, ModePlain).Summary(s)
	assert.Equal(t, "SUMMARY: run=abc records=12 failures=1 sink_errors=0 elapsed=1.5s results=results\n", plain.String())

	var rich bytes.Buffer
	NewPrinter(&rich, ModeRich).Summary(s)
	assert.Contains(t, rich.String(), "Run abc")
	assert.Contains(t, rich.String(), "benchmarked")
	assert.Contains(t, rich.String(), "1.5s")
}

func TestPrinter_Failures(t *testing.T) {
	rows := []FailureRow{
		{Variant: "Bogus/NotAKem", Class: "configuration", Error: "unknown scheme"},
		{Variant: "RSA/2048", Class: "correctness", Error: "recovered secret differs"},
	}

	var plain bytes.Buffer
	NewPrinter(&plain, ModePlain).Failures(rows)
	lines := strings.Split(strings.TrimSpace(plain.String()), "\n")
	assert.Equal(t, []string{
		"FAILED\tBogus/NotAKem\tconfiguration\tunknown scheme",
		"FAILED\tRSA/2048\tcorrectness\trecovered secret differs",
	}, lines)

	var rich bytes.Buffer
	NewPrinter(&rich, ModeRich).Failures(rows)
	assert.Contains(t, rich.String(), "2 variant(s) failed")
	assert.Contains(t, rich.String(), "[configuration]")

	var none bytes.Buffer
	NewPrinter(&none, ModeRich).Failures(nil)
	assert.Empty(t, none.String())
}

func TestIcon_Render(t *testing.T) {
	assert.Contains(t, IconSuccess.Render(), "✓")
	assert.Equal(t, "→", IconArrow.Render())
}
