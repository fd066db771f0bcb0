// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Level Tests
// =============================================================================

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// =============================================================================
// Logger Tests
// =============================================================================

func TestLogger_WritesToOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf, Service: "pqbench"})

	logger.Info("variant done", "variant", "ML-KEM-768")

	out := buf.String()
	assert.Contains(t, out, "variant done")
	assert.Contains(t, out, "variant=ML-KEM-768")
	assert.Contains(t, out, "service=pqbench")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Output: &buf})

	logger.Debug("hidden debug")
	logger.Info("hidden info")
	logger.Warn("shown warn")
	logger.Error("shown error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown warn")
	assert.Contains(t, out, "shown error")
	assert.False(t, logger.Enabled(LevelInfo))
	assert.True(t, logger.Enabled(LevelError))
}

func TestLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf, JSON: true})

	logger.Info("trial", "index", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "trial", entry["msg"])
	assert.EqualValues(t, 3, entry["index"])
}

func TestLogger_With(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	child := logger.With("run_id", "abc")
	child.Info("child message")
	logger.Info("parent message")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "run_id=abc")
	assert.NotContains(t, lines[1], "run_id=abc")
}

func TestLogger_SlogAsDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Output: &buf, Service: "pqbench"})

	prev := slog.Default()
	slog.SetDefault(logger.Slog())
	defer slog.SetDefault(prev)

	slog.Warn("spinner write failed", "error", "broken pipe")
	slog.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "spinner write failed")
	assert.Contains(t, out, "service=pqbench")
	assert.NotContains(t, out, "hidden")
}

func TestLogger_FileLogging(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Level: LevelInfo, LogDir: dir, Service: "bench", Quiet: true})

	logger.Info("to file", "k", "v")
	require.NoError(t, logger.Close())

	matches, err := filepath.Glob(filepath.Join(dir, "bench_*.log"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestLogger_Close_NoFile(t *testing.T) {
	assert.NoError(t, Nop().Close())
}

func TestLogger_Close_Twice(t *testing.T) {
	logger := New(Config{LogDir: t.TempDir(), Quiet: true})
	require.NoError(t, logger.Close())
	assert.NoError(t, logger.Close())
}

func TestLogger_ConcurrentUse(t *testing.T) {
	var buf safeBuffer
	logger := New(Config{Level: LevelInfo, Output: &buf})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.With("worker", i).Info("sample")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, strings.Count(buf.String(), "sample"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".pqbench"), expandPath("~/.pqbench"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
	assert.Equal(t, "", expandPath(""))
}

// safeBuffer is a bytes.Buffer guarded for concurrent writers.
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
