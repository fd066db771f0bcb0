// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package results

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/bench"
)

// CSVSink writes one CSV per algorithm family to
// <Dir>/<kem|sign>/<algorithm>.csv, one row per variant. An existing file
// is replaced.
type CSVSink struct {
	Dir string

	// CPU appends the CPU usage columns.
	CPU bool
}

func NewCSVSink(dir string, cpu bool) *CSVSink {
	return &CSVSink{Dir: dir, CPU: cpu}
}

// Path returns the file a family is written to.
func (s *CSVSink) Path(kind adapter.Kind, family string) string {
	return filepath.Join(s.Dir, kind.Dir(), fileName(family)+".csv")
}

func (s *CSVSink) WriteFamily(ctx context.Context, kind adapter.Kind, family string, records []bench.MetricRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(kind, family)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create results directory: %w", err)
	}

	// Write beside the target and rename, so a crash never leaves a
	// truncated CSV behind.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(Header(kind, s.CPU)); err != nil {
		tmp.Close()
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(Row(rec, s.CPU)); err != nil {
			tmp.Close()
			return fmt.Errorf("write %s row: %w", rec.Variant, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// fileName keeps family names usable as file names.
func fileName(family string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, family)
}
