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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/bench"
	"github.com/AleutianAI/pqbench/pkg/logging"
)

// Key prefixes of the history store.
//
//	run/<run-id>/<kem|sign>/<algorithm>/<variant>  -> MetricRecord JSON
//	meta/<run-id>                                  -> RunSummary JSON
const (
	recordPrefix = "run/"
	runPrefix    = "meta/"
)

// ErrRunNotFound is returned by History.Records for an unknown run id.
var ErrRunNotFound = errors.New("run not found")

// HistoryConfig configures the BadgerDB history store.
type HistoryConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's own log lines. Nil silences them.
	Logger *logging.Logger
}

// History stores every record of every run so runs can be compared later.
// It is a bench.Sink.
//
// Thread Safety: Safe for concurrent use.
type History struct {
	db *badger.DB
}

// badgerLogger adapts logging.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *logging.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// OpenHistory opens (creating if needed) the history store.
//
// # Outputs
//
//   - *History: Open store; call Close when done
//   - error: Non-nil if Path is missing or the database cannot be opened
func OpenHistory(cfg HistoryConfig) (*History, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("history path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create history directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	return &History{db: db}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

func recordKey(rec bench.MetricRecord) []byte {
	return []byte(recordPrefix + rec.RunID + "/" + rec.Variant.Kind.Dir() + "/" + rec.Variant.Family + "/" + rec.Variant.Name)
}

// WriteFamily stores every record in one transaction.
func (h *History) WriteFamily(ctx context.Context, kind adapter.Kind, family string, records []bench.MetricRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.db.Update(func(txn *badger.Txn) error {
		for _, rec := range records {
			if rec.RunID == "" {
				return fmt.Errorf("record %s has no run id", rec.Variant)
			}
			val, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("marshal %s: %w", rec.Variant, err)
			}
			if err := txn.Set(recordKey(rec), val); err != nil {
				return fmt.Errorf("store %s: %w", rec.Variant, err)
			}
		}
		return nil
	})
}

// FailureSummary is a failed variant as stored with its run.
type FailureSummary struct {
	Variant string `json:"variant"`
	Class   string `json:"class"`
	Error   string `json:"error"`
}

// RunSummary describes one stored run.
type RunSummary struct {
	RunID    string           `json:"run_id"`
	Started  time.Time        `json:"started"`
	Finished time.Time        `json:"finished"`
	Records  int              `json:"records"`
	Failures []FailureSummary `json:"failures,omitempty"`
}

// SummarizeRun extracts the stored summary of a batch report.
func SummarizeRun(report *bench.BatchReport) RunSummary {
	s := RunSummary{
		RunID:    report.RunID,
		Started:  report.Started.UTC(),
		Finished: report.Finished.UTC(),
		Records:  len(report.Records),
	}
	for _, f := range report.Failures {
		s.Failures = append(s.Failures, FailureSummary{
			Variant: f.Variant.String(),
			Class:   string(f.Class),
			Error:   f.Err.Error(),
		})
	}
	return s
}

// SaveRun stores the summary of a finished run.
func (h *History) SaveRun(ctx context.Context, s RunSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	return h.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(runPrefix+s.RunID), val)
	})
}

// Runs lists stored runs, newest first.
func (h *History) Runs(ctx context.Context) ([]RunSummary, error) {
	var runs []RunSummary
	err := scan(ctx, h.db, []byte(runPrefix), func(val []byte) error {
		var s RunSummary
		if err := json.Unmarshal(val, &s); err != nil {
			return err
		}
		runs = append(runs, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Started.After(runs[j].Started) })
	return runs, nil
}

// Records returns every record of a run, ordered by kind, algorithm and
// variant.
func (h *History) Records(ctx context.Context, runID string) ([]bench.MetricRecord, error) {
	var recs []bench.MetricRecord
	err := scan(ctx, h.db, []byte(recordPrefix+runID+"/"), func(val []byte) error {
		var rec bench.MetricRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read run %s: %w", runID, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return recs, nil
}

func scan(ctx context.Context, db *badger.DB, prefix []byte, fn func(val []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := it.Item().Value(fn); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
		}
		return nil
	})
}
