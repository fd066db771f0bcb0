// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/pqbench/cmd/pqbench/config"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/bench"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/results"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/sampling"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/telemetry"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/util"
	"github.com/AleutianAI/pqbench/pkg/logging"
	"github.com/AleutianAI/pqbench/pkg/ux"
)

// runFlags override settings file values when set on the command line.
type runFlags struct {
	kemSuite    string
	signSuite   string
	only        string
	trials      int
	throughput  time.Duration
	clock       string
	sampleCPU   bool
	resultsDir  string
	historyDir  string
	traceFile   string
	otlp        string
	metricsFile string
	jsonLogs    bool
}

func newRunCmd(g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Benchmark every configured variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			return runBenchmarks(cmd, g, cfg)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.kemSuite, "kem-suite", "", "KEM suite file (default built-in)")
	fl.StringVar(&f.signSuite, "sign-suite", "", "signature suite file (default built-in)")
	fl.StringVar(&f.only, "only", "", "run only one kind: kem or sign")
	fl.IntVarP(&f.trials, "trials", "n", config.DefaultTrials, "trials per phase")
	fl.DurationVar(&f.throughput, "throughput", config.DefaultThroughputBudget, "wall-clock budget of each throughput phase")
	fl.StringVar(&f.clock, "clock", config.DefaultClock, "trial clock: cpu or wall")
	fl.BoolVar(&f.sampleCPU, "sample-cpu", false, "also sample CPU usage")
	fl.StringVarP(&f.resultsDir, "results", "o", config.DefaultResultsDir, "results directory")
	fl.StringVar(&f.historyDir, "history", "", "BadgerDB directory that keeps every run")
	fl.StringVar(&f.traceFile, "trace-file", "", "write spans as JSON to this file (- for stdout)")
	fl.StringVar(&f.otlp, "otlp-endpoint", "", "send spans to this OTLP/gRPC collector")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	fl.BoolVar(&f.jsonLogs, "json-logs", false, "log JSON to stderr")
	return cmd
}

func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("kem-suite") {
		cfg.Suites.KEM = f.kemSuite
	}
	if changed("sign-suite") {
		cfg.Suites.Sign = f.signSuite
	}
	if changed("only") {
		cfg.Suites.Only = f.only
	}
	if changed("trials") {
		cfg.Engine.Trials = f.trials
	}
	if changed("throughput") {
		cfg.Engine.ThroughputBudget = f.throughput
	}
	if changed("clock") {
		cfg.Engine.Clock = f.clock
	}
	if changed("sample-cpu") {
		cfg.Engine.SampleCPU = f.sampleCPU
	}
	if changed("results") {
		cfg.Results.Dir = f.resultsDir
	}
	if changed("history") {
		cfg.Results.History = f.historyDir
	}
	if changed("trace-file") {
		cfg.Telemetry.TraceFile = f.traceFile
	}
	if changed("otlp-endpoint") {
		cfg.Telemetry.OTLPEndpoint = f.otlp
	}
	if changed("metrics-file") {
		cfg.Telemetry.MetricsFile = f.metricsFile
	}
	if changed("json-logs") {
		cfg.Logging.JSON = f.jsonLogs
	}
}

func runBenchmarks(cmd *cobra.Command, g *globalFlags, cfg *config.Config) error {
	p := g.printer(cmd)
	stderr := cmd.ErrOrStderr()

	run, err := config.ResolveForRun(cfg)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	root := newLogger(cfg, stderr)
	defer root.Close()
	prevDefault := slog.Default()
	slog.SetDefault(root.Slog())
	defer slog.SetDefault(prevDefault)
	logger := root.With("run_id", runID)
	for _, err := range run.Skipped {
		logger.Warn("variant cannot be built and will be recorded as failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "pqbench",
		ServiceVersion: Version,
		RunID:          runID,
		TraceFile:      cfg.Telemetry.TraceFile,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		OTLPInsecure:   cfg.Telemetry.OTLPInsecure,
		MetricsFile:    cfg.Telemetry.MetricsFile,
		MetricsStdout:  cfg.Telemetry.MetricsStdout,
		MetricsWriter:  stderr,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), util.DefaultSinkTimeout)
		defer cancel()
		if err := tel.Shutdown(sctx); err != nil {
			logger.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	clock, err := adapter.ParseClock(cfg.Engine.Clock)
	if err != nil {
		return config.NewConfigError("engine.clock", cfg.Engine.Clock, err)
	}

	rss, err := sampling.NewRSSProbe()
	if err != nil {
		return fmt.Errorf("memory probe: %w", err)
	}
	opts := bench.Options{
		RunID:            runID,
		Trials:           cfg.Engine.Trials,
		ThroughputBudget: cfg.Engine.ThroughputBudget,
		Message:          []byte(cfg.Engine.Message),
		Memory:           sampling.SharedProbe{Probe: rss},
		Sampler: sampling.Config{
			Period: cfg.Engine.SamplePeriod,
			Window: cfg.Engine.SampleWindow,
			Logger: logger,
		},
		JoinTimeout: cfg.Engine.JoinTimeout,
		ClockName:   clock.Name(),
		Logger:      logger,
		Tracer:      tel.Tracer,
		Metrics:     tel.Metrics,
	}
	if cfg.Engine.SampleCPU {
		opts.CPU = sampling.CPUPercentFactory{}
	}
	orch, err := bench.NewOrchestrator(opts)
	if err != nil {
		return err
	}

	sinks, history, closeSinks, err := openSinks(cfg, tel.Metrics, logger)
	if err != nil {
		return err
	}
	defer closeSinks()

	logger.Info("benchmark run starting",
		"clock", clock.Name(),
		"trials", cfg.Engine.Trials,
		"throughput_budget", cfg.Engine.ThroughputBudget,
		"sinks", sinks.Names(),
	)

	progress := util.NewProgress(stderr, ux.IsTerminal(stderr))
	batch := bench.NewBatch(orch, bench.BatchOptions{
		Clock:       clock,
		Sink:        sinks,
		Progress:    progress,
		SinkTimeout: cfg.Results.SinkTimeout,
	})
	report := batch.Run(ctx, run.KEM, run.Sign)

	if history != nil {
		if err := history.SaveRun(context.WithoutCancel(ctx), results.SummarizeRun(report)); err != nil {
			report.SinkErrors = append(report.SinkErrors, fmt.Errorf("history: %w", err))
		}
	}
	if cfg.Results.GCS.Enabled() && len(report.Records) > 0 {
		if err := uploadResults(context.WithoutCancel(ctx), cfg, runID, logger); err != nil {
			report.SinkErrors = append(report.SinkErrors, err)
		}
	}

	printReport(p, report, cfg.Results.Dir)

	if ctx.Err() != nil {
		return &ExitError{Code: ExitFailed, Err: errors.New("interrupted")}
	}
	if report.Failed() {
		return &ExitError{Code: ExitFailed}
	}
	return nil
}

// openSinks builds the result sinks the settings enable. The CSV sink is
// always first.
func openSinks(cfg *config.Config, metrics *telemetry.Metrics, logger *logging.Logger) (*results.MultiSink, *results.History, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	multi := results.NewMultiSink(metrics).
		Add("csv", results.NewCSVSink(cfg.Results.Dir, cfg.Engine.SampleCPU))
	multi.SetTimeout(cfg.Results.SinkTimeout)

	var history *results.History
	if cfg.Results.History != "" {
		h, err := results.OpenHistory(results.HistoryConfig{
			Path:       cfg.Results.History,
			SyncWrites: true,
			Logger:     logger.With("component", "badger"),
		})
		if err != nil {
			return nil, nil, closeAll, fmt.Errorf("history: %w", err)
		}
		history = h
		closers = append(closers, func() {
			if err := h.Close(); err != nil {
				logger.Warn("history close failed", "error", err)
			}
		})
		multi.Add("history", h)
	}

	if ic := cfg.Results.Influx; ic.Enabled() {
		sink, err := results.NewInfluxSink(results.InfluxConfig{
			URL:    ic.URL,
			Token:  os.Getenv(ic.TokenEnv),
			Org:    ic.Org,
			Bucket: ic.Bucket,
		})
		if err != nil {
			closeAll()
			return nil, nil, func() {}, fmt.Errorf("influx: %w", err)
		}
		closers = append(closers, sink.Close)
		multi.Add("influx", sink)
	}
	return multi, history, closeAll, nil
}

func uploadResults(ctx context.Context, cfg *config.Config, runID string, logger *logging.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, util.EnforceMinTimeout(cfg.Results.SinkTimeout, util.MinSinkTimeout))
	defer cancel()

	gc := cfg.Results.GCS
	u, err := results.NewGCSUploader(ctx, gc.Bucket, gc.Prefix, gc.Credentials, logger)
	if err != nil {
		return fmt.Errorf("gcs: %w", err)
	}
	defer u.Close()

	n, err := u.UploadDir(ctx, cfg.Results.Dir, runID)
	if err != nil {
		return fmt.Errorf("gcs upload: %w", err)
	}
	logger.Info("results uploaded", "files", n, "bucket", gc.Bucket)
	return nil
}

func printReport(p *ux.Printer, report *bench.BatchReport, resultsDir string) {
	p.Summary(ux.RunSummary{
		RunID:      report.RunID,
		Records:    len(report.Records),
		Failures:   len(report.Failures),
		SinkErrors: len(report.SinkErrors),
		Elapsed:    report.Finished.Sub(report.Started),
		ResultsDir: resultsDir,
	})

	rows := make([]ux.FailureRow, 0, len(report.Failures))
	for _, f := range report.Failures {
		rows = append(rows, ux.FailureRow{Variant: f.Variant.String(), Class: string(f.Class), Error: f.Err.Error()})
	}
	p.Failures(rows)

	for _, err := range report.SinkErrors {
		p.Warning(err.Error())
	}
}
