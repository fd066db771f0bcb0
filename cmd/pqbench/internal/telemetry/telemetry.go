// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry provides OpenTelemetry-based observability for pqbench.
//
// A benchmark run is a batch job, not a service, so both signals are
// written out when the run ends rather than scraped:
//
//   - Traces: one span per batch, per variant and per phase. Exported as
//     JSON lines to a file (stdouttrace), to an OTLP collector over gRPC,
//     or dropped (no-op provider).
//   - Metrics: OTel instruments read by the Prometheus exporter into a
//     private registry, which is written as a node_exporter textfile at
//     shutdown. Alternatively printed with the stdout metric exporter.
//
// # Usage
//
//	tel, err := telemetry.Init(ctx, telemetry.Config{
//	    TraceFile:   "trace.json",
//	    MetricsFile: "pqbench.prom",
//	    RunID:       runID,
//	})
//	if err != nil { ... }
//	defer tel.Shutdown(context.Background())
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName names the tracer and meter.
const InstrumentationName = "github.com/AleutianAI/pqbench"

// ErrNilContext is returned when Init is called with a nil context.
var ErrNilContext = errors.New("telemetry: nil context")

// Config selects the exporters. Every field is optional; the zero value
// disables both signals.
type Config struct {
	ServiceName    string
	ServiceVersion string
	RunID          string

	// TraceFile receives spans as JSON. "-" means stdout.
	TraceFile string

	// OTLPEndpoint sends spans to a collector instead of TraceFile.
	OTLPEndpoint string
	OTLPInsecure bool

	// MetricsFile receives the Prometheus text exposition at shutdown.
	MetricsFile string

	// MetricsStdout prints metrics as JSON to MetricsWriter at shutdown
	// when MetricsFile is empty.
	MetricsStdout bool
	MetricsWriter io.Writer
}

// Telemetry holds the providers of one run.
type Telemetry struct {
	Tracer  trace.Tracer
	Meter   metric.Meter
	Metrics *Metrics

	registry      *prometheus.Registry
	metricsFile   string
	shutdownFuncs []func(context.Context) error
}

// Init builds the tracer and meter providers named by cfg.
//
// # Outputs
//
//   - *Telemetry: Providers ready for use; call Shutdown when the run ends
//   - error: ErrNilContext, or an exporter construction failure
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "pqbench"
	}

	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	if cfg.RunID != "" {
		attrs = append(attrs, attribute.String("pqbench.run_id", cfg.RunID))
	}
	res := resource.NewWithAttributes("", attrs...)

	t := &Telemetry{metricsFile: cfg.MetricsFile}

	tp, err := t.initTracer(ctx, cfg, res)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("init tracer: %w", err)
	}
	otel.SetTracerProvider(tp)
	t.Tracer = tp.Tracer(InstrumentationName)

	mp, err := t.initMeter(cfg, res)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}
	t.Meter = mp.Meter(InstrumentationName)

	t.Metrics, err = NewMetrics(t.Meter)
	if err != nil {
		_ = t.Shutdown(ctx)
		return nil, err
	}
	return t, nil
}

// Noop returns telemetry that records nothing.
func Noop() *Telemetry {
	t, _ := Init(context.Background(), Config{})
	return t
}

func (t *Telemetry) initTracer(ctx context.Context, cfg Config, res *resource.Resource) (trace.TracerProvider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	switch {
	case cfg.OTLPEndpoint != "":
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.OTLPInsecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)

	case cfg.TraceFile == "-":
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(os.Stdout), stdouttrace.WithPrettyPrint())

	case cfg.TraceFile != "":
		f, ferr := os.Create(cfg.TraceFile)
		if ferr != nil {
			return nil, fmt.Errorf("create trace file: %w", ferr)
		}
		// Registered first so it runs after the provider has flushed.
		t.shutdownFuncs = append(t.shutdownFuncs, func(context.Context) error { return f.Close() })
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(f))

	default:
		return tracenoop.NewTracerProvider(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	t.shutdownFuncs = append(t.shutdownFuncs, tp.Shutdown)
	return tp, nil
}

func (t *Telemetry) initMeter(cfg Config, res *resource.Resource) (metric.MeterProvider, error) {
	switch {
	case cfg.MetricsFile != "":
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		exporter, err := promexporter.New(promexporter.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("create prometheus exporter: %w", err)
		}
		t.registry = reg
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		t.shutdownFuncs = append(t.shutdownFuncs, mp.Shutdown)
		return mp, nil

	case cfg.MetricsStdout:
		w := cfg.MetricsWriter
		if w == nil {
			w = os.Stderr
		}
		exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, fmt.Errorf("create stdout metric exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)),
		)
		t.shutdownFuncs = append(t.shutdownFuncs, mp.Shutdown)
		return mp, nil

	default:
		return metricnoop.NewMeterProvider(), nil
	}
}

// WriteMetrics writes the Prometheus textfile. A no-op unless MetricsFile
// was configured.
func (t *Telemetry) WriteMetrics() error {
	if t.registry == nil || t.metricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(t.metricsFile, t.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Shutdown writes the metrics textfile, then flushes and closes every
// provider in reverse order of creation.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if err := t.WriteMetrics(); err != nil {
		errs = append(errs, err)
	}
	for i := len(t.shutdownFuncs) - 1; i >= 0; i-- {
		if err := t.shutdownFuncs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	t.shutdownFuncs = nil
	t.registry = nil
	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}
	return nil
}
