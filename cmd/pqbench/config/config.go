// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads pqbench run settings and algorithm suites.
//
// Two kinds of file are read, both YAML:
//
//   - The run settings file (pqbench.yaml, optional): engine, results,
//     telemetry and logging settings plus the paths of the suite files.
//   - Suite files, one for KEMs and one for signature schemes: a list of
//     algorithm families, each with a runner and its variants.
//
// Defaults are applied first and file values override them; the CLI then
// overrides the file. Suites built into the binary are used when no suite
// path is set. Every problem is reported as a *ConfigError before any
// benchmark starts.
package config

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	DefaultTrials           = 500
	DefaultThroughputBudget = 10 * time.Second
	DefaultSamplePeriod     = 200 * time.Microsecond
	DefaultSampleWindow     = 10
	DefaultJoinTimeout      = 50 * time.Millisecond
	DefaultClock            = "cpu"
	DefaultMessage          = "pqbench canonical message"
	DefaultResultsDir       = "results"
	DefaultSinkTimeout      = 2 * time.Minute
	DefaultInfluxTokenEnv   = "PQBENCH_INFLUX_TOKEN"
	DefaultLogLevel         = "info"
)

// =============================================================================
// Settings Types
// =============================================================================

// Config is the run settings file.
type Config struct {
	Suites    SuitesConfig    `yaml:"suites"`
	Engine    EngineConfig    `yaml:"engine"`
	Results   ResultsConfig   `yaml:"results"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SuitesConfig names the suite files. Empty paths select the built-in
// suites.
type SuitesConfig struct {
	KEM  string `yaml:"kem"`
	Sign string `yaml:"sign"`

	// Only restricts the run to one kind ("kem" or "sign").
	Only string `yaml:"only,omitempty" validate:"omitempty,oneof=kem sign"`
}

// EngineConfig tunes the measurement engine.
type EngineConfig struct {
	Trials           int           `yaml:"trials" validate:"gte=1"`
	ThroughputBudget time.Duration `yaml:"throughput_budget" validate:"gt=0"`
	SamplePeriod     time.Duration `yaml:"sample_period" validate:"gt=0"`
	SampleWindow     int           `yaml:"sample_window" validate:"gte=1"`
	JoinTimeout      time.Duration `yaml:"join_timeout" validate:"gt=0"`
	Clock            string        `yaml:"clock" validate:"oneof=cpu wall"`
	SampleCPU        bool          `yaml:"sample_cpu"`
	Message          string        `yaml:"message" validate:"required"`
}

// ResultsConfig selects the result sinks. The CSV sink is always on.
type ResultsConfig struct {
	Dir     string       `yaml:"dir" validate:"required"`
	History string       `yaml:"history"`
	Influx  InfluxConfig `yaml:"influx"`
	GCS     GCSConfig    `yaml:"gcs"`

	// SinkTimeout bounds each family write across all sinks and the GCS
	// upload. Values under 5s are raised to 5s.
	SinkTimeout time.Duration `yaml:"sink_timeout" validate:"gt=0"`
}

// InfluxConfig enables the InfluxDB sink when URL is set. The token is read
// from the environment variable named by TokenEnv, never from the file.
type InfluxConfig struct {
	URL      string `yaml:"url" validate:"omitempty,url"`
	TokenEnv string `yaml:"token_env"`
	Org      string `yaml:"org" validate:"required_with=URL"`
	Bucket   string `yaml:"bucket" validate:"required_with=URL"`
}

// Enabled reports whether the InfluxDB sink is configured.
func (c InfluxConfig) Enabled() bool { return c.URL != "" }

// GCSConfig enables the results upload when Bucket is set.
type GCSConfig struct {
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Credentials string `yaml:"credentials"`
}

// Enabled reports whether results are uploaded after the run.
func (c GCSConfig) Enabled() bool { return c.Bucket != "" }

type TelemetryConfig struct {
	TraceFile     string `yaml:"trace_file"`
	OTLPEndpoint  string `yaml:"otlp_endpoint"`
	OTLPInsecure  bool   `yaml:"otlp_insecure"`
	MetricsFile   string `yaml:"metrics_file"`
	MetricsStdout bool   `yaml:"metrics_stdout"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn warning error"`
	JSON  bool   `yaml:"json"`
	Dir   string `yaml:"dir"`
}

// Default returns the settings used when no file is given.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Trials:           DefaultTrials,
			ThroughputBudget: DefaultThroughputBudget,
			SamplePeriod:     DefaultSamplePeriod,
			SampleWindow:     DefaultSampleWindow,
			JoinTimeout:      DefaultJoinTimeout,
			Clock:            DefaultClock,
			Message:          DefaultMessage,
		},
		Results: ResultsConfig{
			Dir:         DefaultResultsDir,
			SinkTimeout: DefaultSinkTimeout,
			Influx: InfluxConfig{
				TokenEnv: DefaultInfluxTokenEnv,
			},
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// RunKEM reports whether the KEM suite is part of the run.
func (c *Config) RunKEM() bool { return c.Suites.Only != "sign" }

// RunSign reports whether the signature suite is part of the run.
func (c *Config) RunSign() bool { return c.Suites.Only != "kem" }

// Validate checks the settings against their validate tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fromValidation("", err)
	}
	return nil
}

// =============================================================================
// Shared Validator Instance
// =============================================================================

// validate reports field names by their YAML keys.
var validate *validator.Validate

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(yamlName)
}

func yamlName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return f.Name
	default:
		return name
	}
}
