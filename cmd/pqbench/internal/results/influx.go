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
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/bench"
)

// InfluxMeasurement is the measurement every record is written to.
const InfluxMeasurement = "pqbench_results"

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxSink writes one point per record through the blocking write API.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

func NewInfluxSink(cfg InfluxConfig) (*InfluxSink, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx url, org and bucket are required")
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

func (s *InfluxSink) WriteFamily(ctx context.Context, kind adapter.Kind, family string, records []bench.MetricRecord) error {
	points := make([]*write.Point, 0, len(records))
	for _, rec := range records {
		points = append(points, Point(rec))
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("influx write %s/%s: %w", kind.Dir(), family, err)
	}
	return nil
}

func (s *InfluxSink) Close() {
	s.client.Close()
}

// Point converts a record to a line-protocol point. Times are nanoseconds,
// memory is bytes, throughput is operations per second.
func Point(rec bench.MetricRecord) *write.Point {
	p := influxdb2.NewPointWithMeasurement(InfluxMeasurement).
		AddTag("run_id", rec.RunID).
		AddTag("kind", rec.Variant.Kind.Dir()).
		AddTag("algorithm", rec.Variant.Family).
		AddTag("variant", rec.Variant.Name).
		AddTag("runner", string(rec.Variant.Runner)).
		AddTag("clock", rec.Clock).
		AddField("trials", rec.Trials).
		AddField("public_key_len", rec.PublicKeyLen).
		AddField("secret_key_len", rec.SecretKeyLen).
		AddField("output_len", rec.OutputLen).
		AddField("join_timeouts", rec.JoinTimeouts).
		AddField("transient_samples", rec.TransientSamples).
		SetTime(rec.Timestamp)

	for _, ph := range []bench.PhaseResult{rec.Keygen, rec.Primary, rec.Secondary} {
		prefix := string(ph.Phase) + "_"
		p.AddField(prefix+"time_mean", ph.Time.Mean).
			AddField(prefix+"time_std", ph.Time.StdDev).
			AddField(prefix+"time_max", ph.Time.Max).
			AddField(prefix+"memory_mean", ph.Memory.Mean).
			AddField(prefix+"memory_std", ph.Memory.StdDev).
			AddField(prefix+"memory_max", ph.Memory.Max)
		if ph.CPU != nil {
			p.AddField(prefix+"cpu_mean", ph.CPU.Mean).
				AddField(prefix+"cpu_max", ph.CPU.Max)
		}
		if ph.Throughput != nil {
			p.AddField(prefix+"ops_per_second", ph.Throughput.OpsPerSecond)
		}
	}
	return p
}
