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
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/pqbench/cmd/pqbench/config"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/bench"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/results"
	"github.com/AleutianAI/pqbench/pkg/logging"
	"github.com/AleutianAI/pqbench/pkg/ux"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var dir, runID string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored runs, or the records of one run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("history") {
				cfg.Results.History = dir
			}
			if cfg.Results.History == "" {
				return config.NewConfigError("results.history", "", errors.New("no history store configured; pass --history"))
			}

			h, err := results.OpenHistory(results.HistoryConfig{
				Path:   cfg.Results.History,
				Logger: logging.Nop(),
			})
			if err != nil {
				return err
			}
			defer h.Close()

			p := g.printer(cmd)
			if runID == "" {
				runs, err := h.Runs(cmd.Context())
				if err != nil {
					return err
				}
				printRuns(p, runs)
				return nil
			}
			if _, err := uuid.Parse(runID); err != nil {
				return config.NewConfigError("run", runID, err)
			}
			recs, err := h.Records(cmd.Context(), runID)
			if err != nil {
				return err
			}
			printRecords(p, runID, recs)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "history", "", "BadgerDB history directory")
	cmd.Flags().StringVar(&runID, "run", "", "show the records of this run")
	return cmd
}

func printRuns(p *ux.Printer, runs []results.RunSummary) {
	if len(runs) == 0 {
		p.Info("no runs stored")
		return
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{
			r.RunID,
			r.Started.Local().Format(time.DateTime),
			r.Finished.Sub(r.Started).Round(time.Second).String(),
			strconv.Itoa(r.Records),
			strconv.Itoa(len(r.Failures)),
		})
	}
	p.Table([]string{"run", "started", "elapsed", "records", "failures"}, rows)
}

func printRecords(p *ux.Printer, runID string, recs []bench.MetricRecord) {
	p.Title("Run " + runID)
	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		primary, secondary := bench.Phases(rec.Variant.Kind)
		rows = append(rows, []string{
			rec.Variant.String(),
			formatNanos(rec.Keygen.Time.Mean),
			fmt.Sprintf("%s %s", primary, formatNanos(rec.Primary.Time.Mean)),
			fmt.Sprintf("%s %s", secondary, formatNanos(rec.Secondary.Time.Mean)),
			fmt.Sprintf("%.0f/s", rec.Primary.OpsPerSecond()),
			fmt.Sprintf("%.0f/s", rec.Secondary.OpsPerSecond()),
		})
	}
	p.Table([]string{"variant", "keygen", "primary", "secondary", "primary rate", "secondary rate"}, rows)
}

// formatNanos renders a mean in nanoseconds as a duration.
func formatNanos(ns float64) string {
	d := time.Duration(ns)
	if d > time.Millisecond {
		d = d.Round(time.Microsecond)
	}
	return d.String()
}
