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
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/pqbench/cmd/pqbench/config"
	"github.com/AleutianAI/pqbench/pkg/logging"
	"github.com/AleutianAI/pqbench/pkg/ux"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	output     string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "pqbench",
		Short: "Benchmark post-quantum and classical KEMs and signature schemes",
		Long: `pqbench measures key generation, encapsulation/decapsulation and
signing/verification of every configured variant: CPU time, resident
memory growth and throughput. Results are written as one CSV per
algorithm family under results/<kem|sign>/.`,
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "settings file (default ./"+config.DefaultFile+" when present)")
	pf.StringVar(&g.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&g.output, "output", "", "output style: rich or plain (default rich on a terminal)")

	root.AddCommand(
		newRunCmd(g),
		newListCmd(g),
		newHistoryCmd(g),
		newValidateCmd(g),
	)
	return root
}

// printer returns the ux printer for the command's stdout.
func (g *globalFlags) printer(cmd *cobra.Command) *ux.Printer {
	w := cmd.OutOrStdout()
	mode := ux.DetectMode(w)
	if g.output != "" {
		mode = ux.ParseMode(g.output)
	}
	return ux.NewPrinter(w, mode)
}

// loadConfig reads the settings file and applies the persistent flags.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Logging.Level = g.logLevel
	}
	return cfg, nil
}

// newLogger builds the run logger. cfg must have passed validation.
func newLogger(cfg *config.Config, w io.Writer) *logging.Logger {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "pqbench",
		JSON:    cfg.Logging.JSON,
		Output:  w,
	})
}
