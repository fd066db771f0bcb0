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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/pqbench/cmd/pqbench/config"
)

func newValidateCmd(g *globalFlags) *cobra.Command {
	var printCfg bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the settings file and both suites without running anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			run, err := config.Resolve(cfg)
			if err != nil {
				return err
			}

			p := g.printer(cmd)
			for _, s := range []*config.Suite{run.KEM, run.Sign} {
				if s == nil {
					continue
				}
				p.Success(fmt.Sprintf("%s suite %s: %d families, %d variants", s.Kind, s.Source, len(s.Families), s.Len()))
			}

			if printCfg {
				out, err := cfg.Marshal()
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&printCfg, "print", false, "print the effective settings as YAML")
	return cmd
}
