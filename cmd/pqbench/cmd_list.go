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
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/pkg/ux"
)

func newListCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "list [kem|sign]",
		Short:     "List the variant names each runner accepts",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"kem", "sign"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p := g.printer(cmd)
			kinds := []adapter.Kind{adapter.KindKEM, adapter.KindDSS}
			if len(args) == 1 {
				if args[0] == "kem" {
					kinds = kinds[:1]
				} else {
					kinds = kinds[1:]
				}
			}
			for _, kind := range kinds {
				listKind(p, kind)
			}
			return nil
		},
	}
}

func listKind(p *ux.Printer, kind adapter.Kind) {
	output := "signature"
	if kind == adapter.KindKEM {
		output = "ciphertext"
	}
	p.Title(fmt.Sprintf("%s schemes (runner %s)", kind, adapter.RunnerOQS))

	schemes := adapter.ListSchemes(kind)
	rows := make([][]string, 0, len(schemes))
	for _, s := range schemes {
		rows = append(rows, []string{
			s.Name,
			strconv.Itoa(s.PublicKeySize),
			strconv.Itoa(s.PrivateKeySize),
			strconv.Itoa(s.OutputSize),
		})
	}
	p.Table([]string{"variant", "public key", "secret key", output}, rows)

	p.Info(fmt.Sprintf("runner %s: any modulus of at least %d bits", adapter.RunnerRSA, adapter.MinRSABits))
	if kind == adapter.KindDSS {
		p.Info(fmt.Sprintf("runner %s: %s", adapter.RunnerECC, strings.Join(adapter.CurveNames(), ", ")))
	}
}
