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
	"strconv"

	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/adapter"
	"github.com/AleutianAI/pqbench/cmd/pqbench/internal/bench"
)

// Column names shared by every CSV. Downstream plotting reads them by name,
// so they never change. Signature CSVs carry the ciphertext column too,
// holding the signature length.
const (
	ColPublicKeyLength  = "Public Key length"
	ColSecretKeyLength  = "Secret Key length"
	ColCiphertextLength = "Ciphertext length"
)

// phaseLabel is how a phase is spelled inside time, memory and CPU column
// names. Signing shares the encapsulation label: the plots of both kinds
// read "Mean Encapsulation Time" for the primary operation.
var phaseLabel = map[bench.Phase]string{
	bench.PhaseKeygen:        "Keygen",
	bench.PhaseEncapsulation: "Encapsulation",
	bench.PhaseDecapsulation: "Decapsulation",
	bench.PhaseSignature:     "Encapsulation",
	bench.PhaseVerification:  "Verification",
}

// rateLabel is the plural used by the throughput column.
var rateLabel = map[bench.Phase]string{
	bench.PhaseEncapsulation: "Encapsulations",
	bench.PhaseDecapsulation: "Decapsulations",
	bench.PhaseSignature:     "Signatures",
	bench.PhaseVerification:  "Verifications",
}

// TimeColumns returns the mean, standard deviation and maximum time
// columns of a phase.
func TimeColumns(p bench.Phase) []string {
	l := phaseLabel[p]
	return []string{"Mean " + l + " Time", l + " Time Standard Deviation", "Maximum " + l + " Time"}
}

// MemoryColumns returns the memory columns of a phase.
func MemoryColumns(p bench.Phase) []string {
	l := phaseLabel[p]
	return []string{"Mean " + l + " Memory Usage", l + " Memory Usage Standard Deviation", "Maximum " + l + " Memory Usage"}
}

// CPUColumns returns the optional CPU columns of a phase.
func CPUColumns(p bench.Phase) []string {
	l := phaseLabel[p]
	return []string{"Mean " + l + " CPU Usage", "Maximum " + l + " CPU Usage"}
}

// RateColumn returns the throughput column of a phase.
func RateColumn(p bench.Phase) string {
	return rateLabel[p] + " Per Second"
}

// Header returns the CSV header of kind. The first cell is empty: it heads
// the index column of variant names.
func Header(kind adapter.Kind, cpu bool) []string {
	primary, secondary := bench.Phases(kind)

	h := []string{""}
	h = append(h, TimeColumns(bench.PhaseKeygen)...)
	h = append(h, MemoryColumns(bench.PhaseKeygen)...)
	for _, p := range []bench.Phase{primary, secondary} {
		h = append(h, TimeColumns(p)...)
		h = append(h, MemoryColumns(p)...)
		h = append(h, RateColumn(p))
	}
	h = append(h, ColPublicKeyLength, ColSecretKeyLength, ColCiphertextLength)
	if cpu {
		for _, p := range []bench.Phase{bench.PhaseKeygen, primary, secondary} {
			h = append(h, CPUColumns(p)...)
		}
	}
	return h
}

// Row renders rec in Header order.
func Row(rec bench.MetricRecord, cpu bool) []string {
	row := []string{rec.Variant.Name}
	row = appendStats(row, rec.Keygen.Time)
	row = appendStats(row, rec.Keygen.Memory)
	for _, p := range []bench.PhaseResult{rec.Primary, rec.Secondary} {
		row = appendStats(row, p.Time)
		row = appendStats(row, p.Memory)
		row = append(row, formatFloat(p.OpsPerSecond()))
	}
	row = append(row,
		strconv.Itoa(rec.PublicKeyLen),
		strconv.Itoa(rec.SecretKeyLen),
		strconv.Itoa(rec.OutputLen),
	)
	if cpu {
		for _, p := range []bench.PhaseResult{rec.Keygen, rec.Primary, rec.Secondary} {
			var s bench.PhaseStats
			if p.CPU != nil {
				s = *p.CPU
			}
			row = append(row, formatFloat(s.Mean), formatFloat(s.Max))
		}
	}
	return row
}

func appendStats(row []string, s bench.PhaseStats) []string {
	return append(row, formatFloat(s.Mean), formatFloat(s.StdDev), formatFloat(s.Max))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
