// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package util

import "time"

// =============================================================================
// Timeout Constants
// =============================================================================

const (
	// DefaultSinkTimeout bounds a single result-sink flush (influx, GCS).
	DefaultSinkTimeout = 2 * time.Minute

	// MinSinkTimeout is the absolute minimum for result-sink flushes.
	MinSinkTimeout = 5 * time.Second
)

// EnforceMinTimeout returns the requested timeout or the minimum, whichever
// is greater.
//
// # Inputs
//
//   - requested: The caller-provided timeout
//   - minimum: The lower bound
//
// # Outputs
//
//   - time.Duration: max(requested, minimum)
//
// # Example
//
//	timeout := util.EnforceMinTimeout(cfg.Timeout, util.MinSinkTimeout)
func EnforceMinTimeout(requested, minimum time.Duration) time.Duration {
	if requested < minimum {
		return minimum
	}
	return requested
}

// EnforceDefaultTimeout returns defaultVal when requested is zero or negative.
//
// # Description
//
// Zero and negative timeouts mean "use the default". The sampler applies
// this to its join timeout so a zero value never turns into an unbounded
// or immediate join.
//
// # Inputs
//
//   - requested: The caller-provided timeout
//   - defaultVal: Value used when requested <= 0
//
// # Outputs
//
//   - time.Duration: requested if positive, otherwise defaultVal
//
// # Assumptions
//
//   - defaultVal is a positive duration
func EnforceDefaultTimeout(requested, defaultVal time.Duration) time.Duration {
	if requested <= 0 {
		return defaultVal
	}
	return requested
}
