// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package util provides foundational utilities for pqbench.
//
// This package has no dependencies on other internal packages, making it a
// leaf in the dependency graph.
//
// # Overview
//
//   - Timeout Management: default and minimum durations for bounded waits
//   - Sample Window: thread-safe bounded buffer that keeps the newest items
//   - Progress Indicators: terminal spinner for the batch progress line
//   - Goroutine Safety: panic recovery for background goroutines
//
// # Thread Safety
//
//   - [Window] is fully thread-safe (protected by mutex)
//   - [Spinner] is thread-safe for Start/Stop/SetMessage
//
// # Key Types
//
// Sample window:
//
//	w := util.NewWindow[float64](10)
//	w.Push(rss)
//	peak := w.ToSlice()
//
// Goroutine safety:
//
//	util.SafeGo(func() {
//	    loop(ctx)
//	}, func(r util.SafeGoResult) {
//	    logger.Error("sampler panic", "panic", r.PanicValue)
//	})
package util
