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

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

// =============================================================================
// ProgressIndicator Interface
// =============================================================================

// ProgressIndicator reports batch progress to the user.
//
// # Description
//
// The batch calls SetMessage once per variant ("Testing X, Variant i/n (v)").
// A Spinner animates the line on a terminal; a LineProgress prints one line
// per message when output is redirected.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use.
type ProgressIndicator interface {
	// Start begins displaying progress.
	Start()

	// SetMessage replaces the current progress message.
	SetMessage(message string)

	// Stop ends the display. Safe to call more than once.
	Stop()
}

// NewProgress picks the indicator for the output.
//
// # Inputs
//
//   - w: Destination (usually os.Stderr)
//   - interactive: true when w is a terminal
//
// # Outputs
//
//   - ProgressIndicator: Spinner when interactive, LineProgress otherwise
func NewProgress(w io.Writer, interactive bool) ProgressIndicator {
	if interactive {
		return NewSpinner(SpinnerConfig{Writer: w, HideCursor: true, ClearOnStop: true})
	}
	return &LineProgress{w: w}
}

// =============================================================================
// LineProgress
// =============================================================================

// LineProgress writes every message on its own line.
type LineProgress struct {
	w  io.Writer
	mu sync.Mutex
}

var _ ProgressIndicator = (*LineProgress)(nil)

// Start is a no-op.
func (p *LineProgress) Start() {}

// SetMessage prints the message followed by a newline.
func (p *LineProgress) SetMessage(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintln(p.w, message); err != nil {
		slog.Warn("failed to write progress", "error", err)
	}
}

// Stop is a no-op.
func (p *LineProgress) Stop() {}

// =============================================================================
// Spinner
// =============================================================================

// SpinnerConfig configures spinner appearance.
type SpinnerConfig struct {
	// Message is the text displayed next to the spinner.
	Message string

	// Interval is the time between frame updates.
	// Default: 250ms
	Interval time.Duration

	// Frames are the animation characters.
	// Default: Braille dots
	Frames []string

	// Writer is where output is written.
	// Default: os.Stderr
	Writer io.Writer

	// HideCursor hides the terminal cursor while spinning.
	HideCursor bool

	// ClearOnStop clears the spinner line when stopped.
	ClearOnStop bool
}

// Spinner animates a single progress line.
//
// The default interval is deliberately slow: the spinner shares the
// process with the code under measurement.
type Spinner struct {
	config  SpinnerConfig
	frame   int
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	writeMu sync.Mutex
}

var _ ProgressIndicator = (*Spinner)(nil)

// NewSpinner creates a spinner, filling defaults for unset fields.
func NewSpinner(config SpinnerConfig) *Spinner {
	if config.Interval <= 0 {
		config.Interval = 250 * time.Millisecond
	}
	if len(config.Frames) == 0 {
		config.Frames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	}
	if config.Writer == nil {
		config.Writer = os.Stderr
	}
	return &Spinner{config: config}
}

// Start begins the animation. Calling Start on a running spinner is a no-op.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	if s.config.HideCursor {
		s.write("\033[?25l")
	}
	go s.spin()
}

// Stop halts the animation and waits for the render goroutine to exit.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	if s.config.ClearOnStop {
		s.write("\r\033[K")
	}
	if s.config.HideCursor {
		s.write("\033[?25h")
	}
}

// SetMessage replaces the text and redraws immediately.
func (s *Spinner) SetMessage(message string) {
	s.mu.Lock()
	s.config.Message = message
	running := s.running
	s.mu.Unlock()

	if running {
		s.render()
	}
}

// IsRunning reports whether the spinner is animating.
func (s *Spinner) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Spinner) spin() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.render()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Spinner) render() {
	s.mu.Lock()
	frame := s.config.Frames[s.frame%len(s.config.Frames)]
	message := s.config.Message
	s.frame++
	s.mu.Unlock()

	s.write(fmt.Sprintf("\r\033[K%s %s", frame, message))
}

func (s *Spinner) write(text string) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprint(s.config.Writer, text); err != nil {
		slog.Warn("failed to write spinner output", "error", err)
	}
}
