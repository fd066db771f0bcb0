// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.


// Package ux provides terminal output styling for the pqbench CLI.
package ux

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - headers
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - borders
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	Box      lipgloss.Style
	ErrorBox lipgloss.Style

	TableHeader lipgloss.Style
	TableCell   lipgloss.Style
	TableBorder lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorTealBright).Bold(true),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorTealDeep).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),

	TableHeader: lipgloss.NewStyle().Bold(true).Foreground(ColorTealPrimary).Padding(0, 1),
	TableCell:   lipgloss.NewStyle().Padding(0, 1),
	TableBorder: lipgloss.NewStyle().Foreground(ColorTealDeep),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes styled output to one writer.
type Printer struct {
	w    io.Writer
	mode Mode
}

// NewPrinter returns a Printer for w in the given mode.
func NewPrinter(w io.Writer, mode Mode) *Printer {
	return &Printer{w: w, mode: mode}
}

// Mode returns the printer's output mode.
func (p *Printer) Mode() Mode { return p.mode }

// Title prints a styled title. Omitted in plain mode.
func (p *Printer) Title(text string) {
	if p.mode == ModePlain {
		return
	}
	fmt.Fprintln(p.w, Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.w, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.w, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
}

// Error prints an error message
func (p *Printer) Error(text string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.w, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
}

// Info prints an informational message
func (p *Printer) Info(text string) {
	if p.mode == ModePlain {
		fmt.Fprintln(p.w, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Muted.Render("│"), text)
}

// Box prints text in a rounded box
func (p *Printer) Box(title, content string) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.w, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(p.w, Styles.Box.Render(Styles.Title.Render(title)+"\n"+content))
}

// Table prints rows under headers. Plain mode writes tab-separated lines.
func (p *Printer) Table(headers []string, rows [][]string) {
	if p.mode == ModePlain {
		fmt.Fprintln(p.w, strings.Join(headers, "\t"))
		for _, r := range rows {
			fmt.Fprintln(p.w, strings.Join(r, "\t"))
		}
		return
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(Styles.TableBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return Styles.TableHeader
			}
			return Styles.TableCell
		})
	fmt.Fprintln(p.w, t.Render())
}

// RunSummary is the end-of-run overview.
type RunSummary struct {
	RunID      string
	Records    int
	Failures   int
	SinkErrors int
	Elapsed    time.Duration
	ResultsDir string
}

// Summary prints the run overview line.
func (p *Printer) Summary(s RunSummary) {
	elapsed := s.Elapsed.Round(time.Millisecond)
	if p.mode == ModePlain {
		fmt.Fprintf(p.w, "SUMMARY: run=%s records=%d failures=%d sink_errors=%d elapsed=%s results=%s\n",
			s.RunID, s.Records, s.Failures, s.SinkErrors, elapsed, s.ResultsDir)
		return
	}

	failStyle := Styles.Muted
	if s.Failures > 0 {
		failStyle = Styles.Error
	}
	sinkStyle := Styles.Muted
	if s.SinkErrors > 0 {
		sinkStyle = Styles.Warning
	}
	body := fmt.Sprintf("%s %s  %s %s  %s %s\n%s %s  %s %s",
		Styles.Success.Render(fmt.Sprintf("%d", s.Records)), Styles.Muted.Render("benchmarked"),
		failStyle.Render(fmt.Sprintf("%d", s.Failures)), Styles.Muted.Render("failed"),
		sinkStyle.Render(fmt.Sprintf("%d", s.SinkErrors)), Styles.Muted.Render("sink errors"),
		IconArrow, s.ResultsDir,
		Styles.Muted.Render("in"), elapsed,
	)
	fmt.Fprintln(p.w, Styles.Box.Render(Styles.Title.Render("Run "+s.RunID)+"\n"+body))
}

// FailureRow is one failed variant.
type FailureRow struct {
	Variant string
	Class   string
	Error   string
}

// Failures prints the failed variants. Nothing is printed when rows is
// empty.
func (p *Printer) Failures(rows []FailureRow) {
	if len(rows) == 0 {
		return
	}
	if p.mode == ModePlain {
		for _, r := range rows {
			fmt.Fprintf(p.w, "FAILED\t%s\t%s\t%s\n", r.Variant, r.Class, r.Error)
		}
		return
	}

	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s %s %s\n  %s",
			IconError.Render(), Styles.Bold.Render(r.Variant),
			Styles.Warning.Render("["+r.Class+"]"),
			Styles.Muted.Render(r.Error))
	}
	title := Styles.Error.Bold(true).Render(fmt.Sprintf("%d variant(s) failed", len(rows)))
	fmt.Fprintln(p.w, Styles.ErrorBox.Render(title+"\n"+b.String()))
}
