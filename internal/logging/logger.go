// SPDX-License-Identifier: MPL-2.0

// Package logging builds the structured stderr logger shared by the CLI and
// the workflow services.
package logging

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Options configures a logger.
type Options struct {
	// Verbose enables debug-level output.
	Verbose bool
	// Prefix is prepended to every line (e.g. a subsystem name).
	Prefix string
}

// New creates a logger writing to w. Timestamps are omitted; output is meant
// for an interactive terminal session.
func New(w io.Writer, opts Options) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{
		Prefix:          opts.Prefix,
		ReportTimestamp: false,
	})
	logger.SetStyles(levelStyles())
	if opts.Verbose {
		logger.SetLevel(log.DebugLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return New(io.Discard, Options{})
}

func levelStyles() *log.Styles {
	styles := log.DefaultStyles()

	styles.Levels[log.DebugLevel] = lipgloss.NewStyle().
		SetString("DEBUG").
		Foreground(lipgloss.Color("#9CA3AF"))

	styles.Levels[log.InfoLevel] = lipgloss.NewStyle().
		SetString("INFO").
		Foreground(lipgloss.Color("#3B82F6"))

	styles.Levels[log.WarnLevel] = lipgloss.NewStyle().
		SetString("WARN").
		Bold(true).
		Foreground(lipgloss.Color("#F59E0B"))

	styles.Levels[log.ErrorLevel] = lipgloss.NewStyle().
		SetString("ERROR").
		Bold(true).
		Foreground(lipgloss.Color("#EF4444"))

	return styles
}
