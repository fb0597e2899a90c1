// SPDX-License-Identifier: MPL-2.0

// Package logging builds the charmbracelet/log logger shared by modgate's
// commands and libraries.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"

	FormatText   = "text"
	FormatJSON   = "json"
	FormatLogfmt = "logfmt"
)

// Options configures New.
type Options struct {
	// Level is one of the Level* constants. Empty selects info.
	Level string
	// Format is one of the Format* constants. Empty selects text.
	Format string
	// Prefix is printed before every message.
	Prefix string
	// Timestamps adds a time field to each entry.
	Timestamps bool
}

// New creates a logger writing to w. Unknown levels or formats are errors
// so that a typo in the config surfaces at startup.
func New(w io.Writer, opts Options) (*log.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	formatter, err := parseFormat(opts.Format)
	if err != nil {
		return nil, err
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamps,
	}), nil
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ParseLevel maps a level name to a log.Level. The empty string is info.
func ParseLevel(s string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", LevelInfo:
		return log.InfoLevel, nil
	case LevelDebug:
		return log.DebugLevel, nil
	case LevelWarn, "warning":
		return log.WarnLevel, nil
	case LevelError:
		return log.ErrorLevel, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// IsFormat reports whether s names a supported format. The empty string is
// text.
func IsFormat(s string) bool {
	_, err := parseFormat(s)
	return err == nil
}

func parseFormat(s string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", FormatText:
		return log.TextFormatter, nil
	case FormatJSON:
		return log.JSONFormatter, nil
	case FormatLogfmt:
		return log.LogfmtFormatter, nil
	}
	return 0, fmt.Errorf("unknown log format %q", s)
}
