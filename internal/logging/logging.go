// Package logging builds the structured loggers used by ledgit. It wraps
// log/slog and maps the CLI verbosity names onto slog levels.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Verbosity names accepted by New.
const (
	VerbosityQuiet = "quiet"
	VerbosityError = "error"
	VerbosityWarn  = "warn"
	VerbosityInfo  = "info"
	VerbosityDebug = "debug"
)

// levelQuiet is above every level slog emits, so nothing is logged.
const levelQuiet = slog.Level(12)

// Format selects the handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseLevel converts a verbosity name to a slog level. Names are case
// insensitive; an empty name means info.
func ParseLevel(verbosity string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(verbosity)) {
	case VerbosityQuiet:
		return levelQuiet, nil
	case VerbosityError:
		return slog.LevelError, nil
	case VerbosityWarn, "warning":
		return slog.LevelWarn, nil
	case VerbosityInfo, "":
		return slog.LevelInfo, nil
	case VerbosityDebug:
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown verbosity %q: expected quiet, error, warn, info, or debug", verbosity)
	}
}

// New returns a logger writing to w at the given verbosity.
func New(w io.Writer, verbosity string, format Format) (*slog.Logger, error) {
	level, err := ParseLevel(verbosity)
	if err != nil {
		return nil, err
	}
	if level == levelQuiet {
		return Discard(), nil
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	case FormatText, "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return slog.New(handler), nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
