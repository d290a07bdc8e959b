// Package output renders repository results for the command line, either as
// indented JSON or as human-readable text.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Format selects how results are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat maps a flag value to a Format. Empty means text.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FormatText):
		return FormatText, nil
	case string(FormatJSON):
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteJSON writes v as pretty-printed JSON followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result to JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON output: %w", err)
	}
	_, err = w.Write([]byte("\n"))
	return err
}

// Write renders v in the given format. Text rendering is available for the
// repository result types; anything else falls back to fmt's default form.
func Write(w io.Writer, format Format, v any) error {
	if format == FormatJSON {
		return WriteJSON(w, v)
	}
	return WriteText(w, v)
}
