// Package logging builds the zerolog loggers of the command line tool and
// the HTTP server.
package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Formats.
const (
	Console = "console"
	JSON    = "json"
)

// New creates a logger writing to w at the given level ("debug", "info"...)
// in the given format ("console" or "json").
func New(level, format string, w io.Writer) (zerolog.Logger, error) {
	lvl := zerolog.InfoLevel
	if level != "" {
		var err error
		lvl, err = zerolog.ParseLevel(strings.ToLower(level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	switch strings.ToLower(format) {
	case "", Console:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	case JSON:
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q, want %q or %q", format, Console, JSON)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}
