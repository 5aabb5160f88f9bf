// Package logging builds zerolog loggers for the emitter.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the log encoding.
type Format string

const (
	// FormatConsole writes human readable, colorized lines.
	FormatConsole Format = "console"
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = "json"
)

// Options configures New.
type Options struct {
	// Level is the minimum level, parsed by ParseLevel.
	Level string
	// Format is the output encoding. Defaults to FormatConsole.
	Format Format
	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer
	// Component is attached to every entry when set.
	Component string
}

// New returns a logger configured by opts.
func New(opts Options) zerolog.Logger {
	var w io.Writer = opts.Output
	if w == nil {
		w = os.Stderr
	}
	if opts.Format != FormatJSON {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	level := ParseLevel(opts.Level)
	c := zerolog.New(w).Level(level).With().Timestamp()
	if level <= zerolog.DebugLevel {
		c = c.Caller()
	}
	if opts.Component != "" {
		c = c.Str("component", opts.Component)
	}
	return c.Logger()
}

// ParseLevel converts a level name to a zerolog level. Empty or unknown
// names map to info.
func ParseLevel(name string) zerolog.Level {
	if name == "" {
		return zerolog.InfoLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// ValidLevel reports whether name is a level ParseLevel understands.
func ValidLevel(name string) bool {
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	return err == nil && level != zerolog.NoLevel
}
