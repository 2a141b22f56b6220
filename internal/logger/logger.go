// Package logger builds the zerolog loggers used by the command-line tools.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Options selects the level, format and destination of a logger.
type Options struct {
	// Level is a zerolog level name such as "debug" or "info".
	Level string
	// Format is "console" for human-readable output or "json".
	Format string
	// Out defaults to os.Stderr.
	Out io.Writer
}

// New returns a timestamped logger configured by opts.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var writer io.Writer
	switch strings.ToLower(opts.Format) {
	case "", "console":
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	case "json":
		writer = out
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", opts.Format)
	}

	return zerolog.New(writer).
		Level(level).
		With().
		Timestamp().
		Logger(), nil
}

// Component returns a child logger tagged with a component name.
func Component(log zerolog.Logger, name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
