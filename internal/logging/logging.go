// Package logging builds the zerolog loggers shared by the server, the CLI
// and the detector.
//
// Stdout carries the MCP protocol, so every logger built here writes to the
// writer it is given, which is stderr in production.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// EnvLevel is the environment variable holding the default log level.
const EnvLevel = "LSD_MCP_LOG_LEVEL"

// New returns a timestamped JSON logger.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsole returns a human readable logger, for interactive use.
func NewConsole(w io.Writer, level zerolog.Level) zerolog.Logger {
	return New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}, level)
}

// ParseLevel accepts zerolog level names. An empty string means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, errors.Wrapf(err, "invalid log level %q", s)
	}
	return level, nil
}

// LevelFromEnv reads EnvLevel, falling back to info when it is unset or
// invalid.
func LevelFromEnv() zerolog.Level {
	level, err := ParseLevel(os.Getenv(EnvLevel))
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// Component returns a child logger tagged with the component name.
func Component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
