// Package log provides the logging infrastructure shared by all docent
// components.
//
// This package provides:
//   - A type alias for *slog.Logger to use as a DI dependency
//   - Factory functions to create configured loggers
//   - A Nop logger for tests
//
// Loggers are injected, never global: each component receives one via its
// constructor and may add context with logger.With().
//
// Usage:
//
//	logger := log.New(log.Config{Level: slog.LevelDebug})
//	cascade := retrieval.NewCascade(vectorIdx, keywordIdx, policy, logger.With("component", "cascade"))
//
//	// In tests, use Nop or capture output to a buffer
//	testLogger := log.NewNop()
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a type alias for *slog.Logger.
// Using the standard library type directly keeps full compatibility with the
// slog ecosystem and avoids a custom interface definition.
type Logger = *slog.Logger

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON format output. Default: false (text format)
	JSON bool

	// AddSource adds source file information to log entries. Default: false
	AddSource bool
}

// New creates a new logger with the given configuration.
// Output is written to os.Stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a new logger that writes to the specified writer.
// Useful for tests that need to inspect log output.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards all output.
//
// Intended for tests only. Production code should always use New() or
// NewWithWriter() so failures stay observable.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
