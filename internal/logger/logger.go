// Package logger provides logging for marketsync.
//
// It is a thin facade over zerolog. By default only warnings and errors are
// written; the --verbose flag lowers the level to debug so users can follow
// each page fetch and chunk submission. Output is human-readable when stderr
// is a terminal and JSON otherwise (or when LOG_FORMAT=json).
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/term"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	base              = build(os.Stderr, false)
)

// build creates the zerolog logger for a writer and verbosity.
func build(w io.Writer, v bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if v {
		level = zerolog.DebugLevel
	}

	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) && os.Getenv("LOG_FORMAT") != "json" {
		w = zerolog.ConsoleWriter{
			Out:        f,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = build(output, v)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = build(w, verbose)
}

// Logger returns the underlying structured logger.
func Logger() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// Debug logs a debug message. Only written in verbose mode.
func Debug(format string, args ...any) {
	Logger().Debug().Msg(fmt.Sprintf(format, args...))
}

// Section logs a section header. Only written in verbose mode.
func Section(name string) {
	Logger().Debug().Str("section", name).Msg("=== " + name + " ===")
}

// Info logs an informational message. Only written in verbose mode.
func Info(format string, args ...any) {
	Logger().Info().Msg(fmt.Sprintf(format, args...))
}

// Warn logs a warning message.
func Warn(format string, args ...any) {
	Logger().Warn().Msg(fmt.Sprintf(format, args...))
}

// Error logs an error message.
func Error(format string, args ...any) {
	Logger().Error().Msg(fmt.Sprintf(format, args...))
}
