// Package log provides structured logging with key/value pairs on top of
// zerolog. Call Setup once at startup before using the level functions.
package log

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

// Setup initializes the global logger. When verbose is true, debug
// messages are emitted as well.
func Setup(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().
		Logger()
}

// Debug logs a debug message with optional key/value pairs
func Debug(msg string, kv ...any) {
	emit(logger.Debug(), msg, kv)
}

// Info logs an informational message with optional key/value pairs
func Info(msg string, kv ...any) {
	emit(logger.Info(), msg, kv)
}

// Warn logs a warning message with optional key/value pairs
func Warn(msg string, kv ...any) {
	emit(logger.Warn(), msg, kv)
}

// Error logs an error message with optional key/value pairs
func Error(msg string, kv ...any) {
	emit(logger.Error(), msg, kv)
}

func emit(e *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}
