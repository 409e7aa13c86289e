// Package logger provides structured logging utilities for the application.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log zerolog.Logger

// Init initializes the global logger. Level is one of debug, info,
// warn, error; anything else falls back to info. When logFile is set,
// output is duplicated to it.
func Init(level, logFile string) error {
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}}

	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return err
		}
		writers = append(writers, file)
	}

	log = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(parseLevel(level)).
		With().
		Timestamp().
		Caller().
		Logger()

	return nil
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Debug logs a debug message.
func Debug() *zerolog.Event {
	return log.Debug()
}

// Info logs an info message.
func Info() *zerolog.Event {
	return log.Info()
}

// Warn logs a warning message.
func Warn() *zerolog.Event {
	return log.Warn()
}

// Error logs an error message.
func Error() *zerolog.Event {
	return log.Error()
}

// Fatal logs a fatal message and exits.
func Fatal() *zerolog.Event {
	return log.Fatal()
}
