// Package logger defines the structured logging interface used by the go-mtp40f packages
// and a log/slog based implementation.
//
// Every log call takes a message followed by alternating keys and values:
//
//	l.Warn("mtp40f: read timeout", "expected", 14, "got", 3)
//
// Applications can plug in their own logging framework by implementing Logger and
// passing it with mtp40f.WithLogger.
package logger

import (
	"fmt"
	"strings"
)

// Level is a logging severity level.
type Level int8

const (
	// DebugLevel logs frame level detail, usually disabled in production.
	DebugLevel Level = iota - 1
	// InfoLevel is the default logging priority.
	InfoLevel
	// WarnLevel logs failed transactions and gate warnings.
	WarnLevel
	// ErrorLevel logs failures that need attention.
	ErrorLevel
	// FatalLevel logs a message, then calls os.Exit(1).
	FatalLevel
)

// String returns the lower case name of the level.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	case FatalLevel:
		return "fatal"
	default:
		return fmt.Sprintf("Level(%d)", int8(l))
	}
}

// ParseLevel parses a level name as used in configuration files.
// "warning" is accepted as an alias of "warn".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, fmt.Errorf("logger: unknown level %q", s)
	}
}

// Logger is the logging interface used throughout go-mtp40f.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Fatal logs at FatalLevel and then calls os.Exit(1).
	Fatal(msg string, keysAndValues ...any)
	// With returns a child logger carrying the given key-values on every entry.
	// The parent is not affected.
	With(keyValues ...any) Logger
	Level() Level
	SetLevel(level Level)
}
