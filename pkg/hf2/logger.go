package hf2

import (
	"github.com/umi-eng/hftwo/pkg/internal/logger"
)

// Logger is the logging interface the engines report through.
// Pass nil to any constructor to disable logging.
type Logger = logger.Logger

// LogLevel represents logging level
type LogLevel int

const (
	// LevelDebug shows all log messages (most verbose)
	LevelDebug LogLevel = iota
	// LevelInfo shows info, warn, and error messages (default)
	LevelInfo
	// LevelWarn shows warn and error messages
	LevelWarn
	// LevelError shows only error messages
	LevelError
)

// NewLogger creates a logger writing to stderr at the given level.
// Diagnostics go to stderr so a host forwarding device serial output to
// stdout keeps the two streams separate.
func NewLogger(level LogLevel) Logger {
	return logger.NewDefaultLogger(logger.Level(level))
}

// SetLogLevel sets the global default logging level
func SetLogLevel(level LogLevel) {
	logger.SetDefault(logger.NewDefaultLogger(logger.Level(level)))
}
