// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Component names attached to every log line of a package.
const (
	ComponentClient      = "product-client"
	ComponentDispatch    = "dispatch"
	ComponentCollector   = "collector"
	ComponentCheckpoint  = "checkpoint"
	ComponentSink        = "sink"
	ComponentSource      = "source"
	ComponentDescription = "description"
	ComponentCLI         = "cli"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Loggers derived with NewLogger
// after Setup inherit its output and level.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.DurationFieldUnit = time.Millisecond

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache hits and misses
//   - Individual retry waits
//   - Worker start/stop, checkpoint writes
//
// Info: Normal operation events
//   - Run start and finish, loaded identifiers
//   - Batch persisted, fetch progress
//   - Loaded checkpoint
//
// Warn: Conditions that don't stop the run
//   - Failed fetch attempts
//   - Exhausted retries (the identifier is recorded as an error)
//   - Cache errors (fallback to direct request)
//
// Error: Conditions that end the run
//   - Sink write failures
//   - Checkpoint load/save failures
//   - Configuration errors
//
// Context Fields:
//   - product_id: identifier being fetched
//   - attempt / max_attempts: retry position
//   - error_class: not_found, client, server, network
//   - batch / total_batches: batch position
//   - fetched / total / progress_pct: progress within a batch
//   - duration: elapsed time
