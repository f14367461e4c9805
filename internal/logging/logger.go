package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// LogLevel represents the logging level
type LogLevel string

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
	FatalLevel LogLevel = "fatal"
)

// Logger holds the zerolog logger instance
type Logger struct {
	logger zerolog.Logger
}

// LogContext holds contextual information for logging
type LogContext struct {
	FilePath string `json:"file_path,omitempty"`
	Status   string `json:"status,omitempty"`
	Worker   int    `json:"worker,omitempty"`
	Attempt  int    `json:"attempt,omitempty"`
	Duration int64  `json:"duration_ms,omitempty"`
	Module   string `json:"module,omitempty"`
}

// NewLogger creates a new logger instance with the specified log level
func NewLogger(logLevel LogLevel, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}

	// Parse log level
	level, err := zerolog.ParseLevel(string(logLevel))
	if err != nil {
		level = zerolog.InfoLevel // Default to info level
	}

	logger := zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Logger()

	return &Logger{
		logger: logger,
	}
}

// NewConsoleLogger creates a logger with human-readable output on stderr
func NewConsoleLogger(logLevel LogLevel) *Logger {
	return NewLogger(logLevel, zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	})
}

// BuildWriter assembles the log output: a console writer, optionally teed
// into a JSON log file when filePath is non-empty. The returned closer is
// nil when no file is involved.
func BuildWriter(filePath string) (io.Writer, io.Closer, error) {
	console := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "2006-01-02 15:04:05",
	}

	if filePath == "" {
		return console, nil, nil
	}

	file, err := OpenLogFile(filePath)
	if err != nil {
		return nil, nil, err
	}

	return zerolog.MultiLevelWriter(console, file), file, nil
}

// OpenLogFile opens a log file for appending, creating parent directories as needed
func OpenLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, nil
}

// Debug starts a debug-level event
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info starts an info-level event
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn starts a warn-level event
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error starts an error-level event
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// Fatal starts a fatal-level event; the event's Msg call exits the process
func (l *Logger) Fatal() *zerolog.Event {
	return l.logger.Fatal()
}

// WithField adds a single field to the logger
func (l *Logger) WithField(key string, value interface{}) *Logger {
	logger := l.logger.With().Interface(key, value).Logger()
	return &Logger{logger: logger}
}

// WithFields adds multiple fields to the logger
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	logCtx := l.logger.With()

	for key, value := range fields {
		logCtx = logCtx.Interface(key, value)
	}

	logger := logCtx.Logger()
	return &Logger{logger: logger}
}

// WithContextFields adds context-specific fields to the logger
func (l *Logger) WithContextFields(ctx LogContext) *Logger {
	logCtx := l.logger.With()

	if ctx.FilePath != "" {
		logCtx = logCtx.Str("file_path", ctx.FilePath)
	}
	if ctx.Status != "" {
		logCtx = logCtx.Str("status", ctx.Status)
	}
	if ctx.Worker != 0 {
		logCtx = logCtx.Int("worker", ctx.Worker)
	}
	if ctx.Attempt != 0 {
		logCtx = logCtx.Int("attempt", ctx.Attempt)
	}
	if ctx.Duration != 0 {
		logCtx = logCtx.Int64("duration_ms", ctx.Duration)
	}
	if ctx.Module != "" {
		logCtx = logCtx.Str("module", ctx.Module)
	}

	logger := logCtx.Logger()
	return &Logger{logger: logger}
}

// SetLogLevel dynamically changes the logging level
func (l *Logger) SetLogLevel(logLevel LogLevel) error {
	level, err := zerolog.ParseLevel(string(logLevel))
	if err != nil {
		return fmt.Errorf("invalid log level: %s", logLevel)
	}

	l.logger = l.logger.Level(level)
	return nil
}
