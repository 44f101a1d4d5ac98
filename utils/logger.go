package utils

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// String returns the string representation of the log level
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel maps a config value such as "debug" or "WARN" to a LogLevel
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG, nil
	case "", "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("unknown log level %q", s)
	}
}

func (l LogLevel) charm() log.Level {
	switch l {
	case DEBUG:
		return log.DebugLevel
	case WARN:
		return log.WarnLevel
	case ERROR:
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}

// Logger is a levelled logger with structured fields
type Logger struct {
	base  *log.Logger
	level LogLevel
}

// NewLogger creates a new logger writing to stderr with the specified level
func NewLogger(level LogLevel) *Logger {
	return NewLoggerWithWriter(os.Stderr, level)
}

// NewLoggerWithWriter creates a logger writing to w
func NewLoggerWithWriter(w io.Writer, level LogLevel) *Logger {
	base := log.NewWithOptions(w, log.Options{
		Level:           level.charm(),
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	return &Logger{base: base, level: level}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.base.Debugf(format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.base.Infof(format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.base.Warnf(format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.base.Errorf(format, v...)
}

// WithFields returns a new logger with the specified fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	keyvals := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		keyvals = append(keyvals, k, v)
	}
	return &Logger{base: l.base.With(keyvals...), level: l.level}
}

// WithField returns a new logger with a single field added
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{base: l.base.With(key, value), level: l.level}
}

// SetLevel changes the log level
func (l *Logger) SetLevel(level LogLevel) {
	l.level = level
	l.base.SetLevel(level.charm())
}

// Level returns the current log level
func (l *Logger) Level() LogLevel {
	return l.level
}

// SetOutput redirects the logger
func (l *Logger) SetOutput(w io.Writer) {
	l.base.SetOutput(w)
}

// Global logger instance
var Log = NewLogger(INFO)
