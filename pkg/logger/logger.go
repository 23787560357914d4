// Package logger provides structured logging for the coffeeshop services.
// It wraps logrus so services depend on a single small surface and can be
// constructed with a no-op default when no logger is injected.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config controls the behaviour of a Logger.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
	// Format is "json" or "text". Defaults to text.
	Format string
	// Output defaults to stderr.
	Output io.Writer
}

// Logger is a thin wrapper around a logrus entry carrying a component field.
type Logger struct {
	entry *logrus.Entry
}

// New creates a logger from the given configuration.
func New(component string, cfg Config) *Logger {
	l := logrus.New()

	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stderr)
	}

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return &Logger{entry: l.WithField("component", component)}
}

// NewDefault creates a logger with default settings for the component.
func NewDefault(component string) *Logger {
	return New(component, Config{})
}

// WithField returns a logger with an additional structured field.
func (l *Logger) WithField(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a logger with additional structured fields.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	return &Logger{entry: l.entry.WithFields(fields)}
}

// WithError returns a logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

// Debug logs at debug level.
func (l *Logger) Debug(args ...any) { l.entry.Debug(args...) }

// Debugf logs a formatted message at debug level.
func (l *Logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }

// Info logs at info level.
func (l *Logger) Info(args ...any) { l.entry.Info(args...) }

// Infof logs a formatted message at info level.
func (l *Logger) Infof(format string, args ...any) { l.entry.Infof(format, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(args ...any) { l.entry.Warn(args...) }

// Warnf logs a formatted message at warn level.
func (l *Logger) Warnf(format string, args ...any) { l.entry.Warnf(format, args...) }

// Error logs at error level.
func (l *Logger) Error(args ...any) { l.entry.Error(args...) }

// Errorf logs a formatted message at error level.
func (l *Logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
