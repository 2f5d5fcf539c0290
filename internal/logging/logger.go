// Package logging builds the slog loggers used by the tadoru command.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config represents the logging configuration
type Config struct {
	Level      slog.Level
	Format     string // "json" or "text"
	FilePath   string
	MaxSize    int64 // MB
	MaxBackups int
	Console    io.Writer // nil disables console output
}

// DefaultConfig returns the default logging configuration
func DefaultConfig() *Config {
	return &Config{
		Level:      slog.LevelInfo,
		Format:     "json",
		MaxSize:    100,
		MaxBackups: 5,
		Console:    os.Stderr,
	}
}

// ParseLevel converts a string log level to slog.Level. Unknown values fall
// back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is a slog.Logger that may own a log file.
type Logger struct {
	*slog.Logger
	file *RotatingFile
}

// Close releases the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// New creates a logger writing to the console writer and, when FilePath is
// set, to a size-rotated file.
func New(config Config) (*Logger, error) {
	var writers []io.Writer
	if config.Console != nil {
		writers = append(writers, config.Console)
	}

	l := &Logger{}
	if config.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		file, err := OpenRotatingFile(config.FilePath, config.MaxSize*1024*1024, config.MaxBackups)
		if err != nil {
			return nil, err
		}
		l.file = file
		writers = append(writers, file)
	}

	var out io.Writer
	switch len(writers) {
	case 0:
		out = io.Discard
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	handler, err := newHandler(out, config)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	l.Logger = slog.New(handler)
	return l, nil
}

func newHandler(w io.Writer, config Config) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: config.Level}
	switch strings.ToLower(config.Format) {
	case "", "json":
		return slog.NewJSONHandler(w, opts), nil
	case "text":
		return slog.NewTextHandler(w, opts), nil
	default:
		return nil, errors.New("unsupported log format: " + config.Format)
	}
}
