// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Options selects the log level and outputs.
type Options struct {
	Level slog.Level
	// File, when set, receives JSON lines in addition to stderr.
	File string
	// JSON switches stderr output from text to JSON lines.
	JSON bool
}

// Setup builds a logger writing to stderr and, optionally, a log file.
// The cleanup function closes the file handle.
func Setup(stderr io.Writer, opts Options) (*slog.Logger, func(), error) {
	hopts := &slog.HandlerOptions{Level: opts.Level}
	if opts.File == "" {
		if opts.JSON {
			return slog.New(slog.NewJSONHandler(stderr, hopts)), func() {}, nil
		}
		return slog.New(slog.NewTextHandler(stderr, hopts)), func() {}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	w := io.MultiWriter(stderr, f)
	logger := slog.New(slog.NewJSONHandler(w, hopts))
	cleanup := func() {
		_ = f.Close()
	}
	return logger, cleanup, nil
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
