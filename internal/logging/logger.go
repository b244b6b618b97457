// Package logging builds the zerolog logger shared by the server and CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	maxLogSizeMB  = 10 // Maximum size in MB before rotation
	maxLogBackups = 3  // Number of old files to keep
	maxLogAgeDays = 30 // Maximum age in days before deletion
)

// Options selects where and how logs are written.
type Options struct {
	Level  string // zerolog level name; empty means info
	Format string // "json" or "console"
	File   string // rotated log file; empty writes to Stdout
	Stdout io.Writer
}

// Logger wraps zerolog.Logger with an optional rotating file.
type Logger struct {
	zerolog.Logger
	lumberjack *lumberjack.Logger
	closeOnce  sync.Once
}

// New creates a logger from opts.
func New(opts Options) (*Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}

	var (
		w  io.Writer = opts.Stdout
		lj *lumberjack.Logger
	)
	if w == nil {
		w = os.Stdout
	}
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", filepath.Dir(opts.File), err)
		}
		lj = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    maxLogSizeMB,
			MaxBackups: maxLogBackups,
			MaxAge:     maxLogAgeDays,
		}
		w = lj
	}
	if opts.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: opts.File != ""}
	}

	zl := zerolog.New(w).With().Timestamp().Str("service", "licadvisor").Logger().Level(level)
	return &Logger{Logger: zl, lumberjack: lj}, nil
}

// Close closes the rotating file, if any.
func (l *Logger) Close() error {
	var err error
	l.closeOnce.Do(func() {
		if l.lumberjack != nil {
			err = l.lumberjack.Close()
		}
	})
	return err
}
