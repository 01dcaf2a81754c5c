package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
)

// New returns a JSON logger writing to stderr, or to cfg.File when set. A file
// path without an extension gets a date suffix and ".log". The returned closer
// releases the log file.
func New(cfg config.LogConfig) (zerolog.Logger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var target io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if cfg.File != "" {
		path := cfg.File
		if filepath.Ext(path) == "" {
			path = path + time.Now().Format("-2006-01-02") + ".log"
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o664)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("opening log file: %w", err)
		}
		target, closer = f, f
	}

	return NewWithWriter(target, level), closer, nil
}

// NewWithWriter returns a timestamped JSON logger on w.
func NewWithWriter(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
