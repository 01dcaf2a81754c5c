package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/books"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/logging"
)

// openBooks connects the services to the configured database. Tests swap
// it for an in-memory store.
var openBooks = books.Open

// session is a loaded config with its logger.
type session struct {
	cfg    *config.Config
	log    zerolog.Logger
	closer io.Closer
}

func newSession(opts *rootOptions) (*session, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", opts.configPath, err)
	}
	log, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	return &session{cfg: cfg, log: log, closer: closer}, nil
}

func (s *session) Close() error { return s.closer.Close() }

// withBooks runs fn against the configured books.
func withBooks(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, b *books.Books) error) error {
	s, err := newSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	b, closeDB, err := openBooks(s.cfg, s.log)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(cmd.Context(), b)
}

// output returns the file named by path, or the command's stdout when path
// is empty.
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}
