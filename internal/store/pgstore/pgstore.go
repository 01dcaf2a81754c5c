// Package pgstore implements store.Store on PostgreSQL through bun.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/migrate"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store/pgstore/migrations"
)

// Open connects to the database named by cfg.URI.
func Open(cfg config.DatabaseConfig) (*bun.DB, error) {
	dsn := cfg.URI
	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.HasPrefix(dsn, "unix://"):
	default:
		return nil, fmt.Errorf("invalid database connection string %q, only (postgres|postgresql|unix):// is supported", dsn)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	db.AddQueryHook(bundebug.NewQueryHook(
		bundebug.WithEnabled(false),
		// BUNDEBUG=1 logs failed queries, BUNDEBUG=2 logs all queries.
		bundebug.FromEnv("BUNDEBUG"),
	))
	return db, nil
}

// Migrate applies pending schema migrations.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("initializing migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return group, nil
}

// Store runs units of work as SERIALIZABLE database transactions.
type Store struct {
	db         *bun.DB
	maxRetries uint64
	log        zerolog.Logger
}

// New wraps an open database.
func New(db *bun.DB, log zerolog.Logger) *Store {
	return &Store{db: db, maxRetries: 5, log: log.With().Str("component", "pgstore").Logger()}
}

// Atomic implements store.Store. Units failing with a serialization failure
// or deadlock are retried with exponential backoff.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, r store.Repository) error) error {
	if r, ok := store.UnitFrom(ctx, s); ok {
		return fn(ctx, r)
	}

	attempt := 0
	op := func() error {
		attempt++
		err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
			r := &repo{tx: tx}
			return fn(store.WithUnit(ctx, s, r), r)
		})
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return backoff.Permanent(err)
		}
		s.log.Debug().Err(err).Int("attempt", attempt).Msg("retrying unit of work")
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), s.maxRetries), ctx)
	return backoff.Retry(op, b)
}

func sqlState(err error) string {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C')
	}
	return ""
}

func retryable(err error) bool {
	switch sqlState(err) {
	case "40001", "40P01":
		return true
	}
	return false
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return store.ErrNotFound
	case sqlState(err) == "23505":
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}
