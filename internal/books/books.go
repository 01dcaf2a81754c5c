// Package books wires the ledger services over one store.
package books

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/accounts"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/balances"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/clearance"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/entity"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ledger"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store/pgstore"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/tax"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/transactions"
)

// ErrNoDatabase is returned by Open when no database URI is configured.
var ErrNoDatabase = errors.New("database.uri is not set")

// Books holds every service of one set of books.
type Books struct {
	Config       *config.Config
	Store        store.Store
	Entities     *entity.Service
	Tax          *tax.Service
	Accounts     *accounts.Service
	Ledger       *ledger.Service
	Transactions *transactions.Service
	Balances     *balances.Service
	Clearance    *clearance.Service
}

// New builds the services over st.
func New(cfg *config.Config, st store.Store, log zerolog.Logger) (*Books, error) {
	hasher, err := ledger.NewHasher(cfg.Ledger.HashAlgorithm, cfg.Ledger.AppSecret)
	if err != nil {
		return nil, err
	}
	txOpts := transactions.Options{
		SingleCurrency: cfg.Accounts.SingleCurrency,
		Labels:         cfg.Labels,
	}
	led := ledger.NewService(st, hasher, log)
	txs := transactions.NewService(st, led, txOpts, log)
	return &Books{
		Config:       cfg,
		Store:        st,
		Entities:     entity.NewService(st, log),
		Tax:          tax.NewService(st, log),
		Accounts:     accounts.NewService(st, led, accounts.Options{CodeOffsets: cfg.Accounts.CodeOffsets, Labels: cfg.Labels}, log),
		Ledger:       led,
		Transactions: txs,
		Balances:     balances.NewService(st, txs, txOpts, log),
		Clearance:    clearance.NewService(st, txs, clearance.Options{Labels: cfg.Labels, AgingBrackets: cfg.AgingBrackets}, log),
	}, nil
}

// Open connects to the configured PostgreSQL database and builds the
// services over it. The returned func closes the connection.
func Open(cfg *config.Config, log zerolog.Logger) (*Books, func() error, error) {
	if cfg.Database.URI == "" {
		return nil, nil, ErrNoDatabase
	}
	db, err := pgstore.Open(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	b, err := New(cfg, pgstore.New(db, log), log)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return b, db.Close, nil
}

// Setup creates the configured entity with its reporting currency, opens
// the reporting period of year and imports chart.
func (b *Books) Setup(ctx context.Context, year int, chart []accounts.ChartRow) (*model.Entity, error) {
	month, err := b.Config.Fiscal.StartMonth()
	if err != nil {
		return nil, err
	}
	var e *model.Entity
	err = b.Store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		e, err = b.Entities.Create(ctx, entity.CreateParams{
			Name:         b.Config.Entity.Name,
			CurrencyCode: b.Config.Entity.Currency,
			CurrencyName: b.Config.Entity.CurrencyName,
			YearStart:    month,
		})
		if err != nil {
			return err
		}
		if _, err := b.Entities.OpenPeriod(ctx, e.ID, year); err != nil {
			return err
		}
		if len(chart) == 0 {
			return nil
		}
		_, err = b.Accounts.Import(ctx, e.ID, chart)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("setting up %s: %w", b.Config.Entity.Name, err)
	}
	return e, nil
}
