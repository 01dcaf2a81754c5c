// Package entity manages the reporting entity and the records every ledger
// operation depends on: currencies, exchange rates and reporting periods.
package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

// ErrUnknownCurrency is returned for codes outside ISO 4217.
var ErrUnknownCurrency = errors.New("unknown currency code")

// ErrNoExchangeRate is returned when no rate covers a date.
var ErrNoExchangeRate = errors.New("no exchange rate")

// epoch is the ValidFrom of base rates.
var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Service provides entity, currency, exchange rate and reporting period
// operations.
type Service struct {
	store store.Store
	log   zerolog.Logger
}

// NewService creates an entity Service.
func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log.With().Str("component", "entity").Logger()}
}

// CreateParams holds parameters for creating an entity.
type CreateParams struct {
	Name         string
	CurrencyCode string
	CurrencyName string
	YearStart    int // 1-12, 0 means January
}

// Create registers an entity with its reporting currency and that
// currency's rate-1 exchange rate.
func (s *Service) Create(ctx context.Context, p CreateParams) (*model.Entity, error) {
	if p.YearStart == 0 {
		p.YearStart = 1
	}
	if p.YearStart < 1 || p.YearStart > 12 {
		return nil, fmt.Errorf("invalid fiscal year start month %d", p.YearStart)
	}

	var e *model.Entity
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		e = &model.Entity{Name: p.Name, YearStart: p.YearStart}
		if err := r.InsertEntity(ctx, e); err != nil {
			return fmt.Errorf("inserting entity: %w", err)
		}

		cur, err := addCurrency(ctx, r, e.ID, p.CurrencyCode, p.CurrencyName)
		if err != nil {
			return err
		}
		rate := &model.ExchangeRate{EntityID: e.ID, CurrencyID: cur.ID, Rate: decimal.NewFromInt(1), ValidFrom: epoch}
		if err := r.InsertExchangeRate(ctx, rate); err != nil {
			return fmt.Errorf("inserting base rate: %w", err)
		}

		e.CurrencyID = cur.ID
		e.BaseRateID = rate.ID
		if err := r.UpdateEntity(ctx, e); err != nil {
			return fmt.Errorf("updating entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("entity_id", e.ID).Str("name", e.Name).Msg("entity created")
	return e, nil
}

// Get returns an entity by ID.
func (s *Service) Get(ctx context.Context, id int64) (*model.Entity, error) {
	var e *model.Entity
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		e, err = r.Entity(ctx, id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading entity %d: %w", id, err)
	}
	return e, nil
}

// AddCurrency registers an ISO 4217 currency for an entity.
func (s *Service) AddCurrency(ctx context.Context, entityID int64, code, name string) (*model.Currency, error) {
	var c *model.Currency
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		c, err = addCurrency(ctx, r, entityID, code, name)
		return err
	})
	return c, err
}

func addCurrency(ctx context.Context, r store.Repository, entityID int64, code, name string) (*model.Currency, error) {
	code = strings.ToUpper(code)
	iso := money.GetCurrency(code)
	if iso == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	if name == "" {
		name = iso.Code
	}

	existing, err := r.Currencies(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("listing currencies: %w", err)
	}
	for _, c := range existing {
		if c.CurrencyCode == code {
			return nil, fmt.Errorf("currency %s: %w", code, store.ErrDuplicate)
		}
	}

	c := &model.Currency{EntityID: entityID, Name: name, CurrencyCode: code}
	if err := r.InsertCurrency(ctx, c); err != nil {
		return nil, fmt.Errorf("inserting currency: %w", err)
	}
	return c, nil
}

// DeleteCurrency soft-deletes a currency nothing refers to.
func (s *Service) DeleteCurrency(ctx context.Context, id int64) error {
	return s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		c, err := r.Currency(ctx, id)
		if err != nil {
			return fmt.Errorf("loading currency %d: %w", id, err)
		}
		e, err := r.Entity(ctx, c.EntityID)
		if err != nil {
			return fmt.Errorf("loading entity: %w", err)
		}
		if e.CurrencyID == c.ID {
			return ifrserr.NewHangingTransactions("Reporting Currency "+c.CurrencyCode, 1)
		}

		txns, err := r.Transactions(ctx, store.TransactionFilter{EntityID: c.EntityID, CurrencyID: c.ID})
		if err != nil {
			return err
		}
		accts, err := r.Accounts(ctx, store.AccountFilter{EntityID: c.EntityID, CurrencyID: c.ID})
		if err != nil {
			return err
		}
		bals, err := r.Balances(ctx, store.BalanceFilter{EntityID: c.EntityID, CurrencyID: c.ID})
		if err != nil {
			return err
		}
		if n := len(txns) + len(accts) + len(bals); n > 0 {
			return ifrserr.NewHangingTransactions("Currency "+c.CurrencyCode, n)
		}

		now := time.Now().UTC()
		c.DeletedAt = &now
		if err := r.UpdateCurrency(ctx, c); err != nil {
			return fmt.Errorf("deleting currency: %w", err)
		}
		return Recycle(ctx, r, c.EntityID, "Currency", c.ID, now)
	})
}

// AddExchangeRate records a rate for a currency. Rates must be positive.
func (s *Service) AddExchangeRate(ctx context.Context, x *model.ExchangeRate) error {
	if x.Rate.IsNegative() {
		return ifrserr.NewNegativeAmount("ExchangeRate")
	}
	if x.Rate.Round(model.RateScale).IsZero() {
		return fmt.Errorf("exchange rate must be greater than zero")
	}
	if x.ValidTo != nil && !x.ValidTo.After(x.ValidFrom) {
		return fmt.Errorf("exchange rate valid_to must be after valid_from")
	}
	var saved model.ExchangeRate
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		saved = *x
		saved.Rate = saved.Rate.Round(model.RateScale)
		if _, err := r.Currency(ctx, saved.CurrencyID); err != nil {
			return fmt.Errorf("loading currency %d: %w", saved.CurrencyID, err)
		}
		if err := r.InsertExchangeRate(ctx, &saved); err != nil {
			return fmt.Errorf("inserting exchange rate: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*x = saved
	return nil
}

// RateAt returns the exchange rate of a currency valid on a date.
func (s *Service) RateAt(ctx context.Context, entityID, currencyID int64, date time.Time) (*model.ExchangeRate, error) {
	var x *model.ExchangeRate
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		x, err = RateAt(ctx, r, entityID, currencyID, date)
		return err
	})
	return x, err
}

// RateAt returns the most recently started rate of currencyID covering date.
func RateAt(ctx context.Context, r store.Repository, entityID, currencyID int64, date time.Time) (*model.ExchangeRate, error) {
	rates, err := r.ExchangeRates(ctx, entityID, currencyID)
	if err != nil {
		return nil, fmt.Errorf("listing exchange rates: %w", err)
	}
	var best *model.ExchangeRate
	for _, x := range rates {
		if !x.ValidAt(date) {
			continue
		}
		if best == nil || !x.ValidFrom.Before(best.ValidFrom) {
			best = x
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w for currency %d on %s", ErrNoExchangeRate, currencyID, date.Format(time.DateOnly))
	}
	return best, nil
}

// Recycle records a soft deletion.
func Recycle(ctx context.Context, r store.Repository, entityID int64, kind string, id int64, at time.Time) error {
	o := &model.RecycledObject{EntityID: entityID, RecyclableType: kind, RecyclableID: id, DeletedAt: at}
	if err := r.InsertRecycledObject(ctx, o); err != nil {
		return fmt.Errorf("recycling %s %d: %w", kind, id, err)
	}
	return nil
}
