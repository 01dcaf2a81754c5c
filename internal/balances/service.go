// Package balances records opening balances: amounts carried into a
// reporting year that stand in for prior-year transactions.
package balances

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/entity"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/id"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/transactions"
)

// Service manages opening balances.
type Service struct {
	store          store.Store
	transactions   *transactions.Service
	singleCurrency []model.AccountType
	labels         config.LabelsConfig
	log            zerolog.Logger
}

// NewService creates a balances Service. Forex journal entries of deleted
// balances' clearances are removed through txs.
func NewService(st store.Store, txs *transactions.Service, opts transactions.Options, log zerolog.Logger) *Service {
	return &Service{
		store:          st,
		transactions:   txs,
		singleCurrency: opts.SingleCurrency,
		labels:         opts.Labels,
		log:            log.With().Str("component", "balances").Logger(),
	}
}

// Create validates, numbers and stores an opening balance. Year defaults
// to the reporting year of TransactionDate; TransactionDate defaults to the
// day before Year starts. CurrencyID and ExchangeRateID default like a
// transaction's.
func (s *Service) Create(ctx context.Context, b *model.Balance) error {
	if b.Amount.IsNegative() {
		return ifrserr.NewNegativeAmount("Balance")
	}
	if !slices.Contains(model.BalanceTypes, b.TransactionType) {
		allowed := make([]string, len(model.BalanceTypes))
		for i, t := range model.BalanceTypes {
			allowed[i] = s.labels.TransactionType(t)
		}
		return ifrserr.NewInvalidBalanceTransaction(allowed)
	}
	if b.BalanceType != model.Debit && b.BalanceType != model.Credit {
		return fmt.Errorf("unknown balance type %q", b.BalanceType)
	}

	var work model.Balance
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		work = *b
		work.Amount = work.Amount.Round(model.AmountScale)
		e, err := r.Entity(ctx, work.EntityID)
		if err != nil {
			return fmt.Errorf("loading entity %d: %w", work.EntityID, err)
		}
		a, err := r.Account(ctx, work.AccountID)
		if err != nil {
			return fmt.Errorf("loading account %d: %w", work.AccountID, err)
		}
		if a.AccountType.IncomeStatement() {
			return ifrserr.NewInvalidAccountClassBalance(s.labels.AccountType(a.AccountType))
		}

		switch {
		case work.Year == 0 && work.TransactionDate.IsZero():
			return fmt.Errorf("opening balance needs a year or a transaction date")
		case work.Year == 0:
			work.Year = e.ReportingYear(work.TransactionDate)
		case work.TransactionDate.IsZero():
			work.TransactionDate = e.YearStartDate(work.Year).AddDate(0, 0, -1)
		}

		if work.CurrencyID == 0 {
			work.CurrencyID = a.CurrencyID
		}
		if work.CurrencyID == 0 {
			work.CurrencyID = e.CurrencyID
		}
		if a.CurrencyID != 0 && slices.Contains(s.singleCurrency, a.AccountType) && a.CurrencyID != work.CurrencyID {
			return ifrserr.NewInvalidCurrency("Balance", a.Name)
		}
		if work.ExchangeRateID == 0 {
			x, err := entity.RateAt(ctx, r, e.ID, work.CurrencyID, work.TransactionDate)
			if err != nil {
				return err
			}
			work.ExchangeRateID = x.ID
		} else if x, err := r.ExchangeRate(ctx, work.ExchangeRateID); err != nil {
			return fmt.Errorf("loading exchange rate %d: %w", work.ExchangeRateID, err)
		} else if x.CurrencyID != work.CurrencyID {
			return fmt.Errorf("exchange rate %d is not for currency %d", x.ID, work.CurrencyID)
		}

		period, err := entity.PeriodForYear(ctx, r, e, work.Year)
		if err != nil {
			return err
		}
		if err := entity.CheckPeriod(period, work.TransactionType); err != nil {
			return err
		}
		work.ReportingPeriodID = period.ID

		if work.TransactionNo == "" {
			seq, err := r.NextSequence(ctx, id.TransactionSequence(e.ID, period.ID, string(work.TransactionType)))
			if err != nil {
				return fmt.Errorf("numbering balance: %w", err)
			}
			work.TransactionNo = id.FormatTransactionNo(string(work.TransactionType), period.PeriodCount, seq)
		}
		if err := r.InsertBalance(ctx, &work); err != nil {
			return fmt.Errorf("inserting balance: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*b = work
	s.log.Debug().Int64("balance_id", b.ID).Str("transaction_no", b.TransactionNo).Int("year", b.Year).Msg("opening balance created")
	return nil
}

// Get returns an opening balance by ID.
func (s *Service) Get(ctx context.Context, balanceID int64) (*model.Balance, error) {
	var b *model.Balance
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		b, err = r.Balance(ctx, balanceID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading balance %d: %w", balanceID, err)
	}
	return b, nil
}

// List returns the opening balances matching f.
func (s *Service) List(ctx context.Context, f store.BalanceFilter) ([]*model.Balance, error) {
	var out []*model.Balance
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		out, err = r.Balances(ctx, f)
		return err
	})
	return out, err
}

// Delete removes an opening balance with the assignments clearing it and
// their forex journal entries.
func (s *Service) Delete(ctx context.Context, balanceID int64) error {
	return s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		b, err := r.Balance(ctx, balanceID)
		if err != nil {
			return fmt.Errorf("loading balance %d: %w", balanceID, err)
		}
		ref := model.BalanceRef(b.ID)
		clearances, err := r.Assignments(ctx, store.AssignmentFilter{Cleared: &ref})
		if err != nil {
			return fmt.Errorf("loading clearances: %w", err)
		}
		for _, a := range clearances {
			if err := r.DeleteAssignment(ctx, a.ID); err != nil {
				return fmt.Errorf("deleting assignment %d: %w", a.ID, err)
			}
			if a.ForexTransactionID != 0 {
				if err := s.transactions.Delete(ctx, a.ForexTransactionID); err != nil {
					return err
				}
			}
		}
		if err := r.DeleteBalance(ctx, b.ID); err != nil {
			return fmt.Errorf("deleting balance %d: %w", b.ID, err)
		}
		return entity.Recycle(ctx, r, b.EntityID, "Balance", b.ID, time.Now().UTC())
	})
}
