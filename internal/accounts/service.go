// Package accounts manages the chart of accounts: categories, account codes
// and account balances.
package accounts

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/entity"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/id"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ledger"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

// Options configures a Service.
type Options struct {
	// CodeOffsets is the code before the first account of each type.
	CodeOffsets map[model.AccountType]int
	Labels      config.LabelsConfig
}

// Service provides chart of accounts operations.
type Service struct {
	store    store.Store
	ledger   *ledger.Service
	opts     Options
	validate *validator.Validate
	log      zerolog.Logger
}

// NewService creates an accounts Service. Closing balances read ledger rows
// through led.
func NewService(st store.Store, led *ledger.Service, opts Options, log zerolog.Logger) *Service {
	if opts.CodeOffsets == nil {
		opts.CodeOffsets = config.DefaultCodeOffsets()
	}
	return &Service{
		store:    st,
		ledger:   led,
		opts:     opts,
		validate: validator.New(),
		log:      log.With().Str("component", "accounts").Logger(),
	}
}

// CreateCategory stores a category. Categories must have an account type.
func (s *Service) CreateCategory(ctx context.Context, c *model.Category) error {
	if !c.CategoryType.Valid() {
		return ifrserr.NewMissingAccountType("Category")
	}
	if err := s.validate.Struct(c); err != nil {
		return fmt.Errorf("invalid category: %w", err)
	}
	var saved model.Category
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		saved = *c
		if err := r.InsertCategory(ctx, &saved); err != nil {
			return fmt.Errorf("inserting category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	*c = saved
	return nil
}

// Categories lists an entity's categories.
func (s *Service) Categories(ctx context.Context, entityID int64) ([]*model.Category, error) {
	var out []*model.Category
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		out, err = r.Categories(ctx, entityID)
		return err
	})
	return out, err
}

// Create stores an account. A zero Code is allocated from the account
// type's range; a zero CurrencyID defaults to the reporting currency.
func (s *Service) Create(ctx context.Context, a *model.Account) error {
	if !a.AccountType.Valid() {
		return ifrserr.NewMissingAccountType("Account")
	}
	if err := s.validate.Struct(a); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}
	var saved model.Account
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		saved = *a
		return s.create(ctx, r, &saved)
	})
	if err != nil {
		return err
	}
	*a = saved
	s.log.Debug().Int64("account_id", a.ID).Int("code", a.Code).Str("type", string(a.AccountType)).Msg("account created")
	return nil
}

func (s *Service) create(ctx context.Context, r store.Repository, a *model.Account) error {
	if err := s.checkCategory(ctx, r, a); err != nil {
		return err
	}
	if a.CurrencyID == 0 {
		e, err := r.Entity(ctx, a.EntityID)
		if err != nil {
			return fmt.Errorf("loading entity %d: %w", a.EntityID, err)
		}
		a.CurrencyID = e.CurrencyID
	}
	if a.Code == 0 {
		seq, err := r.NextSequence(ctx, id.AccountCodeSequence(a.EntityID, string(a.AccountType)))
		if err != nil {
			return fmt.Errorf("allocating account code: %w", err)
		}
		a.Code = s.opts.CodeOffsets[a.AccountType] + int(seq)
	}
	if err := r.InsertAccount(ctx, a); err != nil {
		return fmt.Errorf("inserting account: %w", err)
	}
	return nil
}

func (s *Service) checkCategory(ctx context.Context, r store.Repository, a *model.Account) error {
	if a.CategoryID == 0 {
		return nil
	}
	c, err := r.Category(ctx, a.CategoryID)
	if err != nil {
		return fmt.Errorf("loading category %d: %w", a.CategoryID, err)
	}
	if !c.CategoryType.Valid() {
		return ifrserr.NewMissingAccountType("Category")
	}
	if c.CategoryType != a.AccountType {
		return ifrserr.NewInvalidCategoryType(s.opts.Labels.AccountType(a.AccountType), s.opts.Labels.AccountType(c.CategoryType))
	}
	return nil
}

// Update saves changes to an account's name, description and category.
// The type of an account with ledger rows cannot change.
func (s *Service) Update(ctx context.Context, a *model.Account) error {
	if !a.AccountType.Valid() {
		return ifrserr.NewMissingAccountType("Account")
	}
	if err := s.validate.Struct(a); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}
	return s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		old, err := r.Account(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("loading account %d: %w", a.ID, err)
		}
		if old.AccountType != a.AccountType {
			rows, err := r.Ledgers(ctx, store.LedgerFilter{AccountID: a.ID})
			if err != nil {
				return fmt.Errorf("loading ledger rows: %w", err)
			}
			if n := transactionCount(rows); n > 0 {
				return ifrserr.NewHangingTransactions("Account "+old.Name, n)
			}
		}
		if err := s.checkCategory(ctx, r, a); err != nil {
			return err
		}
		if err := r.UpdateAccount(ctx, a); err != nil {
			return fmt.Errorf("updating account %d: %w", a.ID, err)
		}
		return nil
	})
}

// Get returns an account by ID.
func (s *Service) Get(ctx context.Context, accountID int64) (*model.Account, error) {
	var a *model.Account
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		a, err = r.Account(ctx, accountID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading account %d: %w", accountID, err)
	}
	return a, nil
}

// List returns the accounts matching f in code order.
func (s *Service) List(ctx context.Context, f store.AccountFilter) ([]*model.Account, error) {
	var out []*model.Account
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		out, err = r.Accounts(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b *model.Account) int { return cmp.Compare(a.Code, b.Code) })
	return out, nil
}

// Delete soft-deletes an account nothing is booked to.
func (s *Service) Delete(ctx context.Context, accountID int64) error {
	return s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		a, err := r.Account(ctx, accountID)
		if err != nil {
			return fmt.Errorf("loading account %d: %w", accountID, err)
		}
		txns, err := r.Transactions(ctx, store.TransactionFilter{EntityID: a.EntityID, AccountID: a.ID})
		if err != nil {
			return fmt.Errorf("loading transactions: %w", err)
		}
		items, err := r.LineItems(ctx, store.LineItemFilter{EntityID: a.EntityID, AccountID: a.ID})
		if err != nil {
			return fmt.Errorf("loading line items: %w", err)
		}
		bals, err := r.Balances(ctx, store.BalanceFilter{EntityID: a.EntityID, AccountID: a.ID})
		if err != nil {
			return fmt.Errorf("loading balances: %w", err)
		}
		if n := len(txns) + len(items) + len(bals); n > 0 {
			return ifrserr.NewHangingTransactions("Account "+a.Name, n)
		}

		now := time.Now().UTC()
		a.DeletedAt = &now
		if err := r.UpdateAccount(ctx, a); err != nil {
			return fmt.Errorf("deleting account %d: %w", a.ID, err)
		}
		return entity.Recycle(ctx, r, a.EntityID, "Account", a.ID, now)
	})
}

func transactionCount(rows []*model.Ledger) int {
	seen := make(map[int64]bool)
	for _, row := range rows {
		seen[row.TransactionID] = true
	}
	return len(seen)
}

// OpeningBalance returns the sum of an account's opening balances for a
// reporting year, each amount divided by its exchange rate. Debit balances
// count positive.
// A zero currencyID sums all currencies.
func (s *Service) OpeningBalance(ctx context.Context, accountID, currencyID int64, year int) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		bals, err := r.Balances(ctx, store.BalanceFilter{AccountID: accountID, CurrencyID: currencyID})
		if err != nil {
			return fmt.Errorf("loading balances: %w", err)
		}
		for _, b := range bals {
			if b.Year != year {
				continue
			}
			x, err := r.ExchangeRate(ctx, b.ExchangeRateID)
			if err != nil {
				return fmt.Errorf("loading exchange rate %d: %w", b.ExchangeRateID, err)
			}
			amount := b.Amount.Div(x.Rate).Round(model.AmountScale)
			if b.BalanceType == model.Credit {
				amount = amount.Neg()
			}
			total = total.Add(amount)
		}
		return nil
	})
	return total, err
}

// ClosingBalance returns the opening balance of the reporting year of to
// plus the ledger movements between from and to. A zero from starts at
// the beginning of that year.
func (s *Service) ClosingBalance(ctx context.Context, accountID, currencyID int64, from, to time.Time) (decimal.Decimal, error) {
	a, err := s.Get(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	var e *model.Entity
	err = s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		e, err = r.Entity(ctx, a.EntityID)
		return err
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading entity %d: %w", a.EntityID, err)
	}
	year := e.ReportingYear(to)
	if from.IsZero() {
		from = e.YearStartDate(year)
	}
	opening, err := s.OpeningBalance(ctx, accountID, currencyID, year)
	if err != nil {
		return decimal.Zero, err
	}
	movement, err := s.ledger.Balance(ctx, accountID, currencyID, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return opening.Add(movement), nil
}
