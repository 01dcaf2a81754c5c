package clearance

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

// Outstanding returns the posted clearables of an account with an uncleared
// amount, oldest first. Forex journal entries and transactions that have
// made assignments are left out.
func (s *Service) Outstanding(ctx context.Context, accountID, currencyID int64) ([]Clearable, error) {
	var out []Clearable
	err := s.store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		var err error
		out, err = s.outstanding(ctx, r, accountID, currencyID)
		return err
	})
	return out, err
}

func (s *Service) outstanding(ctx context.Context, r store.Repository, accountID, currencyID int64) ([]Clearable, error) {
	account, err := r.Account(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("loading account %d: %w", accountID, err)
	}
	forex, err := s.forexTransactions(ctx, r, account.EntityID)
	if err != nil {
		return nil, err
	}

	var out []Clearable
	txs, err := r.Transactions(ctx, store.TransactionFilter{
		EntityID:   account.EntityID,
		AccountID:  accountID,
		CurrencyID: currencyID,
		Types:      model.ClearableTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("loading transactions: %w", err)
	}
	for _, t := range txs {
		if forex[t.ID] {
			continue
		}
		c, err := s.loadTransaction(ctx, r, t.ID)
		if err != nil {
			return nil, err
		}
		if !c.IsPosted() || c.AssignedAmount().IsPositive() || !Uncleared(c).IsPositive() {
			continue
		}
		out = append(out, c)
	}

	balances, err := r.Balances(ctx, store.BalanceFilter{
		EntityID:   account.EntityID,
		AccountID:  accountID,
		CurrencyID: currencyID,
	})
	if err != nil {
		return nil, fmt.Errorf("loading balances: %w", err)
	}
	for _, b := range balances {
		c, err := s.loadBalance(ctx, r, b.ID)
		if err != nil {
			return nil, err
		}
		if Uncleared(c).IsPositive() {
			out = append(out, c)
		}
	}

	slices.SortStableFunc(out, func(a, b Clearable) int {
		if c := a.Date().Compare(b.Date()); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Ref().Type, b.Ref().Type); c != 0 {
			// "Balance" sorts before "Transaction".
			return c
		}
		return cmp.Compare(a.Ref().ID, b.Ref().ID)
	})
	return out, nil
}

func (s *Service) forexTransactions(ctx context.Context, r store.Repository, entityID int64) (map[int64]bool, error) {
	asgs, err := r.Assignments(ctx, store.AssignmentFilter{EntityID: entityID})
	if err != nil {
		return nil, fmt.Errorf("loading assignments: %w", err)
	}
	ids := make(map[int64]bool)
	for _, a := range asgs {
		if a.ForexTransactionID != 0 {
			ids[a.ForexTransactionID] = true
		}
	}
	return ids, nil
}

// ScheduleLine is one outstanding item of an account schedule.
type ScheduleLine struct {
	Ref             model.ClearedRef
	TransactionNo   string
	TransactionType model.TransactionType
	Date            time.Time
	Credited        bool
	Original        decimal.Decimal
	Cleared         decimal.Decimal
	Uncleared       decimal.Decimal
	Age             int
	Bracket         string
}

// Schedule lists what remains to be settled on an account, aged as of a date.
type Schedule struct {
	AccountID  int64
	CurrencyID int64
	AsOf       time.Time
	Lines      []ScheduleLine
	// Brackets totals uncleared amounts per aging bracket label.
	Brackets map[string]decimal.Decimal
	Total    decimal.Decimal
}

// Schedule returns the account schedule of accountID in currencyID.
func (s *Service) Schedule(ctx context.Context, accountID, currencyID int64, asOf time.Time) (*Schedule, error) {
	items, err := s.Outstanding(ctx, accountID, currencyID)
	if err != nil {
		return nil, err
	}
	sch := &Schedule{
		AccountID:  accountID,
		CurrencyID: currencyID,
		AsOf:       asOf,
		Brackets:   make(map[string]decimal.Decimal, len(s.opts.AgingBrackets)),
		Total:      decimal.Zero,
	}
	for _, b := range s.opts.AgingBrackets {
		sch.Brackets[b.Label] = decimal.Zero
	}
	for _, c := range items {
		age := int(asOf.Sub(c.Date()).Hours() / 24)
		line := ScheduleLine{
			Ref:             c.Ref(),
			TransactionNo:   c.Number(),
			TransactionType: c.Type(),
			Date:            c.Date(),
			Credited:        c.IsCredited(),
			Original:        c.Amount(),
			Cleared:         c.ClearedAmount(),
			Uncleared:       Uncleared(c),
			Age:             age,
			Bracket:         bracket(s.opts.AgingBrackets, age),
		}
		sch.Lines = append(sch.Lines, line)
		sch.Brackets[line.Bracket] = sch.Brackets[line.Bracket].Add(line.Uncleared)
		sch.Total = sch.Total.Add(line.Uncleared)
	}
	return sch, nil
}

func bracket(brackets []config.AgingBracket, age int) string {
	for _, b := range brackets {
		if b.MaxDays == 0 || age <= b.MaxDays {
			return b.Label
		}
	}
	return brackets[len(brackets)-1].Label
}
