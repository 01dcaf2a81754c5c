package clearance

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/transactions"
)

// Clearable is an amount assignments can settle: a posted transaction or
// an opening balance.
type Clearable interface {
	Ref() model.ClearedRef
	Number() string
	Type() model.TransactionType
	Account() int64
	Currency() int64
	Rate() decimal.Decimal
	Date() time.Time
	IsPosted() bool
	IsCredited() bool
	// Amount is the original amount in the clearable's currency.
	Amount() decimal.Decimal
	// ClearedAmount is the sum of assignments settling this clearable.
	ClearedAmount() decimal.Decimal
}

// Assignable is a transaction that can settle clearables with its balance.
type Assignable interface {
	Clearable
	// Balance is the amount not yet assigned.
	Balance() decimal.Decimal
	// AssignedAmount is the sum of assignments this transaction made.
	AssignedAmount() decimal.Decimal
}

// Uncleared returns the amount of c still to be settled.
func Uncleared(c Clearable) decimal.Decimal {
	return c.Amount().Sub(c.ClearedAmount())
}

// Transaction is a transaction seen as a clearable and assignable.
type Transaction struct {
	tx       *transactions.Transaction
	rate     decimal.Decimal
	amount   decimal.Decimal
	cleared  decimal.Decimal
	assigned decimal.Decimal
}

func (t *Transaction) Ref() model.ClearedRef          { return model.TransactionRef(t.tx.ID) }
func (t *Transaction) Number() string                 { return t.tx.TransactionNo }
func (t *Transaction) Type() model.TransactionType    { return t.tx.TransactionType }
func (t *Transaction) Account() int64                 { return t.tx.AccountID }
func (t *Transaction) Currency() int64                { return t.tx.CurrencyID }
func (t *Transaction) Rate() decimal.Decimal          { return t.rate }
func (t *Transaction) Date() time.Time                { return t.tx.TransactionDate }
func (t *Transaction) IsPosted() bool                 { return t.tx.IsPosted() }
func (t *Transaction) IsCredited() bool               { return t.tx.IsCredited() }
func (t *Transaction) Amount() decimal.Decimal        { return t.amount }
func (t *Transaction) ClearedAmount() decimal.Decimal { return t.cleared }
func (t *Transaction) AssignedAmount() decimal.Decimal {
	return t.assigned
}
func (t *Transaction) Balance() decimal.Decimal { return t.amount.Sub(t.assigned) }

// Record returns the underlying transaction.
func (t *Transaction) Record() *transactions.Transaction { return t.tx }

// OpeningBalance is an opening balance seen as a clearable. Opening
// balances are always posted.
type OpeningBalance struct {
	b       *model.Balance
	rate    decimal.Decimal
	cleared decimal.Decimal
}

func (o *OpeningBalance) Ref() model.ClearedRef          { return model.BalanceRef(o.b.ID) }
func (o *OpeningBalance) Number() string                 { return o.b.TransactionNo }
func (o *OpeningBalance) Type() model.TransactionType    { return o.b.TransactionType }
func (o *OpeningBalance) Account() int64                 { return o.b.AccountID }
func (o *OpeningBalance) Currency() int64                { return o.b.CurrencyID }
func (o *OpeningBalance) Rate() decimal.Decimal          { return o.rate }
func (o *OpeningBalance) Date() time.Time                { return o.b.TransactionDate }
func (o *OpeningBalance) IsPosted() bool                 { return true }
func (o *OpeningBalance) IsCredited() bool               { return o.b.BalanceType == model.Credit }
func (o *OpeningBalance) Amount() decimal.Decimal        { return o.b.Amount }
func (o *OpeningBalance) ClearedAmount() decimal.Decimal { return o.cleared }

// Record returns the underlying balance.
func (o *OpeningBalance) Record() *model.Balance { return o.b }

func (s *Service) loadTransaction(ctx context.Context, r store.Repository, transactionID int64) (*Transaction, error) {
	tx, err := s.transactions.Load(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	amount, err := s.transactions.Amount(ctx, tx)
	if err != nil {
		return nil, err
	}
	x, err := r.ExchangeRate(ctx, tx.ExchangeRateID)
	if err != nil {
		return nil, fmt.Errorf("loading exchange rate %d: %w", tx.ExchangeRateID, err)
	}
	ref := model.TransactionRef(tx.ID)
	cleared, err := sumAssignments(ctx, r, store.AssignmentFilter{Cleared: &ref})
	if err != nil {
		return nil, err
	}
	assigned, err := sumAssignments(ctx, r, store.AssignmentFilter{TransactionID: tx.ID})
	if err != nil {
		return nil, err
	}
	return &Transaction{tx: tx, rate: x.Rate, amount: amount, cleared: cleared, assigned: assigned}, nil
}

func (s *Service) loadBalance(ctx context.Context, r store.Repository, balanceID int64) (*OpeningBalance, error) {
	b, err := r.Balance(ctx, balanceID)
	if err != nil {
		return nil, fmt.Errorf("loading balance %d: %w", balanceID, err)
	}
	x, err := r.ExchangeRate(ctx, b.ExchangeRateID)
	if err != nil {
		return nil, fmt.Errorf("loading exchange rate %d: %w", b.ExchangeRateID, err)
	}
	ref := model.BalanceRef(b.ID)
	cleared, err := sumAssignments(ctx, r, store.AssignmentFilter{Cleared: &ref})
	if err != nil {
		return nil, err
	}
	return &OpeningBalance{b: b, rate: x.Rate, cleared: cleared}, nil
}

func (s *Service) load(ctx context.Context, r store.Repository, ref model.ClearedRef) (Clearable, error) {
	switch ref.Type {
	case model.ClearedTransaction:
		return s.loadTransaction(ctx, r, ref.ID)
	case model.ClearedBalance:
		return s.loadBalance(ctx, r, ref.ID)
	}
	return nil, fmt.Errorf("unknown clearable type %q", ref.Type)
}

func sumAssignments(ctx context.Context, r store.Repository, f store.AssignmentFilter) (decimal.Decimal, error) {
	asgs, err := r.Assignments(ctx, f)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading assignments: %w", err)
	}
	total := decimal.Zero
	for _, a := range asgs {
		total = total.Add(a.Amount)
	}
	return total, nil
}
