// Package store defines persistence for the ledger. A Store runs units of
// work; a Repository is the view of the data inside one unit.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate")
)

// Store runs atomic units of work.
type Store interface {
	// Atomic runs fn as one unit: either every write made through r is kept
	// or none is. Calls nested inside fn (via the ctx it receives) join the
	// enclosing unit.
	Atomic(ctx context.Context, fn func(ctx context.Context, r Repository) error) error
}

// Repository reads and writes rows inside a unit of work. Getters return
// copies; mutate and write back with the matching Update method.
type Repository interface {
	// NextSequence increments and returns the named counter, starting at 1.
	NextSequence(ctx context.Context, key string) (int64, error)
	// LockEntity serializes ledger appends of one entity.
	LockEntity(ctx context.Context, entityID int64) error

	InsertEntity(ctx context.Context, e *model.Entity) error
	UpdateEntity(ctx context.Context, e *model.Entity) error
	Entity(ctx context.Context, id int64) (*model.Entity, error)

	InsertCurrency(ctx context.Context, c *model.Currency) error
	UpdateCurrency(ctx context.Context, c *model.Currency) error
	Currency(ctx context.Context, id int64) (*model.Currency, error)
	Currencies(ctx context.Context, entityID int64) ([]*model.Currency, error)

	InsertExchangeRate(ctx context.Context, r *model.ExchangeRate) error
	ExchangeRate(ctx context.Context, id int64) (*model.ExchangeRate, error)
	ExchangeRates(ctx context.Context, entityID, currencyID int64) ([]*model.ExchangeRate, error)

	InsertReportingPeriod(ctx context.Context, p *model.ReportingPeriod) error
	UpdateReportingPeriod(ctx context.Context, p *model.ReportingPeriod) error
	ReportingPeriod(ctx context.Context, id int64) (*model.ReportingPeriod, error)
	ReportingPeriods(ctx context.Context, entityID int64) ([]*model.ReportingPeriod, error)

	InsertCategory(ctx context.Context, c *model.Category) error
	Category(ctx context.Context, id int64) (*model.Category, error)
	Categories(ctx context.Context, entityID int64) ([]*model.Category, error)

	InsertAccount(ctx context.Context, a *model.Account) error
	UpdateAccount(ctx context.Context, a *model.Account) error
	Account(ctx context.Context, id int64) (*model.Account, error)
	Accounts(ctx context.Context, f AccountFilter) ([]*model.Account, error)

	InsertVat(ctx context.Context, v *model.Vat) error
	UpdateVat(ctx context.Context, v *model.Vat) error
	Vat(ctx context.Context, id int64) (*model.Vat, error)
	Vats(ctx context.Context, entityID int64) ([]*model.Vat, error)

	InsertTransaction(ctx context.Context, t *model.Transaction) error
	UpdateTransaction(ctx context.Context, t *model.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error
	Transaction(ctx context.Context, id int64) (*model.Transaction, error)
	Transactions(ctx context.Context, f TransactionFilter) ([]*model.Transaction, error)

	InsertLineItem(ctx context.Context, l *model.LineItem) error
	UpdateLineItem(ctx context.Context, l *model.LineItem) error
	DeleteLineItem(ctx context.Context, id int64) error
	LineItem(ctx context.Context, id int64) (*model.LineItem, error)
	LineItems(ctx context.Context, f LineItemFilter) ([]*model.LineItem, error)

	// NextLedgerID reserves the id of the next ledger row.
	NextLedgerID(ctx context.Context) (int64, error)
	// InsertLedger writes a row whose ID was reserved with NextLedgerID.
	InsertLedger(ctx context.Context, l *model.Ledger) error
	UpdateLedger(ctx context.Context, l *model.Ledger) error
	DeleteLedgers(ctx context.Context, transactionID int64) error
	// Ledgers returns matching rows in id order.
	Ledgers(ctx context.Context, f LedgerFilter) ([]*model.Ledger, error)
	// LastLedger returns the entity's highest-id row.
	LastLedger(ctx context.Context, entityID int64) (*model.Ledger, error)

	InsertBalance(ctx context.Context, b *model.Balance) error
	UpdateBalance(ctx context.Context, b *model.Balance) error
	DeleteBalance(ctx context.Context, id int64) error
	Balance(ctx context.Context, id int64) (*model.Balance, error)
	Balances(ctx context.Context, f BalanceFilter) ([]*model.Balance, error)

	InsertAssignment(ctx context.Context, a *model.Assignment) error
	UpdateAssignment(ctx context.Context, a *model.Assignment) error
	DeleteAssignment(ctx context.Context, id int64) error
	Assignment(ctx context.Context, id int64) (*model.Assignment, error)
	Assignments(ctx context.Context, f AssignmentFilter) ([]*model.Assignment, error)

	InsertRecycledObject(ctx context.Context, o *model.RecycledObject) error
	RecycledObjects(ctx context.Context, entityID int64) ([]*model.RecycledObject, error)
}

// AccountFilter selects accounts. Zero fields match everything.
type AccountFilter struct {
	EntityID       int64
	Types          []model.AccountType
	CategoryID     int64
	CurrencyID     int64
	IncludeDeleted bool
}

// TransactionFilter selects transactions. Zero fields match everything.
type TransactionFilter struct {
	EntityID       int64
	AccountID      int64
	CurrencyID     int64
	ExchangeRateID int64
	Types          []model.TransactionType
}

// LineItemFilter selects line items. Zero fields match everything.
type LineItemFilter struct {
	EntityID      int64
	TransactionID int64
	AccountID     int64
	VatID         int64
}

// LedgerFilter selects ledger rows. Zero fields match everything; From and
// To bound PostingDate inclusively.
type LedgerFilter struct {
	EntityID      int64
	TransactionID int64
	LineItemID    int64
	PostAccountID int64
	// AccountID matches either the post or the folio account.
	AccountID  int64
	CurrencyID int64
	From       time.Time
	To         time.Time
}

// BalanceFilter selects opening balances. Zero fields match everything.
type BalanceFilter struct {
	EntityID          int64
	AccountID         int64
	CurrencyID        int64
	ExchangeRateID    int64
	ReportingPeriodID int64
}

// AssignmentFilter selects assignments. Zero fields match everything.
type AssignmentFilter struct {
	EntityID           int64
	TransactionID      int64
	Cleared            *model.ClearedRef
	ForexTransactionID int64
}
