package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// EntryType is the side of a ledger row.
type EntryType string

const (
	Debit  EntryType = "DEBIT"
	Credit EntryType = "CREDIT"
)

// Opposite returns the other side.
func (e EntryType) Opposite() EntryType {
	if e == Debit {
		return Credit
	}
	return Debit
}

// Ledger is one leg of a double entry. Rows are always written in pairs that
// share transaction, line item, vat, date and amount with swapped accounts.
type Ledger struct {
	bun.BaseModel `bun:"table:ledgers,alias:l"`

	ID             int64           `bun:",pk,autoincrement"`
	EntityID       int64           `bun:",notnull"`
	TransactionID  int64           `bun:",notnull"`
	LineItemID     int64           `bun:",notnull"`
	VatID          int64           `bun:",nullzero"`
	PostAccountID  int64           `bun:",notnull"`
	FolioAccountID int64           `bun:",notnull"`
	CurrencyID     int64           `bun:",notnull"`
	EntryType      EntryType       `bun:",notnull"`
	Amount         decimal.Decimal `bun:"type:numeric(24,8),notnull"` // reporting currency
	PostingDate    time.Time       `bun:",notnull"`
	Hash           string          `bun:",notnull"`
	PrevHash       string          `bun:",notnull"`
}

// Decimal places of stored amounts. They match the numeric column scales,
// so values hashed or compared in memory equal what the database returns.
const (
	AmountScale = 4 // line items, balances, assignments
	LedgerScale = 8 // ledger rows, in the reporting currency
	RateScale   = 8 // exchange rates
)

// BalanceType is the side of an opening balance.
type BalanceType = EntryType

// BalanceTypes are the accepted opening balance transaction types.
var BalanceTypes = []TransactionType{ClientInvoice, SupplierBill, JournalEntry}

// Balance is an opening balance carried into a reporting year. It stands in for
// a prior-period transaction when clearing.
type Balance struct {
	bun.BaseModel `bun:"table:balances,alias:b"`

	ID                int64           `bun:",pk,autoincrement"`
	EntityID          int64           `bun:",notnull"`
	AccountID         int64           `bun:",notnull"`
	CurrencyID        int64           `bun:",notnull"`
	ExchangeRateID    int64           `bun:",notnull"`
	ReportingPeriodID int64           `bun:",notnull"`
	Year              int             `bun:",notnull"`
	BalanceType       BalanceType     `bun:",notnull"`
	TransactionType   TransactionType `bun:",notnull"`
	TransactionNo     string          `bun:",notnull"`
	TransactionDate   time.Time       `bun:",notnull"`
	Reference         string          `bun:",nullzero"`
	Amount            decimal.Decimal `bun:"type:numeric(20,4),notnull"`
}

// ClearableType discriminates what an assignment clears.
type ClearableType string

const (
	ClearedTransaction ClearableType = "Transaction"
	ClearedBalance     ClearableType = "Balance"
)

// ClearedRef points at the cleared side of an assignment.
type ClearedRef struct {
	Type ClearableType
	ID   int64
}

func (r ClearedRef) String() string {
	return fmt.Sprintf("%s#%d", r.Type, r.ID)
}

// TransactionRef refers to a transaction as a clearable.
func TransactionRef(id int64) ClearedRef { return ClearedRef{Type: ClearedTransaction, ID: id} }

// BalanceRef refers to an opening balance as a clearable.
func BalanceRef(id int64) ClearedRef { return ClearedRef{Type: ClearedBalance, ID: id} }

// Assignment applies Amount of transaction TransactionID to the cleared item.
type Assignment struct {
	bun.BaseModel `bun:"table:assignments,alias:asg"`

	ID                 int64           `bun:",pk,autoincrement"`
	EntityID           int64           `bun:",notnull"`
	AssignmentDate     time.Time       `bun:",notnull"`
	TransactionID      int64           `bun:",notnull"`
	ClearedID          int64           `bun:",notnull"`
	ClearedType        ClearableType   `bun:",notnull"`
	Amount             decimal.Decimal `bun:"type:numeric(20,4),notnull"`
	ForexAccountID     int64           `bun:",nullzero"`
	ForexTransactionID int64           `bun:",nullzero"`
}

// Cleared returns the reference to the cleared item.
func (a Assignment) Cleared() ClearedRef {
	return ClearedRef{Type: a.ClearedType, ID: a.ClearedID}
}
