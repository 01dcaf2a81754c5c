package model

import (
	"time"

	"github.com/uptrace/bun"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	NonCurrentAsset     AccountType = "NON_CURRENT_ASSET"
	ContraAsset         AccountType = "CONTRA_ASSET"
	Inventory           AccountType = "INVENTORY"
	Bank                AccountType = "BANK"
	CurrentAsset        AccountType = "CURRENT_ASSET"
	Receivable          AccountType = "RECEIVABLE"
	NonCurrentLiability AccountType = "NON_CURRENT_LIABILITY"
	Control             AccountType = "CONTROL"
	CurrentLiability    AccountType = "CURRENT_LIABILITY"
	Payable             AccountType = "PAYABLE"
	Equity              AccountType = "EQUITY"
	OperatingRevenue    AccountType = "OPERATING_REVENUE"
	OperatingExpense    AccountType = "OPERATING_EXPENSE"
	NonOperatingRevenue AccountType = "NON_OPERATING_REVENUE"
	DirectExpense       AccountType = "DIRECT_EXPENSE"
	OverheadExpense     AccountType = "OVERHEAD_EXPENSE"
	OtherExpense        AccountType = "OTHER_EXPENSE"
	Reconciliation      AccountType = "RECONCILIATION"
)

// AccountTypes lists every account type in chart order.
var AccountTypes = []AccountType{
	NonCurrentAsset, ContraAsset, Inventory, Bank, CurrentAsset, Receivable,
	NonCurrentLiability, Control, CurrentLiability, Payable, Equity,
	OperatingRevenue, OperatingExpense, NonOperatingRevenue,
	DirectExpense, OverheadExpense, OtherExpense, Reconciliation,
}

var accountTypeLabels = map[AccountType]string{
	NonCurrentAsset:     "Non Current Asset",
	ContraAsset:         "Contra Asset",
	Inventory:           "Inventory",
	Bank:                "Bank",
	CurrentAsset:        "Current Asset",
	Receivable:          "Receivable",
	NonCurrentLiability: "Non Current Liability",
	Control:             "Control",
	CurrentLiability:    "Current Liability",
	Payable:             "Payable",
	Equity:              "Equity",
	OperatingRevenue:    "Operating Revenue",
	OperatingExpense:    "Operating Expense",
	NonOperatingRevenue: "Non Operating Revenue",
	DirectExpense:       "Direct Expense",
	OverheadExpense:     "Overhead Expense",
	OtherExpense:        "Other Expense",
	Reconciliation:      "Reconciliation",
}

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	_, ok := accountTypeLabels[t]
	return ok
}

// Label returns the human readable name of the account type.
func (t AccountType) Label() string {
	if l, ok := accountTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// IncomeStatement reports whether accounts of this type close into retained
// earnings at year end rather than carrying a balance forward.
func (t AccountType) IncomeStatement() bool {
	switch t {
	case OperatingRevenue, OperatingExpense, NonOperatingRevenue,
		DirectExpense, OverheadExpense, OtherExpense:
		return true
	}
	return false
}

// Category groups accounts of a single type for report sectioning.
type Category struct {
	bun.BaseModel `bun:"table:categories,alias:cat"`

	ID           int64       `bun:",pk,autoincrement"`
	EntityID     int64       `bun:",notnull"`
	Name         string      `bun:",notnull" validate:"required"`
	CategoryType AccountType `bun:",notnull"`
	DeletedAt    *time.Time  `bun:",nullzero"`
}

// Account is a row in the chart of accounts.
type Account struct {
	bun.BaseModel `bun:"table:accounts,alias:a"`

	ID          int64       `bun:",pk,autoincrement"`
	EntityID    int64       `bun:",notnull"`
	Name        string      `bun:",notnull" validate:"required"`
	AccountType AccountType `bun:",notnull"`
	Code        int         `bun:",notnull"`
	CategoryID  int64       `bun:",nullzero"` // 0 = uncategorised
	CurrencyID  int64       `bun:",notnull"`
	Description string      `bun:",nullzero"`
	DeletedAt   *time.Time  `bun:",nullzero"`
}
