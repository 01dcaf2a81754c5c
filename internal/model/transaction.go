package model

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// TransactionType identifies the business document a transaction represents.
type TransactionType string

const (
	CashSale        TransactionType = "CS"
	ClientInvoice   TransactionType = "IN"
	CreditNote      TransactionType = "CN"
	ClientReceipt   TransactionType = "RC"
	CashPurchase    TransactionType = "CP"
	SupplierBill    TransactionType = "BL"
	DebitNote       TransactionType = "DN"
	SupplierPayment TransactionType = "PY"
	ContraEntry     TransactionType = "CE"
	JournalEntry    TransactionType = "JN"
)

// TransactionTypes lists every transaction type.
var TransactionTypes = []TransactionType{
	CashSale, ClientInvoice, CreditNote, ClientReceipt, CashPurchase,
	SupplierBill, DebitNote, SupplierPayment, ContraEntry, JournalEntry,
}

var transactionTypeLabels = map[TransactionType]string{
	CashSale:        "Cash Sale",
	ClientInvoice:   "Client Invoice",
	CreditNote:      "Credit Note",
	ClientReceipt:   "Client Receipt",
	CashPurchase:    "Cash Purchase",
	SupplierBill:    "Supplier Bill",
	DebitNote:       "Debit Note",
	SupplierPayment: "Supplier Payment",
	ContraEntry:     "Contra Entry",
	JournalEntry:    "Journal Entry",
}

// Valid reports whether t is a known transaction type.
func (t TransactionType) Valid() bool {
	_, ok := transactionTypeLabels[t]
	return ok
}

// Label returns the human readable name of the transaction type.
func (t TransactionType) Label() string {
	if l, ok := transactionTypeLabels[t]; ok {
		return l
	}
	return string(t)
}

// Assignable types may settle other transactions.
var AssignableTypes = []TransactionType{ClientReceipt, CreditNote, SupplierPayment, DebitNote, JournalEntry}

// Clearable types may be settled by assignable ones.
var ClearableTypes = []TransactionType{ClientInvoice, SupplierBill, JournalEntry}

// Assignable reports whether t can be the settling side of an assignment.
func (t TransactionType) Assignable() bool { return containsType(AssignableTypes, t) }

// Clearable reports whether t can be the settled side of an assignment.
func (t TransactionType) Clearable() bool { return containsType(ClearableTypes, t) }

// TypeLabels joins the labels of ts with ", ".
func TypeLabels(ts []TransactionType) string {
	s := ""
	for i, t := range ts {
		if i > 0 {
			s += ", "
		}
		s += t.Label()
	}
	return s
}

func containsType(ts []TransactionType, t TransactionType) bool {
	for _, x := range ts {
		if x == t {
			return true
		}
	}
	return false
}

// Transaction is the header of a business document. Its main account is
// AccountID; line items carry the contra accounts.
type Transaction struct {
	bun.BaseModel `bun:"table:transactions,alias:t"`

	ID              int64           `bun:",pk,autoincrement"`
	EntityID        int64           `bun:",notnull"`
	AccountID       int64           `bun:",notnull"`
	CurrencyID      int64           `bun:",notnull"`
	ExchangeRateID  int64           `bun:",notnull"`
	TransactionDate time.Time       `bun:",notnull"`
	TransactionType TransactionType `bun:",notnull"`
	TransactionNo   string          `bun:",notnull"`
	Reference       string          `bun:",nullzero"`
	Narration       string          `bun:",nullzero"`
	Credited        bool            `bun:",notnull"`
	CreatedAt       time.Time       `bun:",nullzero,notnull,default:current_timestamp"`
}

// LineItem is one amount/account/vat tuple of a transaction. Taxes beyond
// VatID go in ExtraVatIDs and are applied in order after it.
type LineItem struct {
	bun.BaseModel `bun:"table:line_items,alias:li"`

	ID            int64           `bun:",pk,autoincrement"`
	EntityID      int64           `bun:",notnull"`
	TransactionID int64           `bun:",nullzero"` // 0 = not attached
	AccountID     int64           `bun:",notnull"`
	VatID         int64           `bun:",nullzero"` // 0 = zero rated
	ExtraVatIDs   []int64         `bun:",array"`
	CompoundVat   bool            `bun:",notnull"` // later taxes are charged on the total plus earlier ones
	Narration     string          `bun:",nullzero"`
	Amount        decimal.Decimal `bun:"type:numeric(20,4),notnull"`
	Quantity      decimal.Decimal `bun:"type:numeric(20,4),notnull"`
}

// Total returns amount times quantity, treating a zero quantity as one.
func (l LineItem) Total() decimal.Decimal {
	if l.Quantity.IsZero() {
		return l.Amount
	}
	return l.Amount.Mul(l.Quantity)
}

// VatIDs returns the taxes applied to the line item, primary first, without
// zeros or repeats.
func (l LineItem) VatIDs() []int64 {
	ids := make([]int64, 0, 1+len(l.ExtraVatIDs))
	for _, id := range append([]int64{l.VatID}, l.ExtraVatIDs...) {
		if id != 0 && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// UsesVat reports whether the line item applies the tax vatID.
func (l LineItem) UsesVat(vatID int64) bool {
	return slices.Contains(l.VatIDs(), vatID)
}

// Vat is a tax rate, expressed as a percentage, booked to Account.
type Vat struct {
	bun.BaseModel `bun:"table:vats,alias:v"`

	ID        int64           `bun:",pk,autoincrement"`
	EntityID  int64           `bun:",notnull"`
	Name      string          `bun:",notnull"`
	Code      string          `bun:",notnull"`
	Rate      decimal.Decimal `bun:"type:numeric(8,4),notnull"`
	AccountID int64           `bun:",nullzero"`
	DeletedAt *time.Time      `bun:",nullzero"`
}
