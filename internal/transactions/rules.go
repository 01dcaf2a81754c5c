package transactions

import (
	"context"
	"slices"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

// Rule constrains the accounts a transaction type may use. Empty account
// type lists allow any type.
type Rule struct {
	Credited             bool
	MainAccountTypes     []model.AccountType
	LineItemAccountTypes []model.AccountType
}

// Validator is an extra check run when a transaction is posted, inside the
// posting unit of work.
type Validator func(ctx context.Context, r store.Repository, t *Transaction) error

var purchaseAccounts = []model.AccountType{
	model.OperatingExpense, model.DirectExpense, model.OverheadExpense, model.OtherExpense,
	model.NonCurrentAsset, model.CurrentAsset, model.Inventory,
}

// Rules holds the rule of every transaction type.
var Rules = map[model.TransactionType]Rule{
	model.CashSale: {
		MainAccountTypes:     []model.AccountType{model.Bank},
		LineItemAccountTypes: []model.AccountType{model.OperatingRevenue},
	},
	model.ClientInvoice: {
		MainAccountTypes:     []model.AccountType{model.Receivable},
		LineItemAccountTypes: []model.AccountType{model.OperatingRevenue},
	},
	model.CreditNote: {
		Credited:             true,
		MainAccountTypes:     []model.AccountType{model.Receivable},
		LineItemAccountTypes: []model.AccountType{model.OperatingRevenue},
	},
	model.ClientReceipt: {
		Credited:             true,
		MainAccountTypes:     []model.AccountType{model.Receivable},
		LineItemAccountTypes: []model.AccountType{model.Bank},
	},
	model.CashPurchase: {
		Credited:             true,
		MainAccountTypes:     []model.AccountType{model.Bank},
		LineItemAccountTypes: purchaseAccounts,
	},
	model.SupplierBill: {
		Credited:             true,
		MainAccountTypes:     []model.AccountType{model.Payable},
		LineItemAccountTypes: purchaseAccounts,
	},
	model.DebitNote: {
		MainAccountTypes:     []model.AccountType{model.Payable},
		LineItemAccountTypes: purchaseAccounts,
	},
	model.SupplierPayment: {
		MainAccountTypes:     []model.AccountType{model.Payable},
		LineItemAccountTypes: []model.AccountType{model.Bank},
	},
	model.ContraEntry: {
		MainAccountTypes:     []model.AccountType{model.Bank},
		LineItemAccountTypes: []model.AccountType{model.Bank},
	},
	model.JournalEntry: {
		Credited: true,
	},
}

func allows(types []model.AccountType, t model.AccountType) bool {
	return len(types) == 0 || slices.Contains(types, t)
}
