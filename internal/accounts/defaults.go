package accounts

import "github.com/ekmungai/eloquent-ifrs-sub000/internal/model"

// DefaultChart returns a starter chart with one account per type. Codes
// are left for the importing entity to allocate.
func DefaultChart() []ChartRow {
	return []ChartRow{
		{Name: "Property, Plant & Equipment", Type: model.NonCurrentAsset, Category: "Fixed Assets"},
		{Name: "Accumulated Depreciation", Type: model.ContraAsset, Category: "Fixed Assets Contra"},
		{Name: "Stock", Type: model.Inventory},
		{Name: "Business Checking", Type: model.Bank, Description: "Primary bank account"},
		{Name: "Prepayments", Type: model.CurrentAsset},
		{Name: "Trade Debtors", Type: model.Receivable, Category: "Debtors"},
		{Name: "Long Term Loans", Type: model.NonCurrentLiability},
		{Name: "VAT Control", Type: model.Control, Description: "Output and input VAT"},
		{Name: "Accruals", Type: model.CurrentLiability},
		{Name: "Trade Creditors", Type: model.Payable, Category: "Creditors"},
		{Name: "Share Capital", Type: model.Equity},
		{Name: "Sales", Type: model.OperatingRevenue},
		{Name: "Salaries", Type: model.OperatingExpense},
		{Name: "Interest Income", Type: model.NonOperatingRevenue},
		{Name: "Cost of Sales", Type: model.DirectExpense},
		{Name: "Rent", Type: model.OverheadExpense},
		{Name: "Forex Gains and Losses", Type: model.OtherExpense, Description: "Realized exchange differences"},
		{Name: "Suspense", Type: model.Reconciliation},
	}
}
