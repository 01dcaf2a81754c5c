package ifrserr

import (
	"strings"

	"github.com/shopspring/decimal"
)

// NewMissingAccountType: subject is the record that lacks a type.
func NewMissingAccountType(subject string) *Error {
	return newError(MissingAccountType, map[string]any{"subject": subject},
		"%s must have a valid Account Type", subject)
}

func NewMissingLineItem(transactionNo string) *Error {
	return newError(MissingLineItem, map[string]any{"transaction_no": transactionNo},
		"Transaction %s must have at least one LineItem to be posted", transactionNo)
}

func NewMissingForexAccount(transactionNo, clearedNo string) *Error {
	return newError(MissingForexAccount, map[string]any{"transaction_no": transactionNo, "cleared_no": clearedNo},
		"A Forex Differences Account is required to assign %s to %s at a different exchange rate", transactionNo, clearedNo)
}

func NewMissingVatAccount(rate decimal.Decimal) *Error {
	return newError(MissingVatAccount, map[string]any{"rate": rate.String()},
		"Vat with a rate of %s%% must have an Account", rate.String())
}

func NewMissingReportingPeriod(entityName string, year int) *Error {
	return newError(MissingReportingPeriod, map[string]any{"entity": entityName, "year": year},
		"Entity '%s' has no Reporting Period defined for the year %d", entityName, year)
}

// NewNegativeAmount: subject is the record carrying the amount.
func NewNegativeAmount(subject string) *Error {
	return newError(NegativeAmount, map[string]any{"subject": subject},
		"%s Amount cannot be negative", subject)
}

func NewInsufficientBalance(transactionLabel string, amount decimal.Decimal, clearedLabel string) *Error {
	return newError(InsufficientBalance,
		map[string]any{"transaction": transactionLabel, "amount": amount.String(), "cleared": clearedLabel},
		"%s Transaction does not have sufficient balance to clear %s of the %s", transactionLabel, amount.String(), clearedLabel)
}

func NewOverClearance(clearedLabel string, amount decimal.Decimal) *Error {
	return newError(OverClearance, map[string]any{"cleared": clearedLabel, "amount": amount.String()},
		"%s amount remaining to be cleared is less than %s", clearedLabel, amount.String())
}

func NewInvalidClearanceAccount() *Error {
	return newError(InvalidClearanceAccount, nil,
		"Assigned and Cleared Transactions must have the same main account")
}

func NewInvalidClearanceCurrency() *Error {
	return newError(InvalidClearanceCurrency, nil,
		"Assigned and Cleared Transactions must have the same currency")
}

func NewInvalidClearanceEntry(transactionEntry, clearedEntry string) *Error {
	return newError(InvalidClearanceEntry, map[string]any{"transaction_entry": transactionEntry, "cleared_entry": clearedEntry},
		"Transaction Entry type %s must be the opposite of the Cleared Entry type %s", transactionEntry, clearedEntry)
}

func NewInvalidBalanceTransaction(allowed []string) *Error {
	return newError(InvalidBalanceTransaction, map[string]any{"allowed": allowed},
		"Opening Balance Transaction must be one of: %s", strings.Join(allowed, ", "))
}

func NewInvalidAccountClassBalance(accountType string) *Error {
	return newError(InvalidAccountClassBalance, map[string]any{"account_type": accountType},
		"Income Statement Accounts cannot have Opening Balances, %s given", accountType)
}

func NewInvalidCategoryType(accountType, categoryType string) *Error {
	return newError(InvalidCategoryType, map[string]any{"account_type": accountType, "category_type": categoryType},
		"Cannot assign %s Account to %s Category", accountType, categoryType)
}

// NewInvalidCurrency: subject is the record whose currency differs from the account's.
func NewInvalidCurrency(subject, accountName string) *Error {
	return newError(InvalidCurrency, map[string]any{"subject": subject, "account": accountName},
		"%s Currency must be the same as the %s Account Currency", subject, accountName)
}

// NewPostedTransaction: action describes the rejected change, e.g. "add a LineItem to".
func NewPostedTransaction(action string) *Error {
	return newError(PostedTransaction, map[string]any{"action": action},
		"Cannot %s a posted Transaction", action)
}

func NewUnpostedAssignment() *Error {
	return newError(UnpostedAssignment, nil,
		"An Unposted Transaction cannot be Assigned or Cleared")
}

func NewClosedReportingPeriod(year int) *Error {
	return newError(ClosedReportingPeriod, map[string]any{"year": year},
		"Transaction cannot be saved because the Reporting Period for %d is closed", year)
}

func NewAdjustingReportingPeriod(year int) *Error {
	return newError(AdjustingReportingPeriod, map[string]any{"year": year},
		"Only Journal Entry Transactions can be saved while the Reporting Period for %d is adjusting", year)
}

// NewHangingTransactions: subject is the record being deleted.
func NewHangingTransactions(subject string, count int) *Error {
	return newError(HangingTransactions, map[string]any{"subject": subject, "count": count},
		"%s cannot be deleted because it has %d dependent record(s)", subject, count)
}

func NewHangingClearances(transactionLabel string, count int) *Error {
	return newError(HangingClearances, map[string]any{"transaction": transactionLabel, "count": count},
		"%s Transaction cannot be deleted because it has been used to clear %d other Transaction(s)", transactionLabel, count)
}

func NewRedundantTransaction() *Error {
	return newError(RedundantTransaction, nil,
		"A Transaction Main Account cannot be one of the LineItem Accounts")
}

func NewSelfClearance() *Error {
	return newError(SelfClearance, nil, "Transaction cannot clear itself")
}

func NewMixedAssignment(previous, current string) *Error {
	return newError(MixedAssignment, map[string]any{"previous": previous, "current": current},
		"A Transaction that has been %s cannot be %s", previous, current)
}

func NewUnassignableTransaction(transactionLabel string, allowed []string) *Error {
	return newError(UnassignableTransaction, map[string]any{"transaction": transactionLabel, "allowed": allowed},
		"%s Transaction cannot have assignments. Transaction to be assigned must be one of: %s",
		transactionLabel, strings.Join(allowed, ", "))
}

func NewUnclearableTransaction(transactionLabel string, allowed []string) *Error {
	return newError(UnclearableTransaction, map[string]any{"transaction": transactionLabel, "allowed": allowed},
		"%s Transaction cannot be cleared. Transaction to be cleared must be one of: %s",
		transactionLabel, strings.Join(allowed, ", "))
}

func NewLineItemAccount(transactionLabel string, allowed []string) *Error {
	return newError(LineItemAccount, map[string]any{"transaction": transactionLabel, "allowed": allowed},
		"%s LineItem Account must be of type %s", transactionLabel, strings.Join(allowed, ", "))
}

func NewMainAccount(transactionLabel string, allowed []string) *Error {
	return newError(MainAccount, map[string]any{"transaction": transactionLabel, "allowed": allowed},
		"%s Main Account must be of type %s", transactionLabel, strings.Join(allowed, ", "))
}
