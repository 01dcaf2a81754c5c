// Package ifrserr defines the bookkeeping rule violations. Every rejected
// operation returns an *Error whose Kind names the violated rule.
package ifrserr

import (
	"errors"
	"fmt"
)

// Kind names one bookkeeping rule.
type Kind string

const (
	MissingAccountType     Kind = "MissingAccountType"
	MissingLineItem        Kind = "MissingLineItem"
	MissingForexAccount    Kind = "MissingForexAccount"
	MissingVatAccount      Kind = "MissingVatAccount"
	MissingReportingPeriod Kind = "MissingReportingPeriod"

	NegativeAmount      Kind = "NegativeAmount"
	InsufficientBalance Kind = "InsufficientBalance"
	OverClearance       Kind = "OverClearance"

	InvalidClearanceAccount    Kind = "InvalidClearanceAccount"
	InvalidClearanceCurrency   Kind = "InvalidClearanceCurrency"
	InvalidClearanceEntry      Kind = "InvalidClearanceEntry"
	InvalidBalanceTransaction  Kind = "InvalidBalanceTransaction"
	InvalidAccountClassBalance Kind = "InvalidAccountClassBalance"
	InvalidCategoryType        Kind = "InvalidCategoryType"
	InvalidCurrency            Kind = "InvalidCurrency"

	PostedTransaction        Kind = "PostedTransaction"
	UnpostedAssignment       Kind = "UnpostedAssignment"
	ClosedReportingPeriod    Kind = "ClosedReportingPeriod"
	AdjustingReportingPeriod Kind = "AdjustingReportingPeriod"
	HangingTransactions      Kind = "HangingTransactions"
	HangingClearances        Kind = "HangingClearances"
	RedundantTransaction     Kind = "RedundantTransaction"
	SelfClearance            Kind = "SelfClearance"
	MixedAssignment          Kind = "MixedAssignment"

	UnassignableTransaction Kind = "UnassignableTransaction"
	UnclearableTransaction  Kind = "UnclearableTransaction"
	LineItemAccount         Kind = "LineItemAccount"
	MainAccount             Kind = "MainAccount"
)

// Category groups kinds by the nature of the violation.
type Category string

const (
	Structural    Category = "structural"
	Amount        Category = "amount"
	Consistency   Category = "consistency"
	Lifecycle     Category = "lifecycle"
	Compatibility Category = "compatibility"
)

var categories = map[Kind]Category{
	MissingAccountType:         Structural,
	MissingLineItem:            Structural,
	MissingForexAccount:        Structural,
	MissingVatAccount:          Structural,
	MissingReportingPeriod:     Structural,
	NegativeAmount:             Amount,
	InsufficientBalance:        Amount,
	OverClearance:              Amount,
	InvalidClearanceAccount:    Consistency,
	InvalidClearanceCurrency:   Consistency,
	InvalidClearanceEntry:      Consistency,
	InvalidBalanceTransaction:  Consistency,
	InvalidAccountClassBalance: Consistency,
	InvalidCategoryType:        Consistency,
	InvalidCurrency:            Consistency,
	PostedTransaction:          Lifecycle,
	UnpostedAssignment:         Lifecycle,
	ClosedReportingPeriod:      Lifecycle,
	AdjustingReportingPeriod:   Lifecycle,
	HangingTransactions:        Lifecycle,
	HangingClearances:          Lifecycle,
	RedundantTransaction:       Lifecycle,
	SelfClearance:              Lifecycle,
	MixedAssignment:            Lifecycle,
	UnassignableTransaction:    Compatibility,
	UnclearableTransaction:     Compatibility,
	LineItemAccount:            Compatibility,
	MainAccount:                Compatibility,
}

// Category returns the group k belongs to.
func (k Kind) Category() Category {
	return categories[k]
}

// Error is a rejected bookkeeping operation.
type Error struct {
	Kind    Kind
	Message string
	Params  map[string]any
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so the package sentinels work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func newError(k Kind, params map[string]any, format string, args ...any) *Error {
	return &Error{Kind: k, Message: fmt.Sprintf(format, args...), Params: params}
}

// Sentinels for errors.Is.
var (
	ErrMissingAccountType         = &Error{Kind: MissingAccountType}
	ErrMissingLineItem            = &Error{Kind: MissingLineItem}
	ErrMissingForexAccount        = &Error{Kind: MissingForexAccount}
	ErrMissingVatAccount          = &Error{Kind: MissingVatAccount}
	ErrMissingReportingPeriod     = &Error{Kind: MissingReportingPeriod}
	ErrNegativeAmount             = &Error{Kind: NegativeAmount}
	ErrInsufficientBalance        = &Error{Kind: InsufficientBalance}
	ErrOverClearance              = &Error{Kind: OverClearance}
	ErrInvalidClearanceAccount    = &Error{Kind: InvalidClearanceAccount}
	ErrInvalidClearanceCurrency   = &Error{Kind: InvalidClearanceCurrency}
	ErrInvalidClearanceEntry      = &Error{Kind: InvalidClearanceEntry}
	ErrInvalidBalanceTransaction  = &Error{Kind: InvalidBalanceTransaction}
	ErrInvalidAccountClassBalance = &Error{Kind: InvalidAccountClassBalance}
	ErrInvalidCategoryType        = &Error{Kind: InvalidCategoryType}
	ErrInvalidCurrency            = &Error{Kind: InvalidCurrency}
	ErrPostedTransaction          = &Error{Kind: PostedTransaction}
	ErrUnpostedAssignment         = &Error{Kind: UnpostedAssignment}
	ErrClosedReportingPeriod      = &Error{Kind: ClosedReportingPeriod}
	ErrAdjustingReportingPeriod   = &Error{Kind: AdjustingReportingPeriod}
	ErrHangingTransactions        = &Error{Kind: HangingTransactions}
	ErrHangingClearances          = &Error{Kind: HangingClearances}
	ErrRedundantTransaction       = &Error{Kind: RedundantTransaction}
	ErrSelfClearance              = &Error{Kind: SelfClearance}
	ErrMixedAssignment            = &Error{Kind: MixedAssignment}
	ErrUnassignableTransaction    = &Error{Kind: UnassignableTransaction}
	ErrUnclearableTransaction     = &Error{Kind: UnclearableTransaction}
	ErrLineItemAccount            = &Error{Kind: LineItemAccount}
	ErrMainAccount                = &Error{Kind: MainAccount}
)
