package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

// ValidationError describes a single invariant violation in a set of rows.
type ValidationError struct {
	Invariant   int
	Ref         string
	Description string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invariant %d [%s]: %s", e.Invariant, e.Ref, e.Description)
}

// AccountChecker tests whether an account exists in the chart of accounts.
type AccountChecker interface {
	Exists(id int64) bool
}

// ValidateRows enforces the double-entry invariants on the rows of one or
// more transactions. Rows are expected in the order BuildRows produces them.
func ValidateRows(rows []*model.Ledger, accounts AccountChecker) []ValidationError {
	var errs []ValidationError

	// Group rows by transaction.
	groups := make(map[int64][]*model.Ledger)
	var order []int64
	for _, row := range rows {
		if _, seen := groups[row.TransactionID]; !seen {
			order = append(order, row.TransactionID)
		}
		groups[row.TransactionID] = append(groups[row.TransactionID], row)
	}

	// Invariant 1: each transaction's debits equal its credits.
	for _, txID := range order {
		debit, credit := decimal.Zero, decimal.Zero
		for _, row := range groups[txID] {
			switch row.EntryType {
			case model.Debit:
				debit = debit.Add(row.Amount)
			case model.Credit:
				credit = credit.Add(row.Amount)
			}
		}
		if !debit.Equal(credit) {
			errs = append(errs, ValidationError{
				Invariant:   1,
				Ref:         txRef(txID),
				Description: fmt.Sprintf("debits (%s) != credits (%s)", debit, credit),
			})
		}
	}

	for _, row := range rows {
		ref := rowRef(row)

		// Invariant 2: known entry type and non-negative amount.
		if row.EntryType != model.Debit && row.EntryType != model.Credit {
			errs = append(errs, ValidationError{Invariant: 2, Ref: ref, Description: fmt.Sprintf("unknown entry type %q", row.EntryType)})
		}
		if row.Amount.IsNegative() {
			errs = append(errs, ValidationError{Invariant: 2, Ref: ref, Description: fmt.Sprintf("negative amount %s", row.Amount)})
		}

		// Invariant 3: both accounts exist and differ.
		for _, acct := range []int64{row.PostAccountID, row.FolioAccountID} {
			if accounts != nil && !accounts.Exists(acct) {
				errs = append(errs, ValidationError{Invariant: 3, Ref: ref, Description: fmt.Sprintf("unknown account %d", acct)})
			}
		}
		if row.PostAccountID == row.FolioAccountID {
			errs = append(errs, ValidationError{Invariant: 3, Ref: ref, Description: "post and folio accounts are the same"})
		}
	}

	// Invariant 4: rows come in mirrored pairs.
	for _, txID := range order {
		group := groups[txID]
		if len(group)%2 != 0 {
			errs = append(errs, ValidationError{Invariant: 4, Ref: txRef(txID), Description: fmt.Sprintf("odd number of rows (%d)", len(group))})
			continue
		}
		for i := 0; i < len(group); i += 2 {
			a, b := group[i], group[i+1]
			if !mirrored(a, b) {
				errs = append(errs, ValidationError{Invariant: 4, Ref: rowRef(a), Description: "row is not mirrored by the next row"})
			}
		}
	}

	// Invariant 5: one posting date per transaction.
	for _, txID := range order {
		group := groups[txID]
		for _, row := range group[1:] {
			if !row.PostingDate.Equal(group[0].PostingDate) {
				errs = append(errs, ValidationError{
					Invariant:   5,
					Ref:         rowRef(row),
					Description: fmt.Sprintf("posting date %s differs from %s", row.PostingDate.Format("2006-01-02"), group[0].PostingDate.Format("2006-01-02")),
				})
			}
		}
	}

	return errs
}

func mirrored(a, b *model.Ledger) bool {
	return a.LineItemID == b.LineItemID &&
		a.VatID == b.VatID &&
		a.Amount.Equal(b.Amount) &&
		a.EntryType == b.EntryType.Opposite() &&
		a.PostAccountID == b.FolioAccountID &&
		a.FolioAccountID == b.PostAccountID
}

func txRef(txID int64) string { return fmt.Sprintf("transaction %d", txID) }

func rowRef(row *model.Ledger) string {
	return fmt.Sprintf("transaction %d line %d", row.TransactionID, row.LineItemID)
}
