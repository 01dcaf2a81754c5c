package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/fixture"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

var knownAccounts = accountSet{1: true, 2: true, 3: true}

func pairRows(amount string) []*model.Ledger {
	post := &model.Ledger{TransactionID: 1, LineItemID: 1, PostAccountID: 1, FolioAccountID: 2, EntryType: model.Debit, Amount: dec(amount), PostingDate: fixture.Date(1, 15)}
	mirror := *post
	mirror.PostAccountID, mirror.FolioAccountID = 2, 1
	mirror.EntryType = model.Credit
	return []*model.Ledger{post, &mirror}
}

func TestValidateRows_Balanced(t *testing.T) {
	assert.Empty(t, ValidateRows(pairRows("100"), knownAccounts))
}

func TestValidateRows(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(rows []*model.Ledger) []*model.Ledger
		invariant int
	}{
		{"unbalanced", func(rows []*model.Ledger) []*model.Ledger {
			rows[1].Amount = dec("99")
			return rows
		}, 1},
		{"negative", func(rows []*model.Ledger) []*model.Ledger {
			rows[0].Amount = dec("-5")
			rows[1].Amount = dec("-5")
			return rows
		}, 2},
		{"unknown entry type", func(rows []*model.Ledger) []*model.Ledger {
			rows[0].EntryType = "SIDEWAYS"
			return rows
		}, 2},
		{"unknown account", func(rows []*model.Ledger) []*model.Ledger {
			rows[0].FolioAccountID = 42
			rows[1].PostAccountID = 42
			return rows
		}, 3},
		{"same account", func(rows []*model.Ledger) []*model.Ledger {
			for _, r := range rows {
				r.PostAccountID, r.FolioAccountID = 1, 1
			}
			return rows
		}, 3},
		{"odd rows", func(rows []*model.Ledger) []*model.Ledger {
			extra := *rows[0]
			extra.EntryType = model.Credit
			extra2 := *rows[1]
			extra2.EntryType = model.Debit
			return append(rows, &extra, &extra2)[:3]
		}, 4},
		{"not mirrored", func(rows []*model.Ledger) []*model.Ledger {
			rows[1].LineItemID = 2
			return rows
		}, 4},
		{"date mismatch", func(rows []*model.Ledger) []*model.Ledger {
			rows[1].PostingDate = fixture.Date(1, 16)
			return rows
		}, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateRows(tt.mutate(pairRows("100")), knownAccounts)
			require.NotEmpty(t, errs)
			found := false
			for _, e := range errs {
				if e.Invariant == tt.invariant {
					found = true
				}
			}
			assert.True(t, found, "expected invariant %d, got %v", tt.invariant, errs)
		})
	}
}

func TestValidateRows_NilChecker(t *testing.T) {
	rows := pairRows("10")
	rows[0].FolioAccountID, rows[1].PostAccountID = 77, 77
	assert.Empty(t, ValidateRows(rows, nil))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Invariant: 4, Ref: "transaction 3 line 9", Description: "row is not mirrored by the next row"}
	assert.Equal(t, "invariant 4 [transaction 3 line 9]: row is not mirrored by the next row", e.Error())
}
