package ifrserr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorsIsMatchesKind(t *testing.T) {
	err := fmt.Errorf("posting: %w", NewNegativeAmount("LineItem"))

	assert.ErrorIs(t, err, ErrNegativeAmount)
	assert.NotErrorIs(t, err, ErrOverClearance)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, NegativeAmount, kind)

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestMessages(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{NewNegativeAmount("Balance"), "NegativeAmount: Balance Amount cannot be negative"},
		{
			NewUnassignableTransaction("Client Invoice", []string{"Client Receipt", "Credit Note"}),
			"UnassignableTransaction: Client Invoice Transaction cannot have assignments. Transaction to be assigned must be one of: Client Receipt, Credit Note",
		},
		{
			NewInsufficientBalance("Client Receipt", decimal.NewFromInt(50), "Client Invoice IN01/0001"),
			"InsufficientBalance: Client Receipt Transaction does not have sufficient balance to clear 50 of the Client Invoice IN01/0001",
		},
		{NewSelfClearance(), "SelfClearance: Transaction cannot clear itself"},
		{NewMissingReportingPeriod("Acme", 2025), "MissingReportingPeriod: Entity 'Acme' has no Reporting Period defined for the year 2025"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.Error())
	}
}

func TestParamsCarried(t *testing.T) {
	err := NewOverClearance("Supplier Bill BL01/0003", decimal.RequireFromString("12.5"))
	assert.Equal(t, "12.5", err.Params["amount"])
	assert.Equal(t, "Supplier Bill BL01/0003", err.Params["cleared"])
}

func TestCategories(t *testing.T) {
	tests := map[Kind]Category{
		MissingForexAccount:        Structural,
		InsufficientBalance:        Amount,
		InvalidClearanceEntry:      Consistency,
		MixedAssignment:            Lifecycle,
		UnclearableTransaction:     Compatibility,
		ClosedReportingPeriod:      Lifecycle,
		InvalidAccountClassBalance: Consistency,
	}
	for k, want := range tests {
		assert.Equal(t, want, k.Category(), k)
	}
	for k := range categories {
		assert.NotEmpty(t, k.Category())
	}
}
