package balances

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/fixture"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ledger"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/transactions"
)

var dec = fixture.Dec

func setup(t *testing.T) (*fixture.Books, *Service, *transactions.Service) {
	t.Helper()
	b := fixture.New(t)
	h, err := ledger.NewHasher("sha256", "secret")
	require.NoError(t, err)
	opts := transactions.Options{SingleCurrency: []model.AccountType{model.Bank}}
	txs := transactions.NewService(b.Store, ledger.NewService(b.Store, h, zerolog.Nop()), opts, zerolog.Nop())
	return b, NewService(b.Store, txs, opts, zerolog.Nop()), txs
}

func receivable(b *fixture.Books, amount string) *model.Balance {
	return &model.Balance{
		EntityID:        b.Entity.ID,
		AccountID:       b.Accounts[model.Receivable].ID,
		Year:            fixture.Year,
		BalanceType:     model.Debit,
		TransactionType: model.ClientInvoice,
		Amount:          dec(amount),
	}
}

func TestCreate(t *testing.T) {
	b, svc, _ := setup(t)
	ctx := context.Background()

	first := receivable(b, "50")
	require.NoError(t, svc.Create(ctx, first))
	assert.NotZero(t, first.ID)
	assert.Equal(t, "IN01/0001", first.TransactionNo)
	assert.Equal(t, b.Currency.ID, first.CurrencyID)
	assert.Equal(t, b.BaseRate.ID, first.ExchangeRateID)
	assert.Equal(t, b.Period.ID, first.ReportingPeriodID)
	assert.Equal(t, fixture.Date(1, 1).AddDate(0, 0, -1), first.TransactionDate)

	second := receivable(b, "75")
	require.NoError(t, svc.Create(ctx, second))
	assert.Equal(t, "IN01/0002", second.TransactionNo)

	jn := &model.Balance{
		EntityID: b.Entity.ID, AccountID: b.Accounts[model.Equity].ID, TransactionDate: fixture.Date(2, 1),
		BalanceType: model.Credit, TransactionType: model.JournalEntry, Amount: dec("10"),
	}
	require.NoError(t, svc.Create(ctx, jn))
	assert.Equal(t, fixture.Year, jn.Year)
	assert.Equal(t, "JN01/0001", jn.TransactionNo)

	got, err := svc.List(ctx, store.BalanceFilter{AccountID: b.Accounts[model.Receivable].ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	one, err := svc.Get(ctx, jn.ID)
	require.NoError(t, err)
	assert.True(t, one.Amount.Equal(dec("10")))
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *fixture.Books, bal *model.Balance)
		want   error
	}{
		{"negative", func(_ *fixture.Books, bal *model.Balance) { bal.Amount = dec("-1") }, ifrserr.ErrNegativeAmount},
		{"cash sale", func(_ *fixture.Books, bal *model.Balance) { bal.TransactionType = model.CashSale }, ifrserr.ErrInvalidBalanceTransaction},
		{"revenue account", func(b *fixture.Books, bal *model.Balance) {
			bal.AccountID = b.Accounts[model.OperatingRevenue].ID
		}, ifrserr.ErrInvalidAccountClassBalance},
		{"expense account", func(b *fixture.Books, bal *model.Balance) {
			bal.AccountID = b.Accounts[model.OtherExpense].ID
		}, ifrserr.ErrInvalidAccountClassBalance},
		{"no period", func(_ *fixture.Books, bal *model.Balance) { bal.Year = fixture.Year + 5 }, ifrserr.ErrMissingReportingPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, svc, _ := setup(t)
			bal := receivable(b, "10")
			tt.mutate(b, bal)
			assert.ErrorIs(t, svc.Create(context.Background(), bal), tt.want)
			assert.Zero(t, bal.ID)
		})
	}
}

func TestCreate_Messages(t *testing.T) {
	b, svc, _ := setup(t)
	bal := receivable(b, "10")
	bal.TransactionType = model.ClientReceipt
	err := svc.Create(context.Background(), bal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Client Invoice, Supplier Bill, Journal Entry")
}

func TestCreate_SingleCurrency(t *testing.T) {
	b, svc, _ := setup(t)
	ctx := context.Background()
	eur, _ := b.ForeignCurrency(t, "EUR", "1.25")
	early := b.Rate(t, eur.ID, "1.2", fixture.Date(1, 1).AddDate(-1, 0, 0))

	bal := &model.Balance{
		EntityID: b.Entity.ID, AccountID: b.Accounts[model.Bank].ID, CurrencyID: eur.ID, Year: fixture.Year,
		BalanceType: model.Debit, TransactionType: model.JournalEntry, Amount: dec("10"),
	}
	assert.ErrorIs(t, svc.Create(ctx, bal), ifrserr.ErrInvalidCurrency)

	// Multi-currency accounts take balances in any currency, at the rate
	// valid on the balance date.
	bal.AccountID = b.Accounts[model.Receivable].ID
	bal.TransactionType = model.ClientInvoice
	require.NoError(t, svc.Create(ctx, bal))
	assert.Equal(t, early.ID, bal.ExchangeRateID)
}

func TestCreate_ClosedPeriod(t *testing.T) {
	b, svc, _ := setup(t)
	b.SetPeriodStatus(t, model.PeriodClosed)
	assert.ErrorIs(t, svc.Create(context.Background(), receivable(b, "10")), ifrserr.ErrClosedReportingPeriod)
}

func TestCreate_AdjustingPeriod(t *testing.T) {
	b, svc, _ := setup(t)
	ctx := context.Background()
	b.SetPeriodStatus(t, model.PeriodAdjusting)

	bal := receivable(b, "10")
	assert.ErrorIs(t, svc.Create(ctx, bal), ifrserr.ErrAdjustingReportingPeriod)
	assert.Zero(t, bal.ID)

	bal.TransactionType = model.JournalEntry
	require.NoError(t, svc.Create(ctx, bal))
	assert.Equal(t, "JN01/0001", bal.TransactionNo)
}

func TestCreate_RoundsAmount(t *testing.T) {
	b, svc, _ := setup(t)
	bal := receivable(b, "10.123456")
	require.NoError(t, svc.Create(context.Background(), bal))
	assert.Equal(t, "10.1235", bal.Amount.String())

	b.Read(t, func(ctx context.Context, r store.Repository) {
		stored, err := r.Balance(ctx, bal.ID)
		require.NoError(t, err)
		assert.Equal(t, "10.1235", stored.Amount.String())
	})
}

func TestCreate_RetriedUnit(t *testing.T) {
	b, _, txs := setup(t)
	st := b.Conflicting(1)
	svc := NewService(st, txs, transactions.Options{}, zerolog.Nop())

	bal := receivable(b, "50")
	require.NoError(t, svc.Create(context.Background(), bal))
	assert.Equal(t, 2, st.Attempts)
	assert.Equal(t, "IN01/0001", bal.TransactionNo)

	got, err := svc.Get(context.Background(), bal.ID)
	require.NoError(t, err)
	assert.Equal(t, bal.TransactionNo, got.TransactionNo)
}

func TestDelete(t *testing.T) {
	b, svc, txs := setup(t)
	ctx := context.Background()

	bal := receivable(b, "50")
	require.NoError(t, svc.Create(ctx, bal))

	jn, err := txs.JournalEntry(ctx, transactions.Params{EntityID: b.Entity.ID, AccountID: b.Accounts[model.Receivable].ID, Date: fixture.Date(2, 1)})
	require.NoError(t, err)
	require.NoError(t, txs.AddLineItem(ctx, jn, &model.LineItem{AccountID: b.Accounts[model.NonOperatingRevenue].ID, Amount: dec("2")}))
	_, err = txs.Post(ctx, jn)
	require.NoError(t, err)

	require.NoError(t, b.Store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		return r.InsertAssignment(ctx, &model.Assignment{
			EntityID: b.Entity.ID, AssignmentDate: fixture.Date(2, 1), TransactionID: 999,
			ClearedID: bal.ID, ClearedType: model.ClearedBalance, Amount: dec("15"), ForexTransactionID: jn.ID,
		})
	}))

	require.NoError(t, svc.Delete(ctx, bal.ID))

	b.Read(t, func(ctx context.Context, r store.Repository) {
		_, err := r.Balance(ctx, bal.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = r.Transaction(ctx, jn.ID)
		assert.ErrorIs(t, err, store.ErrNotFound, "forex entries go with their assignment")
		ref := model.BalanceRef(bal.ID)
		asg, err := r.Assignments(ctx, store.AssignmentFilter{Cleared: &ref})
		require.NoError(t, err)
		assert.Empty(t, asg)
		recycled, err := r.RecycledObjects(ctx, b.Entity.ID)
		require.NoError(t, err)
		assert.Len(t, recycled, 2)
	})

	_, err = svc.Get(ctx, bal.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
