package ledger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/fixture"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/metrics"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

var dec = fixture.Dec

func newService(t *testing.T, b *fixture.Books) *Service {
	t.Helper()
	h, err := NewHasher("sha256", "test-secret")
	require.NoError(t, err)
	return NewService(b.Store, h, zerolog.Nop())
}

// invoice stores a draft client invoice with one line item per amount.
func invoice(t *testing.T, b *fixture.Books, vatID int64, rateID int64, amounts ...string) *model.Transaction {
	t.Helper()
	tx := &model.Transaction{
		EntityID:        b.Entity.ID,
		AccountID:       b.Accounts[model.Receivable].ID,
		CurrencyID:      b.Currency.ID,
		ExchangeRateID:  rateID,
		TransactionDate: fixture.Date(3, 10),
		TransactionType: model.ClientInvoice,
		TransactionNo:   "IN01/0001",
	}
	require.NoError(t, b.Store.Atomic(context.Background(), func(ctx context.Context, r store.Repository) error {
		if err := r.InsertTransaction(ctx, tx); err != nil {
			return err
		}
		for _, a := range amounts {
			item := &model.LineItem{
				EntityID: b.Entity.ID, TransactionID: tx.ID, VatID: vatID,
				AccountID: b.Accounts[model.OperatingRevenue].ID, Amount: dec(a), Quantity: dec("1"),
			}
			if err := r.InsertLineItem(ctx, item); err != nil {
				return err
			}
		}
		return nil
	}))
	return tx
}

func TestPost_WithVat(t *testing.T) {
	b := fixture.New(t)
	svc := newService(t, b)
	vat := b.Vat(t, "16")
	tx := invoice(t, b, vat.ID, b.BaseRate.ID, "100")

	rows, err := svc.Post(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	receivable := b.Accounts[model.Receivable].ID
	revenue := b.Accounts[model.OperatingRevenue].ID
	control := b.Accounts[model.Control].ID

	assert.Equal(t, model.Debit, rows[0].EntryType)
	assert.Equal(t, receivable, rows[0].PostAccountID)
	assert.Equal(t, revenue, rows[0].FolioAccountID)
	assert.True(t, rows[0].Amount.Equal(dec("100")))
	assert.Equal(t, model.Credit, rows[1].EntryType)
	assert.Equal(t, revenue, rows[1].PostAccountID)

	assert.Equal(t, control, rows[2].FolioAccountID)
	assert.True(t, rows[2].Amount.Equal(dec("16")))
	assert.Equal(t, control, rows[3].PostAccountID)
	assert.Equal(t, model.Credit, rows[3].EntryType)

	ctx := context.Background()
	bal, err := svc.Balance(ctx, receivable, 0, fixture.Date(1, 1), fixture.Date(12, 31))
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("116")), "got %s", bal)

	bal, err = svc.Balance(ctx, control, 0, fixture.Date(1, 1), fixture.Date(12, 31))
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("-16")), "got %s", bal)
}

func TestPost_MultipleVats(t *testing.T) {
	tests := []struct {
		name     string
		compound bool
		second   string
		total    string
	}{
		{"added", false, "2", "118"},
		{"compound", true, "2.32", "118.32"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := fixture.New(t)
			svc := newService(t, b)
			ctx := context.Background()
			vat := b.Vat(t, "16")
			levy := b.Vat(t, "2")
			zero := b.Vat(t, "0")
			tx := invoice(t, b, vat.ID, b.BaseRate.ID, "100")
			require.NoError(t, b.Store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
				items, err := r.LineItems(ctx, store.LineItemFilter{TransactionID: tx.ID})
				if err != nil {
					return err
				}
				items[0].ExtraVatIDs = []int64{levy.ID, zero.ID}
				items[0].CompoundVat = tt.compound
				return r.UpdateLineItem(ctx, items[0])
			}))

			rows, err := svc.Post(ctx, tx.ID)
			require.NoError(t, err)
			require.Len(t, rows, 6, "zero-rated taxes post nothing")
			assert.Equal(t, vat.ID, rows[2].VatID)
			assert.True(t, rows[2].Amount.Equal(dec("16")))
			assert.Equal(t, levy.ID, rows[4].VatID)
			assert.Equal(t, levy.ID, rows[5].VatID)
			assert.True(t, rows[4].Amount.Equal(dec(tt.second)), rows[4].Amount.String())
			assert.Empty(t, ValidateRows(rows, nil))

			bal, err := svc.Balance(ctx, b.Accounts[model.Receivable].ID, 0, time.Time{}, time.Time{})
			require.NoError(t, err)
			assert.True(t, bal.Equal(dec(tt.total)), "got %s", bal)
		})
	}
}

func TestPost_Credited(t *testing.T) {
	b := fixture.New(t)
	svc := newService(t, b)
	tx := invoice(t, b, 0, b.BaseRate.ID, "40")
	tx.Credited = true
	require.NoError(t, b.Store.Atomic(context.Background(), func(ctx context.Context, r store.Repository) error {
		return r.UpdateTransaction(ctx, tx)
	}))

	rows, err := svc.Post(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.Credit, rows[0].EntryType)
	assert.Equal(t, tx.AccountID, rows[0].PostAccountID)
	assert.Equal(t, model.Debit, rows[1].EntryType)
}

func TestPost_ForeignRate(t *testing.T) {
	b := fixture.New(t)
	svc := newService(t, b)
	_, eur := b.ForeignCurrency(t, "EUR", "1.1")
	tx := invoice(t, b, 0, eur.ID, "50", "25")

	rows, err := svc.Post(context.Background(), tx.ID)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.True(t, rows[0].Amount.Equal(dec("55")))
	assert.True(t, rows[2].Amount.Equal(dec("27.5")))
}

func TestPost_StoredScale(t *testing.T) {
	b := fixture.New(t)
	svc := newService(t, b)
	ctx := context.Background()
	_, eur := b.ForeignCurrency(t, "EUR", "1.23456789")
	tx := invoice(t, b, 0, eur.ID, "1.2345")

	rows, err := svc.Post(ctx, tx.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "1.52407406", rows[0].Amount.String())

	// A numeric(24,8) column hands amounts back padded to eight places.
	require.NoError(t, b.Store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		stored, err := r.Ledgers(ctx, store.LedgerFilter{TransactionID: tx.ID})
		if err != nil {
			return err
		}
		for _, row := range stored {
			row.Amount = decimal.RequireFromString(row.Amount.StringFixed(model.LedgerScale))
			if err := r.UpdateLedger(ctx, row); err != nil {
				return err
			}
		}
		return nil
	}))

	ok, err := svc.HasIntegrity(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	breaks, err := svc.VerifyChain(ctx, b.Entity.ID)
	require.NoError(t, err)
	assert.Empty(t, breaks)
}

func TestPost_Repost(t *testing.T) {
	b := fixture.New(t)
	svc := newService(t, b)
	ctx := context.Background()
	tx := invoice(t, b, 0, b.BaseRate.ID, "100")

	_, err := svc.Post(ctx, tx.ID)
	require.NoError(t, err)
	_, err = svc.Post(ctx, tx.ID)
	require.NoError(t, err)

	rows, err := svc.Rows(ctx, store.LedgerFilter{TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Len(t, rows, 2, "re-posting replaces rows")

	bal, err := svc.Balance(ctx, tx.AccountID, 0, fixture.Date(1, 1), fixture.Date(12, 31))
	require.NoError(t, err)
	assert.True(t, bal.Equal(dec("100")))

	breaks, err := svc.VerifyChain(ctx, b.Entity.ID)
	require.NoError(t, err)
	assert.Empty(t, breaks)
}

func TestPost_MissingLineItem(t *testing.T) {
	b := fixture.New(t)
	svc := newService(t, b)
	tx := invoice(t, b, 0, b.BaseRate.ID)

	_, err := svc.Post(context.Background(), tx.ID)
	assert.ErrorIs(t, err, ifrserr.ErrMissingLineItem)
}

func TestPost_UnknownAccount(t *testing.T) {
	b := fixture.New(t)
	svc := newService(t, b)
	tx := invoice(t, b, 0, b.BaseRate.ID, "10")
	require.NoError(t, b.Store.Atomic(context.Background(), func(ctx context.Context, r store.Repository) error {
		items, err := r.LineItems(ctx, store.LineItemFilter{TransactionID: tx.ID})
		if err != nil {
			return err
		}
		items[0].AccountID = 9999
		return r.UpdateLineItem(ctx, items[0])
	}))

	_, err := svc.Post(context.Background(), tx.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown account 9999")

	rows, err := svc.Rows(context.Background(), store.LedgerFilter{TransactionID: tx.ID})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestPost_Metrics(t *testing.T) {
	b := fixture.New(t)
	svc := newService(t, b)
	tx := invoice(t, b, 0, b.BaseRate.ID, "1", "2", "3")

	rowsBefore := testutil.ToFloat64(metrics.LedgerRowsWritten)
	postedBefore := testutil.ToFloat64(metrics.TransactionsPosted.WithLabelValues("IN"))

	_, err := svc.Post(context.Background(), tx.ID)
	require.NoError(t, err)

	assert.Equal(t, rowsBefore+6, testutil.ToFloat64(metrics.LedgerRowsWritten))
	assert.Equal(t, postedBefore+1, testutil.ToFloat64(metrics.TransactionsPosted.WithLabelValues("IN")))
}

func TestHasIntegrity(t *testing.T) {
	b := fixture.New(t)
	svc := newService(t, b)
	ctx := context.Background()
	first := invoice(t, b, 0, b.BaseRate.ID, "100")
	second := invoice(t, b, 0, b.BaseRate.ID, "70")
	_, err := svc.Post(ctx, first.ID)
	require.NoError(t, err)
	_, err = svc.Post(ctx, second.ID)
	require.NoError(t, err)

	ok, err := svc.HasIntegrity(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	failuresBefore := testutil.ToFloat64(metrics.IntegrityFailures)
	require.NoError(t, b.Store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		rows, err := r.Ledgers(ctx, store.LedgerFilter{TransactionID: first.ID})
		if err != nil {
			return err
		}
		rows[0].Amount = dec("1000")
		return r.UpdateLedger(ctx, rows[0])
	}))

	ok, err = svc.HasIntegrity(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, failuresBefore+1, testutil.ToFloat64(metrics.IntegrityFailures))

	ok, err = svc.HasIntegrity(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	breaks, err := svc.VerifyChain(ctx, b.Entity.ID)
	require.NoError(t, err)
	require.Len(t, breaks, 1)
	assert.Equal(t, "hash does not match row", breaks[0].Reason)
}

func TestVerifyRows_Linkage(t *testing.T) {
	h, err := NewHasher("sha512", "s")
	require.NoError(t, err)

	rows := make([]*model.Ledger, 4)
	prev := ""
	for i := range rows {
		rows[i] = &model.Ledger{ID: int64(i + 1), EntityID: 1, TransactionID: 1, EntryType: model.Debit, Amount: decimal.NewFromInt(int64(i))}
		h.Seal(rows[i], prev)
		prev = rows[i].Hash
	}
	assert.Empty(t, VerifyRows(rows, h))

	// A removed row leaves a chain to a hash no longer present.
	assert.Empty(t, VerifyRows([]*model.Ledger{rows[0], rows[2], rows[3]}, h))

	// Resealing a row onto an older head forks the chain.
	forked := *rows[3]
	h.Seal(&forked, rows[1].Hash)
	breaks := VerifyRows([]*model.Ledger{rows[0], rows[1], rows[2], &forked}, h)
	require.Len(t, breaks, 1)
	assert.Equal(t, int64(4), breaks[0].LedgerID)
	assert.Equal(t, "ledger 4: chains to row 2 instead of row 3", breaks[0].String())
}

func TestHasher(t *testing.T) {
	row := &model.Ledger{ID: 7, EntityID: 1, TransactionID: 3, EntryType: model.Credit, Amount: dec("12.50"), PostingDate: fixture.Date(1, 2)}

	digests := make(map[string]bool)
	for _, algo := range Algorithms {
		h, err := NewHasher(algo, "secret")
		require.NoError(t, err, algo)
		d := h.Digest(row)
		assert.NotEmpty(t, d)
		assert.False(t, digests[d], "%s collides", algo)
		digests[d] = true
		assert.Equal(t, algo, h.Algorithm())
	}

	h, err := NewHasher("sha256", "secret")
	require.NoError(t, err)
	other, err := NewHasher("sha256", "other")
	require.NoError(t, err)
	assert.NotEqual(t, h.Digest(row), other.Digest(row), "the secret seeds the first row")

	same := *row
	same.Amount = dec("12.5")
	assert.Equal(t, h.Digest(row), h.Digest(&same), "equal amounts hash equally")

	_, err = NewHasher("md5", "secret")
	assert.Error(t, err)
	_, err = NewHasher("sha256", "")
	assert.Error(t, err)
}

func TestExportRoundTrip(t *testing.T) {
	b := fixture.New(t)
	svc := newService(t, b)
	ctx := context.Background()
	vat := b.Vat(t, "7.5")
	tx := invoice(t, b, vat.ID, b.BaseRate.ID, "33.33")
	_, err := svc.Post(ctx, tx.ID)
	require.NoError(t, err)

	rows, err := svc.Rows(ctx, store.LedgerFilter{EntityID: b.Entity.ID})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteRows(&buf, rows))
	got, err := ReadRows(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(rows))
	assert.Empty(t, VerifyRows(got, svc.Hasher()), "exported rows still verify")
	assert.True(t, got[2].Amount.Equal(dec("2.499750")))
}
