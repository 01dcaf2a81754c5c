package transactions

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/fixture"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ifrserr"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ledger"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

var dec = fixture.Dec

func setup(t *testing.T) (*fixture.Books, *Service) {
	t.Helper()
	b := fixture.New(t)
	h, err := ledger.NewHasher("sha256", "secret")
	require.NoError(t, err)
	led := ledger.NewService(b.Store, h, zerolog.Nop())
	return b, NewService(b.Store, led, Options{SingleCurrency: []model.AccountType{model.Bank}}, zerolog.Nop())
}

func item(b *fixture.Books, at model.AccountType, amount string) *model.LineItem {
	return &model.LineItem{AccountID: b.Accounts[at].ID, Amount: dec(amount), Quantity: dec("1")}
}

func params(b *fixture.Books, at model.AccountType) Params {
	return Params{EntityID: b.Entity.ID, AccountID: b.Accounts[at].ID, Date: fixture.Date(3, 1), Narration: "test"}
}

func newInvoice(t *testing.T, b *fixture.Books, svc *Service, amounts ...string) *Transaction {
	t.Helper()
	tx, err := svc.ClientInvoice(context.Background(), params(b, model.Receivable))
	require.NoError(t, err)
	for _, a := range amounts {
		require.NoError(t, svc.AddLineItem(context.Background(), tx, item(b, model.OperatingRevenue, a)))
	}
	return tx
}

func TestNew_Defaults(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()

	tx, err := svc.ClientInvoice(ctx, params(b, model.Receivable))
	require.NoError(t, err)
	assert.Equal(t, b.Currency.ID, tx.CurrencyID)
	assert.Equal(t, b.BaseRate.ID, tx.ExchangeRateID)
	assert.False(t, tx.IsCredited())
	assert.Zero(t, tx.ID, "new transactions are not saved")

	bill, err := svc.SupplierBill(ctx, params(b, model.Payable))
	require.NoError(t, err)
	assert.True(t, bill.IsCredited())

	debit := false
	p := params(b, model.Equity)
	p.Credited = &debit
	jn, err := svc.JournalEntry(ctx, p)
	require.NoError(t, err)
	assert.False(t, jn.IsCredited())

	eur, rate := b.ForeignCurrency(t, "EUR", "1.1")
	p = params(b, model.Receivable)
	p.CurrencyID = eur.ID
	tx, err = svc.ClientInvoice(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, rate.ID, tx.ExchangeRateID)

	p.Date = fixture.Date(1, 1).AddDate(-1, 0, 0)
	_, err = svc.ClientInvoice(ctx, p)
	assert.Error(t, err, "no EUR rate before the fixture year")

	_, err = svc.New(ctx, "XX", params(b, model.Receivable))
	assert.Error(t, err)
}

func TestConstructors(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()

	ctors := map[model.TransactionType]func(context.Context, Params) (*Transaction, error){
		model.CashSale:        svc.CashSale,
		model.ClientInvoice:   svc.ClientInvoice,
		model.CreditNote:      svc.CreditNote,
		model.ClientReceipt:   svc.ClientReceipt,
		model.CashPurchase:    svc.CashPurchase,
		model.SupplierBill:    svc.SupplierBill,
		model.DebitNote:       svc.DebitNote,
		model.SupplierPayment: svc.SupplierPayment,
		model.ContraEntry:     svc.ContraEntry,
		model.JournalEntry:    svc.JournalEntry,
	}
	require.Len(t, ctors, len(model.TransactionTypes))
	for tt, ctor := range ctors {
		tx, err := ctor(ctx, params(b, model.Equity))
		require.NoError(t, err, tt)
		assert.Equal(t, tt, tx.TransactionType)
		assert.Equal(t, Rules[tt].Credited, tx.Credited, tt)
	}
}

func TestSave_Numbering(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()

	first := newInvoice(t, b, svc, "10")
	require.NoError(t, svc.Save(ctx, first))
	second := newInvoice(t, b, svc, "20")
	require.NoError(t, svc.Save(ctx, second))
	bill, err := svc.SupplierBill(ctx, params(b, model.Payable))
	require.NoError(t, err)
	require.NoError(t, svc.AddLineItem(ctx, bill, item(b, model.OperatingExpense, "5")))
	require.NoError(t, svc.Save(ctx, bill))

	assert.Equal(t, "IN01/0001", first.TransactionNo)
	assert.Equal(t, "IN01/0002", second.TransactionNo)
	assert.Equal(t, "BL01/0001", bill.TransactionNo)

	// Resaving keeps the number.
	require.NoError(t, svc.Save(ctx, first))
	assert.Equal(t, "IN01/0001", first.TransactionNo)

	next := b.AddPeriod(t, fixture.Year+1, model.PeriodActive)
	later, err := svc.ClientInvoice(ctx, Params{EntityID: b.Entity.ID, AccountID: b.Accounts[model.Receivable].ID, Date: fixture.Date(3, 1).AddDate(1, 0, 0)})
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx, later))
	assert.Equal(t, 2, next.PeriodCount)
	assert.Equal(t, "IN02/0001", later.TransactionNo)

	b.Read(t, func(ctx context.Context, r store.Repository) {
		items, err := r.LineItems(ctx, store.LineItemFilter{TransactionID: first.ID})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, b.Entity.ID, items[0].EntityID)
	})
	assert.Empty(t, first.Pending())
	assert.NotZero(t, first.LineItems()[0].ID, "saved ids are visible through the handle")
}

func TestSave_PeriodStatus(t *testing.T) {
	tests := []struct {
		name   string
		status model.PeriodStatus
		txType model.TransactionType
		want   error
	}{
		{"active invoice", model.PeriodActive, model.ClientInvoice, nil},
		{"adjusting journal", model.PeriodAdjusting, model.JournalEntry, nil},
		{"adjusting invoice", model.PeriodAdjusting, model.ClientInvoice, ifrserr.ErrAdjustingReportingPeriod},
		{"closed journal", model.PeriodClosed, model.JournalEntry, ifrserr.ErrClosedReportingPeriod},
		{"closed invoice", model.PeriodClosed, model.ClientInvoice, ifrserr.ErrClosedReportingPeriod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, svc := setup(t)
			ctx := context.Background()
			b.SetPeriodStatus(t, tt.status)

			tx, err := svc.New(ctx, tt.txType, params(b, model.Receivable))
			require.NoError(t, err)
			li := item(b, model.OperatingRevenue, "10")
			require.NoError(t, svc.AddLineItem(ctx, tx, li))

			err = svc.Save(ctx, tx)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, tx.ID, "failed saves leave the handle unsaved")
			assert.Empty(t, tx.TransactionNo)
			assert.Zero(t, li.ID)
			assert.Len(t, tx.Pending(), 1)
		})
	}
}

func TestSave_MissingPeriod(t *testing.T) {
	b, svc := setup(t)
	p := params(b, model.Receivable)
	p.Date = fixture.Date(6, 1).AddDate(3, 0, 0)
	tx, err := svc.ClientInvoice(context.Background(), p)
	require.NoError(t, err)

	err = svc.Save(context.Background(), tx)
	assert.ErrorIs(t, err, ifrserr.ErrMissingReportingPeriod)
}

func TestSave_InvalidCurrency(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	eur, _ := b.ForeignCurrency(t, "EUR", "1.2")

	p := params(b, model.Bank)
	p.CurrencyID = eur.ID
	sale, err := svc.CashSale(ctx, p)
	require.NoError(t, err)
	require.NoError(t, svc.AddLineItem(ctx, sale, item(b, model.OperatingRevenue, "10")))
	assert.ErrorIs(t, svc.Save(ctx, sale), ifrserr.ErrInvalidCurrency)

	// A EUR bank account accepts EUR receipts on a multi-currency receivable.
	eurBank := b.Account(t, model.Bank, "EUR Bank", eur.ID)
	p = params(b, model.Receivable)
	p.CurrencyID = eur.ID
	receipt, err := svc.ClientReceipt(ctx, p)
	require.NoError(t, err)
	require.NoError(t, svc.AddLineItem(ctx, receipt, &model.LineItem{AccountID: eurBank.ID, Amount: dec("10")}))
	require.NoError(t, svc.Save(ctx, receipt))
}

func TestAddLineItem(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	tx := newInvoice(t, b, svc)

	err := svc.AddLineItem(ctx, tx, item(b, model.Receivable, "10"))
	assert.ErrorIs(t, err, ifrserr.ErrRedundantTransaction)

	err = svc.AddLineItem(ctx, tx, item(b, model.OperatingRevenue, "-1"))
	assert.ErrorIs(t, err, ifrserr.ErrNegativeAmount)

	li := item(b, model.OperatingRevenue, "10")
	require.NoError(t, svc.AddLineItem(ctx, tx, li))
	require.NoError(t, svc.AddLineItem(ctx, tx, li))
	assert.Len(t, tx.LineItems(), 1)

	require.NoError(t, svc.Save(ctx, tx))
	require.NoError(t, svc.AddLineItem(ctx, tx, &model.LineItem{ID: li.ID, AccountID: li.AccountID, Amount: li.Amount}))
	assert.Len(t, tx.LineItems(), 1, "items are de-duplicated by id")

	_, err = svc.Post(ctx, tx)
	require.NoError(t, err)
	err = svc.AddLineItem(ctx, tx, item(b, model.OperatingRevenue, "5"))
	assert.ErrorIs(t, err, ifrserr.ErrPostedTransaction)

	other := newInvoice(t, b, svc)
	err = svc.AddLineItem(ctx, other, &model.LineItem{ID: li.ID, AccountID: li.AccountID, Amount: li.Amount})
	assert.ErrorIs(t, err, ifrserr.ErrPostedTransaction, "posted line items cannot move")
}

func TestRemoveLineItem(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	tx := newInvoice(t, b, svc, "10", "20")
	items := tx.LineItems()

	require.NoError(t, svc.RemoveLineItem(ctx, tx, items[1]))
	assert.Len(t, tx.LineItems(), 1)
	require.NoError(t, svc.Save(ctx, tx))

	require.NoError(t, svc.RemoveLineItem(ctx, tx, items[0]))
	assert.Empty(t, tx.LineItems())
	require.NoError(t, svc.AddLineItem(ctx, tx, items[0]))
	assert.Len(t, tx.LineItems(), 1, "re-adding restores the removed item")

	require.NoError(t, svc.RemoveLineItem(ctx, tx, items[0]))
	require.NoError(t, svc.Save(ctx, tx))
	b.Read(t, func(ctx context.Context, r store.Repository) {
		got, err := r.LineItems(ctx, store.LineItemFilter{TransactionID: tx.ID})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	posted := newInvoice(t, b, svc, "10")
	_, err := svc.Post(ctx, posted)
	require.NoError(t, err)
	err = svc.RemoveLineItem(ctx, posted, posted.LineItems()[0])
	assert.ErrorIs(t, err, ifrserr.ErrPostedTransaction)
}

func TestPost_ClientInvoiceWithVat(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	vat := b.Vat(t, "16")

	tx := newInvoice(t, b, svc)
	li := item(b, model.OperatingRevenue, "100")
	li.VatID = vat.ID
	require.NoError(t, svc.AddLineItem(ctx, tx, li))

	draft, err := svc.Amount(ctx, tx)
	require.NoError(t, err)
	assert.True(t, draft.Equal(dec("116")), "draft amount %s", draft)

	rows, err := svc.Post(ctx, tx)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
	assert.True(t, tx.IsPosted())

	amount, err := svc.Amount(ctx, tx)
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("116")), "posted amount %s", amount)

	ok, err := svc.HasIntegrity(ctx, tx)
	require.NoError(t, err)
	assert.True(t, ok)

	loaded, err := svc.Load(ctx, tx.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsPosted())
	assert.Len(t, loaded.LineItems(), 1)
}

func TestAmount_CompoundVat(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	vat := b.Vat(t, "16")
	levy := b.Vat(t, "2")

	tx := newInvoice(t, b, svc)
	li := item(b, model.OperatingRevenue, "100")
	li.VatID = vat.ID
	li.ExtraVatIDs = []int64{levy.ID}
	li.CompoundVat = true
	require.NoError(t, svc.AddLineItem(ctx, tx, li))

	draft, err := svc.Amount(ctx, tx)
	require.NoError(t, err)
	assert.True(t, draft.Equal(dec("118.32")), "draft amount %s", draft)

	rows, err := svc.Post(ctx, tx)
	require.NoError(t, err)
	assert.Len(t, rows, 6)

	amount, err := svc.Amount(ctx, tx)
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("118.32")), "posted amount %s", amount)

	// The tax list is part of the posted line item.
	posted := tx.LineItems()[0]
	posted.ExtraVatIDs = nil
	assert.ErrorIs(t, svc.SaveLineItem(ctx, posted), ifrserr.ErrPostedTransaction)
}

func TestPost_Idempotent(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	tx := newInvoice(t, b, svc, "100", "50")

	_, err := svc.Post(ctx, tx)
	require.NoError(t, err)
	_, err = svc.Post(ctx, tx)
	require.NoError(t, err)

	amount, err := svc.Amount(ctx, tx)
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("150")))
	b.Read(t, func(ctx context.Context, r store.Repository) {
		rows, err := r.Ledgers(ctx, store.LedgerFilter{TransactionID: tx.ID})
		require.NoError(t, err)
		assert.Len(t, rows, 4)
	})
}

func TestPost_ForeignCurrencyAmount(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	eur, _ := b.ForeignCurrency(t, "EUR", "1.1")

	p := params(b, model.Receivable)
	p.CurrencyID = eur.ID
	tx, err := svc.ClientInvoice(ctx, p)
	require.NoError(t, err)
	require.NoError(t, svc.AddLineItem(ctx, tx, item(b, model.OperatingRevenue, "100")))
	rows, err := svc.Post(ctx, tx)
	require.NoError(t, err)
	assert.True(t, rows[0].Amount.Equal(dec("110")))

	amount, err := svc.Amount(ctx, tx)
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("100")), "amount %s", amount)
}

func TestAmount_PostedRounding(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	eur, _ := b.ForeignCurrency(t, "EUR", "1.23456789")

	p := params(b, model.Receivable)
	p.CurrencyID = eur.ID
	tx, err := svc.ClientInvoice(ctx, p)
	require.NoError(t, err)
	require.NoError(t, svc.AddLineItem(ctx, tx, item(b, model.OperatingRevenue, "1.2345")))
	rows, err := svc.Post(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, "1.52407406", rows[0].Amount.String())

	amount, err := svc.Amount(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, "1.2345", amount.String())
}

func TestSaveLineItem_RoundsToScale(t *testing.T) {
	b, svc := setup(t)
	tx := newInvoice(t, b, svc)
	li := item(b, model.OperatingRevenue, "10.00005")
	li.Quantity = dec("2.123449")
	require.NoError(t, svc.AddLineItem(context.Background(), tx, li))
	require.NoError(t, svc.Save(context.Background(), tx))

	b.Read(t, func(ctx context.Context, r store.Repository) {
		items, err := r.LineItems(ctx, store.LineItemFilter{TransactionID: tx.ID})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "10.0001", items[0].Amount.String())
		assert.Equal(t, "2.1234", items[0].Quantity.String())
	})
}

func TestSave_RetriedUnit(t *testing.T) {
	b, _ := setup(t)
	ctx := context.Background()
	st := b.Conflicting(0)
	h, err := ledger.NewHasher("sha256", "secret")
	require.NoError(t, err)
	svc := NewService(st, ledger.NewService(st, h, zerolog.Nop()), Options{}, zerolog.Nop())

	tx := newInvoice(t, b, svc, "10")
	st.Conflicts, st.Attempts = 1, 0
	require.NoError(t, svc.Save(ctx, tx))
	assert.Equal(t, 2, st.Attempts)
	assert.Equal(t, "IN01/0001", tx.TransactionNo)
	require.Len(t, tx.LineItems(), 1)
	assert.NotZero(t, tx.LineItems()[0].ID)

	next := newInvoice(t, b, svc, "20")
	st.Conflicts = 1
	rows, err := svc.Post(ctx, next)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "IN01/0002", next.TransactionNo)
	assert.True(t, next.IsPosted())

	b.Read(t, func(ctx context.Context, r store.Repository) {
		txs, err := r.Transactions(ctx, store.TransactionFilter{EntityID: b.Entity.ID})
		require.NoError(t, err)
		assert.Len(t, txs, 2)
		ledgers, err := r.Ledgers(ctx, store.LedgerFilter{TransactionID: next.ID})
		require.NoError(t, err)
		assert.Len(t, ledgers, 2)
	})
}

func TestPost_MissingLineItem(t *testing.T) {
	b, svc := setup(t)
	tx := newInvoice(t, b, svc)
	_, err := svc.Post(context.Background(), tx)
	assert.ErrorIs(t, err, ifrserr.ErrMissingLineItem)
}

func TestPost_AccountRules(t *testing.T) {
	tests := []struct {
		name   string
		txType model.TransactionType
		main   model.AccountType
		line   model.AccountType
		want   error
	}{
		{"cash sale", model.CashSale, model.Bank, model.OperatingRevenue, nil},
		{"invoice to bank", model.ClientInvoice, model.Bank, model.OperatingRevenue, ifrserr.ErrMainAccount},
		{"invoice for expense", model.ClientInvoice, model.Receivable, model.OperatingExpense, ifrserr.ErrLineItemAccount},
		{"receipt", model.ClientReceipt, model.Receivable, model.Bank, nil},
		{"cash purchase of inventory", model.CashPurchase, model.Bank, model.Inventory, nil},
		{"bill for revenue", model.SupplierBill, model.Payable, model.OperatingRevenue, ifrserr.ErrLineItemAccount},
		{"payment", model.SupplierPayment, model.Payable, model.Bank, nil},
		{"debit note", model.DebitNote, model.Payable, model.DirectExpense, nil},
		{"credit note", model.CreditNote, model.Receivable, model.OperatingRevenue, nil},
		{"contra", model.ContraEntry, model.Bank, model.Receivable, ifrserr.ErrLineItemAccount},
		{"journal", model.JournalEntry, model.Equity, model.Reconciliation, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, svc := setup(t)
			ctx := context.Background()
			tx, err := svc.New(ctx, tt.txType, params(b, tt.main))
			require.NoError(t, err)
			require.NoError(t, svc.AddLineItem(ctx, tx, item(b, tt.line, "10")))

			_, err = svc.Post(ctx, tx)
			if tt.want == nil {
				require.NoError(t, err)
				assert.True(t, tx.IsPosted())
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.False(t, tx.IsPosted())
		})
	}
}

func TestPost_ContraEntry(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	savings := b.Account(t, model.Bank, "Savings", b.Currency.ID)

	tx, err := svc.ContraEntry(ctx, params(b, model.Bank))
	require.NoError(t, err)
	require.NoError(t, svc.AddLineItem(ctx, tx, &model.LineItem{AccountID: savings.ID, Amount: dec("30")}))
	_, err = svc.Post(ctx, tx)
	require.NoError(t, err)
}

func TestPost_MainAccountMessage(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	tx, err := svc.ClientInvoice(ctx, params(b, model.Bank))
	require.NoError(t, err)
	require.NoError(t, svc.AddLineItem(ctx, tx, item(b, model.OperatingRevenue, "10")))

	_, err = svc.Post(ctx, tx)
	require.Error(t, err)
	assert.Equal(t, "MainAccount: Client Invoice Main Account must be of type Receivable", err.Error())
}

func TestPost_Validator(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	blocked := errors.New("reference required")
	svc.RegisterValidator(model.ClientInvoice, func(_ context.Context, _ store.Repository, t *Transaction) error {
		if t.Reference == "" {
			return blocked
		}
		return nil
	})

	tx := newInvoice(t, b, svc, "10")
	_, err := svc.Post(ctx, tx)
	assert.ErrorIs(t, err, blocked)
	assert.Zero(t, tx.ID)

	tx.Reference = "PO-1"
	_, err = svc.Post(ctx, tx)
	require.NoError(t, err)
}

func TestPostedImmutability(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	tx := newInvoice(t, b, svc, "10")
	_, err := svc.Post(ctx, tx)
	require.NoError(t, err)

	li := *tx.LineItems()[0]
	li.Amount = dec("99")
	assert.ErrorIs(t, svc.SaveLineItem(ctx, &li), ifrserr.ErrPostedTransaction)

	li = *tx.LineItems()[0]
	require.NoError(t, svc.SaveLineItem(ctx, &li), "unchanged items save")

	tx.Narration = "renamed"
	require.NoError(t, svc.Save(ctx, tx), "descriptive fields may change")

	tx.TransactionDate = fixture.Date(4, 1)
	assert.ErrorIs(t, svc.Save(ctx, tx), ifrserr.ErrPostedTransaction)
}

func TestSaveLineItem(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()

	li := item(b, model.OperatingRevenue, "10")
	li.EntityID = b.Entity.ID
	require.NoError(t, svc.SaveLineItem(ctx, li))
	assert.NotZero(t, li.ID)

	li.Amount = dec("12")
	require.NoError(t, svc.SaveLineItem(ctx, li))

	li.Amount = dec("-12")
	assert.ErrorIs(t, svc.SaveLineItem(ctx, li), ifrserr.ErrNegativeAmount)

	// A detached item can be attached to a draft.
	li.Amount = dec("12")
	tx := newInvoice(t, b, svc)
	require.NoError(t, svc.AddLineItem(ctx, tx, li))
	_, err := svc.Post(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.ID, li.TransactionID)
}

func TestAmount_Draft(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	vat := b.Vat(t, "10")

	tx := newInvoice(t, b, svc, "20")
	li := &model.LineItem{AccountID: b.Accounts[model.OperatingRevenue].ID, Amount: dec("5"), Quantity: dec("3"), VatID: vat.ID}
	require.NoError(t, svc.AddLineItem(ctx, tx, li))

	amount, err := svc.Amount(ctx, tx)
	require.NoError(t, err)
	assert.True(t, amount.Equal(dec("36.5")), "20 + 15 * 1.1, got %s", amount)
}

func TestDelete(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()

	inv := newInvoice(t, b, svc, "100")
	_, err := svc.Post(ctx, inv)
	require.NoError(t, err)
	receipt, err := svc.ClientReceipt(ctx, params(b, model.Receivable))
	require.NoError(t, err)
	require.NoError(t, svc.AddLineItem(ctx, receipt, item(b, model.Bank, "100")))
	_, err = svc.Post(ctx, receipt)
	require.NoError(t, err)

	require.NoError(t, b.Store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
		return r.InsertAssignment(ctx, &model.Assignment{
			EntityID: b.Entity.ID, AssignmentDate: fixture.Date(3, 2), TransactionID: receipt.ID,
			ClearedID: inv.ID, ClearedType: model.ClearedTransaction, Amount: dec("40"),
		})
	}))

	err = svc.Delete(ctx, receipt.ID)
	assert.ErrorIs(t, err, ifrserr.ErrHangingClearances)

	require.NoError(t, svc.Delete(ctx, inv.ID))
	b.Read(t, func(ctx context.Context, r store.Repository) {
		_, err := r.Transaction(ctx, inv.ID)
		assert.ErrorIs(t, err, store.ErrNotFound)
		rows, err := r.Ledgers(ctx, store.LedgerFilter{TransactionID: inv.ID})
		require.NoError(t, err)
		assert.Empty(t, rows)
		asg, err := r.Assignments(ctx, store.AssignmentFilter{TransactionID: receipt.ID})
		require.NoError(t, err)
		assert.Empty(t, asg, "clearances of the deleted transaction go with it")
		recycled, err := r.RecycledObjects(ctx, b.Entity.ID)
		require.NoError(t, err)
		require.Len(t, recycled, 1)
		assert.Equal(t, inv.ID, recycled[0].RecyclableID)
	})

	require.NoError(t, svc.Delete(ctx, receipt.ID))
}

func TestDelete_ClosedPeriod(t *testing.T) {
	b, svc := setup(t)
	ctx := context.Background()
	inv := newInvoice(t, b, svc, "100")
	_, err := svc.Post(ctx, inv)
	require.NoError(t, err)

	b.SetPeriodStatus(t, model.PeriodClosed)
	assert.ErrorIs(t, svc.Delete(ctx, inv.ID), ifrserr.ErrClosedReportingPeriod)
}
