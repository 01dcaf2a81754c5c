// Package fixture seeds an in-memory store for service tests.
package fixture

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/id"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

// Year is the fiscal year fixtures are booked in.
const Year = 2025

// Books is a seeded entity: reporting currency USD at rate 1, an active
// period for Year and one account of every type.
type Books struct {
	Store    *store.Memory
	Entity   model.Entity
	Currency model.Currency
	BaseRate model.ExchangeRate
	Period   model.ReportingPeriod
	Accounts map[model.AccountType]model.Account
}

// New seeds a fresh store.
func New(t testing.TB) *Books {
	t.Helper()
	b := &Books{Store: store.NewMemory(), Accounts: make(map[model.AccountType]model.Account)}

	b.do(t, func(ctx context.Context, r store.Repository) error {
		b.Entity = model.Entity{Name: "Example Company", YearStart: 1}
		require.NoError(t, r.InsertEntity(ctx, &b.Entity))

		b.Currency = model.Currency{EntityID: b.Entity.ID, Name: "US Dollar", CurrencyCode: "USD"}
		require.NoError(t, r.InsertCurrency(ctx, &b.Currency))

		b.BaseRate = model.ExchangeRate{
			EntityID: b.Entity.ID, CurrencyID: b.Currency.ID, Rate: decimal.NewFromInt(1),
			ValidFrom: time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC),
		}
		require.NoError(t, r.InsertExchangeRate(ctx, &b.BaseRate))

		b.Entity.CurrencyID = b.Currency.ID
		b.Entity.BaseRateID = b.BaseRate.ID
		require.NoError(t, r.UpdateEntity(ctx, &b.Entity))

		b.Period = model.ReportingPeriod{EntityID: b.Entity.ID, CalendarYear: Year, PeriodCount: 1, Status: model.PeriodActive}
		return r.InsertReportingPeriod(ctx, &b.Period)
	})

	for _, at := range model.AccountTypes {
		b.Accounts[at] = b.Account(t, at, at.Label()+" Account", b.Currency.ID)
	}
	return b
}

func (b *Books) do(t testing.TB, fn func(ctx context.Context, r store.Repository) error) {
	t.Helper()
	require.NoError(t, b.Store.Atomic(context.Background(), fn))
}

// Account adds an account, numbered the way the chart numbers them.
func (b *Books) Account(t testing.TB, at model.AccountType, name string, currencyID int64) model.Account {
	t.Helper()
	var a model.Account
	b.do(t, func(ctx context.Context, r store.Repository) error {
		seq, err := r.NextSequence(ctx, id.AccountCodeSequence(b.Entity.ID, string(at)))
		if err != nil {
			return err
		}
		a = model.Account{
			EntityID: b.Entity.ID, Name: name, AccountType: at, CurrencyID: currencyID,
			Code: config.DefaultCodeOffsets()[at] + int(seq),
		}
		return r.InsertAccount(ctx, &a)
	})
	return a
}

// ForeignCurrency adds a currency with one rate valid from the start of Year.
func (b *Books) ForeignCurrency(t testing.TB, code, rate string) (model.Currency, model.ExchangeRate) {
	t.Helper()
	var c model.Currency
	var x model.ExchangeRate
	b.do(t, func(ctx context.Context, r store.Repository) error {
		c = model.Currency{EntityID: b.Entity.ID, Name: code, CurrencyCode: code}
		if err := r.InsertCurrency(ctx, &c); err != nil {
			return err
		}
		x = model.ExchangeRate{EntityID: b.Entity.ID, CurrencyID: c.ID, Rate: Dec(rate), ValidFrom: Date(1, 1)}
		return r.InsertExchangeRate(ctx, &x)
	})
	return c, x
}

// Rate adds an extra exchange rate for a currency, valid from date.
func (b *Books) Rate(t testing.TB, currencyID int64, rate string, from time.Time) model.ExchangeRate {
	t.Helper()
	x := model.ExchangeRate{EntityID: b.Entity.ID, CurrencyID: currencyID, Rate: Dec(rate), ValidFrom: from}
	b.do(t, func(ctx context.Context, r store.Repository) error {
		return r.InsertExchangeRate(ctx, &x)
	})
	return x
}

// Vat adds a tax rate booked to the CONTROL account. A zero rate has no account.
func (b *Books) Vat(t testing.TB, rate string) model.Vat {
	t.Helper()
	v := model.Vat{EntityID: b.Entity.ID, Name: "VAT " + rate + "%", Code: "V" + rate, Rate: Dec(rate)}
	if !v.Rate.IsZero() {
		v.AccountID = b.Accounts[model.Control].ID
	}
	b.do(t, func(ctx context.Context, r store.Repository) error {
		return r.InsertVat(ctx, &v)
	})
	return v
}

// SetPeriodStatus changes the status of the fixture period.
func (b *Books) SetPeriodStatus(t testing.TB, status model.PeriodStatus) {
	t.Helper()
	b.Period.Status = status
	b.do(t, func(ctx context.Context, r store.Repository) error {
		return r.UpdateReportingPeriod(ctx, &b.Period)
	})
}

// AddPeriod adds a reporting period for another year.
func (b *Books) AddPeriod(t testing.TB, year int, status model.PeriodStatus) model.ReportingPeriod {
	t.Helper()
	var p model.ReportingPeriod
	b.do(t, func(ctx context.Context, r store.Repository) error {
		periods, err := r.ReportingPeriods(ctx, b.Entity.ID)
		if err != nil {
			return err
		}
		p = model.ReportingPeriod{EntityID: b.Entity.ID, CalendarYear: year, PeriodCount: len(periods) + 1, Status: status}
		return r.InsertReportingPeriod(ctx, &p)
	})
	return p
}

// Read runs fn in a unit of work for assertions.
func (b *Books) Read(t testing.TB, fn func(ctx context.Context, r store.Repository)) {
	t.Helper()
	b.do(t, func(ctx context.Context, r store.Repository) error {
		fn(ctx, r)
		return nil
	})
}

// Date returns a date in Year.
func Date(month, day int) time.Time {
	return time.Date(Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal, panicking on malformed input.
func Dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("fixture: bad decimal %q: %v", s, err))
	}
	return d
}
