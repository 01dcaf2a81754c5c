package store

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

// Memory is an in-process Store. Units are serialized by a mutex and work on
// a copy of the state that replaces the original only when the unit succeeds.
type Memory struct {
	mu    sync.Mutex
	state *memState
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

// Atomic implements Store.
func (m *Memory) Atomic(ctx context.Context, fn func(ctx context.Context, r Repository) error) error {
	if r, ok := UnitFrom(ctx, m); ok {
		return fn(ctx, r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.state.clone()
	r := &memRepo{st: work}
	if err := fn(WithUnit(ctx, m, r), r); err != nil {
		return err
	}
	m.state = work
	return nil
}

type table[T any] struct {
	rows map[int64]T
	next int64
}

func newTable[T any]() table[T] {
	return table[T]{rows: make(map[int64]T)}
}

func (t table[T]) clone() table[T] {
	return table[T]{rows: maps.Clone(t.rows), next: t.next}
}

func (t *table[T]) nextID() int64 {
	t.next++
	return t.next
}

func (t *table[T]) get(id int64) (*T, error) {
	v, ok := t.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}

func (t *table[T]) replace(id int64, v T) error {
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	t.rows[id] = v
	return nil
}

func (t *table[T]) remove(id int64) error {
	if _, ok := t.rows[id]; !ok {
		return ErrNotFound
	}
	delete(t.rows, id)
	return nil
}

// list returns copies of the matching rows in id order.
func (t *table[T]) list(match func(*T) bool) []*T {
	var out []*T
	for _, id := range slices.Sorted(maps.Keys(t.rows)) {
		v := t.rows[id]
		if match(&v) {
			out = append(out, &v)
		}
	}
	return out
}

type memState struct {
	seqs        map[string]int64
	entities    table[model.Entity]
	currencies  table[model.Currency]
	rates       table[model.ExchangeRate]
	periods     table[model.ReportingPeriod]
	categories  table[model.Category]
	accounts    table[model.Account]
	vats        table[model.Vat]
	txns        table[model.Transaction]
	lineItems   table[model.LineItem]
	ledgers     table[model.Ledger]
	balances    table[model.Balance]
	assignments table[model.Assignment]
	recycled    table[model.RecycledObject]
}

func newMemState() *memState {
	return &memState{
		seqs:        make(map[string]int64),
		entities:    newTable[model.Entity](),
		currencies:  newTable[model.Currency](),
		rates:       newTable[model.ExchangeRate](),
		periods:     newTable[model.ReportingPeriod](),
		categories:  newTable[model.Category](),
		accounts:    newTable[model.Account](),
		vats:        newTable[model.Vat](),
		txns:        newTable[model.Transaction](),
		lineItems:   newTable[model.LineItem](),
		ledgers:     newTable[model.Ledger](),
		balances:    newTable[model.Balance](),
		assignments: newTable[model.Assignment](),
		recycled:    newTable[model.RecycledObject](),
	}
}

func (s *memState) clone() *memState {
	return &memState{
		seqs:        maps.Clone(s.seqs),
		entities:    s.entities.clone(),
		currencies:  s.currencies.clone(),
		rates:       s.rates.clone(),
		periods:     s.periods.clone(),
		categories:  s.categories.clone(),
		accounts:    s.accounts.clone(),
		vats:        s.vats.clone(),
		txns:        s.txns.clone(),
		lineItems:   s.lineItems.clone(),
		ledgers:     s.ledgers.clone(),
		balances:    s.balances.clone(),
		assignments: s.assignments.clone(),
		recycled:    s.recycled.clone(),
	}
}

type memRepo struct {
	st *memState
}

func (r *memRepo) NextSequence(_ context.Context, key string) (int64, error) {
	r.st.seqs[key]++
	return r.st.seqs[key], nil
}

// LockEntity is a no-op: memory units are already serialized.
func (r *memRepo) LockEntity(context.Context, int64) error { return nil }

func (r *memRepo) InsertEntity(_ context.Context, e *model.Entity) error {
	e.ID = r.st.entities.nextID()
	r.st.entities.rows[e.ID] = *e
	return nil
}

func (r *memRepo) UpdateEntity(_ context.Context, e *model.Entity) error {
	return r.st.entities.replace(e.ID, *e)
}

func (r *memRepo) Entity(_ context.Context, id int64) (*model.Entity, error) {
	return r.st.entities.get(id)
}

func (r *memRepo) InsertCurrency(_ context.Context, c *model.Currency) error {
	c.ID = r.st.currencies.nextID()
	r.st.currencies.rows[c.ID] = *c
	return nil
}

func (r *memRepo) UpdateCurrency(_ context.Context, c *model.Currency) error {
	return r.st.currencies.replace(c.ID, *c)
}

func (r *memRepo) Currency(_ context.Context, id int64) (*model.Currency, error) {
	return r.st.currencies.get(id)
}

func (r *memRepo) Currencies(_ context.Context, entityID int64) ([]*model.Currency, error) {
	return r.st.currencies.list(func(c *model.Currency) bool {
		return c.EntityID == entityID && c.DeletedAt == nil
	}), nil
}

func (r *memRepo) InsertExchangeRate(_ context.Context, x *model.ExchangeRate) error {
	x.ID = r.st.rates.nextID()
	r.st.rates.rows[x.ID] = *x
	return nil
}

func (r *memRepo) ExchangeRate(_ context.Context, id int64) (*model.ExchangeRate, error) {
	return r.st.rates.get(id)
}

func (r *memRepo) ExchangeRates(_ context.Context, entityID, currencyID int64) ([]*model.ExchangeRate, error) {
	return r.st.rates.list(func(x *model.ExchangeRate) bool {
		return x.EntityID == entityID && (currencyID == 0 || x.CurrencyID == currencyID)
	}), nil
}

func (r *memRepo) InsertReportingPeriod(_ context.Context, p *model.ReportingPeriod) error {
	p.ID = r.st.periods.nextID()
	r.st.periods.rows[p.ID] = *p
	return nil
}

func (r *memRepo) UpdateReportingPeriod(_ context.Context, p *model.ReportingPeriod) error {
	return r.st.periods.replace(p.ID, *p)
}

func (r *memRepo) ReportingPeriod(_ context.Context, id int64) (*model.ReportingPeriod, error) {
	return r.st.periods.get(id)
}

func (r *memRepo) ReportingPeriods(_ context.Context, entityID int64) ([]*model.ReportingPeriod, error) {
	return r.st.periods.list(func(p *model.ReportingPeriod) bool { return p.EntityID == entityID }), nil
}

func (r *memRepo) InsertCategory(_ context.Context, c *model.Category) error {
	c.ID = r.st.categories.nextID()
	r.st.categories.rows[c.ID] = *c
	return nil
}

func (r *memRepo) Category(_ context.Context, id int64) (*model.Category, error) {
	return r.st.categories.get(id)
}

func (r *memRepo) Categories(_ context.Context, entityID int64) ([]*model.Category, error) {
	return r.st.categories.list(func(c *model.Category) bool {
		return c.EntityID == entityID && c.DeletedAt == nil
	}), nil
}

func (r *memRepo) InsertAccount(_ context.Context, a *model.Account) error {
	for _, other := range r.st.accounts.rows {
		if other.EntityID == a.EntityID && other.Code == a.Code {
			return fmt.Errorf("account code %d: %w", a.Code, ErrDuplicate)
		}
	}
	a.ID = r.st.accounts.nextID()
	r.st.accounts.rows[a.ID] = *a
	return nil
}

func (r *memRepo) UpdateAccount(_ context.Context, a *model.Account) error {
	for _, other := range r.st.accounts.rows {
		if other.ID != a.ID && other.EntityID == a.EntityID && other.Code == a.Code {
			return fmt.Errorf("account code %d: %w", a.Code, ErrDuplicate)
		}
	}
	return r.st.accounts.replace(a.ID, *a)
}

func (r *memRepo) Account(_ context.Context, id int64) (*model.Account, error) {
	return r.st.accounts.get(id)
}

func (r *memRepo) Accounts(_ context.Context, f AccountFilter) ([]*model.Account, error) {
	return r.st.accounts.list(func(a *model.Account) bool {
		switch {
		case f.EntityID != 0 && a.EntityID != f.EntityID,
			len(f.Types) > 0 && !slices.Contains(f.Types, a.AccountType),
			f.CategoryID != 0 && a.CategoryID != f.CategoryID,
			f.CurrencyID != 0 && a.CurrencyID != f.CurrencyID,
			!f.IncludeDeleted && a.DeletedAt != nil:
			return false
		}
		return true
	}), nil
}

func (r *memRepo) InsertVat(_ context.Context, v *model.Vat) error {
	v.ID = r.st.vats.nextID()
	r.st.vats.rows[v.ID] = *v
	return nil
}

func (r *memRepo) UpdateVat(_ context.Context, v *model.Vat) error {
	return r.st.vats.replace(v.ID, *v)
}

func (r *memRepo) Vat(_ context.Context, id int64) (*model.Vat, error) {
	return r.st.vats.get(id)
}

func (r *memRepo) Vats(_ context.Context, entityID int64) ([]*model.Vat, error) {
	return r.st.vats.list(func(v *model.Vat) bool {
		return v.EntityID == entityID && v.DeletedAt == nil
	}), nil
}

func (r *memRepo) InsertTransaction(_ context.Context, t *model.Transaction) error {
	t.ID = r.st.txns.nextID()
	r.st.txns.rows[t.ID] = *t
	return nil
}

func (r *memRepo) UpdateTransaction(_ context.Context, t *model.Transaction) error {
	return r.st.txns.replace(t.ID, *t)
}

func (r *memRepo) DeleteTransaction(_ context.Context, id int64) error {
	return r.st.txns.remove(id)
}

func (r *memRepo) Transaction(_ context.Context, id int64) (*model.Transaction, error) {
	return r.st.txns.get(id)
}

func (r *memRepo) Transactions(_ context.Context, f TransactionFilter) ([]*model.Transaction, error) {
	return r.st.txns.list(func(t *model.Transaction) bool {
		switch {
		case f.EntityID != 0 && t.EntityID != f.EntityID,
			f.AccountID != 0 && t.AccountID != f.AccountID,
			f.CurrencyID != 0 && t.CurrencyID != f.CurrencyID,
			f.ExchangeRateID != 0 && t.ExchangeRateID != f.ExchangeRateID,
			len(f.Types) > 0 && !slices.Contains(f.Types, t.TransactionType):
			return false
		}
		return true
	}), nil
}

func (r *memRepo) InsertLineItem(_ context.Context, l *model.LineItem) error {
	l.ID = r.st.lineItems.nextID()
	stored := *l
	stored.ExtraVatIDs = slices.Clone(l.ExtraVatIDs)
	r.st.lineItems.rows[l.ID] = stored
	return nil
}

func (r *memRepo) UpdateLineItem(_ context.Context, l *model.LineItem) error {
	stored := *l
	stored.ExtraVatIDs = slices.Clone(l.ExtraVatIDs)
	return r.st.lineItems.replace(l.ID, stored)
}

func (r *memRepo) DeleteLineItem(_ context.Context, id int64) error {
	return r.st.lineItems.remove(id)
}

func (r *memRepo) LineItem(_ context.Context, id int64) (*model.LineItem, error) {
	return r.st.lineItems.get(id)
}

func (r *memRepo) LineItems(_ context.Context, f LineItemFilter) ([]*model.LineItem, error) {
	return r.st.lineItems.list(func(l *model.LineItem) bool {
		switch {
		case f.EntityID != 0 && l.EntityID != f.EntityID,
			f.TransactionID != 0 && l.TransactionID != f.TransactionID,
			f.AccountID != 0 && l.AccountID != f.AccountID,
			f.VatID != 0 && !l.UsesVat(f.VatID):
			return false
		}
		return true
	}), nil
}

func (r *memRepo) NextLedgerID(context.Context) (int64, error) {
	return r.st.ledgers.nextID(), nil
}

func (r *memRepo) InsertLedger(_ context.Context, l *model.Ledger) error {
	if l.ID == 0 {
		return fmt.Errorf("inserting ledger row: id not reserved")
	}
	if _, ok := r.st.ledgers.rows[l.ID]; ok {
		return fmt.Errorf("ledger row %d: %w", l.ID, ErrDuplicate)
	}
	r.st.ledgers.rows[l.ID] = *l
	return nil
}

func (r *memRepo) UpdateLedger(_ context.Context, l *model.Ledger) error {
	return r.st.ledgers.replace(l.ID, *l)
}

func (r *memRepo) DeleteLedgers(_ context.Context, transactionID int64) error {
	for id, l := range r.st.ledgers.rows {
		if l.TransactionID == transactionID {
			delete(r.st.ledgers.rows, id)
		}
	}
	return nil
}

func (r *memRepo) Ledgers(_ context.Context, f LedgerFilter) ([]*model.Ledger, error) {
	return r.st.ledgers.list(func(l *model.Ledger) bool {
		switch {
		case f.EntityID != 0 && l.EntityID != f.EntityID,
			f.TransactionID != 0 && l.TransactionID != f.TransactionID,
			f.LineItemID != 0 && l.LineItemID != f.LineItemID,
			f.PostAccountID != 0 && l.PostAccountID != f.PostAccountID,
			f.AccountID != 0 && l.PostAccountID != f.AccountID && l.FolioAccountID != f.AccountID,
			f.CurrencyID != 0 && l.CurrencyID != f.CurrencyID,
			!f.From.IsZero() && l.PostingDate.Before(f.From),
			!f.To.IsZero() && l.PostingDate.After(f.To):
			return false
		}
		return true
	}), nil
}

func (r *memRepo) LastLedger(_ context.Context, entityID int64) (*model.Ledger, error) {
	var last *model.Ledger
	for _, l := range r.st.ledgers.rows {
		if l.EntityID != entityID {
			continue
		}
		if last == nil || l.ID > last.ID {
			row := l
			last = &row
		}
	}
	if last == nil {
		return nil, ErrNotFound
	}
	return last, nil
}

func (r *memRepo) InsertBalance(_ context.Context, b *model.Balance) error {
	b.ID = r.st.balances.nextID()
	r.st.balances.rows[b.ID] = *b
	return nil
}

func (r *memRepo) UpdateBalance(_ context.Context, b *model.Balance) error {
	return r.st.balances.replace(b.ID, *b)
}

func (r *memRepo) DeleteBalance(_ context.Context, id int64) error {
	return r.st.balances.remove(id)
}

func (r *memRepo) Balance(_ context.Context, id int64) (*model.Balance, error) {
	return r.st.balances.get(id)
}

func (r *memRepo) Balances(_ context.Context, f BalanceFilter) ([]*model.Balance, error) {
	return r.st.balances.list(func(b *model.Balance) bool {
		switch {
		case f.EntityID != 0 && b.EntityID != f.EntityID,
			f.AccountID != 0 && b.AccountID != f.AccountID,
			f.CurrencyID != 0 && b.CurrencyID != f.CurrencyID,
			f.ExchangeRateID != 0 && b.ExchangeRateID != f.ExchangeRateID,
			f.ReportingPeriodID != 0 && b.ReportingPeriodID != f.ReportingPeriodID:
			return false
		}
		return true
	}), nil
}

func (r *memRepo) InsertAssignment(_ context.Context, a *model.Assignment) error {
	a.ID = r.st.assignments.nextID()
	r.st.assignments.rows[a.ID] = *a
	return nil
}

func (r *memRepo) UpdateAssignment(_ context.Context, a *model.Assignment) error {
	return r.st.assignments.replace(a.ID, *a)
}

func (r *memRepo) DeleteAssignment(_ context.Context, id int64) error {
	return r.st.assignments.remove(id)
}

func (r *memRepo) Assignment(_ context.Context, id int64) (*model.Assignment, error) {
	return r.st.assignments.get(id)
}

func (r *memRepo) Assignments(_ context.Context, f AssignmentFilter) ([]*model.Assignment, error) {
	return r.st.assignments.list(func(a *model.Assignment) bool {
		switch {
		case f.EntityID != 0 && a.EntityID != f.EntityID,
			f.TransactionID != 0 && a.TransactionID != f.TransactionID,
			f.Cleared != nil && a.Cleared() != *f.Cleared,
			f.ForexTransactionID != 0 && a.ForexTransactionID != f.ForexTransactionID:
			return false
		}
		return true
	}), nil
}

func (r *memRepo) InsertRecycledObject(_ context.Context, o *model.RecycledObject) error {
	o.ID = r.st.recycled.nextID()
	r.st.recycled.rows[o.ID] = *o
	return nil
}

func (r *memRepo) RecycledObjects(_ context.Context, entityID int64) ([]*model.RecycledObject, error) {
	return r.st.recycled.list(func(o *model.RecycledObject) bool { return o.EntityID == entityID }), nil
}
