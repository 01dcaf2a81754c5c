package pgstore

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

type repo struct {
	tx bun.Tx
}

func insert[T any](ctx context.Context, tx bun.Tx, v *T) error {
	_, err := tx.NewInsert().Model(v).Returning("id").Exec(ctx)
	return mapErr(err)
}

func update[T any](ctx context.Context, tx bun.Tx, v *T) error {
	res, err := tx.NewUpdate().Model(v).WherePK().Exec(ctx)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func get[T any](ctx context.Context, tx bun.Tx, id int64) (*T, error) {
	v := new(T)
	if err := tx.NewSelect().Model(v).Where("?TableAlias.id = ?", id).Scan(ctx); err != nil {
		return nil, mapErr(err)
	}
	return v, nil
}

func remove[T any](ctx context.Context, tx bun.Tx, id int64) error {
	res, err := tx.NewDelete().Model((*T)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *repo) NextSequence(ctx context.Context, key string) (int64, error) {
	var v int64
	err := r.tx.NewRaw(`INSERT INTO sequences (key, value) VALUES (?, 1)
		ON CONFLICT (key) DO UPDATE SET value = sequences.value + 1
		RETURNING value`, key).Scan(ctx, &v)
	return v, mapErr(err)
}

func (r *repo) LockEntity(ctx context.Context, entityID int64) error {
	_, err := r.tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(?)", entityID)
	return mapErr(err)
}

func (r *repo) InsertEntity(ctx context.Context, e *model.Entity) error { return insert(ctx, r.tx, e) }
func (r *repo) UpdateEntity(ctx context.Context, e *model.Entity) error { return update(ctx, r.tx, e) }
func (r *repo) Entity(ctx context.Context, id int64) (*model.Entity, error) {
	return get[model.Entity](ctx, r.tx, id)
}

func (r *repo) InsertCurrency(ctx context.Context, c *model.Currency) error {
	return insert(ctx, r.tx, c)
}
func (r *repo) UpdateCurrency(ctx context.Context, c *model.Currency) error {
	return update(ctx, r.tx, c)
}
func (r *repo) Currency(ctx context.Context, id int64) (*model.Currency, error) {
	return get[model.Currency](ctx, r.tx, id)
}

func (r *repo) Currencies(ctx context.Context, entityID int64) ([]*model.Currency, error) {
	var out []*model.Currency
	err := r.tx.NewSelect().Model(&out).
		Where("entity_id = ?", entityID).
		Where("deleted_at IS NULL").
		Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) InsertExchangeRate(ctx context.Context, x *model.ExchangeRate) error {
	return insert(ctx, r.tx, x)
}
func (r *repo) ExchangeRate(ctx context.Context, id int64) (*model.ExchangeRate, error) {
	return get[model.ExchangeRate](ctx, r.tx, id)
}

func (r *repo) ExchangeRates(ctx context.Context, entityID, currencyID int64) ([]*model.ExchangeRate, error) {
	var out []*model.ExchangeRate
	q := r.tx.NewSelect().Model(&out).Where("entity_id = ?", entityID)
	if currencyID != 0 {
		q = q.Where("currency_id = ?", currencyID)
	}
	err := q.Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) InsertReportingPeriod(ctx context.Context, p *model.ReportingPeriod) error {
	return insert(ctx, r.tx, p)
}
func (r *repo) UpdateReportingPeriod(ctx context.Context, p *model.ReportingPeriod) error {
	return update(ctx, r.tx, p)
}
func (r *repo) ReportingPeriod(ctx context.Context, id int64) (*model.ReportingPeriod, error) {
	return get[model.ReportingPeriod](ctx, r.tx, id)
}

func (r *repo) ReportingPeriods(ctx context.Context, entityID int64) ([]*model.ReportingPeriod, error) {
	var out []*model.ReportingPeriod
	err := r.tx.NewSelect().Model(&out).Where("entity_id = ?", entityID).Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) InsertCategory(ctx context.Context, c *model.Category) error {
	return insert(ctx, r.tx, c)
}
func (r *repo) Category(ctx context.Context, id int64) (*model.Category, error) {
	return get[model.Category](ctx, r.tx, id)
}
func (r *repo) Categories(ctx context.Context, entityID int64) ([]*model.Category, error) {
	var out []*model.Category
	err := r.tx.NewSelect().Model(&out).
		Where("entity_id = ?", entityID).
		Where("deleted_at IS NULL").
		Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) InsertAccount(ctx context.Context, a *model.Account) error { return insert(ctx, r.tx, a) }
func (r *repo) UpdateAccount(ctx context.Context, a *model.Account) error { return update(ctx, r.tx, a) }
func (r *repo) Account(ctx context.Context, id int64) (*model.Account, error) {
	return get[model.Account](ctx, r.tx, id)
}

func (r *repo) Accounts(ctx context.Context, f store.AccountFilter) ([]*model.Account, error) {
	var out []*model.Account
	q := r.tx.NewSelect().Model(&out)
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if len(f.Types) > 0 {
		q = q.Where("account_type IN (?)", bun.In(f.Types))
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.CurrencyID != 0 {
		q = q.Where("currency_id = ?", f.CurrencyID)
	}
	if !f.IncludeDeleted {
		q = q.Where("deleted_at IS NULL")
	}
	err := q.Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) InsertVat(ctx context.Context, v *model.Vat) error { return insert(ctx, r.tx, v) }
func (r *repo) UpdateVat(ctx context.Context, v *model.Vat) error { return update(ctx, r.tx, v) }
func (r *repo) Vat(ctx context.Context, id int64) (*model.Vat, error) {
	return get[model.Vat](ctx, r.tx, id)
}

func (r *repo) Vats(ctx context.Context, entityID int64) ([]*model.Vat, error) {
	var out []*model.Vat
	err := r.tx.NewSelect().Model(&out).
		Where("entity_id = ?", entityID).
		Where("deleted_at IS NULL").
		Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) InsertTransaction(ctx context.Context, t *model.Transaction) error {
	return insert(ctx, r.tx, t)
}
func (r *repo) UpdateTransaction(ctx context.Context, t *model.Transaction) error {
	return update(ctx, r.tx, t)
}
func (r *repo) DeleteTransaction(ctx context.Context, id int64) error {
	return remove[model.Transaction](ctx, r.tx, id)
}
func (r *repo) Transaction(ctx context.Context, id int64) (*model.Transaction, error) {
	return get[model.Transaction](ctx, r.tx, id)
}

func (r *repo) Transactions(ctx context.Context, f store.TransactionFilter) ([]*model.Transaction, error) {
	var out []*model.Transaction
	q := r.tx.NewSelect().Model(&out)
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.AccountID != 0 {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.CurrencyID != 0 {
		q = q.Where("currency_id = ?", f.CurrencyID)
	}
	if f.ExchangeRateID != 0 {
		q = q.Where("exchange_rate_id = ?", f.ExchangeRateID)
	}
	if len(f.Types) > 0 {
		q = q.Where("transaction_type IN (?)", bun.In(f.Types))
	}
	err := q.Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) InsertLineItem(ctx context.Context, l *model.LineItem) error {
	return insert(ctx, r.tx, l)
}
func (r *repo) UpdateLineItem(ctx context.Context, l *model.LineItem) error {
	return update(ctx, r.tx, l)
}
func (r *repo) DeleteLineItem(ctx context.Context, id int64) error {
	return remove[model.LineItem](ctx, r.tx, id)
}
func (r *repo) LineItem(ctx context.Context, id int64) (*model.LineItem, error) {
	return get[model.LineItem](ctx, r.tx, id)
}

func (r *repo) LineItems(ctx context.Context, f store.LineItemFilter) ([]*model.LineItem, error) {
	var out []*model.LineItem
	q := r.tx.NewSelect().Model(&out)
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.TransactionID != 0 {
		q = q.Where("transaction_id = ?", f.TransactionID)
	}
	if f.AccountID != 0 {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.VatID != 0 {
		q = q.Where("(vat_id = ? OR ? = ANY(extra_vat_ids))", f.VatID, f.VatID)
	}
	err := q.Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) NextLedgerID(ctx context.Context) (int64, error) {
	var id int64
	err := r.tx.NewRaw("SELECT nextval(pg_get_serial_sequence('ledgers', 'id'))").Scan(ctx, &id)
	return id, mapErr(err)
}

func (r *repo) InsertLedger(ctx context.Context, l *model.Ledger) error {
	_, err := r.tx.NewInsert().Model(l).Exec(ctx)
	return mapErr(err)
}

func (r *repo) UpdateLedger(ctx context.Context, l *model.Ledger) error {
	return update(ctx, r.tx, l)
}

func (r *repo) DeleteLedgers(ctx context.Context, transactionID int64) error {
	_, err := r.tx.NewDelete().Model((*model.Ledger)(nil)).Where("transaction_id = ?", transactionID).Exec(ctx)
	return mapErr(err)
}

func (r *repo) Ledgers(ctx context.Context, f store.LedgerFilter) ([]*model.Ledger, error) {
	var out []*model.Ledger
	q := r.tx.NewSelect().Model(&out)
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.TransactionID != 0 {
		q = q.Where("transaction_id = ?", f.TransactionID)
	}
	if f.LineItemID != 0 {
		q = q.Where("line_item_id = ?", f.LineItemID)
	}
	if f.PostAccountID != 0 {
		q = q.Where("post_account_id = ?", f.PostAccountID)
	}
	if f.AccountID != 0 {
		q = q.Where("(post_account_id = ? OR folio_account_id = ?)", f.AccountID, f.AccountID)
	}
	if f.CurrencyID != 0 {
		q = q.Where("currency_id = ?", f.CurrencyID)
	}
	if !f.From.IsZero() {
		q = q.Where("posting_date >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("posting_date <= ?", f.To)
	}
	err := q.Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) LastLedger(ctx context.Context, entityID int64) (*model.Ledger, error) {
	l := new(model.Ledger)
	err := r.tx.NewSelect().Model(l).Where("entity_id = ?", entityID).Order("id DESC").Limit(1).Scan(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	return l, nil
}

func (r *repo) InsertBalance(ctx context.Context, b *model.Balance) error { return insert(ctx, r.tx, b) }
func (r *repo) UpdateBalance(ctx context.Context, b *model.Balance) error { return update(ctx, r.tx, b) }
func (r *repo) DeleteBalance(ctx context.Context, id int64) error {
	return remove[model.Balance](ctx, r.tx, id)
}
func (r *repo) Balance(ctx context.Context, id int64) (*model.Balance, error) {
	return get[model.Balance](ctx, r.tx, id)
}

func (r *repo) Balances(ctx context.Context, f store.BalanceFilter) ([]*model.Balance, error) {
	var out []*model.Balance
	q := r.tx.NewSelect().Model(&out)
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.AccountID != 0 {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.CurrencyID != 0 {
		q = q.Where("currency_id = ?", f.CurrencyID)
	}
	if f.ExchangeRateID != 0 {
		q = q.Where("exchange_rate_id = ?", f.ExchangeRateID)
	}
	if f.ReportingPeriodID != 0 {
		q = q.Where("reporting_period_id = ?", f.ReportingPeriodID)
	}
	err := q.Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	return insert(ctx, r.tx, a)
}
func (r *repo) UpdateAssignment(ctx context.Context, a *model.Assignment) error {
	return update(ctx, r.tx, a)
}
func (r *repo) DeleteAssignment(ctx context.Context, id int64) error {
	return remove[model.Assignment](ctx, r.tx, id)
}
func (r *repo) Assignment(ctx context.Context, id int64) (*model.Assignment, error) {
	return get[model.Assignment](ctx, r.tx, id)
}

func (r *repo) Assignments(ctx context.Context, f store.AssignmentFilter) ([]*model.Assignment, error) {
	var out []*model.Assignment
	q := r.tx.NewSelect().Model(&out)
	if f.EntityID != 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	if f.TransactionID != 0 {
		q = q.Where("transaction_id = ?", f.TransactionID)
	}
	if f.Cleared != nil {
		q = q.Where("cleared_type = ?", f.Cleared.Type).Where("cleared_id = ?", f.Cleared.ID)
	}
	if f.ForexTransactionID != 0 {
		q = q.Where("forex_transaction_id = ?", f.ForexTransactionID)
	}
	err := q.Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}

func (r *repo) InsertRecycledObject(ctx context.Context, o *model.RecycledObject) error {
	return insert(ctx, r.tx, o)
}

func (r *repo) RecycledObjects(ctx context.Context, entityID int64) ([]*model.RecycledObject, error) {
	var out []*model.RecycledObject
	err := r.tx.NewSelect().Model(&out).Where("entity_id = ?", entityID).Order("id ASC").Scan(ctx)
	return out, mapErr(err)
}
