package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

// Tables are created from the current models, so later migrations that add or
// drop columns must use IfNotExists/IfExists.
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		tables := []any{
			(*model.Entity)(nil),
			(*model.Currency)(nil),
			(*model.ExchangeRate)(nil),
			(*model.ReportingPeriod)(nil),
			(*model.Category)(nil),
			(*model.Account)(nil),
			(*model.Vat)(nil),
			(*model.Transaction)(nil),
			(*model.LineItem)(nil),
			(*model.Ledger)(nil),
			(*model.Balance)(nil),
			(*model.Assignment)(nil),
			(*model.RecycledObject)(nil),
		}
		for _, t := range tables {
			if _, err := db.NewCreateTable().Model(t).IfNotExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		tables := []any{
			(*model.RecycledObject)(nil),
			(*model.Assignment)(nil),
			(*model.Balance)(nil),
			(*model.Ledger)(nil),
			(*model.LineItem)(nil),
			(*model.Transaction)(nil),
			(*model.Vat)(nil),
			(*model.Account)(nil),
			(*model.Category)(nil),
			(*model.ReportingPeriod)(nil),
			(*model.ExchangeRate)(nil),
			(*model.Currency)(nil),
			(*model.Entity)(nil),
		}
		for _, t := range tables {
			if _, err := db.NewDropTable().Model(t).IfExists().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
}
