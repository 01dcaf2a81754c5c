package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/books"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ledger"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

func newLedgerCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Work with posted ledger rows",
	}
	cmd.AddCommand(newLedgerExportCommand(opts))
	return cmd
}

func newLedgerExportCommand(opts *rootOptions) *cobra.Command {
	var entityID int64
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an entity's ledger rows as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBooks(cmd, opts, func(ctx context.Context, b *books.Books) error {
				rows, err := b.Ledger.Rows(ctx, store.LedgerFilter{EntityID: entityID})
				if err != nil {
					return err
				}
				w, done, err := output(cmd, outPath)
				if err != nil {
					return err
				}
				if err := ledger.WriteRows(w, rows); err != nil {
					done()
					return fmt.Errorf("writing ledger: %w", err)
				}
				return done()
			})
		},
	}

	cmd.Flags().Int64Var(&entityID, "entity", 0, "entity to export (required)")
	_ = cmd.MarkFlagRequired("entity")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file, stdout when empty")

	return cmd
}
