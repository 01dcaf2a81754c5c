package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/accounts"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/books"
)

func newChartCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Import and export the chart of accounts",
	}
	cmd.AddCommand(newChartExportCommand(opts), newChartImportCommand(opts))
	return cmd
}

func newChartExportCommand(opts *rootOptions) *cobra.Command {
	var entityID int64
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write an entity's chart of accounts as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBooks(cmd, opts, func(ctx context.Context, b *books.Books) error {
				rows, err := b.Accounts.Export(ctx, entityID)
				if err != nil {
					return err
				}
				w, done, err := output(cmd, outPath)
				if err != nil {
					return err
				}
				if err := accounts.WriteChart(w, rows); err != nil {
					done()
					return fmt.Errorf("writing chart of accounts: %w", err)
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

func newChartImportCommand(opts *rootOptions) *cobra.Command {
	var entityID int64

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Add the accounts in a chart of accounts CSV to an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chart, err := readChartFile(args[0])
			if err != nil {
				return err
			}
			return withBooks(cmd, opts, func(ctx context.Context, b *books.Books) error {
				created, err := b.Accounts.Import(ctx, entityID, chart)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts\n", len(created))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&entityID, "entity", 0, "entity to import into (required)")
	_ = cmd.MarkFlagRequired("entity")

	return cmd
}
