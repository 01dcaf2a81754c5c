package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/accounts"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/books"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

func newEntityCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage reporting entities",
	}
	cmd.AddCommand(newEntityCreateCommand(opts))
	return cmd
}

func newEntityCreateCommand(opts *rootOptions) *cobra.Command {
	var year int
	var chartPath string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create the configured entity, open its first period and import its chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := chartPath
			if !filepath.IsAbs(path) {
				path = filepath.Join(filepath.Dir(opts.configPath), path)
			}
			chart, err := readChartFile(path)
			if err != nil {
				return err
			}

			return withBooks(cmd, opts, func(ctx context.Context, b *books.Books) error {
				e, err := b.Setup(ctx, year, chart)
				if err != nil {
					return err
				}
				list, err := b.Accounts.List(ctx, store.AccountFilter{EntityID: e.ID})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created entity %s (id %d) with %d accounts, period %d open\n", e.Name, e.ID, len(list), year)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "first reporting period")
	cmd.Flags().StringVar(&chartPath, "chart", ChartPath, "chart of accounts CSV, relative to the config file")

	return cmd
}

func readChartFile(path string) ([]accounts.ChartRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()
	rows, err := accounts.ReadChart(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rows, nil
}
