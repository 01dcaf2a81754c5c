package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/books"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/clearance"
)

func newAssignCommand(opts *rootOptions) *cobra.Command {
	var p clearance.BulkParams
	var date string

	cmd := &cobra.Command{
		Use:   "assign",
		Short: "Clear the oldest outstanding items on an account with a receipt or payment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(date)
			if err != nil {
				return err
			}
			p.Date = d
			return withBooks(cmd, opts, func(ctx context.Context, b *books.Books) error {
				created, err := b.Clearance.BulkAssign(ctx, p)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				for _, a := range created {
					fmt.Fprintf(out, "cleared %s %d: %s\n", a.ClearedType, a.ClearedID, a.Amount.StringFixed(2))
				}
				fmt.Fprintf(out, "%d assignments\n", len(created))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&p.TransactionID, "transaction", 0, "assigning transaction (required)")
	_ = cmd.MarkFlagRequired("transaction")
	cmd.Flags().StringVar(&date, "date", "", "assignment date as YYYY-MM-DD, the transaction date when empty")
	cmd.Flags().Int64Var(&p.ForexAccountID, "forex-account", 0, "account for realized exchange differences")

	return cmd
}
