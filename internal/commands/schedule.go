package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/books"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/clearance"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/entity"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

func newScheduleCommand(opts *rootOptions) *cobra.Command {
	var accountID, currencyID int64
	var asOf string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Print the aged outstanding items of a receivable or payable account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDate(asOf)
			if err != nil {
				return err
			}
			if date.IsZero() {
				date = time.Now().UTC().Truncate(24 * time.Hour)
			}
			return withBooks(cmd, opts, func(ctx context.Context, b *books.Books) error {
				a, err := b.Accounts.Get(ctx, accountID)
				if err != nil {
					return err
				}
				if currencyID == 0 {
					currencyID = a.CurrencyID
				}
				var cur *model.Currency
				err = b.Store.Atomic(ctx, func(ctx context.Context, r store.Repository) error {
					cur, err = r.Currency(ctx, currencyID)
					return err
				})
				if err != nil {
					return fmt.Errorf("loading currency %d: %w", currencyID, err)
				}

				sch, err := b.Clearance.Schedule(ctx, accountID, currencyID, date)
				if err != nil {
					return err
				}
				return printSchedule(cmd, b, a, cur.CurrencyCode, sch)
			})
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account to schedule (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().Int64Var(&currencyID, "currency", 0, "currency, the account's own when zero")
	cmd.Flags().StringVar(&asOf, "as-of", "", "aging date as YYYY-MM-DD, today when empty")

	return cmd
}

func printSchedule(cmd *cobra.Command, b *books.Books, a *model.Account, code string, sch *clearance.Schedule) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d %s as of %s\n\n", a.Code, a.Name, sch.AsOf.Format(dateLayout))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NUMBER\tTYPE\tDATE\tORIGINAL\tCLEARED\tUNCLEARED\tAGE")
	for _, l := range sch.Lines {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			l.TransactionNo,
			b.Config.Labels.TransactionType(l.TransactionType),
			l.Date.Format(dateLayout),
			entity.FormatAmount(l.Original, code),
			entity.FormatAmount(l.Cleared, code),
			entity.FormatAmount(l.Uncleared, code),
			l.Bracket,
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	for _, br := range b.Config.AgingBrackets {
		fmt.Fprintf(out, "%-16s %s\n", br.Label, entity.FormatAmount(sch.Brackets[br.Label], code))
	}
	fmt.Fprintf(out, "%-16s %s\n", "total", entity.FormatAmount(sch.Total, code))
	return nil
}
