package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/books"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/ledger"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store"
)

func newVerifyCommand(opts *rootOptions) *cobra.Command {
	var entityID int64
	var file string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check the ledger hash chain of an entity or an exported ledger file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case file != "" && entityID != 0:
				return errors.New("--entity and --file are mutually exclusive")
			case file != "":
				return verifyFile(cmd, opts, file)
			case entityID != 0:
				return withBooks(cmd, opts, func(ctx context.Context, b *books.Books) error {
					rows, err := b.Ledger.Rows(ctx, store.LedgerFilter{EntityID: entityID})
					if err != nil {
						return err
					}
					breaks, err := b.Ledger.VerifyChain(ctx, entityID)
					if err != nil {
						return err
					}
					return report(cmd, len(rows), breaks)
				})
			}
			return errors.New("one of --entity or --file is required")
		},
	}

	cmd.Flags().Int64Var(&entityID, "entity", 0, "entity whose stored ledger to verify")
	cmd.Flags().StringVar(&file, "file", "", "ledger CSV export to verify")

	return cmd
}

func verifyFile(cmd *cobra.Command, opts *rootOptions, path string) error {
	s, err := newSession(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	h, err := ledger.NewHasher(s.cfg.Ledger.HashAlgorithm, s.cfg.Ledger.AppSecret)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening ledger export: %w", err)
	}
	defer f.Close()
	rows, err := ledger.ReadRows(f)
	if err != nil {
		return err
	}
	return report(cmd, len(rows), ledger.VerifyRows(rows, h))
}

func report(cmd *cobra.Command, n int, breaks []ledger.Break) error {
	out := cmd.OutOrStdout()
	if len(breaks) == 0 {
		fmt.Fprintf(out, "OK: %d ledger rows verified\n", n)
		return nil
	}
	for _, b := range breaks {
		fmt.Fprintln(out, b)
	}
	return fmt.Errorf("%d of %d ledger rows failed verification", len(breaks), n)
}
