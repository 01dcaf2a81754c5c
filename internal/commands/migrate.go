package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/books"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/store/pgstore"
)

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(opts)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.cfg.Database.URI == "" {
				return books.ErrNoDatabase
			}
			db, err := pgstore.Open(s.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			group, err := pgstore.Migrate(cmd.Context(), db)
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "Database is up to date")
				return nil
			}
			s.log.Info().Str("group", group.String()).Msg("migrated")
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated to %s\n", group)
			return nil
		},
	}
}
