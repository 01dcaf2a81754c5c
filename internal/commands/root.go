package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/buildinfo"
)

type rootOptions struct {
	configPath string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:     "ifrs",
		Short:   "Double-entry bookkeeping to IFRS",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "ifrs.yaml", "path to the config file")

	rootCmd.AddCommand(
		newInitCommand(),
		newMigrateCommand(opts),
		newEntityCommand(opts),
		newVerifyCommand(opts),
		newLedgerCommand(opts),
		newChartCommand(opts),
		newScheduleCommand(opts),
		newAssignCommand(opts),
	)

	return rootCmd
}
