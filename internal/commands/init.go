package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/accounts"
	"github.com/ekmungai/eloquent-ifrs-sub000/internal/config"
)

// ChartPath is where init writes the starter chart of accounts, relative to
// the project directory.
var ChartPath = filepath.Join("accounts", "chart-of-accounts.csv")

func newInitCommand() *cobra.Command {
	var name string
	var currency string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a config file and starter chart of accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, name, currency); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized books for %s at %s\n", name, absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "entity name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&currency, "currency", "USD", "reporting currency (ISO 4217)")

	return cmd
}

func runInit(dir, name, currency string) error {
	cfgPath := filepath.Join(dir, "ifrs.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	cfg := config.Default(name, currency)
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Join(dir, filepath.Dir(ChartPath)), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, ChartPath))
	if err != nil {
		return fmt.Errorf("creating chart of accounts: %w", err)
	}
	defer f.Close()
	if err := accounts.WriteChart(f, accounts.DefaultChart()); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return f.Close()
}
