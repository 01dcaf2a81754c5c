package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ekmungai/eloquent-ifrs-sub000/internal/model"
)

// Config represents the top-level ifrs.yaml configuration.
type Config struct {
	Entity        EntityConfig   `yaml:"entity"`
	Fiscal        FiscalConfig   `yaml:"fiscal"`
	Database      DatabaseConfig `yaml:"database"`
	Ledger        LedgerConfig   `yaml:"ledger"`
	Accounts      AccountsConfig `yaml:"accounts"`
	AgingBrackets []AgingBracket `yaml:"aging_brackets" validate:"required,dive"`
	Labels        LabelsConfig   `yaml:"labels,omitempty"`
	Log           LogConfig      `yaml:"log"`
}

// EntityConfig identifies the reporting entity.
type EntityConfig struct {
	Name         string `yaml:"name" validate:"required"`
	Currency     string `yaml:"currency" validate:"required,len=3,uppercase"`
	CurrencyName string `yaml:"currency_name,omitempty"`
}

// FiscalConfig defines the fiscal year boundaries.
type FiscalConfig struct {
	YearStart string `yaml:"year_start" validate:"required"` // "MM-DD" format, e.g. "01-01"
}

// StartMonth returns the month the fiscal year starts in. Fiscal years
// start on the first of a month, so the day must be 01.
func (f FiscalConfig) StartMonth() (int, error) {
	d, err := time.Parse("01-02", f.YearStart)
	if err != nil {
		return 0, fmt.Errorf("invalid fiscal year_start %q, want MM-DD", f.YearStart)
	}
	if d.Day() != 1 {
		return 0, fmt.Errorf("invalid fiscal year_start %q, fiscal years start on the first of a month", f.YearStart)
	}
	return int(d.Month()), nil
}

// DatabaseConfig configures the PostgreSQL store.
type DatabaseConfig struct {
	URI             string `yaml:"uri,omitempty"`
	MaxConns        int    `yaml:"max_conns" validate:"gte=1"`
	MaxIdleConns    int    `yaml:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime"` // seconds
}

// LedgerConfig controls ledger row hashing.
type LedgerConfig struct {
	HashAlgorithm string `yaml:"hash_algorithm" validate:"oneof=sha256 sha512 sha3-256 blake2b-256"`
	AppSecret     string `yaml:"app_secret" validate:"required"`
}

// AccountsConfig controls the chart of accounts.
type AccountsConfig struct {
	// CodeOffsets is the first code of each account type's range.
	CodeOffsets map[model.AccountType]int `yaml:"code_offsets"`
	// SingleCurrency account types must transact in their own currency.
	SingleCurrency []model.AccountType `yaml:"single_currency"`
}

// AgingBracket is one column of an aging schedule. MaxDays 0 is unbounded.
type AgingBracket struct {
	Label   string `yaml:"label" validate:"required"`
	MaxDays int    `yaml:"max_days" validate:"gte=0"`
}

// LabelsConfig overrides the display names of enumerations.
type LabelsConfig struct {
	AccountTypes     map[model.AccountType]string     `yaml:"account_types,omitempty"`
	TransactionTypes map[model.TransactionType]string `yaml:"transaction_types,omitempty"`
	BalanceTypes     map[model.EntryType]string       `yaml:"balance_types,omitempty"`
}

// AccountType returns the configured label of t.
func (l LabelsConfig) AccountType(t model.AccountType) string {
	if s, ok := l.AccountTypes[t]; ok {
		return s
	}
	return t.Label()
}

// TransactionType returns the configured label of t.
func (l LabelsConfig) TransactionType(t model.TransactionType) string {
	if s, ok := l.TransactionTypes[t]; ok {
		return s
	}
	return t.Label()
}

// BalanceType returns the configured label of t.
func (l LabelsConfig) BalanceType(t model.EntryType) string {
	if s, ok := l.BalanceTypes[t]; ok {
		return s
	}
	return strings.ToLower(string(t))
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file,omitempty"`
}

// Env holds the environment overrides, read with the IFRS_ prefix.
type Env struct {
	DatabaseURI   string `envconfig:"DATABASE_URI"`
	AppSecret     string `envconfig:"APP_SECRET"`
	HashAlgorithm string `envconfig:"HASH_ALGORITHM"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
	LogFile       string `envconfig:"LOG_FILE"`
}

// Load reads an ifrs.yaml file from disk and applies environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default("", "")
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from IFRS_* environment variables.
func (c *Config) ApplyEnv() error {
	var env Env
	if err := envconfig.Process("ifrs", &env); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	if env.DatabaseURI != "" {
		c.Database.URI = env.DatabaseURI
	}
	if env.AppSecret != "" {
		c.Ledger.AppSecret = env.AppSecret
	}
	if env.HashAlgorithm != "" {
		c.Ledger.HashAlgorithm = env.HashAlgorithm
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.LogFile != "" {
		c.Log.File = env.LogFile
	}
	return nil
}

// Validate checks the configuration for values the ledger cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if err := validator.New().Struct(c); err != nil {
		errs = append(errs, err)
	}
	if c.Entity.Currency != "" && money.GetCurrency(c.Entity.Currency) == nil {
		errs = append(errs, fmt.Errorf("unknown currency code %q", c.Entity.Currency))
	}
	if _, err := c.Fiscal.StartMonth(); err != nil {
		errs = append(errs, err)
	}
	for t := range c.Accounts.CodeOffsets {
		if !t.Valid() {
			errs = append(errs, fmt.Errorf("unknown account type %q in code_offsets", t))
		}
	}
	for _, t := range c.Accounts.SingleCurrency {
		if !t.Valid() {
			errs = append(errs, fmt.Errorf("unknown account type %q in single_currency", t))
		}
	}
	return errors.Join(errs...)
}

// DefaultCodeOffsets spaces account types 1000 codes apart in chart order.
func DefaultCodeOffsets() map[model.AccountType]int {
	offsets := make(map[model.AccountType]int, len(model.AccountTypes))
	for i, t := range model.AccountTypes {
		offsets[t] = i * 1000
	}
	return offsets
}

// DefaultAgingBrackets returns the standard receivables aging columns.
func DefaultAgingBrackets() []AgingBracket {
	return []AgingBracket{
		{Label: "current", MaxDays: 30},
		{Label: "31 - 90 days", MaxDays: 90},
		{Label: "91 - 180 days", MaxDays: 180},
		{Label: "181 - 270 days", MaxDays: 270},
		{Label: "271 - 365 days", MaxDays: 365},
		{Label: "365+ days", MaxDays: 0},
	}
}

// Default returns a Config with sensible defaults for a new entity.
func Default(entityName, currency string) *Config {
	return &Config{
		Entity: EntityConfig{
			Name:     entityName,
			Currency: currency,
		},
		Fiscal: FiscalConfig{
			YearStart: "01-01",
		},
		Database: DatabaseConfig{
			MaxConns:        10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 1800,
		},
		Ledger: LedgerConfig{
			HashAlgorithm: "sha256",
			AppSecret:     "change-me",
		},
		Accounts: AccountsConfig{
			CodeOffsets:    DefaultCodeOffsets(),
			SingleCurrency: []model.AccountType{model.Bank},
		},
		AgingBrackets: DefaultAgingBrackets(),
		Log: LogConfig{
			Level: "info",
		},
	}
}
