package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/magnet/internal/logging"
	"github.com/rustyeddy/magnet/magnet"
	"github.com/rustyeddy/magnet/market"
	"github.com/rustyeddy/magnet/risk"
	"github.com/rustyeddy/magnet/strategy"
)

// Config represents the complete simulation configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Risk     risk.Limits    `json:"risk" yaml:"risk"`
	Magnet   MagnetConfig   `json:"magnet" yaml:"magnet"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Logging  LoggingConfig  `json:"logging" yaml:"logging"`
}

type AccountConfig struct {
	Balance float64 `json:"balance" yaml:"balance"`
}

// MagnetConfig configures the level detector.
type MagnetConfig struct {
	Multipliers []float64 `json:"multipliers" yaml:"multipliers"`
	Tolerance   float64   `json:"tolerance" yaml:"tolerance"` // index points
	Lookback    int       `json:"lookback" yaml:"lookback"`   // bars
}

// StrategyConfig prices the structures. Premiums are in index points.
type StrategyConfig struct {
	Multiplier      float64                  `json:"multiplier" yaml:"multiplier"`
	Volatility      float64                  `json:"volatility" yaml:"volatility"`
	CallPremium     float64                  `json:"call_premium" yaml:"call_premium"`
	PutPremium      float64                  `json:"put_premium" yaml:"put_premium"`
	StrangleOffset  float64                  `json:"strangle_offset" yaml:"strangle_offset"`
	ProtectiveWidth float64                  `json:"protective_width" yaml:"protective_width"`
	ExpiryDays      float64                  `json:"expiry_days" yaml:"expiry_days"`
	Butterfly       strategy.ButterflyParams `json:"butterfly" yaml:"butterfly"`
}

type BacktestConfig struct {
	Days             int            `json:"days" yaml:"days"`
	Window           int            `json:"window" yaml:"window"`
	Seed             int64          `json:"seed" yaml:"seed"` // 0 seeds from the clock
	EnforceDailyStop bool           `json:"enforce_daily_stop" yaml:"enforce_daily_stop"`
	Session          market.Session `json:"session" yaml:"session"`
	Timezone         string         `json:"timezone" yaml:"timezone"`
	Parallel         int            `json:"parallel" yaml:"parallel"` // sweep workers, 0 is unlimited
}

// Data source types.
const (
	SourceSynthetic = "synthetic"
	SourceCSV       = "csv"
	SourceSQLite    = "sqlite"
	SourceParquet   = "parquet"
	SourceYahoo     = "yahoo"
)

type DataConfig struct {
	Source          string `json:"source" yaml:"source"`
	Path            string `json:"path,omitempty" yaml:"path,omitempty"`
	Symbol          string `json:"symbol" yaml:"symbol"`
	SecondarySymbol string `json:"secondary_symbol" yaml:"secondary_symbol"`
	Fallback        string `json:"fallback,omitempty" yaml:"fallback,omitempty"` // source used when the primary fails
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	RunsFile   string `json:"runs_file,omitempty" yaml:"runs_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text or json
}

// Load reads .env, then path (if not empty) over the defaults, then MAGNET_*
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := cfg.parse(data); err != nil {
			return nil, err
		}
	}
	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a file (YAML or JSON) over the
// defaults. The environment is not consulted.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := cfg.parse(data); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) parse(data []byte) error {
	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, c); err != nil {
		if jerr := json.Unmarshal(data, c); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	return nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk.%w", err)
	}

	if len(c.Magnet.Multipliers) == 0 {
		return fmt.Errorf("magnet.multipliers is required")
	}
	for _, m := range c.Magnet.Multipliers {
		if m <= 0 {
			return fmt.Errorf("magnet.multipliers must be positive, got %v", m)
		}
	}
	if c.Magnet.Tolerance <= 0 {
		return fmt.Errorf("magnet.tolerance must be positive")
	}
	if c.Magnet.Lookback <= 0 {
		return fmt.Errorf("magnet.lookback must be positive")
	}

	s := c.Strategy
	if s.Multiplier <= 0 {
		return fmt.Errorf("strategy.multiplier must be positive")
	}
	if s.Volatility < 0 {
		return fmt.Errorf("strategy.volatility must not be negative")
	}
	if s.CallPremium < 0 || s.PutPremium < 0 {
		return fmt.Errorf("strategy premiums must not be negative")
	}
	if s.StrangleOffset <= 0 {
		return fmt.Errorf("strategy.strangle_offset must be positive")
	}
	if s.ProtectiveWidth <= s.StrangleOffset {
		return fmt.Errorf("strategy.protective_width must exceed strangle_offset")
	}
	if s.ExpiryDays <= 0 {
		return fmt.Errorf("strategy.expiry_days must be positive")
	}

	if c.Backtest.Days <= 0 {
		return fmt.Errorf("backtest.days must be positive")
	}
	if c.Backtest.Window <= 0 {
		return fmt.Errorf("backtest.window must be positive")
	}
	if c.Backtest.Parallel < 0 {
		return fmt.Errorf("backtest.parallel must not be negative")
	}
	if err := c.Backtest.Session.Validate(); err != nil {
		return fmt.Errorf("backtest.%w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("backtest.timezone: %w", err)
	}

	if err := validateSource(c.Data.Source, c.Data.Path); err != nil {
		return fmt.Errorf("data.%w", err)
	}
	if c.Data.Fallback != "" {
		if err := validateSource(c.Data.Fallback, c.Data.Path); err != nil {
			return fmt.Errorf("data.fallback: %w", err)
		}
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.RunsFile == "" {
			return fmt.Errorf("journal trades_file and runs_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}

	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if f := strings.ToLower(c.Logging.Format); f != "" && f != "text" && f != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json'")
	}
	return nil
}

func validateSource(source, path string) error {
	switch source {
	case SourceSynthetic, SourceYahoo:
		return nil
	case SourceCSV, SourceSQLite, SourceParquet:
		if path == "" {
			return fmt.Errorf("path required for %s source", source)
		}
		return nil
	}
	return fmt.Errorf("source must be one of synthetic, csv, sqlite, parquet, yahoo; got %q", source)
}

// DefaultTimezone is the exchange zone of ES futures. Calendar days and the
// daily loss reset follow it.
const DefaultTimezone = "America/New_York"

// Location returns the backtest time zone; empty is UTC.
func (c *Config) Location() (*time.Location, error) {
	if c.Backtest.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Backtest.Timezone)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{Balance: 100000},
		Risk:    risk.DefaultLimits(),
		Magnet: MagnetConfig{
			Multipliers: append([]float64(nil), magnet.DefaultMultipliers...),
			Tolerance:   magnet.DefaultTolerance,
			Lookback:    magnet.DefaultLookback,
		},
		Strategy: StrategyConfig{
			Multiplier:      50,
			Volatility:      0.15,
			CallPremium:     8,
			PutPremium:      8,
			StrangleOffset:  5,
			ProtectiveWidth: 20,
			ExpiryDays:      1,
			Butterfly:       strategy.DefaultButterfly,
		},
		Backtest: BacktestConfig{
			Days:     30,
			Window:   20,
			Timezone: DefaultTimezone,
		},
		Data: DataConfig{
			Source:          SourceYahoo,
			Symbol:          "ES=F",
			SecondarySymbol: "^VIX",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// applyEnvOverrides applies MAGNET_* variables read through getenv.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	str := map[string]*string{
		"MAGNET_DATA_SOURCE":   &cfg.Data.Source,
		"MAGNET_DATA_PATH":     &cfg.Data.Path,
		"MAGNET_DATA_FALLBACK": &cfg.Data.Fallback,
		"MAGNET_SYMBOL":        &cfg.Data.Symbol,
		"MAGNET_JOURNAL_TYPE":  &cfg.Journal.Type,
		"MAGNET_JOURNAL_DB":    &cfg.Journal.DBPath,
		"MAGNET_TIMEZONE":      &cfg.Backtest.Timezone,
		"MAGNET_LOG_LEVEL":     &cfg.Logging.Level,
		"MAGNET_LOG_FORMAT":    &cfg.Logging.Format,
	}
	for k, dst := range str {
		if v := getenv(k); v != "" {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"MAGNET_BALANCE":    &cfg.Account.Balance,
		"MAGNET_VOLATILITY": &cfg.Strategy.Volatility,
		"MAGNET_TOLERANCE":  &cfg.Magnet.Tolerance,
	}
	for k, dst := range floats {
		if v := getenv(k); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			*dst = f
		}
	}

	if v := getenv("MAGNET_DAYS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAGNET_DAYS: %w", err)
		}
		cfg.Backtest.Days = n
	}
	if v := getenv("MAGNET_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAGNET_SEED: %w", err)
		}
		cfg.Backtest.Seed = n
	}
	if v := getenv("MAGNET_ENFORCE_DAILY_STOP"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MAGNET_ENFORCE_DAILY_STOP: %w", err)
		}
		cfg.Backtest.EnforceDailyStop = b
	}
	return nil
}
