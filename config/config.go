// Package config loads the run configuration: account, scoring and veto
// endpoints, journal wiring, data locations, and the per-asset profiles.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/swingops/journal"
	"github.com/rustyeddy/swingops/profile"
)

// Config is the complete run configuration.
type Config struct {
	Account  AccountConfig          `json:"account" yaml:"account"`
	Scoring  ScoringConfig          `json:"scoring" yaml:"scoring"`
	Veto     VetoConfig             `json:"veto" yaml:"veto"`
	Journal  JournalConfig          `json:"journal" yaml:"journal"`
	Data     DataConfig             `json:"data" yaml:"data"`
	Profiles []profile.AssetProfile `json:"profiles" yaml:"profiles"`
}

// AccountConfig contains account initialization parameters.
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Balance  float64 `json:"balance" yaml:"balance"`
}

// ScoringConfig points at the probability-scoring service.
type ScoringConfig struct {
	URL     string `json:"url" yaml:"url"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"` // e.g. "5s"
}

// VetoConfig points at the news/sentiment veto service. An empty URL
// disables the veto step.
type VetoConfig struct {
	URL     string `json:"url,omitempty" yaml:"url,omitempty"`
	Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// JournalConfig selects and parameterizes the ledger backend.
type JournalConfig struct {
	Type            string `json:"type" yaml:"type"` // "csv", "sqlite" or "memory"
	TradesFile      string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	TransitionsFile string `json:"transitions_file,omitempty" yaml:"transitions_file,omitempty"`
	EquityFile      string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath          string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// DataConfig locates the candle history on disk. CandleDir holds one
// <asset>.csv per asset; ContextDir holds one <ticker>.csv per market-level
// series (VIX, regime indices, benchmarks). EventsFile is optional.
type DataConfig struct {
	CandleDir  string `json:"candle_dir" yaml:"candle_dir"`
	ContextDir string `json:"context_dir,omitempty" yaml:"context_dir,omitempty"`
	EventsFile string `json:"events_file,omitempty" yaml:"events_file,omitempty"`
}

// LoadFromFile loads configuration from a file, YAML first with a JSON
// fallback.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration, YAML or JSON by extension.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error
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

// Validate checks the run-level fields. Per-asset profile records are not
// validated here: a malformed profile disables that asset only, which the
// profile resolver handles when the engine is wired up.
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.Balance <= 0 {
		return fmt.Errorf("account.balance must be positive")
	}
	if c.Scoring.URL == "" {
		return fmt.Errorf("scoring.url is required")
	}
	if _, err := c.ScoringTimeout(); err != nil {
		return fmt.Errorf("scoring.timeout: %w", err)
	}
	if _, err := c.VetoTimeout(); err != nil {
		return fmt.Errorf("veto.timeout: %w", err)
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.TransitionsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file, transitions_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "memory":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'memory'")
	}
	if len(c.Profiles) == 0 {
		return fmt.Errorf("at least one asset profile is required")
	}
	if c.Data.CandleDir == "" {
		return fmt.Errorf("data.candle_dir is required")
	}
	return nil
}

// ScoringTimeout parses the scoring timeout; zero means use the default.
func (c *Config) ScoringTimeout() (time.Duration, error) {
	return parseTimeout(c.Scoring.Timeout)
}

// VetoTimeout parses the veto timeout; zero means use the default.
func (c *Config) VetoTimeout() (time.Duration, error) {
	return parseTimeout(c.Veto.Timeout)
}

func parseTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// BuildJournal constructs the configured ledger backend.
func (c *Config) BuildJournal() (journal.Journal, error) {
	switch c.Journal.Type {
	case "csv":
		return journal.NewCSV(c.Journal.TradesFile, c.Journal.TransitionsFile, c.Journal.EquityFile)
	case "sqlite":
		return journal.NewSQLite(c.Journal.DBPath)
	case "memory":
		return journal.NewMemory(), nil
	default:
		return nil, fmt.Errorf("journal.type %q not supported", c.Journal.Type)
	}
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "SWING-001",
			Currency: "USD",
			Balance:  100000,
		},
		Scoring: ScoringConfig{
			URL:     "http://localhost:8008/score",
			Timeout: "5s",
		},
		Journal: JournalConfig{
			Type:            "csv",
			TradesFile:      "./trades.csv",
			TransitionsFile: "./transitions.csv",
			EquityFile:      "./equity.csv",
		},
		Data: DataConfig{
			CandleDir:  "./data/candles",
			ContextDir: "./data/context",
		},
		Profiles: []profile.AssetProfile{
			{
				Asset: "GLD", Class: profile.CommodityHaven, RegimeDir: profile.Any,
				VolumeFeatures: true, Group: "havens",
			},
		},
	}
}
