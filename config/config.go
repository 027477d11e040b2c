// Package config holds the run configuration shared by the backtest and
// live commands.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/ticksim/backtest"
	"github.com/rustyeddy/ticksim/logging"
	"github.com/rustyeddy/ticksim/sim"
	"github.com/rustyeddy/ticksim/stats"
	"github.com/rustyeddy/ticksim/strategies"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config represents the complete run configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Broker   BrokerConfig   `json:"broker" yaml:"broker"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Stats    StatsConfig    `json:"stats" yaml:"stats"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Live     LiveConfig     `json:"live" yaml:"live"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

type AccountConfig struct {
	ID       string  `json:"id" yaml:"id"`
	Currency string  `json:"currency" yaml:"currency"`
	Cash     float64 `json:"cash" yaml:"cash"`
}

// BrokerConfig is fixed for the lifetime of a run.
type BrokerConfig struct {
	Commission      float64 `json:"commission" yaml:"commission"`
	Spread          float64 `json:"spread" yaml:"spread"`
	MarginRatio     float64 `json:"margin_ratio" yaml:"margin_ratio"`
	TradeOnClose    bool    `json:"trade_on_close" yaml:"trade_on_close"`
	Hedging         bool    `json:"hedging" yaml:"hedging"`
	ExclusiveOrders bool    `json:"exclusive_orders" yaml:"exclusive_orders"`
	Scaling         bool    `json:"scaling" yaml:"scaling"`

	MaxPerSide          int     `json:"max_per_side" yaml:"max_per_side"`
	MarginCallThreshold float64 `json:"margin_call_threshold" yaml:"margin_call_threshold"`
}

// Options converts to the simulated broker's options.
func (b BrokerConfig) Options(cash float64) sim.Options {
	return sim.Options{
		Cash:                cash,
		Commission:          b.Commission,
		Spread:              b.Spread,
		MarginRatio:         b.MarginRatio,
		TradeOnClose:        b.TradeOnClose,
		Hedging:             b.Hedging,
		ExclusiveOrders:     b.ExclusiveOrders,
		Scaling:             b.Scaling,
		MaxPerSide:          b.MaxPerSide,
		MarginCallThreshold: b.MarginCallThreshold,
	}
}

// StrategyConfig names a registered strategy; its params sit alongside
// the name.
type StrategyConfig struct {
	Name              string `json:"name" yaml:"name"`
	strategies.Params `yaml:",inline"`
}

type StatsConfig struct {
	CloseEnd     bool    `json:"close_end" yaml:"close_end"`
	CloseReason  string  `json:"close_reason,omitempty" yaml:"close_reason,omitempty"`
	Benchmark    string  `json:"benchmark,omitempty" yaml:"benchmark,omitempty"`
	RiskFreeRate float64 `json:"risk_free_rate" yaml:"risk_free_rate"`
	AvgLoss      string  `json:"avg_loss,omitempty" yaml:"avg_loss,omitempty"` // losers or winners
}

// Options converts to runner options.
func (s StatsConfig) Options() backtest.Options {
	opts := backtest.Options{
		CloseEnd:     s.CloseEnd,
		CloseReason:  s.CloseReason,
		Benchmark:    s.Benchmark,
		RiskFreeRate: s.RiskFreeRate,
	}
	if strings.EqualFold(s.AvgLoss, "winners") {
		opts.AvgLoss = stats.WinnersDenominator
	}
	return opts
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	ParquetDir string `json:"parquet_dir,omitempty" yaml:"parquet_dir,omitempty"`
	OrgPath    string `json:"org_path,omitempty" yaml:"org_path,omitempty"`
}

type LiveConfig struct {
	FeedURL        string   `json:"feed_url,omitempty" yaml:"feed_url,omitempty"`
	ReplayFile     string   `json:"replay_file,omitempty" yaml:"replay_file,omitempty"`
	ReplayPace     string   `json:"replay_pace,omitempty" yaml:"replay_pace,omitempty"` // e.g. "100ms"
	RecordFile     string   `json:"record_file,omitempty" yaml:"record_file,omitempty"`
	TelemetryAddr  string   `json:"telemetry_addr,omitempty" yaml:"telemetry_addr,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty" yaml:"allowed_origins,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// LoadFromFile loads configuration from a file (YAML, falling back to JSON)
// on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = Default()
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Cash <= 0 {
		return invalid("account.cash must be positive")
	}

	b := c.Broker
	if b.MarginRatio <= 0 || b.MarginRatio > 1 {
		return invalid("broker.margin_ratio must be in (0, 1]")
	}
	if b.Commission < 0 || b.Commission >= 1 {
		return invalid("broker.commission must be in [0, 1)")
	}
	if b.Spread < 0 {
		return invalid("broker.spread must not be negative")
	}
	if b.MaxPerSide < 0 {
		return invalid("broker.max_per_side must not be negative")
	}
	if b.MarginCallThreshold < 0 {
		return invalid("broker.margin_call_threshold must not be negative")
	}

	if c.Strategy.Name == "" {
		return invalid("strategy.name is required")
	}
	if c.Strategy.Instrument == "" {
		return invalid("strategy.instrument is required")
	}
	if _, err := strategies.New(c.Strategy.Name, c.Strategy.Params, nil); err != nil {
		return invalid("strategy: %v", err)
	}

	switch strings.ToLower(c.Stats.AvgLoss) {
	case "", "losers", "winners":
	default:
		return invalid("stats.avg_loss must be 'losers' or 'winners'")
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return invalid("journal trades_file and equity_file required for CSV type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return invalid("journal db_path required for SQLite type")
		}
	default:
		return invalid("journal.type must be 'none', 'csv' or 'sqlite'")
	}

	if c.Live.FeedURL != "" && c.Live.ReplayFile != "" {
		return invalid("live.feed_url and live.replay_file are exclusive")
	}
	if _, err := c.Live.Pace(); err != nil {
		return invalid("live.replay_pace: %v", err)
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return invalid("log.level: %v", err)
	}
	return nil
}

// Default returns a backtest configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Cash:     100_000,
		},
		Broker: BrokerConfig{
			MarginRatio:         0.05,
			MaxPerSide:          sim.DefaultMaxPerSide,
			MarginCallThreshold: sim.DefaultMarginCallThreshold,
		},
		Strategy: StrategyConfig{
			Name: "ma-cross",
			Params: strategies.Params{
				Instrument: "EUR_USD",
				Size:       1000,
				Kind:       "sma",
				Fast:       10,
				Slow:       20,
			},
		},
		Stats: StatsConfig{
			CloseEnd: true,
		},
		Journal: JournalConfig{
			Type:       "csv",
			TradesFile: "./trades.csv",
			EquityFile: "./equity.csv",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// DefaultLive is Default with the live margin call threshold and a local
// telemetry server.
func DefaultLive() *Config {
	cfg := Default()
	cfg.Broker.MarginCallThreshold = sim.LiveMarginCallThreshold
	cfg.Live = LiveConfig{
		TelemetryAddr:  ":8080",
		AllowedOrigins: []string{"http://localhost:3000"},
	}
	return cfg
}
