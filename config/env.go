package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvCash          = "TICKSIM_CASH"
	EnvMarginRatio   = "TICKSIM_MARGIN_RATIO"
	EnvCommission    = "TICKSIM_COMMISSION"
	EnvSpread        = "TICKSIM_SPREAD"
	EnvFeedURL       = "TICKSIM_FEED_URL"
	EnvTelemetryAddr = "TICKSIM_TELEMETRY_ADDR"
	EnvLogLevel      = "TICKSIM_LOG_LEVEL"
	EnvJournalDB     = "TICKSIM_JOURNAL_DB"
)

// LoadEnv loads .env files (".env" when none are named) and applies the
// TICKSIM_* overrides to cfg. Missing files are skipped and variables
// already set in the environment win over the files.
func LoadEnv(cfg *Config, files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return ApplyEnv(cfg)
}

// ApplyEnv copies TICKSIM_* variables from the environment into cfg.
func ApplyEnv(cfg *Config) error {
	floats := []struct {
		key string
		dst *float64
	}{
		{EnvCash, &cfg.Account.Cash},
		{EnvMarginRatio, &cfg.Broker.MarginRatio},
		{EnvCommission, &cfg.Broker.Commission},
		{EnvSpread, &cfg.Broker.Spread},
	}
	for _, f := range floats {
		v, ok := os.LookupEnv(f.key)
		if !ok || v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s=%q: %w", f.key, v, err)
		}
		*f.dst = x
	}

	if v := os.Getenv(EnvFeedURL); v != "" {
		cfg.Live.FeedURL = v
		cfg.Live.ReplayFile = ""
	}
	if v := os.Getenv(EnvTelemetryAddr); v != "" {
		cfg.Live.TelemetryAddr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvJournalDB); v != "" {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = v
	}
	return nil
}

// Pace parses ReplayPace. Empty means no delay between replayed ticks.
func (l LiveConfig) Pace() (time.Duration, error) {
	if l.ReplayPace == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(l.ReplayPace)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative pace %s", d)
	}
	return d, nil
}
