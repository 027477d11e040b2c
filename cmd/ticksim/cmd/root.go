package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/ticksim/config"
	"github.com/rustyeddy/ticksim/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ticksim",
	Short: "A tick-driven trading simulator",
	Long: `Ticksim replays price history or a live quote feed through a simulated
margin broker and measures what a strategy would have done.

It provides tools for:
  - Backtesting strategies over OHLC bars (CSV or Parquet)
  - Running strategies live against a websocket quote feed
  - Streaming account telemetry over HTTP and websockets
  - Journaling trades, equity and runs to SQLite or CSV`,
	SilenceUsage: true,
}

var (
	cfgFile  string
	envFiles []string
	logLevel string
)

// Execute runs the root command. SIGINT and SIGTERM cancel the command's
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env", nil, ".env files to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// loadConfig builds the effective config: file (or defaults), then .env and
// TICKSIM_* variables, then the global flags. Callers validate after
// applying their own flags.
func loadConfig(live bool) (*config.Config, error) {
	cfg := config.Default()
	if live {
		cfg = config.DefaultLive()
	}
	if cfgFile != "" {
		var err error
		if cfg, err = config.LoadFromFile(cfgFile); err != nil {
			return nil, err
		}
	}
	if err := config.LoadEnv(cfg, envFiles...); err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.File != "" {
		return logging.NewWithFile(cfg.File, cfg.Level)
	}
	return logging.New(cfg.Level)
}
