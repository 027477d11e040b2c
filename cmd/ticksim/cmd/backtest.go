package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/ticksim/backtest"
	"github.com/rustyeddy/ticksim/config"
	"github.com/rustyeddy/ticksim/feed"
	"github.com/rustyeddy/ticksim/journal"
	"github.com/rustyeddy/ticksim/market"
	"github.com/rustyeddy/ticksim/pkg/id"
	"github.com/rustyeddy/ticksim/sim"
	"github.com/rustyeddy/ticksim/strategies"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical bars through a strategy",
	Long: `Backtest replays OHLC bars from a CSV or Parquet file through the simulated
broker and a strategy, then prints the performance report.

CSV columns: time,open,high,low,close[,close2[,volume]]
close2 is the hedge instrument's close, used by stat-arb.

Strategies: ` + strings.Join(strategies.Names(), ", ") + `

Example:
  ticksim backtest --data data/spy.csv --strategy ma-cross --instrument SPY
  ticksim backtest -c backtest.yaml --data data/pair.parquet --hedge GLD`,
	RunE: runBacktest,
}

var (
	btData       string
	btStrategy   string
	btInstrument string
	btHedge      string
	btCash       float64
	btCloseEnd   bool
	btDB         string
	btParquetDir string
	btOrg        string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	f := backtestCmd.Flags()
	f.StringVarP(&btData, "data", "d", "", "bar file, .csv or .parquet (required)")
	f.StringVarP(&btStrategy, "strategy", "s", "", "strategy name")
	f.StringVarP(&btInstrument, "instrument", "i", "", "primary instrument")
	f.StringVar(&btHedge, "hedge", "", "hedge instrument quoted on close2")
	f.Float64VarP(&btCash, "cash", "b", 0, "starting cash")
	f.BoolVar(&btCloseEnd, "close-end", true, "close open trades after the last bar")
	f.StringVar(&btDB, "db", "", "record to this SQLite journal")
	f.StringVar(&btParquetDir, "parquet-dir", "", "export trades and equity as Parquet into this directory")
	f.StringVar(&btOrg, "org", "", "write an Org-mode run summary to this file")

	backtestCmd.MarkFlagRequired("data")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	_, err = backtestWith(cmd.Context(), cfg, btData, log, cmd.OutOrStdout())
	return err
}

// applyRunFlags copies explicitly set flags over the config.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("strategy") {
		cfg.Strategy.Name = btStrategy
	}
	if f.Changed("instrument") {
		cfg.Strategy.Instrument = btInstrument
	}
	if f.Changed("hedge") {
		cfg.Strategy.Hedge = btHedge
	}
	if f.Changed("cash") {
		cfg.Account.Cash = btCash
	}
	if f.Changed("close-end") {
		cfg.Stats.CloseEnd = btCloseEnd
	}
	if f.Changed("db") {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = btDB
	}
	if f.Changed("parquet-dir") {
		cfg.Journal.ParquetDir = btParquetDir
	}
	if f.Changed("org") {
		cfg.Journal.OrgPath = btOrg
	}
}

func loadSeries(path, instrument, hedge string) (*market.Series, error) {
	var s *market.Series
	var err error
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		s, err = feed.ReadBarsParquet(path, instrument)
	} else {
		s, err = feed.LoadBarsCSV(path, instrument)
	}
	if err != nil {
		return nil, err
	}
	if s.Len() == 0 {
		return nil, fmt.Errorf("%s: no bars for %s", path, instrument)
	}
	if hedge != "" {
		s = s.WithHedge(hedge)
	}
	return s, nil
}

// backtestWith runs one backtest of cfg over the bars in data, records it
// and prints the report to out.
func backtestWith(ctx context.Context, cfg *config.Config, data string, log *zap.Logger, out io.Writer) (journal.Run, error) {
	series, err := loadSeries(data, cfg.Strategy.Instrument, cfg.Strategy.Hedge)
	if err != nil {
		return journal.Run{}, fmt.Errorf("load bars: %w", err)
	}

	runID := id.New()
	log = log.With(zap.String("run_id", runID))

	rj, err := openJournals(cfg.Journal, runID)
	if err != nil {
		return journal.Run{}, err
	}
	defer rj.Close()

	opts := cfg.Broker.Options(cfg.Account.Cash)
	opts.Sink = rj.eventSink(log)
	b, err := sim.NewBroker(series, opts)
	if err != nil {
		return journal.Run{}, err
	}

	strat, err := strategies.New(cfg.Strategy.Name, cfg.Strategy.Params, log)
	if err != nil {
		return journal.Run{}, err
	}

	ropts := cfg.Stats.Options()
	if ropts.Benchmark == "" {
		ropts.Benchmark = cfg.Strategy.Instrument
	}
	runner := &backtest.Runner{
		Broker:   b,
		Source:   series,
		Strategy: strat,
		Options:  ropts,
		Log:      log,
	}
	res, err := runner.Run(ctx)
	if err != nil {
		return journal.Run{}, err
	}
	if err := rj.err(); err != nil {
		return journal.Run{}, err
	}

	run, err := rj.finish(ctx, cfg, "backtest", data, res, b.Ruined(), log)
	if err != nil {
		return run, err
	}
	return run, printSummary(out, run, res)
}
