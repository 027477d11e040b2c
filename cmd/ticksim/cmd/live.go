package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/ticksim/config"
	"github.com/rustyeddy/ticksim/feed"
	"github.com/rustyeddy/ticksim/journal"
	"github.com/rustyeddy/ticksim/live"
	"github.com/rustyeddy/ticksim/market"
	"github.com/rustyeddy/ticksim/pkg/id"
	"github.com/rustyeddy/ticksim/sim"
	"github.com/rustyeddy/ticksim/strategies"
	"github.com/rustyeddy/ticksim/telemetry"
)

var liveCmd = &cobra.Command{
	Use:   "live",
	Short: "Run a strategy against a live or replayed quote feed",
	Long: `Live drives the simulated broker from bid/ask quotes as they arrive, either
from a websocket feed or replayed from a tick CSV (time,instrument,bid,ask).
Account snapshots are served on the telemetry address:

  GET /health
  GET /api/v1/snapshot
  GET /ws

Stop with Ctrl-C; ticks already received are processed before the report.

Example:
  ticksim live --feed wss://quotes.example.com/stream --instrument EUR_USD
  ticksim live --replay data/eurusd-ticks.csv --pace 50ms`,
	RunE: runLive,
}

var (
	lvFeed      string
	lvReplay    string
	lvPace      string
	lvRecord    string
	lvTelemetry string
)

func init() {
	rootCmd.AddCommand(liveCmd)

	f := liveCmd.Flags()
	f.StringVar(&lvFeed, "feed", "", "websocket quote feed URL")
	f.StringVar(&lvReplay, "replay", "", "tick file to replay as a feed, .csv or a .parquet recording")
	f.StringVar(&lvPace, "pace", "", "delay between replayed ticks, e.g. 100ms")
	f.StringVar(&lvRecord, "record", "", "write received ticks to this Parquet file")
	f.StringVar(&lvTelemetry, "telemetry", "", "telemetry listen address, empty to disable")

	f.StringVarP(&btStrategy, "strategy", "s", "", "strategy name")
	f.StringVarP(&btInstrument, "instrument", "i", "", "primary instrument")
	f.StringVar(&btHedge, "hedge", "", "hedge instrument")
	f.Float64VarP(&btCash, "cash", "b", 0, "starting cash")
	f.BoolVar(&btCloseEnd, "close-end", true, "close open trades when the feed ends")
	f.StringVar(&btDB, "db", "", "record to this SQLite journal")
	f.StringVar(&btParquetDir, "parquet-dir", "", "export trades and equity as Parquet into this directory")
	f.StringVar(&btOrg, "org", "", "write an Org-mode run summary to this file")
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return err
	}
	applyRunFlags(cmd, cfg)
	applyLiveFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	_, err = liveWith(cmd.Context(), cfg, log, cmd.OutOrStdout())
	return err
}

func applyLiveFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("feed") {
		cfg.Live.FeedURL = lvFeed
		cfg.Live.ReplayFile = ""
	}
	if f.Changed("replay") {
		cfg.Live.ReplayFile = lvReplay
		cfg.Live.FeedURL = ""
	}
	if f.Changed("pace") {
		cfg.Live.ReplayPace = lvPace
	}
	if f.Changed("record") {
		cfg.Live.RecordFile = lvRecord
	}
	if f.Changed("telemetry") {
		cfg.Live.TelemetryAddr = lvTelemetry
	}
}

// loadTicks reads a replay file, CSV or a Parquet recording from --record.
func loadTicks(path string) ([]market.Tick, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		return feed.ReadTicksParquet(path)
	}
	return feed.LoadTicks(path)
}

// produce starts the configured tick producer. It closes q when it stops.
func produce(ctx context.Context, cfg config.LiveConfig, q *live.Queue[market.Tick], log *zap.Logger) (<-chan error, error) {
	var run func() error
	switch {
	case cfg.FeedURL != "":
		ws := &feed.WSQuotes{URL: cfg.FeedURL, Log: log}
		run = func() error { return ws.Run(ctx, q) }
	case cfg.ReplayFile != "":
		ticks, err := loadTicks(cfg.ReplayFile)
		if err != nil {
			return nil, err
		}
		pace, err := cfg.Pace()
		if err != nil {
			return nil, err
		}
		run = func() error { return feed.ReplayQuotes(ctx, ticks, q, pace) }
	default:
		return nil, errors.New("live needs a feed url or a replay file")
	}

	done := make(chan error, 1)
	go func() {
		defer q.Close()
		done <- run()
	}()
	return done, nil
}

// liveWith runs the live loop until the producer stops or ctx is cancelled,
// records the run and prints the report to out.
func liveWith(ctx context.Context, cfg *config.Config, log *zap.Logger, out io.Writer) (journal.Run, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runID := id.New()
	log = log.With(zap.String("run_id", runID))

	rj, err := openJournals(cfg.Journal, runID)
	if err != nil {
		return journal.Run{}, err
	}
	defer rj.Close()

	stream := market.NewStream()
	opts := cfg.Broker.Options(cfg.Account.Cash)
	opts.Sink = rj.eventSink(log)
	b, err := sim.NewBroker(stream, opts)
	if err != nil {
		return journal.Run{}, err
	}

	strat, err := strategies.New(cfg.Strategy.Name, cfg.Strategy.Params, log)
	if err != nil {
		return journal.Run{}, err
	}

	pub := telemetry.NewPublisher()
	if cfg.Live.TelemetryAddr != "" {
		srv := telemetry.NewServer(cfg.Live.TelemetryAddr, pub, log)
		if len(cfg.Live.AllowedOrigins) > 0 {
			srv.AllowedOrigins = cfg.Live.AllowedOrigins
		}
		if err := srv.Start(ctx); err != nil {
			return journal.Run{}, fmt.Errorf("telemetry: %w", err)
		}
		defer srv.Shutdown(context.Background())
	}

	q := live.NewQueue[market.Tick]()
	done, err := produce(ctx, cfg.Live, q, log)
	if err != nil {
		return journal.Run{}, err
	}

	ropts := cfg.Stats.Options()
	if ropts.Benchmark == "" {
		ropts.Benchmark = cfg.Strategy.Instrument
	}
	runner := &live.Runner{
		Broker:    b,
		Stream:    stream,
		Queue:     q,
		Strategy:  strat,
		Publisher: pub,
		Options:   ropts,
		Log:       log,
	}
	res, err := runner.Run(ctx)
	if err != nil {
		return journal.Run{}, err
	}
	if perr := <-done; perr != nil && !errors.Is(perr, context.Canceled) {
		log.Warn("feed stopped", zap.Error(perr))
	}
	if err := rj.err(); err != nil {
		return journal.Run{}, err
	}

	if cfg.Live.RecordFile != "" {
		ticks := make([]market.Tick, stream.Len())
		for i := range ticks {
			ticks[i] = stream.Tick(i)
		}
		if err := feed.WriteTicksParquet(cfg.Live.RecordFile, ticks); err != nil {
			return journal.Run{}, fmt.Errorf("record ticks: %w", err)
		}
	}

	dataset := cfg.Live.FeedURL
	if dataset == "" {
		dataset = cfg.Live.ReplayFile
	}
	// the command context may be cancelled by now
	run, err := rj.finish(context.WithoutCancel(ctx), cfg, "live", dataset, res, b.Ruined(), log)
	if err != nil {
		return run, err
	}
	return run, printSummary(out, run, res)
}
