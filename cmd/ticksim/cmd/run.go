package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/ticksim/backtest"
	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/config"
	"github.com/rustyeddy/ticksim/journal"
	"github.com/rustyeddy/ticksim/logging"
)

// runJournals is the set of journals one run writes to.
type runJournals struct {
	runID  string
	main   journal.Journal // nil when journaling is off
	sqlite *journal.SQLite
	mem    *journal.Memory // set when artifacts are exported

	sinks []*journal.Sink
}

func openJournals(cfg config.JournalConfig, runID string) (*runJournals, error) {
	rj := &runJournals{runID: runID}

	switch cfg.Type {
	case "sqlite":
		j, err := journal.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open journal db: %w", err)
		}
		rj.main, rj.sqlite = j, j
	case "csv":
		j, err := journal.NewCSV(cfg.TradesFile, cfg.EquityFile)
		if err != nil {
			return nil, fmt.Errorf("open journal csv: %w", err)
		}
		rj.main = j
	}
	if cfg.ParquetDir != "" {
		rj.mem = &journal.Memory{}
	}

	if rj.main != nil {
		rj.sinks = append(rj.sinks, journal.NewSink(runID, rj.main))
	}
	if rj.mem != nil {
		rj.sinks = append(rj.sinks, journal.NewSink(runID, rj.mem))
	}
	return rj, nil
}

// eventSink fans broker events out to the event logger and the journals.
func (rj *runJournals) eventSink(log *zap.Logger) broker.EventSink {
	sinks := broker.MultiSink{logging.NewEventLogger(log)}
	for _, s := range rj.sinks {
		sinks = append(sinks, s)
	}
	return sinks
}

func (rj *runJournals) err() error {
	var errs []error
	for _, s := range rj.sinks {
		errs = append(errs, s.Err())
	}
	return errors.Join(errs...)
}

func (rj *runJournals) Close() error {
	if rj.main == nil {
		return nil
	}
	return rj.main.Close()
}

// finish records the run summary and writes the configured artifacts.
func (rj *runJournals) finish(ctx context.Context, cfg *config.Config, mode, dataset string, res backtest.Result, ruined bool, log *zap.Logger) (journal.Run, error) {
	params, err := json.Marshal(cfg.Strategy.Params)
	if err != nil {
		return journal.Run{}, err
	}
	run := journal.Run{
		RunID:      rj.runID,
		Created:    time.Now().UTC(),
		Mode:       mode,
		Dataset:    dataset,
		Instrument: cfg.Strategy.Instrument,
		Strategy:   cfg.Strategy.Name,
		Config:     params,
		Ruined:     ruined,
	}
	run.Apply(res.Report, res.Trades, cfg.Account.Cash)

	if rj.sqlite != nil {
		if err := rj.sqlite.RecordRun(ctx, run); err != nil {
			return run, fmt.Errorf("record run: %w", err)
		}
	}

	if rj.mem != nil {
		dir := cfg.Journal.ParquetDir
		if err := journal.ExportTradesParquet(filepath.Join(dir, rj.runID+"-trades.parquet"), rj.mem.Trades()); err != nil {
			return run, err
		}
		if err := journal.ExportEquityParquet(filepath.Join(dir, rj.runID+"-equity.parquet"), rj.mem.Equity()); err != nil {
			return run, err
		}
	}

	if cfg.Journal.OrgPath != "" {
		if err := run.WriteOrgFile(cfg.Journal.OrgPath); err != nil {
			return run, fmt.Errorf("write org: %w", err)
		}
	}

	log.Info("run recorded",
		zap.String("run_id", rj.runID),
		zap.String("mode", mode),
		zap.Int("trades", run.Trades),
		zap.Float64("end_equity", run.EndEquity),
	)
	return run, nil
}

func printSummary(w io.Writer, run journal.Run, res backtest.Result) error {
	fmt.Fprintf(w, "Run %s (%s %s on %s)\n\n", run.RunID, run.Mode, run.Strategy, run.Instrument)
	return res.Report.Print(w)
}
