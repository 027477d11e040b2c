package journal

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

var _ Journal = (*SQLite)(nil)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(run_id, trade_id, instrument, units, entry_price, exit_price, entry_tick, exit_tick, open_time, close_time, realized_pl, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.RunID, t.TradeID, t.Instrument, t.Units, t.EntryPrice, t.ExitPrice,
		t.EntryTick, t.ExitTick, t.OpenTime, t.CloseTime, t.RealizedPL, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, tick, time, cash, equity, margin_usage)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Tick, e.Time, e.Cash, e.Equity, e.MarginUsage,
	)
	return err
}

// RecordRun inserts or replaces the summary row of a run.
func (j *SQLite) RecordRun(ctx context.Context, r Run) error {
	var pf sql.NullFloat64
	if !math.IsNaN(r.ProfitFactor) && !math.IsInf(r.ProfitFactor, 0) {
		pf = sql.NullFloat64{Float64: r.ProfitFactor, Valid: true}
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(run_id, created, mode, dataset, instrument, strategy, config, start_time, end_time,
		 ticks, trades, wins, losses, start_cash, end_equity, total_return, max_drawdown,
		 sharpe, win_rate, profit_factor, max_margin_usage, ruined)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Mode, r.Dataset, r.Instrument, r.Strategy, r.Config, r.Start, r.End,
		r.Ticks, r.Trades, r.Wins, r.Losses, r.StartCash, r.EndEquity, r.TotalReturn, r.MaxDrawdown,
		r.Sharpe, r.WinRate, pf, r.MaxMarginUsage, r.Ruined,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
