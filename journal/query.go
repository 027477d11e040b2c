package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrNotFound = errors.New("not found")

const tradeColumns = `run_id, trade_id, instrument, units, entry_price, exit_price, entry_tick, exit_tick, open_time, close_time, realized_pl, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.RunID,
		&rec.TradeID,
		&rec.Instrument,
		&rec.Units,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.EntryTick,
		&rec.ExitTick,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.RealizedPL,
		&rec.Reason,
	)
	return rec, err
}

func (j *SQLite) queryTrades(ctx context.Context, query string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// GetTrade returns a single trade record of a run.
func (j *SQLite) GetTrade(ctx context.Context, runID, tradeID string) (TradeRecord, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ? AND trade_id = ?`, runID, tradeID)

	rec, err := scanTrade(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TradeRecord{}, fmt.Errorf("trade %q of run %q: %w", tradeID, runID, ErrNotFound)
		}
		return TradeRecord{}, err
	}
	return rec, nil
}

// ListTradesByRunID returns a run's trades in closing order.
func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	return j.queryTrades(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE run_id = ?
		ORDER BY exit_tick ASC, trade_id ASC`, runID)
}

// ListTradesClosedBetween returns trades of any run whose close_time is
// within [start, end).
func (j *SQLite) ListTradesClosedBetween(ctx context.Context, start, end time.Time) ([]TradeRecord, error) {
	return j.queryTrades(ctx, `
		SELECT `+tradeColumns+`
		FROM trades
		WHERE close_time >= ? AND close_time < ?
		ORDER BY close_time ASC`, start, end)
}

// ListEquityByRunID returns a run's equity snapshots in tick order.
func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, tick, time, cash, equity, margin_usage
		FROM equity
		WHERE run_id = ?
		ORDER BY tick ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Tick, &e.Time, &e.Cash, &e.Equity, &e.MarginUsage); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

const runColumns = `run_id, created, mode, dataset, instrument, strategy, config, start_time, end_time,
	ticks, trades, wins, losses, start_cash, end_equity, total_return, max_drawdown,
	sharpe, win_rate, profit_factor, max_margin_usage, ruined`

func scanRun(s scanner) (Run, error) {
	var r Run
	var pf sql.NullFloat64
	err := s.Scan(
		&r.RunID, &r.Created, &r.Mode, &r.Dataset, &r.Instrument, &r.Strategy, &r.Config,
		&r.Start, &r.End, &r.Ticks, &r.Trades, &r.Wins, &r.Losses, &r.StartCash, &r.EndEquity,
		&r.TotalReturn, &r.MaxDrawdown, &r.Sharpe, &r.WinRate, &pf, &r.MaxMarginUsage, &r.Ruined,
	)
	r.ProfitFactor = math.NaN()
	if pf.Valid {
		r.ProfitFactor = pf.Float64
	}
	return r, err
}

func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first. A limit of zero lists all.
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
