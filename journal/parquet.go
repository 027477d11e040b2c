package journal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/parquet-go/parquet-go"
)

type tradeRow struct {
	RunID      string  `parquet:"run_id"`
	TradeID    string  `parquet:"trade_id"`
	Instrument string  `parquet:"instrument"`
	Units      float64 `parquet:"units"`
	EntryPrice float64 `parquet:"entry_price"`
	ExitPrice  float64 `parquet:"exit_price"`
	EntryTick  int64   `parquet:"entry_tick"`
	ExitTick   int64   `parquet:"exit_tick"`
	OpenTime   int64   `parquet:"open_time,timestamp(millisecond)"`
	CloseTime  int64   `parquet:"close_time,timestamp(millisecond)"`
	RealizedPL float64 `parquet:"realized_pl"`
	Reason     string  `parquet:"reason"`
}

type equityRow struct {
	RunID       string  `parquet:"run_id"`
	Tick        int64   `parquet:"tick"`
	Time        int64   `parquet:"time,timestamp(millisecond)"`
	Cash        float64 `parquet:"cash"`
	Equity      float64 `parquet:"equity"`
	MarginUsage float64 `parquet:"margin_usage"`
}

// ExportTradesParquet writes trade records to path, creating parent
// directories.
func ExportTradesParquet(path string, trades []TradeRecord) error {
	rows := make([]tradeRow, len(trades))
	for i, t := range trades {
		rows[i] = tradeRow{
			RunID:      t.RunID,
			TradeID:    t.TradeID,
			Instrument: t.Instrument,
			Units:      t.Units,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			EntryTick:  int64(t.EntryTick),
			ExitTick:   int64(t.ExitTick),
			OpenTime:   t.OpenTime.UnixMilli(),
			CloseTime:  t.CloseTime.UnixMilli(),
			RealizedPL: t.RealizedPL,
			Reason:     t.Reason,
		}
	}
	if err := writeRows(path, rows); err != nil {
		return fmt.Errorf("exporting trades: %w", err)
	}
	return nil
}

func ImportTradesParquet(path string) ([]TradeRecord, error) {
	rows, err := parquet.ReadFile[tradeRow](path)
	if err != nil {
		return nil, fmt.Errorf("importing trades %s: %w", path, err)
	}
	out := make([]TradeRecord, len(rows))
	for i, r := range rows {
		out[i] = TradeRecord{
			RunID:      r.RunID,
			TradeID:    r.TradeID,
			Instrument: r.Instrument,
			Units:      r.Units,
			EntryPrice: r.EntryPrice,
			ExitPrice:  r.ExitPrice,
			EntryTick:  int(r.EntryTick),
			ExitTick:   int(r.ExitTick),
			OpenTime:   time.UnixMilli(r.OpenTime).UTC(),
			CloseTime:  time.UnixMilli(r.CloseTime).UTC(),
			RealizedPL: r.RealizedPL,
			Reason:     r.Reason,
		}
	}
	return out, nil
}

// ExportEquityParquet writes the equity snapshots to path.
func ExportEquityParquet(path string, equity []EquitySnapshot) error {
	rows := make([]equityRow, len(equity))
	for i, e := range equity {
		rows[i] = equityRow{
			RunID:       e.RunID,
			Tick:        int64(e.Tick),
			Time:        e.Time.UnixMilli(),
			Cash:        e.Cash,
			Equity:      e.Equity,
			MarginUsage: e.MarginUsage,
		}
	}
	if err := writeRows(path, rows); err != nil {
		return fmt.Errorf("exporting equity: %w", err)
	}
	return nil
}

func ImportEquityParquet(path string) ([]EquitySnapshot, error) {
	rows, err := parquet.ReadFile[equityRow](path)
	if err != nil {
		return nil, fmt.Errorf("importing equity %s: %w", path, err)
	}
	out := make([]EquitySnapshot, len(rows))
	for i, r := range rows {
		out[i] = EquitySnapshot{
			RunID:       r.RunID,
			Tick:        int(r.Tick),
			Time:        time.UnixMilli(r.Time).UTC(),
			Cash:        r.Cash,
			Equity:      r.Equity,
			MarginUsage: r.MarginUsage,
		}
	}
	return out, nil
}

func writeRows[T any](path string, rows []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, rows)
}
