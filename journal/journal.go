// Package journal persists what a run did: its closed trades, its per-tick
// equity and a summary row per run.
package journal

import (
	"time"

	"github.com/rustyeddy/ticksim/broker"
)

// TradeRecord is one closed trade of a run.
type TradeRecord struct {
	RunID      string
	TradeID    string
	Instrument string
	Units      float64
	EntryPrice float64
	ExitPrice  float64
	EntryTick  int
	ExitTick   int
	OpenTime   time.Time
	CloseTime  time.Time
	RealizedPL float64
	Reason     string
}

// EquitySnapshot is the account after one tick of a run.
type EquitySnapshot struct {
	RunID       string
	Tick        int
	Time        time.Time
	Cash        float64
	Equity      float64
	MarginUsage float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// TradeRecordFrom converts a closed broker trade.
func TradeRecordFrom(runID string, t broker.Trade) TradeRecord {
	return TradeRecord{
		RunID:      runID,
		TradeID:    string(t.ID),
		Instrument: t.Instrument,
		Units:      t.Size,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		EntryTick:  t.EntryTick,
		ExitTick:   t.ExitTick,
		OpenTime:   t.EntryTime,
		CloseTime:  t.ExitTime,
		RealizedPL: t.PnL(),
		Reason:     t.Reason,
	}
}
