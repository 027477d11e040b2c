package broker

import (
	"math"
	"time"
)

// TradeID is a stable, creation-ordered trade identifier.
type TradeID string

// Close reasons recorded on trades.
const (
	ReasonStopLoss    = "StopLoss"
	ReasonTakeProfit  = "TakeProfit"
	ReasonContingent  = "Contingent"
	ReasonManual      = "ManualClose"
	ReasonMarginCall  = "MarginCall"
	ReasonRuin        = "Ruin"
	ReasonExclusive   = "Exclusive"
	ReasonReverse     = "Reverse"
	ReasonEndOfReplay = "EndOfReplay"

	// ReasonParentClosed cancels contingent orders whose trade is gone.
	ReasonParentClosed = "ParentClosed"
)

// Trade is a filled position. Exit fields are set exactly once, when the
// trade closes.
type Trade struct {
	ID         TradeID
	Instrument string
	Size       float64
	EntryPrice float64
	EntryTick  int
	EntryTime  time.Time

	Open      bool
	ExitPrice float64
	ExitTick  int
	ExitTime  time.Time
	Reason    string
}

func (t Trade) IsLong() bool { return t.Size > 0 }

// Notional is the entry value of the position.
func (t Trade) Notional() float64 {
	return math.Abs(t.Size) * t.EntryPrice
}

// PnL is the realized profit of a closed trade, 0 while open.
func (t Trade) PnL() float64 {
	if t.Open {
		return 0
	}
	return PnL(t.Size, t.EntryPrice, t.ExitPrice)
}

// PnLAt is the profit of the trade if closed at price.
func (t Trade) PnLAt(price float64) float64 {
	return PnL(t.Size, t.EntryPrice, price)
}

// PnLPct is realized profit relative to the entry notional.
func (t Trade) PnLPct() float64 {
	n := t.Notional()
	if n == 0 || t.Open {
		return 0
	}
	return t.PnL() / n
}

// PnL is size*(exit-entry); the sign of size carries the direction.
func PnL(size, entry, exit float64) float64 {
	return size * (exit - entry)
}

// PnLBySide computes the same value from the side: longs earn exit-entry per
// unit, shorts earn entry-exit per unit.
func PnLBySide(size, entry, exit float64) float64 {
	if size >= 0 {
		return (exit - entry) * size
	}
	return (entry - exit) * -size
}
