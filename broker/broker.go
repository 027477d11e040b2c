// Package broker defines what a strategy sees of the simulated account:
// orders, trades, account snapshots and the events a broker emits.
package broker

import (
	"github.com/rustyeddy/ticksim/market"
)

// Broker is the strategy-facing side of the simulation engine.
type Broker interface {
	// NewOrder queues an order after admission checks. refPrice is the
	// price used for the buying-power check.
	NewOrder(o Order, refPrice float64) (OrderID, error)
	CancelOrder(id OrderID) bool
	ClosePosition(id TradeID) error
	CloseAllTrades()

	// Tick is the index of the tick being processed, -1 before the first.
	Tick() int
	Quote(instrument string) (market.Quote, bool)
	Account() Account
	Positions(instrument string) (long, short int)
	OpenTrades() []Trade
	ClosedTrades() []Trade
	PendingOrders() []Order
}

// Account is a point-in-time copy of the broker's money state.
type Account struct {
	Cash           float64
	Equity         float64
	Exposure       float64
	BuyingPower    float64
	MarginUsage    float64
	MaxMarginUsage float64
	OpenTrades     int
	ClosedTrades   int
	PendingOrders  int
	Ruined         bool
}
