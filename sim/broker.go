// Package sim is the simulated broker: a per-tick state machine that admits
// orders, matches them against a price source and keeps cash, trades, equity
// and margin in step.
package sim

import (
	"fmt"
	"time"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/market"
)

// Broker implements broker.Broker over any market.PriceSource. It is driven
// by a single goroutine and is not safe for concurrent use.
type Broker struct {
	opts Options
	src  market.PriceSource

	cash       float64
	baseEquity float64
	tick       int
	ruined     bool

	orders      []broker.Order
	nextOrderID broker.OrderID

	open      []*broker.Trade
	byID      map[broker.TradeID]int
	closed    []broker.Trade
	positions *PositionManager

	equity         []float64
	marginUsage    []float64
	marginEvents   []float64
	maxMarginUsage float64
	maxConcurrent  int
}

var _ broker.Broker = (*Broker)(nil)

// NewBroker returns a broker with opts.Cash in the account, positioned
// before the first tick of src.
func NewBroker(src market.PriceSource, opts Options) (*Broker, error) {
	if src == nil {
		return nil, fmt.Errorf("new broker: price source is required")
	}
	opts.applyDefaults()
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("new broker: %w", err)
	}

	b := &Broker{
		opts:       opts,
		src:        src,
		cash:       opts.Cash,
		baseEquity: opts.Cash,
		tick:       -1,
		byID:       make(map[broker.TradeID]int),
		positions:  NewPositionManager(opts.MaxPerSide),
	}

	n := src.Len()
	b.equity = make([]float64, n)
	b.marginUsage = make([]float64, n)
	for i := range b.equity {
		b.equity[i] = opts.Cash
	}
	return b, nil
}

func (b *Broker) Options() Options { return b.opts }

func (b *Broker) Tick() int { return b.tick }

func (b *Broker) Cash() float64 { return b.cash }

func (b *Broker) Ruined() bool { return b.ruined }

// Quote returns the price of instrument at the current tick.
func (b *Broker) Quote(instrument string) (market.Quote, bool) {
	if b.tick < 0 {
		return market.Quote{}, false
	}
	return b.src.Quote(instrument, b.tick)
}

// Equity is the most recently computed equity, or cash before the first tick.
func (b *Broker) Equity() float64 {
	if b.tick < 0 {
		return b.cash
	}
	return b.equity[b.tick]
}

func (b *Broker) exposure() float64 {
	return Exposure(b.open)
}

func (b *Broker) usage() float64 {
	return MarginUsage(b.exposure(), b.cash, b.opts.MarginRatio)
}

func (b *Broker) buyingPower() float64 {
	return AllowedNotional(b.cash, b.opts.MarginRatio) - b.exposure()
}

func (b *Broker) Account() broker.Account {
	return broker.Account{
		Cash:           b.cash,
		Equity:         b.Equity(),
		Exposure:       b.exposure(),
		BuyingPower:    b.buyingPower(),
		MarginUsage:    b.usage(),
		MaxMarginUsage: b.maxMarginUsage,
		OpenTrades:     len(b.open),
		ClosedTrades:   len(b.closed),
		PendingOrders:  len(b.orders),
		Ruined:         b.ruined,
	}
}

func (b *Broker) Positions(instrument string) (long, short int) {
	return b.positions.Count(instrument, true), b.positions.Count(instrument, false)
}

// OpenTrades returns copies of the open trades in opening order.
func (b *Broker) OpenTrades() []broker.Trade {
	out := make([]broker.Trade, len(b.open))
	for i, t := range b.open {
		out[i] = *t
	}
	return out
}

func (b *Broker) ClosedTrades() []broker.Trade {
	return append([]broker.Trade(nil), b.closed...)
}

// PendingOrders returns copies of the queue in matching order.
func (b *Broker) PendingOrders() []broker.Order {
	out := make([]broker.Order, len(b.orders))
	for i, o := range b.orders {
		out[i] = o.Clone()
	}
	return out
}

// EquityCurve has one value per tick of the source.
func (b *Broker) EquityCurve() []float64 {
	return append([]float64(nil), b.equity...)
}

// MarginUsageHistory has one value per tick, aligned with EquityCurve.
func (b *Broker) MarginUsageHistory() []float64 {
	return append([]float64(nil), b.marginUsage...)
}

// MarginEvents is the usage recorded at each order admission and margin call.
func (b *Broker) MarginEvents() []float64 {
	return append([]float64(nil), b.marginEvents...)
}

func (b *Broker) MaxMarginUsage() float64 { return b.maxMarginUsage }

// MaxConcurrentTrades is the high-water mark of simultaneously open trades.
func (b *Broker) MaxConcurrentTrades() int { return b.maxConcurrent }

func (b *Broker) trackUsage(u float64) {
	if u > b.maxMarginUsage {
		b.maxMarginUsage = u
	}
}

func (b *Broker) recordMarginEvent() {
	u := b.usage()
	b.marginEvents = append(b.marginEvents, u)
	b.trackUsage(u)
}

func (b *Broker) timeAt(t int) time.Time {
	if t < 0 || t >= b.src.Len() {
		return time.Time{}
	}
	return b.src.Time(t)
}

func (b *Broker) emit(e broker.Event) {
	if b.opts.Sink == nil {
		return
	}
	e.Tick = b.tick
	e.Time = b.timeAt(b.tick)
	e.Cash = b.cash
	b.opts.Sink.Emit(e)
}

func (b *Broker) reindex() {
	clear(b.byID)
	for i, t := range b.open {
		b.byID[t.ID] = i
	}
}
