package sim

import (
	"fmt"

	"github.com/rustyeddy/ticksim/broker"
)

// Next advances the broker to tick t. Ticks must be stepped in order with
// no gaps, and t must already be available from the price source.
//
// Per tick: record the concurrent-trade high-water mark, match pending
// orders, mark equity, liquidate on a margin call, liquidate and zero the
// account on ruin, then record margin usage. Ruin is terminal.
func (b *Broker) Next(t int) error {
	if t != b.tick+1 {
		return fmt.Errorf("next: tick %d out of order, expected %d", t, b.tick+1)
	}
	if t >= b.src.Len() {
		return fmt.Errorf("next: tick %d beyond %d available", t, b.src.Len())
	}
	b.tick = t
	b.grow(t)

	if b.ruined {
		b.equity[t] = 0
		b.marginUsage[t] = 0
		b.emitTick(t)
		return nil
	}

	if n := len(b.open); n > b.maxConcurrent {
		b.maxConcurrent = n
	}

	b.processOrders(t)
	b.equity[t] = b.markEquity(t)

	if u := b.usage(); u > b.opts.MarginCallThreshold {
		b.marginCall(t, u)
	}

	if b.equity[t] <= 0 {
		b.ruin(t)
	}

	u := b.usage()
	b.marginUsage[t] = u
	b.trackUsage(u)
	b.emitTick(t)
	return nil
}

// grow extends the per-tick series for sources that are still filling.
func (b *Broker) grow(t int) {
	for len(b.equity) <= t {
		b.equity = append(b.equity, b.cash)
		b.marginUsage = append(b.marginUsage, 0)
	}
}

// markEquity is cash plus the unrealized PnL of every open trade at tick t.
func (b *Broker) markEquity(t int) float64 {
	eq := b.cash
	for _, tr := range b.open {
		if q, ok := b.src.Quote(tr.Instrument, t); ok {
			eq += UnrealizedPL(*tr, q)
		}
	}
	return eq
}

func (b *Broker) marginCall(t int, usage float64) {
	b.marginEvents = append(b.marginEvents, usage)
	b.trackUsage(usage)
	b.emit(broker.Event{
		Kind:        broker.EventMarginCall,
		Equity:      b.equity[t],
		MarginUsage: usage,
		Reason:      fmt.Sprintf("usage %.4f over %.4f", usage, b.opts.MarginCallThreshold),
	})

	b.cancelAll(broker.ReasonMarginCall)
	b.closeAll(t, broker.ReasonMarginCall)
	b.equity[t] = b.markEquity(t)
}

func (b *Broker) ruin(t int) {
	equity := b.equity[t]

	b.cancelAll(broker.ReasonRuin)
	b.closeAll(t, broker.ReasonRuin)
	b.cash = 0
	for i := t; i < len(b.equity); i++ {
		b.equity[i] = 0
	}
	b.ruined = true

	b.emit(broker.Event{
		Kind:   broker.EventRuin,
		Equity: equity,
		Reason: "equity at or below zero",
	})
}

func (b *Broker) emitTick(t int) {
	b.emit(broker.Event{
		Kind:        broker.EventTick,
		Equity:      b.equity[t],
		MarginUsage: b.marginUsage[t],
	})
}
