package sim

import (
	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/market"
)

// processOrders matches the pending queue against tick t. Orders selected
// for execution are pulled out of the queue first and then executed in
// queue order, so executions never disturb the scan.
func (b *Broker) processOrders(t int) {
	var fills []broker.Order
	kept := make([]broker.Order, 0, len(b.orders))

	for _, o := range b.orders {
		q, ok := b.src.Quote(o.Instrument, t)
		if !ok {
			kept = append(kept, o)
			continue
		}
		if o.Stop != nil {
			if !q.StopHit(o.IsBuy(), *o.Stop) {
				kept = append(kept, o)
				continue
			}
			// triggered stops stay triggered
			o.Stop = nil
		}
		if o.Limit != nil && !q.LimitHit(o.IsBuy(), *o.Limit) {
			kept = append(kept, o)
			continue
		}
		fills = append(fills, o)
	}
	b.orders = kept

	for _, o := range fills {
		b.execute(o, t)
	}
}

func (b *Broker) rawPrice(o broker.Order, q market.Quote, t int) float64 {
	if o.Limit != nil {
		return *o.Limit
	}
	if b.opts.TradeOnClose && t > 0 {
		if prev, ok := b.src.Quote(o.Instrument, t-1); ok {
			return prev.ClosePrice(o.IsBuy())
		}
	}
	return q.FillPrice(o.IsBuy())
}

func (b *Broker) execute(o broker.Order, t int) {
	q, _ := b.src.Quote(o.Instrument, t)
	price := AdjustPrice(b.rawPrice(o, q, t), o.Size, b.opts.Commission, b.opts.Spread)

	if o.IsContingent() {
		idx, ok := b.byID[o.ParentTrade]
		if !ok {
			b.emitCancel(o, broker.ReasonParentClosed)
			return
		}
		b.emitFill(o, price)
		reason := o.Reason
		if reason == "" {
			reason = broker.ReasonContingent
		}
		b.closeTrade(idx, price, t, reason)
		return
	}

	b.emitFill(o, price)
	if !b.opts.Hedging {
		b.closeOpposite(o, price, t)
	}
	b.openTrade(o, price, t)
}

func (b *Broker) emitFill(o broker.Order, price float64) {
	b.emit(broker.Event{
		Kind:       broker.EventOrderFilled,
		OrderID:    o.ID,
		TradeID:    o.ParentTrade,
		Instrument: o.Instrument,
		Size:       o.Size,
		Price:      price,
	})
}

// closeOpposite closes trades on the other side of o's instrument, oldest
// first, at o's execution price.
func (b *Broker) closeOpposite(o broker.Order, price float64, t int) {
	for i := 0; i < len(b.open); {
		tr := b.open[i]
		if tr.Instrument != o.Instrument || tr.IsLong() == o.IsBuy() {
			i++
			continue
		}
		b.closeTrade(i, price, t, broker.ReasonReverse)
	}
}

func (b *Broker) openTrade(o broker.Order, price float64, t int) {
	tr := &broker.Trade{
		ID:         broker.TradeID(b.opts.NewTradeID()),
		Instrument: o.Instrument,
		Size:       o.Size,
		EntryPrice: price,
		EntryTick:  t,
		EntryTime:  b.timeAt(t),
		Open:       true,
	}
	b.open = append(b.open, tr)
	b.byID[tr.ID] = len(b.open) - 1
	b.positions.Register(tr.Instrument, tr.Size)

	snapshot := *tr
	b.emit(broker.Event{
		Kind:       broker.EventTradeOpened,
		OrderID:    o.ID,
		TradeID:    tr.ID,
		Instrument: tr.Instrument,
		Size:       tr.Size,
		Price:      price,
		Trade:      &snapshot,
	})

	var contingents []broker.Order
	if o.StopLoss != nil {
		b.nextOrderID++
		contingents = append(contingents, broker.Order{
			ID:          b.nextOrderID,
			Instrument:  tr.Instrument,
			Size:        -tr.Size,
			Stop:        broker.Price(*o.StopLoss),
			ParentTrade: tr.ID,
			Reason:      broker.ReasonStopLoss,
		})
	}
	if o.TakeProfit != nil {
		b.nextOrderID++
		contingents = append(contingents, broker.Order{
			ID:          b.nextOrderID,
			Instrument:  tr.Instrument,
			Size:        -tr.Size,
			Limit:       broker.Price(*o.TakeProfit),
			ParentTrade: tr.ID,
			Reason:      broker.ReasonTakeProfit,
		})
	}
	if len(contingents) > 0 {
		b.orders = append(contingents, b.orders...)
	}
}

// closeTrade closes the open trade at idx at an already adjusted exit price,
// realizes its PnL into cash and cancels its remaining contingent orders.
func (b *Broker) closeTrade(idx int, price float64, t int, reason string) {
	tr := b.open[idx]
	tr.Open = false
	tr.ExitPrice = price
	tr.ExitTick = t
	tr.ExitTime = b.timeAt(t)
	tr.Reason = reason

	pnl := tr.PnL()
	b.cash += pnl

	b.open = append(b.open[:idx], b.open[idx+1:]...)
	b.reindex()
	b.closed = append(b.closed, *tr)
	b.positions.Close(tr.Instrument, tr.Size)
	b.cancelContingents(tr.ID)

	snapshot := *tr
	b.emit(broker.Event{
		Kind:       broker.EventTradeClosed,
		TradeID:    tr.ID,
		Instrument: tr.Instrument,
		Size:       tr.Size,
		Price:      price,
		PnL:        pnl,
		Reason:     reason,
		Trade:      &snapshot,
	})
}

// closeAt closes the trade at idx at tick t's mark, adjusted on the closing
// side. Without a quote the trade closes flat at its entry.
func (b *Broker) closeAt(idx int, t int, reason string) {
	tr := b.open[idx]
	price := tr.EntryPrice
	if q, ok := b.src.Quote(tr.Instrument, t); ok && t >= 0 {
		price = AdjustPrice(q.MarkPrice(tr.IsLong()), -tr.Size, b.opts.Commission, b.opts.Spread)
	}
	b.closeTrade(idx, price, t, reason)
}

func (b *Broker) closeAll(t int, reason string) {
	for len(b.open) > 0 {
		b.closeAt(0, t, reason)
	}
}
