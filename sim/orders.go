package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/rustyeddy/ticksim/broker"
)

// NewOrder admits o into the pending queue or rejects it with one of
// broker.ErrFractionalOrderNotAllowed, broker.ErrMarginExceeded or
// broker.ErrTradeLimitExceeded.
//
// A contingent order is resized to close its whole parent trade. In
// exclusive-orders mode a successful entry admission first cancels every
// pending order and closes every open trade at the current mark; contingent
// admissions leave the book alone.
func (b *Broker) NewOrder(o broker.Order, refPrice float64) (broker.OrderID, error) {
	o = o.Clone()

	if o.Size == 0 {
		return 0, errors.New("new order: size must be non-zero")
	}
	if o.IsContingent() {
		idx, ok := b.byID[o.ParentTrade]
		if !ok {
			return 0, fmt.Errorf("new order: parent %s: %w", o.ParentTrade, broker.ErrTradeNotFound)
		}
		// a contingent order always closes the whole parent, on its closing side
		parent := b.open[idx]
		o.Size = -parent.Size
		o.Instrument = parent.Instrument
	}
	if b.ruined {
		return b.reject(o, fmt.Errorf("new order: account ruined: %w", broker.ErrMarginExceeded))
	}

	if b.opts.Scaling && b.baseEquity > 0 && !o.IsContingent() {
		o.Size *= b.Equity() / b.baseEquity
	}

	if b.opts.MarginRatio >= 1-Epsilon && hasFraction(o.Size) {
		return b.reject(o, fmt.Errorf("new order: size %v in a cash account: %w", o.Size, broker.ErrFractionalOrderNotAllowed))
	}

	notional := math.Abs(o.Size) * refPrice
	if avail := b.buyingPower(); notional > avail {
		return b.reject(o, fmt.Errorf("new order: notional %.2f over buying power %.2f: %w", notional, avail, broker.ErrMarginExceeded))
	}

	if !o.IsContingent() {
		if n := b.sideCount(o.Instrument, o.IsBuy()); n >= b.opts.MaxPerSide {
			return b.reject(o, fmt.Errorf("new order: %d %s trades on %s: %w", n, side(o.Size), o.Instrument, broker.ErrTradeLimitExceeded))
		}
	}

	if b.opts.ExclusiveOrders && !o.IsContingent() {
		b.cancelAll(broker.ReasonExclusive)
		b.closeAll(b.tick, broker.ReasonExclusive)
	}

	b.nextOrderID++
	o.ID = b.nextOrderID
	if o.IsContingent() {
		b.orders = append([]broker.Order{o}, b.orders...)
	} else {
		b.orders = append(b.orders, o)
	}

	b.recordMarginEvent()
	b.emit(broker.Event{
		Kind:        broker.EventOrderAdmitted,
		OrderID:     o.ID,
		TradeID:     o.ParentTrade,
		Instrument:  o.Instrument,
		Size:        o.Size,
		Price:       refPrice,
		MarginUsage: b.usage(),
	})
	return o.ID, nil
}

func (b *Broker) reject(o broker.Order, err error) (broker.OrderID, error) {
	b.emit(broker.Event{
		Kind:       broker.EventOrderRejected,
		Instrument: o.Instrument,
		Size:       o.Size,
		TradeID:    o.ParentTrade,
		Err:        err,
	})
	return 0, err
}

// sideCount is the number of open trades plus pending entry orders on one
// side of an instrument.
func (b *Broker) sideCount(instrument string, long bool) int {
	n := b.positions.Count(instrument, long)
	for _, o := range b.orders {
		if o.IsContingent() || o.Instrument != instrument {
			continue
		}
		if o.IsBuy() == long {
			n++
		}
	}
	return n
}

// CancelOrder removes a pending order. It reports whether the order was queued.
func (b *Broker) CancelOrder(id broker.OrderID) bool {
	for i, o := range b.orders {
		if o.ID != id {
			continue
		}
		b.orders = append(b.orders[:i], b.orders[i+1:]...)
		b.emitCancel(o, broker.ReasonManual)
		return true
	}
	return false
}

func (b *Broker) cancelAll(reason string) {
	orders := b.orders
	b.orders = nil
	for _, o := range orders {
		b.emitCancel(o, reason)
	}
}

// cancelContingents drops the pending orders that close trade id.
func (b *Broker) cancelContingents(id broker.TradeID) {
	kept := b.orders[:0]
	var dropped []broker.Order
	for _, o := range b.orders {
		if o.ParentTrade == id {
			dropped = append(dropped, o)
			continue
		}
		kept = append(kept, o)
	}
	b.orders = kept
	for _, o := range dropped {
		b.emitCancel(o, broker.ReasonParentClosed)
	}
}

func (b *Broker) emitCancel(o broker.Order, reason string) {
	b.emit(broker.Event{
		Kind:       broker.EventOrderCancelled,
		OrderID:    o.ID,
		TradeID:    o.ParentTrade,
		Instrument: o.Instrument,
		Size:       o.Size,
		Reason:     reason,
	})
}

// ClosePosition closes an open trade at the current tick's mark.
func (b *Broker) ClosePosition(id broker.TradeID) error {
	idx, ok := b.byID[id]
	if !ok {
		return fmt.Errorf("close position %s: %w", id, broker.ErrTradeNotFound)
	}
	b.closeAt(idx, b.tick, broker.ReasonManual)
	return nil
}

// CloseAllTrades closes every open trade at the current tick's mark.
func (b *Broker) CloseAllTrades() {
	b.closeAll(b.tick, broker.ReasonManual)
}

// CloseAll closes every open trade with the given reason, as at the end of
// a replay.
func (b *Broker) CloseAll(reason string) {
	b.closeAll(b.tick, reason)
}

func side(size float64) string {
	if size > 0 {
		return "long"
	}
	return "short"
}
