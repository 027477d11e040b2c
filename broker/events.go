package broker

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventOrderAdmitted  EventKind = "order_admitted"
	EventOrderRejected  EventKind = "order_rejected"
	EventOrderCancelled EventKind = "order_cancelled"
	EventOrderFilled    EventKind = "order_filled"
	EventTradeOpened    EventKind = "trade_opened"
	EventTradeClosed    EventKind = "trade_closed"
	EventMarginCall     EventKind = "margin_call"
	EventRuin           EventKind = "ruin"
	EventTick           EventKind = "tick"
)

// Event is one observable state transition of a broker.
type Event struct {
	Kind        EventKind
	Tick        int
	Time        time.Time
	OrderID     OrderID
	TradeID     TradeID
	Instrument  string
	Size        float64
	Price       float64
	PnL         float64
	Cash        float64
	Equity      float64
	MarginUsage float64
	Reason      string
	Err         error

	// Trade is set on trade_opened and trade_closed.
	Trade *Trade
}

// EventSink receives broker events synchronously, on the broker's goroutine.
type EventSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to an EventSink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink fans events out in order.
type MultiSink []EventSink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Recorder keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns the recorded events, optionally filtered to kinds.
func (r *Recorder) Events(kinds ...EventKind) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(kinds) == 0 {
		return append([]Event(nil), r.events...)
	}
	var out []Event
	for _, e := range r.events {
		for _, k := range kinds {
			if e.Kind == k {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
