package market

import (
	"fmt"
	"time"
)

// Tick is one live-mode price observation for a single instrument.
type Tick struct {
	Instrument string    `json:"instrument"`
	Time       time.Time `json:"time"`
	Bid        float64   `json:"bid"`
	Ask        float64   `json:"ask"`
}

func (t Tick) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

func (t Tick) Spread() float64 {
	return t.Ask - t.Bid
}

// Validate rejects ticks the broker cannot price.
func (t Tick) Validate() error {
	if t.Instrument == "" {
		return fmt.Errorf("tick: instrument is required")
	}
	if t.Bid <= 0 || t.Ask <= 0 {
		return fmt.Errorf("tick %s: prices must be positive (bid=%v ask=%v)", t.Instrument, t.Bid, t.Ask)
	}
	if t.Ask < t.Bid {
		return fmt.Errorf("tick %s: ask %v below bid %v", t.Instrument, t.Ask, t.Bid)
	}
	return nil
}

// Quote returns the tick as a live-mode quote.
func (t Tick) Quote() Quote {
	return Quote{
		Instrument: t.Instrument,
		Time:       t.Time,
		Kind:       KindQuote,
		Bid:        t.Bid,
		Ask:        t.Ask,
	}
}
