package market

import "time"

// Kind says which price group of a Quote is populated.
type Kind uint8

const (
	KindBar Kind = iota
	KindQuote
)

func (k Kind) String() string {
	if k == KindQuote {
		return "quote"
	}
	return "bar"
}

// Quote is the price view of one instrument at one tick. Bar quotes carry
// OHLC, live quotes carry bid/ask. Every matching rule that depends on the
// data mode lives here.
type Quote struct {
	Instrument string
	Time       time.Time
	Kind       Kind

	Open  float64
	High  float64
	Low   float64
	Close float64

	Bid float64
	Ask float64
}

// StopHit reports whether a stop at price stop fires on this tick. Buy stops
// fire on a rising price, sell stops on a falling one.
func (q Quote) StopHit(buy bool, stop float64) bool {
	if q.Kind == KindQuote {
		if buy {
			return q.Ask >= stop
		}
		return q.Bid <= stop
	}
	if buy {
		return q.High >= stop
	}
	return q.Low <= stop
}

// LimitHit reports whether a limit order at limit can fill on this tick.
func (q Quote) LimitHit(buy bool, limit float64) bool {
	if q.Kind == KindQuote {
		if buy {
			return q.Ask <= limit
		}
		return q.Bid >= limit
	}
	if buy {
		return q.Low < limit
	}
	return q.High > limit
}

// FillPrice is the raw market execution price on this tick.
func (q Quote) FillPrice(buy bool) float64 {
	if q.Kind == KindQuote {
		if buy {
			return q.Ask
		}
		return q.Bid
	}
	return q.Open
}

// ClosePrice is the trade-on-close reference when q is the previous tick.
func (q Quote) ClosePrice(buy bool) float64 {
	if q.Kind == KindQuote {
		return q.FillPrice(buy)
	}
	return q.Close
}

// MarkPrice values an open position: longs mark at what they could be sold
// for and shorts at what they could be bought back for.
func (q Quote) MarkPrice(long bool) float64 {
	if q.Kind == KindQuote {
		if long {
			return q.Bid
		}
		return q.Ask
	}
	return q.Close
}

// Reference is a single representative price: the close for bars and the
// mid for quotes.
func (q Quote) Reference() float64 {
	if q.Kind == KindQuote {
		return (q.Bid + q.Ask) / 2
	}
	return q.Close
}
