// Package indicators provides technical analysis indicators for strategies.
package indicators

import "github.com/rustyeddy/ticksim/market"

// Indicator computes a single streaming value from candles.
// It is deterministic and behaves the same in live runs and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed candle.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful.
	Ready() bool

	// Value returns the current value, 0 until Ready.
	Value() float64
}
