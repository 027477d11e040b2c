package sim

import (
	"fmt"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/pkg/id"
)

// Epsilon is the tolerance for ratio and size comparisons.
const Epsilon = 1e-9

const (
	// DefaultMarginCallThreshold is the liquidation threshold for historical runs.
	DefaultMarginCallThreshold = 0.90
	// LiveMarginCallThreshold is the liquidation threshold for live runs.
	LiveMarginCallThreshold = 0.85

	DefaultMaxPerSide = 3
)

// Options is the broker configuration. It is fixed for the life of a run.
type Options struct {
	Cash        float64
	Commission  float64
	Spread      float64
	MarginRatio float64

	TradeOnClose    bool
	Hedging         bool
	ExclusiveOrders bool
	Scaling         bool

	MaxPerSide          int
	MarginCallThreshold float64

	// Sink receives every broker event. Nil discards them.
	Sink broker.EventSink
	// NewTradeID overrides trade id generation.
	NewTradeID func() string
}

// DefaultOptions is a 100k cash, 20:1 margin account.
func DefaultOptions() Options {
	return Options{
		Cash:                100_000,
		MarginRatio:         0.05,
		MaxPerSide:          DefaultMaxPerSide,
		MarginCallThreshold: DefaultMarginCallThreshold,
	}
}

func (o *Options) validate() error {
	if o.Cash <= 0 {
		return fmt.Errorf("cash must be positive, got %v", o.Cash)
	}
	if o.MarginRatio <= 0 {
		return fmt.Errorf("margin ratio must be positive, got %v", o.MarginRatio)
	}
	if o.Commission < 0 || o.Commission >= 1 {
		return fmt.Errorf("commission must be in [0, 1), got %v", o.Commission)
	}
	if o.Spread < 0 {
		return fmt.Errorf("spread must not be negative, got %v", o.Spread)
	}
	if o.MaxPerSide < 0 {
		return fmt.Errorf("max per side must not be negative, got %d", o.MaxPerSide)
	}
	if o.MarginCallThreshold < 0 {
		return fmt.Errorf("margin call threshold must not be negative, got %v", o.MarginCallThreshold)
	}
	return nil
}

func (o *Options) applyDefaults() {
	if o.MaxPerSide == 0 {
		o.MaxPerSide = DefaultMaxPerSide
	}
	if o.MarginCallThreshold == 0 {
		o.MarginCallThreshold = DefaultMarginCallThreshold
	}
	if o.NewTradeID == nil {
		o.NewTradeID = id.New
	}
}
