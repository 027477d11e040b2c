package strategies

import (
	"context"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/market"
)

// NoopStrategy does nothing.
type NoopStrategy struct{}

func (NoopStrategy) Init(broker.Broker, market.PriceSource) error { return nil }

func (NoopStrategy) Next(context.Context, broker.Broker, int) error { return nil }
