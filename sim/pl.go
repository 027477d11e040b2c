package sim

import (
	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/market"
)

// UnrealizedPL marks an open trade against q.
func UnrealizedPL(t broker.Trade, q market.Quote) float64 {
	return t.PnLAt(q.MarkPrice(t.IsLong()))
}

// AdjustPrice applies commission and the fixed spread to a raw execution
// price. size is the signed size of the side executing, so buys pay up and
// sells receive less.
func AdjustPrice(raw, size, commission, spread float64) float64 {
	s := sign(size)
	return raw*(1+s*commission) + s*spread
}
