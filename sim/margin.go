package sim

import (
	"math"

	"github.com/rustyeddy/ticksim/broker"
)

// Exposure is the entry notional of all open trades.
func Exposure(trades []*broker.Trade) float64 {
	var sum float64
	for _, t := range trades {
		sum += t.Notional()
	}
	return sum
}

// AllowedNotional is the position value the cash supports at marginRatio.
func AllowedNotional(cash, marginRatio float64) float64 {
	return cash / marginRatio
}

// MarginUsage is exposure over allowed notional. A cash account (ratio 1)
// or an account with nothing allowed reports zero.
func MarginUsage(exposure, cash, marginRatio float64) float64 {
	if isCashAccount(marginRatio) {
		return 0
	}
	allowed := AllowedNotional(cash, marginRatio)
	if allowed <= 0 {
		return 0
	}
	return exposure / allowed
}

func isCashAccount(marginRatio float64) bool {
	return math.Abs(marginRatio-1.0) < Epsilon
}

func hasFraction(size float64) bool {
	return math.Abs(size-math.Trunc(size)) > Epsilon
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
