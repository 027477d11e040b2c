package indicators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// MA calculates the Simple Moving Average of the last period values.
func MA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}

	return stat.Mean(values[len(values)-period:], nil), nil
}

// EMA calculates the Exponential Moving Average over all values, seeded with
// the SMA of the first period values.
func EMA(values []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(values) < period {
		return 0, fmt.Errorf("not enough values: need %d, got %d", period, len(values))
	}

	multiplier := 2.0 / float64(period+1)

	sma := 0.0
	for i := 0; i < period; i++ {
		sma += values[i]
	}
	ema := sma / float64(period)

	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
	}
	return ema, nil
}

// SMASeries returns the rolling SMA aligned with values. Entries before the
// window fills are NaN.
func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if period <= 0 || i < period-1 {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMASeries returns the rolling EMA aligned with values, NaN during warmup.
func EMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	e := NewEMA(period)
	for i, v := range values {
		e.Add(v)
		if !e.Ready() {
			out[i] = math.NaN()
			continue
		}
		out[i] = e.Value()
	}
	return out
}
