package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/ticksim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func candles() []market.Candle {
	return []market.Candle{
		{Open: 100, High: 105, Low: 99, Close: 102, Time: baseTime},
		{Open: 102, High: 107, Low: 101, Close: 105, Time: baseTime.Add(time.Hour)},
		{Open: 105, High: 108, Low: 104, Close: 106, Time: baseTime.Add(2 * time.Hour)},
		{Open: 106, High: 110, Low: 105, Close: 108, Time: baseTime.Add(3 * time.Hour)},
		{Open: 108, High: 112, Low: 107, Close: 110, Time: baseTime.Add(4 * time.Hour)},
	}
}

func TestSimpleMAStreaming(t *testing.T) {
	t.Parallel()

	ma := NewMA(3)
	assert.Equal(t, "MA(3)", ma.Name())
	assert.Equal(t, 3, ma.Warmup())
	assert.False(t, ma.Ready())
	assert.Equal(t, 0.0, ma.Value())

	cs := candles()
	ma.Update(cs[0])
	ma.Update(cs[1])
	assert.False(t, ma.Ready())

	ma.Update(cs[2])
	require.True(t, ma.Ready())
	assert.InDelta(t, (102.0+105+106)/3, ma.Value(), 1e-9)

	ma.Update(cs[3])
	assert.InDelta(t, (105.0+106+108)/3, ma.Value(), 1e-9)

	ma.Reset()
	assert.False(t, ma.Ready())
}

func TestExponentialMAMatchesBatch(t *testing.T) {
	t.Parallel()

	values := []float64{102, 105, 106, 108, 110, 107, 104}
	e := NewEMA(3)
	for _, v := range values {
		e.Add(v)
	}
	want, err := EMA(values, 3)
	require.NoError(t, err)
	assert.InDelta(t, want, e.Value(), 1e-9)

	series := EMASeries(values, 3)
	assert.True(t, math.IsNaN(series[1]))
	assert.InDelta(t, want, series[len(series)-1], 1e-9)
}

func TestMAErrors(t *testing.T) {
	t.Parallel()

	_, err := MA([]float64{1, 2}, 0)
	assert.Error(t, err)
	_, err = MA([]float64{1, 2}, 3)
	assert.Error(t, err)
	_, err = EMA([]float64{1, 2}, 3)
	assert.Error(t, err)

	v, err := MA([]float64{1, 2, 3, 4}, 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, v, 1e-12)
}

func TestSMASeries(t *testing.T) {
	t.Parallel()

	got := SMASeries([]float64{1, 2, 3, 4, 5}, 3)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-12)
	assert.InDelta(t, 3.0, got[3], 1e-12)
	assert.InDelta(t, 4.0, got[4], 1e-12)
}

func TestATR(t *testing.T) {
	t.Parallel()

	a := NewATR(2)
	assert.Equal(t, 3, a.Warmup())
	cs := candles()

	a.Update(cs[0])
	a.Update(cs[1]) // tr = max(6, 5, 1) = 6
	assert.False(t, a.Ready())
	a.Update(cs[2]) // tr = max(4, 3, 1) = 4
	require.True(t, a.Ready())
	assert.InDelta(t, 5.0, a.Value(), 1e-12)

	a.Update(cs[3]) // tr = max(5, 4, 1) = 5, wilder (5*1+5)/2
	assert.InDelta(t, 5.0, a.Value(), 1e-12)
}

func TestZScore(t *testing.T) {
	t.Parallel()

	z := NewZScore(4)
	for _, v := range []float64{1, 1, 1} {
		z.Add(v)
	}
	assert.False(t, z.Ready())
	z.Add(1)
	assert.Equal(t, 0.0, z.Value())

	z.Reset()
	for _, v := range []float64{2, 4, 4, 6} {
		z.Add(v)
	}
	// mean 4, sample variance 8/3
	assert.InDelta(t, 2/math.Sqrt(8.0/3), z.Value(), 1e-12)
}

func trendCandles(n int, start, step, halfRange float64) []market.Candle {
	out := make([]market.Candle, n)
	p := start
	for i := range out {
		o, c := p, p+step
		out[i] = market.Candle{Time: baseTime.Add(time.Duration(i) * time.Hour), Open: o, High: c + halfRange, Low: o - halfRange, Close: c}
		p = c
	}
	return out
}

func TestADX(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		candles []market.Candle
		check   func(t *testing.T, a *ADX)
	}{
		{
			name:    "uptrend",
			candles: trendCandles(42, 1.0, 0.0001, 0.00005),
			check: func(t *testing.T, a *ADX) {
				assert.Greater(t, a.PlusDI(), a.MinusDI())
				assert.Greater(t, a.Value(), 0.0)
				assert.LessOrEqual(t, a.Value(), 100.0)
			},
		},
		{
			name:    "downtrend",
			candles: trendCandles(42, 2.0, -0.0001, 0.00005),
			check: func(t *testing.T, a *ADX) {
				assert.Greater(t, a.MinusDI(), a.PlusDI())
			},
		},
		{
			name: "flat",
			candles: func() []market.Candle {
				out := make([]market.Candle, 42)
				for i := range out {
					out[i] = market.Candle{Open: 1.2345, High: 1.2345, Low: 1.2345, Close: 1.2345}
				}
				return out
			}(),
			check: func(t *testing.T, a *ADX) {
				assert.InDelta(t, 0, a.PlusDI(), 1e-12)
				assert.InDelta(t, 0, a.MinusDI(), 1e-12)
				assert.InDelta(t, 0, a.DX(), 1e-12)
				assert.InDelta(t, 0, a.Value(), 1e-12)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := NewADX(14)
			assert.Equal(t, "ADX(14)", a.Name())
			assert.Equal(t, 28, a.Warmup())
			for _, c := range tt.candles {
				a.Update(c)
			}
			require.True(t, a.Ready())
			tt.check(t, a)
		})
	}
}

func TestADXReadiness(t *testing.T) {
	t.Parallel()

	a := NewADX(2)
	var _ Indicator = a
	cs := trendCandles(5, 100, 1, 0.5)

	// first candle only primes, then 2 periods seed DI and one more seeds ADX
	for i := 0; i < 3; i++ {
		a.Update(cs[i])
		assert.False(t, a.Ready(), "candle %d", i)
		assert.Zero(t, a.Value())
	}
	a.Update(cs[3])
	assert.True(t, a.Ready())

	a.Reset()
	assert.False(t, a.Ready())
	assert.Zero(t, a.PlusDI())
	assert.Equal(t, "ADX(2)", a.Name())
}
