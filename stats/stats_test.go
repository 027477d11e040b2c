package stats

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

func daily(n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = day0.AddDate(0, 0, i)
	}
	return out
}

func closed(entry, exit float64, entryTick, exitTick int) broker.Trade {
	return broker.Trade{
		Instrument: "SPY",
		Size:       1,
		EntryPrice: entry,
		EntryTick:  entryTick,
		ExitPrice:  exit,
		ExitTick:   exitTick,
	}
}

func TestDrawdownScenario(t *testing.T) {
	t.Parallel()

	r := Compute(Input{
		Equity: []float64{100000, 110000, 90000, 105000},
		Times:  daily(4),
	})

	assert.InDelta(t, (90000.0-110000.0)/110000.0, r.MaxDrawdown, 1e-12)
	assert.InDelta(t, -0.181818, r.MaxDrawdown, 1e-6)
	assert.InDelta(t, 0.05, r.TotalReturn, 1e-12)
	assert.Equal(t, 105000.0, r.EquityFinal)
	assert.Equal(t, 110000.0, r.EquityPeak)
	assert.Equal(t, 72*time.Hour, r.Duration)
}

func TestAnnualizedFigures(t *testing.T) {
	t.Parallel()

	equity := []float64{100000, 110000, 90000, 105000}
	r := Compute(Input{Equity: equity, Times: daily(4), RiskFreeRate: 0.02})

	wantAnn := math.Pow(1.05, 365.0/3) - 1
	assert.InDelta(t, wantAnn, r.AnnualReturn, 1e-9)

	rets := []float64{0.1, -20000.0 / 110000, 15000.0 / 90000}
	m := (rets[0] + rets[1] + rets[2]) / 3
	v := 0.0
	for _, x := range rets {
		v += (x - m) * (x - m)
	}
	wantVol := math.Sqrt(v/2) * math.Sqrt(365)
	assert.InDelta(t, wantVol, r.AnnualVolatility, 1e-9)
	assert.InDelta(t, (wantAnn-0.02)/wantVol, r.Sharpe, 1e-9)
	assert.InDelta(t, math.Abs(wantAnn)/(20000.0/110000), r.Calmar, 1e-9)
}

func TestVolatilityUsesActualSpacing(t *testing.T) {
	t.Parallel()

	equity := []float64{100, 101, 99, 102}
	hourly := make([]time.Time, 4)
	for i := range hourly {
		hourly[i] = day0.Add(time.Duration(i) * time.Hour)
	}

	d := Compute(Input{Equity: equity, Times: daily(4)})
	h := Compute(Input{Equity: equity, Times: hourly})

	assert.InDelta(t, d.AnnualVolatility*math.Sqrt(24), h.AnnualVolatility, 1e-9)
}

func TestDegenerateInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   Input
	}{
		{"empty", Input{}},
		{"single point", Input{Equity: []float64{100}, Times: daily(1)}},
		{"zero elapsed", Input{Equity: []float64{100, 120}, Times: []time.Time{day0, day0}}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := Compute(tt.in)
			assert.Zero(t, r.AnnualReturn)
			assert.Zero(t, r.AnnualVolatility)
			assert.Zero(t, r.Sharpe)
			assert.Zero(t, r.Beta)
			assert.True(t, math.IsNaN(r.ProfitFactor))
		})
	}
}

func TestZeroEquityStepCountsAsNoChange(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []float64{-1, 0, 0}, Returns([]float64{100, 0, 0, 0}))
	assert.Nil(t, Returns([]float64{1}))
}

func TestTradeStatistics(t *testing.T) {
	t.Parallel()

	trades := []broker.Trade{
		closed(100, 110, 0, 1),
		closed(100, 120, 1, 2),
		closed(100, 130, 2, 3),
		closed(100, 94, 3, 4),
		{Instrument: "SPY", Size: 1, EntryPrice: 100, EntryTick: 4, Open: true},
	}

	r := Compute(Input{Trades: trades, Equity: make([]float64, 5), Times: daily(5)})
	assert.Equal(t, 4, r.Trades)
	assert.InDelta(t, 0.75, r.WinRate, 1e-12)
	assert.InDelta(t, 20.0, r.AvgWin, 1e-12)
	assert.InDelta(t, -6.0, r.AvgLoss, 1e-12)
	assert.InDelta(t, 10.0, r.ProfitFactor, 1e-12)
	assert.InDelta(t, 30.0, r.BestTrade, 1e-12)
	assert.InDelta(t, -6.0, r.WorstTrade, 1e-12)

	legacy := Compute(Input{Trades: trades, AvgLoss: WinnersDenominator})
	assert.InDelta(t, -2.0, legacy.AvgLoss, 1e-12)
}

func TestProfitFactorWithoutLosses(t *testing.T) {
	t.Parallel()

	r := Compute(Input{Trades: []broker.Trade{closed(100, 105, 0, 1)}})
	assert.True(t, math.IsNaN(r.ProfitFactor))
	assert.Zero(t, r.AvgLoss)
	assert.Equal(t, 5.0, r.BestTrade)
	assert.Equal(t, 5.0, r.WorstTrade)
}

func TestExposureUnionsTradeSpans(t *testing.T) {
	t.Parallel()

	trades := []broker.Trade{
		closed(1, 1, 1, 3),
		closed(1, 1, 2, 5),
		{EntryTick: 8, Open: true},
	}
	assert.InDelta(t, 0.7, Exposure(trades, 10), 1e-12)
	assert.Zero(t, Exposure(trades, 0))
}

func TestAlphaAndBeta(t *testing.T) {
	t.Parallel()

	bench := []float64{100, 110, 99, 108.9}
	equity := []float64{100, 120, 96, 115.2}

	r := Compute(Input{Equity: equity, Times: daily(4), Benchmark: bench})
	assert.Equal(t, 2.0, r.Beta)
	assert.InDelta(t, 0.152-0.089, r.Alpha, 1e-9)
	assert.InDelta(t, 0.089, r.BuyHoldReturn, 1e-9)
}

func TestBetaFlatBenchmark(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Beta([]float64{0.1, 0.2}, []float64{0, 0}))
	assert.Zero(t, Beta([]float64{0.1}, []float64{0.1}))
}

func TestSampleStatistics(t *testing.T) {
	t.Parallel()

	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, math.Sqrt(32.0/7), stddev(xs), 1e-12)
	assert.Zero(t, stddev([]float64{3}))
	assert.Zero(t, stddev(nil))

	// unequal lengths use the common prefix
	assert.Equal(t, -0.5, Beta([]float64{-0.05, 0.1, -0.05, 9}, []float64{0.1, -0.2, 0.1}))
}

func TestReportPrintsPercent(t *testing.T) {
	t.Parallel()

	r := Compute(Input{
		Equity:         []float64{100000, 110000, 90000, 105000},
		Times:          daily(4),
		MaxMarginUsage: 0.42,
	})

	var sb strings.Builder
	require.NoError(t, r.Print(&sb))
	out := sb.String()

	assert.Contains(t, out, "Max Drawdown [%]")
	assert.Contains(t, out, "-18.18")
	assert.Contains(t, out, "42.00")
	assert.Contains(t, out, "NaN")
	assert.Contains(t, out, "2024-01-02 00:00:00")
	assert.Equal(t, out, r.String())
}
