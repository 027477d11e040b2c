// Package stats computes the performance report of a finished run from its
// closed trades, equity curve and benchmark prices.
package stats

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/rustyeddy/ticksim/broker"
)

const secondsPerYear = 365 * 24 * 3600.0

// AvgLossDenominator selects what AvgLoss divides the summed losses by.
type AvgLossDenominator int

const (
	// LosersDenominator divides by the number of losing trades.
	LosersDenominator AvgLossDenominator = iota
	// WinnersDenominator divides by the number of winning trades, as an
	// older revision of the report did.
	WinnersDenominator
)

// Input is everything Compute needs. Equity, Times and Benchmark are aligned
// per tick.
type Input struct {
	Trades    []broker.Trade
	Equity    []float64
	Times     []time.Time
	Benchmark []float64

	RiskFreeRate        float64
	MaxMarginUsage      float64
	MaxConcurrentTrades int
	AvgLoss             AvgLossDenominator
}

// Report holds ratios as fractions: a MaxDrawdown of -0.18 is -18%.
type Report struct {
	Start    time.Time
	End      time.Time
	Duration time.Duration
	Ticks    int

	ExposureTime float64
	EquityFinal  float64
	EquityPeak   float64

	TotalReturn      float64
	BuyHoldReturn    float64
	AnnualReturn     float64
	AnnualVolatility float64
	Sharpe           float64
	Calmar           float64
	MaxDrawdown      float64
	Alpha            float64
	Beta             float64

	Trades       int
	WinRate      float64
	BestTrade    float64
	WorstTrade   float64
	AvgWin       float64
	AvgLoss      float64
	ProfitFactor float64

	MaxMarginUsage      float64
	MaxConcurrentTrades int
}

// Compute builds the report. It never fails: degenerate inputs produce zero
// ratios instead of infinities.
func Compute(in Input) Report {
	r := Report{
		Ticks:               len(in.Equity),
		MaxMarginUsage:      in.MaxMarginUsage,
		MaxConcurrentTrades: in.MaxConcurrentTrades,
		ProfitFactor:        math.NaN(),
	}
	if len(in.Times) > 0 {
		r.Start = in.Times[0]
		r.End = in.Times[len(in.Times)-1]
		r.Duration = r.End.Sub(r.Start)
	}

	tradeStats(&r, in)
	if len(in.Equity) == 0 {
		return r
	}

	first, last := in.Equity[0], in.Equity[len(in.Equity)-1]
	r.EquityFinal = last
	r.EquityPeak = first
	for _, v := range in.Equity {
		r.EquityPeak = math.Max(r.EquityPeak, v)
	}
	r.TotalReturn = change(first, last)
	if len(in.Benchmark) > 1 {
		r.BuyHoldReturn = change(in.Benchmark[0], in.Benchmark[len(in.Benchmark)-1])
	}
	r.Alpha = r.TotalReturn - r.BuyHoldReturn
	r.MaxDrawdown = MaxDrawdown(in.Equity)
	r.ExposureTime = Exposure(in.Trades, len(in.Equity))

	days := r.Duration.Hours() / 24
	if len(in.Equity) < 2 || days <= 0 {
		return r
	}

	r.AnnualReturn = annualize(r.TotalReturn, days)
	rets := Returns(in.Equity)
	if avgDt := r.Duration.Seconds() / float64(len(in.Times)-1); avgDt > 0 {
		r.AnnualVolatility = stddev(rets) * math.Sqrt(secondsPerYear/avgDt)
	}
	if r.AnnualVolatility != 0 {
		r.Sharpe = (r.AnnualReturn - in.RiskFreeRate) / r.AnnualVolatility
	}
	if r.MaxDrawdown != 0 {
		r.Calmar = math.Abs(r.AnnualReturn) / math.Abs(r.MaxDrawdown)
	}
	if len(in.Benchmark) == len(in.Equity) {
		r.Beta = Beta(rets, Returns(in.Benchmark))
	}
	return r
}

func tradeStats(r *Report, in Input) {
	var wins, losses int
	var won, lost float64
	first := true

	for _, t := range in.Trades {
		if t.Open {
			continue
		}
		pnl := t.PnL()
		r.Trades++
		if first || pnl > r.BestTrade {
			r.BestTrade = pnl
		}
		if first || pnl < r.WorstTrade {
			r.WorstTrade = pnl
		}
		first = false

		switch {
		case pnl > 0:
			wins++
			won += pnl
		case pnl < 0:
			losses++
			lost += pnl
		}
	}

	if r.Trades > 0 {
		r.WinRate = float64(wins) / float64(r.Trades)
	}
	if wins > 0 {
		r.AvgWin = won / float64(wins)
	}
	denom := losses
	if in.AvgLoss == WinnersDenominator {
		denom = wins
	}
	if denom > 0 {
		r.AvgLoss = lost / float64(denom)
	}
	if lost != 0 {
		r.ProfitFactor = won / math.Abs(lost)
	}
}

// annualize compounds a total return over days to a 365-day year.
func annualize(total, days float64) float64 {
	if 1+total <= 0 {
		return -1
	}
	return math.Pow(1+total, 365/days) - 1
}

func change(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from
}

// Returns is the per-tick fractional change of values. A step from zero
// counts as no change.
func Returns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	out := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		out[i-1] = change(values[i-1], values[i])
	}
	return out
}

// MaxDrawdown is the deepest fall from a running peak, as a non-positive
// fraction of that peak.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak, dd := equity[0], 0.0
	for _, v := range equity {
		if v > peak {
			peak = v
			continue
		}
		if peak <= 0 {
			continue
		}
		if d := (v - peak) / peak; d < dd {
			dd = d
		}
	}
	return dd
}

// Exposure is the fraction of ticks on which at least one trade was open.
// Entry and exit ticks both count; open trades run through the last tick.
func Exposure(trades []broker.Trade, ticks int) float64 {
	if ticks == 0 {
		return 0
	}
	occupied := make([]bool, ticks)
	for _, t := range trades {
		end := t.ExitTick
		if t.Open {
			end = ticks - 1
		}
		for i := max(t.EntryTick, 0); i <= end && i < ticks; i++ {
			occupied[i] = true
		}
	}
	n := 0
	for _, o := range occupied {
		if o {
			n++
		}
	}
	return float64(n) / float64(ticks)
}

// Beta is the sample covariance of returns against benchmark returns over
// the sample variance of benchmark returns, rounded to two decimals.
func Beta(returns, benchmark []float64) float64 {
	n := min(len(returns), len(benchmark))
	if n < 2 {
		return 0
	}
	returns, benchmark = returns[:n], benchmark[:n]

	variance := stat.Variance(benchmark, nil)
	if variance == 0 {
		return 0
	}
	return math.Round(stat.Covariance(returns, benchmark, nil)/variance*100) / 100
}

// stddev is the sample standard deviation, 0 below two points.
func stddev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
