// Package backtest replays a price history through the simulated broker and
// a strategy and reports the outcome.
package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/market"
	"github.com/rustyeddy/ticksim/sim"
	"github.com/rustyeddy/ticksim/stats"
	"github.com/rustyeddy/ticksim/strategies"
	"go.uber.org/zap"
)

// Options controls how the runner behaves.
type Options struct {
	// If true, close all open trades after the last tick.
	// Close reason will be CloseReason (or "EndOfReplay" if empty).
	CloseEnd    bool
	CloseReason string

	// Benchmark is the instrument whose buy-and-hold return the report
	// compares against.
	Benchmark    string
	RiskFreeRate float64
	AvgLoss      stats.AvgLossDenominator
}

// Runner drives a broker forward over a price source and calls the strategy
// after each tick.
type Runner struct {
	Broker   *sim.Broker
	Source   market.PriceSource
	Strategy strategies.Strategy
	Options  Options
	Log      *zap.Logger
}

// Result is the run's artifacts: per-tick series aligned with Times, the
// trade ledger and the stats report.
type Result struct {
	Times        []time.Time
	Equity       []float64
	MarginUsage  []float64
	MarginEvents []float64
	Trades       []broker.Trade
	Report       stats.Report
}

// Run executes the backtest loop:
//  1. strategy.Init(broker, source)
//  2. for every tick: broker.Next(i), then strategy.Next(ctx, broker, i)
//  3. optionally close what is still open
//
// Order rejections never stop the loop; strategy and broker errors do.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if r.Broker == nil {
		return Result{}, fmt.Errorf("backtest: Broker is required")
	}
	if r.Source == nil {
		return Result{}, fmt.Errorf("backtest: Source is required")
	}
	if r.Strategy == nil {
		return Result{}, fmt.Errorf("backtest: Strategy is required")
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	if err := r.Strategy.Init(r.Broker, r.Source); err != nil {
		return Result{}, fmt.Errorf("backtest: init strategy: %w", err)
	}

	n := r.Source.Len()
	log.Info("backtest started", zap.Int("ticks", n))

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := r.Broker.Next(i); err != nil {
			return Result{}, fmt.Errorf("backtest: tick %d: %w", i, err)
		}
		if err := r.Strategy.Next(ctx, r.Broker, i); err != nil {
			return Result{}, fmt.Errorf("backtest: strategy at tick %d: %w", i, err)
		}
	}

	if r.Options.CloseEnd {
		reason := r.Options.CloseReason
		if reason == "" {
			reason = broker.ReasonEndOfReplay
		}
		r.Broker.CloseAll(reason)
	}

	res := Collect(r.Broker, r.Source, r.Options)
	log.Info("backtest finished",
		zap.Int("trades", res.Report.Trades),
		zap.Float64("equity", res.Report.EquityFinal),
		zap.Float64("return", res.Report.TotalReturn),
		zap.Float64("max_drawdown", res.Report.MaxDrawdown),
		zap.Bool("ruined", r.Broker.Ruined()),
	)
	return res, nil
}

// Collect gathers the artifacts of a broker that has stepped through src.
// Live runs use it too, on the ticks processed so far.
func Collect(b *sim.Broker, src market.PriceSource, opts Options) Result {
	n := b.Tick() + 1
	times := market.Times(src)
	if len(times) > n {
		times = times[:n]
	}
	equity := b.EquityCurve()
	if len(equity) > n {
		equity = equity[:n]
	}
	usage := b.MarginUsageHistory()
	if len(usage) > n {
		usage = usage[:n]
	}

	trades := b.ClosedTrades()
	all := append(append([]broker.Trade(nil), trades...), b.OpenTrades()...)

	var bench []float64
	if opts.Benchmark != "" {
		bench = market.Benchmark(src, opts.Benchmark)
		if len(bench) > n {
			bench = bench[:n]
		}
	}

	return Result{
		Times:        times,
		Equity:       equity,
		MarginUsage:  usage,
		MarginEvents: b.MarginEvents(),
		Trades:       trades,
		Report: stats.Compute(stats.Input{
			Trades:              all,
			Equity:              equity,
			Times:               times,
			Benchmark:           bench,
			RiskFreeRate:        opts.RiskFreeRate,
			MaxMarginUsage:      b.MaxMarginUsage(),
			MaxConcurrentTrades: b.MaxConcurrentTrades(),
			AvgLoss:             opts.AvgLoss,
		}),
	}
}
