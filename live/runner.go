package live

import (
	"context"
	"fmt"

	"github.com/rustyeddy/ticksim/backtest"
	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/market"
	"github.com/rustyeddy/ticksim/sim"
	"github.com/rustyeddy/ticksim/strategies"
	"github.com/rustyeddy/ticksim/telemetry"
	"go.uber.org/zap"
)

// Runner consumes ticks from Queue. Broker must have been built over Stream.
type Runner struct {
	Broker   *sim.Broker
	Stream   *market.Stream
	Queue    *Queue[market.Tick]
	Strategy strategies.Strategy
	// Publisher receives a snapshot after every tick. Optional.
	Publisher *telemetry.Publisher
	Options   backtest.Options
	Log       *zap.Logger
}

// Run processes ticks until the queue is closed and drained. Cancelling ctx
// closes the queue, so ticks already buffered are still processed. Each
// tick is appended to the stream, stepped through the broker and then
// handed to the strategy, exactly as in a replay.
func (r *Runner) Run(ctx context.Context) (backtest.Result, error) {
	if r.Broker == nil || r.Stream == nil || r.Queue == nil || r.Strategy == nil {
		return backtest.Result{}, fmt.Errorf("live: Broker, Stream, Queue and Strategy are required")
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	if err := r.Strategy.Init(r.Broker, r.Stream); err != nil {
		return backtest.Result{}, fmt.Errorf("live: init strategy: %w", err)
	}

	stop := context.AfterFunc(ctx, r.Queue.Close)
	defer stop()

	log.Info("live loop started")
	for {
		tick, ok := r.Queue.Pop()
		if !ok {
			break
		}
		if err := tick.Validate(); err != nil {
			log.Warn("dropping invalid tick", zap.String("instrument", tick.Instrument), zap.Error(err))
			continue
		}

		i := r.Stream.Append(tick)
		if err := r.Broker.Next(i); err != nil {
			return backtest.Result{}, fmt.Errorf("live: tick %d: %w", i, err)
		}
		if err := r.Strategy.Next(ctx, r.Broker, i); err != nil {
			return backtest.Result{}, fmt.Errorf("live: strategy at tick %d: %w", i, err)
		}
		if r.Publisher != nil {
			r.Publisher.Publish(telemetry.FromAccount(i, tick.Time, r.Broker.Account()))
		}
	}

	if r.Options.CloseEnd {
		reason := r.Options.CloseReason
		if reason == "" {
			reason = broker.ReasonEndOfReplay
		}
		r.Broker.CloseAll(reason)
	}

	res := backtest.Collect(r.Broker, r.Stream, r.Options)
	log.Info("live loop stopped",
		zap.Int("ticks", r.Stream.Len()),
		zap.Int("trades", res.Report.Trades),
		zap.Float64("equity", r.Broker.Equity()),
	)
	return res, nil
}
