// Package strategies holds the trading rules driven by the backtest and live
// runners.
package strategies

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/market"
	"go.uber.org/zap"
)

// Strategy is called once before the first tick and then once per tick,
// after the broker has processed that tick.
//
// Order rejections are not errors: a strategy logs them and carries on.
// Returning an error from Next aborts the run.
type Strategy interface {
	Init(b broker.Broker, src market.PriceSource) error
	Next(ctx context.Context, b broker.Broker, tick int) error
}

// Params is the union of the settings the built-in strategies read.
type Params struct {
	Instrument string  `json:"instrument" yaml:"instrument"`
	Hedge      string  `json:"hedge,omitempty" yaml:"hedge,omitempty"`
	Size       float64 `json:"size" yaml:"size"`

	// ma-cross
	Kind       string  `json:"kind,omitempty" yaml:"kind,omitempty"` // sma or ema
	Fast       int     `json:"fast,omitempty" yaml:"fast,omitempty"`
	Slow       int     `json:"slow,omitempty" yaml:"slow,omitempty"`
	AllowShort bool    `json:"allow_short,omitempty" yaml:"allow_short,omitempty"`
	RiskPct    float64 `json:"risk_pct,omitempty" yaml:"risk_pct,omitempty"`
	ATRPeriod  int     `json:"atr_period,omitempty" yaml:"atr_period,omitempty"`
	ATRMult    float64 `json:"atr_mult,omitempty" yaml:"atr_mult,omitempty"`
	StopDist   float64 `json:"stop_distance,omitempty" yaml:"stop_distance,omitempty"`
	RR         float64 `json:"rr,omitempty" yaml:"rr,omitempty"`
	ADXPeriod  int     `json:"adx_period,omitempty" yaml:"adx_period,omitempty"`
	ADXMin     float64 `json:"adx_min,omitempty" yaml:"adx_min,omitempty"`

	// stat-arb
	Lookback   int     `json:"lookback,omitempty" yaml:"lookback,omitempty"`
	Threshold  float64 `json:"threshold,omitempty" yaml:"threshold,omitempty"`
	StopLoss   float64 `json:"stop_loss,omitempty" yaml:"stop_loss,omitempty"`
	HedgeRatio float64 `json:"hedge_ratio,omitempty" yaml:"hedge_ratio,omitempty"`
	MaxPerSide int     `json:"max_per_side,omitempty" yaml:"max_per_side,omitempty"`
}

// Factory builds a strategy from params.
type Factory func(p Params, log *zap.Logger) (Strategy, error)

var ErrUnknownStrategy = errors.New("unknown strategy")

var registry = map[string]Factory{}

// Register makes a strategy available to New under name.
func Register(name string, f Factory) {
	registry[normalize(name)] = f
}

// New builds the strategy registered under name. A nil logger discards.
func New(name string, p Params, log *zap.Logger) (Strategy, error) {
	f, ok := registry[normalize(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownStrategy, name, strings.Join(Names(), ", "))
	}
	if log == nil {
		log = zap.NewNop()
	}
	return f(p, log.With(zap.String("strategy", normalize(name))))
}

// Names lists the registered strategies.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func init() {
	Register("noop", func(Params, *zap.Logger) (Strategy, error) { return NoopStrategy{}, nil })
	Register("buy-hold", NewBuyHold)
	Register("ma-cross", NewMACross)
	Register("stat-arb", NewStatArb)
}

// submit sends an order and treats admission rejections as soft.
func submit(log *zap.Logger, b broker.Broker, o broker.Order, ref float64) (broker.OrderID, bool, error) {
	id, err := b.NewOrder(o, ref)
	if err == nil {
		return id, true, nil
	}
	if broker.IsRejection(err) {
		log.Debug("order rejected",
			zap.Int("tick", b.Tick()),
			zap.String("instrument", o.Instrument),
			zap.Float64("size", o.Size),
			zap.Error(err),
		)
		return 0, false, nil
	}
	return 0, false, err
}

// closeSide closes the open trades on one side of instrument.
func closeSide(b broker.Broker, instrument string, long bool) error {
	for _, t := range b.OpenTrades() {
		if t.Instrument != instrument || t.IsLong() != long {
			continue
		}
		if err := b.ClosePosition(t.ID); err != nil {
			return err
		}
	}
	return nil
}
