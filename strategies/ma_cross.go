package strategies

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/indicators"
	"github.com/rustyeddy/ticksim/market"
	"github.com/rustyeddy/ticksim/risk"
	"go.uber.org/zap"
)

// MACross trades one instrument on a fast/slow moving average crossover.
//   - A golden cross closes shorts and opens a long.
//   - A death cross closes longs and, with AllowShort, opens a short.
//   - With an ATR or fixed stop distance, orders carry a stop-loss and a
//     take-profit at RR times the stop distance, and RiskPct sizes them.
//   - With an ADX period, entries wait for ADX >= ADXMin. Exits do not.
type MACross struct {
	Instrument string
	Size       float64
	AllowShort bool
	RiskPct    float64
	StopDist   float64
	ATRMult    float64
	RR         float64
	ADXMin     float64
	Policy     risk.Policy

	fast indicators.Indicator
	slow indicators.Indicator
	atr  *indicators.ATR
	adx  *indicators.ADX

	lastDiff     float64
	haveLastDiff bool
	lastTime     time.Time

	log *zap.Logger
}

func NewMACross(p Params, log *zap.Logger) (Strategy, error) {
	if p.Instrument == "" {
		return nil, fmt.Errorf("ma-cross: instrument is required")
	}
	if p.Fast == 0 {
		p.Fast = 10
	}
	if p.Slow == 0 {
		p.Slow = 20
	}
	if p.Fast >= p.Slow {
		return nil, fmt.Errorf("ma-cross: fast period %d must be below slow period %d", p.Fast, p.Slow)
	}
	if p.Size == 0 && p.RiskPct == 0 {
		p.Size = 30
	}

	s := &MACross{
		Instrument: p.Instrument,
		Size:       p.Size,
		AllowShort: p.AllowShort,
		RiskPct:    p.RiskPct,
		StopDist:   p.StopDist,
		ATRMult:    p.ATRMult,
		RR:         p.RR,
		ADXMin:     p.ADXMin,
		log:        log,
	}

	switch strings.ToLower(p.Kind) {
	case "", "sma":
		s.fast, s.slow = indicators.NewMA(p.Fast), indicators.NewMA(p.Slow)
	case "ema":
		s.fast, s.slow = indicators.NewEMA(p.Fast), indicators.NewEMA(p.Slow)
	default:
		return nil, fmt.Errorf("ma-cross: unknown average kind %q", p.Kind)
	}
	if p.ATRPeriod > 0 {
		s.atr = indicators.NewATR(p.ATRPeriod)
	}
	if p.ADXPeriod > 0 {
		s.adx = indicators.NewADX(p.ADXPeriod)
	}
	return s, nil
}

func (s *MACross) Init(broker.Broker, market.PriceSource) error {
	s.fast.Reset()
	s.slow.Reset()
	if s.atr != nil {
		s.atr.Reset()
	}
	if s.adx != nil {
		s.adx.Reset()
	}
	s.haveLastDiff = false
	s.lastTime = time.Time{}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return nil
}

func (s *MACross) Next(ctx context.Context, b broker.Broker, tick int) error {
	q, ok := b.Quote(s.Instrument)
	if !ok {
		return nil
	}
	// in live mode other instruments' ticks leave this quote unchanged
	if s.haveLastDiff && q.Time.Equal(s.lastTime) {
		return nil
	}
	s.lastTime = q.Time

	c := candleOf(q)
	s.fast.Update(c)
	s.slow.Update(c)
	if s.atr != nil {
		s.atr.Update(c)
	}
	if s.adx != nil {
		s.adx.Update(c)
	}
	if !s.fast.Ready() || !s.slow.Ready() {
		return nil
	}

	diff := s.fast.Value() - s.slow.Value()
	if !s.haveLastDiff {
		s.lastDiff, s.haveLastDiff = diff, true
		return nil
	}
	prev := s.lastDiff
	s.lastDiff = diff

	switch {
	case prev <= 0 && diff > 0:
		if err := closeSide(b, s.Instrument, false); err != nil {
			return err
		}
		return s.enter(b, q, 1)

	case prev >= 0 && diff < 0:
		if err := closeSide(b, s.Instrument, true); err != nil {
			return err
		}
		if s.AllowShort {
			return s.enter(b, q, -1)
		}
	}
	return nil
}

func (s *MACross) stopDistance() float64 {
	if s.atr != nil && s.ATRMult > 0 {
		if !s.atr.Ready() {
			return 0
		}
		return s.atr.Value() * s.ATRMult
	}
	return s.StopDist
}

// trending reports whether the ADX filter, if any, lets an entry through.
func (s *MACross) trending() bool {
	if s.adx == nil {
		return true
	}
	return s.adx.Ready() && s.adx.Value() >= s.ADXMin
}

func (s *MACross) enter(b broker.Broker, q market.Quote, dir float64) error {
	if !s.trending() {
		s.log.Debug("entry skipped, no trend", zap.Int("tick", b.Tick()), zap.Float64("adx", s.adx.Value()))
		return nil
	}
	price := q.Reference()
	size := s.Size
	order := broker.Order{Instrument: s.Instrument}
	intent := risk.TradeIntent{Instrument: s.Instrument, Entry: price}

	if dist := s.stopDistance(); dist > 0 {
		stop := price - dir*dist
		order.StopLoss = broker.Price(stop)
		intent.Stop = stop
		if s.RR > 0 {
			tp := price + dir*dist*s.RR
			order.TakeProfit = broker.Price(tp)
			intent.TakeProfit = tp
		}
		if s.RiskPct > 0 {
			size = risk.Calculate(risk.Inputs{
				Equity:     b.Account().Equity,
				RiskPct:    s.RiskPct,
				EntryPrice: price,
				StopPrice:  stop,
			}).Units
		}
	}
	if size <= 0 {
		return nil
	}
	order.Size = dir * size
	intent.Units = order.Size

	if d := risk.Evaluate(s.Policy, intent, b.Account()); !d.Allowed {
		s.log.Debug("entry blocked by risk policy",
			zap.Int("tick", b.Tick()),
			zap.Any("violations", d.Violations),
		)
		return nil
	}

	_, _, err := submit(s.log, b, order, price)
	return err
}

// candleOf turns a quote into a candle for the indicators; live quotes
// become a flat bar at the mid.
func candleOf(q market.Quote) market.Candle {
	if q.Kind == market.KindQuote {
		mid := q.Reference()
		return market.Candle{Time: q.Time, Open: mid, High: mid, Low: mid, Close: mid}
	}
	return market.Candle{Time: q.Time, Open: q.Open, High: q.High, Low: q.Low, Close: q.Close}
}
