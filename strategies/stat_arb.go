package strategies

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/indicators"
	"github.com/rustyeddy/ticksim/market"
	"go.uber.org/zap"
)

// StatArb mean-reverts the log spread of an instrument, optionally against a
// hedge instrument weighted by HedgeRatio. It shorts when the spread's
// z-score is above Threshold, buys when it is below -Threshold and flattens
// once |z| falls under Threshold/2.
type StatArb struct {
	Instrument string
	Hedge      string
	HedgeRatio float64
	Size       float64
	Threshold  float64
	StopLoss   float64
	MaxPerSide int

	z        *indicators.ZScore
	lastTime time.Time
	seen     bool

	log *zap.Logger
}

func NewStatArb(p Params, log *zap.Logger) (Strategy, error) {
	if p.Instrument == "" {
		return nil, fmt.Errorf("stat-arb: instrument is required")
	}
	if p.HedgeRatio != 0 && p.Hedge == "" {
		return nil, fmt.Errorf("stat-arb: hedge_ratio needs a hedge instrument")
	}
	if p.Lookback == 0 {
		p.Lookback = 10
	}
	if p.Lookback < 2 {
		return nil, fmt.Errorf("stat-arb: lookback must be at least 2, got %d", p.Lookback)
	}
	if p.Threshold == 0 {
		p.Threshold = 1.2
	}
	if p.StopLoss == 0 {
		p.StopLoss = 5 * 0.0075
	}
	if p.Size == 0 {
		p.Size = 20
	}
	if p.MaxPerSide == 0 {
		p.MaxPerSide = 3
	}

	return &StatArb{
		Instrument: p.Instrument,
		Hedge:      p.Hedge,
		HedgeRatio: p.HedgeRatio,
		Size:       p.Size,
		Threshold:  p.Threshold,
		StopLoss:   p.StopLoss,
		MaxPerSide: p.MaxPerSide,
		z:          indicators.NewZScore(p.Lookback),
		log:        log,
	}, nil
}

func (s *StatArb) Init(broker.Broker, market.PriceSource) error {
	s.z.Reset()
	s.seen = false
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return nil
}

func (s *StatArb) spread(b broker.Broker, q market.Quote) (float64, bool) {
	v := math.Log(q.Reference())
	if s.HedgeRatio == 0 {
		return v, true
	}
	h, ok := b.Quote(s.Hedge)
	if !ok {
		return 0, false
	}
	return v - s.HedgeRatio*math.Log(h.Reference()), true
}

func (s *StatArb) Next(ctx context.Context, b broker.Broker, tick int) error {
	q, ok := b.Quote(s.Instrument)
	if !ok {
		return nil
	}
	if s.seen && q.Time.Equal(s.lastTime) {
		return nil
	}
	s.seen, s.lastTime = true, q.Time

	v, ok := s.spread(b, q)
	if !ok {
		return nil
	}
	s.z.Add(v)
	if !s.z.Ready() {
		return nil
	}

	z := s.z.Value()
	price := q.Reference()
	long, short := b.Positions(s.Instrument)

	switch {
	case z > s.Threshold && short < s.MaxPerSide:
		_, _, err := submit(s.log, b, broker.Order{
			Instrument: s.Instrument,
			Size:       -s.Size,
			StopLoss:   broker.Price(price + s.StopLoss),
		}, price)
		return err

	case z < -s.Threshold && long < s.MaxPerSide:
		_, _, err := submit(s.log, b, broker.Order{
			Instrument: s.Instrument,
			Size:       s.Size,
			StopLoss:   broker.Price(price - s.StopLoss),
		}, price)
		return err

	case math.Abs(z) < s.Threshold/2 && len(b.OpenTrades()) > 0:
		s.log.Debug("spread reverted, flattening", zap.Int("tick", tick), zap.Float64("z", z))
		b.CloseAllTrades()
	}
	return nil
}
