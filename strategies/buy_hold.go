package strategies

import (
	"context"
	"fmt"
	"math"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/market"
	"go.uber.org/zap"
)

// BuyHold opens one long position on the first priced tick and holds it.
// With no Size it buys as many whole units as the cash covers. Over a bar
// series it closes everything on the last bar; a live stream has no last
// tick, so there the position stays open.
type BuyHold struct {
	Instrument string
	Size       float64

	log    *zap.Logger
	opened bool
	last   int
}

func NewBuyHold(p Params, log *zap.Logger) (Strategy, error) {
	if p.Instrument == "" {
		return nil, fmt.Errorf("buy-hold: instrument is required")
	}
	return &BuyHold{Instrument: p.Instrument, Size: p.Size, log: log}, nil
}

func (s *BuyHold) Init(_ broker.Broker, src market.PriceSource) error {
	s.opened = false
	s.last = -1
	if bars, ok := src.(*market.Series); ok {
		s.last = bars.Len() - 1
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return nil
}

func (s *BuyHold) Next(ctx context.Context, b broker.Broker, tick int) error {
	if tick == s.last {
		b.CloseAllTrades()
		return nil
	}
	if s.opened {
		return nil
	}
	q, ok := b.Quote(s.Instrument)
	if !ok {
		return nil
	}

	price := q.Reference()
	size := s.Size
	if size <= 0 {
		size = math.Floor(b.Account().Cash / price)
	}
	if size <= 0 {
		return nil
	}

	_, admitted, err := submit(s.log, b, broker.Order{Instrument: s.Instrument, Size: size}, price)
	if err != nil {
		return err
	}
	s.opened = admitted
	return nil
}
