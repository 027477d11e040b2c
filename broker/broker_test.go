package broker

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPnLSignSymmetry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		entry, exit float64
		size        float64
	}{
		{"price up", 100, 110, 10},
		{"price down", 100, 90, 10},
		{"fractional", 1.0851, 1.0832, 2500.5},
		{"flat", 50, 50, 3},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			long := Trade{Size: tt.size, EntryPrice: tt.entry, ExitPrice: tt.exit}
			short := Trade{Size: -tt.size, EntryPrice: tt.entry, ExitPrice: tt.exit}

			assert.InDelta(t, long.PnL(), -short.PnL(), 1e-9)
			assert.InDelta(t, PnL(tt.size, tt.entry, tt.exit), PnLBySide(tt.size, tt.entry, tt.exit), 1e-9)
			assert.InDelta(t, PnL(-tt.size, tt.entry, tt.exit), PnLBySide(-tt.size, tt.entry, tt.exit), 1e-9)
		})
	}
}

func TestTradePnLPct(t *testing.T) {
	t.Parallel()

	tr := Trade{Size: -10, EntryPrice: 100, ExitPrice: 95}
	assert.InDelta(t, 50.0, tr.PnL(), 1e-9)
	assert.InDelta(t, 0.05, tr.PnLPct(), 1e-9)
	assert.Equal(t, 1000.0, tr.Notional())

	tr.Open = true
	assert.Equal(t, 0.0, tr.PnL())
	assert.InDelta(t, -20.0, tr.PnLAt(102), 1e-9)
}

func TestOrderClone(t *testing.T) {
	t.Parallel()

	o := Order{Size: 1, Stop: Price(95), Limit: Price(99)}
	c := o.Clone()
	*c.Stop = 90

	assert.Equal(t, 95.0, *o.Stop)
	assert.Equal(t, 99.0, *c.Limit)
	assert.Nil(t, c.TakeProfit)
	assert.True(t, o.IsBuy())
	assert.False(t, o.IsContingent())
}

func TestIsRejection(t *testing.T) {
	t.Parallel()

	assert.True(t, IsRejection(fmt.Errorf("new order: %w", ErrMarginExceeded)))
	assert.True(t, IsRejection(ErrTradeLimitExceeded))
	assert.True(t, IsRejection(ErrFractionalOrderNotAllowed))
	assert.False(t, IsRejection(ErrTradeNotFound))
	assert.False(t, IsRejection(errors.New("boom")))
}

func TestRecorderFilters(t *testing.T) {
	t.Parallel()

	var r Recorder
	sink := MultiSink{&r, nil, SinkFunc(func(Event) {})}
	sink.Emit(Event{Kind: EventTick})
	sink.Emit(Event{Kind: EventTradeOpened})
	sink.Emit(Event{Kind: EventTick})

	assert.Len(t, r.Events(), 3)
	assert.Len(t, r.Events(EventTick), 2)
	assert.Len(t, r.Events(EventTradeOpened, EventTradeClosed), 1)
}
