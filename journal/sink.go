package journal

import (
	"fmt"
	"sync"

	"github.com/rustyeddy/ticksim/broker"
)

// Sink records broker events into a Journal: every closed trade and one
// equity snapshot per tick. Broker events cannot fail, so the first write
// error is kept and later writes are skipped; check Err after the run.
type Sink struct {
	RunID   string
	Journal Journal

	mu  sync.Mutex
	err error
}

var _ broker.EventSink = (*Sink)(nil)

func NewSink(runID string, j Journal) *Sink {
	return &Sink{RunID: runID, Journal: j}
}

func (s *Sink) Emit(e broker.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}

	switch e.Kind {
	case broker.EventTradeClosed:
		if e.Trade == nil {
			return
		}
		if err := s.Journal.RecordTrade(TradeRecordFrom(s.RunID, *e.Trade)); err != nil {
			s.err = fmt.Errorf("journal trade %s: %w", e.Trade.ID, err)
		}
	case broker.EventTick:
		err := s.Journal.RecordEquity(EquitySnapshot{
			RunID:       s.RunID,
			Tick:        e.Tick,
			Time:        e.Time,
			Cash:        e.Cash,
			Equity:      e.Equity,
			MarginUsage: e.MarginUsage,
		})
		if err != nil {
			s.err = fmt.Errorf("journal equity at tick %d: %w", e.Tick, err)
		}
	}
}

// Err is the first write error, if any.
func (s *Sink) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
