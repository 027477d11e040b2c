package market

import (
	"fmt"
	"sort"
	"time"
)

// PriceSource is the read side of a price history. Ticks are addressed by
// index and never change once observable.
type PriceSource interface {
	// Len is the number of ticks available so far.
	Len() int
	Time(i int) time.Time
	// Quote returns the price of instrument as of tick i.
	Quote(instrument string, i int) (Quote, bool)
}

// Series is a bar-mode PriceSource over one primary instrument, with an
// optional hedge instrument priced at each bar's secondary close.
type Series struct {
	Instrument string
	Hedge      string
	Candles    []Candle
}

func NewSeries(instrument string, candles []Candle) *Series {
	return &Series{Instrument: instrument, Candles: candles}
}

// WithHedge names the instrument priced from Candle.Close2.
func (s *Series) WithHedge(instrument string) *Series {
	s.Hedge = instrument
	return s
}

func (s *Series) Len() int { return len(s.Candles) }

func (s *Series) Time(i int) time.Time { return s.Candles[i].Time }

func (s *Series) Quote(instrument string, i int) (Quote, bool) {
	if i < 0 || i >= len(s.Candles) {
		return Quote{}, false
	}
	switch {
	case instrument == s.Instrument:
		return s.Candles[i].quote(instrument), true
	case s.Hedge != "" && instrument == s.Hedge:
		return s.Candles[i].hedgeQuote(instrument), true
	}
	return Quote{}, false
}

// Closes returns the primary close series.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Closes2 returns the secondary close series.
func (s *Series) Closes2() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close2
	}
	return out
}

// Validate checks every bar and that timestamps strictly increase.
func (s *Series) Validate() error {
	if s.Instrument == "" {
		return fmt.Errorf("series: instrument is required")
	}
	for i, c := range s.Candles {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("series %s row %d: %w", s.Instrument, i, err)
		}
		if s.Hedge != "" && c.Close2 <= 0 {
			return fmt.Errorf("series %s row %d: hedge close must be positive", s.Instrument, i)
		}
		if i > 0 && !c.Time.After(s.Candles[i-1].Time) {
			return fmt.Errorf("series %s row %d: time %s not after %s", s.Instrument, i,
				c.Time.Format(time.RFC3339), s.Candles[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// Stream is an append-only live-mode PriceSource. Each appended tick is one
// simulation step; the quote of an instrument at step i is its most recent
// tick at or before i. Stream is owned by a single consumer and is not safe
// for concurrent use.
type Stream struct {
	ticks []Tick
	index map[string][]int
}

func NewStream() *Stream {
	return &Stream{index: make(map[string][]int)}
}

// Append adds a tick and returns its index.
func (s *Stream) Append(t Tick) int {
	i := len(s.ticks)
	s.ticks = append(s.ticks, t)
	s.index[t.Instrument] = append(s.index[t.Instrument], i)
	return i
}

func (s *Stream) Len() int { return len(s.ticks) }

func (s *Stream) Time(i int) time.Time { return s.ticks[i].Time }

// Tick returns the raw tick appended at step i.
func (s *Stream) Tick(i int) Tick { return s.ticks[i] }

func (s *Stream) Quote(instrument string, i int) (Quote, bool) {
	idx := s.index[instrument]
	// first position whose tick index is beyond i
	n := sort.Search(len(idx), func(k int) bool { return idx[k] > i })
	if n == 0 {
		return Quote{}, false
	}
	return s.ticks[idx[n-1]].Quote(), true
}

// Instruments lists the instruments seen so far, sorted.
func (s *Stream) Instruments() []string {
	out := make([]string, 0, len(s.index))
	for k := range s.index {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Benchmark samples the reference price of instrument at every tick of src.
// Ticks before the instrument's first quote take the first known price.
func Benchmark(src PriceSource, instrument string) []float64 {
	n := src.Len()
	out := make([]float64, n)
	first := -1
	for i := 0; i < n; i++ {
		q, ok := src.Quote(instrument, i)
		if !ok {
			continue
		}
		out[i] = q.Reference()
		if first < 0 {
			first = i
		}
	}
	if first < 0 {
		return out
	}
	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	return out
}

// Times returns every tick time of src.
func Times(src PriceSource) []time.Time {
	out := make([]time.Time, src.Len())
	for i := range out {
		out[i] = src.Time(i)
	}
	return out
}
