package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/rustyeddy/ticksim/market"
)

// BarRecord is the Parquet schema for bars.
type BarRecord struct {
	Instrument string  `parquet:"instrument"`
	Timestamp  int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open       float64 `parquet:"open"`
	High       float64 `parquet:"high"`
	Low        float64 `parquet:"low"`
	Close      float64 `parquet:"close"`
	Close2     float64 `parquet:"close2"`
	Volume     float64 `parquet:"volume"`
}

// TickRecord is the Parquet schema for recorded live ticks.
type TickRecord struct {
	Instrument string  `parquet:"instrument"`
	Timestamp  int64   `parquet:"timestamp,timestamp(nanosecond)"` // Unix ns
	Bid        float64 `parquet:"bid"`
	Ask        float64 `parquet:"ask"`
}

// WriteBarsParquet writes the series' candles to path, creating parent
// directories.
func WriteBarsParquet(path string, s *market.Series) error {
	records := make([]BarRecord, len(s.Candles))
	for i, c := range s.Candles {
		records[i] = BarRecord{
			Instrument: s.Instrument,
			Timestamp:  c.Time.UnixMilli(),
			Open:       c.Open,
			High:       c.High,
			Low:        c.Low,
			Close:      c.Close,
			Close2:     c.Close2,
			Volume:     c.Volume,
		}
	}
	if err := writeParquetFile(path, records); err != nil {
		return fmt.Errorf("writing bars for %s: %w", s.Instrument, err)
	}
	return nil
}

// ReadBarsParquet reads the bars of instrument from path in time order. An
// empty instrument takes the instrument of the first record.
func ReadBarsParquet(path, instrument string) (*market.Series, error) {
	records, err := readParquetFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading bars %s: %w", path, err)
	}
	if instrument == "" && len(records) > 0 {
		instrument = records[0].Instrument
	}

	var candles []market.Candle
	for _, r := range records {
		if r.Instrument != instrument {
			continue
		}
		candles = append(candles, market.Candle{
			Time:   time.UnixMilli(r.Timestamp).UTC(),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Close2: r.Close2,
			Volume: r.Volume,
		})
	}
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })

	s := market.NewSeries(instrument, candles)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// WriteTicksParquet records ticks in arrival order.
func WriteTicksParquet(path string, ticks []market.Tick) error {
	records := make([]TickRecord, len(ticks))
	for i, t := range ticks {
		records[i] = TickRecord{
			Instrument: t.Instrument,
			Timestamp:  t.Time.UnixNano(),
			Bid:        t.Bid,
			Ask:        t.Ask,
		}
	}
	return writeParquetFile(path, records)
}

func ReadTicksParquet(path string) ([]market.Tick, error) {
	records, err := readParquetFile[TickRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading ticks %s: %w", path, err)
	}
	out := make([]market.Tick, len(records))
	for i, r := range records {
		out[i] = market.Tick{
			Instrument: r.Instrument,
			Time:       time.Unix(0, r.Timestamp).UTC(),
			Bid:        r.Bid,
			Ask:        r.Ask,
		}
	}
	return out, nil
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}
