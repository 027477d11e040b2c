// Package feed reads price data from files and streams and hands it to the
// simulation as market ticks and candles.
package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/ticksim/market"
)

// TickSink accepts ticks from a producer. live.Queue satisfies it.
type TickSink interface {
	Push(t market.Tick) bool
}

// CSVTicksFeed reads canonical tick CSV rows:
//
//	time,instrument,bid,ask
//
// where time is RFC3339 or RFC3339Nano.
//
// It optionally filters ticks to [From, To) if provided.
// Header row ("time,...") is allowed.
// Empty/short rows are skipped.
type CSVTicksFeed struct {
	path string
	f    *os.File
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
}

func NewCSVTicksFeed(path string, from, to time.Time) (*CSVTicksFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	return &CSVTicksFeed{path: path, f: f, r: r, from: from, to: to}, nil
}

func (f *CSVTicksFeed) Close() error {
	if f.f != nil {
		return f.f.Close()
	}
	return nil
}

func (f *CSVTicksFeed) Next() (market.Tick, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Tick{}, false, nil
		}
		if err != nil {
			return market.Tick{}, false, err
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !f.sawFirst {
			f.sawFirst = true
			if isHeader(row) {
				continue
			}
		}

		p, ok, err := parseTickRow(row)
		if err != nil {
			line, _ := f.r.FieldPos(0)
			return market.Tick{}, false, fmt.Errorf("%s:%d: %w", f.path, line, err)
		}
		if !ok {
			continue
		}
		if !inRange(p.Time, f.from, f.to) {
			continue
		}
		return p, true, nil
	}
}

// LoadTicks reads a whole tick CSV, validating every tick.
func LoadTicks(path string) ([]market.Tick, error) {
	f, err := NewCSVTicksFeed(path, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []market.Tick
	for {
		t, ok, err := f.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, t)
	}
}

func parseTickRow(row []string) (market.Tick, bool, error) {
	// Need at least: time,instrument,bid,ask
	if len(row) < 4 {
		return market.Tick{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Tick{}, false, nil
	}
	t, err := parseTime(ts)
	if err != nil {
		return market.Tick{}, false, err
	}

	inst := strings.TrimSpace(row[1])
	if inst == "" {
		return market.Tick{}, false, nil
	}

	bid, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return market.Tick{}, false, fmt.Errorf("bad bid %q: %w", row[2], err)
	}
	ask, err := strconv.ParseFloat(strings.TrimSpace(row[3]), 64)
	if err != nil {
		return market.Tick{}, false, fmt.Errorf("bad ask %q: %w", row[3], err)
	}

	return market.Tick{Time: t, Instrument: inst, Bid: bid, Ask: ask}, true, nil
}

var timeLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad time %q", s)
}

func isHeader(row []string) bool {
	h := strings.ToLower(strings.TrimSpace(row[0]))
	return h == "time" || h == "date" || h == "timestamp"
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
