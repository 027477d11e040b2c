package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rustyeddy/ticksim/market"
)

// LoadBarsCSV reads a bar CSV:
//
//	time,open,high,low,close[,close2[,volume]]
//
// An empty close2 reads as 0. A header row is allowed. The result is
// validated: any bad row aborts the load with its line number.
func LoadBarsCSV(path, instrument string) (*market.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	candles, err := readBars(csv.NewReader(f), path)
	if err != nil {
		return nil, err
	}
	s := market.NewSeries(instrument, candles)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func readBars(r *csv.Reader, path string) ([]market.Candle, error) {
	r.FieldsPerRecord = -1

	var out []market.Candle
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if first {
			first = false
			if isHeader(row) {
				continue
			}
		}

		c, err := parseBarRow(row)
		if err != nil {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, c)
	}
}

func parseBarRow(row []string) (market.Candle, error) {
	if len(row) < 5 {
		return market.Candle{}, fmt.Errorf("need at least 5 columns time,open,high,low,close, got %d", len(row))
	}

	t, err := parseTime(strings.TrimSpace(row[0]))
	if err != nil {
		return market.Candle{}, err
	}

	var vals [4]float64
	for i, name := range []string{"open", "high", "low", "close"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("bad %s %q: %w", name, row[i+1], err)
		}
		vals[i] = v
	}
	c := market.Candle{Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}

	if len(row) > 5 {
		if s := strings.TrimSpace(row[5]); s != "" {
			if c.Close2, err = strconv.ParseFloat(s, 64); err != nil {
				return market.Candle{}, fmt.Errorf("bad close2 %q: %w", row[5], err)
			}
		}
	}
	if len(row) > 6 {
		if s := strings.TrimSpace(row[6]); s != "" {
			if c.Volume, err = strconv.ParseFloat(s, 64); err != nil {
				return market.Candle{}, fmt.Errorf("bad volume %q: %w", row[6], err)
			}
		}
	}
	return c, nil
}
