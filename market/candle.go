package market

import (
	"fmt"
	"time"
)

// Candle represents OHLC (Open, High, Low, Close) bar data. Close2 is the
// close of a secondary (hedge) instrument sampled on the same bar.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Close2 float64
	Volume float64
}

// Validate checks the bar is internally consistent.
func (c Candle) Validate() error {
	if c.High < c.Low {
		return fmt.Errorf("candle %s: high %v below low %v", c.Time.Format(time.RFC3339), c.High, c.Low)
	}
	if c.Open > c.High || c.Open < c.Low || c.Close > c.High || c.Close < c.Low {
		return fmt.Errorf("candle %s: open/close outside high/low range", c.Time.Format(time.RFC3339))
	}
	if c.Low <= 0 {
		return fmt.Errorf("candle %s: prices must be positive", c.Time.Format(time.RFC3339))
	}
	return nil
}

func (c Candle) quote(instrument string) Quote {
	return Quote{
		Instrument: instrument,
		Time:       c.Time,
		Kind:       KindBar,
		Open:       c.Open,
		High:       c.High,
		Low:        c.Low,
		Close:      c.Close,
	}
}

// hedgeQuote prices the secondary instrument flat at its close.
func (c Candle) hedgeQuote(instrument string) Quote {
	return Quote{
		Instrument: instrument,
		Time:       c.Time,
		Kind:       KindBar,
		Open:       c.Close2,
		High:       c.Close2,
		Low:        c.Close2,
		Close:      c.Close2,
	}
}
