package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rustyeddy/ticksim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

type sliceSink struct {
	mu     sync.Mutex
	ticks  []market.Tick
	limit  int
	closed bool
}

func (s *sliceSink) Push(t market.Tick) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.ticks = append(s.ticks, t)
	if s.limit > 0 && len(s.ticks) >= s.limit {
		s.closed = true
	}
	return true
}

func (s *sliceSink) all() []market.Tick {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]market.Tick(nil), s.ticks...)
}

func TestCSVTicksFeed_Next(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "ticks.csv", `time,instrument,bid,ask
2026-01-24T09:30:00Z,EUR_USD,1.1000,1.1002
2026-01-24T09:30:05Z,EUR_USD,1.1010,1.1012

2026-01-24T09:30:10.5Z,GBP_USD,1.2500,1.2502
short,row
`)

	t.Run("all rows", func(t *testing.T) {
		t.Parallel()
		feed, err := NewCSVTicksFeed(path, time.Time{}, time.Time{})
		require.NoError(t, err)
		defer feed.Close()

		var ticks []market.Tick
		for {
			p, ok, err := feed.Next()
			require.NoError(t, err)
			if !ok {
				break
			}
			ticks = append(ticks, p)
		}
		require.Len(t, ticks, 3)
		assert.Equal(t, "EUR_USD", ticks[0].Instrument)
		assert.Equal(t, 1.1000, ticks[0].Bid)
		assert.Equal(t, 1.1002, ticks[0].Ask)
		assert.Equal(t, 500*time.Millisecond, ticks[2].Time.Sub(time.Date(2026, 1, 24, 9, 30, 10, 0, time.UTC)))
	})

	t.Run("filter by time range", func(t *testing.T) {
		t.Parallel()
		from := time.Date(2026, 1, 24, 9, 30, 5, 0, time.UTC)
		to := time.Date(2026, 1, 24, 9, 30, 10, 0, time.UTC)
		feed, err := NewCSVTicksFeed(path, from, to)
		require.NoError(t, err)
		defer feed.Close()

		p, ok, err := feed.Next()
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1.1010, p.Bid)

		_, ok, err = feed.Next()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nonexistent file", func(t *testing.T) {
		t.Parallel()
		_, err := NewCSVTicksFeed("/nonexistent/path.csv", time.Time{}, time.Time{})
		assert.Error(t, err)
	})

	t.Run("close without file", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, (&CSVTicksFeed{}).Close())
	})
}

func TestCSVTicksFeedReportsLine(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "bad.csv", `time,instrument,bid,ask
2026-01-24T09:30:00Z,EUR_USD,1.1000,1.1002
2026-01-24T09:30:05Z,EUR_USD,abc,1.1012
`)
	feed, err := NewCSVTicksFeed(path, time.Time{}, time.Time{})
	require.NoError(t, err)
	defer feed.Close()

	_, _, err = feed.Next()
	require.NoError(t, err)
	_, _, err = feed.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.csv:3")
	assert.Contains(t, err.Error(), "bad bid")
}

func TestLoadTicksValidates(t *testing.T) {
	t.Parallel()

	good := writeFile(t, "good.csv", "2026-01-24T09:30:00Z,EUR_USD,1.1000,1.1002\n")
	ticks, err := LoadTicks(good)
	require.NoError(t, err)
	assert.Len(t, ticks, 1)

	crossed := writeFile(t, "crossed.csv", "2026-01-24T09:30:00Z,EUR_USD,1.1002,1.1000\n")
	_, err = LoadTicks(crossed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "below bid")
}

func TestLoadBarsCSV(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "bars.csv", `date,open,high,low,close,close2,volume
2024-01-02 00:00:00,100,105,99,104,50,1200
2024-01-03 00:00:00,104,106,101,102,,
2024-01-04,102,103,98,99
`)
	s, err := LoadBarsCSV(path, "SPY")
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())
	assert.Equal(t, "SPY", s.Instrument)

	c := s.Candles[0]
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), c.Time)
	assert.Equal(t, [4]float64{100, 105, 99, 104}, [4]float64{c.Open, c.High, c.Low, c.Close})
	assert.Equal(t, 50.0, c.Close2)
	assert.Equal(t, 1200.0, c.Volume)
	assert.Zero(t, s.Candles[1].Close2)
	assert.Equal(t, 99.0, s.Candles[2].Close)
}

func TestLoadBarsCSVErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		errMsg string
	}{
		{"bad number", "2024-01-02,100,105,x,104\n", "bad low"},
		{"short row", "2024-01-02,100,105\n", "at least 5 columns"},
		{"bad time", "yesterday,100,105,99,104\n", "bad time"},
		{"out of order", "2024-01-03,100,105,99,104\n2024-01-02,100,105,99,104\n", "not after"},
		{"high below low", "2024-01-02,100,98,99,100\n", "row 0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadBarsCSV(writeFile(t, "bars.csv", tt.body), "SPY")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParquetBars(t *testing.T) {
	t.Parallel()

	day0 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	s := market.NewSeries("SPY", []market.Candle{
		{Time: day0, Open: 100, High: 101, Low: 99, Close: 100.5, Close2: 50, Volume: 10},
		{Time: day0.AddDate(0, 0, 1), Open: 100.5, High: 102, Low: 100, Close: 101, Close2: 51, Volume: 12},
	})
	path := filepath.Join(t.TempDir(), "nested", "spy.parquet")
	require.NoError(t, WriteBarsParquet(path, s))

	got, err := ReadBarsParquet(path, "")
	require.NoError(t, err)
	assert.Equal(t, "SPY", got.Instrument)
	assert.Equal(t, s.Candles, got.Candles)

	other, err := ReadBarsParquet(path, "QQQ")
	require.NoError(t, err)
	assert.Equal(t, 0, other.Len())

	_, err = ReadBarsParquet(filepath.Join(t.TempDir(), "missing.parquet"), "")
	assert.Error(t, err)
}

func TestParquetTicks(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 1, 2, 9, 30, 0, 123456789, time.UTC)
	ticks := []market.Tick{
		{Instrument: "EUR_USD", Time: t0, Bid: 1.1, Ask: 1.1002},
		{Instrument: "GBP_USD", Time: t0.Add(time.Millisecond), Bid: 1.25, Ask: 1.2502},
	}
	path := filepath.Join(t.TempDir(), "ticks.parquet")
	require.NoError(t, WriteTicksParquet(path, ticks))

	got, err := ReadTicksParquet(path)
	require.NoError(t, err)
	assert.Equal(t, ticks, got)
}

func TestWSQuotes(t *testing.T) {
	t.Parallel()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		frames := []string{
			`{"instrument":"EUR_USD","time":"2024-01-02T09:30:00Z","bid":1.1,"ask":1.1002}`,
			`not json`,
			`[{"instrument":"EUR_USD","time":"2024-01-02T09:30:01Z","bid":1.1001,"ask":1.1003},
			  {"instrument":"GBP_USD","time":"2024-01-02T09:30:01Z","bid":1.25,"ask":1.2502}]`,
			`{"instrument":"EUR_USD","time":"2024-01-02T09:30:02Z","bid":1.2,"ask":1.1}`,
		}
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	}))
	defer srv.Close()

	w := &WSQuotes{
		URL:         "ws" + strings.TrimPrefix(srv.URL, "http"),
		Header:      http.Header{"Authorization": []string{"Bearer secret"}},
		ReadTimeout: 5 * time.Second,
	}
	sink := &sliceSink{}
	require.NoError(t, w.Run(context.Background(), sink))

	got := sink.all()
	require.Len(t, got, 3)
	assert.Equal(t, 1.1, got[0].Bid)
	assert.Equal(t, "GBP_USD", got[2].Instrument)
}

func TestWSQuotesDialError(t *testing.T) {
	t.Parallel()

	w := &WSQuotes{URL: "ws://127.0.0.1:1/none"}
	err := w.Run(context.Background(), &sliceSink{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dial")
}

func TestReplayQuotes(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
	ticks := []market.Tick{
		{Instrument: "EUR_USD", Time: t0, Bid: 1, Ask: 1.1},
		{Instrument: "EUR_USD", Time: t0.Add(time.Second), Bid: 1, Ask: 1.1},
		{Instrument: "EUR_USD", Time: t0.Add(2 * time.Second), Bid: 1, Ask: 1.1},
	}

	sink := &sliceSink{}
	require.NoError(t, ReplayQuotes(context.Background(), ticks, sink, time.Millisecond))
	assert.Equal(t, ticks, sink.all())

	limited := &sliceSink{limit: 1}
	require.NoError(t, ReplayQuotes(context.Background(), ticks, limited, 0))
	assert.Len(t, limited.all(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, ReplayQuotes(ctx, ticks, &sliceSink{}, 0), context.Canceled)
}
