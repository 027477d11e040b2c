package journal

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/ticksim/broker"
	"github.com/rustyeddy/ticksim/stats"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	rec := trade("run-1", "01HZX3ABCDEF", time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC), 12.5)
	out := FormatTradeOrg(rec)

	assert.True(t, strings.HasPrefix(out, "** Trade: EUR_USD (01HZX3AB)\n"))
	assert.Contains(t, out, ":RUN_ID: run-1\n")
	assert.Contains(t, out, ":TRADE_ID: 01HZX3ABCDEF\n")
	assert.Contains(t, out, ":UNITS: 1000\n")
	assert.Contains(t, out, ":ENTRY_PRICE: 1.10000\n")
	assert.Contains(t, out, ":CLOSE_TIME: 2024-01-02T04:00:00Z\n")
	assert.Contains(t, out, ":REALIZED_PL: 12.50\n")
	assert.Contains(t, out, "*** Review\n")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC)
	out := FormatTradesOrg([]TradeRecord{trade("r", "A", at, 1), trade("r", "B", at, 2)})
	assert.Equal(t, 2, strings.Count(out, "** Trade:"))
	assert.Contains(t, out, "- \n\n\n** Trade: EUR_USD (B)")
	assert.Empty(t, FormatTradesOrg(nil))
}

func TestRunApply(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	rep := stats.Report{
		Start:        day,
		End:          day.AddDate(0, 0, 9),
		Ticks:        10,
		EquityFinal:  10_150,
		TotalReturn:  0.015,
		MaxDrawdown:  -0.02,
		WinRate:      0.5,
		ProfitFactor: math.NaN(),
	}
	trades := []broker.Trade{
		{ID: "a", Size: 1, EntryPrice: 100, ExitPrice: 110},
		{ID: "b", Size: 1, EntryPrice: 100, ExitPrice: 95},
		{ID: "c", Size: 1, EntryPrice: 100, ExitPrice: 100},
		{ID: "d", Size: 1, EntryPrice: 100, Open: true},
	}

	var r Run
	r.Apply(rep, trades, 10_000)
	assert.Equal(t, 3, r.Trades)
	assert.Equal(t, 1, r.Wins)
	assert.Equal(t, 1, r.Losses)
	assert.Equal(t, 10, r.Ticks)
	assert.InDelta(t, 150, r.NetPL(), 1e-9)
	assert.True(t, math.IsNaN(r.ProfitFactor))
}

func TestRunWriteOrg(t *testing.T) {
	t.Parallel()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	r := Run{
		RunID:        "r1",
		Created:      day,
		Mode:         "backtest",
		Instrument:   "SPY",
		Strategy:     "ma-cross",
		Config:       []byte(`{"fast":10}`),
		Start:        day,
		End:          day.AddDate(0, 0, 9),
		StartCash:    10_000,
		EndEquity:    10_150,
		TotalReturn:  0.015,
		MaxDrawdown:  -0.02,
		WinRate:      0.5,
		ProfitFactor: math.NaN(),
		Notes:        []string{"flat market"},
	}

	var buf bytes.Buffer
	require.NoError(t, r.WriteOrg(&buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "* BACKTEST: ma-cross SPY\n"))
	assert.Contains(t, out, ":DATASET:     (dataset?)\n")
	assert.Contains(t, out, ":END_DATE:    2024-01-11\n")
	assert.Contains(t, out, ":NET_PL:      150.00\n")
	assert.Contains(t, out, ":RETURN_PCT:  1.50\n")
	assert.Contains(t, out, ":MAX_DD_PCT:  -2.00\n")
	assert.Contains(t, out, ":PROFIT_FAC:  n/a\n")
	assert.Contains(t, out, `{"fast":10}`)
	assert.Contains(t, out, "- flat market")

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, r.WriteOrgFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}
