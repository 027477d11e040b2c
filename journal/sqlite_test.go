package journal

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	j, err := NewSQLite(path)
	require.NoError(t, err)
	return j, path
}

func trade(runID, id string, closeAt time.Time, pl float64) TradeRecord {
	return TradeRecord{
		RunID:      runID,
		TradeID:    id,
		Instrument: "EUR_USD",
		Units:      1000,
		EntryPrice: 1.1,
		ExitPrice:  1.1 + pl/1000,
		EntryTick:  1,
		ExitTick:   closeAt.Hour(),
		OpenTime:   closeAt.Add(-time.Hour),
		CloseTime:  closeAt,
		RealizedPL: pl,
		Reason:     "StopLoss",
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteTrades(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })
	ctx := context.Background()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(trade("r1", "T2", day.Add(5*time.Hour), -4)))
	require.NoError(t, j.RecordTrade(trade("r1", "T1", day.Add(3*time.Hour), 12.5)))
	require.NoError(t, j.RecordTrade(trade("r2", "T1", day.Add(4*time.Hour), 1)))

	got, err := j.GetTrade(ctx, "r1", "T1")
	require.NoError(t, err)
	assert.Equal(t, "EUR_USD", got.Instrument)
	assert.InDelta(t, 12.5, got.RealizedPL, 1e-9)
	assert.Equal(t, 3, got.ExitTick)
	assert.True(t, got.CloseTime.Equal(day.Add(3*time.Hour)))

	_, err = j.GetTrade(ctx, "r1", "T9")
	assert.ErrorIs(t, err, ErrNotFound)

	// duplicate key within a run
	assert.Error(t, j.RecordTrade(trade("r1", "T1", day, 0)))

	byRun, err := j.ListTradesByRunID(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, byRun, 2)
	assert.Equal(t, "T1", byRun[0].TradeID)
	assert.Equal(t, "T2", byRun[1].TradeID)

	between, err := j.ListTradesClosedBetween(ctx, day.Add(3*time.Hour), day.Add(5*time.Hour))
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, "r1", between[0].RunID)
	assert.Equal(t, "r2", between[1].RunID)
}

func TestSQLiteEquity(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 2; i >= 0; i-- {
		require.NoError(t, j.RecordEquity(EquitySnapshot{
			RunID:       "r1",
			Tick:        i,
			Time:        day.AddDate(0, 0, i),
			Cash:        10_000,
			Equity:      10_000 + float64(i),
			MarginUsage: 0.1,
		}))
	}
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "r2", Time: day}))

	got, err := j.ListEquityByRunID(context.Background(), "r1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, e := range got {
		assert.Equal(t, i, e.Tick)
		assert.InDelta(t, 10_000+float64(i), e.Equity, 1e-9)
	}
}

func TestSQLiteRuns(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })
	ctx := context.Background()

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	first := Run{
		RunID:        "r1",
		Created:      day,
		Mode:         "backtest",
		Dataset:      "spy.csv",
		Instrument:   "SPY",
		Strategy:     "ma-cross",
		Config:       []byte(`{"fast":10}`),
		Start:        day,
		End:          day.AddDate(0, 1, 0),
		Ticks:        21,
		Trades:       3,
		Wins:         2,
		Losses:       1,
		StartCash:    10_000,
		EndEquity:    10_250,
		TotalReturn:  0.025,
		ProfitFactor: 2.5,
	}
	second := Run{
		RunID:        "r2",
		Created:      day.Add(time.Hour),
		Mode:         "live",
		Instrument:   "EUR_USD",
		Strategy:     "noop",
		Start:        day,
		End:          day,
		ProfitFactor: math.NaN(),
		Ruined:       true,
	}
	require.NoError(t, j.RecordRun(ctx, first))
	require.NoError(t, j.RecordRun(ctx, second))

	got, err := j.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "ma-cross", got.Strategy)
	assert.Equal(t, `{"fast":10}`, string(got.Config))
	assert.Equal(t, 2, got.Wins)
	assert.InDelta(t, 2.5, got.ProfitFactor, 1e-9)
	assert.False(t, got.Ruined)

	got, err = j.GetRun(ctx, "r2")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(got.ProfitFactor))
	assert.True(t, got.Ruined)

	_, err = j.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := j.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "r2", runs[0].RunID)

	runs, err = j.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	// re-recording replaces the row
	first.EndEquity = 9_000
	require.NoError(t, j.RecordRun(ctx, first))
	got, err = j.GetRun(ctx, "r1")
	require.NoError(t, err)
	assert.InDelta(t, 9_000, got.EndEquity, 1e-9)
}
