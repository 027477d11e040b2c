package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetExport(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	trades := []TradeRecord{trade("r1", "T1", at, 12.5), trade("r1", "T2", at.Add(time.Hour), -3)}
	path := filepath.Join(dir, "out", "trades.parquet")
	require.NoError(t, ExportTradesParquet(path, trades))

	got, err := ImportTradesParquet(path)
	require.NoError(t, err)
	assert.Equal(t, trades, got)

	equity := []EquitySnapshot{
		{RunID: "r1", Tick: 0, Time: at, Cash: 10_000, Equity: 10_000},
		{RunID: "r1", Tick: 1, Time: at.Add(time.Hour), Cash: 10_000, Equity: 10_012.5, MarginUsage: 0.1},
	}
	epath := filepath.Join(dir, "equity.parquet")
	require.NoError(t, ExportEquityParquet(epath, equity))

	gotEq, err := ImportEquityParquet(epath)
	require.NoError(t, err)
	assert.Equal(t, equity, gotEq)

	_, err = ImportTradesParquet(filepath.Join(dir, "missing.parquet"))
	assert.Error(t, err)
}
