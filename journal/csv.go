package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

var (
	csvTradeHeader  = []string{"run_id", "trade_id", "instrument", "units", "entry_price", "exit_price", "entry_tick", "exit_tick", "open_time", "close_time", "realized_pl", "reason"}
	csvEquityHeader = []string{"run_id", "tick", "time", "cash", "equity", "margin_usage"}
)

// CSVJournal writes trades and equity to two CSV files.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

var _ Journal = (*CSVJournal)(nil)

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	j := &CSVJournal{
		trades: csv.NewWriter(tf),
		equity: csv.NewWriter(ef),
		tf:     tf,
		ef:     ef,
	}
	if err := j.write(j.trades, csvTradeHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	if err := j.write(j.equity, csvEquityHeader); err != nil {
		j.closeFiles()
		return nil, err
	}
	return j, nil
}

func (j *CSVJournal) write(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return j.write(j.trades, []string{
		t.RunID,
		t.TradeID,
		t.Instrument,
		f(t.Units),
		f(t.EntryPrice),
		f(t.ExitPrice),
		strconv.Itoa(t.EntryTick),
		strconv.Itoa(t.ExitTick),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		f(t.RealizedPL),
		t.Reason,
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.write(j.equity, []string{
		e.RunID,
		strconv.Itoa(e.Tick),
		e.Time.UTC().Format(time.RFC3339),
		f(e.Cash),
		f(e.Equity),
		f(e.MarginUsage),
	})
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		j.closeFiles()
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		j.closeFiles()
		return err
	}
	return j.closeFiles()
}

func (j *CSVJournal) closeFiles() error {
	err := j.tf.Close()
	if eerr := j.ef.Close(); err == nil {
		err = eerr
	}
	return err
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
