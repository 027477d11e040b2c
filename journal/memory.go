package journal

import "sync"

// Memory keeps records in memory, for exports at the end of a run and for
// tests.
type Memory struct {
	mu     sync.Mutex
	trades []TradeRecord
	equity []EquitySnapshot
}

var _ Journal = (*Memory)(nil)

func (m *Memory) RecordTrade(t TradeRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades = append(m.trades, t)
	return nil
}

func (m *Memory) RecordEquity(e EquitySnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.equity = append(m.equity, e)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) Trades() []TradeRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]TradeRecord(nil), m.trades...)
}

func (m *Memory) Equity() []EquitySnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EquitySnapshot(nil), m.equity...)
}
