package journal

const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	mode TEXT NOT NULL,
	dataset TEXT NOT NULL,
	instrument TEXT NOT NULL,
	strategy TEXT NOT NULL,
	config BLOB,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	ticks INTEGER NOT NULL,
	trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	start_cash REAL NOT NULL,
	end_equity REAL NOT NULL,
	total_return REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	sharpe REAL NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL,
	max_margin_usage REAL NOT NULL,
	ruined INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	run_id TEXT NOT NULL,
	trade_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	units REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	entry_tick INTEGER NOT NULL,
	exit_tick INTEGER NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pl REAL NOT NULL,
	reason TEXT NOT NULL,
	PRIMARY KEY (run_id, trade_id)
);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	tick INTEGER NOT NULL,
	time DATETIME NOT NULL,
	cash REAL NOT NULL,
	equity REAL NOT NULL,
	margin_usage REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run_tick ON equity(run_id, tick);
CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);
`
