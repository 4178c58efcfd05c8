package journal

// Schema is applied on open. Times are unix milliseconds; undefined stats
// are NULL.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created INTEGER NOT NULL,
	source TEXT NOT NULL,
	days INTEGER NOT NULL,
	seed INTEGER NOT NULL,
	start_time INTEGER NOT NULL,
	end_time INTEGER NOT NULL,
	total_trades INTEGER NOT NULL,
	wins INTEGER NOT NULL,
	losses INTEGER NOT NULL,
	win_rate REAL,
	avg_win REAL,
	avg_loss REAL,
	avg_pnl REAL,
	total_pnl REAL NOT NULL,
	profit_factor REAL NOT NULL,
	edge REAL,
	edge_grade TEXT NOT NULL,
	initial_balance REAL NOT NULL,
	final_balance REAL NOT NULL,
	max_drawdown REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	faults INTEGER NOT NULL,
	stopped INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	time INTEGER NOT NULL,
	level REAL NOT NULL,
	entry_price REAL NOT NULL,
	kind TEXT NOT NULL,
	pnl REAL NOT NULL,
	outcome TEXT NOT NULL,
	risk_reward REAL NOT NULL,
	time_at_level REAL NOT NULL,
	contracts INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, time);
`
