// journal/schema.go
package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	asset TEXT NOT NULL,
	class TEXT NOT NULL,
	grp TEXT NOT NULL,
	probability REAL NOT NULL,
	size REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	entry_day DATETIME NOT NULL,
	exit_day DATETIME NOT NULL,
	days_held INTEGER NOT NULL,
	realized_pl REAL NOT NULL,
	risk_amount REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_asset_entry ON trades(asset, entry_day);

CREATE TABLE IF NOT EXISTS transitions (
	id TEXT PRIMARY KEY,
	asset TEXT NOT NULL,
	day DATETIME NOT NULL,
	kind TEXT NOT NULL,
	detail TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transitions_asset_day ON transitions(asset, day);

CREATE TABLE IF NOT EXISTS equity (
	day DATETIME NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL,
	open_positions INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_day ON equity(day);
`
