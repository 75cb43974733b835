package store

const schemaDDL = `
CREATE TABLE IF NOT EXISTS watchlist (
	address    TEXT PRIMARY KEY,
	label      TEXT NOT NULL DEFAULT '',
	added_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	address        TEXT NOT NULL,
	analyzed_at    DATETIME NOT NULL,
	strategy_type  TEXT NOT NULL,
	confidence     REAL NOT NULL DEFAULT 0,
	alpha_score    REAL NOT NULL DEFAULT 0,
	win_rate       REAL NOT NULL DEFAULT 0,
	trade_count    INTEGER NOT NULL DEFAULT 0,
	usable_count   INTEGER NOT NULL DEFAULT 0,
	total_pnl      REAL NOT NULL DEFAULT 0,
	report_json    TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_analyses_address ON analyses(address, analyzed_at);

CREATE TABLE IF NOT EXISTS seen_signals (
	address      TEXT NOT NULL,
	signal_type  TEXT NOT NULL,
	day          TEXT NOT NULL,
	strength     REAL NOT NULL DEFAULT 0,
	first_seen   DATETIME NOT NULL,
	PRIMARY KEY (address, signal_type, day)
);

CREATE VIEW IF NOT EXISTS v_latest_analyses AS
SELECT a.*
FROM analyses a
JOIN (
	SELECT address, MAX(id) AS max_id FROM analyses GROUP BY address
) latest ON a.id = latest.max_id;
`

// addedColumns are applied to databases created before the column existed.
// The backfill runs once, right after the column is added.
var addedColumns = []struct {
	table, column, decl, backfill string
}{
	{"analyses", "usable_count", "INTEGER NOT NULL DEFAULT 0", "UPDATE analyses SET usable_count = trade_count"},
}
