package database

// schemas maps database names to their embedded schema definitions.
// Each statement is idempotent (CREATE ... IF NOT EXISTS) so Migrate can run
// on every startup.
var schemas = map[string]string{
	"journal": journalSchema,
	"cache":   cacheSchema,
}

// journalSchema defines the trade journal source of truth.
// Timestamps are stored as the original ISO-8601-like strings the user or
// spreadsheet supplied; parsing policy (local-midnight for date-only values)
// lives in the domain package, not in SQL.
const journalSchema = `
CREATE TABLE IF NOT EXISTS trades (
	id           TEXT PRIMARY KEY,
	date         TEXT NOT NULL,
	exit_date    TEXT,
	instrument   TEXT NOT NULL,
	side         TEXT NOT NULL,
	entry_price  REAL NOT NULL DEFAULT 0 CHECK(entry_price >= 0),
	exit_price   REAL NOT NULL DEFAULT 0 CHECK(exit_price >= 0),
	quantity     REAL NOT NULL DEFAULT 0 CHECK(quantity >= 0),
	stop_loss    REAL,
	take_profit  REAL,
	risk_amount  REAL,
	risk_percent REAL,
	strategy     TEXT,
	notes        TEXT,
	tags         TEXT,
	entry_reason TEXT,
	exit_reason  TEXT,
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_date ON trades(date);
CREATE INDEX IF NOT EXISTS idx_trades_instrument ON trades(instrument);
CREATE INDEX IF NOT EXISTS idx_trades_strategy ON trades(strategy);
`

// cacheSchema holds ephemeral derived data: daily metrics snapshots encoded
// as msgpack blobs. Everything here can be recomputed from the journal.
const cacheSchema = `
CREATE TABLE IF NOT EXISTS metric_snapshots (
	day        TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	created_at INTEGER NOT NULL
);
`
