package database

// schema is the full ledger DDL. Statements are idempotent so Migrate can run
// on every startup.
const schema = `
CREATE TABLE IF NOT EXISTS wallets (
    user_id         TEXT PRIMARY KEY,
    virtual_cash    REAL NOT NULL CHECK (virtual_cash >= 0),
    currency        TEXT NOT NULL DEFAULT 'INR',
    mis_margin_used REAL NOT NULL DEFAULT 0 CHECK (mis_margin_used >= 0),
    updated_at      TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS holdings (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id       TEXT NOT NULL,
    symbol        TEXT NOT NULL,
    exchange      TEXT NOT NULL,
    product_type  TEXT NOT NULL DEFAULT 'CNC',
    quantity      INTEGER NOT NULL CHECK (quantity > 0),
    average_price REAL NOT NULL CHECK (average_price > 0),
    last_price    REAL NOT NULL DEFAULT 0,
    updated_at    TEXT NOT NULL,
    UNIQUE (user_id, symbol, exchange, product_type)
);

CREATE TABLE IF NOT EXISTS transactions (
    id           TEXT PRIMARY KEY,
    user_id      TEXT NOT NULL,
    type         TEXT NOT NULL,
    symbol       TEXT NOT NULL,
    exchange     TEXT NOT NULL,
    product_type TEXT NOT NULL DEFAULT 'CNC',
    quantity     INTEGER NOT NULL,
    price        REAL NOT NULL,
    total_amount REAL NOT NULL,
    status       TEXT NOT NULL,
    executed_at  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_user_executed
    ON transactions (user_id, executed_at DESC);

CREATE TABLE IF NOT EXISTS watchlist_items (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    TEXT NOT NULL,
    symbol     TEXT NOT NULL,
    exchange   TEXT NOT NULL,
    created_at TEXT NOT NULL,
    UNIQUE (user_id, symbol, exchange)
);

CREATE TABLE IF NOT EXISTS access_token (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    token      TEXT NOT NULL,
    expires_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS equity_snapshots (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id      TEXT NOT NULL,
    date         TEXT NOT NULL,
    total_equity REAL NOT NULL,
    UNIQUE (user_id, date)
);
`
