package ledger

import (
	"fmt"

	"omnia/sqlite"
)

// sqlite gets its schema applied directly; the migrate tooling is only
// wired for postgres.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id      TEXT PRIMARY KEY,
    balance BIGINT NOT NULL CHECK (balance >= 0)
);
CREATE TABLE IF NOT EXISTS transfers (
    id           TEXT PRIMARY KEY,
    from_account TEXT NOT NULL REFERENCES accounts(id),
    to_account   TEXT NOT NULL REFERENCES accounts(id),
    amount       BIGINT NOT NULL CHECK (amount > 0),
    created_at   TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS audit_log (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    transfer_id TEXT NOT NULL,
    note        TEXT NOT NULL
);`

// EnsureSQLiteSchema creates the ledger tables if they do not exist.
func EnsureSQLiteSchema(f *sqlite.Factory) error {
	if _, err := f.DB.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("apply sqlite schema: %w", err)
	}
	return nil
}
