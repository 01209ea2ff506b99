package store

import (
	"context"
	"database/sql"
)

// schema contains the DDL for all portal tables.
// Each statement uses IF NOT EXISTS for idempotency.
var schema = []string{
	// Sessions table for portal authentication
	`CREATE TABLE IF NOT EXISTS sessions (
		id           TEXT PRIMARY KEY,
		email        TEXT NOT NULL,
		role         TEXT NOT NULL DEFAULT 'partner',
		company_name TEXT NOT NULL DEFAULT '',
		client_ids   TEXT NOT NULL DEFAULT '[]',
		token        TEXT NOT NULL,
		token_exp    INTEGER NOT NULL DEFAULT 0,
		created_at   INTEGER NOT NULL,
		expires_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_email ON sessions(email)`,

	// One row per OTP request; attempts counts failed verifications.
	`CREATE TABLE IF NOT EXISTS otp_challenges (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		email        TEXT NOT NULL,
		requested_at INTEGER NOT NULL,
		attempts     INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_otp_challenges_email ON otp_challenges(email, requested_at)`,
}

// migrate executes all schema DDL statements.
func migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
