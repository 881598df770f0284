package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent and re-run
// on every open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	// Durable rows for the local backend. Mirrors the hosted schema.
	`CREATE TABLE IF NOT EXISTS feeding_sessions (
		id            TEXT PRIMARY KEY,
		user_id       TEXT NOT NULL,
		start_time    TEXT NOT NULL,
		end_time      TEXT,
		duration      INTEGER NOT NULL CHECK(duration > 0 AND duration <= 480),
		breast_type   TEXT NOT NULL
		              CHECK(breast_type IN ('left','right','both','bottle')),
		bottle_volume INTEGER,
		notes         TEXT,
		is_active     INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_feeding_sessions_user_start ON feeding_sessions(user_id, start_time)`,

	`CREATE TABLE IF NOT EXISTS user_profiles (
		id              TEXT PRIMARY KEY,
		email           TEXT NOT NULL DEFAULT '',
		full_name       TEXT,
		baby_name       TEXT,
		baby_birth_date TEXT,
		created_at      TEXT NOT NULL,
		updated_at      TEXT NOT NULL
	)`,

	// At most one live session per owner.
	`CREATE TABLE IF NOT EXISTS live_sessions (
		owner_id      TEXT PRIMARY KEY,
		id            TEXT NOT NULL,
		start_time    TEXT NOT NULL,
		breast_type   TEXT NOT NULL
		              CHECK(breast_type IN ('left','right','both','bottle')),
		bottle_volume INTEGER,
		is_paused     INTEGER NOT NULL DEFAULT 0,
		paused_at     TEXT,
		paused_ms     INTEGER NOT NULL DEFAULT 0,
		updated_at    TEXT NOT NULL
	)`,

	// The signed-in auth session shared by CLI invocations.
	`CREATE TABLE IF NOT EXISTS auth_session (
		id            TEXT PRIMARY KEY DEFAULT 'current',
		access_token  TEXT NOT NULL DEFAULT '',
		refresh_token TEXT NOT NULL DEFAULT '',
		expires_at    TEXT,
		user_id       TEXT NOT NULL,
		email         TEXT NOT NULL DEFAULT '',
		updated_at    TEXT NOT NULL
	)`,

	// Record which backend issued the auth session so switching backends
	// does not reuse a foreign token.
	`ALTER TABLE auth_session ADD COLUMN backend TEXT NOT NULL DEFAULT ''`,
}
