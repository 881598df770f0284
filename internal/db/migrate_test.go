package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	// Run migrations a second time — should succeed without error.
	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{"feeding_sessions", "user_profiles", "live_sessions", "auth_session"}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`,
		"idx_feeding_sessions_user_start").Scan(&name)
	require.NoError(t, err)
}

func TestMigrate_AddsBackendColumn(t *testing.T) {
	db := openTestDB(t)

	_, err := db.Exec(`INSERT INTO auth_session (id, user_id, backend, updated_at) VALUES ('current', 'u1', 'rest', 'now')`)
	require.NoError(t, err)

	var backend string
	require.NoError(t, db.QueryRow(`SELECT backend FROM auth_session WHERE id = 'current'`).Scan(&backend))
	assert.Equal(t, "rest", backend)
}

func TestMigrate_DurationCheckConstraint(t *testing.T) {
	db := openTestDB(t)

	insert := `INSERT INTO feeding_sessions (id, user_id, start_time, duration, breast_type, created_at, updated_at)
		VALUES (?, 'u1', '2025-01-01T00:00:00.000Z', ?, 'left', 'x', 'x')`
	_, err := db.Exec(insert, "ok", 480)
	require.NoError(t, err)

	_, err = db.Exec(insert, "zero", 0)
	assert.Error(t, err)
	_, err = db.Exec(insert, "long", 481)
	assert.Error(t, err)
}

func TestOpenDB_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "feedlog.db")
	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()
	assert.FileExists(t, path)
}
