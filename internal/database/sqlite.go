package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	createTable: `
		CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			expires_at INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		)
	`,
	get: `
		SELECT value FROM cache_entries
		WHERE key = ? AND (expires_at = 0 OR expires_at > ?)
	`,
	upsert: `
		INSERT INTO cache_entries (key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (key)
		DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`,
	delete: `DELETE FROM cache_entries WHERE key = ?`,
	purge:  `DELETE FROM cache_entries WHERE expires_at <> 0 AND expires_at <= ?`,
	count:  `SELECT COUNT(*) FROM cache_entries`,
}

// NewSQLite opens a SQLite backed hot store at path.
func NewSQLite(path string, logger zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", sqliteDialect, logger)
}
