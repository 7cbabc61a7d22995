package database

import (
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
)

var postgresDialect = dialect{
	name: "postgres",
	createTable: `
		CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			expires_at BIGINT NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`,
	get: `
		SELECT value FROM cache_entries
		WHERE key = $1 AND (expires_at = 0 OR expires_at > $2)
	`,
	upsert: `
		INSERT INTO cache_entries (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key)
		DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`,
	delete: `DELETE FROM cache_entries WHERE key = $1`,
	purge:  `DELETE FROM cache_entries WHERE expires_at <> 0 AND expires_at <= $1`,
	count:  `SELECT COUNT(*) FROM cache_entries`,
}

// NewPostgres opens a PostgreSQL backed hot store.
func NewPostgres(dsn string, logger zerolog.Logger) (*DB, error) {
	return open("pgx", dsn, postgresDialect, logger)
}
