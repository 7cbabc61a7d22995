package database

import (
	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
)

// key is reserved in MySQL, so the column is cache_key here.
var mysqlDialect = dialect{
	name: "mysql",
	createTable: `
		CREATE TABLE IF NOT EXISTS cache_entries (
			cache_key  VARCHAR(255) NOT NULL PRIMARY KEY,
			value      LONGBLOB NOT NULL,
			expires_at BIGINT NOT NULL DEFAULT 0,
			updated_at DATETIME(3) NOT NULL
		) DEFAULT CHARSET=utf8mb4
	`,
	get: `
		SELECT value FROM cache_entries
		WHERE cache_key = ? AND (expires_at = 0 OR expires_at > ?)
	`,
	upsert: `
		INSERT INTO cache_entries (cache_key, value, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			value = VALUES(value),
			expires_at = VALUES(expires_at),
			updated_at = VALUES(updated_at)
	`,
	delete: `DELETE FROM cache_entries WHERE cache_key = ?`,
	purge:  `DELETE FROM cache_entries WHERE expires_at <> 0 AND expires_at <= ?`,
	count:  `SELECT COUNT(*) FROM cache_entries`,
}

// NewMySQL opens a MySQL backed hot store. The DSN uses the
// go-sql-driver format, e.g. user:pass@tcp(host:3306)/fuelprices.
func NewMySQL(dsn string, logger zerolog.Logger) (*DB, error) {
	return open("mysql", dsn, mysqlDialect, logger)
}
