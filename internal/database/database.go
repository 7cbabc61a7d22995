// Package database provides SQL backed hot stores for PostgreSQL, MySQL and
// SQLite.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/andygrunwald/fuelprices/internal/storage"
)

// dialect holds the driver specific statements of the cache_entries table.
type dialect struct {
	name        string
	createTable string
	get         string
	upsert      string
	delete      string
	purge       string
	count       string
}

// DB wraps a SQL connection and stores hot entries in the cache_entries table.
// Expiry is kept as unix milliseconds, 0 meaning no expiry.
type DB struct {
	db      *sql.DB
	dialect dialect
	logger  zerolog.Logger
	now     func() time.Time
}

func open(driver, dsn string, d dialect, logger zerolog.Logger) (*DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(d.createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache_entries table: %w", err)
	}

	return &DB{
		db:      db,
		dialect: d,
		logger:  logger.With().Str("component", "database").Str("driver", d.name).Logger(),
		now:     time.Now,
	}, nil
}

// WithClock replaces the time source used for expiry.
func (d *DB) WithClock(now func() time.Time) *DB {
	d.now = now
	return d
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks if the database connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Get returns the unexpired value stored under key.
func (d *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := d.db.QueryRowContext(ctx, d.dialect.get, key, d.now().UnixMilli()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	return value, nil
}

// Put upserts value under key.
func (d *DB) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := d.now()
	var expiresAt int64
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixMilli()
	}

	if _, err := d.db.ExecContext(ctx, d.dialect.upsert, key, value, expiresAt, now.UTC()); err != nil {
		return fmt.Errorf("upserting %s: %w", key, err)
	}

	d.logger.Debug().
		Str("key", key).
		Int("bytes", len(value)).
		Dur("ttl", ttl).
		Msg("stored cache entry")
	return nil
}

// Delete removes key.
func (d *DB) Delete(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, d.dialect.delete, key); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// PurgeExpired removes expired entries and returns how many were deleted.
func (d *DB) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := d.db.ExecContext(ctx, d.dialect.purge, d.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purging expired entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting purged entries: %w", err)
	}
	return n, nil
}

// Count returns the number of stored entries, expired or not.
func (d *DB) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := d.db.QueryRowContext(ctx, d.dialect.count).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}

var _ storage.HotStore = (*DB)(nil)
