// Package memo caches rendered lookup responses for a short time.
package memo

import (
	"context"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/andygrunwald/fuelprices/internal/metrics"
	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/storage"
)

// DefaultTTL is how long a rendered response is reused.
const DefaultTTL = 30 * time.Minute

// Entry is a cached response.
type Entry struct {
	Status int    `msgpack:"status"`
	Body   []byte `msgpack:"body"`
}

// Cache stores entries in a hot store, usually the in-process memory store.
type Cache struct {
	store   storage.HotStore
	ttl     time.Duration
	metrics *metrics.Metrics
}

// New creates a Cache. A non-positive ttl uses DefaultTTL.
func New(store storage.HotStore, ttl time.Duration, m *metrics.Metrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, metrics: m}
}

// Key builds the cache key of a lookup.
func Key(day models.Day, fuelType models.FuelType, lang string) string {
	return fmt.Sprintf("%s:%s:%s", day, fuelType, lang)
}

// Get returns the entry under key. Undecodable entries count as misses.
func (c *Cache) Get(ctx context.Context, key string) (Entry, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		c.metrics.RecordMemo(false)
		return Entry{}, false
	}
	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		c.metrics.RecordMemo(false)
		return Entry{}, false
	}
	c.metrics.RecordMemo(true)
	return e, true
}

// Set stores e under key.
func (c *Cache) Set(ctx context.Context, key string, e Entry) error {
	data, err := msgpack.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encoding memo entry: %w", err)
	}
	return c.store.Put(ctx, key, data, c.ttl)
}
