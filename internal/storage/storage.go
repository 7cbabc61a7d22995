// Package storage defines the cold and hot store capabilities used by the
// fetcher, reconciler and lookup service.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a key is absent or its entry has expired.
var ErrNotFound = errors.New("storage: key not found")

// ColdStore is durable object storage holding full price histories.
type ColdStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// HotStore is a fast key-value store with per-key expiry.
type HotStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key. A ttl of zero keeps the entry until deleted.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Reader is the read side shared by cold and hot stores.
type Reader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Pinger is implemented by backends that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// GetJSON reads key from store and decodes it into v.
func GetJSON(ctx context.Context, store Reader, key string, v any) error {
	data, err := store.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and writes it to a hot store.
func PutJSON(ctx context.Context, store HotStore, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return store.Put(ctx, key, data, ttl)
}
