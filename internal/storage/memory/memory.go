// Package memory provides in-process cold and hot stores.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/andygrunwald/fuelprices/internal/storage"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Store is a map-backed store satisfying both storage.ColdStore and
// storage.HotStore. Expired entries are dropped lazily on read.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewWithClock creates an empty Store that reads time from now.
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, storage.ErrNotFound
	}
	return slices.Clone(e.value), nil
}

// Put stores value under key without expiry. It satisfies storage.ColdStore.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	return s.PutTTL(ctx, key, value, 0)
}

// PutTTL stores value under key, expiring after ttl when ttl is positive.
func (s *Store) PutTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	e := entry{value: slices.Clone(value)}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()
	return nil
}

// Delete removes key.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, including expired ones not yet read.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Hot adapts the store to storage.HotStore.
func (s *Store) Hot() storage.HotStore {
	return hot{s}
}

type hot struct{ *Store }

func (h hot) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return h.Store.PutTTL(ctx, key, value, ttl)
}

var _ storage.ColdStore = (*Store)(nil)
var _ storage.HotStore = hot{}
