package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/fuelprices/internal/storage"
)

func TestStoreColdRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.Get(ctx, "prices/Diesel.json")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	data := []byte(`{"historik":[]}`)
	require.NoError(t, s.Put(ctx, "prices/Diesel.json", data))

	// the store keeps its own copy
	data[0] = 'x'
	got, err := s.Get(ctx, "prices/Diesel.json")
	require.NoError(t, err)
	assert.Equal(t, `{"historik":[]}`, string(got))

	require.NoError(t, s.Delete(ctx, "prices/Diesel.json"))
	assert.Zero(t, s.Len())
}

func TestStoreHotExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2022, time.March, 12, 10, 0, 0, 0, time.UTC)
	s := NewWithClock(func() time.Time { return now })
	hot := s.Hot()

	require.NoError(t, hot.Put(ctx, "recent:Diesel", []byte("a"), time.Minute))
	require.NoError(t, hot.Put(ctx, "notifications", []byte("b"), 0))

	now = now.Add(59 * time.Second)
	_, err := hot.Get(ctx, "recent:Diesel")
	require.NoError(t, err)

	now = now.Add(time.Second)
	_, err = hot.Get(ctx, "recent:Diesel")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 1, s.Len())

	got, err := hot.Get(ctx, "notifications")
	require.NoError(t, err)
	assert.Equal(t, "b", string(got))
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	hot := New().Hot()

	require.NoError(t, storage.PutJSON(ctx, hot, "k", map[string]int{"a": 1}, 0))

	var out map[string]int
	require.NoError(t, storage.GetJSON(ctx, hot, "k", &out))
	assert.Equal(t, 1, out["a"])

	require.NoError(t, hot.Put(ctx, "bad", []byte("{"), 0))
	assert.Error(t, storage.GetJSON(ctx, hot, "bad", &out))
	assert.ErrorIs(t, storage.GetJSON(ctx, hot, "missing", &out), storage.ErrNotFound)
}
