package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/fuelprices/internal/storage"
)

func TestStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s := New(Options{Addr: mr.Addr(), KeyPrefix: "FUELPRICES"})
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Ping(ctx))

	_, err := s.Get(ctx, "recent:Diesel")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put(ctx, "recent:Diesel", []byte("[]"), time.Hour))
	assert.True(t, mr.Exists("FUELPRICES:recent:Diesel"))
	assert.Equal(t, time.Hour, mr.TTL("FUELPRICES:recent:Diesel"))

	got, err := s.Get(ctx, "recent:Diesel")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))

	mr.FastForward(time.Hour)
	_, err = s.Get(ctx, "recent:Diesel")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, s.Put(ctx, "notifications", []byte("[]"), 0))
	assert.Zero(t, mr.TTL("FUELPRICES:notifications"))

	require.NoError(t, s.Delete(ctx, "notifications"))
	assert.False(t, mr.Exists("FUELPRICES:notifications"))
}

func TestStoreGetError(t *testing.T) {
	mr := miniredis.RunT(t)
	s := New(Options{Addr: mr.Addr()})
	defer s.Close()

	mr.SetError("boom")
	_, err := s.Get(context.Background(), "recent:Diesel")
	require.Error(t, err)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}
