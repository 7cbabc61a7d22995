package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/storage"
	"github.com/andygrunwald/fuelprices/internal/storage/memory"
)

var (
	day = models.NewDay(2022, time.March, 12)
	t0  = time.Date(2022, time.March, 12, 9, 0, 0, 0, time.UTC)
)

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func putCold(t *testing.T, cold *memory.Store, ft models.FuelType, h models.PriceHistory) {
	t.Helper()
	data, err := json.Marshal(models.ColdDocument{FuelType: ft, FetchedAt: t0, History: h})
	require.NoError(t, err)
	require.NoError(t, cold.Put(context.Background(), ft.ColdKey(), data))
}

func readTier(t *testing.T, hot storage.HotStore, ft models.FuelType, tier models.Tier) models.PriceHistory {
	t.Helper()
	var h models.PriceHistory
	require.NoError(t, storage.GetJSON(context.Background(), hot, ft.HotKey(tier), &h))
	return h
}

type recordingPublisher struct {
	events []models.ChangeEvent
}

func (p *recordingPublisher) PublishChange(_ context.Context, e models.ChangeEvent) error {
	p.events = append(p.events, e)
	return nil
}

func TestReconcileTracksRevisions(t *testing.T) {
	ctx := context.Background()
	cold := memory.New()
	hot := memory.New().Hot()
	now := t0
	r := New(cold, hot, Options{}, nil, zerolog.Nop()).WithClock(func() time.Time { return now })

	putCold(t, cold, models.FuelTypeUnleaded95, models.PriceHistory{{Date: day, Price: price("10")}})
	require.NoError(t, r.Reconcile(ctx, models.FuelTypeUnleaded95))

	recent := readTier(t, hot, models.FuelTypeUnleaded95, models.TierRecent)
	require.Len(t, recent, 1)
	assert.NotNil(t, recent[0].PriorRevisions)
	assert.Empty(t, recent[0].PriorRevisions)

	now = t0.Add(time.Hour)
	putCold(t, cold, models.FuelTypeUnleaded95, models.PriceHistory{{Date: day, Price: price("12")}})
	require.NoError(t, r.Reconcile(ctx, models.FuelTypeUnleaded95))

	recent = readTier(t, hot, models.FuelTypeUnleaded95, models.TierRecent)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].Price.Equal(price("12")))
	require.Len(t, recent[0].PriorRevisions, 1)
	assert.True(t, recent[0].PriorRevisions[0].Price.Equal(price("10")))
	assert.True(t, recent[0].PriorRevisions[0].DetectedAt.Equal(now))

	// unchanged price leaves revisions untouched
	now = t0.Add(2 * time.Hour)
	require.NoError(t, r.Reconcile(ctx, models.FuelTypeUnleaded95))
	again := readTier(t, hot, models.FuelTypeUnleaded95, models.TierRecent)
	require.Len(t, again[0].PriorRevisions, 1)
	assert.True(t, again[0].PriorRevisions[0].DetectedAt.Equal(t0.Add(time.Hour)))

	// a further change appends after the carried revision
	now = t0.Add(3 * time.Hour)
	putCold(t, cold, models.FuelTypeUnleaded95, models.PriceHistory{{Date: day, Price: price("11.5")}})
	require.NoError(t, r.Reconcile(ctx, models.FuelTypeUnleaded95))
	third := readTier(t, hot, models.FuelTypeUnleaded95, models.TierRecent)
	require.Len(t, third[0].PriorRevisions, 2)
	assert.True(t, third[0].PriorRevisions[0].Price.Equal(price("10")))
	assert.True(t, third[0].PriorRevisions[1].Price.Equal(price("12")))
}

func TestReconcileWindowAndArchive(t *testing.T) {
	ctx := context.Background()
	cold := memory.New()
	hot := memory.New().Hot()
	r := New(cold, hot, Options{WindowSize: 3}, nil, zerolog.Nop())

	h := models.PriceHistory{}
	for i := 9; i >= 0; i-- {
		h = append(h, models.PriceRecord{Date: day.AddDays(-i), Price: decimal.NewFromInt(int64(10 + i))})
	}
	putCold(t, cold, models.FuelTypeDiesel, h)

	require.NoError(t, r.Reconcile(ctx, models.FuelTypeDiesel))

	recent := readTier(t, hot, models.FuelTypeDiesel, models.TierRecent)
	require.Len(t, recent, 3)
	assert.Equal(t, day.AddDays(-2), recent[0].Date)
	assert.Equal(t, day, recent[2].Date)

	archive := readTier(t, hot, models.FuelTypeDiesel, models.TierArchive)
	assert.Len(t, archive, 10)
}

func TestReconcileDropsDatesOutsideWindow(t *testing.T) {
	ctx := context.Background()
	cold := memory.New()
	hot := memory.New().Hot()
	r := New(cold, hot, Options{WindowSize: 1}, nil, zerolog.Nop())

	putCold(t, cold, models.FuelTypeDiesel, models.PriceHistory{{Date: day, Price: price("10")}})
	require.NoError(t, r.Reconcile(ctx, models.FuelTypeDiesel))

	putCold(t, cold, models.FuelTypeDiesel, models.PriceHistory{
		{Date: day, Price: price("11")},
		{Date: day.AddDays(1), Price: price("12")},
	})
	require.NoError(t, r.Reconcile(ctx, models.FuelTypeDiesel))

	recent := readTier(t, hot, models.FuelTypeDiesel, models.TierRecent)
	require.Len(t, recent, 1)
	assert.Equal(t, day.AddDays(1), recent[0].Date)
	assert.Empty(t, recent[0].PriorRevisions)
}

func TestReconcileMissingColdIsNoop(t *testing.T) {
	hot := memory.New().Hot()
	r := New(memory.New(), hot, Options{}, nil, zerolog.Nop())

	require.NoError(t, r.Reconcile(context.Background(), models.FuelTypeOctane100))
	_, err := hot.Get(context.Background(), models.FuelTypeOctane100.HotKey(models.TierRecent))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

type brokenCold struct{}

func (brokenCold) Get(context.Context, string) ([]byte, error) { return nil, errors.New("timeout") }
func (brokenCold) Put(context.Context, string, []byte) error   { return errors.New("timeout") }

func TestReconcileColdFailureLeavesHotUntouched(t *testing.T) {
	ctx := context.Background()
	hot := memory.New().Hot()
	stale := []byte(`[{"date":"2022-03-12T00:00:00","price":10,"prevPrices":[]}]`)
	require.NoError(t, hot.Put(ctx, models.FuelTypeDiesel.HotKey(models.TierRecent), stale, time.Hour))

	r := New(brokenCold{}, hot, Options{}, nil, zerolog.Nop())
	require.Error(t, r.Reconcile(ctx, models.FuelTypeDiesel))

	got, err := hot.Get(ctx, models.FuelTypeDiesel.HotKey(models.TierRecent))
	require.NoError(t, err)
	assert.Equal(t, stale, got)
}

func TestReconcileCorruptColdDocument(t *testing.T) {
	cold := memory.New()
	require.NoError(t, cold.Put(context.Background(), models.FuelTypeDiesel.ColdKey(), []byte(`{"historik":`)))
	r := New(cold, memory.New().Hot(), Options{}, nil, zerolog.Nop())
	assert.Error(t, r.Reconcile(context.Background(), models.FuelTypeDiesel))
}

type failingRecentHot struct {
	storage.HotStore
}

func (h failingRecentHot) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == models.FuelTypeDiesel.HotKey(models.TierRecent) {
		return errors.New("write refused")
	}
	return h.HotStore.Put(ctx, key, value, ttl)
}

func TestReconcilePartialTierWrite(t *testing.T) {
	ctx := context.Background()
	cold := memory.New()
	inner := memory.New().Hot()
	putCold(t, cold, models.FuelTypeDiesel, models.PriceHistory{{Date: day, Price: price("10")}})

	r := New(cold, failingRecentHot{inner}, Options{}, nil, zerolog.Nop())
	require.Error(t, r.Reconcile(ctx, models.FuelTypeDiesel))

	assert.Len(t, readTier(t, inner, models.FuelTypeDiesel, models.TierArchive), 1)
}

func TestReconcileTTL(t *testing.T) {
	ctx := context.Background()
	now := t0
	store := memory.NewWithClock(func() time.Time { return now })
	cold := memory.New()
	putCold(t, cold, models.FuelTypeDiesel, models.PriceHistory{{Date: day, Price: price("10")}})

	r := New(cold, store.Hot(), Options{}, nil, zerolog.Nop())
	require.NoError(t, r.Reconcile(ctx, models.FuelTypeDiesel))

	now = t0.Add(DefaultTTL - time.Second)
	_, err := store.Hot().Get(ctx, models.FuelTypeDiesel.HotKey(models.TierArchive))
	require.NoError(t, err)

	now = t0.Add(DefaultTTL)
	_, err = store.Hot().Get(ctx, models.FuelTypeDiesel.HotKey(models.TierArchive))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReconcilePublishesWhenPreviousWindowExists(t *testing.T) {
	ctx := context.Background()
	cold := memory.New()
	hot := memory.New().Hot()
	pub := &recordingPublisher{}
	r := New(cold, hot, Options{}, nil, zerolog.Nop()).WithPublisher(pub)

	putCold(t, cold, models.FuelTypeOctane100, models.PriceHistory{{Date: day, Price: price("15")}})
	require.NoError(t, r.Reconcile(ctx, models.FuelTypeOctane100))
	assert.Empty(t, pub.events)

	putCold(t, cold, models.FuelTypeOctane100, models.PriceHistory{{Date: day, Price: price("16")}})
	require.NoError(t, r.Reconcile(ctx, models.FuelTypeOctane100))
	require.Len(t, pub.events, 1)

	event := pub.events[0]
	assert.Equal(t, models.FuelTypeOctane100, event.FuelType)
	assert.True(t, event.RecentPrices[0].Price.Equal(price("16")))
	assert.True(t, event.PrevRecentPrices[0].Price.Equal(price("15")))
}

func TestReconcileAllIsolatesFailures(t *testing.T) {
	cold := memory.New()
	hot := memory.New().Hot()
	putCold(t, cold, models.FuelTypeUnleaded95, models.PriceHistory{{Date: day, Price: price("14.79")}})
	require.NoError(t, cold.Put(context.Background(), models.FuelTypeOctane100.ColdKey(), []byte("not json")))
	putCold(t, cold, models.FuelTypeDiesel, models.PriceHistory{{Date: day, Price: price("13.10")}})

	r := New(cold, hot, Options{}, nil, zerolog.Nop())
	require.Error(t, r.ReconcileAll(context.Background()))

	readTier(t, hot, models.FuelTypeUnleaded95, models.TierRecent)
	readTier(t, hot, models.FuelTypeDiesel, models.TierRecent)
}

func TestCarryRevisions(t *testing.T) {
	prev := models.PriceHistory{
		{Date: day, Price: price("10"), PriorRevisions: []models.Revision{{DetectedAt: t0, Price: price("9")}}},
		{Date: day.AddDays(1), Price: price("11")},
	}
	next := models.PriceHistory{
		{Date: day, Price: price("10")},
		{Date: day.AddDays(1), Price: price("12")},
		{Date: day.AddDays(2), Price: price("13")},
	}

	detected := t0.Add(time.Hour)
	out, n := CarryRevisions(prev, next, detected)
	assert.Equal(t, 1, n)
	require.Len(t, out, 3)

	require.Len(t, out[0].PriorRevisions, 1)
	assert.True(t, out[0].PriorRevisions[0].Price.Equal(price("9")))

	require.Len(t, out[1].PriorRevisions, 1)
	assert.True(t, out[1].PriorRevisions[0].Price.Equal(price("11")))
	assert.True(t, out[1].PriorRevisions[0].DetectedAt.Equal(detected))

	assert.NotNil(t, out[2].PriorRevisions)
	assert.Empty(t, out[2].PriorRevisions)

	// inputs are not mutated
	assert.Nil(t, next[0].PriorRevisions)
	assert.Len(t, prev[0].PriorRevisions, 1)
}

func TestCarryRevisionsEmptyInputs(t *testing.T) {
	out, n := CarryRevisions(nil, nil, t0)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.Zero(t, n)
}
