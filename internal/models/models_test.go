package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFuelType(t *testing.T) {
	cases := map[string]FuelType{
		"unleaded95": FuelTypeUnleaded95,
		"Unleaded95": FuelTypeUnleaded95,
		"OCTANE100":  FuelTypeOctane100,
		" diesel ":   FuelTypeDiesel,
	}
	for in, want := range cases {
		got, ok := ParseFuelType(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	_, ok := ParseFuelType("kerosene")
	assert.False(t, ok)
}

func TestFuelTypeValidRequiresCanonicalSpelling(t *testing.T) {
	for _, ft := range AllFuelTypes {
		assert.True(t, ft.Valid(), ft)
	}
	assert.False(t, FuelType("diesel").Valid())
	assert.False(t, FuelType("UNLEADED95").Valid())
	assert.False(t, FuelType("Kerosene").Valid())
}

func TestFuelTypeKeys(t *testing.T) {
	assert.Equal(t, "prices/Diesel.json", FuelTypeDiesel.ColdKey())
	assert.Equal(t, "recent:Octane100", FuelTypeOctane100.HotKey(TierRecent))
	assert.Equal(t, "archive:Unleaded95", FuelTypeUnleaded95.HotKey(TierArchive))
	assert.Equal(t, 536, FuelTypeUnleaded95.ItemNumber())
	assert.Equal(t, 533, FuelTypeOctane100.ItemNumber())
	assert.Equal(t, 231, FuelTypeDiesel.ItemNumber())
}

func TestParseDayKeepsOwnDate(t *testing.T) {
	cases := map[string]Day{
		"2022-03-12":                NewDay(2022, time.March, 12),
		"2022-03-12T00:00:00":       NewDay(2022, time.March, 12),
		"2022-03-12T23:30:00+02:00": NewDay(2022, time.March, 12),
		"2022-03-12T00:30:00-05:00": NewDay(2022, time.March, 12),
	}
	for in, want := range cases {
		got, err := ParseDay(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseDay("12/03/2022")
	assert.Error(t, err)
}

func TestDayArithmeticAcrossMonths(t *testing.T) {
	d := NewDay(2024, time.March, 1)
	assert.Equal(t, NewDay(2024, time.February, 29), d.AddDays(-1))
	assert.Equal(t, 31, NewDay(2024, time.April, 1).DaysSince(d))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.True(t, d.After(d.AddDays(-1)))
}

func TestPriceRecordJSON(t *testing.T) {
	payload := `{"date":"2022-03-12T00:00:00","price":14.79,"prevPrices":[{"detectionTimestamp":"2022-03-12T10:00:00Z","price":14.5}]}`

	var rec PriceRecord
	require.NoError(t, json.Unmarshal([]byte(payload), &rec))
	assert.Equal(t, NewDay(2022, time.March, 12), rec.Date)
	assert.True(t, rec.Price.Equal(decimal.RequireFromString("14.79")))
	require.Len(t, rec.PriorRevisions, 1)
	assert.True(t, rec.PriorRevisions[0].Price.Equal(decimal.RequireFromString("14.5")))

	out, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"date":"2022-03-12T00:00:00"`)
	assert.Contains(t, string(out), `"price":14.79`)
}

func TestDecimalEncodesAsNumberProcessWide(t *testing.T) {
	assert.True(t, decimal.MarshalJSONWithoutQuotes)

	out, err := json.Marshal(map[string]decimal.Decimal{"price": decimal.RequireFromString("14.79")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price":14.79}`, string(out))

	var quoted PriceRecord
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2022-03-12T00:00:00","price":"14.79"}`), &quoted))
	assert.True(t, quoted.Price.Equal(decimal.RequireFromString("14.79")))
}

func TestPriceHistoryHelpers(t *testing.T) {
	h := PriceHistory{
		{Date: NewDay(2022, time.March, 12), Price: decimal.NewFromInt(3)},
		{Date: NewDay(2022, time.March, 10), Price: decimal.NewFromInt(1)},
		{Date: NewDay(2022, time.March, 11), Price: decimal.NewFromInt(2)},
	}

	sorted := h.Sorted()
	assert.Equal(t, NewDay(2022, time.March, 10), sorted[0].Date)
	assert.Equal(t, NewDay(2022, time.March, 12), sorted[2].Date)
	// original order untouched
	assert.Equal(t, NewDay(2022, time.March, 12), h[0].Date)

	latest := h.Latest(2)
	require.Len(t, latest, 2)
	assert.Equal(t, NewDay(2022, time.March, 11), latest[0].Date)
	assert.Len(t, h.Latest(10), 3)

	rec, ok := h.Find(NewDay(2022, time.March, 11))
	require.True(t, ok)
	assert.True(t, rec.Price.Equal(decimal.NewFromInt(2)))

	_, ok = h.Find(NewDay(2022, time.March, 13))
	assert.False(t, ok)

	between := h.Between(NewDay(2022, time.March, 11), NewDay(2022, time.March, 12))
	assert.Len(t, between, 2)

	for _, r := range h.Normalized() {
		assert.NotNil(t, r.PriorRevisions)
	}
}
