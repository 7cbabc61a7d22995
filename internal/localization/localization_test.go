package localization

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/andygrunwald/fuelprices/internal/models"
)

func record(day int, price string) models.PriceRecord {
	return models.PriceRecord{
		Date:  models.NewDay(2022, time.March, day),
		Price: decimal.RequireFromString(price),
	}
}

func ptr(r models.PriceRecord) *models.PriceRecord { return &r }

func TestParseLanguage(t *testing.T) {
	assert.Equal(t, LanguageDanish, ParseLanguage("da"))
	assert.Equal(t, LanguageDanish, ParseLanguage(" DA "))
	assert.Equal(t, LanguageEnglish, ParseLanguage("en"))
	assert.Equal(t, LanguageEnglish, ParseLanguage(""))
	assert.Equal(t, LanguageEnglish, ParseLanguage("de"))
}

func TestTextEnglish(t *testing.T) {
	cases := map[string]struct {
		prices models.DayPrices
		ft     models.FuelType
		want   string
	}{
		"today only": {
			prices: models.DayPrices{Today: record(12, "14.79")},
			ft:     models.FuelTypeUnleaded95,
			want:   "Today, the price of Unleaded octane 95 is 14.79 kroner.",
		},
		"yesterday same": {
			prices: models.DayPrices{Today: record(12, "14.79"), Yesterday: ptr(record(11, "14.79"))},
			ft:     models.FuelTypeUnleaded95,
			want:   "Today, the price of Unleaded octane 95 is 14.79 kroner. Yesterday the price was the same: 14.79 kroner.",
		},
		"yesterday lower": {
			prices: models.DayPrices{Today: record(12, "14.79"), Yesterday: ptr(record(11, "9"))},
			ft:     models.FuelTypeUnleaded95,
			want:   "Today, the price of Unleaded octane 95 is 14.79 kroner. Yesterday the price was lower: 9.00 kroner.",
		},
		"tomorrow higher": {
			prices: models.DayPrices{Today: record(12, "13.1"), Tomorrow: ptr(record(13, "13.25"))},
			ft:     models.FuelTypeDiesel,
			want:   "Today, the price of Diesel is 13.10 kroner. Tomorrow the price will be higher: 13.25 kroner.",
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, Text(tc.prices, tc.ft, LanguageEnglish))
		})
	}
}

func TestTextDanish(t *testing.T) {
	prices := models.DayPrices{
		Today:     record(12, "14.79"),
		Yesterday: ptr(record(11, "15.05")),
		Tomorrow:  ptr(record(13, "14.79")),
	}
	assert.Equal(t,
		"Blyfri oktan 95 koster 14 kroner og 79 ører i dag. "+
			"I går var prisen højere: 15 kroner og 5 ører. "+
			"I morgen vil prisen være den samme: 14 kroner og 79 ører.",
		Text(prices, models.FuelTypeUnleaded95, LanguageDanish))

	assert.Equal(t,
		"Oktan 100 koster 16 kroner og 0 ører i dag. I går var prisen lavere: 15 kroner og 99 ører.",
		Text(models.DayPrices{Today: record(12, "16"), Yesterday: ptr(record(11, "15.99"))}, models.FuelTypeOctane100, LanguageDanish))
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "No prices were found for that date", ErrorText(LanguageEnglish))
	assert.Equal(t, "Der blev ikke fundet nogen priser for den dato", ErrorText(LanguageDanish))
	assert.NotEqual(t, InternalErrorText(LanguageEnglish), InternalErrorText(LanguageDanish))
}
