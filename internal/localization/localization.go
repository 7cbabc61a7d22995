// Package localization renders lookup results as Danish or English text.
package localization

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/andygrunwald/fuelprices/internal/models"
)

// Language is a supported response language.
type Language string

const (
	// LanguageDanish is Danish.
	LanguageDanish Language = "da"
	// LanguageEnglish is English, the default.
	LanguageEnglish Language = "en"
)

// ParseLanguage returns the language for s, falling back to English.
func ParseLanguage(s string) Language {
	if strings.EqualFold(strings.TrimSpace(s), string(LanguageDanish)) {
		return LanguageDanish
	}
	return LanguageEnglish
}

// ErrorText is the message returned when no price exists for a date.
func ErrorText(lang Language) string {
	if lang == LanguageDanish {
		return "Der blev ikke fundet nogen priser for den dato"
	}
	return "No prices were found for that date"
}

// InternalErrorText is the message returned on unexpected failures.
func InternalErrorText(lang Language) string {
	if lang == LanguageDanish {
		return "Der skete en fejl under hentning af priserne"
	}
	return "Something went wrong while getting the prices"
}

// Text describes today's price and how yesterday and tomorrow compare to it.
func Text(prices models.DayPrices, fuelType models.FuelType, lang Language) string {
	if lang == LanguageDanish {
		return textDanish(prices, fuelType)
	}
	return textEnglish(prices, fuelType)
}

func textEnglish(prices models.DayPrices, fuelType models.FuelType) string {
	today := prices.Today.Price
	text := fmt.Sprintf("Today, the price of %s is %s kroner.", FuelTypeName(fuelType, LanguageEnglish), today.StringFixed(2))
	if prices.Yesterday != nil {
		text = fmt.Sprintf("%s Yesterday the price was %s: %s kroner.", text,
			diff(today, prices.Yesterday.Price, LanguageEnglish), prices.Yesterday.Price.StringFixed(2))
	}
	if prices.Tomorrow != nil {
		text = fmt.Sprintf("%s Tomorrow the price will be %s: %s kroner.", text,
			diff(today, prices.Tomorrow.Price, LanguageEnglish), prices.Tomorrow.Price.StringFixed(2))
	}
	return text
}

func textDanish(prices models.DayPrices, fuelType models.FuelType) string {
	today := prices.Today.Price
	kroner, orer := kronerAndOrer(today)
	text := fmt.Sprintf("%s koster %s kroner og %s ører i dag.", FuelTypeName(fuelType, LanguageDanish), kroner, orer)
	if prices.Yesterday != nil {
		kroner, orer := kronerAndOrer(prices.Yesterday.Price)
		text = fmt.Sprintf("%s I går var prisen %s: %s kroner og %s ører.", text,
			diff(today, prices.Yesterday.Price, LanguageDanish), kroner, orer)
	}
	if prices.Tomorrow != nil {
		kroner, orer := kronerAndOrer(prices.Tomorrow.Price)
		text = fmt.Sprintf("%s I morgen vil prisen være %s: %s kroner og %s ører.", text,
			diff(today, prices.Tomorrow.Price, LanguageDanish), kroner, orer)
	}
	return text
}

// diff compares other to today.
func diff(today, other decimal.Decimal, lang Language) string {
	switch other.Cmp(today) {
	case 1:
		if lang == LanguageDanish {
			return "højere"
		}
		return "higher"
	case -1:
		if lang == LanguageDanish {
			return "lavere"
		}
		return "lower"
	default:
		if lang == LanguageDanish {
			return "den samme"
		}
		return "the same"
	}
}

// kronerAndOrer splits a price into whole kroner and ører, rounded to
// two decimals. 14.05 becomes "14" and "5".
func kronerAndOrer(price decimal.Decimal) (string, string) {
	fixed := price.StringFixed(2)
	kroner, orer, _ := strings.Cut(fixed, ".")
	orer = strings.TrimPrefix(orer, "0")
	if orer == "" {
		orer = "0"
	}
	return kroner, orer
}

// FuelTypeName returns the display name of a fuel type.
func FuelTypeName(fuelType models.FuelType, lang Language) string {
	switch fuelType {
	case models.FuelTypeOctane100:
		if lang == LanguageDanish {
			return "Oktan 100"
		}
		return "Octane 100"
	case models.FuelTypeDiesel:
		return "Diesel"
	default:
		if lang == LanguageDanish {
			return "Blyfri oktan 95"
		}
		return "Unleaded octane 95"
	}
}
