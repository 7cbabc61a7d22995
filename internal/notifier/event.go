package notifier

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/andygrunwald/fuelprices/internal/models"
)

// windowJSON accepts a window as a plain array or in the provider shape
// {"historik": [{"dato": ..., "pris": ...}]}.
type windowJSON models.PriceHistory

func (w *windowJSON) UnmarshalJSON(b []byte) error {
	var list models.PriceHistory
	if err := json.Unmarshal(b, &list); err == nil {
		*w = windowJSON(list)
		return nil
	}
	var wrapped struct {
		History []struct {
			Date  models.Day      `json:"dato"`
			Price decimal.Decimal `json:"pris"`
		} `json:"historik"`
	}
	if err := json.Unmarshal(b, &wrapped); err != nil {
		return err
	}
	list = make(models.PriceHistory, 0, len(wrapped.History))
	for _, v := range wrapped.History {
		list = append(list, models.PriceRecord{Date: v.Date, Price: v.Price, PriorRevisions: []models.Revision{}})
	}
	*w = windowJSON(list)
	return nil
}

// DecodeChangeEvent decodes a change event body.
func DecodeChangeEvent(r io.Reader) (models.ChangeEvent, error) {
	var body struct {
		FuelType         string     `json:"fuelType"`
		RecentPrices     windowJSON `json:"recentPrices"`
		PrevRecentPrices windowJSON `json:"prevRecentPrices"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return models.ChangeEvent{}, fmt.Errorf("decoding change event: %w", err)
	}
	ft, ok := models.ParseFuelType(body.FuelType)
	if !ok {
		return models.ChangeEvent{}, fmt.Errorf("unknown fuel type %q", body.FuelType)
	}
	return models.ChangeEvent{
		FuelType:         ft,
		RecentPrices:     models.PriceHistory(body.RecentPrices),
		PrevRecentPrices: models.PriceHistory(body.PrevRecentPrices),
	}, nil
}
