package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/andygrunwald/fuelprices/internal/localization"
	"github.com/andygrunwald/fuelprices/internal/lookup"
	"github.com/andygrunwald/fuelprices/internal/memo"
	"github.com/andygrunwald/fuelprices/internal/models"
	"github.com/andygrunwald/fuelprices/internal/notifier"
)

// defaultRangeDays is how far back /prices/all reaches without a from date.
const defaultRangeDays = 365

type pricesResponse struct {
	Message string              `json:"message"`
	Prices  []*models.DayPrices `json:"prices,omitempty"`
}

type lookupArguments struct {
	day      models.Day
	fuelType models.FuelType
	language localization.Language
	noCache  bool
}

func (s *Server) parseLookupArguments(r *http.Request) lookupArguments {
	q := r.URL.Query()
	return lookupArguments{
		day:      parseDay(firstOf(q.Get("now"), q.Get("date")), s.deps.Lookup.Today()),
		fuelType: parseFuelType(firstOf(q.Get("type"), q.Get("fueltype"), q.Get("fuelType"))),
		language: localization.ParseLanguage(firstOf(q.Get("lang"), q.Get("language"))),
		noCache:  parseBool(firstOf(q.Get("nocache"), q.Get("noCache"))),
	}
}

func (s *Server) handleGetPrices(w http.ResponseWriter, r *http.Request) {
	args := s.parseLookupArguments(r)
	key := memo.Key(args.day, args.fuelType, string(args.language))

	if !args.noCache && s.deps.Memo != nil {
		if entry, ok := s.deps.Memo.Get(r.Context(), key); ok {
			w.Header().Set("X-Cache", "hit")
			writeRaw(w, entry.Status, entry.Body)
			return
		}
	}
	w.Header().Set("X-Cache", "miss")

	prices, err := s.deps.Lookup.GetPrices(r.Context(), args.fuelType, args.day)
	if errors.Is(err, lookup.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, pricesResponse{Message: localization.ErrorText(args.language)})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).
			Str("fuel_type", string(args.fuelType)).
			Str("date", args.day.String()).
			Msg("failed to get prices")
		writeJSON(w, http.StatusInternalServerError, pricesResponse{Message: localization.InternalErrorText(args.language)})
		return
	}

	body, err := json.Marshal(pricesResponse{
		Message: localization.Text(*prices, args.fuelType, args.language),
		Prices:  []*models.DayPrices{prices},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to encode prices")
		writeJSON(w, http.StatusInternalServerError, pricesResponse{Message: localization.InternalErrorText(args.language)})
		return
	}

	if s.deps.Memo != nil {
		if err := s.deps.Memo.Set(r.Context(), key, memo.Entry{Status: http.StatusOK, Body: body}); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to memoize response")
		}
	}
	writeRaw(w, http.StatusOK, body)
}

func (s *Server) handleGetAllPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	today := s.deps.Lookup.Today()
	fuelType := parseFuelType(firstOf(q.Get("type"), q.Get("fueltype")))
	from := parseDay(q.Get("from"), today.AddDays(-defaultRangeDays))
	to := parseDay(q.Get("to"), today)

	history, err := s.deps.Lookup.Range(r.Context(), fuelType, from, to)
	if errors.Is(err, lookup.ErrNotFound) {
		writeJSON(w, http.StatusOK, models.PriceHistory{})
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Str("fuel_type", string(fuelType)).Msg("failed to get all prices")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not get prices"})
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !authorized(r, s.deps.Config.RefreshKey) {
		w.WriteHeader(http.StatusForbidden)
		return
	}

	mode := r.URL.Query().Get("mode")
	switch mode {
	case "", "reconcile":
		s.deps.Runner.Go("refresh_reconcile", s.deps.Reconciler.ReconcileAll)
	case "fetch":
		s.deps.Runner.Go("refresh_fetch", func(ctx context.Context) error {
			err := s.deps.Fetcher.FetchAll(ctx)
			return errors.Join(err, s.deps.Reconciler.ReconcileAll(ctx))
		})
	default:
		http.Error(w, "unknown mode", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handlePriceChange(w http.ResponseWriter, r *http.Request) {
	if !authorized(r, s.deps.Config.EventsKey) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	event, err := notifier.DecodeChangeEvent(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	sent, err := s.deps.Notifier.HandleChangeEvent(r.Context(), event)
	if err != nil {
		s.logger.Error().Err(err).Str("fuel_type", string(event.FuelType)).Msg("failed to handle change event")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not handle event"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"notificationsSent": sent})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// authorized compares the Authorization header with key in constant time.
// An empty key authorizes nobody.
func authorized(r *http.Request, key string) bool {
	if key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte(key)) == 1
}

func parseFuelType(s string) models.FuelType {
	if ft, ok := models.ParseFuelType(s); ok {
		return ft
	}
	return models.FuelTypeUnleaded95
}

func parseDay(s string, def models.Day) models.Day {
	if s == "" {
		return def
	}
	day, err := models.ParseDay(s)
	if err != nil {
		return def
	}
	return day
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
