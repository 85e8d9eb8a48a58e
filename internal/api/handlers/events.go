package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/localbeat/server/internal/api/problem"
	"github.com/localbeat/server/internal/events"
	"github.com/localbeat/server/internal/geocoding"
)

// Default search scope when the dashboard omits the parameters.
const (
	defaultRadius = 5
	defaultUnit   = "miles"
)

// Searcher runs one search through the event query pipeline.
type Searcher interface {
	Fetch(ctx context.Context, params events.SearchParams) ([]events.EventRecord, error)
}

// CenterResolver resolves a postal code to map-center coordinates.
type CenterResolver interface {
	Geocode(ctx context.Context, postalCode string) (*geocoding.Coordinates, error)
}

// EventsHandler serves the dashboard search endpoint.
type EventsHandler struct {
	Pipeline Searcher
	Geocoder CenterResolver
	Env      string
}

func NewEventsHandler(pipeline Searcher, geocoder CenterResolver, env string) *EventsHandler {
	return &EventsHandler{Pipeline: pipeline, Geocoder: geocoder, Env: env}
}

type searchResponse struct {
	Month  string                 `json:"month"`
	Count  int                    `json:"count"`
	Center *geocoding.Coordinates `json:"center,omitempty"`
	Items  []events.EventRecord   `json:"items"`
}

// Search handles GET /api/v1/events.
//
// Query parameters: postalCode (required), radius (optional, default 5),
// unit (optional, miles|km), month (optional YYYY-MM, default current month).
func (h *EventsHandler) Search(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Pipeline == nil {
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", nil, h.Env)
		return
	}

	params, err := parseSearchParams(r.URL.Query().Get("postalCode"), r.URL.Query().Get("radius"), r.URL.Query().Get("unit"), r.URL.Query().Get("month"))
	if err != nil {
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidationError, "Invalid request", err, h.Env)
		return
	}

	records, err := h.Pipeline.Fetch(r.Context(), params)
	if err != nil {
		h.writeSearchError(w, r, err)
		return
	}

	response := searchResponse{
		Month: monthLabel(params),
		Count: len(records),
		Items: records,
	}
	if response.Items == nil {
		response.Items = []events.EventRecord{}
	}

	// Map center is best effort; a geocoding failure never fails the search.
	if h.Geocoder != nil {
		center, err := h.Geocoder.Geocode(r.Context(), params.PostalCode)
		if err != nil {
			zerolog.Ctx(r.Context()).Debug().
				Err(err).
				Str("postal_code", params.PostalCode).
				Msg("map center unavailable")
		} else {
			response.Center = center
		}
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *EventsHandler) writeSearchError(w http.ResponseWriter, r *http.Request, err error) {
	var invalidErr events.InvalidParametersError
	var authErr events.AuthError
	var malformedErr events.MalformedResponseError
	var providerErr events.ProviderError

	switch {
	case errors.As(err, &invalidErr):
		problem.Write(w, r, http.StatusBadRequest, problem.TypeValidationError, "Invalid request", err, h.Env)
	case errors.As(err, &authErr):
		problem.Write(w, r, http.StatusBadGateway, problem.TypeProviderAuth, "Provider authentication failed", err, h.Env,
			problem.WithDetail("The events provider rejected the configured API key. Check your API key."))
	case errors.As(err, &malformedErr):
		problem.Write(w, r, http.StatusBadGateway, problem.TypeProviderMalformed, "Provider returned an unreadable response", err, h.Env)
	case errors.As(err, &providerErr):
		problem.Write(w, r, http.StatusBadGateway, problem.TypeProviderError, "Provider request failed", err, h.Env)
	default:
		problem.Write(w, r, http.StatusInternalServerError, problem.TypeServerError, "Server error", err, h.Env)
	}
}

func parseSearchParams(postalCode, radiusRaw, unit, month string) (events.SearchParams, error) {
	params := events.SearchParams{
		PostalCode: strings.TrimSpace(postalCode),
		Radius:     defaultRadius,
		Unit:       defaultUnit,
	}

	if radiusRaw = strings.TrimSpace(radiusRaw); radiusRaw != "" {
		radius, err := strconv.Atoi(radiusRaw)
		if err != nil {
			return params, events.InvalidParametersError{Field: "radius", Message: "must be a number"}
		}
		params.Radius = radius
	}

	if unit = strings.TrimSpace(unit); unit != "" {
		params.Unit = unit
	}

	if month = strings.TrimSpace(month); month != "" {
		year, m, err := events.ParseMonth(month)
		if err != nil {
			return params, err
		}
		params.Year = year
		params.Month = m
	} else {
		now := time.Now().UTC()
		params.Year = now.Year()
		params.Month = now.Month()
	}

	return params, nil
}

func monthLabel(params events.SearchParams) string {
	return time.Date(params.Year, params.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
