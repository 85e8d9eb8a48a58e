package geocoding

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/localbeat/server/internal/geocoding/nominatim"
	"github.com/localbeat/server/internal/metrics"
)

// CountryCode scopes postal-code lookups; the provider region is US postal
// codes.
const CountryCode = "us"

// ErrGeocodingFailed is returned when geocoding fails after all retries.
var ErrGeocodingFailed = errors.New("geocoding failed")

// ErrNoResults is returned when Nominatim returns no results for a postal code.
var ErrNoResults = errors.New("no geocoding results found")

// Coordinates is a resolved map-center location for a postal code.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Service resolves postal codes to coordinates via Nominatim. Results are
// memoized in-process for the life of the service; nothing is persisted.
type Service struct {
	client *nominatim.Client
	logger zerolog.Logger

	mu   sync.Mutex
	memo map[string]Coordinates
}

// NewService creates a new geocoding service.
func NewService(client *nominatim.Client, logger zerolog.Logger) *Service {
	return &Service{
		client: client,
		logger: logger.With().Str("component", "geocoding").Logger(),
		memo:   make(map[string]Coordinates),
	}
}

// Geocode resolves a postal code to coordinates.
func (s *Service) Geocode(ctx context.Context, postalCode string) (*Coordinates, error) {
	if postalCode == "" {
		return nil, fmt.Errorf("postal code cannot be empty")
	}

	s.mu.Lock()
	cached, ok := s.memo[postalCode]
	s.mu.Unlock()
	if ok {
		metrics.GeocodingRequestsTotal.WithLabelValues("memo").Inc()
		return &cached, nil
	}

	metrics.GeocodingRequestsTotal.WithLabelValues("nominatim").Inc()

	startTime := time.Now()
	results, err := s.client.SearchPostalCode(ctx, postalCode, CountryCode)
	metrics.GeocodingLatency.Observe(time.Since(startTime).Seconds())

	if err != nil {
		metrics.GeocodingFailuresTotal.WithLabelValues("error").Inc()
		s.logger.Warn().
			Err(err).
			Str("postal_code", postalCode).
			Dur("latency", time.Since(startTime)).
			Msg("nominatim search failed")
		return nil, fmt.Errorf("%w: %v", ErrGeocodingFailed, err)
	}

	if len(results) == 0 {
		metrics.GeocodingFailuresTotal.WithLabelValues("not_found").Inc()
		s.logger.Warn().
			Str("postal_code", postalCode).
			Msg("nominatim returned no results")
		return nil, fmt.Errorf("%w for postal code: %s", ErrNoResults, postalCode)
	}

	result := results[0]

	lat, err := strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude in nominatim result: %w", err)
	}
	lon, err := strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude in nominatim result: %w", err)
	}

	coords := Coordinates{Latitude: lat, Longitude: lon}
	s.mu.Lock()
	s.memo[postalCode] = coords
	s.mu.Unlock()

	s.logger.Debug().
		Str("postal_code", postalCode).
		Float64("lat", lat).
		Float64("lon", lon).
		Dur("latency", time.Since(startTime)).
		Msg("geocoding successful")

	return &coords, nil
}
