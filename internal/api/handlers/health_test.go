package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localbeat/server/internal/config"
)

func TestHealthz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	Healthz().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReadyz(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	Readyz().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHealth_AllConfigured(t *testing.T) {
	cfg := config.Config{
		Provider: config.ProviderConfig{APIKey: "key"},
		Geocoder: config.GeocoderConfig{Email: "ops@example.com"},
	}
	checker := NewHealthChecker(cfg, "1.2.3", "abc1234")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	checker.Health().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthCheck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "1.2.3", body.Version)
	assert.Equal(t, "pass", body.Checks["provider_config"].Status)
	assert.Equal(t, "pass", body.Checks["geocoder_config"].Status)
}

func TestHealth_MissingAPIKeyIsDegraded(t *testing.T) {
	cfg := config.Config{
		Geocoder: config.GeocoderConfig{Email: "ops@example.com"},
	}
	checker := NewHealthChecker(cfg, "1.2.3", "abc1234")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	checker.Health().ServeHTTP(rec, req)

	// degraded, not down: the process still serves
	require.Equal(t, http.StatusOK, rec.Code)

	var body HealthCheck
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "warn", body.Checks["provider_config"].Status)
	assert.Contains(t, body.Checks["provider_config"].Message, "TICKETMASTER_API_KEY")
}
