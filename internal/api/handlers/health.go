package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/localbeat/server/internal/config"
)

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthChecker reports configuration health. The server has no database or
// queue; the checks here catch the misconfigurations operators actually hit.
type HealthChecker struct {
	cfg       config.Config
	version   string
	gitCommit string
}

// NewHealthChecker creates a health checker over the loaded configuration.
func NewHealthChecker(cfg config.Config, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		cfg:       cfg,
		version:   version,
		gitCommit: gitCommit,
	}
}

// Health returns the health check handler.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]CheckResult)
		checks["provider_config"] = h.checkProviderConfig()
		checks["geocoder_config"] = h.checkGeocoderConfig()

		overallStatus := "healthy"
		for _, check := range checks {
			if check.Status == "warn" {
				overallStatus = "degraded"
			}
		}

		response := HealthCheck{
			Status:    overallStatus,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// checkProviderConfig verifies the provider API key is present. A missing
// key is degraded, not unhealthy: the server still serves, searches fail
// with an auth error.
func (h *HealthChecker) checkProviderConfig() CheckResult {
	if h.cfg.Provider.APIKey == "" {
		return CheckResult{
			Status:  "warn",
			Message: "TICKETMASTER_API_KEY is not set; searches will fail with an auth error",
		}
	}
	return CheckResult{
		Status:  "pass",
		Message: "provider API key configured",
	}
}

// checkGeocoderConfig verifies the Nominatim contact email is set (OSM usage
// policy asks for one).
func (h *HealthChecker) checkGeocoderConfig() CheckResult {
	if h.cfg.Geocoder.Email == "" {
		return CheckResult{
			Status:  "warn",
			Message: "NOMINATIM_EMAIL is not set; map-center geocoding may be throttled",
		}
	}
	return CheckResult{
		Status:  "pass",
		Message: "geocoder contact email configured",
	}
}

// Healthz returns a lightweight liveness response
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, "ok")
	})
}

// Readyz returns a readiness response
func Readyz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondHealth(w, http.StatusOK, "ready")
	})
}

type healthResponse struct {
	Status string `json:"status"`
}

func respondHealth(w http.ResponseWriter, status int, value string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(healthResponse{Status: value})
}
