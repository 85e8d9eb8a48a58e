package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Provider    ProviderConfig
	Geocoder    GeocoderConfig
	CORS        CORSConfig
	Logging     LoggingConfig
	Tracing     TracingConfig
	Environment string
}

type ServerConfig struct {
	Host string
	Port int
}

// ProviderConfig configures the Ticketmaster Discovery client. APIKey may be
// empty at startup; the first search then fails with an auth error instead
// of the process refusing to boot.
type ProviderConfig struct {
	BaseURL   string
	APIKey    string
	PageSize  int
	MaxPages  int
	RateLimit float64
	Timeout   time.Duration
}

type GeocoderConfig struct {
	BaseURL   string
	Email     string
	RateLimit float64
}

type CORSConfig struct {
	AllowAllOrigins bool
	AllowedOrigins  []string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

func Load() (Config, error) {
	environment := getEnv("ENVIRONMENT", "development")

	cfg := Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Provider: ProviderConfig{
			BaseURL:   getEnv("TICKETMASTER_BASE_URL", "https://app.ticketmaster.com"),
			APIKey:    getEnv("TICKETMASTER_API_KEY", ""),
			PageSize:  getEnvInt("PROVIDER_PAGE_SIZE", 200),
			MaxPages:  getEnvInt("PROVIDER_MAX_PAGES", 5),
			RateLimit: getEnvFloat("PROVIDER_RATE_LIMIT", 5),
			Timeout:   time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 12)) * time.Second,
		},
		Geocoder: GeocoderConfig{
			BaseURL:   getEnv("NOMINATIM_BASE_URL", "https://nominatim.openstreetmap.org"),
			Email:     getEnv("NOMINATIM_EMAIL", ""),
			RateLimit: getEnvFloat("NOMINATIM_RATE_LIMIT", 1),
		},
		CORS: CORSConfig{
			AllowAllOrigins: environment != "production",
			AllowedOrigins:  splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			Exporter:     getEnv("TRACING_EXPORTER", "stdout"),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "localbeat"),
			OTLPEndpoint: getEnv("TRACING_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Environment: environment,
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
