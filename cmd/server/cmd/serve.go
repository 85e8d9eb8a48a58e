package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/localbeat/server/internal/api"
	"github.com/localbeat/server/internal/config"
	"github.com/localbeat/server/internal/events"
	"github.com/localbeat/server/internal/geocoding"
	"github.com/localbeat/server/internal/geocoding/nominatim"
	"github.com/localbeat/server/internal/metrics"
	"github.com/localbeat/server/internal/telemetry"
	"github.com/localbeat/server/internal/ticketmaster"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the LocalBeat HTTP server",
	Long: `Start the LocalBeat HTTP server and begin accepting dashboard requests.

The server will:
- Load configuration from environment variables (and a .env file if present)
- Serve event searches on /api/v1/events
- Expose Prometheus metrics on /metrics
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Msg("starting LocalBeat server")

	metrics.Init(Version, GitCommit, BuildDate)
	logger.Info().Str("version", Version).Msg("metrics initialized")

	tracingCtx, tracingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	shutdownTracing, err := telemetry.InitTracing(tracingCtx, cfg.Tracing, Version)
	tracingCancel()
	if err != nil {
		logger.Error().Err(err).Msg("failed to initialize tracing")
	} else {
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer stopCancel()
			if err := shutdownTracing(stopCtx); err != nil {
				logger.Error().Err(err).Msg("tracing shutdown error")
			}
		}()
	}

	pipeline, geocoder := buildServices(cfg, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(cfg, logger, pipeline, geocoder, Version, GitCommit),
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second, // a full 5-page provider fetch can be slow
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

// buildServices constructs the pipeline and geocoder from configuration.
func buildServices(cfg config.Config, logger zerolog.Logger) (*events.Pipeline, *geocoding.Service) {
	providerClient := ticketmaster.NewClient(
		cfg.Provider.BaseURL,
		cfg.Provider.APIKey,
		ticketmaster.WithRateLimit(cfg.Provider.RateLimit),
		ticketmaster.WithTimeout(cfg.Provider.Timeout),
	)
	pipeline := events.NewPipeline(
		providerClient,
		logger,
		events.WithPageSize(cfg.Provider.PageSize),
		events.WithMaxPages(cfg.Provider.MaxPages),
	)

	nominatimClient := nominatim.NewClient(
		cfg.Geocoder.BaseURL,
		cfg.Geocoder.Email,
		nominatim.WithRateLimit(cfg.Geocoder.RateLimit),
	)
	geocoder := geocoding.NewService(nominatimClient, logger)

	return pipeline, geocoder
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}

	return cfg, nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
