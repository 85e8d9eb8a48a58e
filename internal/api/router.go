package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/localbeat/server/internal/api/handlers"
	"github.com/localbeat/server/internal/api/middleware"
	"github.com/localbeat/server/internal/config"
	"github.com/localbeat/server/internal/metrics"
)

// NewRouter wires the HTTP surface: the search endpoint, health endpoints,
// and the Prometheus registry, wrapped in the middleware chain.
func NewRouter(cfg config.Config, logger zerolog.Logger, pipeline handlers.Searcher, geocoder handlers.CenterResolver, version, gitCommit string) http.Handler {
	eventsHandler := handlers.NewEventsHandler(pipeline, geocoder, cfg.Environment)
	healthChecker := handlers.NewHealthChecker(cfg, version, gitCommit)

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz())
	mux.Handle("/health", healthChecker.Health())
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet: http.HandlerFunc(eventsHandler.Search),
	}))

	var handler http.Handler = mux
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.CORS(cfg.CORS, logger)(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
