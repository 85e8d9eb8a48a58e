package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all LocalBeat metrics
const namespace = "localbeat"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo is a gauge that exposes application version information as labels
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// SearchesTotal counts pipeline searches by outcome
// (ok, invalid_params, auth_error, provider_error, malformed_response)
var SearchesTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "searches_total",
		Help:      "Total number of event searches by outcome",
	},
	[]string{"outcome"},
)

// SearchResults records the number of records returned per successful search
var SearchResults = promauto.With(Registry).NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_results",
		Help:      "Number of event records returned per successful search",
		Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
	},
)

// ProviderPagesTotal counts provider page requests by outcome
var ProviderPagesTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_pages_total",
		Help:      "Total number of provider page requests by outcome",
	},
	[]string{"outcome"},
)

// ProviderPageDuration records provider page request latency in seconds
var ProviderPageDuration = promauto.With(Registry).NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_page_duration_seconds",
		Help:      "Provider page request latency in seconds",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 15},
	},
)

// GeocodingRequestsTotal counts postal-code geocoding requests by source
// (memo for in-process hits, nominatim for upstream calls)
var GeocodingRequestsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocoding_requests_total",
		Help:      "Total number of geocoding requests",
	},
	[]string{"source"},
)

// GeocodingFailuresTotal counts geocoding failures by reason (error, not_found)
var GeocodingFailuresTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocoding_failures_total",
		Help:      "Total number of geocoding failures",
	},
	[]string{"reason"},
)

// GeocodingLatency records upstream Nominatim request latency in seconds
var GeocodingLatency = promauto.With(Registry).NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "geocoding_latency_seconds",
		Help:      "Nominatim request latency in seconds",
		Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
	},
)

// Init sets the application info gauge and registers Go runtime collectors.
// Call once at startup.
func Init(version, commit, buildDate string) {
	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)

	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}
