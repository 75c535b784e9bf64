package observability

import (
	"net/http"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (gateway down) or spikes.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency. Watch for: p95/p99 increases tracking upstream latency.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation.
	HTTPRequestsInFlight prometheus.Gauge

	// GraphQL operations executed, by outcome (ok, error). Errors include partial results.
	GraphQLOperationsTotal *prometheus.CounterVec

	// Upstream METAR API calls by status label (success, client_error, server_error, error).
	UpstreamCallsTotal *prometheus.CounterVec

	// Upstream METAR API latency. Watch for: p95 > 2s (upstream degradation).
	UpstreamDuration *prometheus.HistogramVec

	// Upstream failures by error category (see client.CategorizeError).
	UpstreamErrorsTotal *prometheus.CounterVec

	// Response cache lookups by result (hit, miss, error).
	CacheLookupsTotal *prometheus.CounterVec

	// Response cache writes by result (stored, skipped, error).
	CacheWritesTotal *prometheus.CounterVec

	// Total getMetar lookups.
	MetarQueriesTotal prometheus.Counter

	// Per-station lookups (allow-list; others use station=other).
	MetarQueriesByStationTotal *prometheus.CounterVec

	trackedStationsMu sync.RWMutex
	trackedStations   map[string]struct{}
)

func init() {
	registry = prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	GraphQLOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphqlOperationsTotal",
			Help: "Total number of executed GraphQL operations by outcome",
		},
		[]string{"outcome"},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of METAR upstream API calls",
		},
		[]string{"status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "METAR upstream API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "METAR upstream failures by error category",
		},
		[]string{"category"},
	)
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheLookupsTotal",
			Help: "Response cache lookups by result",
		},
		[]string{"result"},
	)
	CacheWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheWritesTotal",
			Help: "Response cache writes by result",
		},
		[]string{"result"},
	)
	MetarQueriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metarQueriesTotal",
			Help: "Total number of getMetar lookups",
		},
	)
	MetarQueriesByStationTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metarQueriesByStationTotal",
			Help: "getMetar lookups by station (allow-list; others use station=other)",
		},
		[]string{"station"},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		GraphQLOperationsTotal,
		UpstreamCallsTotal, UpstreamDuration, UpstreamErrorsTotal,
		CacheLookupsTotal, CacheWritesTotal,
		MetarQueriesTotal, MetarQueriesByStationTotal,
	)
}

// SetTrackedStations sets the allow-list for station metrics. Untracked stations increment "other".
func SetTrackedStations(stations []string) {
	trackedStationsMu.Lock()
	defer trackedStationsMu.Unlock()
	trackedStations = make(map[string]struct{}, len(stations))
	for _, s := range stations {
		trackedStations[normalizeStationForMetrics(s)] = struct{}{}
	}
}

// RecordMetarQuery records a getMetar lookup for the given station.
func RecordMetarQuery(station string) {
	MetarQueriesTotal.Inc()
	MetarQueriesByStationTotal.WithLabelValues(StationLabel(station)).Inc()
}

// StationLabel returns the metric label for station: its normalized form when
// tracked, "other" otherwise. Keeps label cardinality bounded.
func StationLabel(station string) string {
	s := normalizeStationForMetrics(station)
	trackedStationsMu.RLock()
	_, ok := trackedStations[s]
	trackedStationsMu.RUnlock()
	if ok {
		return s
	}
	return "other"
}

func normalizeStationForMetrics(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
