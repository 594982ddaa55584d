// Package metrics registers the Prometheus collectors reelmatch exports on
// /metrics and the helpers components use to record into them.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"reelmatch/internal/services"
)

var (
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmatch_recommendations_total",
			Help: "Recommendation requests by outcome",
		},
		[]string{"outcome"}, // "ok", "not_found", "unavailable", "internal"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reelmatch_recommendation_duration_seconds",
			Help:    "Time to rank and resolve posters for one recommendation request",
			Buckets: prometheus.DefBuckets,
		},
	)

	PosterLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmatch_poster_lookups_total",
			Help: "Poster URL resolutions by source",
		},
		[]string{"source"}, // "cache", "tmdb", "placeholder"
	)

	TMDBRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelmatch_tmdb_request_duration_seconds",
			Help:    "Latency of TMDB API calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	TMDBCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reelmatch_tmdb_circuit_state",
			Help: "TMDB circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	SimilarityLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelmatch_similarity_load_duration_seconds",
			Help:    "Time to make the similarity matrix available, by source",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"source"}, // "disk", "download"
	)

	SimilarityLoadErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reelmatch_similarity_load_errors_total",
			Help: "Failed similarity matrix loads",
		},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reelmatch_api_requests_total",
			Help: "HTTP API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reelmatch_api_request_duration_seconds",
			Help:    "HTTP API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordRecommendation records one recommendation request.
func RecordRecommendation(duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = services.Kind(err)
	}
	RecommendationsTotal.WithLabelValues(outcome).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordPosterLookup counts where a poster URL came from.
func RecordPosterLookup(source string) {
	PosterLookups.WithLabelValues(source).Inc()
}

// RecordTMDBRequest records a TMDB call. A status of zero means the request
// never produced a response.
func RecordTMDBRequest(status int, duration time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	TMDBRequestDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordSimilarityLoad records a matrix load from disk or download.
func RecordSimilarityLoad(source string, duration time.Duration, err error) {
	if err != nil {
		SimilarityLoadErrors.Inc()
		return
	}
	SimilarityLoadDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordAPIRequest records an HTTP API request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
