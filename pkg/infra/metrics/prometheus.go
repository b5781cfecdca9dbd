package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	OsuApiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "osu_api_requests_total",
			Help: "Total number of osu! api requests",
		},
		[]string{"endpoint", "outcome"},
	)

	OsuApiRatelimitWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "osu_api_ratelimit_wait_seconds",
			Help:    "Time spent waiting out the api ratelimit window",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60},
		},
	)

	ReplayCacheHitTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_cache_hit_total",
			Help: "Total replay cache hits",
		},
	)

	ReplayCacheMissTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "replay_cache_miss_total",
			Help: "Total replay cache misses",
		},
	)

	ReplayLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replay_loads_total",
			Help: "Total replays loaded, by source",
		},
		[]string{"source"},
	)

	AnalysisDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "analysis_duration_seconds",
			Help:    "Analysis method duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method"},
	)
)

// Handler returns the prometheus scrape endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// statusRecorder captures the response status for the request metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware instruments an HTTP handler with request count, duration and
// in-flight metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(recorder.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
