package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Counter: finished translations by path and outcome.
	TranslationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translations_total",
			Help: "Total number of finished translation requests.",
		},
		[]string{"mode", "outcome"},
	)

	// Histogram: time from dispatch to terminal callback, in seconds.
	TranslationDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "translation_duration_seconds",
			Help:    "Translation latency from dispatch to completion in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"mode"},
	)

	TranslationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "translation_errors_total",
			Help: "Total number of translation errors reported to the host, by type.",
		},
		[]string{"type"},
	)

	StreamDeltasTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_deltas_total",
			Help: "Total number of streamed deltas delivered to the host.",
		},
	)

	ValidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "validations_total",
			Help: "Total number of credential validations by outcome.",
		},
		[]string{"outcome"},
	)

	// Histogram: HTTP latency of the host bridge in seconds.
	HTTPLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "HTTP request latency of the host bridge in seconds.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"route", "method", "status_code"},
	)
)

// Register is called once in main() to register metrics.
func Register() {
	prometheus.MustRegister(
		TranslationsTotal,
		TranslationDurationSeconds,
		TranslationErrorsTotal,
		StreamDeltasTotal,
		ValidationsTotal,
		HTTPLatencySeconds,
	)
}

// Handler exposes the /metrics endpoint for Prometheus to scrape.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Recorder feeds translator events into the package collectors.
type Recorder struct{}

func (Recorder) ObserveTranslation(mode, outcome string, d time.Duration) {
	TranslationsTotal.WithLabelValues(mode, outcome).Inc()
	TranslationDurationSeconds.WithLabelValues(mode).Observe(d.Seconds())
}

func (Recorder) ObserveError(errType string) {
	TranslationErrorsTotal.WithLabelValues(errType).Inc()
}

func (Recorder) ObserveDelta() {
	StreamDeltasTotal.Inc()
}

func (Recorder) ObserveValidation(outcome string) {
	ValidationsTotal.WithLabelValues(outcome).Inc()
}

// Middleware measures latency for each HTTP request, labelled by chi route
// pattern so path parameters do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rec := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		HTTPLatencySeconds.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.statusCode)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
