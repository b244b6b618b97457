package telemetry

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)
	httpDur = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	Assessments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "licadvisor_assessments_total",
			Help: "Assessments served, by outcome",
		},
		[]string{"outcome"},
	)
	MatchedRules = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "licadvisor_matched_rules",
		Help:    "Number of rules returned per assessment",
		Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
	})
	CatalogRules = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "licadvisor_catalog_rules",
		Help: "Number of rules in the active catalog snapshot",
	})
	CatalogReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "licadvisor_catalog_reloads_total",
			Help: "Catalog reload attempts, by result",
		},
		[]string{"result"},
	)
)

// Collectors lists every metric this package owns.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{httpReqs, httpDur, Assessments, MatchedRules, CatalogRules, CatalogReloads}
}

// Init registers all collectors with the default registry.
func Init() {
	prometheus.MustRegister(Collectors()...)
}

func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(ww, r)

		// chi fills the route pattern while routing, so read it afterwards
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}

		httpReqs.WithLabelValues(route, r.Method, http.StatusText(ww.status)).Inc()
		httpDur.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
