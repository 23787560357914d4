// Package metrics exposes the Prometheus collectors for the coffeeshop
// service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coffeeshop",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coffeeshop",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coffeeshop",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	coffeesMinted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coffeeshop",
			Subsystem: "shop",
			Name:      "coffees_minted_total",
			Help:      "Total number of coffees minted.",
		},
	)

	coffeesTransferred = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coffeeshop",
			Subsystem: "shop",
			Name:      "coffees_transferred_total",
			Help:      "Total number of coffee ownership transfers.",
		},
	)

	coffeesBurned = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coffeeshop",
			Subsystem: "shop",
			Name:      "coffees_burned_total",
			Help:      "Total number of coffees destroyed.",
		},
	)

	issuanceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coffeeshop",
			Subsystem: "shop",
			Name:      "issuance_failures_total",
			Help:      "Total number of rejected issuance requests.",
		},
		[]string{"reason"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		coffeesMinted,
		coffeesTransferred,
		coffeesBurned,
		issuanceFailures,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordMinted records newly minted coffees.
func RecordMinted(count int) {
	coffeesMinted.Add(float64(count))
}

// RecordTransferred records a completed ownership transfer.
func RecordTransferred() {
	coffeesTransferred.Inc()
}

// RecordBurned records destroyed coffees.
func RecordBurned(count int) {
	coffeesBurned.Add(float64(count))
}

// RecordIssuanceFailure records a rejected issuance request.
func RecordIssuanceFailure(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	issuanceFailures.WithLabelValues(reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses identifier segments so label cardinality stays
// bounded.
func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if parts[0] != "v1" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/v1"
	}
	switch parts[1] {
	case "catalog":
		if len(parts) >= 3 {
			return "/v1/catalog/" + parts[2]
		}
		return "/v1/catalog"
	case "menu":
		return "/v1/menu/:base"
	case "roles":
		if len(parts) >= 3 {
			return "/v1/roles/" + parts[2]
		}
		return "/v1/roles"
	case "coffees":
		if len(parts) >= 3 && parts[2] == "burn" {
			return "/v1/coffees/burn"
		}
		if len(parts) >= 3 {
			return "/v1/coffees/:id"
		}
		return "/v1/coffees"
	case "accounts":
		return "/v1/accounts/:account/coffees"
	default:
		return "/v1/" + parts[1]
	}
}
