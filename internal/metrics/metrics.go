// Package metrics exposes the prometheus instrumentation for the ingestion
// pipeline and the HTTP surface.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EventsParsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigint_scan_events_parsed_total",
			Help: "Scan events successfully parsed, by source.",
		},
		[]string{"source"},
	)
	EventsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sigint_scan_events_skipped_total",
			Help: "Scanner output lines dropped during parsing, by source.",
		},
		[]string{"source"},
	)
	LogsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sigint_logs_recorded_total",
			Help: "Observations written to the log table.",
		},
	)
	DevicesCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sigint_devices_created_total",
			Help: "Devices created on first observation.",
		},
	)
	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total requests by endpoint, method, and status.",
		},
		[]string{"endpoint", "method", "status"},
	)
)

func init() {
	prometheus.MustRegister(EventsParsed, EventsSkipped, LogsRecorded, DevicesCreated, requestCounter)
}

func Handler() http.Handler { return promhttp.Handler() }

// RequestCounter counts every request by route, method and response status.
func RequestCounter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		requestCounter.WithLabelValues(r.URL.Path, r.Method, strconv.Itoa(rw.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
