// Package metrics provides Prometheus instrumentation for the simulation
// service.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RunsStarted counts runs created, partitioned by difficulty mode.
	RunsStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsim_runs_started_total",
		Help: "Total number of runs started",
	}, []string{"mode"})

	// MonthsAdvanced counts month transitions by trigger (api, autopilot, cli).
	MonthsAdvanced = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsim_months_advanced_total",
		Help: "Total number of months advanced",
	}, []string{"trigger"})

	AdvanceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "finsim_advance_latency_seconds",
		Help:    "Time to advance a run by one month, including persistence",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5},
	})

	// SkippedDecisions counts decision items ignored because they referenced
	// something that did not exist.
	SkippedDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsim_skipped_decisions_total",
		Help: "Decision items skipped as invalid",
	}, []string{"actor"})

	// ActiveRuns tracks runs that have not reached their horizon.
	ActiveRuns = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "finsim_active_runs",
		Help: "Number of runs still in progress",
	})

	// WebSocketClients tracks connected month-feed clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "finsim_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "finsim_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "finsim_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Route pattern keeps run IDs out of the label set.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Hijack supports websocket upgrades through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Flush supports streaming responses through the middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
