package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/observability"
)

// statusRecorder captures the status code and body size a handler produced.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	n, err := sr.ResponseWriter.Write(b)
	sr.bytes += int64(n)
	return n, err
}

// knownEndpoints are labelled by path when chi has no route pattern, e.g.
// for 404 and 405 responses produced before routing completed.
var knownEndpoints = map[string]string{
	"/":                  "/",
	"/version":           "/version",
	"/metrics":           "/metrics",
	"/api/check-domain":  "/api/check-domain",
	"/api/auth":          "/api/auth",
	"/api/auth/callback": "/api/auth/callback",
	"/admin/signal":      "/admin/signal",
	"/health":            "/health/*",
	"/health/live":       "/health/*",
	"/health/ready":      "/health/*",
	"/health/startup":    "/health/*",
}

// getEndpointPattern keeps raw paths out of metric labels.
func getEndpointPattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	if label, ok := knownEndpoints[r.URL.Path]; ok {
		return label
	}
	return "/unknown"
}

type requestSample struct {
	method       string
	endpoint     string
	status       int
	duration     time.Duration
	requestSize  int64
	responseSize int64
}

func (s requestSample) errorType() string {
	switch {
	case s.status >= 500:
		return "server_error"
	case s.status >= 400:
		return "client_error"
	default:
		return ""
	}
}

func (s requestSample) emit() {
	sys := observability.TelemetrySystem
	labels := map[string]string{
		"method":   s.method,
		"endpoint": s.endpoint,
		"status":   strconv.Itoa(s.status),
	}
	sizeLabels := map[string]string{
		"method":   s.method,
		"endpoint": s.endpoint,
	}

	_ = sys.Counter("http_requests_total", 1, labels)
	_ = sys.Histogram("http_request_duration_ms", s.duration, labels)
	_ = sys.Gauge("http_request_size_bytes", float64(s.requestSize), sizeLabels)
	_ = sys.Gauge("http_response_size_bytes", float64(s.responseSize), sizeLabels)

	if kind := s.errorType(); kind != "" {
		_ = sys.Counter("http_errors_total", 1, map[string]string{
			"method":     s.method,
			"endpoint":   s.endpoint,
			"status":     labels["status"],
			"error_type": kind,
		})
	}
}

// RequestMetrics emits per-request counters, durations and sizes and logs one
// line per completed request.
func RequestMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if observability.TelemetrySystem == nil {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		sample := requestSample{
			method:       r.Method,
			endpoint:     getEndpointPattern(r),
			status:       rec.status,
			duration:     time.Since(start),
			requestSize:  max(r.ContentLength, 0),
			responseSize: rec.bytes,
		}
		sample.emit()

		if observability.ServerLogger != nil {
			observability.ServerLogger.Info("HTTP request completed",
				zap.String("method", sample.method),
				zap.String("path", r.URL.Path),
				zap.String("endpoint", sample.endpoint),
				zap.Int("status", sample.status),
				zap.Duration("duration", sample.duration),
				zap.Int64("request_size", sample.requestSize),
				zap.Int64("response_size", sample.responseSize),
				zap.String("requestID", GetRequestID(r.Context())),
			)
		}
	})
}
