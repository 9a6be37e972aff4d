package metrics

import (
	"strconv"

	"github.com/jmail/domaincheck/internal/observability"
)

const (
	ErrorsTotalName      = "errors_total"
	PanicsTotalName      = "panics_total"
	ErrorsByEndpointName = "errors_by_endpoint"
)

func count(name string, labels map[string]string) {
	if observability.TelemetrySystem == nil {
		return
	}
	_ = observability.TelemetrySystem.Counter(name, 1, labels)
}

// RecordError counts an error response by envelope code and HTTP status.
func RecordError(errorCode string, httpStatus int) {
	count(ErrorsTotalName, map[string]string{
		"error_code":  errorCode,
		"http_status": strconv.Itoa(httpStatus),
	})
}

// RecordPanic counts a recovered panic in the HTTP stack.
func RecordPanic() {
	count(PanicsTotalName, nil)
}

// RecordErrorByEndpoint counts an error response by request path.
func RecordErrorByEndpoint(endpoint string, errorCode string) {
	count(ErrorsByEndpointName, map[string]string{
		"endpoint":   endpoint,
		"error_code": errorCode,
	})
}
