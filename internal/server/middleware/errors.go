package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/errors"
	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/metrics"
	"github.com/jmail/domaincheck/internal/observability"
)

// Recovery turns a handler panic into a 500 error envelope.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			requestID := GetRequestID(r.Context())
			stack := string(debug.Stack())
			panicErr := errors.NewErrorEnvelope("INTERNAL_ERROR", fmt.Sprintf("panic: %v", rec)).
				WithCorrelationID(requestID)
			if withCtx, err := panicErr.WithContext(map[string]interface{}{"stack_trace": stack}); err == nil {
				panicErr = withCtx
			}
			if withSeverity, err := panicErr.WithSeverity(errors.SeverityCritical); err == nil {
				panicErr = withSeverity
			}

			metrics.RecordPanic()
			if logger := observability.ServerLogger; logger != nil {
				logger.Error("Recovered from handler panic",
					zap.String("path", r.URL.Path),
					zap.String("request_id", requestID),
					zap.Any("panic", rec),
					zap.String("stack_trace", stack))
			}

			writeErrorResponse(w, panicErr, http.StatusInternalServerError)
		}()

		next.ServeHTTP(w, r)
	})
}

// ErrorResponse structure per API standards
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// writeErrorResponse writes error response directly (avoid circular import)
func writeErrorResponse(w http.ResponseWriter, envelope *errors.ErrorEnvelope, statusCode int) {
	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      envelope.Code,
			Message:   envelope.Message,
			Details:   publicContext(envelope.Context),
			RequestID: envelope.CorrelationID,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

// publicContext drops the stack trace from the response body; it stays in
// the log entry.
func publicContext(ctx map[string]interface{}) map[string]interface{} {
	if len(ctx) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		if k == "stack_trace" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
