package errors

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/observability"
	"github.com/jmail/domaincheck/internal/server/middleware"
)

// APIError is the flat body the verification and OAuth endpoints return:
// {"error": "...", "details": "..."}.
type APIError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// RespondWithAPIError writes an APIError with status. cause is logged and
// counted; it reaches the body only through details.
func RespondWithAPIError(w http.ResponseWriter, r *http.Request, status int, message, details string, cause error) {
	if w == nil {
		return
	}

	code := codeForStatus(status)
	if logger := observability.ServerLogger; logger != nil {
		fields := []zap.Field{
			zap.String("error_code", code),
			zap.Int("http_status", status),
		}
		if r != nil {
			fields = append(fields,
				zap.String("path", r.URL.Path),
				zap.String("request_id", middleware.GetRequestID(r.Context())))
		}
		if cause != nil {
			fields = append(fields, zap.Error(cause))
		}
		if status >= http.StatusInternalServerError {
			logger.Error(message, fields...)
		} else {
			logger.Info(message, fields...)
		}
	}
	emitErrorMetrics(r, code, status)

	writeJSON(w, status, APIError{Error: message, Details: details})
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return CodeInvalidInput
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusServiceUnavailable:
		return CodeServiceUnavailable
	default:
		return CodeInternal
	}
}
