package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type requestIDContextKey string

const RequestIDContextKey requestIDContextKey = "request_id"

// maxRequestIDLen bounds client-supplied IDs before they reach logs.
const maxRequestIDLen = 128

// RequestID tags each request with an ID, reusing chi's ID or a well-formed
// inbound X-Request-ID before minting a UUID, and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		if id == "" {
			id = inboundRequestID(r.Header.Get(RequestIDHeader))
		}
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), RequestIDContextKey, id)))
	})
}

// inboundRequestID returns raw if it is short printable ASCII, else "".
func inboundRequestID(raw string) string {
	if raw == "" || len(raw) > maxRequestIDLen {
		return ""
	}
	for i := 0; i < len(raw); i++ {
		if c := raw[i]; c < 0x21 || c > 0x7e {
			return ""
		}
	}
	return raw
}

// GetRequestID returns the ID set by RequestID, falling back to chi's.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDContextKey).(string); ok {
		return id
	}
	return middleware.GetReqID(ctx)
}
