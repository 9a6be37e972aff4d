package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmail/domaincheck/internal/server/middleware"
)

func requestWithID(id string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/check-domain", nil)
	ctx := context.WithValue(req.Context(), middleware.RequestIDContextKey, id)
	return req.WithContext(ctx)
}

func TestWrapUsesRequestID(t *testing.T) {
	req := requestWithID("req-123")
	env := WrapDatabaseError(req.Context(), stderrors.New("disk full"), "Failed to store token")

	assert.Equal(t, CodeDatabase, env.Code)
	assert.Equal(t, "req-123", env.CorrelationID)
	assert.Equal(t, "disk full", env.Context["wrapped_error"])
}

func TestEnsureEnvelope(t *testing.T) {
	env := EnsureEnvelope(stderrors.New("boom"))
	assert.Equal(t, CodeInternal, env.Code)
	assert.Equal(t, "boom", env.Context["wrapped_error"])

	original := NewNotFoundError("missing")
	assert.Same(t, original, EnsureEnvelope(original))

	assert.Equal(t, CodeInternal, EnsureEnvelope(nil).Code)
}

func TestHTTPStatusFromCode(t *testing.T) {
	tests := map[string]int{
		CodeInvalidInput:       http.StatusBadRequest,
		CodeNotFound:           http.StatusNotFound,
		CodeForbidden:          http.StatusForbidden,
		CodeMethodNotAllowed:   http.StatusMethodNotAllowed,
		CodeTimeout:            http.StatusGatewayTimeout,
		CodeExternalService:    http.StatusBadGateway,
		CodeServiceUnavailable: http.StatusServiceUnavailable,
		CodeDatabase:           http.StatusInternalServerError,
		"SOMETHING_ELSE":       http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, HTTPStatusFromCode(code), code)
	}
}

func TestRespondWithError(t *testing.T) {
	req := requestWithID("req-456")
	rec := httptest.NewRecorder()

	RespondWithError(rec, req, NewInvalidInputError("bad input"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body HTTPErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeInvalidInput, body.Error.Code)
	assert.Equal(t, "bad input", body.Error.Message)
	assert.Equal(t, "req-456", body.Error.RequestID)
}

func TestRespondWithAPIError(t *testing.T) {
	t.Run("WithDetails", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RespondWithAPIError(rec, requestWithID("x"), http.StatusInternalServerError,
			"Failed to check domain", "unexpected EOF", stderrors.New("unexpected EOF"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"Failed to check domain","details":"unexpected EOF"}`, rec.Body.String())
	})

	t.Run("WithoutDetails", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RespondWithAPIError(rec, requestWithID("y"), http.StatusBadRequest, "Domain is required", "", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Domain is required"}`, rec.Body.String())
	})
}
