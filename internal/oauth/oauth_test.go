package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type fakeGoogle struct {
	server    *httptest.Server
	tokenBody map[string]any
	tokenCode int
	user      map[string]any
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()

	f := &fakeGoogle{
		tokenCode: http.StatusOK,
		tokenBody: map[string]any{
			"access_token":  "ya29.access",
			"refresh_token": "1//refresh",
			"token_type":    "Bearer",
			"expires_in":    3600,
			"scope":         "openid https://www.googleapis.com/auth/userinfo.email",
		},
		user: map[string]any{
			"email":   "alice@example.com",
			"name":    "Alice",
			"picture": "https://example.com/alice.png",
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.tokenCode)
		_ = json.NewEncoder(w).Encode(f.tokenBody)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer ya29.access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(f.user)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeGoogle) client() *Client {
	c := New(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:3000/api/auth/callback",
		Scopes:       []string{"openid", "email"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  f.server.URL + "/auth",
			TokenURL: f.server.URL + "/token",
		},
		UserInfoURL: f.server.URL + "/userinfo",
		HTTPClient:  f.server.Client(),
	})
	c.now = func() time.Time { return time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC) }
	return c
}

func TestNewState(t *testing.T) {
	a, err := NewState()
	require.NoError(t, err)
	b, err := NewState()
	require.NoError(t, err)

	assert.Len(t, a, StateBytes*2)
	assert.NotEqual(t, a, b)
}

func TestAuthCodeURL(t *testing.T) {
	c := New(Config{
		ClientID:     "client-id",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:3000/api/auth/callback",
		Scopes:       []string{"openid", "https://www.googleapis.com/auth/gmail.readonly"},
	})

	raw, err := c.AuthCodeURL("abc123")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)

	q := u.Query()
	assert.Equal(t, "abc123", q.Get("state"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "true", q.Get("include_granted_scopes"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "openid https://www.googleapis.com/auth/gmail.readonly", q.Get("scope"))
}

func TestAuthCodeURLNotConfigured(t *testing.T) {
	_, err := New(Config{}).AuthCodeURL("state")
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestAuthenticate(t *testing.T) {
	f := newFakeGoogle(t)

	res, err := f.client().Authenticate(context.Background(), "4/code")
	require.NoError(t, err)

	assert.Equal(t, UserInfo{Email: "alice@example.com", Name: "Alice", Picture: "https://example.com/alice.png"}, res.User)
	assert.Equal(t, "ya29.access", res.Token.AccessToken)
	assert.Equal(t, "1//refresh", res.Token.RefreshToken)
	assert.Equal(t, "Bearer", res.Token.TokenType)
	assert.Equal(t, "alice@example.com", res.Token.UserEmail)
	assert.Equal(t, "Alice", res.Token.UserName)
	assert.Equal(t, "openid https://www.googleapis.com/auth/userinfo.email", res.Token.Scope)
	assert.Positive(t, res.Token.ExpiryDate)
	assert.Equal(t, "2026-05-01T08:00:00.000Z", res.Token.CreatedAt)
}

func TestAuthenticateInvalidGrant(t *testing.T) {
	f := newFakeGoogle(t)
	f.tokenCode = http.StatusBadRequest
	f.tokenBody = map[string]any{"error": "invalid_grant", "error_description": "Bad Request"}

	_, err := f.client().Authenticate(context.Background(), "stale")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")
}

func TestAuthenticateMissingEmail(t *testing.T) {
	f := newFakeGoogle(t)
	f.user = map[string]any{"name": "No Email"}

	_, err := f.client().Authenticate(context.Background(), "code")
	require.ErrorIs(t, err, ErrNoEmail)
}

func TestAuthenticateEmptyAccessToken(t *testing.T) {
	f := newFakeGoogle(t)
	f.tokenBody = map[string]any{"access_token": "", "token_type": "Bearer"}

	_, err := f.client().Authenticate(context.Background(), "code")
	require.Error(t, err)
}
