package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmail/domaincheck/internal/core"
	"github.com/jmail/domaincheck/internal/oauth"
)

type fakeAuthenticator struct {
	authURLErr error
	result     *oauth.Result
	err        error
	codes      []string
}

func (f *fakeAuthenticator) AuthCodeURL(state string) (string, error) {
	if f.authURLErr != nil {
		return "", f.authURLErr
	}
	return "https://accounts.example/auth?state=" + url.QueryEscape(state), nil
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, code string) (*oauth.Result, error) {
	f.codes = append(f.codes, code)
	return f.result, f.err
}

type fakeTokens struct {
	saved []core.TokenRecord
	err   error
}

func (f *fakeTokens) UpsertToken(_ context.Context, rec core.TokenRecord) (core.TokenRecord, error) {
	if f.err != nil {
		return core.TokenRecord{}, f.err
	}
	f.saved = append(f.saved, rec)
	return rec, nil
}

func callback(t *testing.T, h *OAuthHandler, query string, state string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?"+query, nil)
	if state != "" {
		req.AddCookie(&http.Cookie{Name: StateCookieName, Value: state})
	}
	rec := httptest.NewRecorder()
	h.Callback(rec, req)
	return rec
}

func TestAuthorizeSetsStateCookieAndRedirects(t *testing.T) {
	h := &OAuthHandler{
		Client:       &fakeAuthenticator{},
		SecureCookie: true,
		NewState:     func() (string, error) { return "state-123", nil },
	}

	rec := httptest.NewRecorder()
	h.Authorize(rec, httptest.NewRequest(http.MethodGet, "/api/auth", nil))

	require.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://accounts.example/auth?state=state-123", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, StateCookieName, cookie.Name)
	assert.Equal(t, "state-123", cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	assert.Equal(t, 600, cookie.MaxAge)
	assert.Equal(t, "/", cookie.Path)
}

func TestAuthorizeFailure(t *testing.T) {
	cases := map[string]*OAuthHandler{
		"NoClient":     {NewState: func() (string, error) { return "s", nil }},
		"StateFailure": {Client: &fakeAuthenticator{}, NewState: func() (string, error) { return "", errors.New("entropy") }},
		"URLFailure":   {Client: &fakeAuthenticator{authURLErr: oauth.ErrNotConfigured}},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Authorize(rec, httptest.NewRequest(http.MethodGet, "/api/auth", nil))
			require.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.JSONEq(t, `{"error":"Failed to generate authorization URL"}`, rec.Body.String())
		})
	}
}

func TestCallbackRejections(t *testing.T) {
	h := &OAuthHandler{Client: &fakeAuthenticator{}, Tokens: &fakeTokens{}}

	cases := []struct {
		name, query, cookie, body string
	}{
		{"ProviderError", "error=access_denied", "", `{"error":"OAuth error: access_denied"}`},
		{"NoCode", "state=abc", "abc", `{"error":"No authorization code provided"}`},
		{"NoCookie", "code=c&state=abc", "", `{"error":"Invalid state parameter"}`},
		{"Mismatch", "code=c&state=abc", "xyz", `{"error":"Invalid state parameter"}`},
		{"NoStateParam", "code=c", "abc", `{"error":"Invalid state parameter"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := callback(t, h, tc.query, tc.cookie)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func TestCallbackSuccessStoresTokens(t *testing.T) {
	auth := &fakeAuthenticator{result: &oauth.Result{
		User: oauth.UserInfo{Email: "ada@example.com", Name: "Ada", Picture: "https://img.example/a.png"},
		Token: core.TokenRecord{
			AccessToken:  "ya29.access",
			RefreshToken: "1//refresh",
			UserEmail:    "ada@example.com",
			UserName:     "Ada",
		},
	}}
	tokens := &fakeTokens{}
	h := &OAuthHandler{Client: auth, Tokens: tokens}

	rec := callback(t, h, "code=auth-code&state=abc", "abc")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Authentication successful", body["message"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{
		"email":   "ada@example.com",
		"name":    "Ada",
		"picture": "https://img.example/a.png",
	}, body["user"])

	assert.Equal(t, []string{"auth-code"}, auth.codes)
	require.Len(t, tokens.saved, 1)
	assert.Equal(t, "ya29.access", tokens.saved[0].AccessToken)
}

func TestCallbackExchangeFailures(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		expose bool
		status int
		body   string
	}{
		{"InvalidGrant", errors.New(`oauth2: "invalid_grant" "Bad Request"`), false, http.StatusBadRequest,
			`{"error":"Authorization code expired or invalid"}`},
		{"AccessDenied", errors.New("access_denied"), false, http.StatusForbidden,
			`{"error":"User denied access"}`},
		{"OtherHidden", errors.New("boom"), false, http.StatusInternalServerError,
			`{"error":"Authentication failed"}`},
		{"OtherExposed", errors.New("boom"), true, http.StatusInternalServerError,
			`{"error":"Authentication failed","details":"boom"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := &OAuthHandler{Client: &fakeAuthenticator{err: tc.err}, Tokens: &fakeTokens{}, ExposeDetails: tc.expose}
			rec := callback(t, h, "code=c&state=abc", "abc")
			require.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, tc.body, rec.Body.String())
		})
	}
}

func TestCallbackStoreFailure(t *testing.T) {
	auth := &fakeAuthenticator{result: &oauth.Result{
		User:  oauth.UserInfo{Email: "ada@example.com"},
		Token: core.TokenRecord{AccessToken: "a", UserEmail: "ada@example.com"},
	}}
	h := &OAuthHandler{Client: auth, Tokens: &fakeTokens{err: errors.New("disk full")}, ExposeDetails: true}

	rec := callback(t, h, "code=c&state=abc", "abc")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Authentication failed","details":"disk full"}`, rec.Body.String())
}
