package handlers

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jmail/domaincheck/internal/core"
	apperrors "github.com/jmail/domaincheck/internal/errors"
	"github.com/jmail/domaincheck/internal/oauth"
	"github.com/jmail/domaincheck/internal/observability"
)

const (
	// StateCookieName carries the CSRF state between /api/auth and the callback.
	StateCookieName = "oauth_state"
	stateCookieTTL  = 600
)

// Authenticator is the OAuth surface the handlers need.
type Authenticator interface {
	AuthCodeURL(state string) (string, error)
	Authenticate(ctx context.Context, code string) (*oauth.Result, error)
}

// TokenSaver persists exchanged tokens.
type TokenSaver interface {
	UpsertToken(ctx context.Context, rec core.TokenRecord) (core.TokenRecord, error)
}

// OAuthHandler serves GET /api/auth and GET /api/auth/callback.
type OAuthHandler struct {
	Client Authenticator
	Tokens TokenSaver
	// SecureCookie sets the Secure flag on the state cookie.
	SecureCookie bool
	// ExposeDetails adds the failure message to 500 bodies.
	ExposeDetails bool
	// NewState defaults to oauth.NewState.
	NewState func() (string, error)
}

type authUser struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

type authSuccess struct {
	Message string   `json:"message"`
	User    authUser `json:"user"`
	Success bool     `json:"success"`
}

// Authorize stores a fresh state in a cookie and redirects to the consent page.
func (h *OAuthHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	newState := h.NewState
	if newState == nil {
		newState = oauth.NewState
	}

	state, err := newState()
	if err == nil && h.Client == nil {
		err = oauth.ErrNotConfigured
	}
	var target string
	if err == nil {
		target, err = h.Client.AuthCodeURL(state)
	}
	if err != nil {
		apperrors.RespondWithAPIError(w, r, http.StatusInternalServerError,
			"Failed to generate authorization URL", "", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   stateCookieTTL,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// Callback validates state, exchanges the code and stores the tokens.
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if oauthErr := query.Get("error"); oauthErr != "" {
		apperrors.RespondWithAPIError(w, r, http.StatusBadRequest, "OAuth error: "+oauthErr, "", nil)
		return
	}

	code := query.Get("code")
	if code == "" {
		apperrors.RespondWithAPIError(w, r, http.StatusBadRequest, "No authorization code provided", "", nil)
		return
	}

	state := query.Get("state")
	cookie, err := r.Cookie(StateCookieName)
	if state == "" || err != nil || cookie.Value == "" || cookie.Value != state {
		apperrors.RespondWithAPIError(w, r, http.StatusBadRequest, "Invalid state parameter", "", nil)
		return
	}

	if h.Client == nil || h.Tokens == nil {
		h.fail(w, r, oauth.ErrNotConfigured)
		return
	}

	result, err := h.Client.Authenticate(r.Context(), code)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if _, err := h.Tokens.UpsertToken(r.Context(), result.Token); err != nil {
		h.fail(w, r, err)
		return
	}

	if logger := observability.ServerLogger; logger != nil {
		logger.Info("Saved OAuth tokens", zap.String("user_email", result.User.Email))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, authSuccess{
		Message: "Authentication successful",
		User: authUser{
			Email:   result.User.Email,
			Name:    result.User.Name,
			Picture: result.User.Picture,
		},
		Success: true,
	})
}

// fail maps an exchange failure onto the callback's error responses.
func (h *OAuthHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "invalid_grant"):
		apperrors.RespondWithAPIError(w, r, http.StatusBadRequest, "Authorization code expired or invalid", "", err)
	case strings.Contains(msg, "access_denied"):
		apperrors.RespondWithAPIError(w, r, http.StatusForbidden, "User denied access", "", err)
	default:
		details := ""
		if h.ExposeDetails {
			details = msg
		}
		apperrors.RespondWithAPIError(w, r, http.StatusInternalServerError, "Authentication failed", details, err)
	}
}
