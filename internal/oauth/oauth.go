// Package oauth performs the Google authorization-code exchange and turns the
// result into a core.TokenRecord.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jmail/domaincheck/internal/core"
	"github.com/jmail/domaincheck/internal/metrics"
)

// DefaultUserInfoURL is Google's OAuth2 v2 userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// StateBytes is the amount of randomness in a CSRF state value.
const StateBytes = 32

var (
	// ErrNotConfigured means client credentials are missing.
	ErrNotConfigured = errors.New("oauth client is not configured")
	// ErrNoAccessToken means the exchange succeeded without an access token.
	ErrNoAccessToken = errors.New("no access token received")
	// ErrNoEmail means userinfo returned no email address.
	ErrNoEmail = errors.New("could not retrieve user email")
)

// Config describes the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	// Endpoint defaults to google.Endpoint.
	Endpoint oauth2.Endpoint
	// UserInfoURL defaults to DefaultUserInfoURL.
	UserInfoURL string
	// HTTPClient is used for the exchange and userinfo calls when set.
	HTTPClient *http.Client
}

// UserInfo is the subset of the userinfo response the service keeps.
type UserInfo struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// Result is a completed exchange.
type Result struct {
	User  UserInfo
	Token core.TokenRecord
}

// Client builds its oauth2.Config on first use so a server without OAuth
// credentials still starts.
type Client struct {
	cfg Config
	now func() time.Time

	once    sync.Once
	oauth   *oauth2.Config
	initErr error
}

// New returns a lazily initialized client.
func New(cfg Config) *Client {
	return &Client{cfg: cfg, now: time.Now}
}

func (c *Client) init() (*oauth2.Config, error) {
	c.once.Do(func() {
		if strings.TrimSpace(c.cfg.ClientID) == "" || strings.TrimSpace(c.cfg.ClientSecret) == "" {
			c.initErr = ErrNotConfigured
			return
		}
		endpoint := c.cfg.Endpoint
		if endpoint.AuthURL == "" && endpoint.TokenURL == "" {
			endpoint = google.Endpoint
		}
		c.oauth = &oauth2.Config{
			ClientID:     c.cfg.ClientID,
			ClientSecret: c.cfg.ClientSecret,
			RedirectURL:  c.cfg.RedirectURL,
			Scopes:       append([]string(nil), c.cfg.Scopes...),
			Endpoint:     endpoint,
		}
	})
	return c.oauth, c.initErr
}

// NewState returns a hex-encoded random CSRF state.
func NewState() (string, error) {
	buf := make([]byte, StateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// AuthCodeURL returns the consent URL for state, requesting offline access
// and a fresh consent prompt.
func (c *Client) AuthCodeURL(state string) (string, error) {
	conf, err := c.init()
	if err != nil {
		return "", err
	}
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
	), nil
}

func (c *Client) context(ctx context.Context) context.Context {
	if c.cfg.HTTPClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, c.cfg.HTTPClient)
	}
	return ctx
}

// Authenticate exchanges code, fetches the user's profile and builds the
// token record to persist.
func (c *Client) Authenticate(ctx context.Context, code string) (res *Result, err error) {
	defer func() { metrics.RecordOAuthExchange(err == nil) }()

	conf, err := c.init()
	if err != nil {
		return nil, err
	}
	ctx = c.context(ctx)

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	user, err := c.fetchUserInfo(ctx, conf, tok)
	if err != nil {
		return nil, err
	}
	if user.Email == "" {
		return nil, ErrNoEmail
	}

	stamp := core.FormatTimestamp(c.now())
	record := core.TokenRecord{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		UserEmail:    user.Email,
		UserName:     user.Name,
		CreatedAt:    stamp,
		UpdatedAt:    stamp,
	}
	if !tok.Expiry.IsZero() {
		record.ExpiryDate = tok.Expiry.UnixMilli()
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		record.Scope = scope
	}

	return &Result{User: *user, Token: record}, nil
}

func (c *Client) fetchUserInfo(ctx context.Context, conf *oauth2.Config, tok *oauth2.Token) (*UserInfo, error) {
	endpoint := c.cfg.UserInfoURL
	if endpoint == "" {
		endpoint = DefaultUserInfoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build userinfo request: %w", err)
	}

	resp, err := conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // response body close is best-effort

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read userinfo: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var user UserInfo
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &user, nil
}
