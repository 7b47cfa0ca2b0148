package clearid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"

	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
)

// TokenSource supplies bearer tokens for API calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// CredentialManager obtains a bearer token with the client-credentials grant
// and caches it until it expires. Refresh happens lazily on the next call;
// concurrent callers share one in-flight exchange.
type CredentialManager struct {
	oauth      clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time
	log        logrus.FieldLogger

	group singleflight.Group

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// CredentialOption configures a CredentialManager.
type CredentialOption func(*CredentialManager)

// WithTokenHTTPClient sets the HTTP client used for the token exchange.
func WithTokenHTTPClient(c *http.Client) CredentialOption {
	return func(m *CredentialManager) {
		m.httpClient = c
	}
}

// WithCredentialClock sets the clock used for expiry tracking.
func WithCredentialClock(now func() time.Time) CredentialOption {
	return func(m *CredentialManager) {
		m.now = now
	}
}

// WithCredentialLogger sets the logger.
func WithCredentialLogger(l logrus.FieldLogger) CredentialOption {
	return func(m *CredentialManager) {
		m.log = l
	}
}

// NewCredentialManager creates a manager exchanging clientID and
// clientSecret at {stsURL}/connect/token.
func NewCredentialManager(stsURL, clientID, clientSecret string, opts ...CredentialOption) *CredentialManager {
	m := &CredentialManager{
		oauth: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     stsURL + "/connect/token",
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: http.DefaultClient,
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Token returns the cached token, exchanging credentials first when none is
// cached or the cached one has expired.
func (m *CredentialManager) Token(ctx context.Context) (string, error) {
	if token, ok := m.cached(); ok {
		return token, nil
	}

	// The shared exchange outlives any single caller; each caller stops
	// waiting on its own context.
	ch := m.group.DoChan("token", func() (interface{}, error) {
		if token, ok := m.cached(); ok {
			return token, nil
		}
		return m.refresh(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", connector.ErrConnectivity("token exchange interrupted").
			WithConnector(ConnectorName).
			WithCause(ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// ExpiresAt returns the expiry of the cached token, or the zero time.
func (m *CredentialManager) ExpiresAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiresAt
}

func (m *CredentialManager) cached() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token == "" || !m.now().Before(m.expiresAt) {
		return "", false
	}
	return m.token, true
}

func (m *CredentialManager) refresh(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	issuedAt := m.now()
	tok, err := m.oauth.Token(ctx)
	if err != nil {
		return "", exchangeError(m.oauth.TokenURL, err)
	}

	expiresAt := issuedAt.Add(expiresIn(tok, issuedAt))

	m.mu.Lock()
	m.token = tok.AccessToken
	m.expiresAt = expiresAt
	m.mu.Unlock()

	m.log.WithField("expires_at", expiresAt.Format(time.RFC3339)).Debug("obtained access token")
	return tok.AccessToken, nil
}

// expiresIn reads the lifetime reported by the issuer. The raw expires_in
// value is preferred so expiry follows the injected clock.
func expiresIn(tok *oauth2.Token, now time.Time) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v * float64(time.Second))
	case int64:
		return time.Duration(v) * time.Second
	case json.Number:
		if n, err := v.Float64(); err == nil {
			return time.Duration(n * float64(time.Second))
		}
	case string:
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(n * float64(time.Second))
		}
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry.Sub(now)
	}
	return 0
}

func exchangeError(tokenURL string, err error) error {
	cErr := connector.ErrConnectivity("token exchange failed").
		WithConnector(ConnectorName).
		WithCause(err).
		WithDetail("url", tokenURL)

	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) && rErr.Response != nil {
		cErr.WithDetail("status_code", rErr.Response.StatusCode)
	}
	return cErr
}
