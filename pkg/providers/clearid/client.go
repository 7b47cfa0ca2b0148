package clearid

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeJSONPatch = "application/json-patch+json"

	maxErrorBody = 4 << 10
)

// identityIncludes are the sections requested when reading one identity.
var identityIncludes = []string{
	"Ordinal",
	"SystemData",
	"PrivateData",
	"CompanyData",
	"NationalIdentityData",
	"UserPermissions",
}

// Doer executes HTTP requests.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// APIError is a non-success response from a ClearID service.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s returned %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// IsStatus reports whether err carries an APIError with the given status code.
func IsStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// Client is the HTTP implementation of APIClient.
type Client struct {
	accountID string
	endpoints Endpoints
	pageSize  int
	maxPages  int
	tokens    TokenSource
	doer      Doer
	limiter   *rate.Limiter
	log       logrus.FieldLogger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithDoer sets the HTTP transport.
func WithDoer(d Doer) ClientOption {
	return func(c *Client) {
		c.doer = d
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.log = l
	}
}

// NewClient creates a Client for cfg that authenticates with tokens.
func NewClient(cfg *Config, tokens TokenSource, opts ...ClientOption) *Client {
	c := &Client{
		accountID: cfg.AccountID,
		endpoints: cfg.Endpoints(),
		pageSize:  cfg.PageSize,
		maxPages:  cfg.MaxPages,
		tokens:    tokens,
		doer:      http.DefaultClient,
		log:       logrus.StandardLogger(),
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	if cfg.RequestsPerSecond > 0 {
		burst := int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// NewHTTPClient builds the HTTP client for cfg. TLS verification is disabled
// only when cfg.IgnoreSSL is set.
func NewHTTPClient(cfg *Config) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.IgnoreSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // explicit opt-in
	}
	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
	}
}

// Ping checks that the STS service answers an authenticated request with
// 200 OK.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodGet, service: ServiceSTS, path: "/", expectStatus: http.StatusOK}, nil)
}

// ListIdentities returns every identity of the account, deleted ones included.
func (c *Client) ListIdentities(ctx context.Context) ([]Identity, error) {
	path := fmt.Sprintf("/accounts/%s/identities", c.accountID)
	return collectAll(ctx, c.pageSize, c.maxPages, func(ctx context.Context, pr PageRequest) (*Page[Identity], error) {
		var page Page[Identity]
		err := c.do(ctx, request{method: http.MethodPost, service: ServiceSearch, path: path, body: pr}, &page)
		return &page, err
	})
}

// GetIdentity returns one identity with all detail sections.
func (c *Client) GetIdentity(ctx context.Context, identityID string) (*Identity, error) {
	query := url.Values{"include": identityIncludes}
	var identity Identity
	err := c.do(ctx, request{
		method:  http.MethodGet,
		service: ServiceIdentity,
		path:    fmt.Sprintf("/accounts/%s/identities/%s", c.accountID, identityID),
		query:   query,
	}, &identity)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// ListTeams returns every team of the account, deleted ones included.
func (c *Client) ListTeams(ctx context.Context) ([]Team, error) {
	path := fmt.Sprintf("/accounts/%s/teams", c.accountID)
	return collectAll(ctx, c.pageSize, c.maxPages, func(ctx context.Context, pr PageRequest) (*Page[Team], error) {
		var page Page[Team]
		err := c.do(ctx, request{method: http.MethodPost, service: ServiceSearch, path: path, body: pr}, &page)
		return &page, err
	})
}

// GetTeam returns one team.
func (c *Client) GetTeam(ctx context.Context, teamID string) (*Team, error) {
	var team Team
	err := c.do(ctx, request{
		method:  http.MethodGet,
		service: ServiceRole,
		path:    fmt.Sprintf("/accounts/%s/teams/%s", c.accountID, teamID),
	}, &team)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// ListIdentityTeams returns the teams an identity is a member of.
func (c *Client) ListIdentityTeams(ctx context.Context, identityID string) ([]Team, error) {
	var out identityTeams
	err := c.do(ctx, request{
		method:  http.MethodGet,
		service: ServiceRole,
		path:    fmt.Sprintf("/accounts/%s/identities/%s/teams", c.accountID, identityID),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Teams, nil
}

// AddTeamMember adds an identity to a team.
func (c *Client) AddTeamMember(ctx context.Context, teamID, identityID string) error {
	return c.do(ctx, request{
		method:  http.MethodPost,
		service: ServiceRole,
		path:    fmt.Sprintf("/accounts/%s/teams/%s/members", c.accountID, teamID),
		body: addTeamMembersRequest{
			IdentityIDs: []string{identityID},
			Reason:      mutationReason,
			SourceID:    membershipSourceID,
		},
	}, nil)
}

// RemoveTeamMember removes an identity from a team.
func (c *Client) RemoveTeamMember(ctx context.Context, teamID, identityID string) error {
	return c.do(ctx, request{
		method:  http.MethodDelete,
		service: ServiceRole,
		path:    fmt.Sprintf("/accounts/%s/teams/%s/members", c.accountID, teamID),
		body: removeTeamMembersRequest{
			TeamMembers: []teamMember{{IdentityID: identityID, SourceID: membershipSourceID}},
			Reason:      mutationReason,
		},
	}, nil)
}

// CreateIdentity creates an identity from a merged attribute document.
func (c *Client) CreateIdentity(ctx context.Context, body map[string]interface{}) (*Identity, error) {
	var identity Identity
	err := c.do(ctx, request{
		method:  http.MethodPost,
		service: ServiceIdentity,
		path:    fmt.Sprintf("/accounts/%s/identities", c.accountID),
		body:    body,
	}, &identity)
	if err != nil {
		return nil, err
	}
	return &identity, nil
}

// PatchIdentity applies a merged attribute document to an identity. The
// service expects the json-patch content type with a plain object body.
func (c *Client) PatchIdentity(ctx context.Context, identityID string, body map[string]interface{}) error {
	return c.do(ctx, request{
		method:      http.MethodPatch,
		service:     ServiceIdentity,
		path:        fmt.Sprintf("/accounts/%s/identities/%s", c.accountID, identityID),
		body:        body,
		contentType: contentTypeJSONPatch,
	}, nil)
}

// GetIdentityPrincipal returns the principal record of an identity.
func (c *Client) GetIdentityPrincipal(ctx context.Context, identityID string) (*IdentityPrincipal, error) {
	var principal IdentityPrincipal
	err := c.do(ctx, request{
		method:  http.MethodGet,
		service: ServicePrincipal,
		path:    fmt.Sprintf("/accounts/%s/identityPrincipals/%s", c.accountID, identityID),
	}, &principal)
	if err != nil {
		return nil, err
	}
	return &principal, nil
}

// PutUserPrincipal grants role to the user principal keyed by principal.
func (c *Client) PutUserPrincipal(ctx context.Context, principal, identityID, role string) error {
	return c.do(ctx, request{
		method:  http.MethodPut,
		service: ServicePrincipal,
		path:    fmt.Sprintf("/accounts/%s/userPrincipals/%s", c.accountID, url.PathEscape(principal)),
		body: userPrincipalRequest{
			IdentityID:     identityID,
			Roles:          []string{role},
			PrincipalState: principalStateActive,
		},
	}, nil)
}

// DeleteUserPrincipal deletes a user principal.
func (c *Client) DeleteUserPrincipal(ctx context.Context, principal string) error {
	return c.do(ctx, request{
		method:  http.MethodDelete,
		service: ServicePrincipal,
		path:    fmt.Sprintf("/accounts/%s/userPrincipals/%s", c.accountID, url.PathEscape(principal)),
	}, nil)
}

type request struct {
	method      string
	service     Service
	path        string
	query       url.Values
	body        interface{}
	contentType string

	// expectStatus, when set, is the only accepted status.
	expectStatus int
}

func (r request) accepts(status int) bool {
	if r.expectStatus != 0 {
		return status == r.expectStatus
	}
	return status >= 200 && status <= 299
}

func (c *Client) do(ctx context.Context, r request, out interface{}) error {
	base := c.endpoints.URL(r.service)
	if base == "" {
		return connector.ErrInternal(fmt.Sprintf("no endpoint for service %q", r.service))
	}
	target := base + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return connector.ErrConnectivity("request throttling interrupted").WithCause(err)
		}
	}

	var body io.Reader
	if r.body != nil {
		data, err := json.Marshal(r.body)
		if err != nil {
			return connector.ErrInternal("failed to encode request body").WithCause(err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return connector.ErrInternal("failed to build request").WithCause(err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", contentTypeJSON)
	if r.body != nil {
		ct := r.contentType
		if ct == "" {
			ct = contentTypeJSON
		}
		req.Header.Set("Content-Type", ct)
	}

	log := c.log.WithFields(logrus.Fields{"method": r.method, "url": target})
	resp, err := c.doer.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return connector.ErrConnectivity(fmt.Sprintf("%s %s failed", r.method, target)).WithCause(err)
	}
	defer resp.Body.Close()
	log.WithField("status", resp.StatusCode).Debug("clearid request")

	if !r.accepts(resp.StatusCode) {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Method:     r.method,
			URL:        target,
			Body:       strings.TrimSpace(string(data)),
		}
		return connector.ErrRemote(fmt.Sprintf("%s request rejected with status %d", r.service, resp.StatusCode)).
			WithConnector(ConnectorName).
			WithCause(apiErr).
			WithDetail("status_code", resp.StatusCode)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return connector.ErrRemote(fmt.Sprintf("invalid response from %s %s", r.method, target)).
			WithConnector(ConnectorName).
			WithCause(err)
	}
	return nil
}
