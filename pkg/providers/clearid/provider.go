// Package clearid provides the ClearID identity connector implementation.
package clearid

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
)

// ConnectorName is the registered name of the ClearID connector.
const ConnectorName = "clearid"

// Provider implements connector.Connector for ClearID.
type Provider struct {
	config *Config
	client APIClient
	tokens TokenSource
	mapper AttributeMapper
	log    logrus.FieldLogger

	httpClient *http.Client
	now        func() time.Time
}

// APIClient abstracts ClearID API operations for testing.
type APIClient interface {
	// Connectivity
	Ping(ctx context.Context) error

	// Identity operations
	ListIdentities(ctx context.Context) ([]Identity, error)
	GetIdentity(ctx context.Context, identityID string) (*Identity, error)
	CreateIdentity(ctx context.Context, body map[string]interface{}) (*Identity, error)
	PatchIdentity(ctx context.Context, identityID string, body map[string]interface{}) error

	// Team operations
	ListTeams(ctx context.Context) ([]Team, error)
	GetTeam(ctx context.Context, teamID string) (*Team, error)
	ListIdentityTeams(ctx context.Context, identityID string) ([]Team, error)
	AddTeamMember(ctx context.Context, teamID, identityID string) error
	RemoveTeamMember(ctx context.Context, teamID, identityID string) error

	// Principal operations
	GetIdentityPrincipal(ctx context.Context, identityID string) (*IdentityPrincipal, error)
	PutUserPrincipal(ctx context.Context, principal, identityID, role string) error
	DeleteUserPrincipal(ctx context.Context, principal string) error
}

// ProviderOption configures the Provider.
type ProviderOption func(*Provider)

// WithAPIClient sets the API client.
func WithAPIClient(client APIClient) ProviderOption {
	return func(p *Provider) {
		p.client = client
	}
}

// WithTokenSource sets the token source checked by TestConnection.
func WithTokenSource(tokens TokenSource) ProviderOption {
	return func(p *Provider) {
		p.tokens = tokens
	}
}

// WithHTTPClient sets the HTTP client used for token exchange and API calls.
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// WithClock sets the clock used for credential expiry.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) ProviderOption {
	return func(p *Provider) {
		p.log = l
	}
}

// New creates a ClearID provider. Without WithAPIClient it builds the HTTP
// client stack from cfg.
func New(cfg *Config, opts ...ProviderOption) *Provider {
	p := &Provider{
		config: cfg,
		mapper: AttributeMapper{ApproverAttribute: cfg.ApproverAttribute},
		log:    logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithField("connector", ConnectorName)

	if cfg.IgnoreSSL {
		p.log.Warn("TLS certificate verification is disabled for ClearID requests")
	}

	if p.client == nil {
		if p.httpClient == nil {
			p.httpClient = NewHTTPClient(cfg)
		}
		creds := NewCredentialManager(cfg.Endpoints().URL(ServiceSTS), cfg.ClientID, cfg.ClientSecret,
			WithTokenHTTPClient(p.httpClient),
			WithCredentialClock(p.now),
			WithCredentialLogger(p.log),
		)
		if p.tokens == nil {
			p.tokens = creds
		}
		p.client = NewClient(cfg, creds, WithDoer(p.httpClient), WithClientLogger(p.log))
	}

	return p
}

// Name implements connector.Connector.
func (p *Provider) Name() string {
	return ConnectorName
}

// TestConnection implements connector.Connector.
func (p *Provider) TestConnection(ctx context.Context) (*connector.ValidationReport, error) {
	var validators []connector.Validator
	if p.tokens != nil {
		validators = append(validators, connector.CheckFunc{
			CheckID:     "clearid_token_exchange",
			CheckName:   "Token Exchange",
			Severity:    connector.SeverityCritical,
			Remediation: "Check clientId, clientSecret and environment",
			Fn: func(ctx context.Context) (map[string]interface{}, error) {
				_, err := p.tokens.Token(ctx)
				return map[string]interface{}{"environment": p.config.Environment}, err
			},
		})
	}
	validators = append(validators, connector.CheckFunc{
		CheckID:     "clearid_sts_reachable",
		CheckName:   "STS Reachable",
		Severity:    connector.SeverityError,
		Remediation: "Ensure the ClearID STS endpoint is accessible from this network",
		Fn: func(ctx context.Context) (map[string]interface{}, error) {
			return map[string]interface{}{"url": p.config.Endpoints().URL(ServiceSTS)}, p.client.Ping(ctx)
		},
	})

	return connector.RunValidation(ctx, ConnectorName, validators), nil
}

// ListAccounts implements connector.Connector.
func (p *Provider) ListAccounts(ctx context.Context, emit connector.Emitter) error {
	identities, err := p.client.ListIdentities(ctx)
	if err != nil {
		return err
	}

	for _, identity := range identities {
		if identity.IsDeleted {
			continue
		}
		account, err := p.ReadAccount(ctx, identity.IdentityID)
		if err != nil {
			return err
		}
		if err := emit.Send(ctx, account); err != nil {
			return err
		}
	}
	return nil
}

// ReadAccount implements connector.Connector.
func (p *Provider) ReadAccount(ctx context.Context, id string) (*connector.Account, error) {
	identity, err := p.client.GetIdentity(ctx, id)
	if err != nil {
		return nil, err
	}
	account := ProjectAccount(identity)
	if account.Identity == "" {
		account.Identity = id
		account.Attributes.IdentityID = id
	}

	teams, err := p.client.ListIdentityTeams(ctx, id)
	if err != nil {
		return nil, err
	}

	principal, err := p.client.GetIdentityPrincipal(ctx, id)
	if err != nil {
		if !IsStatus(err, http.StatusNotFound) {
			return nil, err
		}
		principal = nil
	}

	roles := make([]string, 0, len(teams))
	for _, team := range teams {
		roles = append(roles, team.TeamID)
	}
	roles = append(roles, p.eligibleAttributes(account.Attributes.ProvisioningAttributes)...)
	if principal != nil {
		for _, role := range principal.Roles {
			roles = append(roles, PrincipalRole{Name: role}.Token())
		}
	}
	account.Attributes.Roles = roles

	return account, nil
}

// eligibleAttributes returns the provisioning attributes reported as roles:
// all of them, or the allow-list entries present on the identity in
// allow-list order.
func (p *Provider) eligibleAttributes(present []string) []string {
	if p.config.IncludeAllProvisioningAttributes {
		return present
	}
	var out []string
	for _, name := range p.config.ProvisioningAttributes {
		if slices.Contains(present, name) {
			out = append(out, name)
		}
	}
	return out
}

// CreateAccount implements connector.Connector.
func (p *Provider) CreateAccount(ctx context.Context, input connector.AccountCreateInput) (*connector.Account, error) {
	doc, err := p.mapper.CreateDocument(input.Attributes)
	if err != nil {
		return nil, err
	}

	created, err := p.client.CreateIdentity(ctx, doc)
	if err != nil {
		return nil, err
	}
	id := created.IdentityID
	if id == "" {
		return nil, connector.ErrRemote("create identity response carried no identityId").WithConnector(ConnectorName)
	}
	p.log.WithField("identity", id).Info("created identity")

	for _, v := range connector.ValueList(input.Attributes[rolesAttribute]) {
		token, err := connector.StringValue(rolesAttribute, v)
		if err != nil {
			return nil, err
		}
		account, err := p.ReadAccount(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := p.assignRole(ctx, account, token); err != nil {
			return nil, err
		}
	}

	return p.ReadAccount(ctx, id)
}

// UpdateAccount implements connector.Connector. Each value is applied
// against a fresh read of the account so every patch carries a current eTag.
func (p *Provider) UpdateAccount(ctx context.Context, input connector.AccountUpdateInput) (*connector.Account, error) {
	for _, change := range input.Changes {
		switch change.Op {
		case connector.ChangeOpAdd, connector.ChangeOpRemove, connector.ChangeOpSet:
		default:
			return nil, connector.ErrUnsupported(fmt.Sprintf("operation not supported: %s", change.Op)).
				WithConnector(ConnectorName).
				WithResource("account", input.Identity)
		}

		values := change.Values()
		if change.Op == connector.ChangeOpSet && len(values) == 0 {
			values = []interface{}{nil}
		}

		for _, v := range values {
			account, err := p.ReadAccount(ctx, input.Identity)
			if err != nil {
				return nil, err
			}

			switch change.Op {
			case connector.ChangeOpAdd:
				token, err := connector.StringValue(change.Attribute, v)
				if err != nil {
					return nil, err
				}
				err = p.assignRole(ctx, account, token)
				if err != nil {
					return nil, err
				}
			case connector.ChangeOpRemove:
				token, err := connector.StringValue(change.Attribute, v)
				if err != nil {
					return nil, err
				}
				err = p.removeRole(ctx, account, token)
				if err != nil {
					return nil, err
				}
			case connector.ChangeOpSet:
				patch := p.mapper.SetPatch(change.Attribute, v, account.Attributes.ETag)
				if err := p.client.PatchIdentity(ctx, account.Identity, patch); err != nil {
					return nil, err
				}
			}
		}
	}

	return p.ReadAccount(ctx, input.Identity)
}

// EnableAccount implements connector.Connector.
func (p *Provider) EnableAccount(ctx context.Context, id string) (*connector.Account, error) {
	return p.setStatus(ctx, id, connector.StatusActive)
}

// DisableAccount implements connector.Connector.
func (p *Provider) DisableAccount(ctx context.Context, id string) (*connector.Account, error) {
	return p.setStatus(ctx, id, connector.StatusInactive)
}

func (p *Provider) setStatus(ctx context.Context, id, status string) (*connector.Account, error) {
	account, err := p.ReadAccount(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := map[string]interface{}{
		"eTag":   account.Attributes.ETag,
		"status": status,
	}
	if err := p.client.PatchIdentity(ctx, account.Identity, patch); err != nil {
		return nil, err
	}

	account.Attributes.Status = status
	return account, nil
}

// ListEntitlements implements connector.Connector. Teams come first, then
// the configured provisioning attributes, then the principal roles.
func (p *Provider) ListEntitlements(ctx context.Context, emit connector.Emitter) error {
	teams, err := p.client.ListTeams(ctx)
	if err != nil {
		return err
	}

	for i := range teams {
		if teams[i].IsDeleted {
			continue
		}
		if err := emit.Send(ctx, ProjectRole(&teams[i])); err != nil {
			return err
		}
	}
	for _, name := range p.config.ProvisioningAttributes {
		if err := emit.Send(ctx, ProjectProvisioningAttribute(name)); err != nil {
			return err
		}
	}
	for _, name := range PrincipalRoles {
		if err := emit.Send(ctx, ProjectPrincipalRole(name)); err != nil {
			return err
		}
	}
	return nil
}

// ReadEntitlement implements connector.Connector. Team-shaped identities are
// fetched; anything else is reported as a provisioning attribute.
func (p *Provider) ReadEntitlement(ctx context.Context, input connector.EntitlementReadInput) (*connector.Group, error) {
	if !IsTeamID(input.Identity) {
		return ProjectProvisioningAttribute(input.Identity), nil
	}

	team, err := p.client.GetTeam(ctx, input.Identity)
	if err != nil {
		return nil, err
	}
	return ProjectRole(team), nil
}

func init() {
	connector.MustRegister(connector.FactoryFunc{
		ConnectorName: ConnectorName,
		Fn: func(_ context.Context, raw map[string]interface{}) (connector.Connector, error) {
			cfg, err := DecodeConfig(raw)
			if err != nil {
				return nil, err
			}
			return New(cfg), nil
		},
	})
}
