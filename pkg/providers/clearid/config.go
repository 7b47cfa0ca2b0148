package clearid

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
)

// Config configures the ClearID connector.
type Config struct {
	// Environment selects the regional deployment: production, europe or development.
	Environment string `json:"environment" yaml:"environment" mapstructure:"environment"`

	// AccountID is the ClearID tenant account.
	AccountID string `json:"accountId" yaml:"accountId" mapstructure:"accountId"`

	// ClientID and ClientSecret are the client-credentials pair for the token exchange.
	ClientID     string `json:"clientId" yaml:"clientId" mapstructure:"clientId"`
	ClientSecret string `json:"clientSecret" yaml:"clientSecret" mapstructure:"clientSecret"`

	// ProvisioningAttributes is the allow-list of provisioning attribute names
	// exposed as entitlements and reported in account roles.
	ProvisioningAttributes []string `json:"provisioningAttributes,omitempty" yaml:"provisioningAttributes,omitempty" mapstructure:"provisioningAttributes"`

	// IncludeAllProvisioningAttributes reports every provisioning attribute
	// present on an identity, not just the allow-listed ones.
	IncludeAllProvisioningAttributes bool `json:"includeAllProvisioningAttributes,omitempty" yaml:"includeAllProvisioningAttributes,omitempty" mapstructure:"includeAllProvisioningAttributes"`

	// IgnoreSSL disables TLS certificate verification for this connector's
	// HTTP client only.
	IgnoreSSL bool `json:"ignoreSSL,omitempty" yaml:"ignoreSSL,omitempty" mapstructure:"ignoreSSL"`

	// PageSize is the take value of list requests.
	PageSize int `json:"pageSize,omitempty" yaml:"pageSize,omitempty" mapstructure:"pageSize"`

	// MaxPages caps paginated listings. Zero means unbounded.
	MaxPages int `json:"maxPages,omitempty" yaml:"maxPages,omitempty" mapstructure:"maxPages"`

	// RequestsPerSecond throttles outbound API calls. Zero means unlimited.
	RequestsPerSecond float64 `json:"requestsPerSecond,omitempty" yaml:"requestsPerSecond,omitempty" mapstructure:"requestsPerSecond"`

	// ApproverAttribute is the account attribute that maps to the first
	// company approver.
	ApproverAttribute string `json:"approverAttribute,omitempty" yaml:"approverAttribute,omitempty" mapstructure:"approverAttribute"`

	// Timeout bounds each HTTP request. Zero leaves the transport default.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" mapstructure:"timeout"`

	// Domain is the ClearID base domain.
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty" mapstructure:"domain"`

	// BaseURLs overrides the resolved base URL per service (sts, identity,
	// search, role, principal).
	BaseURLs map[string]string `json:"baseUrls,omitempty" yaml:"baseUrls,omitempty" mapstructure:"baseUrls"`
}

// Defaults.
const (
	DefaultEnvironment       = EnvironmentProduction
	DefaultPageSize          = 100
	DefaultApproverAttribute = "approverId"
)

// DecodeConfig decodes a host configuration map. Values are weakly typed so
// that strings from environment expansion decode into numeric and boolean
// fields, and comma-separated strings decode into lists.
func DecodeConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, connector.ErrInternal("failed to build config decoder").WithCause(err)
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, connector.ErrValidation("invalid connector configuration").WithConnector(ConnectorName).WithCause(err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = DefaultEnvironment
	}
	if c.PageSize == 0 {
		c.PageSize = DefaultPageSize
	}
	if c.ApproverAttribute == "" {
		c.ApproverAttribute = DefaultApproverAttribute
	}
	if c.Domain == "" {
		c.Domain = DefaultDomain
	}
	for i, name := range c.ProvisioningAttributes {
		c.ProvisioningAttributes[i] = strings.TrimSpace(name)
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	var problems []string

	if _, ok := environmentSuffixes[c.Environment]; !ok {
		problems = append(problems, fmt.Sprintf("environment must be one of %s, got %q",
			strings.Join(Environments(), ", "), c.Environment))
	}
	if c.AccountID == "" {
		problems = append(problems, "accountId is required")
	}
	if c.ClientID == "" {
		problems = append(problems, "clientId is required")
	}
	if c.ClientSecret == "" {
		problems = append(problems, "clientSecret is required")
	}
	if c.PageSize < 0 {
		problems = append(problems, "pageSize must not be negative")
	}
	if c.MaxPages < 0 {
		problems = append(problems, "maxPages must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		problems = append(problems, "requestsPerSecond must not be negative")
	}
	if c.Timeout < 0 {
		problems = append(problems, "timeout must not be negative")
	}
	for name := range c.BaseURLs {
		if !Service(name).valid() {
			problems = append(problems, fmt.Sprintf("baseUrls has unknown service %q", name))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return connector.ErrValidation(strings.Join(problems, "; ")).WithConnector(ConnectorName)
	}
	return nil
}

// Endpoints returns the endpoint resolver for this configuration.
func (c *Config) Endpoints() Endpoints {
	e := Endpoints{
		Environment: c.Environment,
		Domain:      c.Domain,
	}
	if len(c.BaseURLs) > 0 {
		e.Overrides = make(map[Service]string, len(c.BaseURLs))
		for name, u := range c.BaseURLs {
			e.Overrides[Service(name)] = strings.TrimRight(u, "/")
		}
	}
	return e
}
