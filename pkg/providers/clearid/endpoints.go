package clearid

import (
	"fmt"
	"sort"
)

// Service is a logical ClearID service.
type Service string

const (
	ServiceSTS       Service = "sts"
	ServiceIdentity  Service = "identity"
	ServiceSearch    Service = "search"
	ServiceRole      Service = "role"
	ServicePrincipal Service = "principal"
)

func (s Service) valid() bool {
	switch s {
	case ServiceSTS, ServiceIdentity, ServiceSearch, ServiceRole, ServicePrincipal:
		return true
	}
	return false
}

// Deployment environments.
const (
	EnvironmentProduction  = "production"
	EnvironmentEurope      = "europe"
	EnvironmentDevelopment = "development"
)

// DefaultDomain is the ClearID base domain.
const DefaultDomain = "clearid.io"

var environmentSuffixes = map[string]string{
	EnvironmentProduction:  "",
	EnvironmentEurope:      ".eu",
	EnvironmentDevelopment: "-demo",
}

// Environments returns the supported environment names in sorted order.
func Environments() []string {
	names := make([]string, 0, len(environmentSuffixes))
	for name := range environmentSuffixes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Endpoints resolves service base URLs for one environment.
type Endpoints struct {
	Environment string
	Domain      string

	// Overrides replaces the resolved URL of individual services.
	Overrides map[Service]string
}

// URL returns the base URL of service, without a trailing slash. Unknown
// services and environments resolve to "".
func (e Endpoints) URL(service Service) string {
	if u, ok := e.Overrides[service]; ok {
		return u
	}

	env, ok := environmentSuffixes[e.Environment]
	if !ok {
		return ""
	}
	domain := e.Domain
	if domain == "" {
		domain = DefaultDomain
	}

	switch service {
	case ServiceSTS:
		return fmt.Sprintf("https://sts%s.%s", env, domain)
	case ServiceIdentity:
		return fmt.Sprintf("https://identityservice%s.%s/api/v2", env, domain)
	case ServiceSearch:
		return fmt.Sprintf("https://searchservice%s.%s/api/v1", env, domain)
	case ServiceRole:
		return fmt.Sprintf("https://roleservice%s.%s/api/v3", env, domain)
	case ServicePrincipal:
		return fmt.Sprintf("https://principalservice%s.%s/api/v2", env, domain)
	}
	return ""
}

// Resolve returns the base URL of service in environment on the default domain.
func Resolve(service Service, environment string) string {
	return Endpoints{Environment: environment, Domain: DefaultDomain}.URL(service)
}
