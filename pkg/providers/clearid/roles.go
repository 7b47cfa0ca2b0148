package clearid

import (
	"regexp"
)

var (
	teamRolePattern      = regexp.MustCompile(`^.{8}-.{4}-.{4}-.{4}-.{12}$`)
	principalRolePattern = regexp.MustCompile(`^\[(.+)\]$`)
)

// PrincipalRoles are the principal role tokens offered as entitlements.
var PrincipalRoles = []string{"[user]", "[admin]"}

// Role is a classified role token. It is one of TeamRole, PrincipalRole or
// ProvisioningAttribute.
type Role interface {
	// Token returns the role token as the governance platform knows it.
	Token() string

	isRole()
}

// TeamRole grants membership of the team with the given ID.
type TeamRole struct {
	TeamID string
}

// PrincipalRole grants a user principal role such as "user" or "admin".
type PrincipalRole struct {
	Name string
}

// ProvisioningAttribute adds a named provisioning attribute to the identity.
type ProvisioningAttribute struct {
	Name string
}

func (r TeamRole) Token() string              { return r.TeamID }
func (r PrincipalRole) Token() string         { return "[" + r.Name + "]" }
func (r ProvisioningAttribute) Token() string { return r.Name }

func (TeamRole) isRole()              {}
func (PrincipalRole) isRole()         {}
func (ProvisioningAttribute) isRole() {}

// ClassifyRole maps a role token to its mutation strategy. UUID-shaped tokens
// are teams, bracketed tokens are principal roles, anything else is a
// provisioning attribute.
func ClassifyRole(token string) Role {
	if teamRolePattern.MatchString(token) {
		return TeamRole{TeamID: token}
	}
	if m := principalRolePattern.FindStringSubmatch(token); m != nil {
		return PrincipalRole{Name: m[1]}
	}
	return ProvisioningAttribute{Name: token}
}

// IsTeamID reports whether token has the shape of a team ID.
func IsTeamID(token string) bool {
	return teamRolePattern.MatchString(token)
}
