package clearid

import (
	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
)

// ProjectAccount flattens an identity into an account. Roles are left empty;
// they are assembled from memberships by the caller.
func ProjectAccount(identity *Identity) *connector.Account {
	attrs := connector.AccountAttributes{
		IdentityID:             identity.IdentityID,
		FirstName:              identity.FirstName,
		LastName:               identity.LastName,
		DisplayName:            identity.DisplayName,
		Description:            identity.Description,
		Email:                  identity.Email,
		CountryCode:            identity.CountryCode,
		Status:                 identity.Status,
		ETag:                   identity.ETag,
		ProvisioningAttributes: identity.ProvisioningAttributeNames(),
		Roles:                  []string{},
	}

	if pd := identity.PrivateData; pd != nil {
		attrs.SecondaryEmail = pd.SecondaryEmail
		attrs.PhoneNumberPrimary = pd.PhoneNumberPrimary
		attrs.EmployeeNumber = pd.EmployeeNumber
	}
	if cd := identity.CompanyData; cd != nil {
		attrs.DepartmentName = cd.DepartmentName
		attrs.JobTitle = cd.JobTitle
		attrs.CompanyName = cd.CompanyName
		if len(cd.Approvers) > 0 {
			attrs.ApproverID = cd.Approvers[0].ApproverID
		}
	}

	return &connector.Account{
		Identity:   identity.IdentityID,
		UUID:       identity.DisplayName,
		Attributes: attrs,
	}
}

// ProjectRole converts a team into a Role entitlement.
func ProjectRole(team *Team) *connector.Group {
	return &connector.Group{
		Identity: team.TeamID,
		UUID:     team.Name,
		Type:     connector.GroupObjectType,
		Attributes: connector.GroupAttributes{
			ID:          team.TeamID,
			Name:        team.Name,
			Description: team.Description,
			Status:      team.Status,
			Type:        connector.EntitlementRole,
		},
	}
}

// ProjectProvisioningAttribute synthesizes the entitlement for a
// provisioning attribute name.
func ProjectProvisioningAttribute(name string) *connector.Group {
	return synthesizedGroup(name, connector.EntitlementProvisioningAttribute)
}

// ProjectPrincipalRole synthesizes the entitlement for a principal role
// token such as "[user]".
func ProjectPrincipalRole(name string) *connector.Group {
	return synthesizedGroup(name, connector.EntitlementPrincipalRole)
}

func synthesizedGroup(name, kind string) *connector.Group {
	return &connector.Group{
		Identity: name,
		UUID:     name,
		Type:     connector.GroupObjectType,
		Attributes: connector.GroupAttributes{
			ID:          name,
			Name:        name,
			Description: kind,
			Status:      connector.StatusActive,
			Type:        kind,
		},
	}
}
