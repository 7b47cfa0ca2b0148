package clearid

import (
	"context"
	"fmt"
	"net/http"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
)

// assignRole grants token to account using the strategy its format selects.
func (p *Provider) assignRole(ctx context.Context, account *connector.Account, token string) error {
	log := p.log.WithFields(logrus.Fields{"identity": account.Identity, "role": token})

	switch r := ClassifyRole(token).(type) {
	case TeamRole:
		log.Debug("adding team membership")
		return p.client.AddTeamMember(ctx, r.TeamID, account.Identity)

	case PrincipalRole:
		email := account.Attributes.Email
		if email == "" {
			return connector.ErrValidation("account needs an existing email to get a principal role").
				WithConnector(ConnectorName).
				WithResource("account", account.Identity)
		}
		log.Debug("assigning user principal")
		return p.client.PutUserPrincipal(ctx, email, account.Identity, r.Name)

	case ProvisioningAttribute:
		names := slices.Clone(account.Attributes.ProvisioningAttributes)
		if !slices.Contains(names, r.Name) {
			names = append(names, r.Name)
		}
		log.Debug("adding provisioning attribute")
		return p.patchProvisioningAttributes(ctx, account, names)
	}

	return connector.ErrInternal(fmt.Sprintf("unclassified role %q", token))
}

// removeRole revokes token from account. Removing a provisioning attribute
// the account does not hold still patches the unchanged list.
func (p *Provider) removeRole(ctx context.Context, account *connector.Account, token string) error {
	log := p.log.WithFields(logrus.Fields{"identity": account.Identity, "role": token})

	switch r := ClassifyRole(token).(type) {
	case TeamRole:
		log.Debug("removing team membership")
		return p.client.RemoveTeamMember(ctx, r.TeamID, account.Identity)

	case PrincipalRole:
		principal, err := p.client.GetIdentityPrincipal(ctx, account.Identity)
		if err != nil && !IsStatus(err, http.StatusNotFound) {
			return err
		}
		if principal == nil || principal.PrincipalID == "" {
			log.Debug("identity has no principal")
			return nil
		}
		log.WithField("principal", principal.PrincipalID).Debug("deleting user principal")
		return p.client.DeleteUserPrincipal(ctx, principal.PrincipalID)

	case ProvisioningAttribute:
		names := slices.DeleteFunc(slices.Clone(account.Attributes.ProvisioningAttributes), func(n string) bool {
			return n == r.Name
		})
		log.Debug("removing provisioning attribute")
		return p.patchProvisioningAttributes(ctx, account, names)
	}

	return connector.ErrInternal(fmt.Sprintf("unclassified role %q", token))
}

func (p *Provider) patchProvisioningAttributes(ctx context.Context, account *connector.Account, names []string) error {
	entries := make([]AttributeEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, AttributeEntry{Name: name})
	}

	patch := map[string]interface{}{
		"eTag": account.Attributes.ETag,
		"systemData": map[string]interface{}{
			"provisioningAttributes": entries,
		},
	}
	return p.client.PatchIdentity(ctx, account.Identity, patch)
}
