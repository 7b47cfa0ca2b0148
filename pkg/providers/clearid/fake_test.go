package clearid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
)

type patchCall struct {
	IdentityID string
	Body       map[string]interface{}
}

type principalPut struct {
	Principal  string
	IdentityID string
	Role       string
}

// fakeAPI is an in-memory APIClient. Patches must carry the current eTag
// and bump it, like the real identity service.
type fakeAPI struct {
	mu sync.Mutex

	identities  map[string]*Identity
	order       []string
	teams       []Team
	memberships map[string][]string
	principals  map[string]*IdentityPrincipal

	calls       []string
	creates     []map[string]interface{}
	patches     []patchCall
	puts        []principalPut
	deletions   []string
	teamAdds    []string
	teamRemoves []string

	principalErr error
	pingErr      error
	nextID       int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		identities:  make(map[string]*Identity),
		memberships: make(map[string][]string),
		principals:  make(map[string]*IdentityPrincipal),
	}
}

func (f *fakeAPI) addIdentity(identity *Identity) {
	f.identities[identity.IdentityID] = identity
	f.order = append(f.order, identity.IdentityID)
}

func (f *fakeAPI) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeAPI) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func remoteStatus(method, path string, status int) error {
	return connector.ErrRemote(fmt.Sprintf("request rejected with status %d", status)).
		WithCause(&APIError{StatusCode: status, Method: method, URL: path})
}

func (f *fakeAPI) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Ping")
	return f.pingErr
}

func (f *fakeAPI) ListIdentities(context.Context) ([]Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListIdentities")
	out := make([]Identity, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, *f.identities[id])
	}
	return out, nil
}

func (f *fakeAPI) GetIdentity(_ context.Context, id string) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetIdentity")
	identity, ok := f.identities[id]
	if !ok {
		return nil, remoteStatus(http.MethodGet, "/identities/"+id, http.StatusNotFound)
	}
	cp := *identity
	return &cp, nil
}

func (f *fakeAPI) CreateIdentity(_ context.Context, body map[string]interface{}) (*Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateIdentity")
	f.creates = append(f.creates, body)

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	identity := &Identity{}
	if err := json.Unmarshal(raw, identity); err != nil {
		return nil, err
	}
	f.nextID++
	identity.IdentityID = fmt.Sprintf("new-%d", f.nextID)
	identity.DisplayName = identity.FirstName + " " + identity.LastName
	identity.ETag = "e0"
	f.identities[identity.IdentityID] = identity
	f.order = append(f.order, identity.IdentityID)
	return identity, nil
}

func (f *fakeAPI) PatchIdentity(_ context.Context, id string, body map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PatchIdentity")
	f.patches = append(f.patches, patchCall{IdentityID: id, Body: body})

	identity, ok := f.identities[id]
	if !ok {
		return remoteStatus(http.MethodPatch, "/identities/"+id, http.StatusNotFound)
	}
	if body["eTag"] != identity.ETag {
		return remoteStatus(http.MethodPatch, "/identities/"+id, http.StatusPreconditionFailed)
	}

	if status, ok := body["status"].(string); ok {
		identity.Status = status
	}
	if sd, ok := body["systemData"].(map[string]interface{}); ok {
		if entries, ok := sd["provisioningAttributes"].([]AttributeEntry); ok {
			identity.SystemData = &SystemData{ProvisioningAttributes: entries}
		}
	}
	if pd, ok := body["privateData"].(map[string]interface{}); ok {
		if identity.PrivateData == nil {
			identity.PrivateData = &PrivateData{}
		}
		if v, ok := pd["secondaryEmail"].(string); ok {
			identity.PrivateData.SecondaryEmail = v
		}
	}
	identity.ETag = fmt.Sprintf("%s+", identity.ETag)
	return nil
}

func (f *fakeAPI) ListTeams(context.Context) ([]Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListTeams")
	return append([]Team(nil), f.teams...), nil
}

func (f *fakeAPI) GetTeam(_ context.Context, teamID string) (*Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetTeam")
	for i := range f.teams {
		if f.teams[i].TeamID == teamID {
			team := f.teams[i]
			return &team, nil
		}
	}
	return nil, remoteStatus(http.MethodGet, "/teams/"+teamID, http.StatusNotFound)
}

func (f *fakeAPI) ListIdentityTeams(_ context.Context, identityID string) ([]Team, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("ListIdentityTeams")
	var out []Team
	for _, teamID := range f.memberships[identityID] {
		out = append(out, Team{TeamID: teamID})
	}
	return out, nil
}

func (f *fakeAPI) AddTeamMember(_ context.Context, teamID, identityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("AddTeamMember")
	f.teamAdds = append(f.teamAdds, teamID+"/"+identityID)
	f.memberships[identityID] = append(f.memberships[identityID], teamID)
	return nil
}

func (f *fakeAPI) RemoveTeamMember(_ context.Context, teamID, identityID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("RemoveTeamMember")
	f.teamRemoves = append(f.teamRemoves, teamID+"/"+identityID)
	var kept []string
	for _, t := range f.memberships[identityID] {
		if t != teamID {
			kept = append(kept, t)
		}
	}
	f.memberships[identityID] = kept
	return nil
}

func (f *fakeAPI) GetIdentityPrincipal(_ context.Context, identityID string) (*IdentityPrincipal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetIdentityPrincipal")
	if f.principalErr != nil {
		return nil, f.principalErr
	}
	principal, ok := f.principals[identityID]
	if !ok {
		return nil, remoteStatus(http.MethodGet, "/identityPrincipals/"+identityID, http.StatusNotFound)
	}
	cp := *principal
	return &cp, nil
}

func (f *fakeAPI) PutUserPrincipal(_ context.Context, principal, identityID, role string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("PutUserPrincipal")
	f.puts = append(f.puts, principalPut{Principal: principal, IdentityID: identityID, Role: role})
	f.principals[identityID] = &IdentityPrincipal{PrincipalID: principal, Roles: []string{role}}
	return nil
}

func (f *fakeAPI) DeleteUserPrincipal(_ context.Context, principal string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DeleteUserPrincipal")
	f.deletions = append(f.deletions, principal)
	for id, p := range f.principals {
		if p.PrincipalID == principal {
			delete(f.principals, id)
		}
	}
	return nil
}
