package clearid

// Identity is a ClearID identity as returned by the identity and search services.
type Identity struct {
	IdentityID  string `json:"identityId"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Description string `json:"description,omitempty"`
	Email       string `json:"email,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
	Status      string `json:"status,omitempty"`
	ETag        string `json:"eTag,omitempty"`
	IsDeleted   bool   `json:"isDeleted,omitempty"`

	PrivateData *PrivateData `json:"privateData,omitempty"`
	CompanyData *CompanyData `json:"companyData,omitempty"`
	SystemData  *SystemData  `json:"systemData,omitempty"`
}

// PrivateData is the private section of an identity.
type PrivateData struct {
	SecondaryEmail     string `json:"secondaryEmail,omitempty"`
	PhoneNumberPrimary string `json:"phoneNumberPrimary,omitempty"`
	EmployeeNumber     string `json:"employeeNumber,omitempty"`
}

// CompanyData is the organizational section of an identity.
type CompanyData struct {
	DepartmentName string     `json:"departmentName,omitempty"`
	JobTitle       string     `json:"jobTitle,omitempty"`
	CompanyName    string     `json:"companyName,omitempty"`
	Approvers      []Approver `json:"approvers,omitempty"`
}

// Approver references an approving identity.
type Approver struct {
	ApproverID string `json:"approverId"`
}

// SystemData is the system section of an identity.
type SystemData struct {
	ProvisioningAttributes []AttributeEntry `json:"provisioningAttributes,omitempty"`
}

// AttributeEntry is one provisioning attribute on an identity.
type AttributeEntry struct {
	Name string `json:"name"`
}

// Team is a ClearID team. Team IDs are the Role entitlements.
type Team struct {
	TeamID      string `json:"teamId"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	IsDeleted   bool   `json:"isDeleted,omitempty"`
}

// IdentityPrincipal is the principal record of an identity.
type IdentityPrincipal struct {
	PrincipalID string   `json:"principalId"`
	Roles       []string `json:"roles"`
}

// Page is one page of a skip/take listing.
type Page[T any] struct {
	TotalItems int `json:"totalItems"`
	Results    []T `json:"results"`
}

// PageRequest is the body of a skip/take listing request.
type PageRequest struct {
	Skip int `json:"skip"`
	Take int `json:"take"`
}

type identityTeams struct {
	Teams []Team `json:"teams"`
}

type teamMember struct {
	IdentityID string `json:"identityId"`
	SourceID   string `json:"sourceId"`
}

type removeTeamMembersRequest struct {
	TeamMembers []teamMember `json:"teamMembers"`
	Reason      string       `json:"reason"`
}

type addTeamMembersRequest struct {
	IdentityIDs []string `json:"identityIds"`
	Reason      string   `json:"reason"`
	SourceID    string   `json:"sourceId"`
}

type userPrincipalRequest struct {
	IdentityID     string   `json:"identityId"`
	Roles          []string `json:"roles"`
	PrincipalState string   `json:"principalState"`
}

// Request constants sent with membership and principal mutations.
const (
	membershipSourceID   = "TeamService"
	mutationReason       = "IdentityNow"
	principalStateActive = "Active"
)

// ProvisioningAttributeNames returns the names of the identity's
// provisioning attributes in remote order.
func (i *Identity) ProvisioningAttributeNames() []string {
	names := []string{}
	if i.SystemData == nil {
		return names
	}
	for _, a := range i.SystemData.ProvisioningAttributes {
		names = append(names, a.Name)
	}
	return names
}
