package connector

import (
	"encoding/json"
	"fmt"
)

// CommandType identifies a lifecycle command sent by the governance platform.
type CommandType string

const (
	CommandTestConnection  CommandType = "std:test-connection"
	CommandAccountList     CommandType = "std:account:list"
	CommandAccountRead     CommandType = "std:account:read"
	CommandAccountCreate   CommandType = "std:account:create"
	CommandAccountUpdate   CommandType = "std:account:update"
	CommandAccountEnable   CommandType = "std:account:enable"
	CommandAccountDisable  CommandType = "std:account:disable"
	CommandEntitlementList CommandType = "std:entitlement:list"
	CommandEntitlementRead CommandType = "std:entitlement:read"
)

// Commands lists every command a Connector serves, in dispatch table order.
var Commands = []CommandType{
	CommandTestConnection,
	CommandAccountList,
	CommandAccountRead,
	CommandAccountCreate,
	CommandAccountUpdate,
	CommandAccountEnable,
	CommandAccountDisable,
	CommandEntitlementList,
	CommandEntitlementRead,
}

// Command is the envelope the host posts for one lifecycle call.
type Command struct {
	// Type selects the operation.
	Type CommandType `json:"type"`

	// Input is the operation-specific input document.
	Input json.RawMessage `json:"input,omitempty"`

	// Config is the connector configuration. It is optional when the
	// connector was already built from a config file.
	Config map[string]interface{} `json:"config,omitempty"`
}

// Account is the flat account record emitted to the governance platform.
type Account struct {
	// Identity is the stable remote identifier.
	Identity string `json:"identity"`

	// UUID is the display name. It is not guaranteed to be stable across renames.
	UUID string `json:"uuid"`

	// Attributes holds the projected account attributes.
	Attributes AccountAttributes `json:"attributes"`
}

// AccountAttributes is the flat attribute set of an Account.
type AccountAttributes struct {
	IdentityID             string   `json:"identityId"`
	FirstName              string   `json:"firstName,omitempty"`
	LastName               string   `json:"lastName,omitempty"`
	DisplayName            string   `json:"displayName,omitempty"`
	Description            string   `json:"description,omitempty"`
	Email                  string   `json:"email,omitempty"`
	SecondaryEmail         string   `json:"secondaryEmail,omitempty"`
	PhoneNumberPrimary     string   `json:"phoneNumberPrimary,omitempty"`
	CountryCode            string   `json:"countryCode,omitempty"`
	Status                 string   `json:"status,omitempty"`
	EmployeeNumber         string   `json:"employeeNumber,omitempty"`
	DepartmentName         string   `json:"departmentName,omitempty"`
	JobTitle               string   `json:"jobTitle,omitempty"`
	CompanyName            string   `json:"companyName,omitempty"`
	ApproverID             string   `json:"approverId,omitempty"`
	ProvisioningAttributes []string `json:"provisioningAttributes"`
	ETag                   string   `json:"eTag,omitempty"`
	Roles                  []string `json:"roles"`
}

// Group is the flat entitlement record emitted to the governance platform.
type Group struct {
	Identity   string          `json:"identity"`
	UUID       string          `json:"uuid"`
	Type       string          `json:"type"`
	Attributes GroupAttributes `json:"attributes"`
}

// GroupAttributes is the flat attribute set of a Group.
type GroupAttributes struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	Type        string `json:"type"`
}

// Entitlement kinds carried in GroupAttributes.Type.
const (
	EntitlementRole                  = "Role"
	EntitlementProvisioningAttribute = "Provisioning Attribute"
	EntitlementPrincipalRole         = "Principal Role"
)

// GroupObjectType is the entitlement object type reported in Group.Type.
const GroupObjectType = "group"

// Account status values.
const (
	StatusActive   = "Active"
	StatusInactive = "Inactive"
)

// TestConnectionOutput is the empty success payload of a connection test.
type TestConnectionOutput struct{}

// AccountReadInput identifies one account.
type AccountReadInput struct {
	Identity string `json:"identity"`
}

// EntitlementReadInput identifies one entitlement.
type EntitlementReadInput struct {
	Identity string `json:"identity"`
	Type     string `json:"type,omitempty"`
}

// AccountCreateInput carries the attributes of a new account. The "roles"
// attribute, when present, lists role tokens to grant after creation.
type AccountCreateInput struct {
	Identity   string                 `json:"identity,omitempty"`
	Attributes map[string]interface{} `json:"attributes"`
}

// AccountUpdateInput carries the attribute changes for one account.
type AccountUpdateInput struct {
	Identity string            `json:"identity"`
	Changes  []AttributeChange `json:"changes"`
}

// ChangeOp is the operation of an AttributeChange.
type ChangeOp string

const (
	ChangeOpAdd    ChangeOp = "Add"
	ChangeOpRemove ChangeOp = "Remove"
	ChangeOpSet    ChangeOp = "Set"
)

// AttributeChange is one requested modification. Value may be a single
// value or a list of values.
type AttributeChange struct {
	Op        ChangeOp    `json:"op"`
	Attribute string      `json:"attribute"`
	Value     interface{} `json:"value"`
}

// Values returns the change value as a list. A nil value yields no items.
func (c AttributeChange) Values() []interface{} {
	return ValueList(c.Value)
}

// ValueList normalizes a single-or-multi value into a list.
func ValueList(v interface{}) []interface{} {
	switch vv := v.(type) {
	case nil:
		return nil
	case []interface{}:
		return vv
	case []string:
		out := make([]interface{}, 0, len(vv))
		for _, s := range vv {
			out = append(out, s)
		}
		return out
	default:
		return []interface{}{v}
	}
}

// StringValue asserts that a change value is a string.
func StringValue(attribute string, v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", ErrValidation(fmt.Sprintf("attribute %q expects string values, got %T", attribute, v))
	}
	return s, nil
}
