package connector

import (
	"context"
)

// Connector is the lifecycle surface of an identity source. Each method
// serves exactly one command and performs its remote calls sequentially.
//
// List operations stream their records through an Emitter after the
// underlying collection has been fully read. Every other operation returns a
// single record.
type Connector interface {
	// Name returns the registered connector name.
	Name() string

	// TestConnection verifies that credentials can be exchanged and the
	// remote service is reachable.
	TestConnection(ctx context.Context) (*ValidationReport, error)

	// ListAccounts emits every non-deleted account.
	ListAccounts(ctx context.Context, emit Emitter) error

	// ReadAccount returns the full projection of one account, roles included.
	ReadAccount(ctx context.Context, identity string) (*Account, error)

	// CreateAccount creates an account and grants the requested roles.
	CreateAccount(ctx context.Context, input AccountCreateInput) (*Account, error)

	// UpdateAccount applies attribute changes one value at a time.
	UpdateAccount(ctx context.Context, input AccountUpdateInput) (*Account, error)

	// EnableAccount sets the account status to Active.
	EnableAccount(ctx context.Context, identity string) (*Account, error)

	// DisableAccount sets the account status to Inactive.
	DisableAccount(ctx context.Context, identity string) (*Account, error)

	// ListEntitlements emits every entitlement the connector can grant.
	ListEntitlements(ctx context.Context, emit Emitter) error

	// ReadEntitlement returns one entitlement.
	ReadEntitlement(ctx context.Context, input EntitlementReadInput) (*Group, error)
}

// Emitter receives output records in order.
type Emitter interface {
	Send(ctx context.Context, record interface{}) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, record interface{}) error

// Send implements Emitter.
func (f EmitterFunc) Send(ctx context.Context, record interface{}) error {
	return f(ctx, record)
}

// Collector is an Emitter that keeps every record in memory.
type Collector struct {
	Records []interface{}
}

// Send implements Emitter.
func (c *Collector) Send(_ context.Context, record interface{}) error {
	c.Records = append(c.Records, record)
	return nil
}

// Factory builds a Connector from a host-supplied configuration map.
type Factory interface {
	// Name returns the connector name this factory builds.
	Name() string

	// Create builds a configured Connector.
	Create(ctx context.Context, config map[string]interface{}) (Connector, error)
}

// FactoryFunc adapts a named function to the Factory interface.
type FactoryFunc struct {
	ConnectorName string
	Fn            func(ctx context.Context, config map[string]interface{}) (Connector, error)
}

// Name implements Factory.
func (f FactoryFunc) Name() string { return f.ConnectorName }

// Create implements Factory.
func (f FactoryFunc) Create(ctx context.Context, config map[string]interface{}) (Connector, error) {
	return f.Fn(ctx, config)
}
