package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Dispatcher routes command envelopes to a Connector.
type Dispatcher struct {
	registry *Registry
	name     string
	config   map[string]interface{}
	log      logrus.FieldLogger
	newID    func() string

	mu        sync.Mutex
	connector Connector
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithRegistry sets the connector registry.
func WithRegistry(r *Registry) DispatcherOption {
	return func(d *Dispatcher) {
		d.registry = r
	}
}

// WithConfig sets the base connector configuration, typically loaded from a
// config file. Command envelopes may override individual keys.
func WithConfig(config map[string]interface{}) DispatcherOption {
	return func(d *Dispatcher) {
		d.config = config
	}
}

// WithConnector uses an already built connector for commands that carry no
// configuration of their own.
func WithConnector(c Connector) DispatcherOption {
	return func(d *Dispatcher) {
		d.connector = c
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) DispatcherOption {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// NewDispatcher creates a Dispatcher for the named connector.
func NewDispatcher(name string, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: DefaultRegistry,
		name:     name,
		log:      logrus.StandardLogger(),
		newID:    uuid.NewString,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Name returns the connector name the dispatcher serves.
func (d *Dispatcher) Name() string {
	return d.name
}

// Connector returns the connector for a command. Commands without their own
// configuration share one connector, and with it one cached credential.
func (d *Dispatcher) Connector(ctx context.Context, cmd Command) (Connector, error) {
	if len(cmd.Config) > 0 {
		return d.registry.Create(ctx, d.name, mergeConfig(d.config, cmd.Config))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connector != nil {
		return d.connector, nil
	}
	if d.config == nil {
		return nil, ErrValidation("no connector configuration supplied").WithConnector(d.name)
	}
	c, err := d.registry.Create(ctx, d.name, d.config)
	if err != nil {
		return nil, err
	}
	d.connector = c
	return c, nil
}

// Dispatch resolves the connector for cmd and executes it, streaming output
// records to emit.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd Command, emit Emitter) error {
	log := d.log.WithFields(logrus.Fields{
		"connector":  d.name,
		"command":    cmd.Type,
		"invocation": d.newID(),
	})
	start := time.Now()
	log.Info("dispatching command")

	c, err := d.Connector(ctx, cmd)
	if err == nil {
		err = Execute(ctx, c, cmd, emit)
	}
	if err != nil {
		err = annotate(err, d.name, cmd.Type)
		log.WithError(err).WithField("category", CategoryOf(err)).Warn("command failed")
		return err
	}

	log.WithField("duration", time.Since(start).String()).Info("command completed")
	return nil
}

// Execute runs one command against c. List commands stream their records;
// every other command emits exactly one record.
func Execute(ctx context.Context, c Connector, cmd Command, emit Emitter) error {
	switch cmd.Type {
	case CommandTestConnection:
		report, err := c.TestConnection(ctx)
		if err != nil {
			return err
		}
		if err := report.Err(); err != nil {
			return err
		}
		return emit.Send(ctx, TestConnectionOutput{})

	case CommandAccountList:
		return c.ListAccounts(ctx, emit)

	case CommandAccountRead:
		var in AccountReadInput
		if err := decodeInput(cmd, &in); err != nil {
			return err
		}
		if in.Identity == "" {
			return ErrValidation("identity is required")
		}
		return emitOne(ctx, emit, func() (interface{}, error) { return c.ReadAccount(ctx, in.Identity) })

	case CommandAccountCreate:
		var in AccountCreateInput
		if err := decodeInput(cmd, &in); err != nil {
			return err
		}
		return emitOne(ctx, emit, func() (interface{}, error) { return c.CreateAccount(ctx, in) })

	case CommandAccountUpdate:
		var in AccountUpdateInput
		if err := decodeInput(cmd, &in); err != nil {
			return err
		}
		if in.Identity == "" {
			return ErrValidation("identity is required")
		}
		return emitOne(ctx, emit, func() (interface{}, error) { return c.UpdateAccount(ctx, in) })

	case CommandAccountEnable, CommandAccountDisable:
		var in AccountReadInput
		if err := decodeInput(cmd, &in); err != nil {
			return err
		}
		if in.Identity == "" {
			return ErrValidation("identity is required")
		}
		if cmd.Type == CommandAccountEnable {
			return emitOne(ctx, emit, func() (interface{}, error) { return c.EnableAccount(ctx, in.Identity) })
		}
		return emitOne(ctx, emit, func() (interface{}, error) { return c.DisableAccount(ctx, in.Identity) })

	case CommandEntitlementList:
		return c.ListEntitlements(ctx, emit)

	case CommandEntitlementRead:
		var in EntitlementReadInput
		if err := decodeInput(cmd, &in); err != nil {
			return err
		}
		if in.Identity == "" {
			return ErrValidation("identity is required")
		}
		return emitOne(ctx, emit, func() (interface{}, error) { return c.ReadEntitlement(ctx, in) })
	}

	return ErrUnsupported(fmt.Sprintf("unsupported command type: %q", cmd.Type))
}

func emitOne(ctx context.Context, emit Emitter, fn func() (interface{}, error)) error {
	record, err := fn()
	if err != nil {
		return err
	}
	return emit.Send(ctx, record)
}

func decodeInput(cmd Command, v interface{}) error {
	raw := bytes.TrimSpace(cmd.Input)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return ErrValidation(fmt.Sprintf("invalid input for %s", cmd.Type)).WithCause(err)
	}
	return nil
}

// annotate fills connector and operation context on the outermost
// ConnectorError, wrapping foreign errors as internal.
func annotate(err error, name string, op CommandType) error {
	var cErr *ConnectorError
	if !errors.As(err, &cErr) {
		return ErrInternal("command failed").WithConnector(name).WithOperation(string(op)).WithCause(err)
	}
	if cErr.Connector == "" {
		cErr.Connector = name
	}
	if cErr.Operation == "" {
		cErr.Operation = string(op)
	}
	return err
}

func mergeConfig(base, override map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
