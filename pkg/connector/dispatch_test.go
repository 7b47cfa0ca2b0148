package connector

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConnector struct {
	calls  []string
	report *ValidationReport
	err    error

	createInput AccountCreateInput
	updateInput AccountUpdateInput
	readInput   EntitlementReadInput
}

func (f *fakeConnector) Name() string { return "fake" }

func (f *fakeConnector) TestConnection(context.Context) (*ValidationReport, error) {
	f.calls = append(f.calls, "test")
	if f.report == nil {
		return &ValidationReport{Connector: "fake"}, f.err
	}
	return f.report, f.err
}

func (f *fakeConnector) ListAccounts(ctx context.Context, emit Emitter) error {
	f.calls = append(f.calls, "list-accounts")
	for _, id := range []string{"a", "b"} {
		if err := emit.Send(ctx, &Account{Identity: id}); err != nil {
			return err
		}
	}
	return f.err
}

func (f *fakeConnector) ReadAccount(_ context.Context, identity string) (*Account, error) {
	f.calls = append(f.calls, "read:"+identity)
	return &Account{Identity: identity}, f.err
}

func (f *fakeConnector) CreateAccount(_ context.Context, in AccountCreateInput) (*Account, error) {
	f.calls = append(f.calls, "create")
	f.createInput = in
	return &Account{Identity: "new"}, f.err
}

func (f *fakeConnector) UpdateAccount(_ context.Context, in AccountUpdateInput) (*Account, error) {
	f.calls = append(f.calls, "update:"+in.Identity)
	f.updateInput = in
	return &Account{Identity: in.Identity}, f.err
}

func (f *fakeConnector) EnableAccount(_ context.Context, identity string) (*Account, error) {
	f.calls = append(f.calls, "enable:"+identity)
	return &Account{Identity: identity}, f.err
}

func (f *fakeConnector) DisableAccount(_ context.Context, identity string) (*Account, error) {
	f.calls = append(f.calls, "disable:"+identity)
	return &Account{Identity: identity}, f.err
}

func (f *fakeConnector) ListEntitlements(ctx context.Context, emit Emitter) error {
	f.calls = append(f.calls, "list-entitlements")
	return emit.Send(ctx, &Group{Identity: "g"})
}

func (f *fakeConnector) ReadEntitlement(_ context.Context, in EntitlementReadInput) (*Group, error) {
	f.calls = append(f.calls, "read-entitlement:"+in.Identity)
	f.readInput = in
	return &Group{Identity: in.Identity}, f.err
}

func command(t *testing.T, typ CommandType, input interface{}) Command {
	t.Helper()
	cmd := Command{Type: typ}
	if input != nil {
		raw, err := json.Marshal(input)
		require.NoError(t, err)
		cmd.Input = raw
	}
	return cmd
}

func TestExecuteRoutesCommands(t *testing.T) {
	tests := []struct {
		name      string
		cmd       Command
		wantCall  string
		wantCount int
	}{
		{"test connection", Command{Type: CommandTestConnection}, "test", 1},
		{"list accounts", Command{Type: CommandAccountList}, "list-accounts", 2},
		{"read account", command(t, CommandAccountRead, AccountReadInput{Identity: "id-1"}), "read:id-1", 1},
		{"create account", command(t, CommandAccountCreate, AccountCreateInput{Attributes: map[string]interface{}{"firstName": "A"}}), "create", 1},
		{"update account", command(t, CommandAccountUpdate, AccountUpdateInput{Identity: "id-1"}), "update:id-1", 1},
		{"enable account", command(t, CommandAccountEnable, AccountReadInput{Identity: "id-1"}), "enable:id-1", 1},
		{"disable account", command(t, CommandAccountDisable, AccountReadInput{Identity: "id-1"}), "disable:id-1", 1},
		{"list entitlements", Command{Type: CommandEntitlementList}, "list-entitlements", 1},
		{"read entitlement", command(t, CommandEntitlementRead, EntitlementReadInput{Identity: "Parking"}), "read-entitlement:Parking", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := &fakeConnector{}
			out := &Collector{}

			require.NoError(t, Execute(context.Background(), fc, tt.cmd, out))
			assert.Equal(t, []string{tt.wantCall}, fc.calls)
			assert.Len(t, out.Records, tt.wantCount)
		})
	}
}

func TestExecuteTestConnectionEmitsEmptyObject(t *testing.T) {
	out := &Collector{}
	require.NoError(t, Execute(context.Background(), &fakeConnector{}, Command{Type: CommandTestConnection}, out))

	require.Len(t, out.Records, 1)
	raw, err := json.Marshal(out.Records[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(raw))
}

func TestExecuteTestConnectionFailedCheck(t *testing.T) {
	fc := &fakeConnector{report: &ValidationReport{
		Connector: "fake",
		Checks: []ValidationCheck{{
			ID:       "token",
			Name:     "Token Exchange",
			Status:   CheckStatusFailed,
			Severity: SeverityCritical,
			Err:      errors.New("401"),
		}},
	}}
	out := &Collector{}

	err := Execute(context.Background(), fc, Command{Type: CommandTestConnection}, out)
	require.Error(t, err)
	assert.True(t, IsCategory(err, ErrCategoryConnectivity))
	assert.Empty(t, out.Records)
}

func TestExecuteDecodesUpdateChanges(t *testing.T) {
	fc := &fakeConnector{}
	cmd := Command{
		Type:  CommandAccountUpdate,
		Input: json.RawMessage(`{"identity":"id-1","changes":[{"op":"Add","attribute":"roles","value":["x","y"]}]}`),
	}

	require.NoError(t, Execute(context.Background(), fc, cmd, &Collector{}))
	require.Len(t, fc.updateInput.Changes, 1)
	change := fc.updateInput.Changes[0]
	assert.Equal(t, ChangeOpAdd, change.Op)
	assert.Equal(t, []interface{}{"x", "y"}, change.Values())
}

func TestExecuteErrors(t *testing.T) {
	tests := []struct {
		name     string
		cmd      Command
		category ErrorCategory
	}{
		{"unknown type", Command{Type: "std:account:delete"}, ErrCategoryUnsupported},
		{"missing identity", Command{Type: CommandAccountRead}, ErrCategoryValidation},
		{"malformed input", Command{Type: CommandAccountRead, Input: json.RawMessage(`{"identity":`)}, ErrCategoryValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Execute(context.Background(), &fakeConnector{}, tt.cmd, &Collector{})
			require.Error(t, err)
			assert.Equal(t, tt.category, CategoryOf(err))
		})
	}
}

func TestDispatcherAnnotatesErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	fc := &fakeConnector{err: ErrRemote("rejected")}
	d := NewDispatcher("fake", WithConnector(fc), WithLogger(logger))

	err := d.Dispatch(context.Background(), command(t, CommandAccountRead, AccountReadInput{Identity: "x"}), &Collector{})
	require.Error(t, err)

	var cErr *ConnectorError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "fake", cErr.Connector)
	assert.Equal(t, string(CommandAccountRead), cErr.Operation)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.WarnLevel, entry.Level)
	assert.Equal(t, CommandAccountRead, entry.Data["command"])
	assert.NotEmpty(t, entry.Data["invocation"])
}

func TestDispatcherWrapsForeignErrors(t *testing.T) {
	logger, _ := test.NewNullLogger()
	fc := &fakeConnector{err: errors.New("socket closed")}
	d := NewDispatcher("fake", WithConnector(fc), WithLogger(logger))

	err := d.Dispatch(context.Background(), Command{Type: CommandAccountList}, &Collector{})
	assert.True(t, IsCategory(err, ErrCategoryInternal))
}

func TestDispatcherBuildsConnectorFromRegistry(t *testing.T) {
	logger, _ := test.NewNullLogger()
	r := NewRegistry()

	var configs []map[string]interface{}
	require.NoError(t, r.Register(FactoryFunc{
		ConnectorName: "fake",
		Fn: func(_ context.Context, config map[string]interface{}) (Connector, error) {
			configs = append(configs, config)
			return &fakeConnector{}, nil
		},
	}))

	d := NewDispatcher("fake",
		WithRegistry(r),
		WithLogger(logger),
		WithConfig(map[string]interface{}{"environment": "production", "accountId": "a"}),
	)

	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, Command{Type: CommandEntitlementList}, &Collector{}))
	require.NoError(t, d.Dispatch(ctx, Command{Type: CommandEntitlementList}, &Collector{}))
	require.Len(t, configs, 1, "commands without config share one connector")

	cmd := Command{Type: CommandEntitlementList, Config: map[string]interface{}{"environment": "europe"}}
	require.NoError(t, d.Dispatch(ctx, cmd, &Collector{}))
	require.Len(t, configs, 2)
	assert.Equal(t, "europe", configs[1]["environment"])
	assert.Equal(t, "a", configs[1]["accountId"])
}

func TestDispatcherWithoutConfig(t *testing.T) {
	logger, _ := test.NewNullLogger()
	d := NewDispatcher("fake", WithRegistry(NewRegistry()), WithLogger(logger))

	err := d.Dispatch(context.Background(), Command{Type: CommandAccountList}, &Collector{})
	assert.True(t, IsCategory(err, ErrCategoryValidation))
}
