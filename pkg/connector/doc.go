// Package connector provides the lifecycle contract between an
// identity-governance platform and an identity source.
//
// # Overview
//
// A Connector serves a fixed set of commands: test connection, list, read,
// create, update, enable and disable accounts, and list and read
// entitlements. The host sends each command as a Command envelope with a
// type, an input document and an optional configuration map.
//
// # Core Concepts
//
// ## Connectors and Factories
//
// Connector packages register a Factory with the DefaultRegistry from an
// init() function. The host selects the connector by name and the factory
// builds it from a configuration map.
//
// ## Dispatch
//
// A Dispatcher decodes command input, calls the matching Connector method
// and forwards results to an Emitter. List commands stream one record per
// item; every other command emits exactly one record.
//
// ## Errors
//
// Failures are returned as *ConnectorError values carrying a category
// (connectivity, validation, unsupported, remote, pagination, not_found,
// internal) so hosts can map them to their own status codes.
//
// # Usage
//
//	config, err := connector.LoadConfigFile("clearid.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d := connector.NewDispatcher("clearid", connector.WithConfig(config))
//	err = d.Dispatch(ctx, connector.Command{Type: connector.CommandAccountList}, emitter)
//
// # Extension
//
// New connectors implement the Connector interface and register a Factory
// via connector.Register() or connector.MustRegister() in an init() function.
package connector
