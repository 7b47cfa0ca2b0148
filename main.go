// Package main is the entry point for the clearid-connector CLI.
//
// The CLI runs identity connector lifecycle commands against ClearID, either
// one at a time from the command line or as an HTTP service for a governance
// platform host.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/anirudhbiyani/clearid-connector/pkg/connector"
	"github.com/anirudhbiyani/clearid-connector/pkg/logging"
	"github.com/anirudhbiyani/clearid-connector/pkg/server"

	// Import connectors to register them
	_ "github.com/anirudhbiyani/clearid-connector/pkg/providers/clearid"
)

const (
	exitError           = 1
	exitValidationError = 2
)

var version = "0.1.0"

type globalOpts struct {
	configPath    string
	connectorName string
	logLevel      string
	logFormat     string
	pretty        bool
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if connector.IsCategory(err, connector.ErrCategoryValidation) {
			os.Exit(exitValidationError)
		}
		os.Exit(exitError)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOpts{}

	root := &cobra.Command{
		Use:           "clearid-connector",
		Short:         "Identity connector for ClearID",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return logging.Configure(opts.logLevel, opts.logFormat, cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Connector configuration file (YAML or JSON)")
	flags.StringVar(&opts.connectorName, "connector", "clearid", "Connector name")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", logging.FormatText, "Log format (text, json)")
	flags.BoolVar(&opts.pretty, "pretty", false, "Indent output records")

	root.AddCommand(
		newTestConnectionCmd(opts),
		newAccountsCmd(opts),
		newEntitlementsCmd(opts),
		newRunCmd(opts),
		newServeCmd(opts),
		newConnectorsCmd(),
		newVersionCmd(),
	)
	return root
}

func newTestConnectionCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Verify credentials and reachability",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.dispatcher()
			if err != nil {
				return err
			}
			c, err := d.Connector(cmd.Context(), connector.Command{})
			if err != nil {
				return err
			}

			report, err := c.TestConnection(cmd.Context())
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return report.Err()
		},
	}
}

func newAccountsCmd(opts *globalOpts) *cobra.Command {
	accounts := &cobra.Command{
		Use:   "accounts",
		Short: "Account lifecycle commands",
	}

	var createFile string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account from a JSON input document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := readInput(cmd.InOrStdin(), createFile)
			if err != nil {
				return err
			}
			return opts.dispatch(cmd, connector.CommandAccountCreate, input)
		},
	}
	create.Flags().StringVarP(&createFile, "file", "f", "-", "Input document ({\"attributes\": {...}}), - for stdin")

	var updateFile string
	update := &cobra.Command{
		Use:   "update IDENTITY",
		Short: "Apply attribute changes from a JSON document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), updateFile)
			if err != nil {
				return err
			}
			var changes []connector.AttributeChange
			if err := json.Unmarshal(raw, &changes); err != nil {
				return connector.ErrValidation("changes must be a JSON array").WithCause(err)
			}
			return opts.dispatch(cmd, connector.CommandAccountUpdate, connector.AccountUpdateInput{
				Identity: args[0],
				Changes:  changes,
			})
		},
	}
	update.Flags().StringVarP(&updateFile, "file", "f", "-", "Changes array ([{\"op\", \"attribute\", \"value\"}]), - for stdin")

	accounts.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all accounts",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.dispatch(cmd, connector.CommandAccountList, nil)
			},
		},
		identityCmd(opts, "read", "Read one account", connector.CommandAccountRead),
		create,
		update,
		identityCmd(opts, "enable", "Enable an account", connector.CommandAccountEnable),
		identityCmd(opts, "disable", "Disable an account", connector.CommandAccountDisable),
	)
	return accounts
}

func newEntitlementsCmd(opts *globalOpts) *cobra.Command {
	entitlements := &cobra.Command{
		Use:   "entitlements",
		Short: "Entitlement commands",
	}

	var entitlementType string
	read := &cobra.Command{
		Use:   "read IDENTITY",
		Short: "Read one entitlement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.dispatch(cmd, connector.CommandEntitlementRead, connector.EntitlementReadInput{
				Identity: args[0],
				Type:     entitlementType,
			})
		},
	}
	read.Flags().StringVar(&entitlementType, "type", connector.GroupObjectType, "Entitlement type")

	entitlements.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all entitlements",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.dispatch(cmd, connector.CommandEntitlementList, nil)
			},
		},
		read,
	)
	return entitlements
}

func newRunCmd(opts *globalOpts) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a command envelope ({\"type\", \"input\", \"config\"})",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			raw, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			var envelope connector.Command
			if err := json.Unmarshal(raw, &envelope); err != nil {
				return connector.ErrValidation("invalid command envelope").WithCause(err)
			}
			d, err := opts.dispatcher()
			if err != nil {
				return err
			}
			return d.Dispatch(cmd.Context(), envelope, opts.emitter(cmd.OutOrStdout()))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Command envelope file, - for stdin")
	return cmd
}

func newServeCmd(opts *globalOpts) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve commands over HTTP (POST /commands, NDJSON output)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.dispatcher()
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           server.New(d).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logrus.WithField("addr", addr).Info("listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				logrus.Info("shutting down")
				return srv.Shutdown(shutdownCtx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}

func newConnectorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "connectors",
		Short: "List registered connectors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "=== Available Connectors ===")
			for _, name := range connector.ListConnectors() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "clearid-connector version %s\n", version)
			fmt.Fprintf(out, "  Connectors: %s\n", strings.Join(connector.ListConnectors(), ", "))
		},
	}
}

func identityCmd(opts *globalOpts, use, short string, t connector.CommandType) *cobra.Command {
	return &cobra.Command{
		Use:   use + " IDENTITY",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.dispatch(cmd, t, connector.AccountReadInput{Identity: args[0]})
		},
	}
}

// Helper functions

func (o *globalOpts) dispatcher() (*connector.Dispatcher, error) {
	dopts := []connector.DispatcherOption{}
	if o.configPath != "" {
		config, err := connector.LoadConfigFile(o.configPath)
		if err != nil {
			return nil, err
		}
		dopts = append(dopts, connector.WithConfig(config))
	}
	return connector.NewDispatcher(o.connectorName, dopts...), nil
}

func (o *globalOpts) dispatch(cmd *cobra.Command, t connector.CommandType, input interface{}) error {
	d, err := o.dispatcher()
	if err != nil {
		return err
	}

	envelope := connector.Command{Type: t}
	if input != nil {
		switch v := input.(type) {
		case []byte:
			envelope.Input = v
		default:
			raw, err := json.Marshal(v)
			if err != nil {
				return err
			}
			envelope.Input = raw
		}
	}
	return d.Dispatch(cmd.Context(), envelope, o.emitter(cmd.OutOrStdout()))
}

func (o *globalOpts) emitter(w io.Writer) connector.Emitter {
	enc := json.NewEncoder(w)
	if o.pretty {
		enc.SetIndent("", "  ")
	}
	return connector.EmitterFunc(func(_ context.Context, record interface{}) error {
		return enc.Encode(record)
	})
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

func printReport(w io.Writer, report *connector.ValidationReport) {
	fmt.Fprintln(w, "=== Connection Test ===")
	fmt.Fprintf(w, "Connector: %s\n", report.Connector)
	fmt.Fprintf(w, "Valid: %t\n", report.IsValid())
	fmt.Fprintf(w, "Checks: %d passed, %d failed, %d skipped\n",
		report.Summary.PassedChecks,
		report.Summary.FailedChecks,
		report.Summary.SkippedChecks)

	for _, check := range report.Checks {
		status := "✓"
		switch check.Status {
		case connector.CheckStatusFailed:
			status = "✗"
		case connector.CheckStatusSkipped:
			status = "○"
		}

		fmt.Fprintf(w, "\n%s %s [%s]\n", status, check.Name, check.Severity)
		if check.Status == connector.CheckStatusFailed && check.Remediation != "" {
			fmt.Fprintf(w, "  Remediation: %s\n", check.Remediation)
		}
	}
}
