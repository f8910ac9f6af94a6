// Package cli implements the httpkit command line.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/kbukum/httpkit/config"
	"github.com/kbukum/httpkit/errors"
	"github.com/kbukum/httpkit/httpclient"
	"github.com/kbukum/httpkit/logger"
	"github.com/kbukum/httpkit/observability"
	"github.com/kbukum/httpkit/version"
)

const serviceName = "httpkit"

// app holds the state shared by the subcommands of one invocation.
type app struct {
	configFile   string
	envFile      string
	logLevel     string
	otlpEndpoint string

	cfg      config.ServiceConfig
	metrics  *observability.ClientMetrics
	shutdown func(context.Context) error
}

// NewRootCommand returns the httpkit command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   serviceName,
		Short: "Send HTTP requests through pooled, retrying clients",
		Long: `httpkit sends HTTP requests using the clients, connection pools and retry
policies declared in a configuration file.

  httpkit request GET https://example.com/health
  httpkit request --client users GET users/42
  httpkit uri https://example.com --path "a b" --param q=1
  httpkit config`,
		Version:           version.Get().String(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.InvalidArgument("%v", err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: search ./httpkit.yml, ./config/, user config dir)")
	flags.StringVar(&a.envFile, "env-file", "", ".env file to load")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&a.otlpEndpoint, "otlp-endpoint", "", "OTLP/HTTP collector host:port; enables tracing and metrics")

	root.AddCommand(
		newRequestCommand(a),
		newURICommand(),
		newConfigCommand(a),
		newVersionCommand(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	err := config.Load(serviceName, &a.cfg,
		config.WithConfigFile(a.configFile),
		config.WithEnvFile(a.envFile),
		config.WithDefault("name", serviceName),
		config.WithOverride("logging.level", a.logLevel),
		config.WithOverride("telemetry.endpoint", a.otlpEndpoint),
	)
	if err != nil {
		return err
	}
	logger.Init(a.cfg.Logging)

	a.shutdown, err = observability.Setup(cmd.Context(), a.cfg.Telemetry,
		a.cfg.Name, version.Get().Version, a.cfg.Environment)
	if err != nil {
		return err
	}
	if a.cfg.Telemetry.Enabled() {
		a.metrics, err = observability.NewClientMetrics(observability.Meter(observability.InstrumentationName))
		if err != nil {
			return err
		}
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if a.shutdown == nil {
		return nil
	}
	return a.shutdown(context.WithoutCancel(ctx))
}

// registry builds the client registry from the loaded configuration.
func (a *app) registry() (*httpclient.Registry, error) {
	return a.cfg.NewRegistry(httpclient.WithMetrics(a.metrics))
}

// usage turns argument validation failures into invalid-argument errors.
func usage(args cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, a []string) error {
		if err := args(cmd, a); err != nil {
			return errors.InvalidArgument("%v", err)
		}
		return nil
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}
	root.PrintErrln("Error:", err)
	switch errors.KindOf(err) {
	case errors.KindInvalidArgument:
		return 2
	case errors.KindInterrupted:
		return 130
	}
	return 1
}
