package cli

import (
	"fmt"

	"github.com/specialistvlad/promptgridgo/internal/app"
	"github.com/specialistvlad/promptgridgo/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// globalFlags are shared by every command.
type globalFlags struct {
	configFile      string
	logLevel        string
	logFormat       string
	healthcheckPort int
	metricsPort     int
	remoteDebugger  string
}

// NewRootCommand builds the promptgridgo command tree.
func NewRootCommand(opts *Options) *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:   "promptgridgo",
		Short: "promptgridgo - a concurrent dataflow graph runner",
		Long: `promptgridgo executes dataflow graphs declared in HCL project files.
Nodes run as soon as their inputs are ready; branches, loops, sub-graphs and
user input are part of the graph itself.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := cmd.PersistentFlags()
	pf.StringVar(&g.configFile, "config", "", "Path to a YAML config file.")
	pf.StringVar(&g.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&g.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.IntVar(&g.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	pf.IntVar(&g.metricsPort, "metrics-port", 0, "Port for the Prometheus metrics endpoint. 0 is disabled.")
	pf.StringVar(&g.remoteDebugger, "remote-debugger", "", "socket.io URL of a remote debugger to relay events to.")

	cmd.AddCommand(
		newRunCommand(opts, g),
		newGraphsCommand(opts, g),
		newRecordingsCommand(opts, g),
		newReplayCommand(opts, g),
	)
	return cmd
}

// resolveConfig layers defaults, the config file, the environment and the
// flags that were set explicitly, in that order.
func resolveConfig(cmd *cobra.Command, opts *Options, g *globalFlags, apply func(*config.Config, *pflag.FlagSet)) (config.Config, error) {
	cfg := config.Default()
	if g.configFile != "" {
		if err := config.LoadFile(&cfg, g.configFile); err != nil {
			return cfg, usageError(err)
		}
	}
	if err := config.ApplyEnv(&cfg, opts.Lookup); err != nil {
		return cfg, usageError(err)
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = g.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = g.logFormat
	}
	if flags.Changed("healthcheck-port") {
		cfg.HealthcheckPort = g.healthcheckPort
	}
	if flags.Changed("metrics-port") {
		cfg.MetricsPort = g.metricsPort
	}
	if flags.Changed("remote-debugger") {
		cfg.RemoteDebuggerURL = g.remoteDebugger
	}
	if apply != nil {
		apply(&cfg, flags)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, usageError(err)
	}
	return cfg, nil
}

func newApp(opts *Options, cfg config.Config) *app.App {
	a := app.NewApp(opts.Out, opts.Err, cfg, opts.Modules...)
	if opts.Env != nil {
		a.SetEnv(opts.Env)
	}
	return a
}

func requireArgs(n int, what string) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return usageError(fmt.Errorf("missing %s", what))
		}
		return nil
	}
}
