package cli

import (
	"github.com/specialistvlad/promptgridgo/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type runFlags struct {
	graph          string
	inputs         []string
	context        []string
	record         string
	traceStdout    bool
	maxConcurrency int
	httpRateLimit  float64
	nativeRoot     string
}

func newRunCommand(opts *Options, g *globalFlags) *cobra.Command {
	f := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run [project paths...]",
		Short: "Run a graph and print its outputs as JSON",
		Example: `  promptgridgo run ./project --graph main --input name=World
  promptgridgo run main.hcl --record runs.db --trace-stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var assignErr error
			cfg, err := resolveConfig(cmd, opts, g, func(c *config.Config, flags *pflag.FlagSet) {
				if len(args) > 0 {
					c.ProjectPaths = args
				}
				if flags.Changed("graph") {
					c.Graph = f.graph
				}
				if flags.Changed("record") {
					c.RecordingDB = f.record
				}
				if flags.Changed("trace-stdout") {
					c.TraceStdout = f.traceStdout
				}
				if flags.Changed("max-concurrency") {
					c.MaxConcurrency = f.maxConcurrency
				}
				if flags.Changed("http-rate-limit") {
					c.HTTPRateLimit = f.httpRateLimit
				}
				if flags.Changed("native-root") {
					c.NativeRoot = f.nativeRoot
				}
				assignErr = mergeAssignments(&c.Inputs, f.inputs)
				if assignErr == nil {
					assignErr = mergeAssignments(&c.Context, f.context)
				}
			})
			if err != nil {
				return err
			}
			if assignErr != nil {
				return usageError(assignErr)
			}
			if len(cfg.ProjectPaths) == 0 {
				return usageError(errMissingProject)
			}

			_, err = newApp(opts, cfg).Run(cmd.Context())
			return err
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.graph, "graph", "g", "", "Id or name of the graph to run. Defaults to the project's main graph.")
	fl.StringArrayVarP(&f.inputs, "input", "i", nil, "Graph input as key=value. Values are parsed as JSON when possible.")
	fl.StringArrayVar(&f.context, "context", nil, "Context value as key=value.")
	fl.StringVar(&f.record, "record", "", "Save the run's events to this SQLite database.")
	fl.BoolVar(&f.traceStdout, "trace-stdout", false, "Print OpenTelemetry spans of the run to stdout.")
	fl.IntVar(&f.maxConcurrency, "max-concurrency", 0, "Maximum number of nodes executing at once. 0 is unlimited.")
	fl.Float64Var(&f.httpRateLimit, "http-rate-limit", 0, "Maximum outgoing HTTP requests per second. 0 is unlimited.")
	fl.StringVar(&f.nativeRoot, "native-root", "", "Directory the file system nodes may access. Empty disables them.")
	return cmd
}

func mergeAssignments(dst *map[string]any, pairs []string) error {
	parsed, err := config.ParseAssignments(pairs)
	if err != nil {
		return err
	}
	if len(parsed) == 0 {
		return nil
	}
	if *dst == nil {
		*dst = make(map[string]any, len(parsed))
	}
	for k, v := range parsed {
		(*dst)[k] = v
	}
	return nil
}
