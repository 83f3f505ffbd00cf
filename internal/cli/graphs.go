package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/specialistvlad/promptgridgo/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errMissingProject = errors.New("missing project path: pass files or directories, or set projectPaths")

func newGraphsCommand(opts *Options, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "graphs [project paths...]",
		Short: "List the graphs of a project",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, g, func(c *config.Config, _ *pflag.FlagSet) {
				if len(args) > 0 {
					c.ProjectPaths = args
				}
			})
			if err != nil {
				return err
			}
			if len(cfg.ProjectPaths) == 0 {
				return usageError(errMissingProject)
			}

			project, err := newApp(opts, cfg).LoadProject(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tNODES\tMAIN")
			for _, id := range project.GraphIDs() {
				gr := project.Graphs[id]
				main := ""
				if id == project.MainGraphID {
					main = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", id, gr.Name, len(gr.Nodes), main)
			}
			return w.Flush()
		},
	}
}
