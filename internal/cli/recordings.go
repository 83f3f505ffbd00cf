package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/specialistvlad/promptgridgo/internal/config"
	"github.com/specialistvlad/promptgridgo/internal/graph"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var errMissingDB = errors.New("missing --db: the recording database is required")

func dbConfig(db *string) func(*config.Config, *pflag.FlagSet) {
	return func(c *config.Config, flags *pflag.FlagSet) {
		if flags.Changed("db") {
			c.RecordingDB = *db
		}
	}
}

func newRecordingsCommand(opts *Options, g *globalFlags) *cobra.Command {
	var db, graphID string
	cmd := &cobra.Command{
		Use:   "recordings",
		Short: "Inspect recorded runs",
	}
	cmd.PersistentFlags().StringVar(&db, "db", "", "SQLite database holding the recordings.")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd, opts, g, dbConfig(&db))
			if err != nil {
				return err
			}
			if cfg.RecordingDB == "" {
				return usageError(errMissingDB)
			}
			summaries, err := newApp(opts, cfg).Recordings(cmd.Context(), graph.GraphID(graphID))
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN\tGRAPH\tSTARTED\tSTATE")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.RunID, s.GraphID, s.StartedAt.Format(time.RFC3339), s.State)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&graphID, "graph", "", "Only list runs of this graph id.")

	show := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Print a recorded run as JSON",
		Args:  requireArgs(1, "RUN_ID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, g, dbConfig(&db))
			if err != nil {
				return err
			}
			if cfg.RecordingDB == "" {
				return usageError(errMissingDB)
			}
			rec, err := newApp(opts, cfg).Recording(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func newReplayCommand(opts *Options, g *globalFlags) *cobra.Command {
	var (
		db      string
		latency time.Duration
	)
	cmd := &cobra.Command{
		Use:   "replay RUN_ID",
		Short: "Play a recorded run back as JSON event lines",
		Args:  requireArgs(1, "RUN_ID"),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, opts, g, func(c *config.Config, flags *pflag.FlagSet) {
				dbConfig(&db)(c, flags)
				if flags.Changed("latency") {
					c.Settings.RecordingPlaybackLatency = latency
				}
			})
			if err != nil {
				return err
			}
			if cfg.RecordingDB == "" {
				return usageError(errMissingDB)
			}
			return newApp(opts, cfg).Replay(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVar(&db, "db", "", "SQLite database holding the recordings.")
	cmd.Flags().DurationVar(&latency, "latency", 0, "Fixed delay between replayed events.")
	return cmd
}
