package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/emailclean/internal/history"
	"github.com/JonMunkholm/emailclean/internal/pipeline"
	"github.com/JonMunkholm/emailclean/internal/report"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs",
		Long: `List recorded runs, newest first, or show the report of one run.

Runs are read from the HISTORY_DRIVER store. With the default memory
store nothing outlives the process, so use sqlite or postgres to keep
history between invocations.

Examples:
  HISTORY_DRIVER=sqlite HISTORY_DSN=runs.db emailclean history
  HISTORY_DRIVER=sqlite HISTORY_DSN=runs.db emailclean history 3f0c...`,
		Args: args(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, argv []string) error {
			ctx := cmd.Context()

			store, err := history.Open(ctx, a.cfg.Store.Driver, a.cfg.Store.DSN, a.cfg.Store.PoolConfig())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if len(argv) == 1 {
				id, err := uuid.Parse(argv[0])
				if err != nil {
					return usageError{fmt.Errorf("invalid run id %q: %w", argv[0], err)}
				}
				run, err := store.Get(ctx, id)
				if err != nil {
					return err
				}
				printRun(a.stdout, a.noColor, run)
				return nil
			}

			runs, err := store.List(ctx, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(a.stdout, "No runs recorded.")
				return nil
			}
			return printRuns(a.stdout, runs)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list (0 lists all)")
	return cmd
}

func printRuns(w io.Writer, runs []history.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tSOURCE\tFILE\tSTATUS\tINPUT\tKEPT\tREMOVED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Source,
			r.FileName,
			r.Status,
			r.Input,
			r.Kept,
			r.Removed,
		)
	}
	return tw.Flush()
}

// printRun prints one run's summary followed by its stage report.
func printRun(w io.Writer, noColor bool, run history.Run) {
	fmt.Fprintf(w, "Run %s\n", run.ID)
	fmt.Fprintf(w, "%-28s %s\n", "File", run.FileName)
	fmt.Fprintf(w, "%-28s %s\n", "Source", run.Source)
	fmt.Fprintf(w, "%-28s %s\n", "Started", run.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(w, "%-28s %s\n\n", "Duration", run.Duration().Round(time.Millisecond))

	if run.Status == history.StatusFailed {
		failed := color.New(color.FgRed)
		if noColor {
			failed.DisableColor()
		}
		failed.Fprintf(w, "Failed: %s\n", run.Error)
		return
	}

	p := report.NewPrinter(w, noColor)
	// History keeps counts only, so no removed addresses are listed.
	p.Summary(pipeline.Result{Report: run.Report})
}
