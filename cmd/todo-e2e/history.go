package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/xeonx/timeago"

	"github.com/gotodo/todo-e2e/internal/history"
)

func newHistoryCmd(configFile func() string) *cobra.Command {
	var (
		dbPath string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent scheduled runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := loadConfig(cmd, configFile(), nil)
				if err != nil {
					return err
				}
				dbPath = cfg.Watch.HistoryDB
			}
			if _, err := os.Stat(dbPath); err != nil {
				return fmt.Errorf("no history at %s (run 'todo-e2e watch' first): %w", dbPath, err)
			}

			rec, err := history.Open(dbPath)
			if err != nil {
				return err
			}
			defer rec.Close()

			runs, err := rec.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			sum, err := rec.Summarize(cmd.Context())
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), runs, sum)
			return nil
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "History database (default watch.history_db)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show")
	return cmd
}

func printHistory(out io.Writer, runs []history.Run, sum history.Summary) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tSTARTED\tDURATION\tDRIVER\tFAILURE")
	for _, run := range runs {
		status := "✅ " + run.Status()
		failure := "-"
		if !run.Passed {
			status = "❌ " + run.Status()
			failure = run.FailureKind
			if run.FailedStep.Valid {
				failure = fmt.Sprintf("%s at step %d", run.FailureKind, run.FailedStep.Int64+1)
			}
			if failure == "" {
				failure = history.Excerpt(run.Message, 60)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", status, timeago.English.Format(run.StartedAt), run.Duration(), run.Driver, failure)
	}
	_ = w.Flush()

	rate := 0.0
	if sum.Total > 0 {
		rate = float64(sum.Passed) / float64(sum.Total) * 100
	}
	fmt.Fprintf(out, "\n%d runs recorded, %d passed (%.1f%%)\n", sum.Total, sum.Passed, rate)
}
