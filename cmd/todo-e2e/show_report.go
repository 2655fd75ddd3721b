package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gotodo/todo-e2e/internal/report"
)

func newReportCmd(configFile func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "report [report.yaml]",
		Short: "Print the summary of a saved run report",
		Long: `Report reads a report.yaml written by 'todo-e2e run' and prints its summary.
Without an argument it reads report.yaml from the configured artifacts directory.
The exit status is non-zero when the report recorded a failed run.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				cfg, err := loadConfig(cmd, configFile(), nil)
				if err != nil {
					return err
				}
				path = filepath.Join(cfg.Artifacts.Dir, report.ReportFile)
			}

			rep, err := report.LoadYAML(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Report of %s, generated %s by todo-e2e %s\n",
				rep.BaseURL, rep.Generated.Local().Format("2006-01-02 15:04:05"), rep.Tool.Version)
			printSummary(out, rep)
			if !rep.Passed {
				return errFailed
			}
			return nil
		},
	}
}
