package main

import (
	"fmt"
	"io"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/gotodo/todo-e2e/internal/config"
	"github.com/gotodo/todo-e2e/internal/harness"
	"github.com/gotodo/todo-e2e/internal/report"
	"github.com/gotodo/todo-e2e/internal/scenario"
)

func newRunCmd(configFile func() string) *cobra.Command {
	flags := &scenarioFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the to-do scenario once (or --repeat times)",
		Long: `Run opens a browser session, executes the to-do scenario step by step and
stops at the first failing step. Reports and failure screenshots are written
to the artifacts directory. The exit status is non-zero when any run failed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configFile(), flags)
			if err != nil {
				return err
			}
			browserLogger := log.New(cmd.ErrOrStderr(), "[BROWSER] ", log.LstdFlags)
			return runScenario(cmd, cfg, harness.Opener(cfg, browserLogger))
		},
	}
	flags.register(cmd)
	return cmd
}

// runScenario runs the configured scenario with sessions from open and writes
// the reports. Runs finished before a session failed to open are still reported.
func runScenario(cmd *cobra.Command, cfg *config.Config, open scenario.Opener) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := log.New(cmd.ErrOrStderr(), "[SCENARIO] ", log.LstdFlags)
	metrics := report.NewMetrics()

	base, err := harness.ResolveBaseURL(ctx, cfg, log.New(cmd.ErrOrStderr(), "", log.LstdFlags))
	sc := harness.Scenario(cfg, base)

	var results []*scenario.Result
	var openErr error
	if err == nil {
		fmt.Fprintf(out, "🚀 Running %q (%d steps) against %s with %s\n", sc.Name, len(sc.Steps), base, cfg.Browser.Driver)
		var rr *scenario.RepeatResult
		rr, openErr = harness.Runner(cfg, logger, metrics).Repeat(ctx, open, sc, cfg.Scenario.Repeat)
		if rr != nil {
			results = rr.Runs
		}
		err = openErr
	}
	if err != nil {
		res := harness.PreflightResult(sc, cfg.Browser.Driver, err)
		metrics.RunFinished(res)
		results = append(results, res)
	}

	rep := report.New(base, results...)
	printSummary(out, rep)

	written, err := report.Write(report.Options{
		Dir:   cfg.Artifacts.Dir,
		YAML:  cfg.Artifacts.Report,
		JUnit: cfg.Artifacts.JUnit,
	}, rep, results)
	if err != nil {
		return err
	}
	if cfg.Artifacts.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.Artifacts.MetricsFile); err != nil {
			return err
		}
		written = append(written, cfg.Artifacts.MetricsFile)
	}
	for _, path := range written {
		fmt.Fprintf(out, "📝 Wrote %s\n", path)
	}

	if openErr != nil {
		return openErr
	}
	if !rep.Passed {
		return errFailed
	}
	return nil
}

func printSummary(w io.Writer, rep *report.Report) {
	for i, run := range rep.Runs {
		prefix := ""
		if len(rep.Runs) > 1 {
			prefix = fmt.Sprintf("[%d/%d] ", i+1, len(rep.Runs))
		}
		if run.Passed {
			fmt.Fprintf(w, "✅ %s%s passed on %s in %s (%d steps)\n", prefix, run.Scenario, run.Driver, run.Duration, len(run.Steps))
			continue
		}
		fmt.Fprintf(w, "❌ %s%s failed on %s after %s\n", prefix, run.Scenario, run.Driver, run.Duration)
		if run.Failure != nil {
			fmt.Fprintf(w, "   %s\n", run.Failure.Message)
		}
		if run.Screenshot != "" {
			fmt.Fprintf(w, "   📸 %s\n", run.Screenshot)
		}
	}
	if rep.Consistent != nil {
		if *rep.Consistent {
			fmt.Fprintf(w, "🔁 %d runs, outcome consistent\n", len(rep.Runs))
		} else {
			fmt.Fprintf(w, "⚠️  %d runs, outcomes differ between runs\n", len(rep.Runs))
		}
	}
}

func newPlanCmd(configFile func() string) *cobra.Command {
	flags := &scenarioFlags{}
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the scenario steps without running them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, configFile(), flags)
			if err != nil {
				return err
			}
			sc := harness.Scenario(cfg, cfg.Target.BaseURL)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scenario %q: %d steps, tasks %v, step timeout %v\n",
				sc.Name, len(sc.Steps), sc.Tasks(), cfg.Browser.Timeout.Round(time.Millisecond))
			for i, st := range sc.Steps {
				fmt.Fprintf(out, "%3d. %s\n", i+1, st)
			}
			return nil
		},
	}
	flags.register(cmd)
	return cmd
}
