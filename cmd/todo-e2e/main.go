package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gotodo/todo-e2e/internal/config"
	"github.com/gotodo/todo-e2e/internal/version"
)

// errFailed is returned when a scenario run failed; the details were already printed.
var errFailed = errors.New("scenario failed")

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "todo-e2e",
		Short: "End-to-end checks for to-do web applications",
		Long: `todo-e2e drives a real browser through the to-do scenario:
open the app, add "play", "run" and "work", toggle each item and delete it.

Runs once from CI (run), on a schedule as a synthetic check (watch),
and keeps a local history of scheduled runs (history).`,
		Version:       version.Full(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default ./todo-e2e.yaml)")

	cfgFile := func() string { return configFile }
	rootCmd.AddCommand(
		newRunCmd(cfgFile),
		newPlanCmd(cfgFile),
		newWatchCmd(cfgFile),
		newHistoryCmd(cfgFile),
		newReportCmd(cfgFile),
		newServeFixtureCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "todo-e2e %s\n", version.Full())
		},
	}
}

// scenarioFlags are command line overrides applied on top of the loaded config.
type scenarioFlags struct {
	baseURL   string
	driver    string
	headless  bool
	tasks     []string
	repeat    int
	artifacts string
}

func (f *scenarioFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.baseURL, "base-url", "", "URL of the to-do app (overrides target.base_url)")
	cmd.Flags().StringVar(&f.driver, "driver", "", "Browser driver: "+strings.Join(config.Drivers, ", "))
	cmd.Flags().BoolVar(&f.headless, "headless", true, "Run the browser headless")
	cmd.Flags().StringSliceVar(&f.tasks, "tasks", nil, "Comma separated task names (default play,run,work)")
	cmd.Flags().IntVar(&f.repeat, "repeat", 1, "Run the scenario N times, each in a fresh session")
	cmd.Flags().StringVar(&f.artifacts, "artifacts", "", "Directory for reports and screenshots")
}

// apply copies the flags the user actually set into cfg.
func (f *scenarioFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("base-url") {
		cfg.Target.BaseURL = f.baseURL
	}
	if changed("driver") {
		cfg.Browser.Driver = f.driver
	}
	if changed("headless") {
		cfg.Browser.Headless = f.headless
	}
	if changed("tasks") {
		cfg.Scenario.Tasks = f.tasks
	}
	if changed("repeat") {
		cfg.Scenario.Repeat = f.repeat
	}
	if changed("artifacts") {
		cfg.Artifacts.Dir = f.artifacts
	}
}

// loadConfig loads and validates configuration, printing warnings to stderr.
func loadConfig(cmd *cobra.Command, configFile string, flags *scenarioFlags) (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if flags != nil {
		flags.apply(cmd, cfg)
	}

	v := config.NewValidator(cfg)
	if err := v.Validate(); err != nil {
		return nil, err
	}
	for _, w := range v.Warnings() {
		fmt.Fprintln(cmd.ErrOrStderr(), w)
	}
	return cfg, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
