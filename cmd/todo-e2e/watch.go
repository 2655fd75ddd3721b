package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/gotodo/todo-e2e/internal/config"
	"github.com/gotodo/todo-e2e/internal/history"
	"github.com/gotodo/todo-e2e/internal/report"
	"github.com/gotodo/todo-e2e/internal/runner"
	"github.com/gotodo/todo-e2e/internal/runner/tasks"
	"github.com/gotodo/todo-e2e/internal/version"
)

func newWatchCmd(configFile func() string) *cobra.Command {
	var (
		listen string
		runNow bool
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the scenario on a schedule as a synthetic check",
		Long: `Watch runs the to-do scenario on watch.schedule, each run in a fresh browser
session. Results are stored in the history database and exported as
prometheus metrics on /metrics. Config file changes are picked up without
a restart.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, configFile(), listen, runNow)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address for /metrics and /healthz (overrides watch.listen)")
	cmd.Flags().BoolVar(&runNow, "run-now", true, "Run one check immediately instead of waiting for the first tick")
	return cmd
}

func runWatch(cmd *cobra.Command, configFile, listen string, runNow bool) error {
	logger := log.New(cmd.ErrOrStderr(), "[WATCH] ", log.LstdFlags)

	store, err := config.NewStore(configFile, logger)
	if err != nil {
		return err
	}
	cfg := store.Get()
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if listen == "" {
		listen = cfg.Watch.Listen
	}

	rec, err := history.Open(cfg.Watch.HistoryDB)
	if err != nil {
		return err
	}
	defer rec.Close()

	metrics := report.NewMetrics()
	check := tasks.NewScenarioCheckTask(tasks.ScenarioCheckDeps{
		Config:  store.Get,
		Metrics: metrics,
		History: rec,
		Logger:  logger,
	})

	registry := runner.NewTaskRegistry()
	if err := registry.Register(check); err != nil {
		return err
	}
	taskRunner := runner.NewRunner(registry, runner.WithLogger(log.New(cmd.ErrOrStderr(), "[RUNNER] ", log.LstdFlags)))

	ctx := cmd.Context()
	store.Watch(func(*config.Config) {
		if err := taskRunner.Reschedule(ctx, tasks.ScenarioCheckName); err != nil {
			logger.Printf("Failed to reschedule after reload: %v", err)
		}
	})

	srv := &http.Server{
		Addr:              listen,
		Handler:           newWatchRouter(metrics, check, func() time.Time { return taskRunner.Next(tasks.ScenarioCheckName) }),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Printf("Serving /metrics and /healthz on %s", listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Printf("Metrics server failed: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if runNow {
		go func() { _ = taskRunner.RunNow(ctx, tasks.ScenarioCheckName) }()
	}

	if err := taskRunner.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newWatchRouter serves the scrape endpoint and a health document describing the last check.
func newWatchRouter(metrics *report.Metrics, check *tasks.ScenarioCheckTask, next func() time.Time) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		body := gin.H{"status": "ok", "version": version.GetInfo()}
		if n := next(); !n.IsZero() {
			body["next_run"] = n.UTC().Format(time.RFC3339)
		}
		if last := check.Last(); last != nil {
			lastRun := gin.H{
				"id":          last.ID,
				"passed":      last.Passed(),
				"finished_at": last.FinishedAt.UTC().Format(time.RFC3339),
				"duration":    last.Duration().String(),
			}
			if last.Err != nil {
				lastRun["error"] = last.Err.Error()
			}
			body["last_run"] = lastRun
		}
		c.JSON(http.StatusOK, body)
	})
	return r
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
