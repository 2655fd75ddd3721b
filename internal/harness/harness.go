// Package harness wires the loaded configuration into scenario runs. It is
// shared by the CLI commands and the scheduled check task.
package harness

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/gotodo/todo-e2e/internal/browser"
	"github.com/gotodo/todo-e2e/internal/config"
	"github.com/gotodo/todo-e2e/internal/scenario"
	"github.com/gotodo/todo-e2e/internal/todoapi"
)

// Scenario builds the to-do scenario described by cfg against baseURL.
func Scenario(cfg *config.Config, baseURL string) *scenario.Scenario {
	return scenario.TodoScenario(baseURL, cfg.Scenario.Tasks, scenario.Options{
		InputSelector: cfg.Scenario.InputSelector,
		FormSelector:  cfg.Scenario.FormSelector,
		VerifyItems:   cfg.Scenario.VerifyItems,
		VerifyBackend: cfg.Backend.Enabled(),
	})
}

// Backend returns the API client used for backend checks, or nil when no
// backend URL is configured.
func Backend(cfg *config.Config) scenario.Backend {
	if !cfg.Backend.Enabled() {
		return nil
	}
	return todoapi.NewClient(todoapi.Config{
		BaseURL: cfg.Backend.URL,
		Timeout: cfg.Backend.Timeout,
	})
}

// Runner builds a scenario runner for cfg.
func Runner(cfg *config.Config, logger *log.Logger, observers ...scenario.Observer) *scenario.Runner {
	return scenario.NewRunner(scenario.RunnerConfig{
		StepTimeout:   cfg.Browser.Timeout,
		ScreenshotDir: cfg.Artifacts.ScreenshotDir(),
		Backend:       Backend(cfg),
		Observers:     observers,
		Logger:        logger,
	})
}

// Opener starts fresh sessions of the configured browser driver.
func Opener(cfg *config.Config, logger *log.Logger) scenario.Opener {
	opts := browser.OptionsFromConfig(cfg)
	opts.Logger = logger
	return browser.Opener(cfg.Browser.Driver, opts)
}

// ResolveBaseURL applies autodetection and the reachability preflight. An
// unreachable target fails like the navigation step would, before any
// browser is started.
func ResolveBaseURL(ctx context.Context, cfg *config.Config, logger *log.Logger) (string, error) {
	if logger == nil {
		logger = scenario.DiscardLogger()
	}
	base := cfg.Target.BaseURL
	if cfg.Target.Autodetect {
		base = config.DetectBaseURL(ctx, base, logger)
	}
	if !cfg.Target.Preflight {
		return base, nil
	}
	if !config.Reachable(ctx, base) {
		return base, &scenario.StepError{
			Index: 0,
			Step:  scenario.Navigate(base),
			Kind:  scenario.NavigationFailure,
			Err:   fmt.Errorf("%w: %s is not reachable", scenario.ErrNavigation, base),
		}
	}
	return base, nil
}

// PreflightResult records a run that failed before a browser was started, so
// reports, metrics and history still see it.
func PreflightResult(sc *scenario.Scenario, driver string, err error) *scenario.Result {
	now := time.Now()
	return &scenario.Result{
		ID:         uuid.NewString(),
		Scenario:   sc.Name,
		Driver:     driver,
		StartedAt:  now,
		FinishedAt: now,
		Err:        err,
	}
}
