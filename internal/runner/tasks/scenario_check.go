package tasks

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/gotodo/todo-e2e/internal/config"
	"github.com/gotodo/todo-e2e/internal/harness"
	"github.com/gotodo/todo-e2e/internal/report"
	"github.com/gotodo/todo-e2e/internal/runner"
	"github.com/gotodo/todo-e2e/internal/scenario"
)

// ScenarioCheckName is the registry name of the synthetic to-do check.
const ScenarioCheckName = "todo-scenario-check"

// RunRecorder persists finished runs.
type RunRecorder interface {
	Record(ctx context.Context, baseURL string, res *scenario.Result) error
}

// ScenarioCheckDeps are the collaborators of a ScenarioCheckTask.
type ScenarioCheckDeps struct {
	// Config returns the current configuration; it is read at every run so
	// reloaded settings take effect on the next tick.
	Config func() *config.Config
	// Open starts a browser session for cfg; defaults to harness.Opener.
	Open    func(cfg *config.Config) scenario.Opener
	Metrics *report.Metrics
	History RunRecorder
	Logger  *log.Logger
}

// ScenarioCheckTask runs the to-do scenario against a live target, one fresh
// browser session per run.
type ScenarioCheckTask struct {
	deps    ScenarioCheckDeps
	logger  *log.Logger
	running atomic.Bool
	last    atomic.Pointer[scenario.Result]
}

// NewScenarioCheckTask creates the synthetic check task
func NewScenarioCheckTask(deps ScenarioCheckDeps) *ScenarioCheckTask {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[WATCH] ", log.LstdFlags)
	}
	t := &ScenarioCheckTask{deps: deps, logger: logger}
	if t.deps.Open == nil {
		t.deps.Open = func(cfg *config.Config) scenario.Opener {
			return harness.Opener(cfg, logger)
		}
	}
	return t
}

var _ runner.Task = (*ScenarioCheckTask)(nil)

func (t *ScenarioCheckTask) Name() string {
	return ScenarioCheckName
}

func (t *ScenarioCheckTask) Schedule() string {
	return t.deps.Config().Watch.Schedule
}

func (t *ScenarioCheckTask) Timeout() time.Duration {
	return t.deps.Config().Watch.Timeout
}

// Last returns the most recent result, nil before the first run.
func (t *ScenarioCheckTask) Last() *scenario.Result {
	return t.last.Load()
}

// Run executes one check. A tick that fires while a check is still running is skipped.
func (t *ScenarioCheckTask) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		t.logger.Println("Previous check still running, skipping this tick")
		return nil
	}
	defer t.running.Store(false)

	cfg := t.deps.Config()
	base, err := harness.ResolveBaseURL(ctx, cfg, t.logger)
	sc := harness.Scenario(cfg, base)

	var res *scenario.Result
	if err == nil {
		res, err = t.runScenario(ctx, cfg, sc)
	}
	if res == nil {
		// preflight or browser start failed; no step ran
		res = harness.PreflightResult(sc, cfg.Browser.Driver, err)
		if t.deps.Metrics != nil {
			t.deps.Metrics.RunFinished(res)
		}
	}

	t.last.Store(res)
	t.record(ctx, cfg, base, res)
	return err
}

// runScenario returns a nil result when the browser session could not be opened.
func (t *ScenarioCheckTask) runScenario(ctx context.Context, cfg *config.Config, sc *scenario.Scenario) (*scenario.Result, error) {
	d, err := t.deps.Open(cfg)(ctx)
	if err != nil {
		t.logger.Printf("Failed to open %s session: %v", cfg.Browser.Driver, err)
		return nil, fmt.Errorf("failed to open %s session: %w", cfg.Browser.Driver, err)
	}
	defer func() {
		if cerr := d.Close(); cerr != nil {
			t.logger.Printf("Failed to close browser session: %v", cerr)
		}
	}()

	var observers []scenario.Observer
	if t.deps.Metrics != nil {
		observers = append(observers, t.deps.Metrics)
	}
	return harness.Runner(cfg, t.logger, observers...).Run(ctx, d, sc)
}

// record stores the run; failures here are logged, never fatal to the check.
func (t *ScenarioCheckTask) record(ctx context.Context, cfg *config.Config, base string, res *scenario.Result) {
	if t.deps.History != nil {
		// the run context may have expired with the run itself
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := t.deps.History.Record(recCtx, base, res); err != nil {
			t.logger.Printf("Failed to record run %s: %v", res.ID, err)
		}
	}
	if t.deps.Metrics != nil && cfg.Artifacts.MetricsFile != "" {
		if err := t.deps.Metrics.WriteTextfile(cfg.Artifacts.MetricsFile); err != nil {
			t.logger.Printf("Failed to write metrics: %v", err)
		}
	}
}
