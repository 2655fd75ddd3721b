package scenario

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// StepResult records the outcome of one executed step.
type StepResult struct {
	Index    int
	Step     Step
	Duration time.Duration
	Err      error
}

// Result is the outcome of one scenario run.
type Result struct {
	ID         string
	Scenario   string
	Driver     string
	StartedAt  time.Time
	FinishedAt time.Time
	Steps      []StepResult
	// Screenshot is the path of the failure screenshot, if one was taken.
	Screenshot string
	Err        error
}

// Passed reports whether every step succeeded.
func (r *Result) Passed() bool {
	return r.Err == nil
}

// Duration is the wall time of the run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Failure returns the StepError that stopped the run, or nil.
func (r *Result) Failure() *StepError {
	if se, ok := r.Err.(*StepError); ok {
		return se
	}
	return nil
}

// Observer is notified as a run progresses.
type Observer interface {
	StepFinished(scenario string, res StepResult)
	RunFinished(res *Result)
}

// RunnerConfig configures a Runner.
type RunnerConfig struct {
	// StepTimeout bounds every step; zero means 30s.
	StepTimeout time.Duration
	// ScreenshotDir receives a screenshot when a run fails; empty disables screenshots.
	ScreenshotDir string
	Backend       Backend
	Observers     []Observer
	Logger        *log.Logger
}

// Runner executes scenarios step by step against a Driver.
type Runner struct {
	stepTimeout   time.Duration
	screenshotDir string
	backend       Backend
	observers     []Observer
	logger        *log.Logger
}

// NewRunner creates a scenario runner
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.StepTimeout <= 0 {
		cfg.StepTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stdout, "[SCENARIO] ", log.LstdFlags)
	}
	return &Runner{
		stepTimeout:   cfg.StepTimeout,
		screenshotDir: cfg.ScreenshotDir,
		backend:       cfg.Backend,
		observers:     cfg.Observers,
		logger:        cfg.Logger,
	}
}

// DiscardLogger returns a logger that drops everything, for tests and quiet runs.
func DiscardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// Run executes sc against d. Steps run strictly in order; the first failure
// stops the run. The returned error is the same as Result.Err.
func (r *Runner) Run(ctx context.Context, d Driver, sc *Scenario) (*Result, error) {
	res := &Result{
		ID:        uuid.NewString(),
		Scenario:  sc.Name,
		Driver:    d.Name(),
		StartedAt: time.Now(),
	}
	r.logger.Printf("Run %s: scenario %q with %d steps on %s", res.ID, sc.Name, len(sc.Steps), d.Name())

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			stepErr := &StepError{Index: i, Step: st, Kind: classify(st, err), Err: err}
			res.Steps = append(res.Steps, StepResult{Index: i, Step: st, Err: stepErr})
			res.Err = stepErr
			break
		}

		start := time.Now()
		stepErr := r.execute(ctx, d, i, st)
		sr := StepResult{Index: i, Step: st, Duration: time.Since(start)}
		if stepErr != nil {
			sr.Err = stepErr
		}
		res.Steps = append(res.Steps, sr)
		for _, o := range r.observers {
			o.StepFinished(sc.Name, sr)
		}

		if stepErr != nil {
			r.logger.Printf("Step %d/%d failed after %v: %v", i+1, len(sc.Steps), sr.Duration, stepErr)
			res.Err = stepErr
			break
		}
		r.logger.Printf("Step %d/%d ok (%v): %s", i+1, len(sc.Steps), sr.Duration, st)
	}

	if res.Err != nil && r.screenshotDir != "" {
		res.Screenshot = r.captureFailure(d, sc.Name)
	}

	res.FinishedAt = time.Now()
	if res.Err == nil {
		r.logger.Printf("Run %s passed in %v", res.ID, res.Duration())
	} else {
		r.logger.Printf("Run %s failed in %v", res.ID, res.Duration())
	}
	for _, o := range r.observers {
		o.RunFinished(res)
	}
	return res, res.Err
}

// execute runs one step under the step timeout.
func (r *Runner) execute(ctx context.Context, d Driver, index int, st Step) *StepError {
	stepCtx, cancel := context.WithTimeout(ctx, r.stepTimeout)
	defer cancel()

	fail := func(err error) *StepError {
		return &StepError{Index: index, Step: st, Kind: classify(st, err), Err: err}
	}

	var err error
	switch st.Action {
	case ActionNavigate:
		err = d.Navigate(stepCtx, st.URL)
	case ActionType:
		err = d.Type(stepCtx, st.Selector, st.Text)
	case ActionAssertValue:
		got, verr := d.Value(stepCtx, st.Selector)
		if verr != nil {
			return fail(verr)
		}
		if got != st.Text {
			return &StepError{Index: index, Step: st, Kind: AssertionFailure, Expected: st.Text, Actual: got}
		}
	case ActionSubmit:
		err = d.Submit(stepCtx, st.Selector)
	case ActionClick:
		err = d.Click(stepCtx, st.Selector)
	case ActionAssertPresent:
		err = d.WaitPresent(stepCtx, st.Selector)
	case ActionAssertAbsent:
		err = d.WaitAbsent(stepCtx, st.Selector)
	case ActionAssertBackendAbsent:
		if r.backend == nil {
			return fail(fmt.Errorf("no backend configured"))
		}
		has, berr := r.backend.HasTitle(stepCtx, st.Task)
		if berr != nil {
			return fail(fmt.Errorf("backend lookup: %w", berr))
		}
		if has {
			return fail(fmt.Errorf("item %q still listed by backend", st.Task))
		}
	default:
		return fail(fmt.Errorf("unsupported action %s", st.Action))
	}
	if err != nil {
		return fail(err)
	}
	return nil
}

// captureFailure takes a screenshot with a fresh context, the run context may already be done.
func (r *Runner) captureFailure(d Driver, name string) string {
	if err := os.MkdirAll(r.screenshotDir, 0o755); err != nil {
		r.logger.Printf("Could not create screenshot dir: %v", err)
		return ""
	}
	path := filepath.Join(r.screenshotDir, fmt.Sprintf("%s_%d.png", name, time.Now().Unix()))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.Screenshot(ctx, path); err != nil {
		r.logger.Printf("Failed to capture screenshot: %v", err)
		return ""
	}
	r.logger.Printf("Screenshot saved to %s", path)
	return path
}
