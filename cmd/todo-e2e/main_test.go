package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotodo/todo-e2e/internal/config"
	"github.com/gotodo/todo-e2e/internal/history"
	"github.com/gotodo/todo-e2e/internal/report"
	"github.com/gotodo/todo-e2e/internal/runner/tasks"
	"github.com/gotodo/todo-e2e/internal/scenario"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "todo-e2e dev (commit: none, built: unknown")
}

func TestPlanCommand(t *testing.T) {
	out, err := execute(t, "plan", "--base-url", "http://app.test:5173", "--tasks", "play,run")
	require.NoError(t, err)

	assert.Contains(t, out, `Scenario "todo"`)
	assert.Contains(t, out, "tasks [play run]")
	assert.Contains(t, out, "  1. navigate to http://app.test:5173")
	assert.Contains(t, out, `type "play" into input[name="task"]`)
	assert.Contains(t, out, `click button[name="run-delete"]`)
	assert.NotContains(t, out, "work")
}

func TestRunCommandInvalidConfig(t *testing.T) {
	_, err := execute(t, "run", "--driver", "selenium", "--artifacts", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
	assert.Contains(t, err.Error(), "selenium")
}

func TestRunCommandUnreachableTarget(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "run", "--base-url", "http://127.0.0.1:1", "--artifacts", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errFailed))

	assert.Contains(t, out, "❌ todo failed")
	assert.Contains(t, out, "navigation_failure")

	rep, err := report.LoadYAML(filepath.Join(dir, report.ReportFile))
	require.NoError(t, err)
	assert.False(t, rep.Passed)
	require.Len(t, rep.Runs, 1)
	require.NotNil(t, rep.Runs[0].Failure)
	assert.Equal(t, "navigation_failure", rep.Runs[0].Failure.Kind)
	assert.FileExists(t, filepath.Join(dir, report.JUnitFile))

	out, err = execute(t, "report", filepath.Join(dir, report.ReportFile))
	assert.ErrorIs(t, err, errFailed)
	assert.Contains(t, out, "Report of http://127.0.0.1:1")
	assert.Contains(t, out, "❌ todo failed")
}

// echoSession accepts every action and echoes typed text back as the input value.
type echoSession struct{ value string }

func (s *echoSession) Name() string                              { return "echo" }
func (s *echoSession) Navigate(context.Context, string) error    { return nil }
func (s *echoSession) Submit(context.Context, string) error      { return nil }
func (s *echoSession) Click(context.Context, string) error       { return nil }
func (s *echoSession) WaitPresent(context.Context, string) error { return nil }
func (s *echoSession) WaitAbsent(context.Context, string) error  { return nil }
func (s *echoSession) Screenshot(context.Context, string) error  { return nil }
func (s *echoSession) Close() error                              { return nil }

func (s *echoSession) Type(_ context.Context, _ string, text string) error {
	s.value = text
	return nil
}

func (s *echoSession) Value(context.Context, string) (string, error) {
	return s.value, nil
}

func TestRunScenarioReportsRunsBeforeOpenFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	cfg := &config.Config{
		Target:    config.TargetConfig{BaseURL: srv.URL, Preflight: true},
		Browser:   config.BrowserConfig{Driver: "echo", Timeout: time.Second},
		Scenario:  config.ScenarioConfig{Tasks: []string{"play"}, Repeat: 3},
		Artifacts: config.ArtifactsConfig{Dir: dir, Report: true, JUnit: true},
	}
	opened := 0
	open := func(context.Context) (scenario.Driver, error) {
		opened++
		if opened == 3 {
			return nil, assert.AnError
		}
		return &echoSession{}, nil
	}

	var out bytes.Buffer
	cmd := &cobra.Command{Use: "run"}
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)

	err := runScenario(cmd, cfg, open)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)

	rep, err := report.LoadYAML(filepath.Join(dir, report.ReportFile))
	require.NoError(t, err)
	assert.False(t, rep.Passed)
	require.Len(t, rep.Runs, 3)
	assert.True(t, rep.Runs[0].Passed)
	assert.True(t, rep.Runs[1].Passed)
	assert.False(t, rep.Runs[2].Passed)
	require.NotNil(t, rep.Runs[2].Failure)
	assert.Contains(t, rep.Runs[2].Failure.Message, "open browser session 3/3")
	assert.FileExists(t, filepath.Join(dir, report.JUnitFile))
	assert.Contains(t, out.String(), "❌ [3/3] todo failed")
}

func TestReportCommandMissingFile(t *testing.T) {
	_, err := execute(t, "report", filepath.Join(t.TempDir(), report.ReportFile))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read report")
}

func TestScenarioFlagsOnlyApplyWhenSet(t *testing.T) {
	flags := &scenarioFlags{}
	cmd := &cobra.Command{Use: "flags"}
	flags.register(cmd)
	require.NoError(t, cmd.Flags().Parse([]string{"--driver", "rod", "--repeat", "3"}))

	cfg := &config.Config{}
	cfg.Browser.Headless = false
	cfg.Target.BaseURL = "http://keep.me"
	flags.apply(cmd, cfg)

	assert.Equal(t, "rod", cfg.Browser.Driver)
	assert.Equal(t, 3, cfg.Scenario.Repeat)
	assert.False(t, cfg.Browser.Headless, "unset bool flag keeps the config value")
	assert.Equal(t, "http://keep.me", cfg.Target.BaseURL)
}

func TestHistoryCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	rec, err := history.Open(path)
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, rec.Record(context.Background(), "http://app.test", &scenario.Result{
		ID: "ok", Scenario: "todo", Driver: "chromedp",
		StartedAt: now.Add(-time.Hour), FinishedAt: now.Add(-time.Hour).Add(2 * time.Second),
	}))
	se := &scenario.StepError{Index: 3, Kind: scenario.ElementNotFound, Err: scenario.ErrElementNotFound}
	require.NoError(t, rec.Record(context.Background(), "http://app.test", &scenario.Result{
		ID: "bad", Scenario: "todo", Driver: "chromedp",
		StartedAt: now.Add(-time.Minute), FinishedAt: now, Err: se,
	}))
	require.NoError(t, rec.Close())

	out, err := execute(t, "history", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "element_not_found at step 4")
	assert.Contains(t, out, "ago")
	assert.Contains(t, out, "2 runs recorded, 1 passed (50.0%)")
}

func TestHistoryCommandMissingDB(t *testing.T) {
	_, err := execute(t, "history", "--db", filepath.Join(t.TempDir(), "none.db"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no history at")
}

func TestWatchRouter(t *testing.T) {
	metrics := report.NewMetrics()
	check := tasks.NewScenarioCheckTask(tasks.ScenarioCheckDeps{
		Config: func() *config.Config {
			return &config.Config{
				Target:  config.TargetConfig{BaseURL: "http://127.0.0.1:1", Preflight: true},
				Browser: config.BrowserConfig{Driver: "playwright"},
			}
		},
		Metrics: metrics,
		Logger:  log.New(io.Discard, "", 0),
	})
	next := time.Date(2030, 1, 1, 0, 5, 0, 0, time.UTC)
	router := newWatchRouter(metrics, check, func() time.Time { return next })

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "version")
	assert.Equal(t, "2030-01-01T00:05:00Z", body["next_run"])
	assert.NotContains(t, body, "last_run")

	// an unreachable target fails in preflight without starting a browser
	require.Error(t, check.Run(context.Background()))

	rec = get("/healthz")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	lastRun, ok := body["last_run"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, lastRun["passed"])
	assert.Contains(t, lastRun["error"], "not reachable")

	rec = get("/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `todo_e2e_scenario_runs_total{result="failed"} 1`)
}
