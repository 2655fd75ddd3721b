package report

import (
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotodo/todo-e2e/internal/harness"
	"github.com/gotodo/todo-e2e/internal/scenario"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func passedRun() *scenario.Result {
	nav := scenario.Navigate("http://127.0.0.1:5173")
	typ := scenario.TypeText(scenario.TaskInputSelector, "play")
	return &scenario.Result{
		ID:         "run-1",
		Scenario:   "todo",
		Driver:     "fake",
		StartedAt:  t0,
		FinishedAt: t0.Add(1500 * time.Millisecond),
		Steps: []scenario.StepResult{
			{Index: 0, Step: nav, Duration: time.Second},
			{Index: 1, Step: typ, Duration: 500 * time.Millisecond},
		},
	}
}

func failedRun() *scenario.Result {
	assertStep := scenario.AssertValue(scenario.TaskInputSelector, "play")
	se := &scenario.StepError{
		Index:    1,
		Step:     assertStep,
		Kind:     scenario.AssertionFailure,
		Expected: "play",
		Actual:   "pla",
	}
	return &scenario.Result{
		ID:         "run-2",
		Scenario:   "todo",
		Driver:     "fake",
		StartedAt:  t0,
		FinishedAt: t0.Add(2 * time.Second),
		Steps: []scenario.StepResult{
			{Index: 0, Step: scenario.Navigate("http://127.0.0.1:5173"), Duration: time.Second},
			{Index: 1, Step: assertStep, Duration: 10 * time.Millisecond, Err: se},
		},
		Screenshot: "test-results/screenshots/todo_1772366400.png",
		Err:        se,
	}
}

func TestFromResult(t *testing.T) {
	rr := FromResult(failedRun())
	assert.Equal(t, "run-2", rr.ID)
	assert.False(t, rr.Passed)
	assert.Equal(t, "2s", rr.Duration)
	require.Len(t, rr.Steps, 2)
	assert.Equal(t, "assert_value", rr.Steps[1].Action)
	assert.Contains(t, rr.Steps[1].Error, `expected "play", got "pla"`)

	require.NotNil(t, rr.Failure)
	assert.Equal(t, 1, rr.Failure.Step)
	assert.Equal(t, "assertion_failure", rr.Failure.Kind)
	assert.Equal(t, "play", rr.Failure.Expected)
	assert.Equal(t, "pla", rr.Failure.Actual)
	assert.NotEmpty(t, rr.Screenshot)

	assert.Nil(t, FromResult(passedRun()).Failure)
}

func TestFromResultPlainError(t *testing.T) {
	res := passedRun()
	res.Err = errors.New("browser crashed")
	rr := FromResult(res)
	require.NotNil(t, rr.Failure)
	assert.Equal(t, -1, rr.Failure.Step)
	assert.Equal(t, "browser crashed", rr.Failure.Message)
}

func TestNewReport(t *testing.T) {
	t.Run("single run has no consistency verdict", func(t *testing.T) {
		rep := New("http://127.0.0.1:5173", passedRun())
		assert.True(t, rep.Passed)
		assert.Nil(t, rep.Consistent)
	})

	t.Run("repeated runs", func(t *testing.T) {
		rep := New("http://127.0.0.1:5173", passedRun(), failedRun())
		assert.False(t, rep.Passed)
		require.NotNil(t, rep.Consistent)
		assert.False(t, *rep.Consistent)
		assert.Len(t, rep.Runs, 2)
	})

	t.Run("no runs is not a pass", func(t *testing.T) {
		assert.False(t, New("http://x").Passed)
	})
}

func TestWriteAndLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", ReportFile)
	rep := New("http://127.0.0.1:5173", failedRun())

	require.NoError(t, WriteYAML(path, rep))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "kind: assertion_failure")

	loaded, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, rep.BaseURL, loaded.BaseURL)
	assert.False(t, loaded.Passed)
	require.Len(t, loaded.Runs, 1)
	assert.Equal(t, rep.Runs[0].Failure, loaded.Runs[0].Failure)
}

func TestWriteJUnit(t *testing.T) {
	path := filepath.Join(t.TempDir(), JUnitFile)
	require.NoError(t, WriteJUnit(path, []*scenario.Result{passedRun(), failedRun()}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "<?xml"))

	var suites junitSuites
	require.NoError(t, xml.Unmarshal(raw, &suites))
	assert.Equal(t, 4, suites.Tests)
	assert.Equal(t, 1, suites.Failures)
	require.Len(t, suites.Suites, 2)

	first := suites.Suites[0]
	assert.Equal(t, "todo[fake]#1", first.Name)
	assert.Equal(t, "1.500", first.Time)
	assert.Equal(t, "01 navigate to http://127.0.0.1:5173", first.Cases[0].Name)
	assert.Nil(t, first.Cases[0].Failure)

	failed := suites.Suites[1].Cases[1]
	require.NotNil(t, failed.Failure)
	assert.Equal(t, "assertion_failure", failed.Failure.Type)
	assert.Contains(t, failed.Failure.Body, "screenshot: test-results/screenshots/")
}

func TestWriteJUnitRunWithoutSteps(t *testing.T) {
	sc := scenario.TodoScenario("http://127.0.0.1:1", nil, scenario.Options{})

	t.Run("preflight failure", func(t *testing.T) {
		res := harness.PreflightResult(sc, "playwright", &scenario.StepError{
			Index: 0,
			Step:  sc.Steps[0],
			Kind:  scenario.NavigationFailure,
			Err:   scenario.ErrNavigation,
		})
		require.False(t, res.Passed())

		suites := junitFor([]*scenario.Result{res})
		assert.Equal(t, 1, suites.Tests)
		assert.Equal(t, 1, suites.Failures)
		tc := suites.Suites[0].Cases[0]
		assert.Equal(t, "01 navigate to http://127.0.0.1:1", tc.Name)
		require.NotNil(t, tc.Failure)
		assert.Equal(t, "navigation_failure", tc.Failure.Type)
	})

	t.Run("browser did not start", func(t *testing.T) {
		res := harness.PreflightResult(sc, "rod", errors.New("failed to open rod session"))

		suites := junitFor([]*scenario.Result{res})
		assert.Equal(t, 1, suites.Failures)
		tc := suites.Suites[0].Cases[0]
		assert.Equal(t, "00 session", tc.Name)
		require.NotNil(t, tc.Failure)
		assert.Equal(t, "error", tc.Failure.Type)
		assert.Contains(t, tc.Failure.Message, "failed to open rod session")
	})

	t.Run("failed step is not reported twice", func(t *testing.T) {
		suites := junitFor([]*scenario.Result{failedRun()})
		assert.Equal(t, 1, suites.Failures)
	})
}

func TestWriteSelectsFiles(t *testing.T) {
	dir := t.TempDir()
	results := []*scenario.Result{passedRun()}

	written, err := Write(Options{Dir: dir, JUnit: true}, New("http://x", results...), results)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, JUnitFile)}, written)
	assert.NoFileExists(t, filepath.Join(dir, ReportFile))
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics()

	ok := passedRun()
	for _, sr := range ok.Steps {
		m.StepFinished(ok.Scenario, sr)
	}
	m.RunFinished(ok)
	m.RunFinished(failedRun())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("passed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stepFailures.WithLabelValues("assertion_failure")))
	assert.Equal(t, float64(ok.FinishedAt.Unix()), testutil.ToFloat64(m.lastSuccess))
	assert.Equal(t, 2, testutil.CollectAndCount(m.stepDuration))
}

func TestMetricsHandlerAndTextfile(t *testing.T) {
	m := NewMetrics()
	m.RunFinished(passedRun())

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `todo_e2e_scenario_runs_total{result="passed"} 1`)

	path := filepath.Join(t.TempDir(), "textfile", "todo_e2e.prom")
	require.NoError(t, m.WriteTextfile(path))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "todo_e2e_last_success_timestamp_seconds")
}
