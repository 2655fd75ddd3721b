package report

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gotodo/todo-e2e/internal/scenario"
)

// Metrics tracks scenario outcomes. It implements scenario.Observer and is
// safe for concurrent use.
type Metrics struct {
	registry     *prometheus.Registry
	runs         *prometheus.CounterVec
	stepFailures *prometheus.CounterVec
	runDuration  prometheus.Histogram
	stepDuration *prometheus.HistogramVec
	lastSuccess  prometheus.Gauge
}

// NewMetrics creates the collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_e2e_scenario_runs_total",
			Help: "Total number of scenario runs by result",
		}, []string{"result"}),
		stepFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "todo_e2e_step_failures_total",
			Help: "Total number of failed steps by failure kind",
		}, []string{"kind"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "todo_e2e_scenario_duration_seconds",
			Help:    "Scenario run duration in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
		}),
		stepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "todo_e2e_step_duration_seconds",
			Help:    "Step duration in seconds by action",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"action"}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "todo_e2e_last_success_timestamp_seconds",
			Help: "Unix time of the last passing scenario run",
		}),
	}
}

// StepFinished records the step duration.
func (m *Metrics) StepFinished(_ string, res scenario.StepResult) {
	m.stepDuration.WithLabelValues(res.Step.Action.String()).Observe(res.Duration.Seconds())
}

// RunFinished records the run outcome. Failures are counted here rather than
// per step so runs stopped by cancellation are counted too.
func (m *Metrics) RunFinished(res *scenario.Result) {
	m.runDuration.Observe(res.Duration().Seconds())
	if res.Passed() {
		m.runs.WithLabelValues("passed").Inc()
		m.lastSuccess.Set(float64(res.FinishedAt.Unix()))
		return
	}
	m.runs.WithLabelValues("failed").Inc()
	kind := "error"
	if k := scenario.KindOf(res.Err); k != 0 {
		kind = k.String()
	}
	m.stepFailures.WithLabelValues(kind).Inc()
}

// Handler serves the metrics in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// WriteTextfile writes the metrics for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
