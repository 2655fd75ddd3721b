// Package report turns scenario results into files a CI system can consume:
// a YAML run report, JUnit XML and a prometheus textfile.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gotodo/todo-e2e/internal/scenario"
	"github.com/gotodo/todo-e2e/internal/version"
)

// File names written under the artifacts directory.
const (
	ReportFile = "report.yaml"
	JUnitFile  = "junit.xml"
)

// Report is the YAML document describing one invocation.
type Report struct {
	Generated  time.Time    `yaml:"generated"`
	Tool       version.Info `yaml:"tool"`
	BaseURL    string       `yaml:"base_url"`
	Passed     bool         `yaml:"passed"`
	Consistent *bool        `yaml:"consistent,omitempty"`
	Runs       []RunReport  `yaml:"runs"`
}

// RunReport describes a single scenario run.
type RunReport struct {
	ID         string         `yaml:"id"`
	Scenario   string         `yaml:"scenario"`
	Driver     string         `yaml:"driver"`
	StartedAt  time.Time      `yaml:"started_at"`
	Duration   string         `yaml:"duration"`
	Passed     bool           `yaml:"passed"`
	Steps      []StepReport   `yaml:"steps"`
	Failure    *FailureReport `yaml:"failure,omitempty"`
	Screenshot string         `yaml:"screenshot,omitempty"`
}

type StepReport struct {
	Index       int    `yaml:"index"`
	Action      string `yaml:"action"`
	Description string `yaml:"description"`
	Duration    string `yaml:"duration"`
	Error       string `yaml:"error,omitempty"`
}

type FailureReport struct {
	Step     int    `yaml:"step"`
	Kind     string `yaml:"kind"`
	Message  string `yaml:"message"`
	Expected string `yaml:"expected,omitempty"`
	Actual   string `yaml:"actual,omitempty"`
}

// New builds a report from one or more runs of the same scenario.
func New(baseURL string, results ...*scenario.Result) *Report {
	rep := &Report{
		Generated: time.Now().UTC(),
		Tool:      version.GetInfo(),
		BaseURL:   baseURL,
		Passed:    len(results) > 0,
	}
	for _, res := range results {
		rep.Runs = append(rep.Runs, FromResult(res))
		if !res.Passed() {
			rep.Passed = false
		}
	}
	if len(results) > 1 {
		rr := scenario.RepeatResult{Runs: results}
		consistent := rr.Consistent()
		rep.Consistent = &consistent
	}
	return rep
}

// FromResult converts a runner result into its report form.
func FromResult(res *scenario.Result) RunReport {
	rr := RunReport{
		ID:         res.ID,
		Scenario:   res.Scenario,
		Driver:     res.Driver,
		StartedAt:  res.StartedAt.UTC(),
		Duration:   res.Duration().Round(time.Millisecond).String(),
		Passed:     res.Passed(),
		Screenshot: res.Screenshot,
	}
	for _, sr := range res.Steps {
		step := StepReport{
			Index:       sr.Index,
			Action:      sr.Step.Action.String(),
			Description: sr.Step.String(),
			Duration:    sr.Duration.Round(time.Millisecond).String(),
		}
		if sr.Err != nil {
			step.Error = sr.Err.Error()
		}
		rr.Steps = append(rr.Steps, step)
	}
	if se := res.Failure(); se != nil {
		rr.Failure = &FailureReport{
			Step:     se.Index,
			Kind:     se.Kind.String(),
			Message:  se.Error(),
			Expected: se.Expected,
			Actual:   se.Actual,
		}
	} else if res.Err != nil {
		rr.Failure = &FailureReport{Step: -1, Kind: "error", Message: res.Err.Error()}
	}
	return rr
}

// WriteYAML writes rep to path, creating parent directories.
func WriteYAML(path string, rep *Report) error {
	data, err := yaml.Marshal(rep)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	return writeFile(path, data)
}

// LoadYAML reads a report written by WriteYAML.
func LoadYAML(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	var rep Report
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return nil, fmt.Errorf("failed to parse report %s: %w", path, err)
	}
	return &rep, nil
}

// Options selects which files Write produces.
type Options struct {
	Dir   string
	YAML  bool
	JUnit bool
}

// Write produces the enabled report files under opts.Dir and returns their paths.
func Write(opts Options, rep *Report, results []*scenario.Result) ([]string, error) {
	var written []string
	if opts.YAML {
		path := filepath.Join(opts.Dir, ReportFile)
		if err := WriteYAML(path, rep); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	if opts.JUnit {
		path := filepath.Join(opts.Dir, JUnitFile)
		if err := WriteJUnit(path, results); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
