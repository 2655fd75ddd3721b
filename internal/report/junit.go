package report

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/gotodo/todo-e2e/internal/scenario"
)

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Time     string       `xml:"time,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name      string      `xml:"name,attr"`
	Tests     int         `xml:"tests,attr"`
	Failures  int         `xml:"failures,attr"`
	Time      string      `xml:"time,attr"`
	Timestamp string      `xml:"timestamp,attr"`
	Cases     []junitCase `xml:"testcase"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

// junitFor builds one testsuite per run and one testcase per executed step.
// A failed run always carries at least one failing testcase.
func junitFor(results []*scenario.Result) junitSuites {
	var all junitSuites
	var total float64
	for i, res := range results {
		suite := junitSuite{
			Name:      fmt.Sprintf("%s[%s]#%d", res.Scenario, res.Driver, i+1),
			Time:      seconds(res.Duration()),
			Timestamp: res.StartedAt.UTC().Format("2006-01-02T15:04:05"),
		}
		for _, sr := range res.Steps {
			tc := junitCase{
				Name:      fmt.Sprintf("%02d %s", sr.Index+1, sr.Step),
				ClassName: "todo-e2e." + res.Scenario,
				Time:      seconds(sr.Duration),
			}
			if sr.Err != nil {
				tc.Failure = failureFor(res, sr.Err)
				suite.Failures++
			}
			suite.Cases = append(suite.Cases, tc)
		}
		// runs that failed before any step ran (preflight, browser start)
		if res.Err != nil && suite.Failures == 0 {
			tc := junitCase{
				Name:      "00 session",
				ClassName: "todo-e2e." + res.Scenario,
				Time:      seconds(res.Duration()),
				Failure:   failureFor(res, res.Err),
			}
			if se := res.Failure(); se != nil {
				tc.Name = fmt.Sprintf("%02d %s", se.Index+1, se.Step)
			}
			suite.Cases = append(suite.Cases, tc)
			suite.Failures++
		}
		suite.Tests = len(suite.Cases)
		all.Tests += suite.Tests
		all.Failures += suite.Failures
		total += res.Duration().Seconds()
		all.Suites = append(all.Suites, suite)
	}
	all.Time = fmt.Sprintf("%.3f", total)
	return all
}

func failureFor(res *scenario.Result, err error) *junitFailure {
	f := &junitFailure{
		Message: err.Error(),
		Type:    "error",
		Body:    err.Error(),
	}
	if kind := scenario.KindOf(err); kind != 0 {
		f.Type = kind.String()
	}
	if res.Screenshot != "" {
		f.Body += "\nscreenshot: " + res.Screenshot
	}
	return f
}

// WriteJUnit writes results as JUnit XML to path.
func WriteJUnit(path string, results []*scenario.Result) error {
	data, err := xml.MarshalIndent(junitFor(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal junit report: %w", err)
	}
	return writeFile(path, append([]byte(xml.Header), data...))
}
