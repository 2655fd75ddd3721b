package scenario

import (
	"context"
	"fmt"
)

// Opener starts a fresh browser session.
type Opener func(ctx context.Context) (Driver, error)

// RepeatResult summarizes several runs of one scenario.
type RepeatResult struct {
	Runs []*Result
}

// Consistent reports whether every run had the same outcome, and for failed
// runs, stopped at the same step with the same kind.
func (rr *RepeatResult) Consistent() bool {
	if len(rr.Runs) == 0 {
		return true
	}
	first := outcome(rr.Runs[0])
	for _, res := range rr.Runs[1:] {
		if outcome(res) != first {
			return false
		}
	}
	return true
}

// Passed reports whether all runs passed.
func (rr *RepeatResult) Passed() bool {
	for _, res := range rr.Runs {
		if !res.Passed() {
			return false
		}
	}
	return true
}

func outcome(res *Result) string {
	if se := res.Failure(); se != nil {
		return fmt.Sprintf("fail:%d:%s", se.Index, se.Kind)
	}
	if res.Err != nil {
		return "fail"
	}
	return "pass"
}

// Repeat runs sc n times, each against a fresh session from open, so every
// run starts from a freshly loaded application state. Sessions are closed
// after each run. An error is returned only when a session cannot be opened.
func (r *Runner) Repeat(ctx context.Context, open Opener, sc *Scenario, n int) (*RepeatResult, error) {
	if n < 1 {
		n = 1
	}
	rr := &RepeatResult{}
	for i := 0; i < n; i++ {
		d, err := open(ctx)
		if err != nil {
			return rr, fmt.Errorf("open browser session %d/%d: %w", i+1, n, err)
		}
		res, _ := r.Run(ctx, d, sc)
		if cerr := d.Close(); cerr != nil {
			r.logger.Printf("Failed to close %s session: %v", d.Name(), cerr)
		}
		rr.Runs = append(rr.Runs, res)
	}
	return rr, nil
}
