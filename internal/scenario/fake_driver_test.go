package scenario

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type fakeItem struct {
	title     string
	completed bool
}

// fakeDriver emulates the to-do page in memory.
type fakeDriver struct {
	unreachable bool
	navigated   bool
	value       string
	items       []*fakeItem

	// fault injection
	mangle       func(string) string
	ignoreDelete bool
	toggleRemove bool
	duplicate    bool

	calls       []string
	screenshots []string
	closed      bool
}

func newFakeDriver() *fakeDriver { return &fakeDriver{} }

func (f *fakeDriver) Name() string { return "fake" }

func (f *fakeDriver) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeDriver) Navigate(ctx context.Context, url string) error {
	f.record("navigate %s", url)
	if f.unreachable {
		return fmt.Errorf("goto %s: %w", url, ErrNavigation)
	}
	f.navigated = true
	f.value = ""
	f.items = nil
	return nil
}

// lookup resolves selector against the emulated page and returns the number of matches.
func (f *fakeDriver) lookup(selector string) (int, *fakeItem, ControlKind) {
	if !f.navigated {
		return 0, nil, ""
	}
	switch selector {
	case TaskInputSelector, FormSelector:
		return 1, nil, ""
	}
	count := 0
	var match *fakeItem
	var kind ControlKind
	for _, it := range f.items {
		for _, k := range []ControlKind{ControlToggle, ControlDelete} {
			if ControlSelector(it.title, k) == selector {
				count++
				match, kind = it, k
			}
		}
	}
	return count, match, kind
}

func (f *fakeDriver) one(selector string) (*fakeItem, ControlKind, error) {
	n, it, kind := f.lookup(selector)
	switch {
	case n == 0:
		return nil, "", fmt.Errorf("%s: %w", selector, ErrElementNotFound)
	case n > 1:
		return nil, "", fmt.Errorf("%s: %w", selector, ErrAmbiguous)
	}
	return it, kind, nil
}

func (f *fakeDriver) Type(ctx context.Context, selector, text string) error {
	f.record("type %s %s", selector, text)
	if _, _, err := f.one(selector); err != nil {
		return err
	}
	if f.mangle != nil {
		text = f.mangle(text)
	}
	f.value += text
	return nil
}

func (f *fakeDriver) Value(ctx context.Context, selector string) (string, error) {
	f.record("value %s", selector)
	if _, _, err := f.one(selector); err != nil {
		return "", err
	}
	return f.value, nil
}

func (f *fakeDriver) Submit(ctx context.Context, selector string) error {
	f.record("submit %s", selector)
	if _, _, err := f.one(selector); err != nil {
		return err
	}
	if f.value != "" {
		f.items = append(f.items, &fakeItem{title: f.value})
		if f.duplicate {
			f.items = append(f.items, &fakeItem{title: f.value})
		}
	}
	f.value = ""
	return nil
}

func (f *fakeDriver) Click(ctx context.Context, selector string) error {
	f.record("click %s", selector)
	it, kind, err := f.one(selector)
	if err != nil {
		return err
	}
	switch kind {
	case ControlToggle:
		it.completed = !it.completed
		if f.toggleRemove {
			f.remove(it)
		}
	case ControlDelete:
		if !f.ignoreDelete {
			f.remove(it)
		}
	}
	return nil
}

func (f *fakeDriver) remove(target *fakeItem) {
	kept := f.items[:0]
	for _, it := range f.items {
		if it != target {
			kept = append(kept, it)
		}
	}
	f.items = kept
}

func (f *fakeDriver) WaitPresent(ctx context.Context, selector string) error {
	f.record("present %s", selector)
	_, _, err := f.one(selector)
	return err
}

func (f *fakeDriver) WaitAbsent(ctx context.Context, selector string) error {
	f.record("absent %s", selector)
	if n, _, _ := f.lookup(selector); n > 0 {
		return fmt.Errorf("%s still present: %w", selector, context.DeadlineExceeded)
	}
	return nil
}

func (f *fakeDriver) Screenshot(ctx context.Context, path string) error {
	f.screenshots = append(f.screenshots, path)
	return os.WriteFile(path, []byte("png"), 0o644)
}

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

func (f *fakeDriver) clicked() []string {
	var out []string
	for _, c := range f.calls {
		if strings.HasPrefix(c, "click ") {
			out = append(out, strings.TrimPrefix(c, "click "))
		}
	}
	return out
}

type fakeBackend struct {
	titles map[string]bool
	err    error
}

func (b *fakeBackend) HasTitle(ctx context.Context, title string) (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	return b.titles[title], nil
}

type recordingObserver struct {
	steps []StepResult
	runs  []*Result
}

func (o *recordingObserver) StepFinished(_ string, res StepResult) { o.steps = append(o.steps, res) }
func (o *recordingObserver) RunFinished(res *Result)                { o.runs = append(o.runs, res) }
