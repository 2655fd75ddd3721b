// Package browser adapts browser-automation libraries to scenario.Driver.
package browser

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gotodo/todo-e2e/internal/config"
	"github.com/gotodo/todo-e2e/internal/scenario"
)

// Options holds the settings shared by every driver.
type Options struct {
	Headless bool
	SlowMo   time.Duration
	// Timeout is used when a call's context carries no deadline.
	Timeout time.Duration
	Width   int
	Height  int
	CDPURL  string
	// SkipInstall skips the playwright browser download.
	SkipInstall bool
	// VideoDir enables playwright video recording when set.
	VideoDir string
	Logger   *log.Logger
}

// OptionsFromConfig maps the harness configuration to driver options.
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Headless:    cfg.Browser.Headless,
		SlowMo:      cfg.Browser.SlowMo,
		Timeout:     cfg.Browser.Timeout,
		Width:       cfg.Browser.Width,
		Height:      cfg.Browser.Height,
		CDPURL:      cfg.Browser.CDPURL,
		SkipInstall: cfg.Browser.SkipInstall,
	}
	if cfg.Browser.Videos && cfg.Artifacts.Dir != "" {
		opts.VideoDir = filepath.Join(cfg.Artifacts.Dir, "videos")
	}
	return opts
}

func (o *Options) setDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.Width <= 0 {
		o.Width = 1280
	}
	if o.Height <= 0 {
		o.Height = 720
	}
	if o.Logger == nil {
		o.Logger = log.New(os.Stdout, "[BROWSER] ", log.LstdFlags)
	}
}

// Open starts a browser session with the named driver.
func Open(ctx context.Context, driver string, opts Options) (scenario.Driver, error) {
	opts.setDefaults()
	switch driver {
	case "", "playwright":
		return NewPlaywright(ctx, opts)
	case "chromedp":
		return NewChromedp(ctx, opts)
	case "rod":
		return NewRod(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown browser driver %q", driver)
	}
}

// Opener returns a scenario.Opener that starts a fresh session per call.
func Opener(driver string, opts Options) scenario.Opener {
	return func(ctx context.Context) (scenario.Driver, error) {
		return Open(ctx, driver, opts)
	}
}

// remaining returns the time left before ctx expires, or fallback without a deadline.
func remaining(ctx context.Context, fallback time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left > 0 {
			return left
		}
		return time.Millisecond
	}
	return fallback
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create screenshot dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// submitJS submits the form element itself or the form owning the element,
// firing the submit event like a user-initiated submission.
const submitJS = `const form = el.tagName === 'FORM' ? el : el.form;
if (!form) { throw new Error('element has no enclosing form'); }
form.requestSubmit();`
