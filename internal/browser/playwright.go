package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/gotodo/todo-e2e/internal/scenario"
)

// PlaywrightDriver drives chromium through playwright-go.
type PlaywrightDriver struct {
	Playwright *playwright.Playwright
	Browser    playwright.Browser
	Context    playwright.BrowserContext
	Page       playwright.Page
	opts       Options
	logger     *log.Logger
}

// NewPlaywright installs (unless skipped) and starts playwright, launches
// chromium and opens a page.
func NewPlaywright(ctx context.Context, opts Options) (*PlaywrightDriver, error) {
	opts.setDefaults()
	d := &PlaywrightDriver{opts: opts, logger: opts.Logger}

	if !opts.SkipInstall {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		// Fallback: attempt install driver explicitly then retry
		_ = playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
		pw, err = playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("could not start playwright after retry: %w", err)
		}
	}
	d.Playwright = pw

	var browser playwright.Browser
	if opts.CDPURL != "" {
		browser, err = pw.Chromium.ConnectOverCDP(opts.CDPURL)
	} else {
		browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
			Headless: playwright.Bool(opts.Headless),
			SlowMo:   playwright.Float(float64(opts.SlowMo.Milliseconds())),
		})
	}
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	d.Browser = browser

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Width,
			Height: opts.Height,
		},
	}
	if opts.VideoDir != "" {
		contextOpts.RecordVideo = &playwright.RecordVideo{Dir: opts.VideoDir}
	}
	bctx, err := browser.NewContext(contextOpts)
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	d.Context = bctx

	page, err := bctx.NewPage()
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	d.Page = page
	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	d.logger.Printf("Playwright chromium ready (headless=%v)", opts.Headless)
	return d, nil
}

func (d *PlaywrightDriver) Name() string { return "playwright" }

// timeout converts the context deadline into playwright's millisecond timeout.
func (d *PlaywrightDriver) timeout(ctx context.Context) *float64 {
	return playwright.Float(float64(remaining(ctx, d.opts.Timeout).Milliseconds()))
}

func (d *PlaywrightDriver) Navigate(ctx context.Context, url string) error {
	_, err := d.Page.Goto(url, playwright.PageGotoOptions{Timeout: d.timeout(ctx)})
	if err != nil {
		if strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
			return fmt.Errorf("redirect loop navigating to %s: %w: %w", url, scenario.ErrNavigation, err)
		}
		return fmt.Errorf("goto %s: %w: %w", url, scenario.ErrNavigation, err)
	}
	return nil
}

// locate waits for selector to match and insists on exactly one element.
func (d *PlaywrightDriver) locate(ctx context.Context, selector string) (playwright.Locator, error) {
	loc := d.Page.Locator(selector)
	err := loc.First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: d.timeout(ctx),
	})
	if err != nil {
		if errors.Is(err, playwright.ErrTimeout) {
			return nil, fmt.Errorf("%s: %w", selector, scenario.ErrElementNotFound)
		}
		return nil, fmt.Errorf("%s: %w", selector, err)
	}
	n, err := loc.Count()
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", selector, err)
	}
	if n > 1 {
		return nil, fmt.Errorf("%s matched %d elements: %w", selector, n, scenario.ErrAmbiguous)
	}
	return loc, nil
}

func (d *PlaywrightDriver) interactErr(op, selector string, err error) error {
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s %s: %w: %w", op, selector, scenario.ErrNotInteractable, err)
	}
	return fmt.Errorf("%s %s: %w", op, selector, err)
}

func (d *PlaywrightDriver) Type(ctx context.Context, selector, text string) error {
	loc, err := d.locate(ctx, selector)
	if err != nil {
		return err
	}
	if err := loc.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{Timeout: d.timeout(ctx)}); err != nil {
		return d.interactErr("type into", selector, err)
	}
	return nil
}

func (d *PlaywrightDriver) Value(ctx context.Context, selector string) (string, error) {
	loc, err := d.locate(ctx, selector)
	if err != nil {
		return "", err
	}
	v, err := loc.InputValue(playwright.LocatorInputValueOptions{Timeout: d.timeout(ctx)})
	if err != nil {
		return "", d.interactErr("read value of", selector, err)
	}
	return v, nil
}

func (d *PlaywrightDriver) Submit(ctx context.Context, selector string) error {
	loc, err := d.locate(ctx, selector)
	if err != nil {
		return err
	}
	if _, err := loc.Evaluate("el => { "+submitJS+" }", nil, playwright.LocatorEvaluateOptions{Timeout: d.timeout(ctx)}); err != nil {
		return d.interactErr("submit", selector, err)
	}
	return nil
}

func (d *PlaywrightDriver) Click(ctx context.Context, selector string) error {
	loc, err := d.locate(ctx, selector)
	if err != nil {
		return err
	}
	if err := loc.Click(playwright.LocatorClickOptions{Timeout: d.timeout(ctx)}); err != nil {
		return d.interactErr("click", selector, err)
	}
	return nil
}

func (d *PlaywrightDriver) WaitPresent(ctx context.Context, selector string) error {
	_, err := d.locate(ctx, selector)
	return err
}

func (d *PlaywrightDriver) WaitAbsent(ctx context.Context, selector string) error {
	err := d.Page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateDetached,
		Timeout: d.timeout(ctx),
	})
	if err != nil {
		return fmt.Errorf("%s still present: %w", selector, err)
	}
	return nil
}

func (d *PlaywrightDriver) Screenshot(ctx context.Context, path string) error {
	if d.Page == nil {
		return fmt.Errorf("no page open")
	}
	_, err := d.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
		Timeout:  d.timeout(ctx),
	})
	return err
}

// Close closes the page, context, browser and playwright, in that order.
func (d *PlaywrightDriver) Close() error {
	var errs []error
	if d.Page != nil {
		errs = append(errs, d.Page.Close())
	}
	if d.Context != nil {
		errs = append(errs, d.Context.Close())
	}
	if d.Browser != nil {
		errs = append(errs, d.Browser.Close())
	}
	if d.Playwright != nil {
		errs = append(errs, d.Playwright.Stop())
	}
	return errors.Join(errs...)
}
