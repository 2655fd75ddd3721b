package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/gotodo/todo-e2e/internal/scenario"
)

// absentPoll is how often WaitAbsent re-checks the page.
const absentPoll = 100 * time.Millisecond

// RodDriver drives Chrome with go-rod.
type RodDriver struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	opts     Options
	logger   *log.Logger
}

// NewRod launches Chrome with rod's launcher, or attaches to opts.CDPURL when set.
func NewRod(ctx context.Context, opts Options) (*RodDriver, error) {
	opts.setDefaults()
	d := &RodDriver{opts: opts, logger: opts.Logger}

	controlURL := opts.CDPURL
	if controlURL == "" {
		d.launcher = launcher.New().Context(ctx).Headless(opts.Headless)
		u, err := d.launcher.Launch()
		if err != nil {
			return nil, fmt.Errorf("could not launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL)
	if opts.SlowMo > 0 {
		browser = browser.SlowMotion(opts.SlowMo)
	}
	if err := browser.Connect(); err != nil {
		d.Close()
		return nil, fmt.Errorf("could not connect to browser: %w", err)
	}
	d.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		d.Close()
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	d.page = page
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             opts.Width,
		Height:            opts.Height,
		DeviceScaleFactor: 1,
	}); err != nil {
		d.Close()
		return nil, fmt.Errorf("could not set viewport: %w", err)
	}

	d.logger.Printf("Rod browser ready (headless=%v)", opts.Headless)
	return d, nil
}

func (d *RodDriver) Name() string { return "rod" }

// pageFor binds the page to ctx, adding the default timeout when ctx has no deadline.
func (d *RodDriver) pageFor(ctx context.Context) (*rod.Page, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return d.page.Context(ctx), func() {}
	}
	c, cancel := context.WithTimeout(ctx, d.opts.Timeout)
	return d.page.Context(c), cancel
}

func (d *RodDriver) Navigate(ctx context.Context, url string) error {
	p, cancel := d.pageFor(ctx)
	defer cancel()
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w: %w", url, scenario.ErrNavigation, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w: %w", url, scenario.ErrNavigation, err)
	}
	return nil
}

// locate waits for selector to match and insists on exactly one element.
func (d *RodDriver) locate(p *rod.Page, selector string) (*rod.Element, error) {
	el, err := p.Element(selector)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s: %w", selector, scenario.ErrElementNotFound)
		}
		return nil, fmt.Errorf("%s: %w", selector, err)
	}
	all, err := p.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("count %s: %w", selector, err)
	}
	if len(all) > 1 {
		return nil, fmt.Errorf("%s matched %d elements: %w", selector, len(all), scenario.ErrAmbiguous)
	}
	return el, nil
}

func (d *RodDriver) Type(ctx context.Context, selector, text string) error {
	p, cancel := d.pageFor(ctx)
	defer cancel()
	el, err := d.locate(p, selector)
	if err != nil {
		return err
	}
	if err := el.Input(text); err != nil {
		return interactErr("type into", selector, err)
	}
	return nil
}

func (d *RodDriver) Value(ctx context.Context, selector string) (string, error) {
	p, cancel := d.pageFor(ctx)
	defer cancel()
	el, err := d.locate(p, selector)
	if err != nil {
		return "", err
	}
	obj, err := el.Eval(`() => this.value`)
	if err != nil {
		return "", interactErr("read value of", selector, err)
	}
	return obj.Value.Str(), nil
}

func (d *RodDriver) Submit(ctx context.Context, selector string) error {
	p, cancel := d.pageFor(ctx)
	defer cancel()
	el, err := d.locate(p, selector)
	if err != nil {
		return err
	}
	if _, err := el.Eval(`function () { const el = this; ` + submitJS + ` }`); err != nil {
		return interactErr("submit", selector, err)
	}
	return nil
}

func (d *RodDriver) Click(ctx context.Context, selector string) error {
	p, cancel := d.pageFor(ctx)
	defer cancel()
	el, err := d.locate(p, selector)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return interactErr("click", selector, err)
	}
	return nil
}

func (d *RodDriver) WaitPresent(ctx context.Context, selector string) error {
	p, cancel := d.pageFor(ctx)
	defer cancel()
	_, err := d.locate(p, selector)
	return err
}

func (d *RodDriver) WaitAbsent(ctx context.Context, selector string) error {
	p, cancel := d.pageFor(ctx)
	defer cancel()
	pctx := p.GetContext()

	ticker := time.NewTicker(absentPoll)
	defer ticker.Stop()
	for {
		has, _, err := p.Has(selector)
		if err != nil {
			return fmt.Errorf("query %s: %w", selector, err)
		}
		if !has {
			return nil
		}
		select {
		case <-pctx.Done():
			return fmt.Errorf("%s still present: %w", selector, pctx.Err())
		case <-ticker.C:
		}
	}
}

func (d *RodDriver) Screenshot(ctx context.Context, path string) error {
	if d.page == nil {
		return fmt.Errorf("no page open")
	}
	p, cancel := d.pageFor(ctx)
	defer cancel()
	buf, err := p.Screenshot(true, nil)
	if err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	return writeFile(path, buf)
}

// Close closes the browser and removes the launcher's temporary profile.
func (d *RodDriver) Close() error {
	var err error
	if d.browser != nil {
		err = d.browser.Close()
	}
	if d.launcher != nil {
		d.launcher.Kill()
		d.launcher.Cleanup()
	}
	return err
}
