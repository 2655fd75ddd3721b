package browser

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/gotodo/todo-e2e/internal/scenario"
)

// ChromedpDriver drives Chrome over the DevTools protocol with chromedp.
type ChromedpDriver struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	opts          Options
	logger        *log.Logger
}

// NewChromedp launches Chrome, or attaches to opts.CDPURL when set.
func NewChromedp(ctx context.Context, opts Options) (*ChromedpDriver, error) {
	opts.setDefaults()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if opts.CDPURL != "" {
		opts.Logger.Printf("Connecting to Chrome at %s", opts.CDPURL)
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(context.Background(), opts.CDPURL)
	} else {
		execOpts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.NoFirstRun,
			chromedp.NoDefaultBrowserCheck,
			chromedp.Flag("disable-gpu", true),
			chromedp.WindowSize(opts.Width, opts.Height),
		)
		if !opts.Headless {
			execOpts = append(execOpts, chromedp.Flag("headless", false))
		}
		allocCtx, allocCancel = chromedp.NewExecAllocator(context.Background(), execOpts...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// The first Run allocates the browser and ties it to browserCtx, so it
	// must not run on a derived, shorter lived context.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	opts.Logger.Printf("Chrome ready (headless=%v)", opts.Headless)
	return &ChromedpDriver{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		opts:          opts,
		logger:        opts.Logger,
	}, nil
}

// bind derives a context from the chromedp browser context that also honours
// the deadline and cancellation of the caller's ctx.
func bind(browserCtx, ctx context.Context) (context.Context, context.CancelFunc) {
	var c context.Context
	var cancel context.CancelFunc
	if dl, ok := ctx.Deadline(); ok {
		c, cancel = context.WithDeadline(browserCtx, dl)
	} else {
		c, cancel = context.WithCancel(browserCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

func (d *ChromedpDriver) Name() string { return "chromedp" }

func (d *ChromedpDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}
	c, cancel := bind(d.browserCtx, ctx)
	defer cancel()
	return chromedp.Run(c, actions...)
}

func (d *ChromedpDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w: %w", url, scenario.ErrNavigation, err)
	}
	return nil
}

// locate waits for selector to match and insists on exactly one node.
func (d *ChromedpDriver) locate(ctx context.Context, selector string) error {
	var nodes []*cdp.Node
	if err := d.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", selector, scenario.ErrElementNotFound)
		}
		return fmt.Errorf("%s: %w", selector, err)
	}
	if len(nodes) > 1 {
		return fmt.Errorf("%s matched %d elements: %w", selector, len(nodes), scenario.ErrAmbiguous)
	}
	return nil
}

func interactErr(op, selector string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s %s: %w: %w", op, selector, scenario.ErrNotInteractable, err)
	}
	return fmt.Errorf("%s %s: %w", op, selector, err)
}

func (d *ChromedpDriver) Type(ctx context.Context, selector, text string) error {
	if err := d.locate(ctx, selector); err != nil {
		return err
	}
	if err := d.run(ctx, chromedp.SendKeys(selector, text, chromedp.ByQuery)); err != nil {
		return interactErr("type into", selector, err)
	}
	return nil
}

func (d *ChromedpDriver) Value(ctx context.Context, selector string) (string, error) {
	if err := d.locate(ctx, selector); err != nil {
		return "", err
	}
	var v string
	if err := d.run(ctx, chromedp.Value(selector, &v, chromedp.ByQuery)); err != nil {
		return "", interactErr("read value of", selector, err)
	}
	return v, nil
}

func (d *ChromedpDriver) Submit(ctx context.Context, selector string) error {
	if err := d.locate(ctx, selector); err != nil {
		return err
	}
	js := fmt.Sprintf(`(() => { const el = document.querySelector(%q); %s })()`, selector, submitJS)
	if err := d.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return interactErr("submit", selector, err)
	}
	return nil
}

func (d *ChromedpDriver) Click(ctx context.Context, selector string) error {
	if err := d.locate(ctx, selector); err != nil {
		return err
	}
	if err := d.run(ctx, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return interactErr("click", selector, err)
	}
	return nil
}

func (d *ChromedpDriver) WaitPresent(ctx context.Context, selector string) error {
	return d.locate(ctx, selector)
}

func (d *ChromedpDriver) WaitAbsent(ctx context.Context, selector string) error {
	if err := d.run(ctx, chromedp.WaitNotPresent(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("%s still present: %w", selector, err)
	}
	return nil
}

func (d *ChromedpDriver) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	// quality 100 keeps the capture in PNG format
	if err := d.run(ctx, chromedp.FullScreenshot(&buf, 100)); err != nil {
		return fmt.Errorf("capture screenshot: %w", err)
	}
	return writeFile(path, buf)
}

// Close shuts the browser down and releases the allocator.
func (d *ChromedpDriver) Close() error {
	err := chromedp.Cancel(d.browserCtx)
	d.browserCancel()
	d.allocCancel()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
