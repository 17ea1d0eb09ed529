package portal

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

const (
	tokenFieldJS   = `document.querySelector('[name="g-recaptcha-response"]')`
	searchFieldSel = "#caseCriteria_SearchCriteria"
	submitSel      = "#btnSSSubmit"
	resultLinkSel  = "a.caseLink"
)

// ChromeDriver implements Driver on a headless Chrome via chromedp. One
// driver owns one browser for the lifetime of a session.
type ChromeDriver struct {
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
	linkWait    time.Duration
	settle      time.Duration
}

// ChromeOptions configures the browser.
type ChromeOptions struct {
	Headless bool
	LinkWait time.Duration
	Settle   time.Duration
}

// NewChromeDriver launches a browser and returns a driver bound to it.
func NewChromeDriver(opts ChromeOptions) (*ChromeDriver, error) {
	if opts.LinkWait <= 0 {
		opts.LinkWait = 30 * time.Second
	}
	if opts.Settle <= 0 {
		opts.Settle = 3 * time.Second
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so a broken environment fails here, not on
	// the first case.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, eris.Wrap(err, "portal: launch browser")
	}

	return &ChromeDriver{
		browserCtx:  browserCtx,
		cancelAlloc: cancelAlloc,
		cancelCtx:   cancelCtx,
		linkWait:    opts.LinkWait,
		settle:      opts.Settle,
	}, nil
}

// run executes actions on the driver's browser context. chromedp actions
// are bound to the browser's lifetime, so the caller context is bridged
// in: canceling it aborts the in-flight action without tearing the
// browser down.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := bridgeCancel(ctx, d.browserCtx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// bridgeCancel returns a cancelable child of parent that is also canceled
// when caller is. parent keeps carrying its values (here, the chromedp
// browser handle); caller only contributes its cancellation.
func bridgeCancel(caller, parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return eris.Wrapf(err, "portal: navigate %s", url)
	}
	return nil
}

func (d *ChromeDriver) InjectToken(ctx context.Context, token string) error {
	js := fmt.Sprintf(`(() => {
		const el = %s;
		el.value = %q;
		el.dispatchEvent(new Event('change', { bubbles: true }));
	})()`, tokenFieldJS, token)
	if err := d.run(ctx, chromedp.Evaluate(js, nil)); err != nil {
		return eris.Wrap(err, "portal: inject token")
	}
	return nil
}

func (d *ChromeDriver) ReadTokenField(ctx context.Context) (string, error) {
	var value string
	if err := d.run(ctx, chromedp.Evaluate(tokenFieldJS+`.value`, &value)); err != nil {
		return "", eris.Wrap(err, "portal: read token field")
	}
	return value, nil
}

func (d *ChromeDriver) SubmitSearch(ctx context.Context, caseNumber string) error {
	err := d.run(ctx,
		chromedp.WaitVisible(searchFieldSel, chromedp.ByQuery),
		chromedp.SetValue(searchFieldSel, caseNumber, chromedp.ByQuery),
		chromedp.Sleep(d.settle),
		chromedp.Click(submitSel, chromedp.ByQuery),
		chromedp.Sleep(d.settle),
	)
	if err != nil {
		return eris.Wrapf(err, "portal: submit search %s", caseNumber)
	}
	return nil
}

func (d *ChromeDriver) WaitResultLink(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	bridged, stop := bridgeCancel(ctx, d.browserCtx)
	defer stop()
	waitCtx, cancel := context.WithTimeout(bridged, d.linkWait)
	defer cancel()

	var dataURL string
	var ok bool
	err := chromedp.Run(waitCtx,
		chromedp.WaitVisible(resultLinkSel, chromedp.ByQuery),
		chromedp.AttributeValue(resultLinkSel, "data-url", &dataURL, &ok, chromedp.ByQuery),
	)
	if err != nil {
		return "", eris.Wrap(ErrCaseLinkNotFound, err.Error())
	}
	if !ok {
		return "", eris.Wrap(ErrCaseLinkNotFound, "result link has no data-url attribute")
	}
	return dataURL, nil
}

func (d *ChromeDriver) GoBack(ctx context.Context) error {
	if err := d.run(ctx, chromedp.NavigateBack()); err != nil {
		return eris.Wrap(err, "portal: go back")
	}
	return nil
}

func (d *ChromeDriver) Close() error {
	d.cancelCtx()
	d.cancelAlloc()
	return nil
}
