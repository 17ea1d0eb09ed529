// Package portal drives the court portal's captcha-gated case search and
// fetches each resolved case's document catalog.
package portal

import "context"

// Driver is the browser capability the session needs, kept narrow so the
// search flow is testable without a real browser. The production adapter
// is chromedp; tests use a scripted fake.
type Driver interface {
	// Navigate loads the search page.
	Navigate(ctx context.Context, url string) error
	// InjectToken writes a solved challenge token into the page's response
	// field and fires its change event.
	InjectToken(ctx context.Context, token string) error
	// ReadTokenField returns the current value of the response field, used
	// to verify an injection took.
	ReadTokenField(ctx context.Context) (string, error)
	// SubmitSearch fills the case-number criteria field and submits.
	SubmitSearch(ctx context.Context, caseNumber string) error
	// WaitResultLink blocks until the result link renders and returns its
	// data-url attribute.
	WaitResultLink(ctx context.Context) (string, error)
	// GoBack returns to the search page after a case, success or failure.
	GoBack(ctx context.Context) error
	// Close releases the underlying browser.
	Close() error
}
