package portal

import "github.com/rotisserie/eris"

// Sentinel errors for the per-case search flow. All are per-case: the
// runner records the failure and moves on.
var (
	// ErrChallengeInjection means the token never appeared in the page's
	// response field after injection.
	ErrChallengeInjection = eris.New("portal: challenge token injection failed")
	// ErrCaseLinkNotFound means the result link did not render within the
	// wait budget, on the initial attempt and the one retry.
	ErrCaseLinkNotFound = eris.New("portal: case link not found")
	// ErrCatalogFetch means the document catalog request failed or returned
	// a non-2xx status.
	ErrCatalogFetch = eris.New("portal: catalog fetch failed")
)
