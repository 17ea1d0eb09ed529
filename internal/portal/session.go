package portal

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/equityline/caseenrich/pkg/captcha"
)

// SessionConfig holds the search-flow budgets. Zero values get defaults
// matching the portal's observed behavior.
type SessionConfig struct {
	// SearchURL is the captcha-gated search page.
	SearchURL string
	// SiteKey is the page's reCAPTCHA site key.
	SiteKey string
	// InjectVerifyTimeout bounds the wait for an injected token to appear
	// in the page's response field.
	InjectVerifyTimeout time.Duration
	// InjectPollInterval is how often the response field is re-read.
	InjectPollInterval time.Duration
	// SearchRetries is how many times a failed case search is retried with
	// a fresh token. The budget is capped at one retry: the portal
	// invalidates tokens aggressively and a single resubmission recovers
	// most misses; anything beyond that hammers the solver for nothing.
	SearchRetries int
	// SolveOptions are passed through to captcha.Solve.
	SolveOptions []captcha.SolveOption
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.InjectVerifyTimeout <= 0 {
		c.InjectVerifyTimeout = 3 * time.Second
	}
	if c.InjectPollInterval <= 0 {
		c.InjectPollInterval = 200 * time.Millisecond
	}
	if c.SearchRetries < 0 {
		c.SearchRetries = 0
	}
	if c.SearchRetries > 1 {
		c.SearchRetries = 1
	}
	return c
}

// Session owns one browser driver and one challenge solver and runs the
// per-case search flow. Cases are strictly sequential within a session.
type Session struct {
	driver Driver
	solver captcha.Client
	cfg    SessionConfig
}

// NewSession wires a driver and solver into a session.
func NewSession(driver Driver, solver captcha.Client, cfg SessionConfig) *Session {
	return &Session{
		driver: driver,
		solver: solver,
		cfg:    cfg.withDefaults(),
	}
}

// Start navigates to the search page and primes it with a solved token.
func (s *Session) Start(ctx context.Context) error {
	if err := s.driver.Navigate(ctx, s.cfg.SearchURL); err != nil {
		return err
	}
	return s.solveAndInject(ctx)
}

// solveAndInject obtains a fresh token, injects it, and verifies the
// response field actually carries it. Tokens are single-use; every call
// solves anew.
func (s *Session) solveAndInject(ctx context.Context) error {
	token, err := captcha.Solve(ctx, s.solver, s.cfg.SiteKey, s.cfg.SearchURL, s.cfg.SolveOptions...)
	if err != nil {
		return eris.Wrap(err, "portal: solve challenge")
	}
	if err := s.driver.InjectToken(ctx, token); err != nil {
		return err
	}

	deadline := time.Now().Add(s.cfg.InjectVerifyTimeout)
	for {
		value, err := s.driver.ReadTokenField(ctx)
		if err != nil {
			return err
		}
		if value != "" {
			return nil
		}
		if time.Now().After(deadline) {
			return eris.Wrap(ErrChallengeInjection, "token field still empty")
		}
		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), "portal: verify injection")
		case <-time.After(s.cfg.InjectPollInterval):
		}
	}
}

// ResolveCase searches for a case number and returns the portal's internal
// case id, retrying the whole solve-inject-submit sequence per the
// configured budget before giving up.
func (s *Session) ResolveCase(ctx context.Context, caseNumber string) (string, error) {
	attempts := 1 + s.cfg.SearchRetries
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			zap.L().Info("retrying case search with fresh token",
				zap.String("case_number", caseNumber),
				zap.Int("attempt", attempt))
		}
		if err := s.solveAndInject(ctx); err != nil {
			lastErr = err
			continue
		}
		if err := s.driver.SubmitSearch(ctx, caseNumber); err != nil {
			lastErr = err
			continue
		}
		dataURL, err := s.driver.WaitResultLink(ctx)
		if err != nil {
			lastErr = err
			if errors.Is(err, ErrCaseLinkNotFound) || errors.Is(err, ErrChallengeInjection) {
				continue
			}
			return "", err
		}
		id, err := parseCaseID(dataURL)
		if err != nil {
			return "", err
		}
		return id, nil
	}
	return "", eris.Wrapf(lastErr, "portal: case %s not resolved after %d attempts", caseNumber, attempts)
}

// GoBack returns the browser to the search page. It runs after every case,
// success or failure.
func (s *Session) GoBack(ctx context.Context) error {
	return s.driver.GoBack(ctx)
}

// Close releases the underlying browser.
func (s *Session) Close() error {
	return s.driver.Close()
}

// parseCaseID pulls the portal's case id out of a result link's data-url,
// e.g. ".../Case/CaseDetail?eid=x&id=abc123" -> "abc123".
func parseCaseID(dataURL string) (string, error) {
	u, err := url.Parse(dataURL)
	if err != nil {
		return "", eris.Wrapf(err, "portal: parse result link %q", dataURL)
	}
	id := u.Query().Get("id")
	if id == "" {
		return "", eris.Errorf("portal: result link %q has no case id", dataURL)
	}
	return id, nil
}
