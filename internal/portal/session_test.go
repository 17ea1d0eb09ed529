package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityline/caseenrich/pkg/captcha"
)

// fakeSolver hands out sequential tokens without HTTP.
type fakeSolver struct {
	submits int
	polls   int
}

func (f *fakeSolver) Submit(ctx context.Context, siteKey, pageURL string) (string, error) {
	f.submits++
	return "job-1", nil
}

func (f *fakeSolver) Result(ctx context.Context, jobID string) (string, error) {
	f.polls++
	return "tok-1", nil
}

// fakeDriver scripts WaitResultLink outcomes per attempt.
type fakeDriver struct {
	tokenField  string
	linkResults []linkResult
	linkCalls   int
	submits     []string
	wentBack    int
	closed      bool
}

type linkResult struct {
	dataURL string
	err     error
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error { return nil }

func (d *fakeDriver) InjectToken(ctx context.Context, token string) error {
	d.tokenField = token
	return nil
}

func (d *fakeDriver) ReadTokenField(ctx context.Context) (string, error) {
	return d.tokenField, nil
}

func (d *fakeDriver) SubmitSearch(ctx context.Context, caseNumber string) error {
	d.submits = append(d.submits, caseNumber)
	return nil
}

func (d *fakeDriver) WaitResultLink(ctx context.Context) (string, error) {
	if d.linkCalls >= len(d.linkResults) {
		return "", ErrCaseLinkNotFound
	}
	r := d.linkResults[d.linkCalls]
	d.linkCalls++
	return r.dataURL, r.err
}

func (d *fakeDriver) GoBack(ctx context.Context) error {
	d.wentBack++
	return nil
}

func (d *fakeDriver) Close() error {
	d.closed = true
	return nil
}

func solveFast() []captcha.SolveOption {
	return []captcha.SolveOption{captcha.WithSolveInterval(time.Millisecond)}
}

func TestResolveCase_FirstAttempt(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{linkResults: []linkResult{
		{dataURL: "https://portal.example.com/Case/Detail?eid=9&id=case-abc"},
	}}
	sess := NewSession(driver, &fakeSolver{}, SessionConfig{
		SearchURL:     "https://portal.example.com/search",
		SiteKey:       "site-key",
		SearchRetries: 1,
		SolveOptions:  solveFast(),
	})

	id, err := sess.ResolveCase(context.Background(), "25SP001130-910")
	require.NoError(t, err)
	assert.Equal(t, "case-abc", id)
	assert.Equal(t, []string{"25SP001130-910"}, driver.submits)
}

func TestResolveCase_RetriesOnceWithFreshToken(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{linkResults: []linkResult{
		{err: ErrCaseLinkNotFound},
		{dataURL: "https://portal.example.com/Case/Detail?id=case-xyz"},
	}}
	solver := &fakeSolver{}
	sess := NewSession(driver, solver, SessionConfig{
		SearchURL:     "https://portal.example.com/search",
		SiteKey:       "site-key",
		SearchRetries: 1,
		SolveOptions:  solveFast(),
	})

	id, err := sess.ResolveCase(context.Background(), "25SP001130-910")
	require.NoError(t, err)
	assert.Equal(t, "case-xyz", id)
	assert.Equal(t, 2, solver.submits, "each attempt solves a fresh token")
	assert.Len(t, driver.submits, 2)
}

func TestResolveCase_ExhaustsRetryBudget(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{linkResults: []linkResult{
		{err: ErrCaseLinkNotFound},
		{err: ErrCaseLinkNotFound},
	}}
	sess := NewSession(driver, &fakeSolver{}, SessionConfig{
		SearchURL:     "https://portal.example.com/search",
		SiteKey:       "site-key",
		SearchRetries: 1,
		SolveOptions:  solveFast(),
	})

	_, err := sess.ResolveCase(context.Background(), "25SP001130-910")
	require.ErrorIs(t, err, ErrCaseLinkNotFound)
	assert.Equal(t, 2, driver.linkCalls)
}

func TestResolveCase_RetryBudgetCappedAtOne(t *testing.T) {
	t.Parallel()

	// Every attempt misses; an oversized configured budget must still stop
	// after the original submission plus one resubmission.
	driver := &fakeDriver{}
	solver := &fakeSolver{}
	sess := NewSession(driver, solver, SessionConfig{
		SearchURL:     "https://portal.example.com/search",
		SiteKey:       "site-key",
		SearchRetries: 5,
		SolveOptions:  solveFast(),
	})

	_, err := sess.ResolveCase(context.Background(), "25SP001130-910")
	require.ErrorIs(t, err, ErrCaseLinkNotFound)
	assert.Equal(t, []string{"25SP001130-910", "25SP001130-910"}, driver.submits)
	assert.Equal(t, 2, solver.submits, "one fresh solve per attempt, nothing more")
}

func TestResolveCase_MissingCaseID(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{linkResults: []linkResult{
		{dataURL: "https://portal.example.com/Case/Detail?eid=9"},
	}}
	sess := NewSession(driver, &fakeSolver{}, SessionConfig{
		SearchURL:    "https://portal.example.com/search",
		SiteKey:      "site-key",
		SolveOptions: solveFast(),
	})

	_, err := sess.ResolveCase(context.Background(), "25SP001130-910")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no case id")
}

func TestStart_VerifiesInjection(t *testing.T) {
	t.Parallel()

	driver := &fakeDriver{}
	sess := NewSession(driver, &fakeSolver{}, SessionConfig{
		SearchURL:    "https://portal.example.com/search",
		SiteKey:      "site-key",
		SolveOptions: solveFast(),
	})

	require.NoError(t, sess.Start(context.Background()))
	assert.Equal(t, "tok-1", driver.tokenField)
}

// emptyFieldDriver swallows injections so the token field stays blank.
type emptyFieldDriver struct{ fakeDriver }

func (d *emptyFieldDriver) InjectToken(ctx context.Context, token string) error { return nil }

func TestStart_InjectionFailure(t *testing.T) {
	t.Parallel()

	sess := NewSession(&emptyFieldDriver{}, &fakeSolver{}, SessionConfig{
		SearchURL:           "https://portal.example.com/search",
		SiteKey:             "site-key",
		InjectVerifyTimeout: 10 * time.Millisecond,
		InjectPollInterval:  2 * time.Millisecond,
		SolveOptions:        solveFast(),
	})

	err := sess.Start(context.Background())
	require.ErrorIs(t, err, ErrChallengeInjection)
}
