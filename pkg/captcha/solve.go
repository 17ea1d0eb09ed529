package captcha

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInterval = 3 * time.Second
	defaultMaxPolls     = 50
)

// SolveOption configures Solve's polling behavior.
type SolveOption func(*solveConfig)

type solveConfig struct {
	interval time.Duration
	maxPolls int
}

// WithSolveInterval overrides the fixed poll interval.
func WithSolveInterval(d time.Duration) SolveOption {
	return func(c *solveConfig) {
		c.interval = d
	}
}

// WithMaxPolls overrides the poll budget.
func WithMaxPolls(n int) SolveOption {
	return func(c *solveConfig) {
		c.maxPolls = n
	}
}

// Solve submits a challenge and polls at a fixed interval until the solver
// returns a token, rejects the job, or the poll budget runs out. The fixed
// interval is deliberate: the solver farm's latency doesn't decay, so
// backoff only delays the answer.
func Solve(ctx context.Context, client Client, siteKey, pageURL string, opts ...SolveOption) (string, error) {
	cfg := solveConfig{
		interval: defaultPollInterval,
		maxPolls: defaultMaxPolls,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	jobID, err := client.Submit(ctx, siteKey, pageURL)
	if err != nil {
		return "", eris.Wrap(err, "captcha: submit challenge")
	}

	for i := 0; i < cfg.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return "", eris.Wrap(ctx.Err(), "captcha: solve cancelled")
		case <-time.After(cfg.interval):
		}

		token, err := client.Result(ctx, jobID)
		if err == nil {
			return token, nil
		}
		if errors.Is(err, ErrNotReady) {
			continue
		}
		return "", err
	}

	return "", eris.Wrapf(ErrChallengeTimeout, "job %s not solved after %d polls", jobID, cfg.maxPolls)
}
