// Package captcha provides a client for a 2captcha-compatible reCAPTCHA
// solving service: submit a challenge, then poll for the token.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// Sentinel errors. ErrNotReady is retried by Solve; the others abort.
var (
	ErrNotReady          = eris.New("captcha: solution not ready")
	ErrChallengeRejected = eris.New("captcha: challenge rejected by solver")
	ErrChallengeTimeout  = eris.New("captcha: poll budget exhausted")
)

// Client defines the challenge-solver operations.
type Client interface {
	// Submit registers a reCAPTCHA challenge and returns the solver's job id.
	Submit(ctx context.Context, siteKey, pageURL string) (string, error)
	// Result fetches the token for a submitted job. Returns ErrNotReady while
	// the solver is still working.
	Result(ctx context.Context, jobID string) (string, error)
}

// apiResponse is the solver's uniform JSON envelope: status 1 with the
// payload in "request", or status 0 with an error code in "request".
type apiResponse struct {
	Status  int    `json:"status"`
	Request string `json:"request"`
}

// Option configures the captcha client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new challenge-solver client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://2captcha.com",
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) getJSON(ctx context.Context, reqURL string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "captcha: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "captcha: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "captcha: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("captcha: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result apiResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "captcha: unmarshal response")
	}
	return &result, nil
}

func (c *httpClient) Submit(ctx context.Context, siteKey, pageURL string) (string, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("method", "userrecaptcha")
	q.Set("googlekey", siteKey)
	q.Set("pageurl", pageURL)
	q.Set("json", "1")

	result, err := c.getJSON(ctx, fmt.Sprintf("%s/in.php?%s", c.baseURL, q.Encode()))
	if err != nil {
		return "", err
	}
	if result.Status != 1 {
		return "", eris.Errorf("captcha: submit rejected: %s", result.Request)
	}
	return result.Request, nil
}

func (c *httpClient) Result(ctx context.Context, jobID string) (string, error) {
	q := url.Values{}
	q.Set("key", c.apiKey)
	q.Set("action", "get")
	q.Set("id", jobID)
	q.Set("json", "1")

	result, err := c.getJSON(ctx, fmt.Sprintf("%s/res.php?%s", c.baseURL, q.Encode()))
	if err != nil {
		return "", err
	}
	if result.Status == 1 {
		return result.Request, nil
	}
	if result.Request == "CAPCHA_NOT_READY" {
		// sic: the upstream API misspells its own sentinel.
		return "", ErrNotReady
	}
	return "", eris.Wrapf(ErrChallengeRejected, "job %s: %s", jobID, result.Request)
}
