package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	jobStatusSucceeded = "SUCCEEDED"
	jobStatusFailed    = "FAILED"
	defaultJobInterval = 5 * time.Second
	defaultJobMaxPolls = 60
	lineBlockType      = "LINE"
)

// JobClient talks to the async document-text-detection service: submit a
// job against an archived object, poll it, then page through the result
// blocks.
type JobClient struct {
	baseURL  string
	apiKey   string
	bucket   string
	interval time.Duration
	maxPolls int
	http     *http.Client
}

// JobOption configures the job client.
type JobOption func(*JobClient)

// WithJobHTTPClient sets a custom HTTP client.
func WithJobHTTPClient(hc *http.Client) JobOption {
	return func(c *JobClient) {
		c.http = hc
	}
}

// WithJobPollInterval overrides the fixed poll interval.
func WithJobPollInterval(d time.Duration) JobOption {
	return func(c *JobClient) {
		c.interval = d
	}
}

// WithJobMaxPolls overrides the poll budget.
func WithJobMaxPolls(n int) JobOption {
	return func(c *JobClient) {
		c.maxPolls = n
	}
}

// NewJobClient creates a client for the OCR job service. bucket names the
// object-storage bucket the service reads documents from.
func NewJobClient(baseURL, apiKey, bucket string, opts ...JobOption) *JobClient {
	c := &JobClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		bucket:   bucket,
		interval: defaultJobInterval,
		maxPolls: defaultJobMaxPolls,
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

type startJobRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

type startJobResponse struct {
	JobID string `json:"job_id"`
}

type jobResultResponse struct {
	Status    string     `json:"status"`
	Blocks    []jobBlock `json:"blocks"`
	NextToken string     `json:"next_token"`
}

type jobBlock struct {
	BlockType string `json:"block_type"`
	Text      string `json:"text"`
}

// TextFromObject runs the full job lifecycle for one archived document and
// returns the concatenated LINE text in block order.
func (c *JobClient) TextFromObject(ctx context.Context, key string) (string, error) {
	jobID, err := c.startJob(ctx, key)
	if err != nil {
		return "", err
	}
	zap.L().Info("ocr job started", zap.String("key", key), zap.String("job_id", jobID))

	if err := c.waitJob(ctx, jobID); err != nil {
		return "", err
	}
	return c.collectText(ctx, jobID)
}

func (c *JobClient) startJob(ctx context.Context, key string) (string, error) {
	payload, err := json.Marshal(startJobRequest{Bucket: c.bucket, Key: key})
	if err != nil {
		return "", eris.Wrap(err, "ocr: marshal job request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "ocr: create job request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	body, status, err := c.do(req)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return "", eris.Errorf("ocr: start job for %s: status %d: %s", key, status, string(body))
	}

	var resp startJobResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", eris.Wrap(err, "ocr: unmarshal start response")
	}
	if resp.JobID == "" {
		return "", eris.Errorf("ocr: start job for %s: empty job id", key)
	}
	return resp.JobID, nil
}

// waitJob polls at a fixed interval until the job settles or the budget
// runs out.
func (c *JobClient) waitJob(ctx context.Context, jobID string) error {
	for i := 0; i < c.maxPolls; i++ {
		result, err := c.fetchResult(ctx, jobID, "")
		if err != nil {
			return err
		}
		switch result.Status {
		case jobStatusSucceeded:
			return nil
		case jobStatusFailed:
			return eris.Wrapf(ErrOCRJobFailed, "job %s", jobID)
		}

		select {
		case <-ctx.Done():
			return eris.Wrap(ctx.Err(), fmt.Sprintf("ocr: wait job %s", jobID))
		case <-time.After(c.interval):
		}
	}
	return eris.Wrapf(ErrOCRJobFailed, "job %s not finished after %d polls", jobID, c.maxPolls)
}

// collectText pages through the finished job's blocks and concatenates the
// LINE text.
func (c *JobClient) collectText(ctx context.Context, jobID string) (string, error) {
	var sb strings.Builder
	token := ""
	for {
		result, err := c.fetchResult(ctx, jobID, token)
		if err != nil {
			return "", err
		}
		for _, block := range result.Blocks {
			if block.BlockType == lineBlockType {
				sb.WriteString(block.Text)
				sb.WriteString("\n")
			}
		}
		if result.NextToken == "" {
			return sb.String(), nil
		}
		token = result.NextToken
	}
}

func (c *JobClient) fetchResult(ctx context.Context, jobID, nextToken string) (*jobResultResponse, error) {
	reqURL := fmt.Sprintf("%s/jobs/%s", c.baseURL, url.PathEscape(jobID))
	if nextToken != "" {
		reqURL += "?next_token=" + url.QueryEscape(nextToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: create result request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	body, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, eris.Errorf("ocr: fetch job %s: status %d: %s", jobID, status, string(body))
	}

	var result jobResultResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "ocr: unmarshal result")
	}
	return &result, nil
}

func (c *JobClient) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(err, "ocr: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "ocr: read response body")
	}
	return body, resp.StatusCode, nil
}
