// Package extract turns raw document text into the structured case
// summary via the Anthropic Messages API.
package extract

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/equityline/caseenrich/internal/model"
	"github.com/equityline/caseenrich/pkg/anthropic"
)

// ErrExtraction marks an unusable model response: empty content or
// unparsable JSON. The case goes to parse_failed.
var ErrExtraction = eris.New("extract: structured extraction failed")

// Extractor produces a new extraction state from one document's text and
// the state accumulated so far.
type Extractor interface {
	Extract(ctx context.Context, docText string, prior *model.ExtractionState) (*model.ExtractionState, error)
}

// ModelExtractor implements Extractor on the Anthropic API.
type ModelExtractor struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewModelExtractor creates the production extractor.
func NewModelExtractor(client anthropic.Client, model string, maxTokens int64) *ModelExtractor {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &ModelExtractor{client: client, model: model, maxTokens: maxTokens}
}

func (e *ModelExtractor) Extract(ctx context.Context, docText string, prior *model.ExtractionState) (*model.ExtractionState, error) {
	resp, err := e.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.model,
		MaxTokens: e.maxTokens,
		System: []anthropic.SystemBlock{
			{Text: systemText, CacheControl: &anthropic.CacheControl{TTL: "5m"}},
		},
		Messages: []anthropic.Message{
			{Role: "user", Content: buildPrompt(docText, prior)},
		},
	})
	if err != nil {
		return nil, eris.Wrap(err, "extract: create message")
	}
	resp.Usage.LogCost(e.model, "extract")

	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, eris.Wrap(ErrExtraction, "empty model response")
	}

	var state model.ExtractionState
	if err := json.Unmarshal([]byte(cleanJSON(text)), &state); err != nil {
		zap.L().Warn("unparsable extraction payload",
			zap.Error(err),
			zap.Int("response_len", len(text)))
		return nil, eris.Wrapf(ErrExtraction, "decode payload: %v", err)
	}
	return &state, nil
}

// responseText concatenates the response's text blocks.
func responseText(resp *anthropic.MessageResponse) string {
	if resp == nil {
		return ""
	}
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}
