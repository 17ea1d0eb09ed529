package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/equityline/caseenrich/internal/model"
	"github.com/equityline/caseenrich/pkg/anthropic"
)

type fakeClient struct {
	lastReq anthropic.MessageRequest
	resp    *anthropic.MessageResponse
	err     error
}

func (f *fakeClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.lastReq = req
	return f.resp, f.err
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

func TestExtract_DecodesFencedPayload(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse("```json\n{\"red_flag\":\"No\",\"active_indicator\":true,\"Deal_Evaluation\":{\"case_summary\":\"tax foreclosure\"}}\n```")}
	e := NewModelExtractor(client, "claude-sonnet-4-5-20250929", 4096)

	state, err := e.Extract(context.Background(), "NOTICE OF SALE ...", nil)
	require.NoError(t, err)
	assert.False(t, state.RedFlag.Bool())
	assert.True(t, state.ActiveIndicator.Bool())
	assert.Equal(t, "tax foreclosure", state.DealEvaluation.CaseSummary.String())

	require.Len(t, client.lastReq.Messages, 1)
	assert.NotContains(t, client.lastReq.Messages[0].Content, "Previous extracted data",
		"first document carries no prior context")
}

func TestExtract_PriorStateRendered(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse(`{"red_flag":"No"}`)}
	e := NewModelExtractor(client, "claude-sonnet-4-5-20250929", 4096)

	prior := &model.ExtractionState{}
	prior.PropertyInfo.PropertyAddress = "204 Oakwood Ave"
	prior.PropertyInfo.ParcelID = "1704-12-3456"

	_, err := e.Extract(context.Background(), "AFFIDAVIT ...", prior)
	require.NoError(t, err)

	content := client.lastReq.Messages[0].Content
	assert.Contains(t, content, "Previous extracted data:")
	assert.Contains(t, content, "Property_address: 204 Oakwood Ave")
}

func TestExtract_EmptyResponse(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: &anthropic.MessageResponse{}}
	e := NewModelExtractor(client, "claude-sonnet-4-5-20250929", 4096)

	_, err := e.Extract(context.Background(), "text", nil)
	require.ErrorIs(t, err, ErrExtraction)
}

func TestExtract_UnparsableJSON(t *testing.T) {
	t.Parallel()

	client := &fakeClient{resp: textResponse("I could not find any structured data.")}
	e := NewModelExtractor(client, "claude-sonnet-4-5-20250929", 4096)

	_, err := e.Extract(context.Background(), "text", nil)
	require.ErrorIs(t, err, ErrExtraction)
}

func TestCleanJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose wrapping", "Here you go:\n{\"a\":1}\nHope that helps.", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
