package anthropic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*MessageResponse), args.Error(1)
}

func TestMockClientCreateMessage(t *testing.T) {
	m := &MockClient{}
	want := &MessageResponse{
		ID:      "msg_1",
		Content: []ContentBlock{{Type: "text", Text: "hello"}},
		Usage:   TokenUsage{InputTokens: 10, OutputTokens: 5},
	}
	m.On("CreateMessage", mock.Anything, mock.Anything).Return(want, nil)

	resp, err := m.CreateMessage(context.Background(), MessageRequest{Model: "claude-haiku-4-5-20251001"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.FirstText())
	m.AssertExpectations(t)
}

func TestFirstText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "thinking", Text: "hmm"},
		{Type: "text", Text: "  answer  "},
	}}
	assert.Equal(t, "answer", resp.FirstText())

	empty := &MessageResponse{}
	assert.Equal(t, "", empty.FirstText())
}

func TestEstimateCost(t *testing.T) {
	u := TokenUsage{InputTokens: 1_000_000, OutputTokens: 1_000_000}
	assert.InDelta(t, 4.80, u.EstimateCost("claude-haiku-4-5-20251001"), 0.001)
	assert.InDelta(t, 18.00, u.EstimateCost("claude-sonnet-4-5-20250929"), 0.001)
	// Unknown models fall back to mid-tier pricing rather than zero.
	assert.InDelta(t, 18.00, u.EstimateCost("unknown-model"), 0.001)
}

func TestEstimateInputCost(t *testing.T) {
	// 4000 chars is roughly 1000 tokens at $0.80/MTok.
	got := EstimateInputCost("claude-haiku-4-5-20251001", 4000)
	assert.InDelta(t, 0.0008, got, 1e-6)
}

func TestTokenUsageTotal(t *testing.T) {
	u := TokenUsage{InputTokens: 7, OutputTokens: 3}
	assert.Equal(t, int64(10), u.Total())
}
