package pipeline

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/cost"
	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/pkg/anthropic"
)

// fakeLLM returns scripted replies keyed by a prompt substring.
type fakeLLM struct {
	replies map[string]string
	failOn  string
	calls   int
}

func (f *fakeLLM) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.calls++
	prompt := req.Messages[0].Content
	if f.failOn != "" && strings.Contains(prompt, f.failOn) {
		return nil, assert.AnError
	}
	for marker, reply := range f.replies {
		if strings.Contains(prompt, marker) {
			return &anthropic.MessageResponse{
				Content: []anthropic.ContentBlock{{Type: "text", Text: reply}},
				Usage:   anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 100},
			}, nil
		}
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "default reply"}},
		Usage:   anthropic.TokenUsage{InputTokens: 1000, OutputTokens: 100},
	}, nil
}

func llmStage(features ...string) *LLMStage {
	return NewLLMStage(config.LLMConfig{
		Enabled:    true,
		Features:   features,
		MaxTokens:  256,
		RatePerSec: 1000,
	}, "claude-haiku-4-5-20251001", 500)
}

func llmContext(client anthropic.Client) (*Context, *fakeGate) {
	gate := &fakeGate{}
	pc := testContext()
	pc.LLM = client
	pc.Costs = gate
	pc.Results = newMemoryCache()
	return pc, gate
}

func TestLLMSummarization(t *testing.T) {
	client := &fakeLLM{replies: map[string]string{"Summarize": "A concise summary."}}
	pc, gate := llmContext(client)

	e := testEntry()
	e.CleanedContent = "Long cleaned content about retrieval."
	outcome, err := llmStage(FeatureSummarization).Process(context.Background(), e, pc)
	require.NoError(t, err)
	assert.False(t, outcome.Drop)

	require.NotNil(t, e.SummaryLLM)
	assert.Equal(t, "A concise summary.", *e.SummaryLLM)
	assert.Equal(t, model.MethodHybrid, e.ProcessingMethod)
	assert.Greater(t, e.LLMCost, 0.0)
	assert.Equal(t, 1100, e.LLMTokens)
	require.Len(t, gate.recorded, 1)
	assert.Equal(t, int64(1100), gate.tokens[0])
	assert.Equal(t, "claude-haiku-4-5-20251001", gate.models[0])
}

func TestLLMBudgetExceededDegradesGracefully(t *testing.T) {
	client := &fakeLLM{}
	pc, gate := llmContext(client)
	gate.checkErr = &cost.BudgetError{Period: "daily", Budget: 5, Spent: 5}

	e := testEntry()
	outcome, err := llmStage(FeatureSummarization, FeatureCategorization).Process(context.Background(), e, pc)
	require.NoError(t, err)
	assert.False(t, outcome.Drop)

	// Keyword results stand; no calls were made.
	assert.Nil(t, e.SummaryLLM)
	assert.Equal(t, model.MethodKeyword, e.ProcessingMethod)
	assert.Zero(t, client.calls)
	assert.Empty(t, gate.recorded)
}

func TestLLMBudgetExhaustedMidEntryStaysHybrid(t *testing.T) {
	client := &fakeLLM{replies: map[string]string{"Summarize": "A concise summary."}}
	pc, gate := llmContext(client)
	gate.checkErr = &cost.BudgetError{Period: "daily", Budget: 5, Spent: 5}
	gate.passFirst = 1

	e := testEntry()
	outcome, err := llmStage(FeatureSummarization, FeatureCategorization).
		Process(context.Background(), e, pc)
	require.NoError(t, err)
	assert.False(t, outcome.Drop)

	// Summarization landed before the budget ran out; categorization
	// was skipped, but the applied feature still counts.
	require.NotNil(t, e.SummaryLLM)
	assert.Nil(t, e.PriorityLLM)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, model.MethodHybrid, e.ProcessingMethod)
}

func TestLLMFeatureFailureIsolated(t *testing.T) {
	client := &fakeLLM{
		replies: map[string]string{"Classify": `{"topics": ["RAG"], "priority": "High"}`},
		failOn:  "Summarize",
	}
	pc, _ := llmContext(client)

	e := testEntry()
	e.Topics = []string{"Agent"}
	outcome, err := llmStage(FeatureSummarization, FeatureCategorization).Process(context.Background(), e, pc)
	require.NoError(t, err)
	assert.False(t, outcome.Drop)

	// Summarization failed but categorization still landed.
	assert.Nil(t, e.SummaryLLM)
	assert.Equal(t, []string{"Agent", "RAG"}, e.Topics)
	require.NotNil(t, e.PriorityLLM)
	assert.Equal(t, model.PriorityHigh, *e.PriorityLLM)
	assert.Equal(t, model.PriorityHigh, e.Priority)
	assert.Equal(t, model.MethodHybrid, e.ProcessingMethod)
}

func TestLLMCategorizationStripsCodeFence(t *testing.T) {
	client := &fakeLLM{replies: map[string]string{
		"Classify": "```json\n{\"topics\": [\"RAG\"], \"priority\": \"Medium\"}\n```",
	}}
	pc, _ := llmContext(client)

	e := testEntry()
	_, err := llmStage(FeatureCategorization).Process(context.Background(), e, pc)
	require.NoError(t, err)
	assert.Equal(t, []string{"RAG"}, e.Topics)
	require.NotNil(t, e.PriorityLLM)
	assert.Equal(t, model.PriorityMedium, *e.PriorityLLM)
}

func TestLLMTranslation(t *testing.T) {
	client := &fakeLLM{replies: map[string]string{
		"Translate the following into de": "Deutscher Titel",
		"Translate the following into fr": "Titre français",
	}}
	pc, _ := llmContext(client)

	stage := NewLLMStage(config.LLMConfig{
		Enabled:         true,
		Features:        []string{FeatureTranslation},
		TargetLanguages: []string{"de", "fr"},
		MaxTokens:       256,
		RatePerSec:      1000,
	}, "claude-haiku-4-5-20251001", 500)

	e := testEntry()
	_, err := stage.Process(context.Background(), e, pc)
	require.NoError(t, err)
	assert.Equal(t, "Deutscher Titel", e.Translation["de"])
	assert.Equal(t, "Titre français", e.Translation["fr"])
}

func TestLLMResultCacheSkipsSecondCall(t *testing.T) {
	client := &fakeLLM{replies: map[string]string{"Summarize": "Cached summary."}}
	pc, gate := llmContext(client)
	stage := llmStage(FeatureSummarization)

	e1 := testEntry()
	e1.CleanedContent = "identical content"
	_, err := stage.Process(context.Background(), e1, pc)
	require.NoError(t, err)

	e2 := testEntry()
	e2.CleanedContent = "identical content"
	_, err = stage.Process(context.Background(), e2, pc)
	require.NoError(t, err)

	assert.Equal(t, 1, client.calls)
	assert.Len(t, gate.recorded, 1)
	require.NotNil(t, e2.SummaryLLM)
	assert.Equal(t, "Cached summary.", *e2.SummaryLLM)
	// Cache hits cost nothing.
	assert.Zero(t, e2.LLMCost)
}

func TestLLMNoClientPassesThrough(t *testing.T) {
	pc := testContext() // no LLM client
	e := testEntry()

	outcome, err := llmStage(FeatureSummarization).Process(context.Background(), e, pc)
	require.NoError(t, err)
	assert.False(t, outcome.Drop)
	assert.Equal(t, model.MethodKeyword, e.ProcessingMethod)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  ```json\n{\"a\":1}\n```  ", `{"a":1}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}

func TestMergeTopics(t *testing.T) {
	got := mergeTopics([]string{"RAG", "Agent"}, []string{"rag", "Evaluation", ""})
	assert.Equal(t, []string{"RAG", "Agent", "Evaluation"}, got)
}
