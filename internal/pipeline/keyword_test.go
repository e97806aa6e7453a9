package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/model"
)

func keywordEntry(link, text string) *model.ProcessedEntry {
	e := model.FromCollected(model.CollectedEntry{Title: "t", Link: link})
	e.NormalizedText = text
	return e
}

func TestKeywordAssignsTopicsAndPriority(t *testing.T) {
	e := keywordEntry("https://example.com/a",
		"a breakthrough in retrieval systems with tool use")

	outcome, err := NewKeywordStage().Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.False(t, outcome.Drop)
	assert.Equal(t, []string{"Agent", "RAG"}, e.Topics)
	assert.Equal(t, model.PriorityHigh, e.Priority)
	assert.Equal(t, model.MethodKeyword, e.ProcessingMethod)
}

func TestKeywordTopicsRequireWordBoundary(t *testing.T) {
	// "classification" must not match a topic keyword "class"; here
	// "ragtime" must not match the "rag" keyword.
	e := keywordEntry("https://example.com/a", "a history of ragtime music")

	_, err := NewKeywordStage().Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.Empty(t, e.Topics)
}

func TestKeywordPriorityMatchesSubstring(t *testing.T) {
	// Priority keywords match inside larger words: "benchmarking"
	// contains "benchmark".
	e := keywordEntry("https://example.com/a", "benchmarking deep learning systems")

	_, err := NewKeywordStage().Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, e.Priority)
}

func TestKeywordHighBeatsMedium(t *testing.T) {
	e := keywordEntry("https://example.com/a",
		"release notes describe a state-of-the-art model")

	_, err := NewKeywordStage().Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, e.Priority)
}

func TestKeywordDefaultLow(t *testing.T) {
	e := keywordEntry("https://example.com/a", "nothing notable here")

	_, err := NewKeywordStage().Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, e.Priority)
}

func TestKeywordArxivFallback(t *testing.T) {
	rag := keywordEntry("https://arxiv.org/abs/1", "we study retrieving documents")
	_, err := NewKeywordStage().Process(context.Background(), rag, testContext())
	require.NoError(t, err)
	// "retrieving" contains "retriev", steering the fallback to RAG.
	assert.Equal(t, []string{"RAG"}, rag.Topics)

	agent := keywordEntry("https://arxiv.org/abs/2", "we study planning")
	_, err = NewKeywordStage().Process(context.Background(), agent, testContext())
	require.NoError(t, err)
	assert.Equal(t, []string{"Agent"}, agent.Topics)

	// Feed links come from arXiv mirror hosts, not the canonical domain.
	mirror := keywordEntry("https://rss.arxiv.org/abs/3", "we study retrieving documents")
	_, err = NewKeywordStage().Process(context.Background(), mirror, testContext())
	require.NoError(t, err)
	assert.Equal(t, []string{"RAG"}, mirror.Topics)

	// Non-arXiv entries get no fallback.
	none := keywordEntry("https://example.com/a", "we study planning")
	_, err = NewKeywordStage().Process(context.Background(), none, testContext())
	require.NoError(t, err)
	assert.Empty(t, none.Topics)
}

func TestKeywordNoRules(t *testing.T) {
	pc := testContext()
	pc.Rules = nil

	e := keywordEntry("https://example.com/a", "retrieval agents")
	_, err := NewKeywordStage().Process(context.Background(), e, pc)
	require.NoError(t, err)
	assert.Empty(t, e.Topics)
	assert.Equal(t, model.PriorityLow, e.Priority)
}
