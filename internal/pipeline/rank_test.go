package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intake-cli/internal/model"
)

func rankStageAt(now time.Time) *RankStage {
	s := NewRankStage()
	s.now = func() time.Time { return now }
	return s
}

func TestRankHighPriorityEntry(t *testing.T) {
	now := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	e := testEntry()
	e.Published = "2026-08-24T00:00:00Z"
	e.Topics = []string{"RAG", "Agent"}
	e.OverallQuality = 0.9
	e.VerificationScore = 0.8

	outcome, err := rankStageAt(now).Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.False(t, outcome.Drop)

	// 0.4*0.9 + 0.3*0.8 + 0.2*1.0 + 0.1*0.8 = 0.88
	assert.InDelta(t, 0.88, e.PriorityScore, 1e-9)
	assert.Equal(t, model.PriorityHigh, e.FinalPriority)
	assert.NotEmpty(t, e.RankingReason)
}

func TestRankRelevanceFromTopicCount(t *testing.T) {
	now := time.Now()

	tests := []struct {
		topics []string
		want   float64
	}{
		{nil, 0.5},
		{[]string{"a"}, 0.65},
		{[]string{"a", "b"}, 0.8},
		{[]string{"a", "b", "c", "d"}, 1.0}, // capped
	}
	for _, tt := range tests {
		e := testEntry()
		e.Published = ""
		e.Topics = tt.topics
		e.OverallQuality = 0
		e.VerificationScore = 0

		_, err := rankStageAt(now).Process(context.Background(), e, testContext())
		require.NoError(t, err)
		// Quality, timeliness, and verification all read neutral 0.5.
		assert.InDelta(t, 0.3*tt.want+0.35, e.PriorityScore, 1e-9)
	}
}

func TestRankNeutralDefaults(t *testing.T) {
	// With every upstream stage disabled the blend is all-neutral.
	e := testEntry()
	e.Published = ""

	_, err := rankStageAt(time.Now()).Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.InDelta(t, 0.5, e.PriorityScore, 1e-9)
	assert.Equal(t, model.PriorityMedium, e.FinalPriority)
}

func TestRankTierBoundaries(t *testing.T) {
	now := time.Now()

	mk := func(quality float64) *model.ProcessedEntry {
		e := testEntry()
		e.Published = ""
		e.OverallQuality = quality
		return e
	}

	// quality 1.0, one topic: 0.4 + 0.3*0.65 + 0.1 + 0.05 = 0.745 → High.
	e := mk(1.0)
	e.Topics = []string{"RAG"}
	_, err := rankStageAt(now).Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, e.FinalPriority)

	// quality 0.95: 0.38 + 0.15 + 0.1 + 0.05 = 0.68 → Medium.
	e = mk(0.95)
	_, err = rankStageAt(now).Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.Equal(t, model.PriorityMedium, e.FinalPriority)

	// quality 0.1: 0.04 + 0.15 + 0.1 + 0.05 = 0.34 → Low.
	e = mk(0.1)
	_, err = rankStageAt(now).Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, e.FinalPriority)
}

func TestRankBackfillsKeywordPriority(t *testing.T) {
	now := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	e := testEntry()
	e.Published = "2026-08-24T00:00:00Z"
	e.Topics = []string{"RAG", "Agent"}
	e.OverallQuality = 0.9
	e.VerificationScore = 0.8
	e.Priority = model.PriorityLow

	_, err := rankStageAt(now).Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.Equal(t, model.PriorityHigh, e.Priority)
}

func TestRankKeepsKeywordPriorityWhenRaised(t *testing.T) {
	now := time.Now()
	e := testEntry()
	e.Published = ""
	e.Priority = model.PriorityHigh
	e.OverallQuality = 0.1 // ranks Low

	_, err := rankStageAt(now).Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.Equal(t, model.PriorityLow, e.FinalPriority)
	// The keyword stage's verdict is not downgraded.
	assert.Equal(t, model.PriorityHigh, e.Priority)
}

func TestRankReasonSignals(t *testing.T) {
	now := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)
	e := testEntry()
	e.Published = "2026-08-24T00:00:00Z"
	e.Topics = []string{"RAG"}
	e.OverallQuality = 0.85
	e.VerificationStatus = model.StatusVerified
	e.VerificationScore = 0.8

	_, err := rankStageAt(now).Process(context.Background(), e, testContext())
	require.NoError(t, err)
	assert.Contains(t, e.RankingReason, "high quality source")
	assert.Contains(t, e.RankingReason, "matches 1 topic(s)")
	assert.Contains(t, e.RankingReason, "recently published")
	assert.Contains(t, e.RankingReason, "verified source")
}
