package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/intake-cli/internal/model"
)

// Weights for the priority score blend.
const (
	rankWeightQuality      = 0.4
	rankWeightRelevance    = 0.3
	rankWeightTimeliness   = 0.2
	rankWeightVerification = 0.1
)

// RankStage combines the upstream scores into a final priority with a
// human-readable reason.
type RankStage struct {
	now func() time.Time
}

// NewRankStage creates the ranking stage.
func NewRankStage() *RankStage {
	return &RankStage{now: time.Now}
}

func (s *RankStage) Name() string  { return "rank" }
func (s *RankStage) Enabled() bool { return true }

func (s *RankStage) Process(ctx context.Context, e *model.ProcessedEntry, pc *Context) (Outcome, error) {
	relevance := clamp01(0.5 + 0.15*float64(len(e.Topics)))
	timeliness := timelinessScore(e.Published, s.now())

	// Disabled upstream stages leave their scores at zero; read that
	// as neutral rather than worst-case.
	quality := e.OverallQuality
	if quality == 0 {
		quality = 0.5
	}
	verification := e.VerificationScore
	if verification == 0 {
		verification = 0.5
	}

	score := rankWeightQuality*quality +
		rankWeightRelevance*relevance +
		rankWeightTimeliness*timeliness +
		rankWeightVerification*verification

	e.PriorityScore = score
	switch {
	case score >= 0.7:
		e.FinalPriority = model.PriorityHigh
	case score >= 0.4:
		e.FinalPriority = model.PriorityMedium
	default:
		e.FinalPriority = model.PriorityLow
	}
	e.RankingReason = rankingReason(e, relevance, timeliness)

	// The keyword priority stays authoritative if it already raised
	// the entry; otherwise the ranked tier backfills it.
	if e.Priority == model.PriorityLow {
		e.Priority = e.FinalPriority
	}
	return Continue(), nil
}

func rankingReason(e *model.ProcessedEntry, relevance, timeliness float64) string {
	var signals []string
	if e.OverallQuality >= 0.8 {
		signals = append(signals, "high quality source")
	}
	if len(e.Topics) > 0 {
		signals = append(signals, fmt.Sprintf("matches %d topic(s)", len(e.Topics)))
	}
	if timeliness >= 0.8 {
		signals = append(signals, "recently published")
	}
	if e.VerificationStatus == model.StatusVerified {
		signals = append(signals, "verified source")
	}
	if len(signals) == 0 {
		return fmt.Sprintf("score %.2f with no strong signals", e.PriorityScore)
	}
	return strings.Join(signals, "; ")
}
