package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/model"
)

// Weights for the overall quality blend.
const (
	qualityWeightCredibility  = 0.4
	qualityWeightCompleteness = 0.3
	qualityWeightRelevance    = 0.2
	qualityWeightTimeliness   = 0.1
)

// authoritativeDomains raise credibility for sources that publish
// primary material.
var authoritativeDomains = []string{
	"arxiv.org",
	"github.com",
	"openai.com",
	"anthropic.com",
	"deepmind.com",
	"huggingface.co",
	"paperswithcode.com",
}

// QualityStage scores credibility, completeness, relevance, and
// timeliness, assigns a letter grade, and drops entries below the
// configured floor.
type QualityStage struct {
	cfg config.QualityConfig
	now func() time.Time
}

// NewQualityStage creates the quality stage.
func NewQualityStage(cfg config.QualityConfig) *QualityStage {
	if cfg.MinContentLength <= 0 {
		cfg.MinContentLength = 50
	}
	return &QualityStage{cfg: cfg, now: time.Now}
}

func (s *QualityStage) Name() string  { return "quality" }
func (s *QualityStage) Enabled() bool { return s.cfg.Enabled }

func (s *QualityStage) Process(ctx context.Context, e *model.ProcessedEntry, pc *Context) (Outcome, error) {
	scores := model.QualityScores{
		Credibility:  s.credibility(e, pc.Rules),
		Completeness: s.completeness(e),
		Relevance:    relevanceScore(e),
		Timeliness:   timelinessScore(e.Published, s.now()),
	}

	overall := qualityWeightCredibility*scores.Credibility +
		qualityWeightCompleteness*scores.Completeness +
		qualityWeightRelevance*scores.Relevance +
		qualityWeightTimeliness*scores.Timeliness

	e.QualityScores = scores
	e.OverallQuality = overall
	e.QualityGrade = gradeFor(overall)

	if overall < s.cfg.MinQualityScore {
		return DropEntry("quality below threshold"), nil
	}
	return Continue(), nil
}

func gradeFor(overall float64) model.Grade {
	switch {
	case overall >= 0.8:
		return model.GradeA
	case overall >= 0.6:
		return model.GradeB
	case overall >= 0.4:
		return model.GradeC
	default:
		return model.GradeD
	}
}

// credibility rates the source domain. White/blacklists short-circuit;
// authoritative domains earn a bonus over the neutral base.
func (s *QualityStage) credibility(e *model.ProcessedEntry, rules *config.Rules) float64 {
	domain := e.Domain()
	if domain == "" {
		return 0.3
	}
	if rules != nil {
		if matchesDomain(domain, rules.Whitelist) {
			return 1.0
		}
		if matchesDomain(domain, rules.Blacklist) {
			return 0.0
		}
	}
	score := 0.5
	if matchesDomain(domain, authoritativeDomains) {
		score += 0.2
	}
	return clamp01(score)
}

// matchesDomain reports whether domain equals or is a subdomain of any
// listed domain.
func matchesDomain(domain string, list []string) bool {
	for _, d := range list {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
	}
	return false
}

// completeness blends a content-length band with the fraction of
// populated entry elements (title, content, link).
func (s *QualityStage) completeness(e *model.ProcessedEntry) float64 {
	length := len(e.CleanedContent)
	var lengthScore float64
	switch {
	case length >= 500:
		lengthScore = 1.0
	case length >= 200:
		lengthScore = 0.8
	case length >= 100:
		lengthScore = 0.6
	case length >= s.cfg.MinContentLength:
		lengthScore = 0.4
	default:
		lengthScore = 0.2
	}

	elements := 0
	for _, present := range []bool{
		e.Title != "",
		e.CleanedContent != "",
		e.Link != "",
	} {
		if present {
			elements++
		}
	}
	elementScore := float64(elements) / 3

	return 0.6*lengthScore + 0.4*elementScore
}

// relevanceScore is a neutral placeholder until topics are assigned.
// The keyword stage runs later, so the bonus never fires on the normal
// path; it only matters when stages are reordered or rerun.
func relevanceScore(e *model.ProcessedEntry) float64 {
	score := 0.7
	if len(e.Topics) > 0 {
		score += 0.2
	}
	return clamp01(score)
}
