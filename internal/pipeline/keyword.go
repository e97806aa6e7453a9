package pipeline

import (
	"context"
	"sort"
	"strings"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/model"
)

// KeywordStage assigns topics and a priority from the configured rule
// set. Topic keywords match on word boundaries; priority keywords match
// as plain substrings.
type KeywordStage struct{}

// NewKeywordStage creates the keyword classification stage.
func NewKeywordStage() *KeywordStage { return &KeywordStage{} }

func (s *KeywordStage) Name() string  { return "keyword" }
func (s *KeywordStage) Enabled() bool { return true }

func (s *KeywordStage) Process(ctx context.Context, e *model.ProcessedEntry, pc *Context) (Outcome, error) {
	text := e.NormalizedText
	if text == "" {
		text = normalizeText(e.Title + " " + e.Summary)
	}

	e.Topics = matchTopics(text, pc.Rules)
	if len(e.Topics) == 0 {
		e.Topics = arxivFallback(e, text)
	}
	e.Priority = matchPriority(text, pc.Rules)
	e.ProcessingMethod = model.MethodKeyword
	return Continue(), nil
}

func matchTopics(text string, rules *config.Rules) []string {
	if rules == nil {
		return nil
	}
	var topics []string
	for topic, keywords := range rules.Topics {
		for _, kw := range keywords {
			if containsWord(text, normalizeText(kw)) {
				topics = append(topics, topic)
				break
			}
		}
	}
	sort.Strings(topics)
	return topics
}

func matchPriority(text string, rules *config.Rules) model.Priority {
	if rules == nil {
		return model.PriorityLow
	}
	for _, kw := range rules.PriorityKeywords.High {
		if strings.Contains(text, normalizeText(kw)) {
			return model.PriorityHigh
		}
	}
	for _, kw := range rules.PriorityKeywords.Medium {
		if strings.Contains(text, normalizeText(kw)) {
			return model.PriorityMedium
		}
	}
	return model.PriorityLow
}

// arxivFallback gives otherwise-unclassified arXiv papers a coarse
// topic so they are not lost in triage. arXiv links arrive under
// several hosts (arxiv.org, rss.arxiv.org, export.arxiv.org).
func arxivFallback(e *model.ProcessedEntry, text string) []string {
	if !strings.Contains(e.Domain(), "arxiv") {
		return nil
	}
	if strings.Contains(text, "retriev") {
		return []string{"RAG"}
	}
	return []string{"Agent"}
}
