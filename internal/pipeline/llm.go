package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/cost"
	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/resilience"
	"github.com/sells-group/intake-cli/pkg/anthropic"
)

// LLM feature names accepted in config.
const (
	FeatureSummarization  = "summarization"
	FeatureTranslation    = "translation"
	FeatureCategorization = "categorization"
)

// LLMStage enriches entries with model-generated summaries,
// translations, and categorization. Every call is budget-gated and
// content-cached; a feature failing never blocks the others, and a
// blown budget degrades the entry to keyword-only results.
type LLMStage struct {
	cfg       config.LLMConfig
	modelID   string
	maxLength int
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewLLMStage creates the enrichment stage.
func NewLLMStage(cfg config.LLMConfig, modelID string, maxSummaryLength int) *LLMStage {
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 2.0
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if maxSummaryLength <= 0 {
		maxSummaryLength = 500
	}
	return &LLMStage{
		cfg:       cfg,
		modelID:   modelID,
		maxLength: maxSummaryLength,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		retry: resilience.RetryConfig{
			MaxAttempts: 3,
			OnRetry:     resilience.RetryLogger("anthropic", "create_message"),
		},
	}
}

func (s *LLMStage) Name() string  { return "llm" }
func (s *LLMStage) Enabled() bool { return s.cfg.Enabled }

func (s *LLMStage) Process(ctx context.Context, e *model.ProcessedEntry, pc *Context) (Outcome, error) {
	if pc.LLM == nil {
		return Continue(), nil
	}

	content := e.CleanedContent
	if content == "" {
		content = e.Title
	}

	log := zap.L().With(zap.String("link", e.Link))
	applied := false
	for _, feature := range s.cfg.Features {
		var err error
		switch feature {
		case FeatureSummarization:
			err = s.summarize(ctx, e, pc, content)
		case FeatureTranslation:
			err = s.translate(ctx, e, pc, content)
		case FeatureCategorization:
			err = s.categorize(ctx, e, pc, content)
		default:
			log.Warn("unknown llm feature", zap.String("feature", feature))
			continue
		}

		if err != nil {
			if cost.IsBudgetExceeded(err) {
				// Features already applied before the budget ran out
				// still count toward the processing method below.
				log.Info("llm budget exhausted, keeping keyword results",
					zap.String("feature", feature))
				break
			}
			// One feature failing must not take the others down.
			log.Warn("llm feature failed", zap.String("feature", feature), zap.Error(err))
			continue
		}
		applied = true
	}

	if applied && e.ProcessingMethod == model.MethodKeyword {
		e.ProcessingMethod = model.MethodHybrid
	}
	return Continue(), nil
}

func (s *LLMStage) summarize(ctx context.Context, e *model.ProcessedEntry, pc *Context, content string) error {
	prompt := fmt.Sprintf(
		"Summarize the following item in at most %d characters. Reply with the summary only.\n\nTitle: %s\n\n%s",
		s.maxLength, e.Title, content)

	text, err := s.cachedCompletion(ctx, pc, e, FeatureSummarization, content, prompt)
	if err != nil {
		return err
	}
	if len(text) > s.maxLength {
		text = text[:s.maxLength] + "..."
	}
	e.SummaryLLM = &text
	return nil
}

func (s *LLMStage) translate(ctx context.Context, e *model.ProcessedEntry, pc *Context, content string) error {
	if len(s.cfg.TargetLanguages) == 0 {
		return nil
	}
	source := e.Title
	if summary := e.CleanedContent; summary != "" {
		source = e.Title + "\n\n" + summary
	}

	var firstErr error
	for _, lang := range s.cfg.TargetLanguages {
		prompt := fmt.Sprintf(
			"Translate the following into %s. Reply with the translation only.\n\n%s",
			lang, source)
		text, err := s.cachedCompletion(ctx, pc, e, FeatureTranslation+":"+lang, content, prompt)
		if err != nil {
			if cost.IsBudgetExceeded(err) {
				return err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if e.Translation == nil {
			e.Translation = map[string]string{}
		}
		e.Translation[lang] = text
	}
	return firstErr
}

type categorization struct {
	Topics   []string `json:"topics"`
	Priority string   `json:"priority"`
}

func (s *LLMStage) categorize(ctx context.Context, e *model.ProcessedEntry, pc *Context, content string) error {
	prompt := fmt.Sprintf(
		`Classify the following item. Reply with JSON only, shaped as {"topics": ["..."], "priority": "High|Medium|Low"}.`+
			"\n\nTitle: %s\n\n%s", e.Title, content)

	text, err := s.cachedCompletion(ctx, pc, e, FeatureCategorization, content, prompt)
	if err != nil {
		return err
	}

	var cat categorization
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &cat); err != nil {
		return eris.Wrap(err, "pipeline: parse categorization")
	}

	e.TopicsLLM = cat.Topics
	e.Topics = mergeTopics(e.Topics, cat.Topics)
	if p := model.Priority(cat.Priority); p.Valid() {
		e.PriorityLLM = &p
		if priorityRank(p) > priorityRank(e.Priority) {
			e.Priority = p
		}
	}
	return nil
}

// cachedCompletion returns the model's reply for prompt, consulting the
// result cache first and charging the cost gate around live calls.
func (s *LLMStage) cachedCompletion(ctx context.Context, pc *Context, e *model.ProcessedEntry, feature, content, prompt string) (string, error) {
	key := "llm:" + feature + ":" + contentHash(content)
	if pc.Results != nil {
		if cached, ok, err := pc.Results.Get(ctx, key); err == nil && ok {
			return cached, nil
		}
	}

	if pc.Costs != nil {
		estimated := anthropic.EstimateInputCost(s.modelID, len(prompt))
		if err := pc.Costs.Check(estimated); err != nil {
			return "", err
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "pipeline: llm rate wait")
	}

	resp, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return pc.LLM.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.modelID,
			MaxTokens: int64(s.cfg.MaxTokens),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
		})
	})
	if err != nil {
		return "", eris.Wrap(err, "pipeline: llm call")
	}

	actual := resp.Usage.EstimateCost(s.modelID)
	e.LLMCost += actual
	e.LLMTokens += int(resp.Usage.Total())
	if pc.Costs != nil {
		if err := pc.Costs.Record(actual, resp.Usage.Total(), s.modelID); err != nil {
			zap.L().Warn("recording llm spend failed", zap.Error(err))
		}
	}

	text := resp.FirstText()
	if pc.Results != nil {
		if err := pc.Results.Set(ctx, key, text); err != nil {
			zap.L().Debug("llm cache write failed", zap.Error(err))
		}
	}
	return text, nil
}

// stripCodeFence removes a surrounding markdown code fence, if any.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.Index(s, "\n"); idx >= 0 {
		s = s[idx+1:] // drop the language tag line
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func mergeTopics(existing, added []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, t := range append(append([]string{}, existing...), added...) {
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

func priorityRank(p model.Priority) int {
	switch p {
	case model.PriorityHigh:
		return 3
	case model.PriorityMedium:
		return 2
	case model.PriorityLow:
		return 1
	default:
		return 0
	}
}
