package pipeline

import (
	"context"
	"sync"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/model"
)

func testRules() *config.Rules {
	return &config.Rules{
		Topics: map[string][]string{
			"RAG":   {"retrieval", "vector database", "rag"},
			"Agent": {"agent", "tool use"},
		},
		PriorityKeywords: config.PriorityKeywords{
			High:   []string{"breakthrough", "state-of-the-art"},
			Medium: []string{"release", "benchmark"},
		},
		Whitelist: []string{"trusted.example.com"},
		Blacklist: []string{"spam.example.com"},
	}
}

func testContext() *Context {
	return &Context{
		Cfg:   testConfig(),
		Rules: testRules(),
	}
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Pipeline.MaxSummaryLength = 500
	cfg.Pipeline.Quality = config.QualityConfig{
		Enabled:          true,
		MinQualityScore:  0.3,
		MinContentLength: 50,
	}
	cfg.Pipeline.SemDedup = config.SemDedupConfig{
		SimilarityThreshold: 0.85,
		IndexSize:           1000,
	}
	cfg.Pipeline.Verify = config.VerifyConfig{
		Enabled:      true,
		MinimumScore: 0.3,
	}
	cfg.LLM = config.LLMConfig{
		Features:   []string{FeatureSummarization},
		MaxTokens:  256,
		RatePerSec: 100,
	}
	cfg.Anthropic.Model = "claude-haiku-4-5-20251001"
	return cfg
}

func testEntry() *model.ProcessedEntry {
	return model.FromCollected(model.CollectedEntry{
		Title:      "New retrieval benchmark shows breakthrough results",
		Link:       "https://arxiv.org/abs/2608.01234",
		Summary:    "Researchers introduce a retrieval benchmark. The system uses a vector database. Results outperform prior work on every task by a wide margin.",
		Published:  "2026-08-24T10:00:00Z",
		SourceName: "arXiv",
		SourceType: "paper",
	})
}

// memoryCache is an in-memory ResultCache for tests.
type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: map[string]string{}}
}

func (m *memoryCache) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memoryCache) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

// fakeGate is a CostGate with scripted responses. When checkErr is set,
// the first passFirst checks still succeed, emulating a budget that
// runs out mid-entry.
type fakeGate struct {
	mu        sync.Mutex
	checkErr  error
	passFirst int
	checks    int
	recorded  []float64
	tokens    []int64
	models    []string
}

func (g *fakeGate) Check(estimated float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks++
	if g.checkErr != nil && g.checks > g.passFirst {
		return g.checkErr
	}
	return nil
}

func (g *fakeGate) Record(actual float64, tokens int64, model string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.recorded = append(g.recorded, actual)
	g.tokens = append(g.tokens, tokens)
	g.models = append(g.models, model)
	return nil
}

// fakeEmbedder maps exact texts to fixed vectors.
type fakeEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	f.calls++
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0, 0}, nil
}
