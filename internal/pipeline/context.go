package pipeline

import (
	"context"
	"sync"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/pkg/anthropic"
)

// Embedder produces a vector representation of text for semantic
// similarity comparison.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ResultCache stores expensive per-content results (LLM outputs,
// embeddings) under content-addressed keys.
type ResultCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// CostGate guards LLM spend. Check never mutates the ledger; Record
// always does, even past the budget, attributing the spend to a model.
type CostGate interface {
	Check(estimated float64) error
	Record(actual float64, tokens int64, model string) error
}

// Context carries the shared, read-only dependencies every stage may
// use. One Context serves a whole run, including concurrent entries.
type Context struct {
	Cfg   *config.Config
	Rules *config.Rules

	LLM     anthropic.Client
	Costs   CostGate
	Results ResultCache

	// NewEmbedder lazily constructs the embedding backend the first
	// time a stage asks for it. Nil means no embedder is configured.
	NewEmbedder func(ctx context.Context) (Embedder, error)

	embedOnce sync.Once
	embedder  Embedder
	embedErr  error
}

// ResolveEmbedder returns the shared embedder, constructing it at most
// once across all goroutines. Both the instance and any construction
// error are memoized; a nil embedder with nil error means none is
// configured.
func (pc *Context) ResolveEmbedder(ctx context.Context) (Embedder, error) {
	if pc.NewEmbedder == nil {
		return nil, nil
	}
	pc.embedOnce.Do(func() {
		pc.embedder, pc.embedErr = pc.NewEmbedder(ctx)
	})
	return pc.embedder, pc.embedErr
}
