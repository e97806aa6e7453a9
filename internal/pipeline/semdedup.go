package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"math"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/config"
	"github.com/sells-group/intake-cli/internal/model"
)

// SemDedupStage drops entries whose embedding is too similar to one
// seen earlier in the run. Without an embedder the stage passes every
// entry through unmarked.
type SemDedupStage struct {
	cfg config.SemDedupConfig

	mu    sync.Mutex
	index []indexedVector
	next  int
}

type indexedVector struct {
	link string
	vec  []float64
}

// NewSemDedupStage creates the semantic deduplication stage.
func NewSemDedupStage(cfg config.SemDedupConfig) *SemDedupStage {
	if cfg.IndexSize <= 0 {
		cfg.IndexSize = 1000
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = 0.85
	}
	return &SemDedupStage{cfg: cfg}
}

func (s *SemDedupStage) Name() string  { return "semantic_dedup" }
func (s *SemDedupStage) Enabled() bool { return s.cfg.Enabled }

func (s *SemDedupStage) Process(ctx context.Context, e *model.ProcessedEntry, pc *Context) (Outcome, error) {
	embedder, err := pc.ResolveEmbedder(ctx)
	if err != nil {
		return Continue(), eris.Wrap(err, "pipeline: resolve embedder")
	}
	if embedder == nil {
		e.IsSemanticDuplicate = false
		return Continue(), nil
	}

	vec, err := s.embed(ctx, embedder, pc.Results, e.NormalizedText)
	if err != nil {
		return Continue(), eris.Wrap(err, "pipeline: embed entry")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bestLink, bestSim := "", 0.0
	for _, iv := range s.index {
		if sim := cosineSimilarity(vec, iv.vec); sim > bestSim {
			bestLink, bestSim = iv.link, sim
		}
	}

	if bestSim >= s.cfg.SimilarityThreshold {
		e.IsSemanticDuplicate = true
		e.DuplicateOf = bestLink
		sim := bestSim
		e.SimilarityScore = &sim
		return DropEntry("semantic duplicate"), nil
	}

	s.insert(indexedVector{link: e.Link, vec: vec})
	e.IsSemanticDuplicate = false
	return Continue(), nil
}

// insert adds to the bounded index, overwriting the oldest slot once
// full. Caller holds the mutex.
func (s *SemDedupStage) insert(iv indexedVector) {
	if len(s.index) < s.cfg.IndexSize {
		s.index = append(s.index, iv)
		return
	}
	s.index[s.next] = iv
	s.next = (s.next + 1) % s.cfg.IndexSize
}

// embed returns the vector for text, consulting the result cache first.
func (s *SemDedupStage) embed(ctx context.Context, embedder Embedder, cache ResultCache, text string) ([]float64, error) {
	key := "embed:" + contentHash(text)
	if cache != nil {
		if raw, ok, err := cache.Get(ctx, key); err == nil && ok {
			var vec []float64
			if err := json.Unmarshal([]byte(raw), &vec); err == nil {
				return vec, nil
			}
		}
	}

	vec, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if raw, err := json.Marshal(vec); err == nil {
			if err := cache.Set(ctx, key, string(raw)); err != nil {
				zap.L().Debug("embedding cache write failed", zap.Error(err))
			}
		}
	}
	return vec, nil
}

func contentHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// cosineSimilarity returns 0 for mismatched or zero-magnitude vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
