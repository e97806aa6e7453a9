package pipeline

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

const defaultEmbedDim = 256

// HashEmbedder produces deterministic local embeddings by feature
// hashing normalized tokens into a fixed-width vector. It needs no
// network or model assets, so near-duplicate detection works offline;
// paraphrases score lower than with a learned model.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a HashEmbedder with the given dimension.
// Non-positive dimensions fall back to the default (256).
func NewHashEmbedder(dim int) *HashEmbedder {
	if dim <= 0 {
		dim = defaultEmbedDim
	}
	return &HashEmbedder{dim: dim}
}

// Embed hashes each token of the normalized text into a signed bucket
// and L2-normalizes the result. Identical texts always map to identical
// vectors.
func (h *HashEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	vec := make([]float64, h.dim)

	for _, tok := range strings.Fields(normalizeText(text)) {
		f := fnv.New32a()
		f.Write([]byte(tok))
		sum := f.Sum32()

		bucket := int(sum % uint32(h.dim))
		sign := 1.0
		if sum&0x80000000 != 0 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec, nil
}
