package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
)

// DefaultHashDimension is the vector size for the hashed backend.
const DefaultHashDimension = 256

// HashModel is a deterministic, offline embedding backend: a hashed
// bag-of-words projection. Cosine similarity over its vectors reduces to
// normalized term overlap, which makes it suitable for local development
// and for tests that must behave identically on every run. It never errors.
type HashModel struct {
	dim int
}

func NewHashModel(dim int) *HashModel {
	if dim <= 0 {
		dim = DefaultHashDimension
	}
	return &HashModel{dim: dim}
}

func (m *HashModel) Embed(ctx context.Context, text string) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	vec := make([]float32, m.dim)
	for _, term := range hashTerms(text) {
		h := fnv.New32a()
		h.Write([]byte(term))
		vec[h.Sum32()%uint32(m.dim)]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

func (m *HashModel) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// hashTerms lowercases, strips punctuation, and trims a plural "s" so
// singular and plural forms of a term land in the same bucket.
func hashTerms(text string) []string {
	words := strings.Fields(strings.ToLower(text))
	terms := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.Trim(w, ".,!?:;\"'()")
		if len(w) > 3 && strings.HasSuffix(w, "s") {
			w = strings.TrimSuffix(w, "s")
		}
		if len(w) >= 2 {
			terms = append(terms, w)
		}
	}
	return terms
}
