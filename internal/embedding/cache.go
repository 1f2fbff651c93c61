package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ecotech/contentforge/pkg/logger"
)

// CachedEmbedding decorates a backend with a Redis cache keyed by a hash of
// the input text. Re-indexing unchanged content then skips the embedding
// backend entirely. Cache failures degrade to a backend call, never to an
// error.
type CachedEmbedding struct {
	backend Embedding
	rdb     *redis.Client
	ttl     time.Duration
	log     *logger.Logger
}

// NewCachedEmbedding wraps backend with a Redis-backed vector cache.
func NewCachedEmbedding(backend Embedding, rdb *redis.Client, ttl time.Duration, log *logger.Logger) *CachedEmbedding {
	return &CachedEmbedding{backend: backend, rdb: rdb, ttl: ttl, log: log}
}

// Embed returns the cached vector for text, or computes and caches it.
func (c *CachedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cacheKey(text)
	if vec, ok := c.get(ctx, key); ok {
		return vec, nil
	}

	vec, err := c.backend.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.put(ctx, key, vec)
	return vec, nil
}

// EmbedBatch resolves cached entries first and only sends the misses to the
// backend, preserving input order in the result.
func (c *CachedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		if vec, ok := c.get(ctx, cacheKey(text)); ok {
			result[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return result, nil
	}

	vecs, err := c.backend.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		result[i] = vecs[j]
		c.put(ctx, cacheKey(texts[i]), vecs[j])
	}
	return result, nil
}

func (c *CachedEmbedding) get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).Warn("embedding cache read failed")
		}
		return nil, false
	}
	if len(data)%4 != 0 {
		return nil, false
	}
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec, true
}

func (c *CachedEmbedding) put(ctx context.Context, key string, vec []float32) {
	data := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(v))
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.WithError(err).Warn("embedding cache write failed")
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + hex.EncodeToString(sum[:])
}
