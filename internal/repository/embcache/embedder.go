package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/db"
	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/vectorindex"
)

// store is the consumer interface for the embedding cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	SetMulti(ctx context.Context, items []db.KVSetItem, ttl time.Duration) error
}

// CachedEmbedder caches embeddings in a key-value store.
// Keys are scoped by embedder identity so a model change never serves stale vectors.
type CachedEmbedder struct {
	inner      domain.Embedder
	store      store
	keyPrefix  string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// Option configures a CachedEmbedder.
type Option func(*CachedEmbedder)

// WithTTL expires cache entries after ttl. Zero keeps them forever.
func WithTTL(ttl time.Duration) Option {
	return func(c *CachedEmbedder) { c.ttl = ttl }
}

// WithCacheCounter counts lookups by label "result" ("hit"/"miss").
func WithCacheCounter(cv *prometheus.CounterVec) Option {
	return func(c *CachedEmbedder) { c.cacheTotal = cv }
}

// New creates a caching decorator. prefix namespaces keys (e.g. "censusdex:").
func New(
	inner domain.Embedder,
	s store,
	identity domain.EmbedderIdentity,
	prefix string,
	logger *zap.Logger,
	opts ...Option,
) *CachedEmbedder {
	c := &CachedEmbedder{
		inner:     inner,
		store:     s,
		keyPrefix: prefix + "emb_cache:" + identity.String() + ":",
		logger:    logger,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
// Cache miss: full EmbeddingResult from inner.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := c.cacheKey(text)

	if vec, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit", 1)
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss", 1)

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.putToCache(ctx, []string{key}, [][]float32{result.Embedding})
	return result, nil
}

// BatchEmbed serves hits from the cache in one pipelined lookup and embeds only
// the misses, in a single inner batch.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.cacheKey(t)
	}

	embeddings := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string

	cached := c.getMultiFromCache(ctx, keys)
	for i := range texts {
		if cached[i] != nil {
			embeddings[i] = cached[i]
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, texts[i])
	}

	c.incCache("hit", len(texts)-len(missIdx))
	c.incCache("miss", len(missIdx))

	if len(missIdx) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: embeddings}, nil
	}

	res, err := domain.EmbedAll(ctx, c.inner, missTexts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed cache misses: %w", err)
	}
	if len(res.Embeddings) != len(missTexts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrEmbeddingProviderError, len(res.Embeddings), len(missTexts))
	}

	missKeys := make([]string, len(missIdx))
	for j, i := range missIdx {
		embeddings[i] = res.Embeddings[j]
		missKeys[j] = keys[i]
	}
	c.putToCache(ctx, missKeys, res.Embeddings)

	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// HealthCheck delegates to inner when it supports health checks.
func (c *CachedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (c *CachedEmbedder) incCache(result string, n int) {
	if c.cacheTotal != nil && n > 0 {
		c.cacheTotal.WithLabelValues(result).Add(float64(n))
	}
}

func (c *CachedEmbedder) cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return c.keyPrefix + hex.EncodeToString(h[:])
}

func (c *CachedEmbedder) getFromCache(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached embedding", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	return c.decode(key, data)
}

// getMultiFromCache returns one entry per key; misses and failures are nil.
func (c *CachedEmbedder) getMultiFromCache(ctx context.Context, keys []string) [][]float32 {
	out := make([][]float32, len(keys))

	values, err := c.store.GetMulti(ctx, keys)
	if err != nil {
		c.logger.Warn("Failed to get cached embeddings", zap.Int("keys", len(keys)), zap.Error(err))
		return out
	}

	for i := range keys {
		if i >= len(values) {
			break
		}
		if vec, ok := c.decode(keys[i], values[i]); ok {
			out[i] = vec
		}
	}
	return out
}

func (c *CachedEmbedder) decode(key string, data []byte) ([]float32, bool) {
	if len(data) == 0 {
		return nil, false
	}
	vec, err := vectorindex.DecodeVector(data)
	if err != nil {
		c.logger.Warn("Failed to parse cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return vec, true
}

func (c *CachedEmbedder) putToCache(ctx context.Context, keys []string, vecs [][]float32) {
	items := make([]db.KVSetItem, len(keys))
	for i := range keys {
		items[i] = db.KVSetItem{Key: keys[i], Value: vectorindex.EncodeVector(vecs[i])}
	}
	if err := c.store.SetMulti(ctx, items, c.ttl); err != nil {
		c.logger.Warn("Failed to cache embeddings", zap.Int("keys", len(keys)), zap.Error(err))
	}
}
