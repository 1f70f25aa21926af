package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/db"
	"github.com/aaronbrezel/mcp-census/internal/domain"
)

var testIdentity = domain.EmbedderIdentity{Provider: "ollama", Model: "all-minilm:l6-v2", Dimensions: 384}

type mockEmbedder struct {
	result      domain.EmbeddingResult
	err         error
	batchResult domain.BatchEmbeddingResult
	batchErr    error
	batchCalls  int
	batchTexts  []string
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchTexts = append(m.batchTexts, texts...)
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if m.batchResult.Embeddings != nil {
		return m.batchResult, nil
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   embeddings,
		PromptTokens: m.result.PromptTokens * len(texts),
		TotalTokens:  m.result.TotalTokens * len(texts),
	}, nil
}

// mockKVStore implements the consumer interface for tests.
// getFn backs both Get and GetMulti unless getMultiFn is set.
type mockKVStore struct {
	getFn      func(ctx context.Context, key string) ([]byte, error)
	getMultiFn func(ctx context.Context, keys []string) ([][]byte, error)
	setFn      func(ctx context.Context, key string, value []byte) error
	lastTTL    time.Duration
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) GetMulti(ctx context.Context, keys []string) ([][]byte, error) {
	if m.getMultiFn != nil {
		return m.getMultiFn(ctx, keys)
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		v, err := m.Get(ctx, k)
		if err == nil {
			out[i] = v
		}
	}
	return out, nil
}

func (m *mockKVStore) SetMulti(ctx context.Context, items []db.KVSetItem, ttl time.Duration) error {
	m.lastTTL = ttl
	for _, it := range items {
		if m.setFn != nil {
			if err := m.setFn(ctx, it.Key, it.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder, opts ...Option) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, testIdentity, "censusdex:", zap.NewNop(), opts...)
	return ce, ms
}
