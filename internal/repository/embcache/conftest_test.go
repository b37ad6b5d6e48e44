package embcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/db"
	"github.com/kailas-cloud/rescuedex/internal/domain"
)

// mockEmbedder answers every text with the same vector and counts traffic.
type mockEmbedder struct {
	result     domain.EmbeddingResult
	err        error
	batchErr   error
	calls      int
	batchCalls int
	batchSizes []int
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	return m.result, m.err
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for range texts {
		out.Embeddings = append(out.Embeddings, m.result.Embedding)
		out.PromptTokens += m.result.PromptTokens
		out.TotalTokens += m.result.TotalTokens
	}
	return out, nil
}

// mockKVStore misses on every Get and accepts every write unless a hook overrides it.
// Written keys are recorded in order.
type mockKVStore struct {
	getFn   func(ctx context.Context, key string) ([]byte, error)
	setFn   func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	written []string
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn == nil {
		return nil, db.ErrKeyNotFound
	}
	return m.getFn(ctx, key)
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.written = append(m.written, key)
	if m.setFn == nil {
		return nil
	}
	return m.setFn(ctx, key, value, ttl)
}

func newTestCachedEmbedder(t *testing.T, inner domain.Embedder) (*CachedEmbedder, *mockKVStore) {
	t.Helper()
	kv := &mockKVStore{}
	return New(inner, kv, "test-model", 0, nil, zap.NewNop()), kv
}
