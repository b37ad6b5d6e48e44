package embcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/rescuedex/internal/db"
	"github.com/kailas-cloud/rescuedex/internal/domain"
)

func TestEmbed_CacheMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{
		Embedding:   []float32{0.1, 0.2, 0.3},
		TotalTokens: 10,
	}}
	ce, ms := newTestCachedEmbedder(t, inner)

	var gotKey string
	var gotTTL time.Duration
	ms.setFn = func(_ context.Context, key string, _ []byte, ttl time.Duration) error {
		gotKey, gotTTL = key, ttl
		return nil
	}

	result, err := ce.Embed(context.Background(), "healing abilities")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.TotalTokens != 10 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !strings.HasPrefix(gotKey, "rescuedex:emb:test-model:") {
		t.Errorf("cache key = %q", gotKey)
	}
	if gotTTL != DefaultTTL {
		t.Errorf("ttl = %v, want %v", gotTTL, DefaultTTL)
	}
}

func TestEmbed_CacheHit(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return encodeVector([]float32{0.4, 0.5, 0.6}), nil
	}

	result, err := ce.Embed(context.Background(), "healing abilities")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 || result.Embedding[0] != 0.4 {
		t.Fatalf("expected cached vector, got %v", result.Embedding)
	}
	if result.TotalTokens != 0 || inner.calls != 0 {
		t.Errorf("hit must not call the provider (calls=%d)", inner.calls)
	}
}

func TestEmbed_StoreErrorDegradesToMiss(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.7}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return errors.New("connection reset")
	}

	result, err := ce.Embed(context.Background(), "x")
	if err != nil {
		t.Fatalf("cache failures must not fail the call: %v", err)
	}
	if result.Embedding[0] != 0.7 {
		t.Errorf("unexpected vector: %v", result.Embedding)
	}
}

func TestEmbed_CorruptEntry(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.7}}}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return []byte{1, 2, 3}, nil }

	if _, err := ce.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("corrupt entry must fall through to provider, calls=%d", inner.calls)
	}
}

func TestEmbed_InnerError(t *testing.T) {
	provider := errors.New("provider down")
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{err: provider})

	_, err := ce.Embed(context.Background(), "x")
	if !errors.Is(err, provider) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestEmbed_CountsHitsAndMisses(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "cache_test_total"}, []string{"result"})
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1}}}
	ms := &mockKVStore{}
	ce := New(inner, ms, "m", time.Minute, counter, nil)

	_, _ = ce.Embed(context.Background(), "a")
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return encodeVector([]float32{1}), nil }
	_, _ = ce.Embed(context.Background(), "a")

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss = %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit = %v", got)
	}
}

func TestBatchEmbed_MixedHitsMisses(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5}, TotalTokens: 3}}
	ce, ms := newTestCachedEmbedder(t, inner)

	hitKey := ce.cacheKey("First Aid")
	ms.getFn = func(_ context.Context, key string) ([]byte, error) {
		if key == hitKey {
			return encodeVector([]float32{0.9}), nil
		}
		return nil, db.ErrKeyNotFound
	}
	res, err := ce.BatchEmbed(context.Background(), []string{"Pilot", "First Aid", "Welding"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 {
		t.Fatalf("expected 3 embeddings, got %d", len(res.Embeddings))
	}
	if res.Embeddings[1][0] != 0.9 || res.Embeddings[0][0] != 0.5 || res.Embeddings[2][0] != 0.5 {
		t.Errorf("unexpected embeddings: %v", res.Embeddings)
	}
	if inner.batchCalls != 1 || inner.batchSizes[0] != 2 {
		t.Errorf("expected one batch of 2 misses, got %v", inner.batchSizes)
	}
	if res.TotalTokens != 6 {
		t.Errorf("tokens = %d, want 6", res.TotalTokens)
	}
	if len(ms.written) != 2 || ms.written[0] != ce.cacheKey("Pilot") || ms.written[1] != ce.cacheKey("Welding") {
		t.Errorf("written keys = %v, want misses only in input order", ms.written)
	}
}

func TestBatchEmbed_AllHits(t *testing.T) {
	inner := &mockEmbedder{}
	ce, ms := newTestCachedEmbedder(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return encodeVector([]float32{0.2}), nil }

	res, err := ce.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 2 || inner.batchCalls != 0 {
		t.Errorf("all hits must skip the provider")
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{batchErr: errors.New("api down")}
	ce, _ := newTestCachedEmbedder(t, inner)

	if _, err := ce.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	ce, _ := newTestCachedEmbedder(t, &mockEmbedder{})

	res, err := ce.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil {
		t.Errorf("unexpected result: %+v, %v", res, err)
	}
}

func TestCacheKey_NamespacedByModel(t *testing.T) {
	a := New(&mockEmbedder{}, &mockKVStore{}, "model-a", 0, nil, nil)
	b := New(&mockEmbedder{}, &mockKVStore{}, "model-b", 0, nil, nil)
	if a.cacheKey("x") == b.cacheKey("x") {
		t.Error("different models must not share cache keys")
	}
}
