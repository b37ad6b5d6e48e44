package embedding

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/metrics"
)

type mockEmbedder struct {
	result     domain.EmbeddingResult
	errs       []error // returned in order, then nil
	calls      int
	batchSizes []int
}

func (m *mockEmbedder) next() error {
	m.calls++
	if len(m.errs) == 0 {
		return nil
	}
	err := m.errs[0]
	m.errs = m.errs[1:]
	return err
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if err := m.next(); err != nil {
		return domain.EmbeddingResult{}, err
	}
	return m.result, nil
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchSizes = append(m.batchSizes, len(texts))
	if err := m.next(); err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		embeddings[i] = m.result.Embedding
	}
	return domain.BatchEmbeddingResult{
		Embeddings:  embeddings,
		TotalTokens: m.result.TotalTokens * len(texts),
	}, nil
}

// plainMockEmbedder has no batch support.
type plainMockEmbedder struct {
	calls int
}

func (m *plainMockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text))}, TotalTokens: 1}, nil
}

var transient = fmt.Errorf("rate limited: %w: %w", domain.ErrEmbeddingProviderError, domain.ErrTransient)

func newTestEmbedder(inner domain.Embedder, opts Options) *InstrumentedEmbedder {
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	return NewInstrumentedEmbedder(inner, "test", "test-model", opts, zap.NewNop())
}

func TestEmbed_Success(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.1, 0.2, 0.3}}}
	p := newTestEmbedder(inner, Options{})

	result, err := p.Embed(context.Background(), "healing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Embedding) != 3 {
		t.Fatalf("expected 3 dimensions, got %d", len(result.Embedding))
	}
}

func TestEmbed_RetriesTransient(t *testing.T) {
	inner := &mockEmbedder{
		result: domain.EmbeddingResult{Embedding: []float32{1}},
		errs:   []error{transient},
	}
	p := newTestEmbedder(inner, Options{})
	retries := metrics.EmbeddingRetriesTotal.WithLabelValues("test", "test-model")
	before := testutil.ToFloat64(retries)

	if _, err := p.Embed(context.Background(), "x"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
	if d := testutil.ToFloat64(retries) - before; d != 1 {
		t.Errorf("retries_total delta = %f, want 1", d)
	}
}

func TestEmbed_GivesUpAfterMaxAttempts(t *testing.T) {
	inner := &mockEmbedder{errs: []error{transient, transient, transient}}
	p := newTestEmbedder(inner, Options{MaxAttempts: 2})

	_, err := p.Embed(context.Background(), "x")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 calls, got %d", inner.calls)
	}
}

func TestEmbed_PermanentErrorNotRetried(t *testing.T) {
	inner := &mockEmbedder{errs: []error{errors.New("invalid api key")}}
	p := newTestEmbedder(inner, Options{MaxAttempts: 5})

	if _, err := p.Embed(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	if inner.calls != 1 {
		t.Errorf("permanent error must not be retried, calls=%d", inner.calls)
	}
}

func TestEmbed_RetryStopsOnCancel(t *testing.T) {
	inner := &mockEmbedder{errs: []error{transient, transient}}
	p := newTestEmbedder(inner, Options{MaxAttempts: 3, RetryBackoff: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Embed(ctx, "x")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBatchEmbed_Chunks(t *testing.T) {
	inner := &mockEmbedder{result: domain.EmbeddingResult{Embedding: []float32{0.5}, TotalTokens: 2}}
	p := newTestEmbedder(inner, Options{MaxBatchSize: 2})

	res, err := p.BatchEmbed(context.Background(), []string{"a", "b", "c", "d", "e"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 5 || res.TotalTokens != 10 {
		t.Errorf("unexpected result: %d embeddings, %d tokens", len(res.Embeddings), res.TotalTokens)
	}
	want := []int{2, 2, 1}
	if len(inner.batchSizes) != len(want) {
		t.Fatalf("batch sizes = %v", inner.batchSizes)
	}
	for i := range want {
		if inner.batchSizes[i] != want[i] {
			t.Errorf("batch %d size = %d, want %d", i, inner.batchSizes[i], want[i])
		}
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	inner := &mockEmbedder{}
	p := newTestEmbedder(inner, Options{})

	res, err := p.BatchEmbed(context.Background(), nil)
	if err != nil || res.Embeddings != nil || inner.calls != 0 {
		t.Errorf("unexpected: %+v %v calls=%d", res, err, inner.calls)
	}
}

func TestBatchEmbed_InnerError(t *testing.T) {
	inner := &mockEmbedder{errs: []error{errors.New("api down")}}
	p := newTestEmbedder(inner, Options{})

	if _, err := p.BatchEmbed(context.Background(), []string{"a"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestBatchEmbed_FallbackToSingle(t *testing.T) {
	inner := &plainMockEmbedder{}
	p := newTestEmbedder(inner, Options{})

	res, err := p.BatchEmbed(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 single calls, got %d", inner.calls)
	}
	if res.Embeddings[2][0] != 3 || res.TotalTokens != 3 {
		t.Errorf("unexpected result: %+v", res)
	}
}
