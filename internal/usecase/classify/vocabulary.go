package classify

import (
	"context"
	"fmt"
	"sync"

	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
	"github.com/kailas-cloud/rescuedex/internal/metrics"
)

// VocabularyCache holds the process-wide known vocabulary.
// Loaded lazily on first use, read-only afterwards. A failed load is retried on the next call.
type VocabularyCache struct {
	source VocabularySource

	mu     sync.RWMutex
	loaded bool
	vocab  vocabulary.Vocabulary
}

// NewVocabularyCache creates an empty cache over source.
func NewVocabularyCache(source VocabularySource) *VocabularyCache {
	return &VocabularyCache{source: source}
}

// Get returns the cached vocabulary, loading it on first use.
func (c *VocabularyCache) Get(ctx context.Context) (vocabulary.Vocabulary, error) {
	c.mu.RLock()
	if c.loaded {
		v := c.vocab
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded {
		return c.vocab, nil
	}
	return c.loadLocked(ctx)
}

// Refresh reloads the vocabulary. On failure the previous vocabulary stays in place.
func (c *VocabularyCache) Refresh(ctx context.Context) (vocabulary.Vocabulary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *VocabularyCache) loadLocked(ctx context.Context) (vocabulary.Vocabulary, error) {
	v, err := c.source.Vocabulary(ctx)
	if err != nil {
		metrics.VocabularyLoadsTotal.WithLabelValues("error").Inc()
		return vocabulary.Vocabulary{}, fmt.Errorf("load vocabulary: %w", err)
	}
	metrics.VocabularyLoadsTotal.WithLabelValues("ok").Inc()
	c.vocab = v
	c.loaded = true
	return v, nil
}
