package search

import (
	"context"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/analysis"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
)

// Catalog is the read-only entity store behind both retrievers.
type Catalog interface {
	// Entities returns every entity with its attributes (embeddings included).
	Entities(ctx context.Context) ([]entity.Entity, error)
	// Attributes returns the attribute catalog (embeddings included).
	Attributes(ctx context.Context) ([]entity.Attribute, error)
	// EntityByName finds an entity by case-insensitive name. Returns domain.ErrNotFound when absent.
	EntityByName(ctx context.Context, name string) (entity.Entity, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Classifier maps a query to a retrieval strategy. Never fails.
type Classifier interface {
	Classify(ctx context.Context, query string, vocab vocabulary.Vocabulary) analysis.Analysis
}

// VocabularyProvider serves the cached known vocabulary.
type VocabularyProvider interface {
	Get(ctx context.Context) (vocabulary.Vocabulary, error)
	Refresh(ctx context.Context) (vocabulary.Vocabulary, error)
}
