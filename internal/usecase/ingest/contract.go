package ingest

import (
	"context"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
)

// CatalogWriter persists a validated catalog snapshot.
type CatalogWriter interface {
	Save(ctx context.Context, c entity.Catalog) error
	Clear(ctx context.Context) error
}

// Embedder vectorizes attribute texts in batches.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
