package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
)

// DefaultBatchSize is the number of attribute texts sent per embedding call.
const DefaultBatchSize = 64

// Report summarizes one ingest run.
type Report struct {
	Entities   int
	Attributes int
	Embedded   int
	Tokens     int
}

// Service turns a seed file into a stored catalog, embedding attributes that lack a vector.
type Service struct {
	catalog   CatalogWriter
	embed     Embedder
	batchSize int
	logger    *zap.Logger
}

// New creates an ingest service. embed may be nil when every attribute carries an embedding.
func New(catalog CatalogWriter, embed Embedder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, embed: embed, batchSize: DefaultBatchSize, logger: logger}
}

// WithBatchSize configures how many texts go into one embedding call.
func (s *Service) WithBatchSize(size int) *Service {
	if size > 0 {
		s.batchSize = size
	}
	return s
}

// Ingest validates f, embeds missing attribute vectors and saves the catalog.
// The file is fully validated before any embedding call is made.
// With replace the existing catalog is cleared first.
func (s *Service) Ingest(ctx context.Context, f File, replace bool) (Report, error) {
	attrs, err := f.attributes()
	if err != nil {
		return Report{}, err
	}
	if _, err := build(f, attrs); err != nil {
		return Report{}, err
	}

	var rep Report
	attrs, rep.Embedded, rep.Tokens, err = s.embedMissing(ctx, attrs)
	if err != nil {
		return Report{}, err
	}
	if err := checkDimensions(attrs); err != nil {
		return Report{}, err
	}

	c, err := build(f, attrs)
	if err != nil {
		return Report{}, err
	}

	if replace {
		if err := s.catalog.Clear(ctx); err != nil {
			return Report{}, fmt.Errorf("clear catalog: %w", err)
		}
	}
	if err := s.catalog.Save(ctx, c); err != nil {
		return Report{}, fmt.Errorf("save catalog: %w", err)
	}

	rep.Entities = len(c.Entities())
	rep.Attributes = len(c.Attributes())
	s.logger.Info("catalog ingested",
		zap.Int("entities", rep.Entities),
		zap.Int("attributes", rep.Attributes),
		zap.Int("embedded", rep.Embedded),
		zap.Int("tokens", rep.Tokens),
		zap.Bool("replace", replace),
	)
	return rep, nil
}

// build resolves the entities of f against attrs into a catalog.
func build(f File, attrs []entity.Attribute) (entity.Catalog, error) {
	entities, err := f.entities(attrs)
	if err != nil {
		return entity.Catalog{}, err
	}
	c, err := entity.NewCatalog(entities, attrs)
	if err != nil {
		return entity.Catalog{}, fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, err)
	}
	return c, nil
}

func (s *Service) embedMissing(ctx context.Context, attrs []entity.Attribute) ([]entity.Attribute, int, int, error) {
	var pending []int
	for i, a := range attrs {
		if !a.HasEmbedding() {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return attrs, 0, 0, nil
	}
	if s.embed == nil {
		return nil, 0, 0, fmt.Errorf("%w: %d attributes lack embeddings and no embedder is configured",
			domain.ErrInvalidCatalog, len(pending))
	}

	out := append([]entity.Attribute(nil), attrs...)
	tokens := 0
	for start := 0; start < len(pending); start += s.batchSize {
		end := min(start+s.batchSize, len(pending))
		chunk := pending[start:end]

		texts := make([]string, len(chunk))
		for j, idx := range chunk {
			texts[j] = out[idx].Name()
		}
		res, err := s.embed.BatchEmbed(ctx, texts)
		if err != nil {
			return nil, 0, 0, fmt.Errorf("embed attributes [%d:%d]: %w", start, end, err)
		}
		if len(res.Embeddings) != len(chunk) {
			return nil, 0, 0, fmt.Errorf("%w: got %d vectors for %d attributes",
				domain.ErrEmbeddingProviderError, len(res.Embeddings), len(chunk))
		}
		for j, idx := range chunk {
			out[idx] = out[idx].WithEmbedding(res.Embeddings[j])
		}
		tokens += res.TotalTokens
		s.logger.Debug("attribute batch embedded", zap.Int("size", len(chunk)), zap.Int("tokens", res.TotalTokens))
	}
	return out, len(pending), tokens, nil
}

// checkDimensions requires every stored vector to share one dimension.
func checkDimensions(attrs []entity.Attribute) error {
	dim := 0
	for _, a := range attrs {
		if !a.HasEmbedding() {
			continue
		}
		if dim == 0 {
			dim = len(a.Embedding())
			continue
		}
		if len(a.Embedding()) != dim {
			return fmt.Errorf("%w: attribute %q has %d dimensions, expected %d",
				domain.ErrVectorDimMismatch, a.ID(), len(a.Embedding()), dim)
		}
	}
	return nil
}
