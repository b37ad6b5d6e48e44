package app

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/config"
	"github.com/kailas-cloud/rescuedex/internal/db"
	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/metrics"
	"github.com/kailas-cloud/rescuedex/internal/repository/embcache"
	openaiTransport "github.com/kailas-cloud/rescuedex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/rescuedex/internal/usecase/embedding"
)

// Embedder is what both retrieval and seeding need from the chain.
type Embedder interface {
	domain.Embedder
	domain.BatchEmbedder
	domain.HealthChecker
}

// Embedders holds the query-side and document-side chains sharing one provider client.
type Embedders struct {
	Query    Embedder
	Document Embedder
}

// BuildEmbedders assembles OpenAI -> Cached -> Instrumented -> Instruction.
// The instruction decorator is outermost so the cache key covers the prefixed text.
// store may be nil; caching is then skipped.
func BuildEmbedders(cfg config.EmbeddingConfig, store db.KVStore, logger *zap.Logger) Embedders {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var inner domain.Embedder = base
	if cfg.Cache && store != nil {
		ttl := time.Duration(cfg.CacheTTLHours) * time.Hour
		inner = embcache.New(base, store, cfg.Model, ttl, metrics.EmbeddingCacheTotal, logger)
	}

	instrumented := embeddinguc.NewInstrumentedEmbedder(
		inner, cfg.Provider, cfg.Model,
		embeddinguc.Options{MaxAttempts: cfg.MaxAttempts},
		logger,
	)

	return Embedders{
		Query:    withInstruction(instrumented, cfg.QueryInstruction),
		Document: withInstruction(instrumented, cfg.DocumentInstruction),
	}
}

func withInstruction(e *embeddinguc.InstrumentedEmbedder, instruction string) Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}
