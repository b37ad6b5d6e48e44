package app

import (
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/rescuedex/internal/config"
	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/usecase/classify"
	embeddinguc "github.com/kailas-cloud/rescuedex/internal/usecase/embedding"
)

func TestOpen_BoltCatalog(t *testing.T) {
	cfg := config.Config{Catalog: config.CatalogConfig{
		Driver:   config.CatalogBolt,
		BoltPath: filepath.Join(t.TempDir(), "catalog.db"),
	}}

	res, err := Open(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer res.Close()

	if res.Store != nil {
		t.Error("bolt catalog without cache must not open redis")
	}
	if err := res.Catalog.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
	entities, err := res.Catalog.Entities(context.Background())
	if err != nil {
		t.Fatalf("Entities: %v", err)
	}
	if len(entities) != 0 {
		t.Errorf("expected empty catalog, got %d entities", len(entities))
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := config.Config{Catalog: config.CatalogConfig{Driver: "sqlite"}}
	if _, err := Open(context.Background(), cfg, zap.NewNop()); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestBuildEmbedders(t *testing.T) {
	t.Run("no instructions", func(t *testing.T) {
		e := BuildEmbedders(config.EmbeddingConfig{Provider: "openai", Model: "m"}, nil, zap.NewNop())
		if _, ok := e.Query.(*embeddinguc.InstrumentedEmbedder); !ok {
			t.Errorf("expected bare instrumented embedder, got %T", e.Query)
		}
	})
	t.Run("instructions", func(t *testing.T) {
		e := BuildEmbedders(config.EmbeddingConfig{
			Provider:            "openai",
			Model:               "m",
			QueryInstruction:    "query: ",
			DocumentInstruction: "passage: ",
			Cache:               true,
		}, nil, zap.NewNop())
		if _, ok := e.Query.(*domain.InstructionEmbedder); !ok {
			t.Errorf("expected instruction embedder, got %T", e.Query)
		}
		if _, ok := e.Document.(*domain.InstructionEmbedder); !ok {
			t.Errorf("expected instruction embedder, got %T", e.Document)
		}
	})
}

func TestBuildClassifier(t *testing.T) {
	if _, ok := BuildClassifier(config.ClassifierConfig{Driver: config.ClassifierRules}, nil).(*classify.RuleClassifier); !ok {
		t.Error("rules driver must build the rule classifier")
	}
	c := BuildClassifier(config.ClassifierConfig{Driver: config.ClassifierLLM, Model: "gpt", TimeoutSec: 1}, zap.NewNop())
	if _, ok := c.(*classify.DelegateClassifier); !ok {
		t.Errorf("llm driver must build the delegate classifier, got %T", c)
	}
}
