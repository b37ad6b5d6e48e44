package search

import (
	"context"
	"strings"
	"sync"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
	"github.com/kailas-cloud/rescuedex/internal/domain/search/analysis"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
)

// --- Mocks ---

type mockCatalog struct {
	entities   []entity.Entity
	attributes []entity.Attribute
	err        error
	byNameErr  error
	block      bool
}

func (m *mockCatalog) Entities(ctx context.Context) ([]entity.Entity, error) {
	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.entities, m.err
}

func (m *mockCatalog) Attributes(_ context.Context) ([]entity.Attribute, error) {
	return m.attributes, m.err
}

func (m *mockCatalog) EntityByName(_ context.Context, name string) (entity.Entity, error) {
	if m.byNameErr != nil {
		return entity.Entity{}, m.byNameErr
	}
	for _, e := range m.entities {
		if strings.EqualFold(e.Name(), name) {
			return e, nil
		}
	}
	return entity.Entity{}, domain.ErrNotFound
}

type mockEmbedder struct {
	mu      sync.Mutex
	vectors map[string][]float32
	err     error
	block   bool
	calls   int
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.block {
		<-ctx.Done()
		return domain.EmbeddingResult{}, ctx.Err()
	}
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	if v, ok := m.vectors[text]; ok {
		return domain.EmbeddingResult{Embedding: v, TotalTokens: 3}, nil
	}
	return domain.EmbeddingResult{Embedding: []float32{0, 0, 1}, TotalTokens: 3}, nil
}

type mockClassifier struct {
	result analysis.Analysis
	calls  int
}

func (m *mockClassifier) Classify(_ context.Context, _ string, _ vocabulary.Vocabulary) analysis.Analysis {
	m.calls++
	return m.result
}

type mockVocab struct {
	err   error
	calls int
	block bool
}

func (m *mockVocab) Get(ctx context.Context) (vocabulary.Vocabulary, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return vocabulary.Vocabulary{}, ctx.Err()
	}
	if m.err != nil {
		return vocabulary.Vocabulary{}, m.err
	}
	return vocabulary.New([]string{"First Aid"}, []string{"medical"}, []string{"CRYO"}, nil), nil
}

func (m *mockVocab) Refresh(ctx context.Context) (vocabulary.Vocabulary, error) {
	return m.Get(ctx)
}

// --- Fixtures ---

// Vectors live in 3D; the query "healing abilities" sits at cosine similarity 0.9 to First Aid.
var (
	vecFirstAid = []float32{1, 0, 0}
	vecMedical  = []float32{0.6, 0, 0.8}
	vecPilot    = []float32{0, 1, 0}
	vecHealing  = []float32{0.9, 0.4358899, 0}
)

func attr(id, name, category string, vec []float32) entity.Attribute {
	return entity.ReconstructAttribute(id, name, category, vec)
}

func survivor(id, name, location string, attrs ...entity.Attribute) entity.Entity {
	return entity.Reconstruct(id, name, entity.DefaultKind, location, attrs)
}

func fixtureCatalog() *mockCatalog {
	firstAid := attr("skill_first_aid", "First Aid", "medical", vecFirstAid)
	medTraining := attr("skill_medical_training", "Medical Training", "medical", vecMedical)
	pilot := attr("skill_pilot", "Pilot", "technical", vecPilot)
	welding := attr("skill_welding", "Welding", "technical", nil)

	return &mockCatalog{
		entities: []entity.Entity{
			survivor("s_frost", "Dr. Frost", "CRYO", medTraining),
			survivor("s_ace", "Ace", "VOLCANIC", pilot, welding),
			survivor("s_mara", "Mara", "Dark Forest Biome", firstAid),
		},
		attributes: []entity.Attribute{firstAid, medTraining, pilot, welding},
	}
}

func fixtureEmbedder() *mockEmbedder {
	return &mockEmbedder{vectors: map[string][]float32{
		"healing abilities": vecHealing,
		"First Aid":         vecFirstAid,
		"flying machines":   vecPilot,
	}}
}
