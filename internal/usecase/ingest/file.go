package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
)

// File is the on-disk seed catalog.
type File struct {
	Locations  []string        `yaml:"locations"`
	Attributes []AttributeSpec `yaml:"attributes"`
	Entities   []EntitySpec    `yaml:"survivors"`
}

// AttributeSpec describes one catalog attribute. Embedding is optional.
type AttributeSpec struct {
	ID        string    `yaml:"id"`
	Name      string    `yaml:"name"`
	Category  string    `yaml:"category"`
	Embedding []float32 `yaml:"embedding,omitempty"`
}

// EntitySpec describes one entity and the attribute ids it holds.
type EntitySpec struct {
	ID         string   `yaml:"id"`
	Name       string   `yaml:"name"`
	Kind       string   `yaml:"kind"`
	Location   string   `yaml:"location"`
	Attributes []string `yaml:"attributes"`
}

// LoadFile reads and parses a seed catalog from disk.
func LoadFile(path string) (File, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return File{}, fmt.Errorf("open catalog file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}

// Parse decodes a seed catalog. Unknown keys are rejected.
func Parse(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, fmt.Errorf("%w: empty catalog file", domain.ErrInvalidCatalog)
		}
		return File{}, fmt.Errorf("%w: decode catalog: %w", domain.ErrInvalidCatalog, err)
	}
	return f, nil
}

// attributes validates attribute specs into domain attributes, keeping file order.
func (f File) attributes() ([]entity.Attribute, error) {
	out := make([]entity.Attribute, 0, len(f.Attributes))
	for _, a := range f.Attributes {
		attr, err := entity.NewAttribute(a.ID, a.Name, a.Category, a.Embedding)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, err)
		}
		out = append(out, attr)
	}
	return out, nil
}

// entities resolves attribute references against attrs.
func (f File) entities(attrs []entity.Attribute) ([]entity.Entity, error) {
	byID := make(map[string]entity.Attribute, len(attrs))
	for _, a := range attrs {
		byID[a.ID()] = a
	}

	out := make([]entity.Entity, 0, len(f.Entities))
	for _, e := range f.Entities {
		if len(f.Locations) > 0 && e.Location != "" && !slices.Contains(f.Locations, e.Location) {
			return nil, fmt.Errorf("%w: entity %q: unknown location %q", domain.ErrInvalidCatalog, e.ID, e.Location)
		}
		eattrs := make([]entity.Attribute, 0, len(e.Attributes))
		for _, id := range e.Attributes {
			a, ok := byID[id]
			if !ok {
				return nil, fmt.Errorf("%w: entity %q: unknown attribute %q", domain.ErrInvalidCatalog, e.ID, id)
			}
			eattrs = append(eattrs, a)
		}
		ent, err := entity.New(e.ID, e.Name, e.Kind, e.Location, eattrs)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, err)
		}
		out = append(out, ent)
	}
	return out, nil
}
