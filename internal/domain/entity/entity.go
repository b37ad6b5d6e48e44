package entity

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var idRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// DefaultKind is the entity kind used when none is given.
const DefaultKind = "survivor"

// Attribute is a named, categorized capability (a skill), independently embeddable.
type Attribute struct {
	id        string
	name      string
	category  string
	embedding []float32
}

// NewAttribute validates and creates an Attribute. embedding may be nil.
func NewAttribute(id, name, category string, embedding []float32) (Attribute, error) {
	if err := validateID(id); err != nil {
		return Attribute{}, fmt.Errorf("attribute: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		return Attribute{}, fmt.Errorf("attribute %q: name is required", id)
	}
	return Attribute{id: id, name: name, category: category, embedding: embedding}, nil
}

// ReconstructAttribute creates an Attribute without validation (storage hydration).
func ReconstructAttribute(id, name, category string, embedding []float32) Attribute {
	return Attribute{id: id, name: name, category: category, embedding: embedding}
}

// ID returns the catalog-unique attribute identifier.
func (a Attribute) ID() string { return a.id }

// Name returns the display name.
func (a Attribute) Name() string { return a.name }

// Category returns the attribute category (may be empty).
func (a Attribute) Category() string { return a.category }

// Embedding returns the stored vector, nil if the attribute was never embedded.
func (a Attribute) Embedding() []float32 { return a.embedding }

// HasEmbedding reports whether the attribute participates in semantic retrieval.
func (a Attribute) HasEmbedding() bool { return len(a.embedding) > 0 }

// WithEmbedding returns a copy of the attribute carrying vec.
func (a Attribute) WithEmbedding(vec []float32) Attribute {
	a.embedding = vec
	return a
}

// Entity is a searchable record (a survivor) with its attributes.
type Entity struct {
	id         string
	name       string
	kind       string
	location   string
	attributes []Attribute
}

// New validates and creates an Entity. An attribute id may appear at most once.
func New(id, name, kind, location string, attributes []Attribute) (Entity, error) {
	if err := validateID(id); err != nil {
		return Entity{}, fmt.Errorf("entity: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		return Entity{}, fmt.Errorf("entity %q: name is required", id)
	}
	if kind == "" {
		kind = DefaultKind
	}

	seen := make(map[string]struct{}, len(attributes))
	for _, a := range attributes {
		if _, dup := seen[a.id]; dup {
			return Entity{}, fmt.Errorf("entity %q: attribute %q referenced twice", id, a.id)
		}
		seen[a.id] = struct{}{}
	}

	return Entity{
		id:         id,
		name:       name,
		kind:       kind,
		location:   location,
		attributes: append([]Attribute(nil), attributes...),
	}, nil
}

// Reconstruct creates an Entity without validation (storage hydration).
func Reconstruct(id, name, kind, location string, attributes []Attribute) Entity {
	return Entity{id: id, name: name, kind: kind, location: location, attributes: attributes}
}

// ID returns the entity identifier.
func (e Entity) ID() string { return e.id }

// Name returns the display name.
func (e Entity) Name() string { return e.name }

// Kind returns the entity kind ("survivor" by default).
func (e Entity) Kind() string { return e.kind }

// Location returns the location tag (biome), empty when unknown.
func (e Entity) Location() string { return e.location }

// Attributes returns the entity's attributes in catalog order.
func (e Entity) Attributes() []Attribute { return e.attributes }

// AttributeIDs returns the ids of the entity's attributes in order.
func (e Entity) AttributeIDs() []string {
	ids := make([]string, len(e.attributes))
	for i, a := range e.attributes {
		ids[i] = a.id
	}
	return ids
}

// Catalog is a consistent snapshot of entities and the attribute catalog.
type Catalog struct {
	entities   []Entity
	attributes []Attribute
}

// NewCatalog validates catalog-wide invariants: unique entity ids, unique attribute ids,
// and every entity attribute resolving to the catalog attribute with the same id.
// Standalone attributes (not referenced by any entity) are allowed.
func NewCatalog(entities []Entity, attributes []Attribute) (Catalog, error) {
	byID := make(map[string]Attribute, len(attributes))
	for _, a := range attributes {
		if _, dup := byID[a.id]; dup {
			return Catalog{}, fmt.Errorf("duplicate attribute id %q", a.id)
		}
		byID[a.id] = a
	}

	seen := make(map[string]struct{}, len(entities))
	for _, e := range entities {
		if _, dup := seen[e.id]; dup {
			return Catalog{}, fmt.Errorf("duplicate entity id %q", e.id)
		}
		seen[e.id] = struct{}{}
		for _, a := range e.attributes {
			known, ok := byID[a.id]
			if !ok {
				return Catalog{}, fmt.Errorf("entity %q: unknown attribute %q", e.id, a.id)
			}
			if known.name != a.name || known.category != a.category {
				return Catalog{}, fmt.Errorf("entity %q: attribute %q conflicts with catalog", e.id, a.id)
			}
		}
	}

	return Catalog{
		entities:   sortedEntities(entities),
		attributes: sortedAttributes(attributes),
	}, nil
}

// Entities returns entities ordered by name, then id.
func (c Catalog) Entities() []Entity { return c.entities }

// Attributes returns catalog attributes ordered by name, then id.
func (c Catalog) Attributes() []Attribute { return c.attributes }

func sortedEntities(in []Entity) []Entity {
	out := append([]Entity(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].id < out[j].id
	})
	return out
}

func sortedAttributes(in []Attribute) []Attribute {
	out := append([]Attribute(nil), in...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].id < out[j].id
	})
	return out
}

func validateID(id string) error {
	if id == "" {
		return fmt.Errorf("id is required")
	}
	if len(id) > 256 {
		return fmt.Errorf("id too long (max 256)")
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("id %q must be alphanumeric with _ . : -", id)
	}
	return nil
}
