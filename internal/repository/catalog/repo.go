package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/rescuedex/internal/db"
	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
)

const (
	keyPrefix       = "rescuedex:"
	attributePrefix = keyPrefix + "attr:"
	entityPrefix    = keyPrefix + "entity:"
)

// store is the consumer interface for the catalog (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo is the Redis-backed entity catalog.
// Each attribute and entity lives in its own hash; entities reference attributes by id.
type Repo struct {
	store store
}

// New creates a catalog repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Load reads and validates the whole catalog.
func (r *Repo) Load(ctx context.Context) (entity.Catalog, error) {
	attrs, err := r.loadAttributes(ctx)
	if err != nil {
		return entity.Catalog{}, err
	}
	byID := make(map[string]entity.Attribute, len(attrs))
	for _, a := range attrs {
		byID[a.ID()] = a
	}

	keys, err := r.store.Scan(ctx, entityPrefix+"*")
	if err != nil {
		return entity.Catalog{}, fmt.Errorf("scan entities: %w", err)
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return entity.Catalog{}, fmt.Errorf("load entities: %w", err)
	}

	entities := make([]entity.Entity, 0, len(keys))
	for i, m := range hashes {
		if len(m) == 0 {
			continue // deleted between SCAN and HGETALL
		}
		id := strings.TrimPrefix(keys[i], entityPrefix)
		ids := entityAttributeIDs(m)
		eattrs := make([]entity.Attribute, 0, len(ids))
		for _, aid := range ids {
			a, ok := byID[aid]
			if !ok {
				return entity.Catalog{}, fmt.Errorf("%w: entity %q references unknown attribute %q",
					domain.ErrInvalidCatalog, id, aid)
			}
			eattrs = append(eattrs, a)
		}
		entities = append(entities, entity.Reconstruct(id, m[fieldName], m[fieldKind], m[fieldLocation], eattrs))
	}

	c, err := entity.NewCatalog(entities, attrs)
	if err != nil {
		return entity.Catalog{}, fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, err)
	}
	return c, nil
}

// Entities returns every entity with its attributes, ordered by name.
func (r *Repo) Entities(ctx context.Context) ([]entity.Entity, error) {
	c, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	return c.Entities(), nil
}

// Attributes returns the attribute catalog, ordered by name.
func (r *Repo) Attributes(ctx context.Context) ([]entity.Attribute, error) {
	c, err := r.Load(ctx)
	if err != nil {
		return nil, err
	}
	return c.Attributes(), nil
}

// EntityByName finds an entity by case-insensitive name.
func (r *Repo) EntityByName(ctx context.Context, name string) (entity.Entity, error) {
	entities, err := r.Entities(ctx)
	if err != nil {
		return entity.Entity{}, err
	}
	for _, e := range entities {
		if strings.EqualFold(e.Name(), strings.TrimSpace(name)) {
			return e, nil
		}
	}
	return entity.Entity{}, fmt.Errorf("entity %q: %w", name, domain.ErrNotFound)
}

// Vocabulary derives the known terms from the stored catalog.
func (r *Repo) Vocabulary(ctx context.Context) (vocabulary.Vocabulary, error) {
	c, err := r.Load(ctx)
	if err != nil {
		return vocabulary.Vocabulary{}, err
	}
	return BuildVocabulary(c), nil
}

// Save writes every attribute and entity of c in two pipelined round-trips.
func (r *Repo) Save(ctx context.Context, c entity.Catalog) error {
	attrs := c.Attributes()
	items := make([]db.HashSetItem, 0, len(attrs))
	for _, a := range attrs {
		items = append(items, db.HashSetItem{Key: attributePrefix + a.ID(), Fields: attributeFields(a)})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("save attributes: %w", err)
	}

	entities := c.Entities()
	items = make([]db.HashSetItem, 0, len(entities))
	for _, e := range entities {
		items = append(items, db.HashSetItem{Key: entityPrefix + e.ID(), Fields: entityFields(e)})
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("save entities: %w", err)
	}
	return nil
}

// Clear deletes every catalog key.
func (r *Repo) Clear(ctx context.Context) error {
	for _, prefix := range []string{entityPrefix, attributePrefix} {
		keys, err := r.store.Scan(ctx, prefix+"*")
		if err != nil {
			return fmt.Errorf("scan %s: %w", prefix, err)
		}
		if err := r.store.DelMulti(ctx, keys); err != nil {
			return fmt.Errorf("delete %s: %w", prefix, err)
		}
	}
	return nil
}

func (r *Repo) loadAttributes(ctx context.Context) ([]entity.Attribute, error) {
	keys, err := r.store.Scan(ctx, attributePrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan attributes: %w", err)
	}
	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load attributes: %w", err)
	}

	attrs := make([]entity.Attribute, 0, len(keys))
	for i, m := range hashes {
		if len(m) == 0 {
			continue
		}
		attrs = append(attrs, parseAttribute(strings.TrimPrefix(keys[i], attributePrefix), m))
	}
	return attrs, nil
}

// BuildVocabulary collects attribute names, categories, locations and entity names.
func BuildVocabulary(c entity.Catalog) vocabulary.Vocabulary {
	attrs := c.Attributes()
	names := make([]string, 0, len(attrs))
	categories := make([]string, 0, len(attrs))
	for _, a := range attrs {
		names = append(names, a.Name())
		categories = append(categories, a.Category())
	}

	entities := c.Entities()
	locations := make([]string, 0, len(entities))
	entityNames := make([]string, 0, len(entities))
	for _, e := range entities {
		locations = append(locations, e.Location())
		entityNames = append(entityNames, e.Name())
	}
	return vocabulary.New(names, categories, locations, entityNames)
}
