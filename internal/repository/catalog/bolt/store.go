// Package bolt is an embedded single-file catalog backend for local runs without Redis.
package bolt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"

	"github.com/kailas-cloud/rescuedex/internal/domain"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
	"github.com/kailas-cloud/rescuedex/internal/domain/vocabulary"
	"github.com/kailas-cloud/rescuedex/internal/repository/catalog"
)

var (
	bucketAttributes = []byte("attributes")
	bucketEntities   = []byte("entities")
)

type attributeRecord struct {
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Embedding []float32 `json:"embedding,omitempty"`
}

type entityRecord struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Location   string   `json:"location,omitempty"`
	Attributes []string `json:"attributes"`
}

// Store keeps the catalog in a bbolt file, one JSON record per key.
type Store struct {
	db *bbolt.DB
}

// Open opens (or creates) the bolt file at path and ensures the buckets exist.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketAttributes, bucketEntities} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close releases the file lock.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is still open.
func (s *Store) Ping(_ context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

// Load reads and validates the whole catalog in a single read transaction.
func (s *Store) Load(ctx context.Context) (entity.Catalog, error) {
	if err := ctx.Err(); err != nil {
		return entity.Catalog{}, err
	}

	var (
		attrs    []entity.Attribute
		entities []entity.Entity
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		byID := make(map[string]entity.Attribute)
		err := tx.Bucket(bucketAttributes).ForEach(func(k, v []byte) error {
			var rec attributeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode attribute %q: %w", k, err)
			}
			a := entity.ReconstructAttribute(string(k), rec.Name, rec.Category, rec.Embedding)
			byID[a.ID()] = a
			attrs = append(attrs, a)
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(bucketEntities).ForEach(func(k, v []byte) error {
			var rec entityRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode entity %q: %w", k, err)
			}
			eattrs := make([]entity.Attribute, 0, len(rec.Attributes))
			for _, aid := range rec.Attributes {
				a, ok := byID[aid]
				if !ok {
					return fmt.Errorf("%w: entity %q references unknown attribute %q",
						domain.ErrInvalidCatalog, k, aid)
				}
				eattrs = append(eattrs, a)
			}
			entities = append(entities, entity.Reconstruct(string(k), rec.Name, rec.Kind, rec.Location, eattrs))
			return nil
		})
	})
	if err != nil {
		return entity.Catalog{}, err
	}

	c, err := entity.NewCatalog(entities, attrs)
	if err != nil {
		return entity.Catalog{}, fmt.Errorf("%w: %w", domain.ErrInvalidCatalog, err)
	}
	return c, nil
}

// Entities returns every entity with its attributes, ordered by name.
func (s *Store) Entities(ctx context.Context) ([]entity.Entity, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return c.Entities(), nil
}

// Attributes returns the attribute catalog, ordered by name.
func (s *Store) Attributes(ctx context.Context) ([]entity.Attribute, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return c.Attributes(), nil
}

// EntityByName finds an entity by case-insensitive name.
func (s *Store) EntityByName(ctx context.Context, name string) (entity.Entity, error) {
	entities, err := s.Entities(ctx)
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
func (s *Store) Vocabulary(ctx context.Context) (vocabulary.Vocabulary, error) {
	c, err := s.Load(ctx)
	if err != nil {
		return vocabulary.Vocabulary{}, err
	}
	return catalog.BuildVocabulary(c), nil
}

// Save writes the whole catalog in one transaction.
func (s *Store) Save(ctx context.Context, c entity.Catalog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		ab := tx.Bucket(bucketAttributes)
		for _, a := range c.Attributes() {
			data, err := json.Marshal(attributeRecord{
				Name:      a.Name(),
				Category:  a.Category(),
				Embedding: a.Embedding(),
			})
			if err != nil {
				return fmt.Errorf("encode attribute %q: %w", a.ID(), err)
			}
			if err := ab.Put([]byte(a.ID()), data); err != nil {
				return err
			}
		}

		eb := tx.Bucket(bucketEntities)
		for _, e := range c.Entities() {
			data, err := json.Marshal(entityRecord{
				Name:       e.Name(),
				Kind:       e.Kind(),
				Location:   e.Location(),
				Attributes: e.AttributeIDs(),
			})
			if err != nil {
				return fmt.Errorf("encode entity %q: %w", e.ID(), err)
			}
			if err := eb.Put([]byte(e.ID()), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// Clear drops and recreates both buckets.
func (s *Store) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketAttributes, bucketEntities} {
			if err := tx.DeleteBucket(b); err != nil {
				return fmt.Errorf("delete bucket %s: %w", b, err)
			}
			if _, err := tx.CreateBucket(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
}
