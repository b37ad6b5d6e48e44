package catalog

import (
	"context"
	"path"
	"sort"
	"testing"

	"github.com/kailas-cloud/rescuedex/internal/db"
	"github.com/kailas-cloud/rescuedex/internal/domain/entity"
)

// memStore is an in-memory hash store implementing the consumer interface.
type memStore struct {
	hashes  map[string]map[string]string
	scanErr error
	getErr  error
	setErr  error
}

func newMemStore() *memStore {
	return &memStore{hashes: map[string]map[string]string{}}
}

func (m *memStore) HSetMulti(_ context.Context, items []db.HashSetItem) error {
	if m.setErr != nil {
		return m.setErr
	}
	for _, it := range items {
		h, ok := m.hashes[it.Key]
		if !ok {
			h = map[string]string{}
			m.hashes[it.Key] = h
		}
		for k, v := range it.Fields {
			h[k] = v
		}
	}
	return nil
}

func (m *memStore) HGetAllMulti(_ context.Context, keys []string) ([]map[string]string, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if len(keys) == 0 {
		return nil, nil
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i] = m.hashes[k]
		if out[i] == nil {
			out[i] = map[string]string{}
		}
	}
	return out, nil
}

func (m *memStore) DelMulti(_ context.Context, keys []string) error {
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	var keys []string
	for k := range m.hashes {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func testCatalog(t *testing.T) entity.Catalog {
	t.Helper()
	firstAid, err := entity.NewAttribute("skill_first_aid", "First Aid", "medical", []float32{1, 0, 0.5})
	if err != nil {
		t.Fatalf("NewAttribute: %v", err)
	}
	pilot, err := entity.NewAttribute("skill_pilot", "Pilot", "technical", nil)
	if err != nil {
		t.Fatalf("NewAttribute: %v", err)
	}
	orphan, err := entity.NewAttribute("skill_cooking", "Cooking", "survival", []float32{0, 1, 0})
	if err != nil {
		t.Fatalf("NewAttribute: %v", err)
	}
	frost, err := entity.New("survivor_frost", "Dr. Frost", "", "CRYO", []entity.Attribute{firstAid, pilot})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ace, err := entity.New("survivor_ace", "Ace", "", "VOLCANIC", []entity.Attribute{pilot})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c, err := entity.NewCatalog([]entity.Entity{frost, ace}, []entity.Attribute{firstAid, pilot, orphan})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}
