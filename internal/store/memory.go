package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/yonagi/tana/pkg/utils"
)

// MemoryStore is an in-memory Store for tests: brute-force cosine search
// over a map of tables.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]Record
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[string]Record)}
}

// EnsureTable creates the table if missing.
func (m *MemoryStore) EnsureTable(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("table name is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[name]; !ok {
		m.tables[name] = make(map[string]Record)
	}
	return nil
}

func (m *MemoryStore) table(name string) (map[string]Record, error) {
	tbl, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return tbl, nil
}

// Add inserts records. Duplicate identifiers overwrite silently; upsert
// semantics live above the store.
func (m *MemoryStore) Add(ctx context.Context, table string, records ...Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, err := m.table(table)
	if err != nil {
		return err
	}
	for _, rec := range records {
		vec := make([]float32, len(rec.Vector))
		copy(vec, rec.Vector)
		rec.Vector = vec
		tbl[rec.ID] = rec
	}
	return nil
}

// Delete removes records by identifier.
func (m *MemoryStore) Delete(ctx context.Context, table string, ids ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, err := m.table(table)
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(tbl, id)
	}
	return nil
}

// Search brute-forces cosine distance over all records, applying the
// equality filter before ranking.
func (m *MemoryStore) Search(ctx context.Context, table string, vector []float32, k int, filter map[string]string) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tbl, err := m.table(table)
	if err != nil {
		return nil, err
	}
	matches := make([]Match, 0, len(tbl))
	for _, rec := range tbl {
		if !matchesFilter(rec.Metadata, filter) {
			continue
		}
		matches = append(matches, Match{
			ID:       rec.ID,
			Vector:   rec.Vector,
			Metadata: rec.Metadata,
			Distance: utils.CosineDistance(vector, rec.Vector),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

func matchesFilter(md, filter map[string]string) bool {
	for key, want := range filter {
		if md[key] != want {
			return false
		}
	}
	return true
}

// Count returns the number of records in the table.
func (m *MemoryStore) Count(ctx context.Context, table string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tbl, err := m.table(table)
	if err != nil {
		return 0, err
	}
	return len(tbl), nil
}

// Tables lists all table names.
func (m *MemoryStore) Tables(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.tables))
	for name := range m.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
