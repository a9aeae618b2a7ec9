package store

import (
	"context"
	"fmt"
	"os"
	"sort"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// ChromemStore implements Store using chromem-go, an embeddable pure-Go
// vector database with gob persistence. One chromem collection backs each
// table.
type ChromemStore struct {
	db     *chromem.DB
	logger *zap.Logger
}

// NewChromemStore opens or creates a persistent chromem database at path.
func NewChromemStore(path string, compress bool, logger *zap.Logger) (*ChromemStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("open vector database: %w", err)
	}
	logger.Info("vector store opened", zap.String("path", path), zap.Bool("compress", compress))
	return &ChromemStore{db: db, logger: logger}, nil
}

// noEmbedding rejects any attempt by chromem to compute embeddings itself.
// All vectors are supplied by the caller; chromem must never fall back to
// its default OpenAI embedder.
func noEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embeddings must be provided explicitly")
}

// EnsureTable creates the collection if it does not exist.
func (s *ChromemStore) EnsureTable(ctx context.Context, name string) error {
	if name == "" {
		return fmt.Errorf("table name is required")
	}
	if _, err := s.db.GetOrCreateCollection(name, nil, noEmbedding); err != nil {
		return fmt.Errorf("ensure table %s: %w", name, err)
	}
	return nil
}

func (s *ChromemStore) collection(name string) (*chromem.Collection, error) {
	col := s.db.GetCollection(name, noEmbedding)
	if col == nil {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, name)
	}
	return col, nil
}

// Add inserts records into the table.
func (s *ChromemStore) Add(ctx context.Context, table string, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	col, err := s.collection(table)
	if err != nil {
		return err
	}
	docs := make([]chromem.Document, len(records))
	for i, rec := range records {
		docs[i] = chromem.Document{
			ID:        rec.ID,
			Metadata:  rec.Metadata,
			Embedding: rec.Vector,
		}
	}
	if err := col.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add to table %s: %w", table, err)
	}
	return nil
}

// Delete removes records by identifier. Missing identifiers are ignored.
func (s *ChromemStore) Delete(ctx context.Context, table string, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	col, err := s.collection(table)
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, ids...); err != nil {
		return fmt.Errorf("delete from table %s: %w", table, err)
	}
	return nil
}

// Search returns up to k nearest records by cosine distance, ascending.
// chromem reports cosine similarity; it is converted to distance here so
// callers see one metric.
func (s *ChromemStore) Search(ctx context.Context, table string, vector []float32, k int, filter map[string]string) ([]Match, error) {
	col, err := s.collection(table)
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 || k <= 0 {
		return []Match{}, nil
	}
	if k > count {
		k = count
	}
	var where map[string]string
	if len(filter) > 0 {
		where = filter
	}
	results, err := col.QueryEmbedding(ctx, vector, k, where, nil)
	if err != nil {
		return nil, fmt.Errorf("search table %s: %w", table, err)
	}
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{
			ID:       r.ID,
			Vector:   r.Embedding,
			Metadata: r.Metadata,
			Distance: 1 - float64(r.Similarity),
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	return matches, nil
}

// Count returns the number of records in the table.
func (s *ChromemStore) Count(ctx context.Context, table string) (int, error) {
	col, err := s.collection(table)
	if err != nil {
		return 0, err
	}
	return col.Count(), nil
}

// Tables lists all collection names.
func (s *ChromemStore) Tables(ctx context.Context) ([]string, error) {
	cols := s.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Close is a no-op; chromem persists on every write.
func (s *ChromemStore) Close() error {
	return nil
}
