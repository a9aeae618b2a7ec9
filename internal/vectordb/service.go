// Package vectordb implements the vector retrieval service: table registry,
// upsert-by-identifier, filtered similarity queries, and stats/health.
package vectordb

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yonagi/tana/internal/config"
	"github.com/yonagi/tana/internal/embedding"
	"github.com/yonagi/tana/internal/models"
	"github.com/yonagi/tana/internal/store"
)

// bytesPerDimension is the fixed per-component storage cost used for the
// footprint estimate (float32).
const bytesPerDimension = 4

var (
	// ErrNotInitialized is returned when an operation is called before Init.
	// The service never auto-initializes.
	ErrNotInitialized = errors.New("vector service is not initialized")
	// ErrDimensionMismatch is returned when a vector's length differs from
	// the fixed table dimension. No truncation or padding is attempted.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// lockStripes bounds the per-identifier mutex table.
const lockStripes = 64

// Service is the vector retrieval layer. Construct it with New and pass it
// where needed; it holds no package-global state.
type Service struct {
	store  store.Store
	cfg    config.StoreConfig
	cache  *embedding.Cache
	logger *zap.Logger

	initialized atomic.Bool
	// tables caches opened table handles: name -> models.TableKind.
	tables sync.Map
	// keyLocks serializes upserts racing on the same identifier, so
	// delete-then-insert cannot interleave across callers.
	keyLocks [lockStripes]sync.Mutex
}

// New creates a Service over st. cache may be nil; it is only used for
// health reporting.
func New(st store.Store, cfg config.StoreConfig, cache *embedding.Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: st, cfg: cfg, cache: cache, logger: logger}
}

// Init opens the configured tables and marks the service ready. Calling it
// again is a no-op returning success.
func (s *Service) Init(ctx context.Context) error {
	if s.initialized.Load() {
		return nil
	}
	for name, kind := range s.cfg.Tables {
		if err := s.openTable(ctx, name, models.TableKind(kind)); err != nil {
			return err
		}
	}
	if _, ok := s.tables.Load(s.cfg.DefaultTable); !ok {
		if err := s.openTable(ctx, s.cfg.DefaultTable, models.KindProduct); err != nil {
			return err
		}
	}
	s.initialized.Store(true)
	s.logger.Info("vector service initialized",
		zap.String("default_table", s.cfg.DefaultTable),
		zap.Int("dimensions", s.cfg.Dimensions),
	)
	return nil
}

// Initialized reports whether Init has completed.
func (s *Service) Initialized() bool {
	return s.initialized.Load()
}

func (s *Service) openTable(ctx context.Context, name string, kind models.TableKind) error {
	if !kind.Valid() {
		return fmt.Errorf("table %s: unknown kind %q", name, kind)
	}
	if err := s.store.EnsureTable(ctx, name); err != nil {
		return err
	}
	s.tables.Store(name, kind)
	return nil
}

// ensureTable returns the table's kind, creating the table on first
// reference. The in-memory handle cache avoids repeated existence checks.
func (s *Service) ensureTable(ctx context.Context, name string) (models.TableKind, error) {
	if v, ok := s.tables.Load(name); ok {
		return v.(models.TableKind), nil
	}
	kind := models.KindProduct
	if k, ok := s.cfg.Tables[name]; ok {
		kind = models.TableKind(k)
	}
	if err := s.openTable(ctx, name, kind); err != nil {
		return "", err
	}
	return kind, nil
}

func (s *Service) resolveTable(table string) string {
	if table == "" {
		return s.cfg.DefaultTable
	}
	return table
}

func (s *Service) keyLock(table, id string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(table))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(id))
	return &s.keyLocks[h.Sum32()%lockStripes]
}

// Upsert inserts or replaces the record for req.ID: existing records with
// the same identifier are deleted, then the new record is inserted. Upserts
// on the same identifier are serialized through a per-key lock, so the
// sequence cannot interleave with a concurrent upsert of the same id.
func (s *Service) Upsert(ctx context.Context, req *models.UpsertRequest) error {
	if !s.initialized.Load() {
		return ErrNotInitialized
	}
	if req.ID == "" {
		return fmt.Errorf("upsert: id is required")
	}
	if len(req.Vector) != s.cfg.Dimensions {
		return fmt.Errorf("upsert %s: %w: got %d, expected %d", req.ID, ErrDimensionMismatch, len(req.Vector), s.cfg.Dimensions)
	}
	table := s.resolveTable(req.Table)
	kind, err := s.ensureTable(ctx, table)
	if err != nil {
		return err
	}

	rec := store.Record{
		ID:       req.ID,
		Vector:   req.Vector,
		Metadata: kind.NormalizeMetadata(req.Metadata),
	}

	mu := s.keyLock(table, req.ID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.store.Delete(ctx, table, req.ID); err != nil {
		s.logger.Error("upsert delete failed", zap.String("table", table), zap.String("id", req.ID), zap.Error(err))
		return err
	}
	if err := s.store.Add(ctx, table, rec); err != nil {
		s.logger.Error("upsert insert failed", zap.String("table", table), zap.String("id", req.ID), zap.Error(err))
		return err
	}
	s.logger.Debug("upserted vector", zap.String("table", table), zap.String("id", req.ID))
	return nil
}

// Delete removes the record with the given identifier, if present.
func (s *Service) Delete(ctx context.Context, id, table string) error {
	if !s.initialized.Load() {
		return ErrNotInitialized
	}
	table = s.resolveTable(table)
	if _, err := s.ensureTable(ctx, table); err != nil {
		return err
	}
	return s.store.Delete(ctx, table, id)
}

// Query runs a nearest-neighbor search. The query vector must match the
// fixed table dimension exactly. An empty table yields an empty result list,
// not an error. Matches come back ordered by descending score.
func (s *Service) Query(ctx context.Context, q *models.VectorQuery) ([]models.Match, error) {
	if !s.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if len(q.Vector) != s.cfg.Dimensions {
		return nil, fmt.Errorf("query: %w: got %d, expected %d", ErrDimensionMismatch, len(q.Vector), s.cfg.Dimensions)
	}
	table := s.resolveTable(q.Table)
	if _, err := s.ensureTable(ctx, table); err != nil {
		return nil, err
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	hits, err := s.store.Search(ctx, table, q.Vector, limit, q.Filter)
	if err != nil {
		s.logger.Error("query failed", zap.String("table", table), zap.Error(err))
		return nil, err
	}
	matches := make([]models.Match, len(hits))
	for i, hit := range hits {
		matches[i] = models.Match{
			ID:       hit.ID,
			Score:    SimilarityScore(hit.Distance),
			Vector:   hit.Vector,
			Metadata: hit.Metadata,
		}
	}
	return matches, nil
}

// SimilarityScore converts a distance to a similarity in [0,1]: 1 at zero
// distance, otherwise max(0, 1 - distance/2).
func SimilarityScore(distance float64) float64 {
	if distance <= 0 {
		return 1
	}
	score := 1 - distance/2
	if score < 0 {
		return 0
	}
	return score
}

// Stats sums row counts across all tables and estimates the storage
// footprint from the fixed per-vector byte cost.
func (s *Service) Stats(ctx context.Context) (*models.StoreStats, error) {
	if !s.initialized.Load() {
		return nil, ErrNotInitialized
	}
	names, err := s.store.Tables(ctx)
	if err != nil {
		return nil, err
	}
	stats := &models.StoreStats{
		Tables:     make(map[string]models.TableStats, len(names)),
		Dimensions: s.cfg.Dimensions,
	}
	perVector := int64(s.cfg.Dimensions * bytesPerDimension)
	for _, name := range names {
		rows, err := s.store.Count(ctx, name)
		if err != nil {
			return nil, err
		}
		stats.Tables[name] = models.TableStats{
			Rows:           rows,
			EstimatedBytes: int64(rows) * perVector,
		}
		stats.TotalRows += rows
	}
	stats.EstimatedBytes = int64(stats.TotalRows) * perVector
	if stats.TotalRows > 0 {
		for name, ts := range stats.Tables {
			ts.Share = float64(ts.Rows) / float64(stats.TotalRows)
			stats.Tables[name] = ts
		}
	}
	return stats, nil
}

// Health reports service status, initialization state, table count, and
// embedding cache statistics.
func (s *Service) Health(ctx context.Context) *models.HealthStatus {
	health := &models.HealthStatus{
		Status:      "ok",
		Initialized: s.initialized.Load(),
	}
	if s.cache != nil {
		hits, misses, size := s.cache.Stats()
		health.Cache = &models.CacheStats{Hits: hits, Misses: misses, Size: size}
	}
	names, err := s.store.Tables(ctx)
	if err != nil {
		health.Status = "error"
		health.Error = err.Error()
		return health
	}
	health.Tables = len(names)
	return health
}

// Close closes the underlying store.
func (s *Service) Close() error {
	return s.store.Close()
}
