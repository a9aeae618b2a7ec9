package vectordb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/yonagi/tana/internal/config"
	"github.com/yonagi/tana/internal/embedding"
	"github.com/yonagi/tana/internal/models"
	"github.com/yonagi/tana/internal/store"
)

func testConfig(dims int) config.StoreConfig {
	return config.StoreConfig{
		DefaultTable: "products",
		Dimensions:   dims,
		Tables: map[string]string{
			"products":  "product",
			"knowledge": "knowledge",
		},
	}
}

func newTestService(t *testing.T, dims int) *Service {
	t.Helper()
	svc := New(store.NewMemoryStore(), testConfig(dims), nil, nil)
	if err := svc.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return svc
}

func TestService_UninitializedCallsFail(t *testing.T) {
	svc := New(store.NewMemoryStore(), testConfig(3), nil, nil)
	ctx := context.Background()

	err := svc.Upsert(ctx, &models.UpsertRequest{ID: "x", Vector: []float32{1, 0, 0}})
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("upsert: expected ErrNotInitialized, got %v", err)
	}
	if _, err := svc.Query(ctx, &models.VectorQuery{Vector: []float32{1, 0, 0}}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("query: expected ErrNotInitialized, got %v", err)
	}
	if _, err := svc.Stats(ctx); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("stats: expected ErrNotInitialized, got %v", err)
	}
}

func TestService_InitIdempotent(t *testing.T) {
	svc := New(store.NewMemoryStore(), testConfig(3), nil, nil)
	ctx := context.Background()
	if err := svc.Init(ctx); err != nil {
		t.Fatal(err)
	}
	if err := svc.Init(ctx); err != nil {
		t.Fatalf("re-init should be a no-op success, got %v", err)
	}
	if !svc.Initialized() {
		t.Error("service should report initialized")
	}
}

func TestService_UpsertThenQuerySelfScoresOne(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()

	vec := []float32{0.6, 0.8, 0}
	err := svc.Upsert(ctx, &models.UpsertRequest{
		ID:       "prod-1",
		Vector:   vec,
		Metadata: map[string]string{"name": "sneaker", "sku": "SKU-1"},
	})
	if err != nil {
		t.Fatal(err)
	}

	matches, err := svc.Query(ctx, &models.VectorQuery{Vector: vec, Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].ID != "prod-1" {
		t.Errorf("id=%s", matches[0].ID)
	}
	if matches[0].Score < 0.999999 {
		t.Errorf("self query score=%f, want 1.0", matches[0].Score)
	}
	if matches[0].Metadata["name"] != "sneaker" {
		t.Errorf("metadata=%v", matches[0].Metadata)
	}
	// Product shape is complete: unused attributes are empty strings.
	if _, ok := matches[0].Metadata["category"]; !ok {
		t.Error("expected category attribute present (empty)")
	}
}

func TestService_UpsertTwiceLeavesOneRecord(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st, testConfig(2), nil, nil)
	ctx := context.Background()
	if err := svc.Init(ctx); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := svc.Upsert(ctx, &models.UpsertRequest{ID: "dup", Vector: []float32{1, 0}}); err != nil {
			t.Fatal(err)
		}
	}
	n, err := st.Count(ctx, "products")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 record after double upsert, got %d", n)
	}
}

func TestService_ConcurrentUpsertsSameID(t *testing.T) {
	st := store.NewMemoryStore()
	svc := New(st, testConfig(2), nil, nil)
	ctx := context.Background()
	if err := svc.Init(ctx); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = svc.Upsert(ctx, &models.UpsertRequest{ID: "racy", Vector: []float32{float32(i), 1}})
		}(i)
	}
	wg.Wait()

	n, err := st.Count(ctx, "products")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 record after concurrent upserts, got %d", n)
	}
}

func TestService_EmptyTableQueryReturnsEmpty(t *testing.T) {
	svc := newTestService(t, 3)
	matches, err := svc.Query(context.Background(), &models.VectorQuery{Vector: []float32{1, 0, 0}, Limit: 5})
	if err != nil {
		t.Fatalf("empty table query should not error: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("expected empty result, got %d", len(matches))
	}
}

func TestService_DimensionMismatch(t *testing.T) {
	svc := newTestService(t, 3)
	ctx := context.Background()

	if _, err := svc.Query(ctx, &models.VectorQuery{Vector: []float32{1, 0}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("query: expected ErrDimensionMismatch, got %v", err)
	}
	err := svc.Upsert(ctx, &models.UpsertRequest{ID: "x", Vector: []float32{1, 0, 0, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("upsert: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestService_FilterExcludesNearerNeighbors(t *testing.T) {
	svc := newTestService(t, 2)
	ctx := context.Background()

	_ = svc.Upsert(ctx, &models.UpsertRequest{
		ID: "near", Vector: []float32{1, 0},
		Metadata: map[string]string{"name": "a", "category": "shoes"},
	})
	_ = svc.Upsert(ctx, &models.UpsertRequest{
		ID: "far", Vector: []float32{0, 1},
		Metadata: map[string]string{"name": "b", "category": "bags"},
	})

	matches, err := svc.Query(ctx, &models.VectorQuery{
		Vector: []float32{1, 0},
		Limit:  10,
		Filter: map[string]string{"category": "bags"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != "far" {
		t.Fatalf("filter should exclude nearer non-matching record, got %v", matches)
	}
}

func TestService_QueryOrderedByScoreDescending(t *testing.T) {
	svc := newTestService(t, 2)
	ctx := context.Background()
	for i, v := range [][]float32{{1, 0}, {0.9, 0.4359}, {0, 1}} {
		_ = svc.Upsert(ctx, &models.UpsertRequest{ID: fmt.Sprintf("p%d", i), Vector: v})
	}
	matches, err := svc.Query(ctx, &models.VectorQuery{Vector: []float32{1, 0}, Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Score > matches[i-1].Score {
			t.Errorf("matches not in descending score order: %v", matches)
		}
	}
}

func TestService_LazyTableCreation(t *testing.T) {
	svc := newTestService(t, 2)
	ctx := context.Background()

	err := svc.Upsert(ctx, &models.UpsertRequest{
		ID: "k1", Vector: []float32{1, 0}, Table: "seasonal",
	})
	if err != nil {
		t.Fatal(err)
	}
	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Tables["seasonal"].Rows != 1 {
		t.Errorf("stats=%v", stats.Tables)
	}
}

func TestService_Stats(t *testing.T) {
	svc := newTestService(t, 4)
	ctx := context.Background()
	_ = svc.Upsert(ctx, &models.UpsertRequest{ID: "a", Vector: []float32{1, 0, 0, 0}})
	_ = svc.Upsert(ctx, &models.UpsertRequest{ID: "b", Vector: []float32{0, 1, 0, 0}})
	_ = svc.Upsert(ctx, &models.UpsertRequest{ID: "c", Vector: []float32{0, 0, 1, 0}, Table: "knowledge"})

	stats, err := svc.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalRows != 3 {
		t.Errorf("total=%d", stats.TotalRows)
	}
	if stats.EstimatedBytes != 3*4*4 {
		t.Errorf("bytes=%d", stats.EstimatedBytes)
	}
	products := stats.Tables["products"]
	if products.Rows != 2 {
		t.Errorf("products rows=%d", products.Rows)
	}
	if products.Share < 0.66 || products.Share > 0.67 {
		t.Errorf("products share=%f", products.Share)
	}
}

func TestService_Health(t *testing.T) {
	cache := embedding.NewCache(10, time.Hour)
	cache.Set("k", []float32{1})
	cache.Get("k")
	cache.Get("missing")

	svc := New(store.NewMemoryStore(), testConfig(2), cache, nil)
	ctx := context.Background()

	health := svc.Health(ctx)
	if health.Initialized {
		t.Error("should not be initialized yet")
	}
	if health.Cache == nil || health.Cache.Hits != 1 || health.Cache.Misses != 1 {
		t.Errorf("cache stats=%+v", health.Cache)
	}

	if err := svc.Init(ctx); err != nil {
		t.Fatal(err)
	}
	health = svc.Health(ctx)
	if health.Status != "ok" || !health.Initialized {
		t.Errorf("health=%+v", health)
	}
	if health.Tables != 2 {
		t.Errorf("tables=%d", health.Tables)
	}
}

func TestSimilarityScore(t *testing.T) {
	cases := []struct {
		distance float64
		want     float64
	}{
		{0, 1},
		{1, 0.5},
		{2, 0},
		{3, 0},
	}
	for _, c := range cases {
		if got := SimilarityScore(c.distance); got != c.want {
			t.Errorf("SimilarityScore(%f)=%f, want %f", c.distance, got, c.want)
		}
	}
}
