package search

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/yonagi/tana/internal/config"
	"github.com/yonagi/tana/internal/embedding"
	"github.com/yonagi/tana/internal/keyword"
	"github.com/yonagi/tana/internal/models"
	"github.com/yonagi/tana/internal/store"
	"github.com/yonagi/tana/internal/vectordb"
)

const testDims = 8

func newTestEngine(t *testing.T, embedder embedding.Embedder) *Engine {
	t.Helper()

	vectors := vectordb.New(store.NewMemoryStore(), config.StoreConfig{
		DefaultTable: "products",
		Dimensions:   testDims,
		Tables:       map[string]string{"products": "product", "knowledge": "knowledge"},
	}, nil, zap.NewNop())
	ctx := context.Background()
	if err := vectors.Init(ctx); err != nil {
		t.Fatal(err)
	}
	kw, err := keyword.NewMemBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })

	mock := embedding.NewMockEmbedder(testDims)
	products := []*models.Product{
		{ID: "p1", Name: "Canvas Sneaker", Category: "shoes", SKU: "SNK-001"},
		{ID: "p2", Name: "Leather Boot", Category: "shoes", SKU: "BT-204"},
	}
	for _, p := range products {
		vec, err := mock.Embed(ctx, p.EmbeddingText())
		if err != nil {
			t.Fatal(err)
		}
		if err := vectors.Upsert(ctx, &models.UpsertRequest{
			ID: p.ID, Vector: vec, Metadata: p.VectorMetadata(), Table: "products",
		}); err != nil {
			t.Fatal(err)
		}
		if err := kw.Index(ctx, p.ID, &keyword.Doc{Kind: "product", Title: p.Name, SKU: p.SKU}); err != nil {
			t.Fatal(err)
		}
	}

	cfg := &config.SearchConfig{
		DefaultLimit:   10,
		MaxLimit:       100,
		TopKCandidates: 50,
		KeywordWeight:  0.3,
		SemanticWeight: 0.7,
	}
	return NewEngine(embedder, vectors, kw, cfg)
}

func TestEngine_Search(t *testing.T) {
	engine := newTestEngine(t, embedding.NewMockEmbedder(testDims))

	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "sneaker"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
	if resp.Results[0].ID != "p1" {
		t.Errorf("first=%s, want p1", resp.Results[0].ID)
	}
	if resp.Results[0].Rank != 1 {
		t.Errorf("rank=%d, want 1", resp.Results[0].Rank)
	}
	for i := 1; i < len(resp.Results); i++ {
		if resp.Results[i].Score > resp.Results[i-1].Score {
			t.Errorf("results not sorted descending at %d", i)
		}
	}
}

func TestEngine_SearchEmptyQuery(t *testing.T) {
	engine := newTestEngine(t, embedding.NewMockEmbedder(testDims))
	if _, err := engine.Search(context.Background(), &models.SearchQuery{}); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestEngine_SearchLimit(t *testing.T) {
	engine := newTestEngine(t, embedding.NewMockEmbedder(testDims))

	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "shoes", Limit: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) > 1 {
		t.Errorf("len=%d, want <=1", len(resp.Results))
	}
}

func TestEngine_ConfiguredLimits(t *testing.T) {
	engine := newTestEngine(t, embedding.NewMockEmbedder(testDims))
	engine.config = &config.SearchConfig{
		DefaultLimit:   1,
		MaxLimit:       1,
		TopKCandidates: 50,
		KeywordWeight:  0.3,
		SemanticWeight: 0.7,
	}

	// No explicit limit: the configured default applies.
	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "shoes"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("default limit: len=%d, want 1", len(resp.Results))
	}

	// Requested limit above the configured maximum is capped.
	resp, err = engine.Search(context.Background(), &models.SearchQuery{Query: "shoes", Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 {
		t.Errorf("capped limit: len=%d, want 1", len(resp.Results))
	}
}

func TestEngine_NilEmbedderKeywordOnly(t *testing.T) {
	engine := newTestEngine(t, nil)

	resp, err := engine.Search(context.Background(), &models.SearchQuery{Query: "sneaker"})
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "p1" {
		t.Fatalf("results=%v", resp.Results)
	}
	if resp.Results[0].SemanticScore != 0 {
		t.Errorf("semantic score=%f, want 0", resp.Results[0].SemanticScore)
	}
}

func TestEngine_SemanticFilter(t *testing.T) {
	engine := newTestEngine(t, embedding.NewMockEmbedder(testDims))

	// Keyword side off so the filter fully controls the candidates.
	resp, err := engine.Search(context.Background(), &models.SearchQuery{
		Query:          "sneaker",
		SemanticWeight: 1.0,
		KeywordWeight:  0.000001,
		Filter:         map[string]string{"sku": "BT-204"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range resp.Results {
		if r.SemanticScore > 0 && r.ID != "p2" {
			t.Errorf("filtered semantic hit %s", r.ID)
		}
	}
}
