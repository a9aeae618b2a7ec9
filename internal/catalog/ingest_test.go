package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/yonagi/tana/internal/config"
	"github.com/yonagi/tana/internal/embedding"
	"github.com/yonagi/tana/internal/keyword"
	"github.com/yonagi/tana/internal/models"
	"github.com/yonagi/tana/internal/store"
	"github.com/yonagi/tana/internal/vectordb"
)

const testDims = 8

func newTestIngestor(t *testing.T) (*Ingestor, *vectordb.Service) {
	t.Helper()

	storage := newTestStorage(t)
	vectors := vectordb.New(store.NewMemoryStore(), config.StoreConfig{
		DefaultTable: "products",
		Dimensions:   testDims,
		Tables:       map[string]string{"products": "product", "knowledge": "knowledge"},
	}, nil, zap.NewNop())
	if err := vectors.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	kw, err := keyword.NewMemBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = kw.Close() })

	in := NewIngestor(storage, embedding.NewMockEmbedder(testDims), vectors, kw, "products", "knowledge", zap.NewNop())
	return in, vectors
}

func TestIngestor_SaveProduct(t *testing.T) {
	in, vectors := newTestIngestor(t)
	ctx := context.Background()

	p := &models.Product{Name: "Canvas Sneaker", Category: "shoes", SKU: "SNK-001"}
	if err := in.SaveProduct(ctx, p); err != nil {
		t.Fatal(err)
	}
	if p.ID == "" {
		t.Fatal("expected an assigned ID")
	}

	// The product must be retrievable by its own embedding.
	vec, err := embedding.NewMockEmbedder(testDims).Embed(ctx, p.EmbeddingText())
	if err != nil {
		t.Fatal(err)
	}
	matches, err := vectors.Query(ctx, &models.VectorQuery{Vector: vec, Limit: 1, Table: "products"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != p.ID {
		t.Fatalf("matches=%v", matches)
	}
	if matches[0].Metadata["sku"] != "SNK-001" {
		t.Errorf("metadata=%v", matches[0].Metadata)
	}

	// And by keyword.
	hits, err := in.keyword.Search(ctx, "sneaker", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].ID != p.ID {
		t.Errorf("hits=%v", hits)
	}
}

func TestIngestor_SaveProductRequiresName(t *testing.T) {
	in, _ := newTestIngestor(t)
	if err := in.SaveProduct(context.Background(), &models.Product{SKU: "X"}); err == nil {
		t.Fatal("expected error for nameless product")
	}
}

func TestIngestor_DeleteProduct(t *testing.T) {
	in, vectors := newTestIngestor(t)
	ctx := context.Background()

	p := &models.Product{ID: "p1", Name: "Canvas Sneaker"}
	if err := in.SaveProduct(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := in.DeleteProduct(ctx, "p1"); err != nil {
		t.Fatal(err)
	}

	vec, _ := embedding.NewMockEmbedder(testDims).Embed(ctx, p.EmbeddingText())
	matches, err := vectors.Query(ctx, &models.VectorQuery{Vector: vec, Limit: 10, Table: "products"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("expected empty result after delete, got %v", matches)
	}
}

func TestIngestor_SaveKnowledge(t *testing.T) {
	in, vectors := newTestIngestor(t)
	ctx := context.Background()

	e := &models.KnowledgeEntry{Title: "Return policy", Content: "Returns are accepted within 14 days."}
	if err := in.SaveKnowledge(ctx, e); err != nil {
		t.Fatal(err)
	}

	vec, _ := embedding.NewMockEmbedder(testDims).Embed(ctx, e.EmbeddingText())
	matches, err := vectors.Query(ctx, &models.VectorQuery{Vector: vec, Limit: 1, Table: "knowledge"})
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 || matches[0].ID != e.ID {
		t.Fatalf("matches=%v", matches)
	}
	if matches[0].Metadata["title"] != "Return policy" {
		t.Errorf("metadata=%v", matches[0].Metadata)
	}
}

func TestIngestor_NilEmbedderSkipsVectors(t *testing.T) {
	storage := newTestStorage(t)
	vectors := vectordb.New(store.NewMemoryStore(), config.StoreConfig{
		DefaultTable: "products",
		Dimensions:   testDims,
	}, nil, zap.NewNop())
	if err := vectors.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	kw, err := keyword.NewMemBleveIndex()
	if err != nil {
		t.Fatal(err)
	}
	defer kw.Close()

	in := NewIngestor(storage, nil, vectors, kw, "products", "knowledge", zap.NewNop())
	p := &models.Product{ID: "p1", Name: "Canvas Sneaker"}
	if err := in.SaveProduct(context.Background(), p); err != nil {
		t.Fatal(err)
	}

	// Stored and keyword-indexed, but no vector.
	if _, err := storage.GetProduct(context.Background(), "p1"); err != nil {
		t.Fatal(err)
	}
	stats, err := vectors.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalRows != 0 {
		t.Errorf("rows=%d, want 0", stats.TotalRows)
	}
}

func TestIngestor_ImportProductsXLSX(t *testing.T) {
	in, _ := newTestIngestor(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "products.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"name", "description", "category", "price", "sku", "url"},
		{"Canvas Sneaker", "Lightweight", "shoes", "4900", "SNK-001", "https://shop.example/p/1"},
		{"Leather Boot", "Waterproof", "shoes", "12900", "BT-204", "https://shop.example/p/2"},
		{"", "row without a name is skipped", "", "", "", ""},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	count, err := in.ImportFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count=%d, want 2", count)
	}

	// SKU becomes the identifier, so re-import updates in place.
	count, err = in.ImportFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("re-import count=%d, want 2", count)
	}
	n, err := in.storage.CountProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("stored products=%d, want 2", n)
	}

	p, err := in.storage.GetProduct(ctx, "SNK-001")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "Canvas Sneaker" || p.Price != "4900" {
		t.Errorf("got %+v", p)
	}
}

func TestIngestor_ImportKnowledgeFile(t *testing.T) {
	in, _ := newTestIngestor(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "returns.txt")
	if err := os.WriteFile(path, []byte("Returns are accepted within 14 days of delivery."), 0644); err != nil {
		t.Fatal(err)
	}

	count, err := in.ImportFile(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count=%d, want 1", count)
	}

	entries, err := in.storage.ListKnowledge(ctx, 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Title != "returns" {
		t.Fatalf("entries=%v", entries)
	}

	// Re-import updates the same entry.
	if _, err := in.ImportFile(ctx, path); err != nil {
		t.Fatal(err)
	}
	n, err := in.storage.CountKnowledge(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("stored entries=%d, want 1", n)
	}
}
