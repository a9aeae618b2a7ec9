package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/yonagi/tana/internal/models"
)

func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	s, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStorage_ProductRoundtrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	p := &models.Product{
		ID:          "p1",
		Name:        "Canvas Sneaker",
		Description: "Lightweight canvas sneaker",
		Category:    "shoes",
		Price:       "4900",
		SKU:         "SNK-001",
		URL:         "https://shop.example/p/snk-001",
	}
	if err := s.SaveProduct(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetProduct(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != p.Name || got.SKU != p.SKU || got.Category != p.Category {
		t.Errorf("got %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestSQLiteStorage_SaveProductUpdates(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	p := &models.Product{ID: "p1", Name: "Canvas Sneaker", Price: "4900"}
	if err := s.SaveProduct(ctx, p); err != nil {
		t.Fatal(err)
	}
	p.Price = "3900"
	if err := s.SaveProduct(ctx, p); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetProduct(ctx, "p1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Price != "3900" {
		t.Errorf("price=%s, want 3900", got.Price)
	}
	n, err := s.CountProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count=%d, want 1", n)
	}
}

func TestSQLiteStorage_GetProductNotFound(t *testing.T) {
	s := newTestStorage(t)
	_, err := s.GetProduct(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err=%v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_DeleteProduct(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	_ = s.SaveProduct(ctx, &models.Product{ID: "p1", Name: "Canvas Sneaker"})
	if err := s.DeleteProduct(ctx, "p1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetProduct(ctx, "p1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err=%v, want ErrNotFound", err)
	}
}

func TestSQLiteStorage_ListProducts(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := s.SaveProduct(ctx, &models.Product{ID: id, Name: "Product " + id}); err != nil {
			t.Fatal(err)
		}
	}

	products, err := s.ListProducts(ctx, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(products) != 2 {
		t.Errorf("len=%d, want 2", len(products))
	}
}

func TestSQLiteStorage_KnowledgeRoundtrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	e := &models.KnowledgeEntry{
		ID:      "k1",
		Title:   "Return policy",
		Content: "Returns are accepted within 14 days of delivery.",
		URL:     "https://shop.example/help/returns",
	}
	if err := s.SaveKnowledge(ctx, e); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetKnowledge(ctx, "k1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != e.Title || got.Content != e.Content {
		t.Errorf("got %+v", got)
	}

	if err := s.DeleteKnowledge(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetKnowledge(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err=%v, want ErrNotFound", err)
	}
}
