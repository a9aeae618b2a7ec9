// Package keyword provides keyword (BM25) indexing and search over the catalog.
package keyword

import "context"

// Doc is what gets keyword-indexed for a catalog entity. SKU is indexed
// untokenized so exact SKU lookups match.
type Doc struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	Body  string `json:"body"`
	SKU   string `json:"sku"`
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Score float64
}

// Index defines keyword search operations.
type Index interface {
	Index(ctx context.Context, id string, doc *Doc) error
	Search(ctx context.Context, query string, limit int) ([]*Result, error)
	Delete(ctx context.Context, id string) error
	// DocCount returns the total number of documents in the index.
	DocCount() (uint64, error)
	Close() error
}
