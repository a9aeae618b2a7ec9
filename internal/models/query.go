package models

import "fmt"

// VectorQuery is a raw nearest-neighbor request against one table.
type VectorQuery struct {
	Vector []float32 `json:"vector"`
	Limit  int       `json:"limit,omitempty"`
	// Filter is a conjunction of metadata attribute equality clauses.
	Filter map[string]string `json:"filter,omitempty"`
	// Table defaults to the configured default table when empty.
	Table string `json:"table,omitempty"`
}

// UpsertRequest inserts or replaces one vector record by identifier.
type UpsertRequest struct {
	ID       string            `json:"id"`
	Vector   []float32         `json:"vector,omitempty"`
	Text     string            `json:"text,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Table    string            `json:"table,omitempty"`
}

// Validate checks the upsert has an identifier and either a vector or text.
func (r *UpsertRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if len(r.Vector) == 0 && r.Text == "" {
		return fmt.Errorf("either vector or text is required")
	}
	return nil
}

// SearchQuery is a text search request against the catalog.
type SearchQuery struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
	// Table selects the vector table to search ("products" by default).
	Table string `json:"table,omitempty"`
	// Filter restricts semantic matches by metadata attribute equality.
	Filter map[string]string `json:"filter,omitempty"`
	// KeywordWeight and SemanticWeight override the configured fusion
	// weights when either is non-zero.
	KeywordWeight  float64 `json:"keyword_weight,omitempty"`
	SemanticWeight float64 `json:"semantic_weight,omitempty"`
	MinScore       float64 `json:"min_score,omitempty"`
}

// Validate ensures the search query has valid fields. Limit defaulting and
// capping are the search engine's job, driven by its configuration.
func (q *SearchQuery) Validate() error {
	if q.Query == "" {
		return fmt.Errorf("query cannot be empty")
	}
	return nil
}
