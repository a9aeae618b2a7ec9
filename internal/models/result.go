package models

// SearchResult is a single fused search hit.
type SearchResult struct {
	ID            string            `json:"id"`
	Score         float64           `json:"score"`
	KeywordScore  float64           `json:"keyword_score"`
	SemanticScore float64           `json:"semantic_score"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Rank          int               `json:"rank"`
}

// SearchResponse is the response for a search request.
type SearchResponse struct {
	Results   []*SearchResult `json:"results"`
	Total     int             `json:"total"`
	QueryTime int64           `json:"query_time_ms"`
	Query     string          `json:"query"`
}

// TableStats reports one table's share of the store.
type TableStats struct {
	Rows int `json:"rows"`
	// EstimatedBytes is rows times the fixed per-vector byte cost.
	EstimatedBytes int64 `json:"estimated_bytes"`
	// Share is this table's fraction of all rows, in [0,1].
	Share float64 `json:"share"`
}

// StoreStats aggregates row counts across all tables.
type StoreStats struct {
	Tables         map[string]TableStats `json:"tables"`
	TotalRows      int                   `json:"total_rows"`
	EstimatedBytes int64                 `json:"estimated_bytes"`
	Dimensions     int                   `json:"dimensions"`
}

// CacheStats reports embedding cache effectiveness.
type CacheStats struct {
	Hits   uint64 `json:"hits"`
	Misses uint64 `json:"misses"`
	Size   int    `json:"size"`
}

// HealthStatus is the service health report.
type HealthStatus struct {
	Status      string      `json:"status"`
	Initialized bool        `json:"initialized"`
	Tables      int         `json:"tables"`
	Cache       *CacheStats `json:"cache,omitempty"`
	Error       string      `json:"error,omitempty"`
}
