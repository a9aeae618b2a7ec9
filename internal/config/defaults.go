package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8090
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = "/usr/local/var/tana/data/vectors"
	}
	if cfg.Store.DefaultTable == "" {
		cfg.Store.DefaultTable = "products"
	}
	if cfg.Store.Dimensions == 0 {
		cfg.Store.Dimensions = 3072
	}
	if cfg.Store.Tables == nil {
		cfg.Store.Tables = map[string]string{
			"products":  "product",
			"knowledge": "knowledge",
		}
	}
	if cfg.Catalog.DatabasePath == "" {
		cfg.Catalog.DatabasePath = "/usr/local/var/tana/data/db/catalog.db"
	}
	if cfg.Catalog.KeywordIndexPath == "" {
		cfg.Catalog.KeywordIndexPath = "/usr/local/var/tana/data/indices/keyword"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-large"
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = cfg.Store.Dimensions
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.CacheTTL == 0 {
		cfg.Embedding.CacheTTL = 24 * time.Hour
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TopKCandidates == 0 {
		cfg.Search.TopKCandidates = 50
	}
	if cfg.Search.KeywordWeight == 0 && cfg.Search.SemanticWeight == 0 {
		cfg.Search.KeywordWeight = 0.3
		cfg.Search.SemanticWeight = 0.7
	}
	if cfg.Import.Extensions == nil {
		cfg.Import.Extensions = []string{".xlsx", ".pdf", ".docx", ".odt", ".txt", ".md"}
	}
}
