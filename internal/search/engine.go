// Package search provides the hybrid (keyword + semantic) search engine.
package search

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yonagi/tana/internal/config"
	"github.com/yonagi/tana/internal/embedding"
	"github.com/yonagi/tana/internal/keyword"
	"github.com/yonagi/tana/internal/models"
	"github.com/yonagi/tana/internal/vectordb"
)

// Engine runs hybrid search over the catalog. The embedder may be nil; the
// engine then degrades to keyword-only search regardless of weights.
type Engine struct {
	embedder     embedding.Embedder
	vectors      *vectordb.Service
	keywordIndex keyword.Index
	config       *config.SearchConfig
}

// NewEngine creates a search engine with the given dependencies.
func NewEngine(embedder embedding.Embedder, vectors *vectordb.Service, keywordIndex keyword.Index, cfg *config.SearchConfig) *Engine {
	return &Engine{
		embedder:     embedder,
		vectors:      vectors,
		keywordIndex: keywordIndex,
		config:       cfg,
	}
}

// resolveLimit applies the configured default and cap to a requested result
// count.
func (e *Engine) resolveLimit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = e.config.DefaultLimit
		if limit <= 0 {
			limit = 10
		}
	}
	maxLimit := e.config.MaxLimit
	if maxLimit <= 0 {
		maxLimit = 100
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

// Search runs keyword and semantic retrieval concurrently and fuses the
// candidates by weighted score.
func (e *Engine) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	startTime := time.Now()
	if err := query.Validate(); err != nil {
		return nil, err
	}
	keywordWeight := query.KeywordWeight
	semanticWeight := query.SemanticWeight
	if keywordWeight == 0 && semanticWeight == 0 {
		keywordWeight = e.config.KeywordWeight
		semanticWeight = e.config.SemanticWeight
	}
	if e.embedder == nil {
		keywordWeight, semanticWeight = 1, 0
	}
	topK := e.config.TopKCandidates
	if topK <= 0 {
		topK = 50
	}
	limit := e.resolveLimit(query.Limit)

	var (
		keywordResults  []*keyword.Result
		semanticMatches []models.Match
		errChan         = make(chan error, 2)
		wg              sync.WaitGroup
	)

	if keywordWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := e.keywordIndex.Search(ctx, query.Query, topK)
			if err != nil {
				errChan <- fmt.Errorf("keyword search failed: %w", err)
				return
			}
			keywordResults = results
		}()
	}

	if semanticWeight > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			queryEmbedding, err := e.embedder.Embed(ctx, query.Query)
			if err != nil {
				errChan <- fmt.Errorf("embedding failed: %w", err)
				return
			}
			matches, err := e.vectors.Query(ctx, &models.VectorQuery{
				Vector: queryEmbedding,
				Limit:  topK,
				Filter: query.Filter,
				Table:  query.Table,
			})
			if err != nil {
				errChan <- fmt.Errorf("vector search failed: %w", err)
				return
			}
			semanticMatches = matches
		}()
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}

	keywordScores := NormalizeKeywordScores(keywordResults)
	fusedResults := Fuse(keywordScores, semanticMatches, keywordWeight, semanticWeight)

	minScore := query.MinScore
	if minScore == 0 {
		minScore = e.config.MinScore
	}
	if minScore > 0 {
		filtered := fusedResults[:0]
		for _, r := range fusedResults {
			if r.Score >= minScore {
				filtered = append(filtered, r)
			}
		}
		fusedResults = filtered
	}

	total := len(fusedResults)
	if len(fusedResults) > limit {
		fusedResults = fusedResults[:limit]
	}

	response := &models.SearchResponse{
		Results:   make([]*models.SearchResult, 0, len(fusedResults)),
		Total:     total,
		QueryTime: time.Since(startTime).Milliseconds(),
		Query:     query.Query,
	}
	for i, fused := range fusedResults {
		response.Results = append(response.Results, &models.SearchResult{
			ID:            fused.ID,
			Score:         fused.Score,
			KeywordScore:  fused.KeywordScore,
			SemanticScore: fused.SemanticScore,
			Metadata:      fused.Metadata,
			Rank:          i + 1,
		})
	}
	return response, nil
}
