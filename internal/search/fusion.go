package search

import (
	"sort"

	"github.com/yonagi/tana/internal/keyword"
	"github.com/yonagi/tana/internal/models"
)

// FusedResult holds an entry ID and fused keyword/semantic scores.
type FusedResult struct {
	ID            string
	Score         float64
	KeywordScore  float64
	SemanticScore float64
	Metadata      map[string]string
}

// NormalizeKeywordScores normalizes keyword scores to [0,1] by max.
func NormalizeKeywordScores(results []*keyword.Result) map[string]float64 {
	if len(results) == 0 {
		return make(map[string]float64)
	}
	maxScore := results[0].Score
	for _, r := range results {
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	normalized := make(map[string]float64)
	for _, r := range results {
		if maxScore > 0 {
			normalized[r.ID] = r.Score / maxScore
		} else {
			normalized[r.ID] = 0
		}
	}
	return normalized
}

// Fuse merges keyword scores and semantic matches with weights and returns
// results sorted by fused score, descending. Semantic scores are already in
// [0,1] and used as-is; metadata rides along from the semantic match when
// one exists.
func Fuse(keywordScores map[string]float64, semanticMatches []models.Match, keywordWeight, semanticWeight float64) []*FusedResult {
	scoreMap := make(map[string]*FusedResult)
	for id, score := range keywordScores {
		scoreMap[id] = &FusedResult{
			ID:           id,
			KeywordScore: score,
		}
	}
	for _, m := range semanticMatches {
		if result, exists := scoreMap[m.ID]; exists {
			result.SemanticScore = m.Score
			result.Metadata = m.Metadata
		} else {
			scoreMap[m.ID] = &FusedResult{
				ID:            m.ID,
				SemanticScore: m.Score,
				Metadata:      m.Metadata,
			}
		}
	}
	results := make([]*FusedResult, 0, len(scoreMap))
	for _, result := range scoreMap {
		result.Score = (keywordWeight * result.KeywordScore) + (semanticWeight * result.SemanticScore)
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}
