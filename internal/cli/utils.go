// Package cli provides CLI output helpers for Tana.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/yonagi/tana/internal/models"
	"github.com/yonagi/tana/pkg/utils"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
	// OutputCompact is one result per line.
	OutputCompact OutputFormat = "compact"
)

// ParseOutputFormat validates a format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON, OutputCompact:
		return OutputFormat(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q; use text, compact, or json", s)
	}
}

// WriteSearchResults writes search results to w in the given format.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(response)
	case OutputCompact:
		for _, result := range response.Results {
			fmt.Fprintf(w, "%d\t%.4f\t%s\t%s\n", result.Rank, result.Score, result.ID, resultTitle(result))
		}
		return nil
	default:
		writeSearchResultsText(w, response)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, response *models.SearchResponse) {
	fmt.Fprintf(w, "\nFound %d results in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
			result.Rank, result.Score, result.KeywordScore, result.SemanticScore)
		fmt.Fprintf(w, "ID: %s\n", result.ID)
		if title := resultTitle(result); title != "" {
			fmt.Fprintf(w, "Title: %s\n", title)
		}
		writeMetadata(w, result.Metadata)
		fmt.Fprintln(w)
	}
}

// resultTitle picks a display title from result metadata: product rows carry
// "name", knowledge rows carry "title".
func resultTitle(result *models.SearchResult) string {
	if name := result.Metadata["name"]; name != "" {
		return name
	}
	return result.Metadata["title"]
}

func writeMetadata(w io.Writer, metadata map[string]string) {
	keys := make([]string, 0, len(metadata))
	for k, v := range metadata {
		if v == "" || k == "name" || k == "title" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %s: %s\n", k, utils.Truncate(metadata[k], 120))
	}
}

// WriteStats writes store stats to w in the given format.
func WriteStats(w io.Writer, stats *models.StoreStats, format OutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}
	fmt.Fprintf(w, "total_rows:       %d\n", stats.TotalRows)
	fmt.Fprintf(w, "estimated_bytes:  %d\n", stats.EstimatedBytes)
	fmt.Fprintf(w, "dimensions:       %d\n", stats.Dimensions)
	names := make([]string, 0, len(stats.Tables))
	for name := range stats.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ts := stats.Tables[name]
		fmt.Fprintf(w, "table %-16s rows=%d bytes=%d share=%.2f\n", name, ts.Rows, ts.EstimatedBytes, ts.Share)
	}
	return nil
}
