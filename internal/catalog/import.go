package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/yonagi/tana/internal/models"
)

// productColumns maps recognized xlsx header names to product fields.
var productColumns = map[string]string{
	"id":          "id",
	"name":        "name",
	"product":     "name",
	"description": "description",
	"category":    "category",
	"price":       "price",
	"sku":         "sku",
	"url":         "url",
	"link":        "url",
}

// ImportFile ingests a file by extension: .xlsx sheets become products, text
// documents become knowledge entries. Returns the number of entries saved.
func (in *Ingestor) ImportFile(ctx context.Context, path string) (int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return in.ImportProductsXLSX(ctx, path)
	default:
		return in.ImportKnowledgeFile(ctx, path)
	}
}

// ImportProductsXLSX reads the first sheet of an xlsx workbook. The first row
// is a header naming the columns (name, description, category, price, sku,
// url); every following row becomes one product. Rows without a name are
// skipped. Products keep their row SKU as identifier when present, so
// re-importing the same workbook updates rather than duplicates.
func (in *Ingestor) ImportProductsXLSX(ctx context.Context, path string) (int, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return 0, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return 0, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	if len(rows) < 2 {
		return 0, nil
	}

	// Header row → column index per field.
	fields := make(map[int]string)
	for i, cell := range rows[0] {
		if field, ok := productColumns[strings.ToLower(strings.TrimSpace(cell))]; ok {
			fields[i] = field
		}
	}
	if len(fields) == 0 {
		return 0, fmt.Errorf("no recognized columns in header row")
	}

	count := 0
	for rowNum, row := range rows[1:] {
		p := &models.Product{}
		for i, cell := range row {
			cell = strings.TrimSpace(cell)
			switch fields[i] {
			case "id":
				p.ID = cell
			case "name":
				p.Name = cell
			case "description":
				p.Description = cell
			case "category":
				p.Category = cell
			case "price":
				p.Price = cell
			case "sku":
				p.SKU = cell
			case "url":
				p.URL = cell
			}
		}
		if p.Name == "" {
			continue
		}
		if p.ID == "" && p.SKU != "" {
			p.ID = p.SKU
		}
		if err := in.SaveProduct(ctx, p); err != nil {
			return count, fmt.Errorf("row %d: %w", rowNum+2, err)
		}
		count++
	}
	return count, nil
}

// ImportKnowledgeFile extracts text from a document file and saves it as one
// knowledge entry titled after the file name. The entry identifier is derived
// from the file path, so re-importing the same file updates in place.
func (in *Ingestor) ImportKnowledgeFile(ctx context.Context, path string) (int, error) {
	content, err := in.extract.Extract(path)
	if err != nil {
		return 0, fmt.Errorf("failed to extract %s: %w", path, err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, nil
	}

	base := filepath.Base(path)
	entry := &models.KnowledgeEntry{
		ID:      fileID(path),
		Title:   strings.TrimSuffix(base, filepath.Ext(base)),
		Content: content,
	}
	if err := in.SaveKnowledge(ctx, entry); err != nil {
		return 0, err
	}
	return 1, nil
}

// fileID returns a stable identifier for an imported file path.
func fileID(path string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(path)))
	return "file-" + hex.EncodeToString(sum[:8])
}
