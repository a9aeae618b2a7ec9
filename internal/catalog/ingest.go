package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yonagi/tana/internal/embedding"
	"github.com/yonagi/tana/internal/extract"
	"github.com/yonagi/tana/internal/keyword"
	"github.com/yonagi/tana/internal/models"
	"github.com/yonagi/tana/internal/vectordb"
)

// Ingestor writes catalog entries through to storage, the vector store and
// the keyword index, so a saved entry is immediately searchable.
//
// The embedder may be nil (no API key configured); entries are then stored
// and keyword-indexed but skipped for semantic search.
type Ingestor struct {
	storage  Storage
	embedder embedding.Embedder
	vectors  *vectordb.Service
	keyword  keyword.Index
	extract  *extract.Extractor
	logger   *zap.Logger

	productTable   string
	knowledgeTable string
}

// NewIngestor creates an Ingestor. productTable and knowledgeTable name the
// vector tables the two entity kinds are upserted into.
func NewIngestor(storage Storage, embedder embedding.Embedder, vectors *vectordb.Service, kw keyword.Index, productTable, knowledgeTable string, logger *zap.Logger) *Ingestor {
	if productTable == "" {
		productTable = "products"
	}
	if knowledgeTable == "" {
		knowledgeTable = "knowledge"
	}
	return &Ingestor{
		storage:        storage,
		embedder:       embedder,
		vectors:        vectors,
		keyword:        kw,
		extract:        extract.NewExtractor(),
		logger:         logger,
		productTable:   productTable,
		knowledgeTable: knowledgeTable,
	}
}

// SaveProduct persists a product and indexes it. A missing ID is assigned.
func (in *Ingestor) SaveProduct(ctx context.Context, p *models.Product) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.Name == "" {
		return fmt.Errorf("product name is required")
	}

	if err := in.storage.SaveProduct(ctx, p); err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}

	if err := in.keyword.Index(ctx, p.ID, &keyword.Doc{
		Kind:  string(models.KindProduct),
		Title: p.Name,
		Body:  p.Description + " " + p.Category,
		SKU:   p.SKU,
	}); err != nil {
		return fmt.Errorf("failed to index product: %w", err)
	}

	if err := in.upsertVector(ctx, in.productTable, p.ID, p.EmbeddingText(), p.VectorMetadata()); err != nil {
		return err
	}

	in.logger.Debug("Product ingested", zap.String("id", p.ID), zap.String("name", p.Name))
	return nil
}

// DeleteProduct removes a product from storage and both indexes.
func (in *Ingestor) DeleteProduct(ctx context.Context, id string) error {
	if err := in.storage.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if err := in.keyword.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to deindex product: %w", err)
	}
	if err := in.vectors.Delete(ctx, id, in.productTable); err != nil {
		return fmt.Errorf("failed to delete product vector: %w", err)
	}
	return nil
}

// SaveKnowledge persists a knowledge entry and indexes it. A missing ID is assigned.
func (in *Ingestor) SaveKnowledge(ctx context.Context, e *models.KnowledgeEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Content == "" {
		return fmt.Errorf("knowledge content is required")
	}

	if err := in.storage.SaveKnowledge(ctx, e); err != nil {
		return fmt.Errorf("failed to save knowledge entry: %w", err)
	}

	if err := in.keyword.Index(ctx, e.ID, &keyword.Doc{
		Kind:  string(models.KindKnowledge),
		Title: e.Title,
		Body:  e.Content,
	}); err != nil {
		return fmt.Errorf("failed to index knowledge entry: %w", err)
	}

	if err := in.upsertVector(ctx, in.knowledgeTable, e.ID, e.EmbeddingText(), e.VectorMetadata()); err != nil {
		return err
	}

	in.logger.Debug("Knowledge entry ingested", zap.String("id", e.ID), zap.String("title", e.Title))
	return nil
}

// DeleteKnowledge removes a knowledge entry from storage and both indexes.
func (in *Ingestor) DeleteKnowledge(ctx context.Context, id string) error {
	if err := in.storage.DeleteKnowledge(ctx, id); err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}
	if err := in.keyword.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to deindex knowledge entry: %w", err)
	}
	if err := in.vectors.Delete(ctx, id, in.knowledgeTable); err != nil {
		return fmt.Errorf("failed to delete knowledge vector: %w", err)
	}
	return nil
}

// Storage exposes the underlying catalog storage for read paths.
func (in *Ingestor) Storage() Storage {
	return in.storage
}

func (in *Ingestor) upsertVector(ctx context.Context, table, id, text string, metadata map[string]string) error {
	if in.embedder == nil {
		in.logger.Debug("Embedder unavailable, skipping vector upsert", zap.String("id", id))
		return nil
	}
	vec, err := in.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("failed to embed entry %s: %w", id, err)
	}
	req := &models.UpsertRequest{ID: id, Vector: vec, Metadata: metadata, Table: table}
	if err := in.vectors.Upsert(ctx, req); err != nil {
		return fmt.Errorf("failed to upsert vector for %s: %w", id, err)
	}
	return nil
}
