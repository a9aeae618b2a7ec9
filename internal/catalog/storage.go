// Package catalog persists products and knowledge entries and keeps the
// vector and keyword indexes in sync with them.
package catalog

import (
	"context"
	"errors"

	"github.com/yonagi/tana/internal/models"
)

// ErrNotFound is returned when a catalog row does not exist.
var ErrNotFound = errors.New("catalog entry not found")

// Storage defines catalog persistence operations.
type Storage interface {
	SaveProduct(ctx context.Context, p *models.Product) error
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context, offset, limit int) ([]*models.Product, error)
	CountProducts(ctx context.Context) (int64, error)

	SaveKnowledge(ctx context.Context, e *models.KnowledgeEntry) error
	GetKnowledge(ctx context.Context, id string) (*models.KnowledgeEntry, error)
	DeleteKnowledge(ctx context.Context, id string) error
	ListKnowledge(ctx context.Context, offset, limit int) ([]*models.KnowledgeEntry, error)
	CountKnowledge(ctx context.Context) (int64, error)

	Close() error
}
