package models

import "time"

// Product is a catalog product row.
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Price       string    `json:"price" db:"price"`
	SKU         string    `json:"sku" db:"sku"`
	URL         string    `json:"url" db:"url"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// EmbeddingText returns the text embedded for this product.
func (p *Product) EmbeddingText() string {
	text := p.Name
	if p.Category != "" {
		text += "\n" + p.Category
	}
	if p.Description != "" {
		text += "\n" + p.Description
	}
	return text
}

// VectorMetadata returns the product's attributes in the product table shape.
func (p *Product) VectorMetadata() map[string]string {
	return map[string]string{
		"name":     p.Name,
		"category": p.Category,
		"price":    p.Price,
		"sku":      p.SKU,
		"url":      p.URL,
	}
}

// KnowledgeEntry is a knowledge-base row (FAQ answers, manuals, policies).
type KnowledgeEntry struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	URL       string    `json:"url" db:"url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EmbeddingText returns the text embedded for this entry.
func (e *KnowledgeEntry) EmbeddingText() string {
	if e.Title == "" {
		return e.Content
	}
	return e.Title + "\n" + e.Content
}

// VectorMetadata returns the entry's attributes in the knowledge table shape.
func (e *KnowledgeEntry) VectorMetadata() map[string]string {
	return map[string]string{
		"title":   e.Title,
		"content": e.Content,
		"url":     e.URL,
	}
}
