// Package models defines core data structures for vector records, catalog
// entities, queries, and search results.
package models

// TableKind selects the fixed metadata attribute shape of a table.
type TableKind string

const (
	// KindProduct tables carry name, category, price, sku, and url attributes.
	KindProduct TableKind = "product"
	// KindKnowledge tables carry title, content, and url attributes.
	KindKnowledge TableKind = "knowledge"
)

// productAttrs and knowledgeAttrs are the full attribute sets per kind.
// Every record in a table carries the complete set; unused attributes are "".
var (
	productAttrs   = []string{"name", "category", "price", "sku", "url"}
	knowledgeAttrs = []string{"title", "content", "url"}
)

// Attributes returns the attribute names for the kind, in stable order.
func (k TableKind) Attributes() []string {
	switch k {
	case KindKnowledge:
		return knowledgeAttrs
	default:
		return productAttrs
	}
}

// Valid reports whether k names a known attribute shape.
func (k TableKind) Valid() bool {
	return k == KindProduct || k == KindKnowledge
}

// NormalizeMetadata returns a copy of md restricted to the kind's attribute
// set, with missing attributes filled in as empty strings. Unknown keys are
// dropped so all records in a table share one shape.
func (k TableKind) NormalizeMetadata(md map[string]string) map[string]string {
	out := make(map[string]string, len(k.Attributes()))
	for _, attr := range k.Attributes() {
		out[attr] = md[attr]
	}
	return out
}

// Match is a single similarity query hit.
type Match struct {
	ID string `json:"id"`
	// Score is the normalized similarity in [0,1]; 1 means zero distance.
	Score    float64           `json:"score"`
	Vector   []float32         `json:"vector,omitempty"`
	Metadata map[string]string `json:"metadata"`
}
