// Package store abstracts the embedded vector database behind a narrow
// interface so the retrieval service can be tested with an in-memory fake.
package store

import (
	"context"
	"errors"
)

// ErrTableNotFound is returned for operations against a table that was
// never created.
var ErrTableNotFound = errors.New("table not found")

// Record is a stored (identifier, vector, metadata) triple.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Match is a search hit with its raw cosine distance, in [0,2].
type Match struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
	Distance float64
}

// Store is the vector database interface: table management, record
// add/delete, and nearest-neighbor search by vector.
type Store interface {
	// EnsureTable creates the table if it does not exist. Idempotent.
	EnsureTable(ctx context.Context, name string) error
	// Add inserts records into the table. Identifiers are not deduplicated
	// here; the caller owns upsert semantics.
	Add(ctx context.Context, table string, records ...Record) error
	// Delete removes records by identifier. Missing identifiers are not an error.
	Delete(ctx context.Context, table string, ids ...string) error
	// Search returns up to k nearest records by cosine distance, ascending.
	// filter is a conjunction of metadata equality clauses; non-matching
	// records are excluded even when they are nearer neighbors.
	Search(ctx context.Context, table string, vector []float32, k int, filter map[string]string) ([]Match, error)
	// Count returns the number of records in the table.
	Count(ctx context.Context, table string) (int, error)
	// Tables lists all existing table names.
	Tables(ctx context.Context) ([]string, error)
	Close() error
}
