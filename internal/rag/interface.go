// Package rag defines the storage side of question matching: named
// collections of (text, vector, metadata) records, the embedding interface,
// and the concrete backends (Qdrant, embedded SQLite) that satisfy them.
// The matching and encoding layers depend only on these interfaces so they
// never couple to a specific vector store.
package rag

import (
	"context"
	"errors"
)

// ErrNotFound is returned by keyed lookups when no record has the given id.
var ErrNotFound = errors.New("rag: record not found")

// Record is one stored unit: a text, its embedding, and flat string metadata.
type Record struct {
	// ID is unique within a collection.
	ID string `json:"id"`

	// Document is the raw text that was embedded.
	Document string `json:"document"`

	// Embedding is the dense vector for Document. Backends may leave it nil
	// on reads where the vector is not needed.
	Embedding []float32 `json:"-"`

	// Metadata holds primitive-only key/value pairs. Structured values must be
	// serialized by the caller before they reach the store.
	Metadata map[string]string `json:"metadata"`
}

// Hit is a Record returned from a similarity query together with its distance.
type Hit struct {
	Record

	// Distance is non-negative; lower means more similar.
	Distance float64 `json:"distance"`
}

// Collection is a named namespace of records.
// Implementations must be safe to call from multiple goroutines.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Insert writes records as one batch. Backends that support transactions
	// make the whole batch visible together or not at all.
	Insert(ctx context.Context, records []Record) error

	// Query returns up to topK records nearest to vector, ordered by
	// ascending distance.
	Query(ctx context.Context, vector []float32, topK int) ([]Hit, error)

	// GetAll returns every record in the collection in insertion order where
	// the backend preserves one. Embeddings are not populated.
	GetAll(ctx context.Context) ([]Record, error)
}

// Getter is implemented by collections that support direct lookup by record id.
type Getter interface {
	// Get returns the record with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)
}

// Store opens collections on a vector store backend.
// Implementations must be safe to call from multiple goroutines.
type Store interface {
	// Collection returns the named collection, creating it if it does not exist.
	Collection(ctx context.Context, name string) (Collection, error)

	// Name identifies the backend in logs and readiness checks.
	Name() string

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}

// Embedder converts text into dense vector embeddings.
// Implementations must be safe to call from multiple goroutines.
type Embedder interface {
	// Embed converts a single text into its embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch converts a batch of texts. The returned slice is parallel to
	// the input slice.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
