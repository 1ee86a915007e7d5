package rag

import (
	"fmt"
	"os"
	"strconv"
)

// DefaultSQLitePath is used by the sqlite backend when VECTOR_SQLITE_PATH is unset.
const DefaultSQLitePath = "cafebot-vectors.db"

// NewStoreFromEnv constructs the configured vector store backend.
//
//	VECTOR_BACKEND      = qdrant | sqlite (default: qdrant when QDRANT_HOST is set, else sqlite)
//	VECTOR_SQLITE_PATH  = database file for the sqlite backend
//	QDRANT_HOST, QDRANT_PORT, QDRANT_API_KEY, QDRANT_TLS
//
// vectorSize is only used when the Qdrant backend has to create a collection.
func NewStoreFromEnv(vectorSize int) (Store, error) {
	backend := os.Getenv("VECTOR_BACKEND")
	if backend == "" {
		backend = "sqlite"
		if os.Getenv("QDRANT_HOST") != "" {
			backend = "qdrant"
		}
	}

	switch backend {
	case "sqlite":
		path := os.Getenv("VECTOR_SQLITE_PATH")
		if path == "" {
			path = DefaultSQLitePath
		}
		s, err := OpenSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil

	case "qdrant":
		port := 6334
		if v := os.Getenv("QDRANT_PORT"); v != "" {
			p, err := strconv.Atoi(v)
			if err != nil {
				return nil, fmt.Errorf("rag: invalid QDRANT_PORT %q: %w", v, err)
			}
			port = p
		}
		if vectorSize <= 0 {
			return nil, fmt.Errorf("rag: qdrant backend needs a positive vector size, got %d", vectorSize)
		}
		s, err := NewQdrantStore(&QdrantConfig{
			Host:       os.Getenv("QDRANT_HOST"),
			Port:       port,
			VectorSize: uint64(vectorSize),
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
		})
		if err != nil {
			return nil, err
		}
		return s, nil

	default:
		return nil, fmt.Errorf("rag: unknown VECTOR_BACKEND %q; valid values: qdrant, sqlite", backend)
	}
}
