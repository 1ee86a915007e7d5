package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/54b3r/cafebot-go/internal/rag"
)

// EmbeddingCache persists embeddings keyed by model and input text.
// Implementations must be safe for concurrent use.
type EmbeddingCache interface {
	// Lookup returns the cached vector and true, or false on a miss.
	Lookup(ctx context.Context, model, text string) ([]float32, bool, error)
	// Save stores vec for (model, text), replacing any previous entry.
	Save(ctx context.Context, model, text string, vec []float32) error
}

// CacheKey returns the hex SHA-256 of model and text separated by a NUL byte.
func CacheKey(model, text string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup implements EmbeddingCache.
func (s *SQLiteStore) Lookup(ctx context.Context, model, text string) ([]float32, bool, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT vector FROM embedding_cache WHERE key = ?`, CacheKey(model, text),
	).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: cache lookup: %w", err)
	}
	vec, err := rag.DecodeVector(blob)
	if err != nil {
		return nil, false, fmt.Errorf("store: cache decode: %w", err)
	}
	return vec, true, nil
}

// Save implements EmbeddingCache.
func (s *SQLiteStore) Save(ctx context.Context, model, text string, vec []float32) error {
	const q = `
INSERT INTO embedding_cache (key, model, vector, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET vector = excluded.vector, created_at = excluded.created_at`
	if _, err := s.db.ExecContext(ctx, q, CacheKey(model, text), model, rag.EncodeVector(vec), time.Now().Unix()); err != nil {
		return fmt.Errorf("store: cache save: %w", err)
	}
	return nil
}
