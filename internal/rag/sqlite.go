package rag

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/viant/vec/search"
	_ "modernc.org/sqlite" // register the pure-Go SQLite driver
)

// SQLiteStore is an embedded Store for single-node deployments and tests.
// Vectors are kept as little-endian BLOBs and searched by brute-force cosine
// distance, which is adequate for knowledge bases of a few thousand records.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at path and ensures the
// schema exists. Use ":memory:" for an ephemeral store.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite vectors: open %s: %w", path, err)
	}
	// Single writer; also keeps ":memory:" on one connection.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS vector_collections (
    name       TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
CREATE TABLE IF NOT EXISTS vector_records (
    seq        INTEGER PRIMARY KEY AUTOINCREMENT,
    collection TEXT NOT NULL REFERENCES vector_collections(name),
    id         TEXT NOT NULL,
    document   TEXT NOT NULL,
    meta       TEXT NOT NULL,
    embedding  BLOB NOT NULL,
    UNIQUE (collection, id)
);
CREATE INDEX IF NOT EXISTS idx_vector_records_collection ON vector_records(collection, seq);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("sqlite vectors: migrate: %w", err)
	}
	return nil
}

// Name implements Store.
func (s *SQLiteStore) Name() string { return "sqlite" }

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Collection registers name if needed and returns its handle.
func (s *SQLiteStore) Collection(ctx context.Context, name string) (Collection, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO vector_collections(name) VALUES(?) ON CONFLICT(name) DO NOTHING`, name,
	); err != nil {
		return nil, fmt.Errorf("sqlite vectors: create collection %q: %w", name, err)
	}
	return &sqliteCollection{db: s.db, name: name}, nil
}

type sqliteCollection struct {
	db   *sql.DB
	name string
}

func (c *sqliteCollection) Name() string { return c.name }

// Insert writes the batch in a single transaction.
func (c *sqliteCollection) Insert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite vectors: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO vector_records(collection, id, document, meta, embedding) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("sqlite vectors: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if r.ID == "" {
			return fmt.Errorf("sqlite vectors: record id must be set")
		}
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("sqlite vectors: encode metadata for %q: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.name, r.ID, r.Document, string(meta), EncodeVector(r.Embedding)); err != nil {
			return fmt.Errorf("sqlite vectors: insert %q: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite vectors: commit: %w", err)
	}
	return nil
}

// Query scores every record in the collection and returns the topK nearest.
// Ties keep insertion order.
func (c *sqliteCollection) Query(ctx context.Context, vector []float32, topK int) ([]Hit, error) {
	if topK <= 0 {
		return nil, nil
	}
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, document, meta, embedding FROM vector_records WHERE collection = ? ORDER BY seq`, c.name)
	if err != nil {
		return nil, fmt.Errorf("sqlite vectors: query %q: %w", c.name, err)
	}
	defer rows.Close()

	q := search.Float32s(vector)
	qMag := q.Magnitude()

	var hits []Hit
	for rows.Next() {
		var (
			h    Hit
			meta string
			blob []byte
		)
		if err := rows.Scan(&h.ID, &h.Document, &meta, &blob); err != nil {
			return nil, fmt.Errorf("sqlite vectors: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &h.Metadata); err != nil {
			return nil, fmt.Errorf("sqlite vectors: decode metadata for %q: %w", h.ID, err)
		}
		emb, err := DecodeVector(blob)
		if err != nil {
			return nil, err
		}
		h.Distance = cosineDistance(q, qMag, emb)
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite vectors: rows: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Distance < hits[j].Distance })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// cosineDistance returns 1 - cosine similarity, clamped to [0, 2].
// Vectors of different length score 2 and a zero vector scores 1.
func cosineDistance(q search.Float32s, qMag float32, v []float32) float64 {
	if len(v) != len(q) {
		return 2
	}
	if qMag == 0 || search.Float32s(v).Magnitude() == 0 {
		return 1
	}
	return min(max(float64(q.CosineDistance(v)), 0), 2)
}

// GetAll returns every record in insertion order.
func (c *sqliteCollection) GetAll(ctx context.Context) ([]Record, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, document, meta FROM vector_records WHERE collection = ? ORDER BY seq`, c.name)
	if err != nil {
		return nil, fmt.Errorf("sqlite vectors: get all %q: %w", c.name, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			meta string
		)
		if err := rows.Scan(&r.ID, &r.Document, &meta); err != nil {
			return nil, fmt.Errorf("sqlite vectors: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
			return nil, fmt.Errorf("sqlite vectors: decode metadata for %q: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get looks up one record by id.
func (c *sqliteCollection) Get(ctx context.Context, id string) (Record, error) {
	var (
		r    Record
		meta string
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT id, document, meta FROM vector_records WHERE collection = ? AND id = ?`, c.name, id,
	).Scan(&r.ID, &r.Document, &meta)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("sqlite vectors: %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("sqlite vectors: get %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(meta), &r.Metadata); err != nil {
		return Record{}, fmt.Errorf("sqlite vectors: decode metadata for %q: %w", id, err)
	}
	return r, nil
}

var (
	_ Store      = (*SQLiteStore)(nil)
	_ Collection = (*sqliteCollection)(nil)
	_ Getter     = (*sqliteCollection)(nil)
)
