package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outcome classifies how a query was resolved.
type Outcome string

const (
	// OutcomeMatched means a question matched and an answer was rendered.
	OutcomeMatched Outcome = "matched"
	// OutcomeNoMatch means nothing in the knowledge base matched.
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeError means resolution failed upstream.
	OutcomeError Outcome = "error"
)

// QueryEntry is one row of the query log.
type QueryEntry struct {
	// Query is the raw user query.
	Query string
	// Outcome is how the query was resolved.
	Outcome Outcome
	// MatchedQuestion is the paraphrase that matched, if any.
	MatchedQuestion string
	// Distance is the match distance; nil when nothing matched.
	Distance *float64
	// CreatedAt is when the entry was written.
	CreatedAt time.Time
}

// QueryLog records answered queries so curators can find gaps in the
// knowledge base. Implementations must be safe for concurrent use.
type QueryLog interface {
	// Record appends one entry. CreatedAt is set by the store.
	Record(ctx context.Context, e QueryEntry) error
	// Recent returns the newest n entries with the given outcome, newest first.
	Recent(ctx context.Context, outcome Outcome, n int) ([]QueryEntry, error)
}

// Record implements QueryLog.
func (s *SQLiteStore) Record(ctx context.Context, e QueryEntry) error {
	const q = `INSERT INTO query_log (query, outcome, matched_question, distance, created_at) VALUES (?, ?, ?, ?, ?)`
	var dist sql.NullFloat64
	if e.Distance != nil {
		dist = sql.NullFloat64{Float64: *e.Distance, Valid: true}
	}
	if _, err := s.db.ExecContext(ctx, q, e.Query, string(e.Outcome), e.MatchedQuestion, dist, time.Now().Unix()); err != nil {
		return fmt.Errorf("store: record query: %w", err)
	}
	return nil
}

// Recent implements QueryLog.
func (s *SQLiteStore) Recent(ctx context.Context, outcome Outcome, n int) ([]QueryEntry, error) {
	const q = `
SELECT query, outcome, matched_question, distance, created_at
FROM   query_log
WHERE  outcome = ?
ORDER  BY created_at DESC, id DESC
LIMIT  ?`

	rows, err := s.db.QueryContext(ctx, q, string(outcome), n)
	if err != nil {
		return nil, fmt.Errorf("store: recent: %w", err)
	}
	defer rows.Close()

	var entries []QueryEntry
	for rows.Next() {
		var (
			e       QueryEntry
			outcome string
			dist    sql.NullFloat64
			ts      int64
		)
		if err := rows.Scan(&e.Query, &outcome, &e.MatchedQuestion, &dist, &ts); err != nil {
			return nil, fmt.Errorf("store: recent scan: %w", err)
		}
		e.Outcome = Outcome(outcome)
		if dist.Valid {
			d := dist.Float64
			e.Distance = &d
		}
		e.CreatedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: recent rows: %w", err)
	}
	return entries, nil
}
