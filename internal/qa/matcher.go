package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/54b3r/cafebot-go/internal/rag"
)

const (
	// DefaultTopK is the requested result count when callers pass 0.
	DefaultTopK = 5

	// DefaultOverFetch multiplies topK for the nearest-neighbour query, since
	// answer records compete with question records for the same slots. It is
	// a heuristic, not a guarantee that enough questions survive filtering.
	DefaultOverFetch = 2

	// MaxTopK caps the requested result count.
	MaxTopK = 100

	// ScanWarnThreshold is the collection size above which resolving an
	// answer by full scan is logged as a warning.
	ScanWarnThreshold = 5000
)

// MatcherConfig configures a Matcher.
type MatcherConfig struct {
	// Embedder embeds queries. Required.
	Embedder rag.Embedder
	// DefaultTopK applies when Match is called with topK <= 0.
	DefaultTopK int
	// OverFetch multiplies topK for the vector query.
	OverFetch int
	// Logger receives data-integrity warnings. Defaults to slog.Default().
	Logger *slog.Logger
}

// Matcher resolves queries to answers by two-hop nearest-neighbour lookup.
// It holds no per-call state and is safe for concurrent use.
type Matcher struct {
	embedder    rag.Embedder
	defaultTopK int
	overFetch   int
	log         *slog.Logger
}

// NewMatcher constructs a Matcher.
func NewMatcher(cfg MatcherConfig) (*Matcher, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("qa: embedder must not be nil")
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = DefaultTopK
	}
	if cfg.OverFetch <= 0 {
		cfg.OverFetch = DefaultOverFetch
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Matcher{
		embedder:    cfg.Embedder,
		defaultTopK: cfg.DefaultTopK,
		overFetch:   cfg.OverFetch,
		log:         cfg.Logger,
	}, nil
}

// Match embeds query, finds the closest question record in coll, and returns
// its linked answer. The result holds at most one Answer; an empty result
// means no match and is not an error. topK is clamped to MaxTopK.
func (m *Matcher) Match(ctx context.Context, coll rag.Collection, query string, topK int) ([]Answer, error) {
	if topK <= 0 {
		topK = m.defaultTopK
	}
	topK = min(topK, MaxTopK)

	vec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("qa: embed query: %w", err)
	}

	hits, err := coll.Query(ctx, vec, topK*m.overFetch)
	if err != nil {
		return nil, fmt.Errorf("qa: query %q: %w", coll.Name(), err)
	}

	questions := make([]rag.Hit, 0, len(hits))
	for _, h := range hits {
		if linkedAnswerID(h.Metadata) != "" {
			questions = append(questions, h)
		}
	}
	if len(questions) == 0 {
		return nil, nil
	}
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Distance < questions[j].Distance })

	best := questions[0]
	answerID := linkedAnswerID(best.Metadata)

	rec, found, err := m.findAnswer(ctx, coll, answerID)
	if err != nil {
		return nil, err
	}
	if !found {
		m.log.Warn("qa: question references a missing answer",
			slog.String("collection", coll.Name()),
			slog.String("question_id", best.ID),
			slog.String("answer_id", answerID),
		)
		return nil, nil
	}

	body, err := decodeAnswer(rec)
	if errors.Is(err, errUnknownAnswerType) {
		m.log.Warn("qa: answer has an unknown type",
			slog.String("collection", coll.Name()),
			slog.String("answer_id", answerID),
			slog.String("answer_type", rec.Metadata[metaAnswerType]),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return []Answer{{
		Body:            body,
		Distance:        best.Distance,
		MatchedQuestion: best.Document,
	}}, nil
}

// findAnswer resolves the answer record by id, directly when the collection
// supports keyed lookup and by full scan otherwise.
func (m *Matcher) findAnswer(ctx context.Context, coll rag.Collection, id string) (rag.Record, bool, error) {
	if g, ok := coll.(rag.Getter); ok {
		rec, err := g.Get(ctx, id)
		if errors.Is(err, rag.ErrNotFound) {
			return rag.Record{}, false, nil
		}
		if err != nil {
			return rag.Record{}, false, fmt.Errorf("qa: get answer %q: %w", id, err)
		}
		return rec, isAnswer(rec, id), nil
	}

	all, err := coll.GetAll(ctx)
	if err != nil {
		return rag.Record{}, false, fmt.Errorf("qa: scan %q: %w", coll.Name(), err)
	}
	if len(all) > ScanWarnThreshold {
		m.log.Warn("qa: resolving answer by full collection scan",
			slog.String("collection", coll.Name()),
			slog.Int("records", len(all)),
		)
	}
	for _, rec := range all {
		if isAnswer(rec, id) {
			return rec, true, nil
		}
	}
	return rag.Record{}, false, nil
}
