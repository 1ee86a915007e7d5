// Package chatbot is the query and ingestion facade used by the HTTP server,
// the CLI and the MCP server. A query runs as an eino chain of two nodes:
// match (embed + two-hop lookup) and render (dispatch to a reply string), so
// any globally registered eino callback handler traces both steps.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/54b3r/cafebot-go/internal/logging"
	"github.com/54b3r/cafebot-go/internal/qa"
	"github.com/54b3r/cafebot-go/internal/rag"
	"github.com/54b3r/cafebot-go/internal/store"
)

const (
	// DefaultCollection holds the cafe knowledge base.
	DefaultCollection = "chatbot_data"
	// DefaultQueryTimeout bounds embed + query + scan for one Ask.
	DefaultQueryTimeout = 15 * time.Second
)

// User-facing fallbacks.
const (
	NoMatchReply = "죄송합니다. 질문을 이해하지 못했습니다."
	ErrorReply   = "죄송합니다. 오류가 발생했습니다."
)

// ErrEmptyQuery is returned by Retrieve for a blank query.
var ErrEmptyQuery = errors.New("chatbot: query must not be empty")

// Reply is the answer to one user query.
type Reply struct {
	Answer          string   `json:"answer"`
	MatchedQuestion string   `json:"matchedQuestion,omitempty"`
	Distance        *float64 `json:"distance,omitempty"`
}

// Renderer turns a resolved answer into the reply text.
type Renderer interface {
	Render(ctx context.Context, a qa.Answer) string
}

// Observer receives per-query outcomes, e.g. for metrics.
type Observer interface {
	ObserveQuery(outcome store.Outcome, distance *float64)
}

// Config holds the dependencies of a Service.
type Config struct {
	// Collections resolves collection handles. Required.
	Collections *rag.Collections
	// Matcher resolves queries. Required.
	Matcher *qa.Matcher
	// Encoder builds records for ingestion. Required.
	Encoder *qa.Encoder
	// Renderer renders matched answers. Required.
	Renderer Renderer
	// Collection is the collection Ask queries. Defaults to DefaultCollection.
	Collection string
	// TopK is passed to the matcher; 0 uses the matcher default.
	TopK int
	// QueryTimeout bounds each Ask. Defaults to DefaultQueryTimeout.
	QueryTimeout time.Duration
	// QueryLog, if set, receives one entry per Ask.
	QueryLog store.QueryLog
	// Observer, if set, receives one outcome per Ask.
	Observer Observer
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// outcome is the chain output: the reply plus how it was produced.
type outcome struct {
	reply   Reply
	outcome store.Outcome
}

// Service answers queries and ingests QA facts. It is safe for concurrent use.
type Service struct {
	colls      *rag.Collections
	matcher    *qa.Matcher
	encoder    *qa.Encoder
	collection string
	topK       int
	timeout    time.Duration
	queryLog   store.QueryLog
	observer   Observer
	log        *slog.Logger
	chain      compose.Runnable[string, outcome]
}

// New validates cfg and compiles the query chain.
func New(ctx context.Context, cfg Config) (*Service, error) {
	switch {
	case cfg.Collections == nil:
		return nil, fmt.Errorf("chatbot: Collections must not be nil")
	case cfg.Matcher == nil:
		return nil, fmt.Errorf("chatbot: Matcher must not be nil")
	case cfg.Encoder == nil:
		return nil, fmt.Errorf("chatbot: Encoder must not be nil")
	case cfg.Renderer == nil:
		return nil, fmt.Errorf("chatbot: Renderer must not be nil")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = DefaultQueryTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Service{
		colls:      cfg.Collections,
		matcher:    cfg.Matcher,
		encoder:    cfg.Encoder,
		collection: cfg.Collection,
		topK:       cfg.TopK,
		timeout:    cfg.QueryTimeout,
		queryLog:   cfg.QueryLog,
		observer:   cfg.Observer,
		log:        cfg.Logger,
	}

	chain := compose.NewChain[string, outcome]()
	chain.
		AppendLambda(compose.InvokableLambda(s.match), compose.WithNodeName("match")).
		AppendLambda(compose.InvokableLambda(withRenderer(cfg.Renderer)), compose.WithNodeName("render"))

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("chatbot: compile query chain: %w", err)
	}
	s.chain = runnable
	return s, nil
}

// Collection returns the name of the collection Ask queries.
func (s *Service) Collection() string { return s.collection }

// Ask answers query. It never fails: no match and upstream errors both
// produce a fixed apology in Reply.Answer.
func (s *Service) Ask(ctx context.Context, query string) Reply {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	log := logging.FromContext(ctx)
	res, err := s.chain.Invoke(ctx, query)
	if err != nil {
		log.Error("chatbot: query failed",
			slog.String("collection", s.collection),
			slog.String("error", err.Error()),
		)
		res = outcome{reply: Reply{Answer: ErrorReply}, outcome: store.OutcomeError}
	}

	s.record(ctx, query, res)
	return res.reply
}

// match is the first chain node.
func (s *Service) match(ctx context.Context, query string) ([]qa.Answer, error) {
	coll, err := s.colls.Get(ctx, s.collection)
	if err != nil {
		return nil, err
	}
	return s.matcher.Match(ctx, coll, query, s.topK)
}

// withRenderer builds the second chain node.
func withRenderer(r Renderer) func(context.Context, []qa.Answer) (outcome, error) {
	return func(ctx context.Context, answers []qa.Answer) (outcome, error) {
		if len(answers) == 0 {
			return outcome{reply: Reply{Answer: NoMatchReply}, outcome: store.OutcomeNoMatch}, nil
		}
		best := answers[0]
		dist := best.Distance
		return outcome{
			reply: Reply{
				Answer:          r.Render(ctx, best),
				MatchedQuestion: best.MatchedQuestion,
				Distance:        &dist,
			},
			outcome: store.OutcomeMatched,
		}, nil
	}
}

func (s *Service) record(ctx context.Context, query string, res outcome) {
	if s.observer != nil {
		s.observer.ObserveQuery(res.outcome, res.reply.Distance)
	}
	if s.queryLog == nil {
		return
	}
	// The query deadline may already have passed; the log write is independent of it.
	ctx = context.WithoutCancel(ctx)
	err := s.queryLog.Record(ctx, store.QueryEntry{
		Query:           query,
		Outcome:         res.outcome,
		MatchedQuestion: res.reply.MatchedQuestion,
		Distance:        res.reply.Distance,
	})
	if err != nil {
		logging.FromContext(ctx).Warn("chatbot: failed to record query", slog.String("error", err.Error()))
	}
}

// Retrieve runs the matcher against an arbitrary collection and returns the
// raw answers without rendering. Errors are returned to the caller.
func (s *Service) Retrieve(ctx context.Context, collection, query string, limit int) ([]qa.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if collection == "" {
		collection = s.collection
	}
	coll, err := s.colls.Get(ctx, collection)
	if err != nil {
		return nil, err
	}
	return s.matcher.Match(ctx, coll, query, limit)
}

// Ingest encodes f and inserts the answer and question records as one batch.
func (s *Service) Ingest(ctx context.Context, collection string, f qa.Fact) error {
	if collection == "" {
		collection = s.collection
	}
	records, err := s.encoder.Encode(ctx, f)
	if err != nil {
		return err
	}
	coll, err := s.colls.Get(ctx, collection)
	if err != nil {
		return err
	}
	if err := coll.Insert(ctx, records); err != nil {
		return fmt.Errorf("chatbot: insert into %q: %w", collection, err)
	}
	logging.FromContext(ctx).Info("chatbot: fact ingested",
		slog.String("collection", collection),
		slog.String("answer_id", records[0].ID),
		slog.Int("questions", len(records)-1),
	)
	return nil
}

// Documents lists every record in collection.
func (s *Service) Documents(ctx context.Context, collection string) ([]rag.Record, error) {
	if collection == "" {
		collection = s.collection
	}
	coll, err := s.colls.Get(ctx, collection)
	if err != nil {
		return nil, err
	}
	return coll.GetAll(ctx)
}
