package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/54b3r/cafebot-go/internal/cafe"
	"github.com/54b3r/cafebot-go/internal/chatbot"
	"github.com/54b3r/cafebot-go/internal/dispatch"
	"github.com/54b3r/cafebot-go/internal/embedder"
	"github.com/54b3r/cafebot-go/internal/qa"
	"github.com/54b3r/cafebot-go/internal/rag"
	"github.com/54b3r/cafebot-go/internal/store"
	"github.com/54b3r/cafebot-go/internal/tracing"
)

// runtime is the dependency graph shared by every command that touches the
// knowledge base.
type runtime struct {
	log      *slog.Logger
	vectors  rag.Store
	db       *store.SQLiteStore
	embedder embedder.Client
	// upstream is the embedder without the cache, for readiness checks.
	upstream embedder.Client
	backend  string
	cafe     *cafe.Service
	chat     *chatbot.Service
	flush    func()
}

// runtimeOptions carries the per-command extras.
type runtimeOptions struct {
	// observer receives per-query outcomes; serve passes its metrics.
	observer chatbot.Observer
}

// newRuntime builds the runtime from the environment. The caller must Close it.
func newRuntime(ctx context.Context, log *slog.Logger, opts runtimeOptions) (_ *runtime, err error) {
	rt := &runtime{log: log, flush: func() {}}
	defer func() {
		if err != nil {
			rt.Close()
		}
	}()

	if err := embedder.Validate(log); err != nil {
		return nil, err
	}
	client, err := embedder.NewFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to initialise embedder: %w", err)
	}
	rt.backend = embedder.Backend()

	dbPath := os.Getenv("CAFEBOT_DB_PATH")
	if dbPath == "" {
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	if rt.db, err = store.Open(dbPath); err != nil {
		return nil, err
	}
	log.Info("store opened", slog.String("path", dbPath))

	rt.upstream = client
	rt.embedder = client
	if getEnvBool("EMBEDDING_CACHE", true) {
		rt.embedder = embedder.NewCached(client, rt.db, log)
	}
	log.Info("embedder initialised",
		slog.String("provider", rt.backend),
		slog.String("model", client.Model()),
	)

	vectors, err := rag.NewStoreFromEnv(embedder.DefaultDimensions(rt.backend))
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}
	rt.vectors = vectors
	log.Info("vector store ready", slog.String("backend", rt.vectors.Name()))

	topK, err := getEnvInt("CAFEBOT_TOP_K", qa.DefaultTopK)
	if err != nil {
		return nil, err
	}
	overFetch, err := getEnvInt("CAFEBOT_OVER_FETCH", qa.DefaultOverFetch)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvDuration("CAFEBOT_QUERY_TIMEOUT", chatbot.DefaultQueryTimeout)
	if err != nil {
		return nil, err
	}
	loc, err := loadLocation(os.Getenv("CAFE_TIMEZONE"))
	if err != nil {
		return nil, err
	}

	encoder, err := qa.NewEncoder(qa.EncoderConfig{Embedder: rt.embedder})
	if err != nil {
		return nil, err
	}
	matcher, err := qa.NewMatcher(qa.MatcherConfig{
		Embedder:    rt.embedder,
		DefaultTopK: topK,
		OverFetch:   overFetch,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}

	if rt.cafe, err = cafe.Open(os.Getenv("CAFE_DATA_FILE"), log); err != nil {
		return nil, err
	}
	dispatcher, err := dispatch.New(dispatch.Config{Data: rt.cafe, Location: loc, Logger: log})
	if err != nil {
		return nil, err
	}

	flush, traced := tracing.Setup(tracing.ConfigFromEnv(), log)
	rt.flush = flush
	if !traced {
		log.Debug("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
	}

	cfg := chatbot.Config{
		Collections:  rag.NewCollections(rt.vectors),
		Matcher:      matcher,
		Encoder:      encoder,
		Renderer:     dispatcher,
		Collection:   getEnvOrDefault("CAFEBOT_COLLECTION", chatbot.DefaultCollection),
		TopK:         topK,
		QueryTimeout: timeout,
		QueryLog:     rt.db,
		Logger:       log,
	}
	if opts.observer != nil {
		cfg.Observer = opts.observer
	}
	if rt.chat, err = chatbot.New(ctx, cfg); err != nil {
		return nil, err
	}
	return rt, nil
}

// Close flushes tracing and releases both stores.
func (rt *runtime) Close() {
	rt.flush()
	if rt.vectors != nil {
		_ = rt.vectors.Close()
	}
	if rt.db != nil {
		_ = rt.db.Close()
	}
}
