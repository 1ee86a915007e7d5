package chatbot

import (
	"context"
	"errors"
	"hash/fnv"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/54b3r/cafebot-go/internal/cafe"
	"github.com/54b3r/cafebot-go/internal/dispatch"
	"github.com/54b3r/cafebot-go/internal/logging"
	"github.com/54b3r/cafebot-go/internal/qa"
	"github.com/54b3r/cafebot-go/internal/rag"
	"github.com/54b3r/cafebot-go/internal/store"
)

// hashEmbedder gives identical texts identical vectors.
type hashEmbedder struct {
	fail bool
}

func (h *hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if h.fail {
		return nil, errors.New("provider down")
	}
	f := fnv.New64a()
	f.Write([]byte(text))
	r := rand.New(rand.NewPCG(f.Sum64(), 3))
	v := make([]float32, 16)
	for i := range v {
		v[i] = float32(r.NormFloat64())
	}
	return v, nil
}

func (h *hashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := h.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// memLog is an in-memory store.QueryLog.
type memLog struct {
	mu      sync.Mutex
	entries []store.QueryEntry
}

func (m *memLog) Record(_ context.Context, e store.QueryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memLog) Recent(_ context.Context, outcome store.Outcome, n int) ([]store.QueryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []store.QueryEntry
	for i := len(m.entries) - 1; i >= 0 && len(out) < n; i-- {
		if m.entries[i].Outcome == outcome {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

type countingObserver struct {
	mu       sync.Mutex
	outcomes []store.Outcome
}

func (c *countingObserver) ObserveQuery(o store.Outcome, _ *float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, o)
}

type fixture struct {
	svc *Service
	emb *hashEmbedder
	log *memLog
	obs *countingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := rag.OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	emb := &hashEmbedder{}
	matcher, err := qa.NewMatcher(qa.MatcherConfig{Embedder: emb, Logger: logging.Discard()})
	require.NoError(t, err)

	var n int64
	enc, err := qa.NewEncoder(qa.EncoderConfig{Embedder: emb, Now: func() time.Time {
		n++
		return time.UnixMilli(1_700_000_000_000 + n)
	}, Concurrency: 1})
	require.NoError(t, err)

	data := cafe.Default()
	data.BusinessHours.Regular = map[string]cafe.DayHours{"월요일": {Open: "09:00", Close: "18:00"}}
	data.BusinessHours.Holidays = nil
	data.BusinessHours.SpecialNotes = ""
	disp, err := dispatch.New(dispatch.Config{
		Data:     cafe.NewService(data, logging.Discard()),
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2025, time.March, 3, 10, 0, 0, 0, time.UTC) },
		Logger:   logging.Discard(),
	})
	require.NoError(t, err)

	ml := &memLog{}
	obs := &countingObserver{}
	svc, err := New(context.Background(), Config{
		Collections: rag.NewCollections(st),
		Matcher:     matcher,
		Encoder:     enc,
		Renderer:    disp,
		QueryLog:    ml,
		Observer:    obs,
		Logger:      logging.Discard(),
	})
	require.NoError(t, err)
	return &fixture{svc: svc, emb: emb, log: ml, obs: obs}
}

func TestNew_RequiresDependencies(t *testing.T) {
	t.Parallel()
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

func TestAsk_TextAnswer(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Ingest(ctx, "", qa.Fact{
		Document:  "매장은 역 3번 출구 앞에 있습니다.",
		Questions: []string{"매장 위치가 어디예요?", "어디에 있나요?"},
	}))

	reply := f.svc.Ask(ctx, "어디에 있나요?")
	assert.Equal(t, "매장은 역 3번 출구 앞에 있습니다.", reply.Answer)
	assert.Equal(t, "어디에 있나요?", reply.MatchedQuestion)
	require.NotNil(t, reply.Distance)
	assert.InDelta(t, 0, *reply.Distance, 1e-6)

	require.Len(t, f.log.entries, 1)
	assert.Equal(t, store.OutcomeMatched, f.log.entries[0].Outcome)
	assert.Equal(t, []store.Outcome{store.OutcomeMatched}, f.obs.outcomes)
}

func TestAsk_FunctionAnswerIsLive(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Ingest(ctx, "", qa.Fact{
		Kind:         qa.KindFunction,
		FunctionPath: dispatch.EndpointBusinessHours,
		Questions:    []string{"영업시간이 어떻게 되나요?"},
	}))

	reply := f.svc.Ask(ctx, "영업시간이 어떻게 되나요?")
	assert.Equal(t, "영업시간은 09:00부터 18:00까지입니다.\n현재 영업 중입니다.", reply.Answer)
}

func TestAsk_NoMatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	reply := f.svc.Ask(context.Background(), "아무 질문")
	assert.Equal(t, NoMatchReply, reply.Answer)
	assert.Empty(t, reply.MatchedQuestion)
	assert.Nil(t, reply.Distance)

	got, err := f.log.Recent(context.Background(), store.OutcomeNoMatch, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "아무 질문", got[0].Query)
}

func TestAsk_UpstreamErrorIsApology(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.emb.fail = true

	reply := f.svc.Ask(context.Background(), "메뉴 알려줘")
	assert.Equal(t, ErrorReply, reply.Answer)
	assert.Nil(t, reply.Distance)
	assert.Equal(t, store.OutcomeError, f.log.entries[0].Outcome)
}

func TestIngest_InvalidFactPropagates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	err := f.svc.Ingest(context.Background(), "", qa.Fact{Document: "x"})
	assert.ErrorIs(t, err, qa.ErrInvalidFact)
}

func TestRetrieveAndDocuments(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Ingest(ctx, "faq", qa.Fact{
		Document:  "네, 반려동물 동반 가능합니다.",
		Questions: []string{"강아지 데려가도 되나요?"},
	}))

	answers, err := f.svc.Retrieve(ctx, "faq", "강아지 데려가도 되나요?", 3)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, qa.TextBody{Content: "네, 반려동물 동반 가능합니다."}, answers[0].Body)

	docs, err := f.svc.Documents(ctx, "faq")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	// The default collection is untouched.
	docs, err = f.svc.Documents(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, docs)

	_, err = f.svc.Retrieve(ctx, "faq", "  ", 3)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}
