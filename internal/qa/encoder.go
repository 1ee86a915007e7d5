package qa

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/54b3r/cafebot-go/internal/rag"
)

const (
	// defaultEmbedConcurrency bounds in-flight embedding calls per Encode.
	defaultEmbedConcurrency = 8
	// defaultEmbedBatchSize is the number of texts sent per EmbedBatch call.
	defaultEmbedBatchSize = 16
)

// Fact is one logical QA unit to ingest.
type Fact struct {
	// Document is the answer text. Optional for function answers, where it
	// defaults to FunctionPath.
	Document string
	// Questions are the paraphrases that should resolve to this answer.
	Questions []string
	// Kind selects the answer variant. Empty means text.
	Kind Kind
	// FunctionPath is the live-data endpoint for function answers.
	FunctionPath string
	// Parameters are optional arguments for function answers.
	Parameters map[string]any
}

// EncoderConfig configures an Encoder.
type EncoderConfig struct {
	// Embedder computes the vectors. Required.
	Embedder rag.Embedder
	// Now is the clock used for record ids. Defaults to time.Now.
	Now func() time.Time
	// Concurrency bounds parallel embedding calls. Defaults to 8.
	Concurrency int
	// BatchSize is the number of texts per EmbedBatch call. Defaults to 16.
	BatchSize int
}

// Encoder builds the records for one QA fact.
type Encoder struct {
	embedder    rag.Embedder
	now         func() time.Time
	concurrency int
	batchSize   int
	// lastStamp is the most recently issued id timestamp.
	lastStamp atomic.Int64
}

// NewEncoder constructs an Encoder.
func NewEncoder(cfg EncoderConfig) (*Encoder, error) {
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("qa: embedder must not be nil")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultEmbedConcurrency
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultEmbedBatchSize
	}
	return &Encoder{
		embedder:    cfg.Embedder,
		now:         cfg.Now,
		concurrency: cfg.Concurrency,
		batchSize:   cfg.BatchSize,
	}, nil
}

// nextStamp returns a millisecond timestamp strictly greater than every
// stamp this Encoder issued before, so ids never repeat within the process
// even when calls land in the same millisecond.
func (e *Encoder) nextStamp() int64 {
	for {
		prev := e.lastStamp.Load()
		next := max(e.now().UnixMilli(), prev+1)
		if e.lastStamp.CompareAndSwap(prev, next) {
			return next
		}
	}
}

// Encode validates f, embeds the answer and every question, and returns the
// answer record followed by one record per question, in input order.
//
// Ids are answer_<ts> and question_<ts>_<i>, where ts is one millisecond
// clock capture shared by the whole batch, bumped past the previous call's
// ts if the clock has not moved. Texts are embedded in batches of BatchSize,
// several batches in flight at once. Any embedding failure fails the whole
// call and no records are returned.
func (e *Encoder) Encode(ctx context.Context, f Fact) ([]rag.Record, error) {
	body, doc, err := validate(f)
	if err != nil {
		return nil, err
	}

	ts := strconv.FormatInt(e.nextStamp(), 10)
	answerID := "answer_" + ts

	meta, err := encodeAnswerMeta(answerID, body)
	if err != nil {
		return nil, err
	}

	records := make([]rag.Record, 1+len(f.Questions))
	records[0] = rag.Record{ID: answerID, Document: doc, Metadata: meta}
	for i, q := range f.Questions {
		id := "question_" + ts + "_" + strconv.Itoa(i)
		records[i+1] = rag.Record{ID: id, Document: q, Metadata: questionMeta(id, answerID)}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for start := 0; start < len(records); start += e.batchSize {
		batch := records[start:min(start+e.batchSize, len(records))]
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i := range batch {
				texts[i] = batch[i].Document
			}
			vecs, err := e.embedder.EmbedBatch(gctx, texts)
			if err != nil {
				return fmt.Errorf("qa: embed %s..%s: %w", batch[0].ID, batch[len(batch)-1].ID, err)
			}
			if len(vecs) != len(batch) {
				return fmt.Errorf("qa: embedder returned %d vectors for %d texts", len(vecs), len(batch))
			}
			for i := range batch {
				batch[i].Embedding = vecs[i]
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// validate checks f and returns its body and the answer document text.
func validate(f Fact) (Body, string, error) {
	if len(f.Questions) == 0 {
		return nil, "", fmt.Errorf("%w: at least one question is required", ErrInvalidFact)
	}
	for i, q := range f.Questions {
		if strings.TrimSpace(q) == "" {
			return nil, "", fmt.Errorf("%w: question %d is blank", ErrInvalidFact, i)
		}
	}

	kind, err := ParseKind(string(f.Kind))
	if err != nil {
		return nil, "", err
	}

	switch kind {
	case KindFunction:
		if strings.TrimSpace(f.FunctionPath) == "" {
			return nil, "", fmt.Errorf("%w: function answers need a functionPath", ErrInvalidFact)
		}
		doc := f.Document
		if strings.TrimSpace(doc) == "" {
			doc = f.FunctionPath
		}
		return FunctionBody{Path: f.FunctionPath, Parameters: f.Parameters}, doc, nil
	default:
		if strings.TrimSpace(f.Document) == "" {
			return nil, "", fmt.Errorf("%w: document is required", ErrInvalidFact)
		}
		return TextBody{Content: f.Document}, f.Document, nil
	}
}
